// Package config loads the YAML configuration for ls-nightsky.
package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/litescript/ls-nightsky/internal/astro"
	"github.com/litescript/ls-nightsky/internal/ephem"
)

// ObserverConfig is the observing site.
type ObserverConfig struct {
	Name        string  `yaml:"name"`
	Latitude    float64 `yaml:"latitude"`     // degrees, north positive
	Longitude   float64 `yaml:"longitude"`    // degrees, east positive
	Elevation   float64 `yaml:"elevation_m"`  // meters
	Pressure    float64 `yaml:"pressure_hpa"` // 0 = derive from elevation
	Temperature float64 `yaml:"temperature_c"`
	Humidity    float64 `yaml:"humidity_pct"` // 0-100
	Timezone    string  `yaml:"timezone"`     // IANA name; empty = local
}

// EphemerisConfig selects the ephemeris backend.
type EphemerisConfig struct {
	Mode      string `yaml:"mode"`       // meeus, jpl or auto
	JPLFile   string `yaml:"jpl_file"`   // DE binary file for jpl/auto
	VSOP87Dir string `yaml:"vsop87_dir"` // VSOP87B files for planets in meeus mode
}

// EOPConfig controls Earth orientation data.
type EOPConfig struct {
	FinalsFile   string `yaml:"finals_file"`   // local finals2000A cache
	URL          string `yaml:"url"`           // download source
	RefreshHours int    `yaml:"refresh_hours"` // 0 disables periodic download
}

// NighttimeConfig controls the nighttime aggregator.
type NighttimeConfig struct {
	RefreshMinutes int `yaml:"refresh_minutes"`
}

// RefractionConfig controls refraction coefficients and the search.
type RefractionConfig struct {
	WavelengthMicrons float64 `yaml:"wavelength_um"`
	StepArcsec        float64 `yaml:"step_arcsec"`
	MaxIterations     int     `yaml:"max_iterations"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Config aggregates all application configuration.
type Config struct {
	Observer   ObserverConfig   `yaml:"observer"`
	Ephemeris  EphemerisConfig  `yaml:"ephemeris"`
	EOP        EOPConfig        `yaml:"eop"`
	Nighttime  NighttimeConfig  `yaml:"nighttime"`
	Refraction RefractionConfig `yaml:"refraction"`
	Server     ServerConfig     `yaml:"server"`
	Targets    []string         `yaml:"targets"` // star or planet names shown by default
	LogLevel   string           `yaml:"log_level"`
}

// Default returns a configuration usable without a file: Greenwich, Meeus
// backend, no EOP download.
func Default() *Config {
	cfg := &Config{
		Observer: ObserverConfig{Name: "Greenwich", Latitude: 51.4769, Longitude: -0.0005, Elevation: 46},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Ephemeris.Mode == "" {
		c.Ephemeris.Mode = "auto"
	}
	if c.EOP.URL == "" {
		c.EOP.URL = "https://datacenter.iers.org/products/eop/rapid/standard/finals2000A.data"
	}
	if c.Nighttime.RefreshMinutes <= 0 {
		c.Nighttime.RefreshMinutes = 10
	}
	if c.Refraction.WavelengthMicrons <= 0 {
		c.Refraction.WavelengthMicrons = 0.55 // visual
	}
	if c.Refraction.StepArcsec <= 0 {
		c.Refraction.StepArcsec = 1
	}
	if c.Refraction.MaxIterations <= 0 {
		c.Refraction.MaxIterations = 3600
	}
	if c.Observer.Pressure == 0 {
		c.Observer.Pressure = StandardPressure(c.Observer.Elevation)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	o := c.Observer
	if o.Latitude < -90 || o.Latitude > 90 {
		return fmt.Errorf("observer.latitude must be between -90 and 90, got %.4f", o.Latitude)
	}
	if o.Longitude < -180 || o.Longitude > 180 {
		return fmt.Errorf("observer.longitude must be between -180 and 180, got %.4f", o.Longitude)
	}
	if o.Humidity < 0 || o.Humidity > 100 {
		return fmt.Errorf("observer.humidity_pct must be between 0 and 100, got %.2f", o.Humidity)
	}
	if o.Pressure < 0 {
		return fmt.Errorf("observer.pressure_hpa must be >= 0, got %.2f", o.Pressure)
	}
	if o.Timezone != "" {
		if _, err := time.LoadLocation(o.Timezone); err != nil {
			return fmt.Errorf("observer.timezone: %w", err)
		}
	}

	switch strings.ToLower(c.Ephemeris.Mode) {
	case "meeus", "jpl", "auto":
	default:
		return fmt.Errorf("ephemeris.mode must be meeus, jpl or auto, got %q", c.Ephemeris.Mode)
	}
	if strings.EqualFold(c.Ephemeris.Mode, "jpl") && c.Ephemeris.JPLFile == "" {
		return fmt.Errorf("ephemeris.jpl_file is required in jpl mode")
	}
	if c.EOP.RefreshHours < 0 {
		return fmt.Errorf("eop.refresh_hours must be >= 0, got %d", c.EOP.RefreshHours)
	}
	return nil
}

// StandardPressure returns the ISA pressure in hPa at elevation meters.
func StandardPressure(elevation float64) float64 {
	return 1013.25 * math.Pow(1-2.25577e-5*elevation, 5.25588)
}

// Site returns the observer as an astro.ObserverInfo.
func (c *Config) Site() astro.ObserverInfo {
	return astro.ObserverInfo{
		Name:        c.Observer.Name,
		Latitude:    c.Observer.Latitude,
		Longitude:   c.Observer.Longitude,
		Elevation:   c.Observer.Elevation,
		Pressure:    c.Observer.Pressure,
		Temperature: c.Observer.Temperature,
		Humidity:    c.Observer.Humidity,
	}
}

// Location returns the configured time zone, or time.Local.
func (c *Config) Location() *time.Location {
	if c.Observer.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Observer.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// EphemerisBackend returns the backend selection for ephem.New.
func (c *Config) EphemerisBackend() ephem.Config {
	return ephem.Config{
		Mode:      ephem.ParseMode(c.Ephemeris.Mode),
		JPLFile:   c.Ephemeris.JPLFile,
		VSOP87Dir: c.Ephemeris.VSOP87Dir,
	}
}

// RefractionSearch returns the refraction search parameters.
func (c *Config) RefractionSearch() astro.RefractionSearch {
	return astro.RefractionSearch{
		StepArcsec:    c.Refraction.StepArcsec,
		MaxIterations: c.Refraction.MaxIterations,
	}
}

// NighttimeRefresh returns the reference-date check interval.
func (c *Config) NighttimeRefresh() time.Duration {
	return time.Duration(c.Nighttime.RefreshMinutes) * time.Minute
}

// EOPRefresh returns the EOP download interval; zero disables downloads.
func (c *Config) EOPRefresh() time.Duration {
	return time.Duration(c.EOP.RefreshHours) * time.Hour
}
