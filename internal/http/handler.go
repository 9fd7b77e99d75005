// Package http serves a read-only JSON API over the nighttime calculator and
// rise/set solver.
package http

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/litescript/ls-nightsky/internal/astro"
	"github.com/litescript/ls-nightsky/internal/ephem"
	"github.com/litescript/ls-nightsky/internal/eop"
	"github.com/litescript/ls-nightsky/internal/nighttime"
	"github.com/litescript/ls-nightsky/internal/riseset"
	"github.com/litescript/ls-nightsky/internal/state"
	"github.com/litescript/ls-nightsky/internal/version"
	"github.com/litescript/ls-nightsky/internal/viewport"
)

// Deps are the services the handlers read from. State and EOP may be nil.
type Deps struct {
	Solver     *riseset.Solver
	Calculator *nighttime.Calculator
	Backend    ephem.Backend
	Observer   astro.ObserverInfo
	Location   *time.Location

	WavelengthMicrons float64
	RefractionSearch  astro.RefractionSearch

	State *state.Manager
	EOP   *eop.Table
}

// Handler handles HTTP requests.
type Handler struct {
	deps Deps
	now  func() time.Time
}

// NewHandler creates a new HTTP handler.
func NewHandler(deps Deps) *Handler {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &Handler{deps: deps, now: time.Now}
}

// EventResponse is a rise/set/transit triple. Missing events are omitted.
type EventResponse struct {
	Rise        *time.Time `json:"rise,omitempty"`
	Set         *time.Time `json:"set,omitempty"`
	Transit     *time.Time `json:"transit,omitempty"`
	Circumpolar bool       `json:"no_crossing"`
}

func eventResponse(ev riseset.RiseAndSetEvent) EventResponse {
	return EventResponse{Rise: ev.Rise, Set: ev.Set, Transit: ev.Transit, Circumpolar: ev.Circumpolar()}
}

// NighttimeResponse is the body of GET /v1/nighttime.
type NighttimeResponse struct {
	ReferenceDate    time.Time       `json:"reference_date"`
	Latitude         float64         `json:"latitude"`
	Longitude        float64         `json:"longitude"`
	Sun              EventResponse   `json:"sun"`
	NauticalTwilight EventResponse   `json:"nautical_twilight"`
	Twilight         EventResponse   `json:"astronomical_twilight"`
	Moon             EventResponse   `json:"moon"`
	MoonPhase        astro.MoonPhase `json:"moon_phase"`
	Illumination     float64         `json:"illumination"`
	NightSeconds     float64         `json:"night_seconds"`
	Dusk             *time.Time      `json:"dusk,omitempty"`
	Dawn             *time.Time      `json:"dawn,omitempty"`
}

// GetNighttime handles GET /v1/nighttime.
func (h *Handler) GetNighttime(c *gin.Context) {
	obs, err := h.observer(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := h.parseTime(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid date: %v", err)})
		return
	}

	d, err := h.deps.Calculator.Calculate(date, obs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, NighttimeResponse{
		ReferenceDate:    d.ReferenceDate,
		Latitude:         d.Latitude,
		Longitude:        d.Longitude,
		Sun:              eventResponse(d.Sun),
		NauticalTwilight: eventResponse(d.NauticalTwilight),
		Twilight:         eventResponse(d.Twilight),
		Moon:             eventResponse(d.Moon),
		MoonPhase:        d.MoonPhase,
		Illumination:     d.Illumination,
		NightSeconds:     d.NightDuration().Seconds(),
		Dusk:             d.Dusk(),
		Dawn:             d.Dawn(),
	})
}

// GetRiseSet handles GET /v1/riseset.
//
// Query: target (name, or "twilight" with kind=civil|nautical|astronomical),
// lat, lon, date, threshold (degrees, default 0).
func (h *Handler) GetRiseSet(c *gin.Context) {
	obs, err := h.observer(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := h.parseTime(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid date: %v", err)})
		return
	}
	name := c.Query("target")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target parameter is required"})
		return
	}

	var ev riseset.RiseAndSetEvent
	if strings.EqualFold(name, "twilight") {
		tw, ok := parseTwilight(c.DefaultQuery("kind", "astronomical"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid twilight kind %q", c.Query("kind"))})
			return
		}
		ev, err = h.deps.Solver.TwilightRiseAndSet(tw, obs, start)
	} else {
		threshold, perr := parseFloatDefault(c.Query("threshold"), 0)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid threshold: %v", perr)})
			return
		}
		target, lerr := h.deps.Solver.Lookup(name, obs)
		if lerr != nil {
			c.JSON(lookupStatus(lerr), gin.H{"error": lerr.Error()})
			return
		}
		ev, err = h.deps.Solver.RiseAndSet(target, obs, start, threshold)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"target": name,
		"start":  start,
		"events": eventResponse(ev),
	})
}

// PositionResponse is the body of GET /v1/position.
type PositionResponse struct {
	Target       string    `json:"target"`
	Time         time.Time `json:"time"`
	RAHours      float64   `json:"ra_hours"`
	DecDegrees   float64   `json:"dec_degrees"`
	Altitude     float64   `json:"altitude"`
	Azimuth      float64   `json:"azimuth"`
	Refracted    *float64  `json:"refracted_altitude,omitempty"`
	RARateArcsec float64   `json:"ra_rate_arcsec_per_s"`
	DecRate      float64   `json:"dec_rate_arcsec_per_s"`
}

// GetPosition handles GET /v1/position.
//
// Query: target, lat, lon, time (RFC3339, default now), refraction (bool).
func (h *Handler) GetPosition(c *gin.Context) {
	obs, err := h.observer(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	at := h.now()
	if s := c.Query("time"); s != "" {
		if at, err = time.Parse(time.RFC3339, s); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid time (expected RFC3339): %v", err)})
			return
		}
	}
	name := c.Query("target")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target parameter is required"})
		return
	}

	target, err := h.deps.Solver.Lookup(name, obs)
	if err != nil {
		c.JSON(lookupStatus(err), gin.H{"error": err.Error()})
		return
	}
	coords, err := target.CoordinatesAt(at)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	hz, err := h.deps.Solver.Evaluate(target, obs, at)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	raRate, decRate, err := target.ShiftTrackingRateAt(at)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := PositionResponse{
		Target:       target.Name(),
		Time:         at.UTC(),
		RAHours:      coords.RA.Hours(),
		DecDegrees:   coords.Dec.Degrees(),
		Altitude:     hz.Altitude.Degrees(),
		Azimuth:      hz.Azimuth.Degrees(),
		RARateArcsec: raRate,
		DecRate:      decRate,
	}

	if refract, _ := strconv.ParseBool(c.Query("refraction")); refract {
		coef, err := h.deps.Backend.RefractionCoefficients(obs.Pressure, obs.Temperature, obs.Humidity/100, h.deps.WavelengthMicrons)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		// Below the horizon the model is undefined; the field is omitted.
		if r := astro.CalculateRefractedAltitude(hz.Altitude, coef, h.deps.RefractionSearch).Degrees(); !math.IsNaN(r) {
			resp.Refracted = &r
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GetViewportContains handles GET /v1/viewport/contains.
//
// Query: ra (hours), dec (degrees) for the centre, vfov (degrees), width,
// height (pixels), rotation (degrees), and either target or
// point_ra/point_dec for the tested position.
func (h *Handler) GetViewportContains(c *gin.Context) {
	var (
		ra, dec, vfov, rot float64
		w, hgt             int
		err                error
	)
	if ra, err = parseFloatRequired(c, "ra"); err == nil {
		if dec, err = parseFloatRequired(c, "dec"); err == nil {
			if vfov, err = parseFloatRequired(c, "vfov"); err == nil {
				rot, err = parseFloatDefault(c.Query("rotation"), 0)
			}
		}
	}
	if err == nil {
		w, err = strconv.Atoi(c.DefaultQuery("width", "1920"))
	}
	if err == nil {
		hgt, err = strconv.Atoi(c.DefaultQuery("height", "1080"))
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	at := h.now()
	fov, err := viewport.New(astro.NewCoordinates(ra, dec, astro.EpochJNOW, at), vfov, w, hgt, rot)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var point astro.Coordinates
	if name := c.Query("target"); name != "" {
		target, err := h.deps.Solver.Lookup(name, h.deps.Observer)
		if err != nil {
			c.JSON(lookupStatus(err), gin.H{"error": err.Error()})
			return
		}
		if point, err = target.CoordinatesAt(at); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	} else {
		pra, err := parseFloatRequired(c, "point_ra")
		if err == nil {
			var pdec float64
			if pdec, err = parseFloatRequired(c, "point_dec"); err == nil {
				point = astro.NewCoordinates(pra, pdec, astro.EpochJNOW, at)
			}
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "target or point_ra/point_dec is required"})
			return
		}
	}

	raLo, raHi := fov.RARange()
	decLo, decHi := fov.DecRange()
	c.JSON(http.StatusOK, gin.H{
		"contains":          fov.ContainsCoordinates(point),
		"hfov":              fov.HFoV,
		"arcsec_per_pixel":  fov.ArcSecPerPixel(),
		"polar":             fov.Polar(),
		"ra_range_degrees":  []float64{raLo, raHi},
		"dec_range_degrees": []float64{decLo, decHi},
		"point_ra_hours":    point.RA.Hours(),
		"point_dec_degrees": point.Dec.Degrees(),
	})
}

// GetState handles GET /v1/state: the tracked targets and recent events of
// the running host.
func (h *Handler) GetState(c *gin.Context) {
	if h.deps.State == nil || !h.deps.State.HasData() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no data yet"})
		return
	}
	snap := h.deps.State.Snapshot()

	type target struct {
		Name          string        `json:"name"`
		Altitude      float64       `json:"altitude"`
		Azimuth       float64       `json:"azimuth"`
		MaxAltitude   float64       `json:"max_altitude"`
		TransitsSouth bool          `json:"transits_south"`
		Events        EventResponse `json:"events"`
	}
	targets := make([]target, len(snap.Targets))
	for i, t := range snap.Targets {
		targets[i] = target{
			Name:          t.Name,
			Altitude:      t.Position.Altitude.Degrees(),
			Azimuth:       t.Position.Azimuth.Degrees(),
			MaxAltitude:   t.MaxAltitude,
			TransitsSouth: t.TransitsSouth,
			Events:        eventResponse(t.Events),
		}
	}

	resp := gin.H{
		"observer":    snap.Observer.Name,
		"last_update": snap.LastUpdate,
		"targets":     targets,
		"milestones":  snap.Milestones,
		"events":      snap.Events,
	}
	if snap.LastError != nil {
		resp["last_error"] = snap.LastError.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	resp := gin.H{
		"status":    "ok",
		"time":      h.now().UTC().Format(time.RFC3339),
		"ephemeris": h.deps.Backend.Name(),
		"version":   version.Version,
	}
	if h.deps.EOP != nil {
		first, last := h.deps.EOP.Span()
		resp["eop_entries"] = h.deps.EOP.Len()
		if !first.IsZero() {
			resp["eop_span"] = []string{first.Format("2006-01-02"), last.Format("2006-01-02")}
		}
	}
	c.JSON(http.StatusOK, resp)
}

// observer returns the configured observer with lat/lon overridden from the
// query when both are present.
func (h *Handler) observer(c *gin.Context) (astro.ObserverInfo, error) {
	obs := h.deps.Observer
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" && lonStr == "" {
		return obs, nil
	}
	if latStr == "" || lonStr == "" {
		return obs, errors.New("lat and lon must be given together")
	}
	lat, err := parseFinite(latStr)
	if err != nil || lat < -90 || lat > 90 {
		return obs, fmt.Errorf("invalid latitude %q", latStr)
	}
	lon, err := parseFinite(lonStr)
	if err != nil || lon < -180 || lon > 180 {
		return obs, fmt.Errorf("invalid longitude %q", lonStr)
	}
	obs.Latitude, obs.Longitude, obs.Name = lat, lon, ""
	return obs, nil
}

// parseTime accepts RFC3339 or a bare date, which means local noon of that
// day. Empty means now.
func (h *Handler) parseTime(s string) (time.Time, error) {
	if s == "" {
		return h.now().In(h.deps.Location), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation("2006-01-02", s, h.deps.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 or YYYY-MM-DD, got %q", s)
	}
	return d.Add(12 * time.Hour), nil
}

func parseTwilight(s string) (riseset.Twilight, bool) {
	for _, tw := range []riseset.Twilight{riseset.TwilightCivil, riseset.TwilightNautical, riseset.TwilightAstronomical} {
		if strings.EqualFold(s, tw.String()) {
			return tw, true
		}
	}
	return 0, false
}

func parseFloatDefault(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	return parseFinite(s)
}

func parseFloatRequired(c *gin.Context, key string) (float64, error) {
	s := c.Query(key)
	if s == "" {
		return 0, fmt.Errorf("%s parameter is required", key)
	}
	v, err := parseFinite(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return v, nil
}

// parseFinite is strconv.ParseFloat without NaN and the infinities, which
// would slip past range checks and cannot be encoded as JSON.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}

func lookupStatus(err error) int {
	switch {
	case errors.Is(err, riseset.ErrUnknownTarget):
		return http.StatusNotFound
	case errors.Is(err, ephem.ErrBodyUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
