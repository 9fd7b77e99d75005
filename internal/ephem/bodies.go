package ephem

import (
	"strings"

	"github.com/mshafiee/jpleph"
	pp "github.com/soniakeys/meeus/v3/planetposition"
)

// Body identifies a solar system body.
type Body int

const (
	BodySun Body = iota
	BodyMoon
	BodyMercury
	BodyVenus
	BodyMars
	BodyJupiter
	BodySaturn
	BodyUranus
	BodyNeptune
	BodyPluto
)

// BodyInfo contains the naming and backend mapping for a body.
type BodyInfo struct {
	Body    Body
	Name    string
	Aliases []string
	JPL     jpleph.Planet // target index in JPL DE files
	VSOP87  int           // planetposition index, -1 if not a VSOP87 planet
}

// Bodies is the canonical list of supported bodies.
var Bodies = []BodyInfo{
	{Body: BodySun, Name: "Sun", Aliases: []string{"sol"}, JPL: jpleph.Sun, VSOP87: -1},
	{Body: BodyMoon, Name: "Moon", Aliases: []string{"luna"}, JPL: jpleph.Moon, VSOP87: -1},
	{Body: BodyMercury, Name: "Mercury", JPL: jpleph.Mercury, VSOP87: pp.Mercury},
	{Body: BodyVenus, Name: "Venus", JPL: jpleph.Venus, VSOP87: pp.Venus},
	{Body: BodyMars, Name: "Mars", JPL: jpleph.Mars, VSOP87: pp.Mars},
	{Body: BodyJupiter, Name: "Jupiter", JPL: jpleph.Jupiter, VSOP87: pp.Jupiter},
	{Body: BodySaturn, Name: "Saturn", JPL: jpleph.Saturn, VSOP87: pp.Saturn},
	{Body: BodyUranus, Name: "Uranus", JPL: jpleph.Uranus, VSOP87: pp.Uranus},
	{Body: BodyNeptune, Name: "Neptune", JPL: jpleph.Neptune, VSOP87: pp.Neptune},
	{Body: BodyPluto, Name: "Pluto", JPL: jpleph.Pluto, VSOP87: -1},
}

// bodiesByName maps lowercase names and aliases to body info.
var bodiesByName = func() map[string]BodyInfo {
	m := make(map[string]BodyInfo, len(Bodies)*2)
	for _, b := range Bodies {
		m[strings.ToLower(b.Name)] = b
		for _, alias := range b.Aliases {
			m[strings.ToLower(alias)] = b
		}
	}
	return m
}()

// String returns the body name.
func (b Body) String() string {
	if info, ok := b.Info(); ok {
		return info.Name
	}
	return "Unknown"
}

// Info returns the mapping for b.
func (b Body) Info() (BodyInfo, bool) {
	if b < 0 || int(b) >= len(Bodies) {
		return BodyInfo{}, false
	}
	return Bodies[b], true
}

// LookupBody returns the body for a name or alias (case-insensitive).
func LookupBody(name string) (Body, bool) {
	info, ok := bodiesByName[strings.ToLower(strings.TrimSpace(name))]
	return info.Body, ok
}
