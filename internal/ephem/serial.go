package ephem

import (
	"io"
	"sync"
	"time"

	"github.com/litescript/ls-nightsky/internal/astro"
)

// backendMu serializes every call into any backend. The underlying
// libraries keep file handles and record caches that are not safe for
// concurrent use, and all backends may share those.
var backendMu sync.Mutex

// serialBackend guards a Backend with the package-level lock.
type serialBackend struct {
	b Backend
}

// Serialize wraps b so that all calls are made under one process-wide lock.
// Wrapping an already serialized backend returns it unchanged.
func Serialize(b Backend) Backend {
	if s, ok := b.(*serialBackend); ok {
		return s
	}
	return &serialBackend{b: b}
}

func (s *serialBackend) Name() string {
	backendMu.Lock()
	defer backendMu.Unlock()
	return s.b.Name()
}

func (s *serialBackend) Available(body Body) bool {
	backendMu.Lock()
	defer backendMu.Unlock()
	return s.b.Available(body)
}

func (s *serialBackend) ApparentPosition(jdTT float64, body Body, obs astro.ObserverInfo, acc Accuracy) (Position, error) {
	backendMu.Lock()
	defer backendMu.Unlock()
	return s.b.ApparentPosition(jdTT, body, obs, acc)
}

func (s *serialBackend) SiderealTime(jdHigh, jdLow, deltaT float64, flavor SiderealFlavor) (float64, error) {
	backendMu.Lock()
	defer backendMu.Unlock()
	return s.b.SiderealTime(jdHigh, jdLow, deltaT, flavor)
}

func (s *serialBackend) RefractionCoefficients(pressure, temperature, humidity, wavelength float64) (astro.RefractionCoefficients, error) {
	backendMu.Lock()
	defer backendMu.Unlock()
	return s.b.RefractionCoefficients(pressure, temperature, humidity, wavelength)
}

func (s *serialBackend) TransformEpoch(ra, dec astro.Angle, from, to astro.Epoch, at time.Time) (astro.Angle, astro.Angle, error) {
	backendMu.Lock()
	defer backendMu.Unlock()
	return s.b.TransformEpoch(ra, dec, from, to, at)
}

// Close closes the wrapped backend if it holds resources.
func (s *serialBackend) Close() error {
	backendMu.Lock()
	defer backendMu.Unlock()
	if c, ok := s.b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
