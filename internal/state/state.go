// Package state provides thread-safe session state for the host: the current
// night, the tracked targets and a log of notable changes.
package state

import (
	"sort"
	"sync"
	"time"

	"github.com/litescript/ls-nightsky/internal/astro"
	"github.com/litescript/ls-nightsky/internal/nighttime"
	"github.com/litescript/ls-nightsky/internal/riseset"
)

// EventType represents the type of state change event.
type EventType string

const (
	EventNewNight      EventType = "NEW_NIGHT"
	EventTargetRose    EventType = "TARGET_ROSE"
	EventTargetSet     EventType = "TARGET_SET"
	EventEOPUpdated    EventType = "EOP_UPDATED"
	EventComputeFailed EventType = "COMPUTE_FAILED"
)

// Event represents a change noticed between updates.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Target    string    `json:"target,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// TargetStatus is the latest evaluation of one tracked target.
type TargetStatus struct {
	Name     string
	Position astro.TopocentricCoordinates
	Events   riseset.RiseAndSetEvent

	MaxAltitude   float64 // degrees, over the night window
	TransitsSouth bool
	Profile       []riseset.ProfilePoint
}

// Up reports whether the target is above the horizon.
func (s TargetStatus) Up() bool {
	return s.Position.Altitude.Degrees() >= 0
}

// SkyObject is a cataloged star placed on the local sky.
type SkyObject struct {
	Name     string
	Mag      float64
	Altitude float64 // degrees
	Azimuth  float64 // degrees
}

// TimeSeries is a single data point with timestamp.
type TimeSeries struct {
	Timestamp time.Time
	Value     float64
}

// TargetHistory tracks the altitude of a target across updates.
type TargetHistory struct {
	Name     string
	Altitude []TimeSeries
}

// Manager handles all shared application state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	// Current state
	observer        astro.ObserverInfo
	night           *nighttime.Data
	targets         []TargetStatus
	sky             []SkyObject
	lastUpdate      time.Time
	lastError       error
	computeDuration time.Duration

	// Previous altitudes for event detection
	prevUp map[string]bool

	// History buffers
	history       map[string]*TargetHistory
	maxTargetHist int

	// Event log (ring buffer)
	events       []Event
	maxEvents    int
	eventWriteAt int

	refreshInterval time.Duration
	now             func() time.Time
}

// Config holds configuration for the state manager.
type Config struct {
	MaxTargetHist   int
	MaxEvents       int
	RefreshInterval time.Duration
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxTargetHist:   240, // 4 hours at one update per minute
		MaxEvents:       50,
		RefreshInterval: time.Minute,
	}
}

// NewManager creates a new state manager.
func NewManager(cfg Config) *Manager {
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = 50
	}
	return &Manager{
		maxTargetHist:   cfg.MaxTargetHist,
		maxEvents:       maxEvents,
		events:          make([]Event, 0, maxEvents),
		refreshInterval: cfg.RefreshInterval,
		history:         make(map[string]*TargetHistory),
		prevUp:          make(map[string]bool),
		now:             time.Now,
	}
}

// Update atomically replaces the night and target statuses. A non-nil err
// records a failed computation and keeps the previous data.
func (m *Manager) Update(obs astro.ObserverInfo, night *nighttime.Data, targets []TargetStatus, dur time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.lastUpdate = now
	m.lastError = err
	m.computeDuration = dur

	if err != nil {
		m.addEvent(Event{Type: EventComputeFailed, Timestamp: now, Detail: err.Error()})
		return
	}
	if night == nil {
		return
	}

	if m.night == nil || !m.night.ReferenceDate.Equal(night.ReferenceDate) || m.observer != obs {
		m.addEvent(Event{
			Type:      EventNewNight,
			Timestamp: now,
			Detail:    night.ReferenceDate.Format("2006-01-02") + " " + obs.Name,
		})
		// Rise and set transitions are only meaningful for the same site.
		if m.observer != obs {
			m.prevUp = make(map[string]bool)
		}
	}

	m.detectEvents(targets, now)

	m.observer = obs
	m.night = night
	m.targets = append(m.targets[:0:0], targets...)

	m.updateHistory(targets, now)
}

// detectEvents compares target altitudes with the previous update.
func (m *Manager) detectEvents(targets []TargetStatus, now time.Time) {
	next := make(map[string]bool, len(targets))
	for _, t := range targets {
		up := t.Up()
		next[t.Name] = up

		wasUp, seen := m.prevUp[t.Name]
		if !seen || wasUp == up {
			continue
		}
		typ := EventTargetSet
		if up {
			typ = EventTargetRose
		}
		m.addEvent(Event{Type: typ, Timestamp: now, Target: t.Name})
	}
	m.prevUp = next
}

// SetSky replaces the star positions.
func (m *Manager) SetSky(objs []SkyObject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sky = append(m.sky[:0:0], objs...)
}

// NoteEOPUpdate records that the Earth orientation table was refreshed.
func (m *Manager) NoteEOPUpdate(detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addEvent(Event{Type: EventEOPUpdated, Timestamp: m.now(), Detail: detail})
}

// addEvent adds an event to the ring buffer.
func (m *Manager) addEvent(e Event) {
	if len(m.events) < m.maxEvents {
		m.events = append(m.events, e)
	} else {
		m.events[m.eventWriteAt] = e
		m.eventWriteAt = (m.eventWriteAt + 1) % m.maxEvents
	}
}

func (m *Manager) updateHistory(targets []TargetStatus, ts time.Time) {
	if m.maxTargetHist <= 0 {
		return
	}
	for _, t := range targets {
		hist, ok := m.history[t.Name]
		if !ok {
			hist = &TargetHistory{
				Name:     t.Name,
				Altitude: make([]TimeSeries, 0, m.maxTargetHist),
			}
			m.history[t.Name] = hist
		}

		hist.Altitude = append(hist.Altitude, TimeSeries{Timestamp: ts, Value: t.Position.Altitude.Degrees()})
		if len(hist.Altitude) > m.maxTargetHist {
			hist.Altitude = hist.Altitude[1:]
		}
	}
}

// Snapshot represents an immutable snapshot of current state.
type Snapshot struct {
	Observer        astro.ObserverInfo
	Night           *nighttime.Data
	Targets         []TargetStatus
	Sky             []SkyObject
	Milestones      []Milestone
	LastUpdate      time.Time
	LastError       error
	ComputeDuration time.Duration
	Events          []Event
}

// Snapshot returns a consistent snapshot of current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	targets := make([]TargetStatus, len(m.targets))
	copy(targets, m.targets)
	sky := make([]SkyObject, len(m.sky))
	copy(sky, m.sky)

	return Snapshot{
		Observer:        m.observer,
		Night:           m.night,
		Targets:         targets,
		Sky:             sky,
		Milestones:      Milestones(m.night),
		LastUpdate:      m.lastUpdate,
		LastError:       m.lastError,
		ComputeDuration: m.computeDuration,
		Events:          m.getEventsOrdered(),
	}
}

// getEventsOrdered returns events in chronological order.
func (m *Manager) getEventsOrdered() []Event {
	if len(m.events) == 0 {
		return nil
	}

	// If buffer isn't full yet, just copy
	if len(m.events) < m.maxEvents {
		result := make([]Event, len(m.events))
		copy(result, m.events)
		return result
	}

	// Ring buffer is full, reorder from oldest to newest
	result := make([]Event, m.maxEvents)
	for i := 0; i < m.maxEvents; i++ {
		idx := (m.eventWriteAt + i) % m.maxEvents
		result[i] = m.events[idx]
	}
	return result
}

// RecentEvents returns the last n events.
func (m *Manager) RecentEvents(n int) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.getEventsOrdered()
	if len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}

// TargetHistory returns a copy of the altitude history for a target, or nil.
func (m *Manager) TargetHistory(name string) *TargetHistory {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hist, ok := m.history[name]
	if !ok {
		return nil
	}

	cp := &TargetHistory{
		Name:     hist.Name,
		Altitude: make([]TimeSeries, len(hist.Altitude)),
	}
	copy(cp.Altitude, hist.Altitude)
	return cp
}

// RefreshInterval returns the configured refresh interval.
func (m *Manager) RefreshInterval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshInterval
}

// SetRefreshInterval updates the refresh interval.
func (m *Manager) SetRefreshInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshInterval = d
}

// HasData returns true once a night has been computed.
func (m *Manager) HasData() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.night != nil
}

// Milestone is a labelled instant of the night.
type Milestone struct {
	Label string
	Time  time.Time
}

// Milestones returns the night's events that occur in the window, in time
// order. It returns nil for a nil night.
func Milestones(d *nighttime.Data) []Milestone {
	if d == nil {
		return nil
	}

	var out []Milestone
	add := func(label string, t *time.Time) {
		if t != nil {
			out = append(out, Milestone{Label: label, Time: *t})
		}
	}
	add("Sunset", d.Sun.Set)
	add("Nautical dusk", d.NauticalTwilight.Set)
	add("Astronomical dusk", d.Twilight.Set)
	add("Astronomical dawn", d.Twilight.Rise)
	add("Nautical dawn", d.NauticalTwilight.Rise)
	add("Sunrise", d.Sun.Rise)
	add("Moonrise", d.Moon.Rise)
	add("Moonset", d.Moon.Set)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out
}
