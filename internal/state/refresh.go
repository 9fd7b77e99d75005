package state

import (
	"context"
	"fmt"
	"time"

	"github.com/litescript/ls-nightsky/internal/astro"
	"github.com/litescript/ls-nightsky/internal/logging"
	"github.com/litescript/ls-nightsky/internal/nighttime"
	"github.com/litescript/ls-nightsky/internal/riseset"
)

// Refresher recomputes the night and the tracked targets into a Manager.
type Refresher struct {
	calc    *nighttime.Calculator
	solver  *riseset.Solver
	mgr     *Manager
	log     *logging.Logger
	now     func() time.Time
	loc     *time.Location
	obs     astro.ObserverInfo
	targets []string
}

// NewRefresher creates a refresher for one observer and a list of target
// names (stars or solar system bodies).
func NewRefresher(calc *nighttime.Calculator, solver *riseset.Solver, mgr *Manager, obs astro.ObserverInfo, targets []string, log *logging.Logger) *Refresher {
	return &Refresher{
		calc:    calc,
		solver:  solver,
		mgr:     mgr,
		log:     logging.OrDiscard(log).Named("state"),
		now:     time.Now,
		loc:     time.Local,
		obs:     obs,
		targets: targets,
	}
}

// SetLocation sets the time zone whose local noon separates nights.
func (r *Refresher) SetLocation(loc *time.Location) {
	if loc != nil {
		r.loc = loc
	}
}

// Refresh evaluates everything at the current time and stores the result.
func (r *Refresher) Refresh() error {
	return r.RefreshAt(r.now())
}

// RefreshAt evaluates the night containing now and the targets' positions
// at now, and stores the result. Targets that cannot be resolved or
// evaluated are logged and left out.
func (r *Refresher) RefreshAt(now time.Time) error {
	start := time.Now()
	now = now.In(r.loc)

	night, err := r.calc.Calculate(now, r.obs)
	if err != nil {
		r.mgr.Update(r.obs, nil, nil, time.Since(start), err)
		return err
	}

	statuses := make([]TargetStatus, 0, len(r.targets))
	for _, name := range r.targets {
		st, err := r.evaluate(name, now, night.ReferenceDate)
		if err != nil {
			r.log.Warn("%v", err)
			continue
		}
		statuses = append(statuses, st)
	}

	r.mgr.SetSky(r.sky(now))

	dur := time.Since(start)
	r.mgr.Update(r.obs, night, statuses, dur, nil)
	r.log.Debug("refreshed %d targets in %v", len(statuses), dur.Round(time.Millisecond))
	return nil
}

func (r *Refresher) evaluate(name string, now, ref time.Time) (TargetStatus, error) {
	target, err := r.solver.Lookup(name, r.obs)
	if err != nil {
		return TargetStatus{}, err
	}
	pos, err := r.solver.Evaluate(target, r.obs, now)
	if err != nil {
		return TargetStatus{}, fmt.Errorf("evaluate %s: %w", name, err)
	}
	ev, err := r.solver.RiseAndSet(target, r.obs, ref, 0)
	if err != nil {
		return TargetStatus{}, fmt.Errorf("rise/set %s: %w", name, err)
	}
	prof, err := r.solver.Profile(target, r.obs, ref)
	if err != nil {
		return TargetStatus{}, fmt.Errorf("profile %s: %w", name, err)
	}
	return TargetStatus{
		Name:          target.Name(),
		Position:      pos,
		Events:        ev,
		MaxAltitude:   prof.Max.Altitude,
		TransitsSouth: prof.DoesTransitSouth(),
		Profile:       prof.Points,
	}, nil
}

// sky places the bright star catalog on the local sky at now.
func (r *Refresher) sky(now time.Time) []SkyObject {
	stars := astro.DefaultStarCatalog().Stars
	objs := make([]SkyObject, 0, len(stars))
	for _, star := range stars {
		pos, err := r.solver.Evaluate(r.solver.Fixed(star.Name, star.Coordinates(now)), r.obs, now)
		if err != nil {
			r.log.Debug("place %s: %v", star.Name, err)
			continue
		}
		objs = append(objs, SkyObject{
			Name:     star.Name,
			Mag:      star.Mag,
			Altitude: pos.Altitude.Degrees(),
			Azimuth:  pos.Azimuth.Degrees(),
		})
	}
	return objs
}

// Run refreshes immediately and then at the manager's refresh interval
// until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	if err := r.Refresh(); err != nil {
		r.log.Error("refresh: %v", err)
	}

	ticker := time.NewTicker(r.mgr.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Refresh(); err != nil {
				r.log.Error("refresh: %v", err)
			}
		}
	}
}
