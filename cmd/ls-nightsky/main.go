// Command ls-nightsky shows tonight's sky: twilight, Sun, Moon and the
// rise, transit and set of chosen targets, as a terminal UI, a text summary
// or an HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/litescript/ls-nightsky/internal/config"
	"github.com/litescript/ls-nightsky/internal/eop"
	"github.com/litescript/ls-nightsky/internal/ephem"
	apihttp "github.com/litescript/ls-nightsky/internal/http"
	"github.com/litescript/ls-nightsky/internal/logging"
	"github.com/litescript/ls-nightsky/internal/nighttime"
	"github.com/litescript/ls-nightsky/internal/riseset"
	"github.com/litescript/ls-nightsky/internal/state"
	"github.com/litescript/ls-nightsky/internal/timescale"
	"github.com/litescript/ls-nightsky/internal/ui"
)

// app holds the wired components shared by every mode.
type app struct {
	cfg       *config.Config
	log       *logging.Logger
	loc       *time.Location
	backend   ephem.Backend
	eopTable  *eop.Table
	updater   *eop.Updater
	solver    *riseset.Solver
	calc      *nighttime.Calculator
	mgr       *state.Manager
	refresher *state.Refresher
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config (built-in defaults if empty)")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	summaryMode := flag.Bool("summary", false, "Print a text summary of the night instead of the TUI")
	serveMode := flag.Bool("serve", false, "Serve the HTTP API instead of the TUI")
	dateStr := flag.String("date", "", "Night to summarize as YYYY-MM-DD (default: tonight)")
	targetList := flag.String("target", "", "Comma-separated targets, overrides the config list")
	updateEOP := flag.Bool("update-eop", false, "Download the EOP finals file and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *targetList != "" {
		cfg.Targets = splitTargets(*targetList)
	}

	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	switch {
	case *updateEOP:
		err = a.updater.Update(ctx)
	case *summaryMode:
		err = a.runSummary(*dateStr)
	case *serveMode:
		err = a.runServer(ctx)
	default:
		err = a.runTUI(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func splitTargets(s string) []string {
	var out []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func newApp(cfg *config.Config, logger *logging.Logger) (*app, error) {
	a := &app{cfg: cfg, log: logger, loc: cfg.Location()}

	backend, err := ephem.New(cfg.EphemerisBackend(), logger)
	if err != nil {
		return nil, err
	}
	a.backend = backend

	a.eopTable = eop.NewTable(nil)
	if path := cfg.EOP.FinalsFile; path != "" {
		if table, err := eop.LoadFile(path); err != nil {
			logger.Warn("EOP cache unavailable, UT1-UTC defaults to 0 until downloaded: %v", err)
		} else {
			a.eopTable = table
			first, last := table.Span()
			logger.Info("loaded %d UT1-UTC entries (%s to %s)", table.Len(), first.Format("2006-01-02"), last.Format("2006-01-02"))
		}
	}

	ut1 := timescale.NewUT1Cache(a.eopTable, timescale.WithLogger(logger))
	a.solver = riseset.NewSolver(timescale.NewConverter(ut1, backend), backend)
	a.calc = nighttime.NewCalculator(a.solver,
		nighttime.WithLocation(a.loc),
		nighttime.WithLogger(logger),
		nighttime.WithRefreshInterval(cfg.NighttimeRefresh()),
	)

	a.mgr = state.NewManager(state.DefaultConfig())
	a.refresher = state.NewRefresher(a.calc, a.solver, a.mgr, cfg.Site(), cfg.Targets, logger)
	a.refresher.SetLocation(a.loc)

	a.updater = eop.NewUpdater(
		eop.NewFetcher(eop.WithURL(cfg.EOP.URL)),
		a.eopTable,
		eop.WithInterval(cfg.EOPRefresh()),
		eop.WithCachePath(cfg.EOP.FinalsFile),
		eop.WithLogger(logger),
		eop.OnUpdate(func() {
			ut1.Reset()
			a.calc.Reset()
			a.mgr.NoteEOPUpdate(fmt.Sprintf("%d UT1-UTC entries", a.eopTable.Len()))
		}),
	)
	return a, nil
}

func (a *app) close() {
	if c, ok := a.backend.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.log.Warn("close ephemeris: %v", err)
		}
	}
}

// startBackground runs the EOP updater, the night watcher and the refresher
// until ctx is done.
func (a *app) startBackground(ctx context.Context) {
	if a.cfg.EOPRefresh() > 0 {
		go func() {
			_ = a.updater.Run(ctx)
		}()
	}

	go func() {
		_ = a.calc.Run(ctx)
	}()

	nights, unsubscribe := a.calc.Subscribe()
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case ref, ok := <-nights:
				if !ok {
					return
				}
				a.log.Debug("new night %s, refreshing", ref.Format("2006-01-02"))
				if err := a.refresher.Refresh(); err != nil {
					a.log.Error("refresh: %v", err)
				}
			}
		}
	}()

	go func() {
		_ = a.refresher.Run(ctx)
	}()
}

func (a *app) runSummary(dateStr string) error {
	at := time.Now().In(a.loc)
	if dateStr != "" {
		d, err := time.ParseInLocation("2006-01-02", dateStr, a.loc)
		if err != nil {
			return fmt.Errorf("invalid -date %q: %w", dateStr, err)
		}
		// Evening of that date so the night starts at its local noon.
		at = d.Add(21 * time.Hour)
	}

	if err := a.refresher.RefreshAt(at); err != nil {
		return err
	}
	color := term.IsTerminal(int(os.Stdout.Fd()))
	return writeSummary(os.Stdout, a.mgr.Snapshot(), a.loc, color)
}

func (a *app) runServer(ctx context.Context) error {
	a.startBackground(ctx)

	router := apihttp.SetupRouter(apihttp.Deps{
		Solver:            a.solver,
		Calculator:        a.calc,
		Backend:           a.backend,
		Observer:          a.cfg.Site(),
		Location:          a.loc,
		WavelengthMicrons: a.cfg.Refraction.WavelengthMicrons,
		RefractionSearch:  a.cfg.RefractionSearch(),
		State:             a.mgr,
		EOP:               a.eopTable,
	}, a.cfg.Server.AllowedOrigins, a.log)

	return apihttp.Serve(ctx, a.cfg.Server.Addr, router, a.log)
}

func (a *app) runTUI(ctx context.Context) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("stdout is not a terminal; use -summary or -serve")
	}

	// Log lines would tear the alternate screen.
	logPath := filepath.Join(os.TempDir(), "ls-nightsky.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		a.log.SetOutput(io.Discard)
	} else {
		defer f.Close()
		a.log.SetOutput(f)
	}

	a.startBackground(ctx)

	p := tea.NewProgram(ui.New(a.mgr, a.loc), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}
