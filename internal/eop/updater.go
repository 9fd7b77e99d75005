package eop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/litescript/ls-nightsky/internal/logging"
)

// DefaultRefreshInterval is how often the finals table is re-downloaded.
const DefaultRefreshInterval = 24 * time.Hour

// Updater keeps a Table current by periodically fetching the finals file.
type Updater struct {
	fetcher   *Fetcher
	table     *Table
	log       *logging.Logger
	interval  time.Duration
	cachePath string
	onUpdate  func()
}

// UpdaterOption configures an Updater.
type UpdaterOption func(*Updater)

// WithInterval sets the refresh period.
func WithInterval(d time.Duration) UpdaterOption {
	return func(u *Updater) {
		if d > 0 {
			u.interval = d
		}
	}
}

// WithCachePath stores each successful download at path so the next start
// can load it without network access.
func WithCachePath(path string) UpdaterOption {
	return func(u *Updater) {
		u.cachePath = path
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) UpdaterOption {
	return func(u *Updater) {
		u.log = logging.OrDiscard(l).Named("eop")
	}
}

// OnUpdate registers a callback run after each successful update, for
// example to reset the UT1 cache.
func OnUpdate(fn func()) UpdaterOption {
	return func(u *Updater) {
		u.onUpdate = fn
	}
}

// NewUpdater creates an updater that refreshes table from fetcher.
func NewUpdater(fetcher *Fetcher, table *Table, opts ...UpdaterOption) *Updater {
	u := &Updater{
		fetcher:  fetcher,
		table:    table,
		log:      logging.Discard(),
		interval: DefaultRefreshInterval,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Update performs one fetch and swaps the table contents on success.
func (u *Updater) Update(ctx context.Context) error {
	res := u.fetcher.Fetch(ctx)
	if res.Error != nil {
		return fmt.Errorf("update EOP from %s: %w", u.fetcher.URL(), res.Error)
	}

	u.table.Replace(res.Entries)
	first, last := u.table.Span()
	u.log.Info("loaded %d UT1-UTC entries (%s to %s) in %v",
		len(res.Entries), first.Format("2006-01-02"), last.Format("2006-01-02"), res.Duration.Round(time.Millisecond))

	if u.cachePath != "" {
		if err := writeAtomic(u.cachePath, res.RawBytes); err != nil {
			u.log.Warn("cache EOP file: %v", err)
		}
	}
	if u.onUpdate != nil {
		u.onUpdate()
	}
	return nil
}

// Run updates immediately and then every interval until ctx is done. Failed
// updates are logged and the previous table stays in use.
func (u *Updater) Run(ctx context.Context) error {
	if err := u.Update(ctx); err != nil {
		u.log.Warn("%v", err)
	}

	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := u.Update(ctx); err != nil {
				u.log.Warn("%v", err)
			}
		}
	}
}

// writeAtomic writes data to a temporary file beside path and renames it.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".finals-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
