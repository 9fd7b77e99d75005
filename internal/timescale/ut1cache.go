package timescale

import (
	"errors"
	"sync"
	"time"

	"github.com/litescript/ls-nightsky/internal/logging"
)

// ErrUnavailable is returned by an EOPProvider that has no value for a date.
var ErrUnavailable = errors.New("UT1-UTC unavailable")

// EOPProvider supplies UT1-UTC in seconds for a UTC date.
type EOPProvider interface {
	UT1MinusUTC(date time.Time) (float64, error)
}

// UT1Cache memoizes UT1-UTC per UTC date.
//
// Yesterday, today and tomorrow live in dedicated slots where zero means
// "not resolved yet", so a failed lookup is retried on the next call. Other
// dates are kept in a map where a stored value is final, including a zero
// from a failed lookup. The slots roll over the first time the cache is used
// on a new UTC day.
type UT1Cache struct {
	provider EOPProvider
	log      *logging.Logger
	now      func() time.Time

	mu        sync.Mutex
	day       time.Time // UTC midnight the slots refer to
	yesterday float64
	today     float64
	tomorrow  float64
	byDate    map[time.Time]float64
	warned    map[time.Time]bool // dates already logged as unavailable
}

// CacheOption configures a UT1Cache.
type CacheOption func(*UT1Cache)

// WithClock sets the clock used to decide which day is "today".
func WithClock(now func() time.Time) CacheOption {
	return func(c *UT1Cache) {
		c.now = now
	}
}

// WithLogger sets the logger for lookup failures.
func WithLogger(l *logging.Logger) CacheOption {
	return func(c *UT1Cache) {
		c.log = logging.OrDiscard(l).Named("ut1")
	}
}

// NewUT1Cache creates a cache in front of provider. A nil provider makes
// every lookup return 0.
func NewUT1Cache(provider EOPProvider, opts ...CacheOption) *UT1Cache {
	c := &UT1Cache{
		provider: provider,
		log:      logging.Discard(),
		now:      time.Now,
		byDate:   make(map[time.Time]float64),
		warned:   make(map[time.Time]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UT1MinusUTC returns UT1-UTC in seconds for the UTC date of t. It never
// fails: unavailable data is logged and treated as 0.
func (c *UT1Cache) UT1MinusUTC(t time.Time) float64 {
	date := utcDate(t)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollover()

	switch {
	case date.Equal(c.day):
		return c.resolve(&c.today, date)
	case date.Equal(c.day.AddDate(0, 0, -1)):
		return c.resolve(&c.yesterday, date)
	case date.Equal(c.day.AddDate(0, 0, 1)):
		return c.resolve(&c.tomorrow, date)
	}

	if v, ok := c.byDate[date]; ok {
		return v
	}
	v := c.lookup(date)
	c.byDate[date] = v
	return v
}

// Reset drops every cached value.
func (c *UT1Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.day = time.Time{}
	c.yesterday, c.today, c.tomorrow = 0, 0, 0
	c.byDate = make(map[time.Time]float64)
	c.warned = make(map[time.Time]bool)
}

// Len returns the number of dates held in the general map.
func (c *UT1Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byDate)
}

// rollover moves the slots to the current UTC day. Caller holds mu.
func (c *UT1Cache) rollover() {
	today := utcDate(c.now())
	if today.Equal(c.day) {
		return
	}
	c.day = today
	c.yesterday, c.today, c.tomorrow = 0, 0, 0
	c.warned = make(map[time.Time]bool)
}

// resolve fills a slot if it is still unresolved. Caller holds mu.
func (c *UT1Cache) resolve(slot *float64, date time.Time) float64 {
	if *slot != 0 {
		return *slot
	}
	*slot = c.lookup(date)
	return *slot
}

// lookup asks the provider and warns once per date on failure. Caller holds
// mu.
func (c *UT1Cache) lookup(date time.Time) float64 {
	if c.provider == nil {
		return 0
	}
	v, err := c.provider.UT1MinusUTC(date)
	if err != nil {
		if c.warned[date] {
			return 0
		}
		c.warned[date] = true
		c.log.Warn("UT1-UTC for %s: %v; using 0", date.Format("2006-01-02"), err)
		return 0
	}
	return v
}

// utcDate truncates t to midnight UTC.
func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
