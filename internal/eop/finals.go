// Package eop ingests IERS Earth orientation data and serves UT1-UTC to the
// time-scale cache.
package eop

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/litescript/ls-nightsky/internal/timescale"
)

// ErrNoEntries is returned when a finals file contains no usable UT1-UTC rows.
var ErrNoEntries = errors.New("no UT1-UTC entries")

// mjdEpoch is Modified Julian Date 0.
var mjdEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

// Entry is one daily row of the finals table.
type Entry struct {
	MJD         int
	UT1MinusUTC float64 // seconds
	Predicted   bool
}

// Date returns the UTC date of the entry.
func (e Entry) Date() time.Time {
	return mjdEpoch.AddDate(0, 0, e.MJD)
}

// MJD returns the Modified Julian Date of t's UTC day.
func MJD(t time.Time) int {
	return int(math.Floor(float64(t.Unix()-mjdEpoch.Unix()) / 86400))
}

// Parse reads the fixed-width finals2000A format. Rows without a UT1-UTC
// value, typically far-future rows, are skipped.
//
// Columns used (0-based, half-open): MJD [7,15), UT1 flag [57], UT1-UTC [58,68).
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if len(text) < 68 {
			continue
		}

		flag := text[57]
		if flag != 'I' && flag != 'P' {
			continue
		}
		mjd, err := strconv.ParseFloat(strings.TrimSpace(text[7:15]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: MJD: %w", line, err)
		}
		dut, err := strconv.ParseFloat(strings.TrimSpace(text[58:68]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: UT1-UTC: %w", line, err)
		}
		entries = append(entries, Entry{MJD: int(mjd), UT1MinusUTC: dut, Predicted: flag == 'P'})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read finals: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	return entries, nil
}

// Table is an in-memory UT1-UTC table. It implements timescale.EOPProvider
// and can be replaced wholesale while in use.
type Table struct {
	mu      sync.RWMutex
	byMJD   map[int]Entry
	first   int
	last    int
	updated time.Time
}

// NewTable creates a table from entries.
func NewTable(entries []Entry) *Table {
	t := &Table{}
	t.Replace(entries)
	return t
}

// LoadFile reads a finals2000A file from disk.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load EOP file: %w", err)
	}
	entries, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return NewTable(entries), nil
}

// Replace swaps in a new set of entries.
func (t *Table) Replace(entries []Entry) {
	byMJD := make(map[int]Entry, len(entries))
	mjds := make([]int, 0, len(entries))
	for _, e := range entries {
		byMJD[e.MJD] = e
		mjds = append(mjds, e.MJD)
	}
	sort.Ints(mjds)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.byMJD = byMJD
	t.first, t.last = 0, 0
	if len(mjds) > 0 {
		t.first, t.last = mjds[0], mjds[len(mjds)-1]
	}
	t.updated = time.Now()
}

// UT1MinusUTC implements timescale.EOPProvider.
func (t *Table) UT1MinusUTC(date time.Time) (float64, error) {
	mjd := MJD(date)

	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.byMJD[mjd]
	if !ok {
		return 0, fmt.Errorf("MJD %d: %w", mjd, timescale.ErrUnavailable)
	}
	return e.UT1MinusUTC, nil
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byMJD)
}

// Span returns the first and last dates covered.
func (t *Table) Span() (first, last time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.byMJD) == 0 {
		return time.Time{}, time.Time{}
	}
	return Entry{MJD: t.first}.Date(), Entry{MJD: t.last}.Date()
}

// Updated returns when the entries were last replaced.
func (t *Table) Updated() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updated
}
