// Package timescale converts between UTC, UT1 and TT and provides sidereal
// time for an observer, using Earth orientation data for UT1-UTC.
package timescale

import (
	"sort"
	"time"
)

// leapSecond is the TAI-UTC offset in effect from a UTC date onward.
type leapSecond struct {
	from   time.Time
	offset float64
}

func utc(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// leapSeconds lists every leap second since UTC adopted whole-second steps.
var leapSeconds = []leapSecond{
	{utc(1972, time.January, 1), 10},
	{utc(1972, time.July, 1), 11},
	{utc(1973, time.January, 1), 12},
	{utc(1974, time.January, 1), 13},
	{utc(1975, time.January, 1), 14},
	{utc(1976, time.January, 1), 15},
	{utc(1977, time.January, 1), 16},
	{utc(1978, time.January, 1), 17},
	{utc(1979, time.January, 1), 18},
	{utc(1980, time.January, 1), 19},
	{utc(1981, time.July, 1), 20},
	{utc(1982, time.July, 1), 21},
	{utc(1983, time.July, 1), 22},
	{utc(1985, time.July, 1), 23},
	{utc(1988, time.January, 1), 24},
	{utc(1990, time.January, 1), 25},
	{utc(1991, time.January, 1), 26},
	{utc(1992, time.July, 1), 27},
	{utc(1993, time.July, 1), 28},
	{utc(1994, time.July, 1), 29},
	{utc(1996, time.January, 1), 30},
	{utc(1997, time.July, 1), 31},
	{utc(1999, time.January, 1), 32},
	{utc(2006, time.January, 1), 33},
	{utc(2009, time.January, 1), 34},
	{utc(2012, time.July, 1), 35},
	{utc(2015, time.July, 1), 36},
	{utc(2017, time.January, 1), 37},
}

// TTMinusTAI is the fixed offset between Terrestrial Time and TAI.
const TTMinusTAI = 32.184

// TAIMinusUTC returns the accumulated leap seconds at t. Dates before 1972
// use the initial 10 s offset.
func TAIMinusUTC(t time.Time) float64 {
	t = t.UTC()
	i := sort.Search(len(leapSeconds), func(i int) bool {
		return leapSeconds[i].from.After(t)
	})
	if i == 0 {
		return leapSeconds[0].offset
	}
	return leapSeconds[i-1].offset
}
