// Package localtime buckets instants into calendar days and months under the
// league's fixed UTC+5 offset. Nothing here depends on the host timezone.
package localtime

import (
	"fmt"
	"time"
)

const (
	Offset     = 5 * time.Hour
	DateLayout = "2006-01-02"
)

// Zone is the fixed league zone, used only for display.
var Zone = time.FixedZone("UTC+5", int(Offset/time.Second))

// ToLocal shifts t forward by the fixed offset. The result is expressed in UTC
// so its wall clock reads as league-local time.
func ToLocal(t time.Time) time.Time {
	return t.UTC().Add(Offset)
}

// StartOfLocalDay returns the absolute instant of local midnight for the local
// day containing t.
func StartOfLocalDay(t time.Time) time.Time {
	l := ToLocal(t)
	midnight := time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Add(-Offset)
}

// EndOfLocalDay returns the start of the following local day.
func EndOfLocalDay(t time.Time) time.Time {
	return StartOfLocalDay(t).Add(24 * time.Hour)
}

// StartOfLocalMonth returns the absolute instant of local midnight on the 1st
// of the local month containing t.
func StartOfLocalMonth(t time.Time) time.Time {
	l := ToLocal(t)
	first := time.Date(l.Year(), l.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.Add(-Offset)
}

// LocalDateKey formats the local calendar date of t as YYYY-MM-DD. Two
// instants share a local day iff their keys are equal.
func LocalDateKey(t time.Time) string {
	return ToLocal(t).Format(DateLayout)
}

// SameLocalDay reports whether a and b fall on the same local calendar day.
func SameLocalDay(a, b time.Time) bool {
	return LocalDateKey(a) == LocalDateKey(b)
}

// ParseDateKey parses a YYYY-MM-DD key and returns the absolute instant of
// that local midnight.
func ParseDateKey(key string) (time.Time, error) {
	d, err := time.Parse(DateLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", key, err)
	}
	return d.Add(-Offset), nil
}
