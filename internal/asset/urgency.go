package asset

import (
	"cmp"
	"slices"
)

// Band is the display bucket derived from a health score.
type Band string

const (
	BandCritical Band = "CRITICAL"
	BandWatch    Band = "WATCH"
	BandStable   Band = "STABLE"
)

// BandFor maps a health score to its band. Boundaries are inclusive:
// <=4 critical, 5..7 watch, >=8 stable.
func BandFor(score int) Band {
	switch {
	case score <= 4:
		return BandCritical
	case score <= 7:
		return BandWatch
	default:
		return BandStable
	}
}

// SortByUrgency returns a copy of records ordered by ascending health score.
// Records with equal scores keep their input order.
func SortByUrgency(records []Record) []Record {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b Record) int {
		return cmp.Compare(a.HealthScore, b.HealthScore)
	})
	return out
}

// Entry is a record annotated for display.
type Entry struct {
	Record    Record    `json:"record"`
	Band      Band      `json:"band"`
	Lifecycle Lifecycle `json:"lifecycle"`
}

// Triage sorts records by urgency and annotates each with its band and
// lifecycle as of currentYear.
func Triage(records []Record, currentYear int) []Entry {
	sorted := SortByUrgency(records)
	out := make([]Entry, len(sorted))
	for i, rec := range sorted {
		out[i] = Entry{
			Record:    rec,
			Band:      BandFor(rec.HealthScore),
			Lifecycle: Evaluate(rec, currentYear),
		}
	}
	return out
}
