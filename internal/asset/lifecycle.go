package asset

import "math"

// Kind selects which lifecycle formula applies to a record.
type Kind string

const (
	KindConsumable Kind = "consumable"
	KindDurable    Kind = "durable"
)

// Unit describes how Lifecycle.Remaining should be displayed.
type Unit string

const (
	UnitPercent Unit = "percent"
	UnitYears   Unit = "years"
)

// Lifecycle is the derived view of how much life a record has left.
// Fraction is always within [0,1] and Remaining is never negative.
type Lifecycle struct {
	Kind      Kind    `json:"kind"`
	Fraction  float64 `json:"fraction"`
	Remaining int     `json:"remaining"`
	Unit      Unit    `json:"display_unit"`

	// Age in years, durables only.
	Age int `json:"age,omitempty"`
}

// Evaluate computes the lifecycle of rec as of currentYear.
func Evaluate(rec Record, currentYear int) Lifecycle {
	if rec.IsConsumable {
		score := clampInt(rec.HealthScore, 0, MaxHealthScore)
		return Lifecycle{
			Kind:      KindConsumable,
			Fraction:  float64(score) / 10.0,
			Remaining: score * 10,
			Unit:      UnitPercent,
		}
	}

	age := yearsBetween(rec.BirthYear, currentYear)
	var remaining int
	if rec.AvgLifespan > age {
		remaining = rec.AvgLifespan - age
	}

	var fraction float64
	if rec.AvgLifespan > 0 {
		fraction = clampFloat(float64(remaining)/float64(rec.AvgLifespan), 0, 1)
	}

	return Lifecycle{
		Kind:      KindDurable,
		Fraction:  fraction,
		Remaining: remaining,
		Unit:      UnitYears,
		Age:       age,
	}
}

// yearsBetween returns to-from, 0 when from is not before to and
// math.MaxInt when the difference does not fit in an int.
func yearsBetween(from, to int) int {
	if from >= to {
		return 0
	}
	if d := to - from; d > 0 {
		return d
	}
	return math.MaxInt
}
