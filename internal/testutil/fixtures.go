// Package testutil provides fixtures and containers for workout API tests.
package testutil

import (
	"time"

	"github.com/Sternrassler/workout-api/pkg/records"
)

// Epoch is the reference date of fixtures.
var Epoch = time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)

// Day returns Epoch plus n days.
func Day(n int) time.Time {
	return Epoch.AddDate(0, 0, n)
}

// Reps returns a repetition set of exercise on day n.
func Reps(exercise string, reps float64, day int) records.Set {
	return records.Set{
		ExerciseID: exercise,
		Unit:       records.UnitRepetitions,
		Value:      reps,
		Date:       Day(day),
	}
}

// Hold returns a timed set of exercise on day n.
func Hold(exercise string, seconds float64, day int) records.Set {
	return records.Set{
		ExerciseID: exercise,
		Unit:       records.UnitSeconds,
		Value:      seconds,
		Date:       Day(day),
	}
}

// Weighted returns s with an external load.
func Weighted(s records.Set, kg float64) records.Set {
	s.WeightLoad = records.Float(kg)
	return s
}

// Banded returns s with an elastic band.
func Banded(s records.Set, use records.ElasticUse, tension float64) records.Set {
	s.Elastic = &records.Elastic{Use: use, Tension: tension}
	return s
}

// WithVariations returns s performed with the given variations.
func WithVariations(s records.Set, ids ...string) records.Set {
	s.VariationIDs = ids
	return s
}
