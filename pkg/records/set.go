// Package records implements personal-record classification for recorded sets.
//
// The package is pure: callers supply the sets (usually from the storage
// layer, sorted by date) and get back classifications, dominant sets per
// effort bucket, or a verdict for a freshly logged set.
package records

import (
	"math"
	"time"
)

// Unit is the measurement unit of a set's value.
type Unit string

const (
	// UnitRepetitions counts repetitions.
	UnitRepetitions Unit = "repetitions"

	// UnitSeconds measures a held or timed effort in seconds.
	UnitSeconds Unit = "seconds"
)

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	return u == UnitRepetitions || u == UnitSeconds
}

// ElasticUse describes how an elastic band changes the effort.
type ElasticUse string

const (
	// ElasticResistance makes the movement harder as tension grows.
	ElasticResistance ElasticUse = "resistance"

	// ElasticAssistance makes the movement easier as tension grows.
	ElasticAssistance ElasticUse = "assistance"
)

// Elastic is the band used during a set.
type Elastic struct {
	Use     ElasticUse `json:"use" bson:"use"`
	Tension float64    `json:"tension" bson:"tension"`
}

// effort returns the signed contribution of the band: positive when it
// resists, negative when it assists.
func (e *Elastic) effort() (float64, bool) {
	if e == nil {
		return 0, false
	}
	switch e.Use {
	case ElasticResistance:
		return e.Tension, true
	case ElasticAssistance:
		return -e.Tension, true
	default:
		return 0, false
	}
}

// Set is one recorded performance of an exercise.
type Set struct {
	ID           string    `json:"id" bson:"-"`
	UserID       string    `json:"userId" bson:"user_id"`
	SeanceID     string    `json:"seanceId" bson:"seance_id"`
	ExerciseID   string    `json:"exerciseId" bson:"exercise_id"`
	VariationIDs []string  `json:"variationIds,omitempty" bson:"variation_ids,omitempty"`
	Unit         Unit      `json:"unit" bson:"unit"`
	Value        float64   `json:"value" bson:"value"`
	WeightLoad   *float64  `json:"weightLoad,omitempty" bson:"weight_load,omitempty"`
	Elastic      *Elastic  `json:"elastic,omitempty" bson:"elastic,omitempty"`
	Date         time.Time `json:"date" bson:"date"`
}

// Load returns the external weight of the set and whether one was recorded.
func (s Set) Load() (float64, bool) {
	if s.WeightLoad == nil || math.IsNaN(*s.WeightLoad) {
		return 0, false
	}
	return *s.WeightLoad, true
}

// Valid reports whether the set can take part in record computations.
// A zero value is never a record.
func (s Set) Valid() bool {
	if !s.Unit.Valid() {
		return false
	}
	if s.Value <= 0 || math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return false
	}
	if s.WeightLoad != nil && math.IsInf(*s.WeightLoad, 0) {
		return false
	}
	if s.Elastic != nil {
		if _, ok := s.Elastic.effort(); !ok {
			return false
		}
		if math.IsNaN(s.Elastic.Tension) {
			return false
		}
	}
	return true
}

// Float returns a pointer to v, handy for WeightLoad literals.
func Float(v float64) *float64 {
	return &v
}

func (s Set) clone() *Set {
	c := s
	if s.WeightLoad != nil {
		c.WeightLoad = Float(*s.WeightLoad)
	}
	if s.Elastic != nil {
		e := *s.Elastic
		c.Elastic = &e
	}
	if s.VariationIDs != nil {
		c.VariationIDs = append([]string(nil), s.VariationIDs...)
	}
	return &c
}
