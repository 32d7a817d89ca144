package records

import (
	"sort"
)

// UnitRecords holds one record per unit.
type UnitRecords struct {
	Repetitions *Set `json:"repetitions"`
	Seconds     *Set `json:"seconds"`
}

func (u *UnitRecords) slot(unit Unit) **Set {
	switch unit {
	case UnitRepetitions:
		return &u.Repetitions
	case UnitSeconds:
		return &u.Seconds
	default:
		return nil
	}
}

// Get returns the record stored for unit, or nil.
func (u UnitRecords) Get(unit Unit) *Set {
	switch unit {
	case UnitRepetitions:
		return u.Repetitions
	case UnitSeconds:
		return u.Seconds
	default:
		return nil
	}
}

// Summary is the result of folding a user's sets into buckets.
type Summary struct {
	Puissance UnitRecords `json:"Puissance"`
	Force     UnitRecords `json:"Force"`
	Volume    UnitRecords `json:"Volume"`
	Endurance UnitRecords `json:"Endurance"`

	// Last is the chronologically last set per unit, whatever its category.
	Last UnitRecords `json:"Last"`

	// Skipped counts the malformed sets that were ignored.
	Skipped int `json:"skipped"`
}

// Bucket returns the records of a category.
func (s *Summary) Bucket(c Category) *UnitRecords {
	switch c {
	case Puissance:
		return &s.Puissance
	case Force:
		return &s.Force
	case Volume:
		return &s.Volume
	case Endurance:
		return &s.Endurance
	default:
		return nil
	}
}

// Compute folds sets into their (category, unit) buckets and keeps the
// dominant set of each. Sets are processed in ascending date order; the
// input slice is left untouched. Malformed sets are skipped and counted.
func Compute(sets []Set) Summary {
	ordered := make([]Set, len(sets))
	copy(ordered, sets)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	var summary Summary
	for _, set := range ordered {
		if !set.Valid() {
			summary.Skipped++
			continue
		}
		category, ok := Classify(set.Unit, set.Value)
		if !ok {
			summary.Skipped++
			continue
		}

		slot := summary.Bucket(category).slot(set.Unit)
		*slot = CompareAndAssign(*slot, set)

		last := summary.Last.slot(set.Unit)
		*last = set.clone()
	}
	return summary
}
