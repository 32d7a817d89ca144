package workout

import (
	"sort"

	"github.com/Sternrassler/workout-api/pkg/records"
)

// topExercises counts sets per exercise, most frequent first. Ties are
// broken by exercise id so results are stable.
func topExercises(sets []SeanceSet, limit int) []ExerciseCount {
	counts := make(map[string]int)
	for _, s := range sets {
		counts[s.ExerciseID]++
	}

	out := make([]ExerciseCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, ExerciseCount{ExerciseID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ExerciseID < out[j].ExerciseID
	})
	return truncate(out, limit)
}

// topFormats counts sets per exercise and variation combination.
func topFormats(sets []SeanceSet, limit int) []FormatCount {
	byFormat := make(map[string]*FormatCount)
	for _, s := range sets {
		key := FormatOf(s.Set)
		fc, ok := byFormat[key]
		if !ok {
			fc = &FormatCount{Format: key, ExerciseID: s.ExerciseID}
			if len(s.VariationIDs) > 0 {
				fc.VariationIDs = append([]string(nil), s.VariationIDs...)
				sort.Strings(fc.VariationIDs)
			}
			byFormat[key] = fc
		}
		fc.Count++
	}

	out := make([]FormatCount, 0, len(byFormat))
	for _, fc := range byFormat {
		out = append(out, *fc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Format < out[j].Format
	})
	return truncate(out, limit)
}

func computeStats(sets []SeanceSet, seances int) Stats {
	st := Stats{Sets: len(sets), Seances: seances}

	exercises := make(map[string]struct{})
	for _, s := range sets {
		exercises[s.ExerciseID] = struct{}{}
		if w, ok := s.Load(); ok {
			st.TotalVolume += s.Value * w
		}
		if st.LastSetAt == nil || s.Date.After(*st.LastSetAt) {
			d := s.Date
			st.LastSetAt = &d
		}
	}
	st.Exercises = len(exercises)
	return st
}

func plainSets(sets []SeanceSet) []records.Set {
	out := make([]records.Set, len(sets))
	for i, s := range sets {
		out[i] = s.Set
	}
	return out
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
