package records

// Verdict classifies a freshly logged set against the user's history.
type Verdict string

const (
	// VerdictNone means the set is not a record.
	VerdictNone Verdict = ""

	// VerdictNewBest marks the first set ever logged for the combination.
	VerdictNewBest Verdict = "NB"

	// VerdictPersonalRecord marks a set no earlier set matches or beats.
	VerdictPersonalRecord Verdict = "PR"

	// VerdictSameBest marks a set that exactly equals the best earlier set.
	VerdictSameBest Verdict = "SB"
)

// IsPersonalRecord compares candidate with every set of history. History is
// expected to hold the same exercise, variation and unit; sets with another
// unit or that are malformed are ignored.
//
// Only dimensions recorded on both sides are compared: value, weight load and
// elastic effort. A malformed candidate is never a record.
func IsPersonalRecord(candidate Set, history []Set) Verdict {
	if !candidate.Valid() {
		return VerdictNone
	}
	seen := 0
	sameBest := false
	for _, h := range history {
		if !h.Valid() || h.Unit != candidate.Unit {
			continue
		}
		seen++
		if !atLeast(h, candidate) {
			continue
		}
		if equalOn(h, candidate) {
			sameBest = true
			continue
		}
		return VerdictNone
	}

	switch {
	case seen == 0:
		return VerdictNewBest
	case sameBest:
		return VerdictSameBest
	default:
		return VerdictPersonalRecord
	}
}

// atLeast reports whether a is better than or equal to b on every
// dimension both have.
func atLeast(a, b Set) bool {
	if a.Value < b.Value {
		return false
	}
	if la, okA := a.Load(); okA {
		if lb, okB := b.Load(); okB && la < lb {
			return false
		}
	}
	if ea, okA := a.Elastic.effort(); okA {
		if eb, okB := b.Elastic.effort(); okB && ea < eb {
			return false
		}
	}
	return true
}

func equalOn(a, b Set) bool {
	if a.Value != b.Value {
		return false
	}
	if la, okA := a.Load(); okA {
		if lb, okB := b.Load(); okB && la != lb {
			return false
		}
	}
	if ea, okA := a.Elastic.effort(); okA {
		if eb, okB := b.Elastic.effort(); okB && ea != eb {
			return false
		}
	}
	return true
}
