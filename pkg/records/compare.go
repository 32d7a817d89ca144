package records

// CompareAndAssign returns the dominant set between the current record of a
// bucket and a candidate. The current record is never modified: when the
// candidate wins, a copy of it is returned.
//
// A candidate wins only when strictly harder. Harder compares, in order, the
// weight load (a missing load loses to any recorded one), the elastic effort
// (resistance counts up, assistance counts down) and finally the value.
// Ties keep the current record.
func CompareAndAssign(current *Set, candidate Set) *Set {
	if current == nil {
		return candidate.clone()
	}
	if harder(candidate, *current) {
		return candidate.clone()
	}
	return current
}

// harder reports whether a is strictly harder than b.
func harder(a, b Set) bool {
	if c := compareLoad(a, b); c != 0 {
		return c > 0
	}
	if c := compareElastic(a, b); c != 0 {
		return c > 0
	}
	return a.Value > b.Value
}

func compareLoad(a, b Set) int {
	la, okA := a.Load()
	lb, okB := b.Load()
	switch {
	case okA && !okB:
		return 1
	case !okA && okB:
		return -1
	case !okA && !okB:
		return 0
	}
	return cmpFloat(la, lb)
}

// compareElastic treats a set without a band as zero effort.
func compareElastic(a, b Set) int {
	ea, _ := a.Elastic.effort()
	eb, _ := b.Elastic.effort()
	return cmpFloat(ea, eb)
}

func cmpFloat(a, b float64) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}
