package records

// Category is an effort class derived from a set's value.
type Category string

const (
	Puissance Category = "Puissance"
	Force     Category = "Force"
	Volume    Category = "Volume"
	Endurance Category = "Endurance"
)

// Categories lists every category in ascending value order.
var Categories = []Category{Puissance, Force, Volume, Endurance}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case Puissance, Force, Volume, Endurance:
		return true
	default:
		return false
	}
}

// Upper bounds (inclusive) for Puissance, Force and Volume; anything above
// the last bound is Endurance.
var thresholds = map[Unit][3]float64{
	UnitRepetitions: {3, 6, 12},
	UnitSeconds:     {10, 30, 60},
}

// Classify maps a value to its category for the given unit.
// It returns false when the unit is unknown.
func Classify(unit Unit, value float64) (Category, bool) {
	t, ok := thresholds[unit]
	if !ok {
		return "", false
	}
	switch {
	case value <= t[0]:
		return Puissance, true
	case value <= t[1]:
		return Force, true
	case value <= t[2]:
		return Volume, true
	default:
		return Endurance, true
	}
}
