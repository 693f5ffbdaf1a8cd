package policy

import "fmt"

// Interval is the unit of a rate declaration.
type Interval uint8

const (
	PerSecond Interval = iota
	PerMinute
	PerHour
)

func (i Interval) String() string {
	switch i {
	case PerMinute:
		return "minute"
	case PerHour:
		return "hour"
	default:
		return "second"
	}
}

// RatePolicy declares an entity's request budget as (limit, interval).
// The declaration is carried and surfaced by this core; enforcement
// belongs to an external layer.
type RatePolicy struct {
	Limit int
	Per   Interval
}

// IsZero reports whether no rate was declared.
func (r RatePolicy) IsZero() bool { return r.Limit == 0 }

func (r RatePolicy) String() string {
	return fmt.Sprintf("%d/%s", r.Limit, r.Per)
}
