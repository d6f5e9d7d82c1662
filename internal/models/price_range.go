package models

import "fmt"

// PriceRange is the set of prices relevant for threshold matching within one
// block: the closed interval spanned by every price folded in with Extend,
// minus the values removed with ExcludeBound. The aggregator folds the
// previous block's closing price in and then excludes that exact value, which
// makes the carried boundary half-open: a threshold equal to the previous
// close fired when the price first reached it and must not fire again while
// the price sits there.
type PriceRange struct {
	hasValues bool
	low       float64
	high      float64
	excluded  []float64
}

// Extend folds a price into the range, widening the interval if needed.
func (r *PriceRange) Extend(p float64) {
	if !r.hasValues {
		r.hasValues = true
		r.low, r.high = p, p
		return
	}
	if p < r.low {
		r.low = p
	}
	if p > r.high {
		r.high = p
	}
}

// ExcludeBound removes the exact value p from the range. The interval keeps
// its bounds; Contains reports false for p afterwards.
func (r *PriceRange) ExcludeBound(p float64) {
	for _, e := range r.excluded {
		if e == p {
			return
		}
	}
	r.excluded = append(r.excluded, p)
}

// Contains reports whether p lies inside the interval and is not excluded.
func (r PriceRange) Contains(p float64) bool {
	if !r.hasValues || p < r.low || p > r.high {
		return false
	}
	for _, e := range r.excluded {
		if e == p {
			return false
		}
	}
	return true
}

// IsEmpty reports whether no price can match the range. A single-point range
// whose point is excluded is empty even though it has bounds.
func (r PriceRange) IsEmpty() bool {
	if !r.hasValues {
		return true
	}
	if r.low == r.high {
		for _, e := range r.excluded {
			if e == r.low {
				return true
			}
		}
	}
	return false
}

// LowHigh returns the interval bounds for an inclusive BETWEEN lookup; the
// caller re-checks candidates with Contains because BETWEEN admits excluded
// bounds. Only meaningful when the range is non-empty.
func (r PriceRange) LowHigh() (low, high float64) {
	return r.low, r.high
}

func (r PriceRange) String() string {
	if r.IsEmpty() {
		return "(empty)"
	}
	return fmt.Sprintf("[%s, %s] excl %v",
		FormatThreshold(r.low), FormatThreshold(r.high), r.excluded)
}
