// Package recurrence holds the tagged result type shared by the estimators and
// the response-time engine, plus the fixed-point iteration they all use.
package recurrence

import "fmt"

// Result is either a converged non-negative value or the Diverged marker.
// The zero value is Converged(0).
type Result struct {
	value    int
	diverged bool
}

// Diverged marks a recurrence that has no finite fixed point (or exceeded
// its cutoff).
var Diverged = Result{diverged: true}

func Converged(v int) Result {
	return Result{value: v}
}

// Value returns the converged value; ok is false for Diverged.
func (r Result) Value() (int, bool) {
	if r.diverged {
		return 0, false
	}
	return r.value, true
}

func (r Result) IsDiverged() bool {
	return r.diverged
}

// MustValue panics on Diverged. Use only after IsDiverged was checked.
func (r Result) MustValue() int {
	if r.diverged {
		panic("recurrence: value of a diverged result")
	}
	return r.value
}

func (r Result) String() string {
	if r.diverged {
		return "diverged"
	}
	return fmt.Sprintf("%d", r.value)
}

// Min returns the smaller of two results. A diverged side loses to a
// converged one; two diverged sides stay diverged.
func Min(a, b Result) Result {
	switch {
	case a.diverged:
		return b
	case b.diverged:
		return a
	case a.value <= b.value:
		return a
	default:
		return b
	}
}

// MinStrict returns the smaller of two results, diverging if either side
// diverged.
func MinStrict(a, b Result) Result {
	if a.diverged || b.diverged {
		return Diverged
	}
	return Min(a, b)
}

// Add sums two results, diverging if either side diverged.
func Add(a, b Result) Result {
	if a.diverged || b.diverged {
		return Diverged
	}
	return Converged(a.value + b.value)
}

// Step computes the next iterate of a recurrence from the current one.
type Step func(current int) Result

// Solve iterates step from seed until two consecutive iterates are equal.
// It returns Diverged when step diverges or an iterate exceeds limit.
// A non-positive limit disables the cutoff.
func Solve(seed, limit int, step Step) Result {
	current := seed
	for {
		next := step(current)
		v, ok := next.Value()
		if !ok {
			return Diverged
		}
		if v == current {
			return Converged(v)
		}
		if limit > 0 && v > limit {
			return Diverged
		}
		current = v
	}
}

// CeilDiv is ceil(a/b) for b > 0, correct for negative a.
func CeilDiv(a, b int) int {
	if b <= 0 {
		panic("recurrence: non-positive divisor")
	}
	q := a / b
	if a%b != 0 && a > 0 {
		q++
	}
	return q
}

// FloorDiv is floor(a/b) for b > 0, correct for negative a.
func FloorDiv(a, b int) int {
	if b <= 0 {
		panic("recurrence: non-positive divisor")
	}
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}
