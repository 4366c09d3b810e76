package prem

import (
	"errors"
	"fmt"
)

// Unset marks a priority or response time that has not been assigned yet.
const Unset = -1

var ErrInvalidTask = errors.New("invalid task")

// Task is a periodic PREM task: a memory phase of M followed by a compute
// phase of C, released every T with relative deadline D.
type Task struct {
	M int
	C int
	T int
	D int

	// Prio is 1 for the highest priority on its processor, Unset before
	// assignment. R is the analysed worst-case response time, Unset
	// until analysis succeeds.
	Prio int
	R    int
}

// NewTask validates the parameters and applies the implicit deadline D = T
// when d is not positive.
func NewTask(m, c, t, d int) (*Task, error) {
	if t <= 0 {
		return nil, fmt.Errorf("%w: period must be positive, got %d", ErrInvalidTask, t)
	}
	if m < 0 || c < 0 {
		return nil, fmt.Errorf("%w: negative phase length (M=%d, C=%d)", ErrInvalidTask, m, c)
	}
	if d <= 0 {
		d = t
	}
	return &Task{M: m, C: c, T: t, D: d, Prio: Unset, R: Unset}, nil
}

// MustTask is NewTask for literals known to be valid.
func MustTask(m, c, t, d int) *Task {
	task, err := NewTask(m, c, t, d)
	if err != nil {
		panic(err)
	}
	return task
}

// E is the total execution demand M + C.
func (t *Task) E() int {
	return t.M + t.C
}

func (t *Task) Utilisation() float64 {
	return float64(t.E()) / float64(t.T)
}

func (t *Task) MemoryUtilisation() float64 {
	return float64(t.M) / float64(t.T)
}

// Schedulable reports whether the task was analysed and meets its deadline.
func (t *Task) Schedulable() bool {
	return t.R != Unset && t.R <= t.D
}

func (t *Task) Reset() {
	t.Prio = Unset
	t.R = Unset
}

func (t *Task) Clone() *Task {
	c := *t
	return &c
}

func (t *Task) String() string {
	return fmt.Sprintf("(M=%d, C=%d, T=%d, D=%d, prio=%d, R=%d)", t.M, t.C, t.T, t.D, t.Prio, t.R)
}
