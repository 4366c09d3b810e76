package interference

import (
	"strings"

	"prem-rta/internal/prem"
	"prem-rta/internal/recurrence"
)

// Composite keeps the tightest bound among its children. Every child is a
// safe bound, so the minimum of the converged ones is safe too.
type Composite struct {
	children []Estimator
}

func NewComposite(children ...Estimator) *Composite {
	return &Composite{children: children}
}

func (c *Composite) Name() string {
	names := make([]string, len(c.children))
	for i, e := range c.children {
		names[i] = e.Name()
	}
	return strings.Join(names, "+")
}

func (c *Composite) Children() []Estimator {
	return c.children
}

func (c *Composite) Interference(s *Session, cpuPrio, delta int, task *prem.Task) recurrence.Result {
	res := recurrence.Diverged
	for _, e := range c.children {
		res = recurrence.Min(res, e.Interference(s, cpuPrio, delta, task))
	}
	return res
}
