// Package priority assigns fixed priorities to the tasks of a processor.
package priority

import (
	"fmt"
	"strings"

	"prem-rta/internal/prem"
)

// Order reports whether a should get a higher priority than b.
type Order func(a, b *prem.Task) bool

// RateMonotonic: shorter period first.
func RateMonotonic(a, b *prem.Task) bool { return a.T < b.T }

// DeadlineMonotonic: shorter relative deadline first.
func DeadlineMonotonic(a, b *prem.Task) bool { return a.D < b.D }

// ShortestJobFirst: smaller execution demand first.
func ShortestJobFirst(a, b *prem.Task) bool { return a.E() < b.E() }

// Assign gives the tasks of p the priorities 1..N. Extraction repeatedly
// takes the best remaining task; on ties the earliest inserted task wins,
// so the assignment is deterministic for a given task order.
func Assign(p *prem.Processor, order Order) {
	staging := make([]*prem.Task, len(p.Tasks))
	copy(staging, p.Tasks)

	for prio := 1; len(staging) > 0; prio++ {
		best := 0
		for i := 1; i < len(staging); i++ {
			if order(staging[i], staging[best]) {
				best = i
			}
		}
		staging[best].Prio = prio
		staging = append(staging[:best], staging[best+1:]...)
	}
}

func AssignSystem(s *prem.System, order Order) {
	for _, p := range s.Processors {
		Assign(p, order)
	}
}

// Lookup resolves a policy name as used in configuration files.
func Lookup(name string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rate_monotonic", "rm", "":
		return RateMonotonic, nil
	case "deadline_monotonic", "dm":
		return DeadlineMonotonic, nil
	case "shortest_job_first", "sjf":
		return ShortestJobFirst, nil
	default:
		return nil, fmt.Errorf("unknown priority policy %q", name)
	}
}
