// Package schedulability turns analysed response times into verdicts.
package schedulability

import (
	"errors"

	"prem-rta/internal/prem"
)

var ErrNotAnalysed = errors.New("schedulability: system has not been analysed")

func mustBeAnalysed(sys *prem.System) {
	if sys.State == prem.Unanalysed {
		panic(ErrNotAnalysed)
	}
}

// Task reports whether the task has a response time within its deadline.
func Task(t *prem.Task) bool {
	return t.Schedulable()
}

// Processor reports whether every task of the processor is schedulable.
// An empty processor is schedulable.
func Processor(p *prem.Processor) bool {
	for _, t := range p.Tasks {
		if !Task(t) {
			return false
		}
	}
	return true
}

// System reports whether every processor is schedulable. A diverged system
// is never schedulable.
func System(sys *prem.System) bool {
	mustBeAnalysed(sys)
	if sys.State == prem.Diverged {
		return false
	}
	for _, p := range sys.Processors {
		if !Processor(p) {
			return false
		}
	}
	return true
}

// PerProcessor gives the verdict of each processor in priority order.
func PerProcessor(sys *prem.System) []bool {
	mustBeAnalysed(sys)
	out := make([]bool, len(sys.Processors))
	for i, p := range sys.Processors {
		out[i] = Processor(p)
	}
	return out
}

// Ratio is the share of systems found schedulable.
func Ratio(schedulable, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(schedulable) / float64(total)
}
