package rta

import (
	"fmt"

	"prem-rta/internal/interference"
	"prem-rta/internal/prem"
	"prem-rta/internal/recurrence"

	"github.com/sirupsen/logrus"
)

// AnalyzeBudgeted analyses the system as if each processor were throttled
// by a memory bandwidth regulator instead of arbitrated by processor
// priority. Processors do not depend on each other, so every task is
// analysed; tasks without a finite bound keep R unset and mark the system
// as diverged.
func (a *Analyzer) AnalyzeBudgeted(sys *prem.System, budget interference.Budget) Outcome {
	checkPriorities(sys)
	sys.ClearResponseTimes()

	cpus := len(sys.Processors)
	if len(budget.Budgets) != cpus {
		panic(fmt.Sprintf("rta: %d budgets for %d processors", len(budget.Budgets), cpus))
	}
	out := Outcome{Analysable: true, ResponseTimes: make([][]int, cpus)}

	for cpu, p := range sys.Processors {
		out.ResponseTimes[cpu] = make([]int, len(p.Tasks))
		for i, task := range p.Tasks {
			r, ok := a.stalledResponseTime(cpus, p, task, budget.Budgets[cpu], budget.Period).Value()
			if !ok {
				out.ResponseTimes[cpu][i] = prem.Unset
				if out.Diverged == nil {
					out.Diverged = &Location{Processor: cpu, Task: i}
				}
				out.Analysable = false
				continue
			}
			task.R = r
			out.ResponseTimes[cpu][i] = r
		}
	}

	if out.Analysable {
		sys.State = prem.Analysed
	} else {
		sys.State = prem.Diverged
	}
	a.logger.WithFields(logrus.Fields{
		"period":     budget.Period,
		"analysable": out.Analysable,
	}).Debug("budgeted system analysed")
	return out
}

// uniprocessorResponseTime is the classic fixed-priority response time of
// task ignoring memory contention.
func (a *Analyzer) uniprocessorResponseTime(p *prem.Processor, task *prem.Task) recurrence.Result {
	higher := p.HigherTasks(task.Prio)
	return recurrence.Solve(task.E(), a.divergenceFactor*task.D, func(r int) recurrence.Result {
		next := task.E()
		for _, h := range higher {
			next += recurrence.CeilDiv(r, h.T) * h.E()
		}
		return recurrence.Converged(next)
	})
}

func (a *Analyzer) stalledResponseTime(cpus int, p *prem.Processor, task *prem.Task, budget, period int) recurrence.Result {
	r0, ok := a.uniprocessorResponseTime(p, task).Value()
	if !ok {
		return recurrence.Diverged
	}
	higher := p.HigherTasks(task.Prio)
	higherEqual := p.HigherOrEqualTasks(task.Prio)

	return recurrence.Solve(r0, a.divergenceFactor*task.D, func(r int) recurrence.Result {
		mHat, cHat := interference.Demand(r, higherEqual)
		stall, ok := interference.Stall(cpus, mHat, cHat, budget, period)
		if !ok {
			return recurrence.Diverged
		}
		next := task.E() + stall
		for _, h := range higher {
			next += recurrence.CeilDiv(r, h.T) * h.E()
		}
		return recurrence.Converged(next)
	})
}
