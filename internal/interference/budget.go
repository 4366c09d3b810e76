package interference

import (
	"math"

	"prem-rta/internal/prem"
	"prem-rta/internal/recurrence"
)

// Budget models per-processor memory bandwidth regulation: every processor
// may issue Budgets[p] units of memory time per Period and is stalled once
// its budget is exhausted. The bound is the regulation stall suffered by the
// demand of the task's own processor within the window.
type Budget struct {
	Budgets []int
	Period  int
}

// DefaultBudget gives every processor its longest memory phase as budget and
// regulates over the longest compute phase of the system.
func DefaultBudget(sys *prem.System) Budget {
	b := Budget{Budgets: make([]int, len(sys.Processors))}
	for i, p := range sys.Processors {
		b.Budgets[i] = p.MMax()
		if p.CMax() > b.Period {
			b.Period = p.CMax()
		}
	}
	return b
}

func (Budget) Name() string { return "budget" }

func (b Budget) Interference(s *Session, cpuPrio, delta int, task *prem.Task) recurrence.Result {
	if cpuPrio >= len(b.Budgets) {
		return recurrence.Diverged
	}
	mHat, cHat := Demand(delta, s.System.Processors[cpuPrio].HigherOrEqualTasks(task.Prio))
	stall, ok := Stall(len(s.System.Processors), mHat, cHat, b.Budgets[cpuPrio], b.Period)
	if !ok {
		return recurrence.Diverged
	}
	return recurrence.Converged(stall)
}

// Demand sums the memory and compute demand released by tasks in a window.
func Demand(window int, tasks []*prem.Task) (mHat, cHat int) {
	for _, t := range tasks {
		n := recurrence.CeilDiv(window, t.T)
		mHat += n * t.M
		cHat += n * t.C
	}
	return mHat, cHat
}

// Stall bounds the time a processor with memory demand mHat and compute
// demand cHat is stalled by a regulator granting budget units of memory
// time per period on a platform of cpus processors. ok is false when the
// parameters admit no bound.
func Stall(cpus, mHat, cHat, budget, period int) (int, bool) {
	if mHat+cHat == 0 {
		return 0, true
	}
	if cpus < 1 || budget <= 0 || period < budget {
		return 0, false
	}
	n := float64(cpus)
	q := float64(budget)
	p := float64(period)
	gap := period - budget

	if q/p < 1/n {
		if mHat%budget == 0 {
			return (mHat/budget)*gap + (cpus-1)*budget, true
		}
		return recurrence.CeilDiv(mHat, budget)*gap + (cpus-1)*(mHat%budget), true
	}

	// The remaining cases spread the stall over the other processors.
	if cpus == 1 {
		return 0, false
	}

	share := q / p
	if float64(mHat)/float64(mHat+cHat) <= (1-share)/(share*(n-1)) {
		return gap + mHat*(cpus-1), true
	}

	rbs := float64(gap) / (n - 1)
	if q-rbs <= 0 {
		return 0, false
	}
	k := int(math.Floor(float64(cHat) / (q - rbs)))
	if mHat+cHat < (1+k)*budget {
		r := min(gap, int((n-1)*(float64(mHat)-float64(k)*rbs)))
		return (1+k)*gap + r, true
	}
	r := min(gap, (cpus-1)*((mHat+cHat)%budget))
	return (1+(mHat+cHat)/budget)*gap + r, true
}
