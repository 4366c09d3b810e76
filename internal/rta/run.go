package rta

import (
	"prem-rta/internal/interference"
	"prem-rta/internal/prem"
	"prem-rta/internal/recurrence"

	"github.com/sirupsen/logrus"
)

// run holds the state of one analysis: the estimator session and the
// maximum interference per processor.
type run struct {
	*Analyzer
	sys     *prem.System
	session *interference.Session

	epsilon []*recurrence.Result
	// probe is the zero-demand task used while computing epsilon.
	probe *prem.Task
}

func newRun(a *Analyzer, sys *prem.System) *run {
	return &run{
		Analyzer: a,
		sys:      sys,
		session:  interference.NewSession(sys),
		epsilon:  make([]*recurrence.Result, len(sys.Processors)),
		probe:    &prem.Task{M: 0, C: 0, T: 1, D: 1, Prio: prem.Unset, R: prem.Unset},
	}
}

func (r *run) alpha(cpu, delta int, task *prem.Task) recurrence.Result {
	return r.session.Evaluate(r.estimator, cpu, delta, task)
}

func (r *run) limit(task *prem.Task) int {
	return r.divergenceFactor * task.D
}

// blocking is the longest job of lower priority, which may hold the
// processor non-preemptively.
func blocking(p *prem.Processor, prio int) int {
	b := 0
	for _, t := range p.LowerTasks(prio) {
		if t.E() > b {
			b = t.E()
		}
	}
	return b
}

// intra is the demand released in a window of length delta by the tasks
// with priority strictly higher than prio.
func intra(p *prem.Processor, delta, prio int) int {
	total := 0
	for _, t := range p.HigherTasks(prio) {
		total += recurrence.CeilDiv(delta, t.T) * t.E()
	}
	return total
}

func sumE(tasks []*prem.Task) int {
	total := 0
	for _, t := range tasks {
		total += t.E()
	}
	return total
}

// memoryPhases is the number of memory phases released on p while a job of
// task is pending in a busy period of length delta.
func memoryPhases(p *prem.Processor, task *prem.Task, delta int) int {
	n := 0
	for _, t := range p.HigherTasks(task.Prio) {
		n += recurrence.CeilDiv(delta, t.T)
	}
	n += recurrence.FloorDiv(delta, task.T)
	if !p.IsLowestPrio(task.Prio) {
		n++
	}
	return n
}

// maxInterference is the longest interference a single memory phase of cpu
// can suffer: eps = alpha(eps + M_max), memoised for the run.
func (r *run) maxInterference(cpu int) recurrence.Result {
	if cached := r.epsilon[cpu]; cached != nil {
		return *cached
	}
	p := r.sys.Processors[cpu]
	mMax := p.MMax()

	limit := 0
	for _, q := range r.sys.Processors {
		if d := q.MaxDeadline(); d > limit {
			limit = d
		}
	}
	limit *= r.divergenceFactor

	eps := recurrence.Solve(mMax, limit, func(eps int) recurrence.Result {
		return r.alpha(cpu, eps+mMax, r.probe)
	})
	r.epsilon[cpu] = &eps
	r.logger.WithFields(logrus.Fields{"cpu": cpu, "epsilon": eps.String()}).Trace("max interference")
	return eps
}

// beta is the interference bound obtained by charging eps to every memory
// phase of the busy period.
func (r *run) beta(cpu int, task *prem.Task, delta int) recurrence.Result {
	eps := r.maxInterference(cpu)
	if eps.IsDiverged() {
		return recurrence.Diverged
	}
	return recurrence.Converged(memoryPhases(r.sys.Processors[cpu], task, delta) * eps.MustValue())
}

// convergent reports whether the busy-period recurrence of cpu has a finite
// solution.
func (r *run) convergent(cpu int) bool {
	eps, ok := r.maxInterference(cpu).Value()
	if !ok {
		return false
	}
	p := r.sys.Processors[cpu]

	higherMem := 0.0
	for _, h := range r.sys.HigherProcessors(cpu) {
		higherMem += h.MemoryUtilisation()
	}
	epsRate := 0.0
	for _, t := range p.Tasks {
		epsRate += float64(eps) / float64(t.T)
	}
	return p.Utilisation()+min(higherMem, epsRate) < 1
}

// busyPeriod is the longest level-prio busy period L including task itself.
func (r *run) busyPeriod(cpu int, task *prem.Task) recurrence.Result {
	if !r.convergent(cpu) {
		return recurrence.Diverged
	}
	p := r.sys.Processors[cpu]
	b := blocking(p, task.Prio)
	seed := b + sumE(p.HigherTasks(task.Prio)) + task.E()

	return recurrence.Solve(seed, r.limit(task), func(l int) recurrence.Result {
		mem := recurrence.MinStrict(r.alpha(cpu, l, task), recurrence.Add(r.beta(cpu, task, l), recurrence.Converged(p.MMax())))
		if mem.IsDiverged() {
			return recurrence.Diverged
		}
		return recurrence.Converged(b + intra(p, l, task.Prio+1) + mem.MustValue())
	})
}

// memoryStart is the latest start of the memory phase of the k-th job in
// the busy period.
func (r *run) memoryStart(cpu int, task *prem.Task, k int) recurrence.Result {
	p := r.sys.Processors[cpu]
	b := blocking(p, task.Prio)
	previous := (k - 1) * task.E()
	seed := b + sumE(p.HigherTasks(task.Prio)) + previous

	return recurrence.Solve(seed, r.limit(task), func(s int) recurrence.Result {
		mem := recurrence.MinStrict(r.alpha(cpu, s, task), r.beta(cpu, task, s))
		if mem.IsDiverged() {
			return recurrence.Diverged
		}
		return recurrence.Converged(b + intra(p, s, task.Prio) + previous + mem.MustValue())
	})
}

// computeStart is the latest start of the compute phase of the k-th job,
// given the start of its memory phase.
func (r *run) computeStart(cpu int, task *prem.Task, k, memStart int) recurrence.Result {
	p := r.sys.Processors[cpu]
	betaMem := r.beta(cpu, task, memStart)
	if betaMem.IsDiverged() {
		return recurrence.Diverged
	}
	constant := blocking(p, task.Prio) + intra(p, memStart, task.Prio) + task.M + (k-1)*task.E()

	return recurrence.Solve(task.M+memStart, r.limit(task), func(s int) recurrence.Result {
		whole := r.alpha(cpu, s, task)
		split := r.alpha(cpu, s-memStart, task)
		if whole.IsDiverged() || split.IsDiverged() {
			return recurrence.Diverged
		}
		return recurrence.Converged(constant + min(whole.MustValue(), betaMem.MustValue()+split.MustValue()))
	})
}

// responseTime is the largest response time among the jobs of task in its
// longest busy period.
func (r *run) responseTime(cpu int, task *prem.Task) recurrence.Result {
	l, ok := r.busyPeriod(cpu, task).Value()
	if !ok {
		return recurrence.Diverged
	}

	worst := 0
	jobs := recurrence.CeilDiv(l, task.T)
	for k := 1; k <= jobs; k++ {
		memStart, ok := r.memoryStart(cpu, task, k).Value()
		if !ok {
			return recurrence.Diverged
		}
		cmpStart, ok := r.computeStart(cpu, task, k, memStart).Value()
		if !ok {
			return recurrence.Diverged
		}
		if rk := cmpStart + task.C - (k-1)*task.T; rk > worst {
			worst = rk
		}
	}

	r.logger.WithFields(logrus.Fields{
		"cpu":         cpu,
		"prio":        task.Prio,
		"busy_period": l,
		"jobs":        jobs,
		"R":           worst,
	}).Debug("task analysed")
	return recurrence.Converged(worst)
}
