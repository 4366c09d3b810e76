package interference

import (
	"prem-rta/internal/prem"
	"prem-rta/internal/recurrence"
)

// globalCutoff bounds the global period recurrence relative to the largest
// deadline of the system.
const globalCutoff = 1000

// Global is the synthetic task standing for a whole processor: its longest
// memory phase, its shortest compute phase, and the shortest period at
// which such a job can recur given the global tasks above it.
type Global struct {
	M int
	C int
	T int
}

type globalEntry struct {
	resolved bool
	diverged bool
	task     Global
}

// GlobalTask replaces every higher processor by its Global task.
type GlobalTask struct{}

func (GlobalTask) Name() string { return "global_task" }

func (GlobalTask) Interference(s *Session, cpuPrio, delta int, task *prem.Task) recurrence.Result {
	globals := make([]Global, 0, cpuPrio)
	util := 0.0
	for prio := 0; prio < cpuPrio; prio++ {
		g, ok := s.GlobalTask(prio)
		if !ok {
			return recurrence.Diverged
		}
		if g.M == 0 {
			continue
		}
		globals = append(globals, g)
		util += float64(g.M) / float64(g.T)
	}
	if util+task.MemoryUtilisation() > 1 {
		return recurrence.Diverged
	}

	total := 0
	for _, g := range globals {
		total += recurrence.CeilDiv(delta, g.T) * g.M
	}
	return recurrence.Converged(total)
}

// GlobalTask returns the global task of processor cpuPrio, computing and
// caching it (and those of the processors above) on first use. ok is false
// when its period recurrence has no finite solution.
func (s *Session) GlobalTask(cpuPrio int) (Global, bool) {
	entry := &s.globals[cpuPrio]
	if entry.resolved {
		return entry.task, !entry.diverged
	}
	entry.resolved = true

	p := s.System.Processors[cpuPrio]
	g := Global{M: p.MMax(), C: p.CMin()}

	var higher []Global
	util := 0.0
	for prio := 0; prio < cpuPrio; prio++ {
		h, ok := s.GlobalTask(prio)
		if !ok {
			entry.diverged = true
			return g, false
		}
		if h.M == 0 {
			continue
		}
		higher = append(higher, h)
		util += float64(h.M) / float64(h.T)
	}

	if g.M == 0 {
		// A processor without memory phases never interferes.
		g.T = g.C
		entry.task = g
		return g, true
	}
	if util >= 1 {
		entry.diverged = true
		return g, false
	}

	limit := globalCutoff * s.maxDeadline()
	tm := recurrence.Solve(g.M, limit, func(tm int) recurrence.Result {
		next := g.M
		for _, h := range higher {
			next += recurrence.CeilDiv(tm, h.T) * h.M
		}
		return recurrence.Converged(next)
	})
	v, ok := tm.Value()
	if !ok {
		entry.diverged = true
		return g, false
	}
	g.T = v + g.C
	entry.task = g
	return g, true
}

func (s *Session) maxDeadline() int {
	d := 1
	for _, p := range s.System.Processors {
		if pd := p.MaxDeadline(); pd > d {
			d = pd
		}
	}
	return d
}
