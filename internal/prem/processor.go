package prem

import "math"

// Processor is one core of the platform with its statically partitioned tasks.
type Processor struct {
	Tasks []*Task

	mMax int
	cMin int
	cMax int
}

func NewProcessor(tasks ...*Task) *Processor {
	p := &Processor{cMin: math.MaxInt}
	for _, t := range tasks {
		p.Add(t)
	}
	return p
}

// Add appends a task and updates the phase extrema.
func (p *Processor) Add(t *Task) {
	if len(p.Tasks) == 0 {
		p.cMin = math.MaxInt
	}
	p.Tasks = append(p.Tasks, t)
	if t.M > p.mMax {
		p.mMax = t.M
	}
	if t.C < p.cMin {
		p.cMin = t.C
	}
	if t.C > p.cMax {
		p.cMax = t.C
	}
}

// MMax is the longest memory phase on the processor, 0 when empty.
func (p *Processor) MMax() int {
	return p.mMax
}

// CMin is the shortest compute phase on the processor, 0 when empty.
func (p *Processor) CMin() int {
	if len(p.Tasks) == 0 {
		return 0
	}
	return p.cMin
}

func (p *Processor) CMax() int {
	return p.cMax
}

func (p *Processor) Len() int {
	return len(p.Tasks)
}

// HigherTasks returns the tasks with strictly higher priority than prio
// (numerically smaller). Unassigned tasks are never included.
func (p *Processor) HigherTasks(prio int) []*Task {
	var out []*Task
	for _, t := range p.Tasks {
		if t.Prio != Unset && t.Prio < prio {
			out = append(out, t)
		}
	}
	return out
}

// HigherOrEqualTasks includes the tasks at prio itself.
func (p *Processor) HigherOrEqualTasks(prio int) []*Task {
	var out []*Task
	for _, t := range p.Tasks {
		if t.Prio != Unset && t.Prio <= prio {
			out = append(out, t)
		}
	}
	return out
}

func (p *Processor) LowerTasks(prio int) []*Task {
	var out []*Task
	for _, t := range p.Tasks {
		if t.Prio > prio {
			out = append(out, t)
		}
	}
	return out
}

// LowestPrio is the numerically largest assigned priority.
func (p *Processor) LowestPrio() int {
	lowest := Unset
	for _, t := range p.Tasks {
		if t.Prio > lowest {
			lowest = t.Prio
		}
	}
	return lowest
}

func (p *Processor) IsLowestPrio(prio int) bool {
	return prio >= p.LowestPrio()
}

func (p *Processor) Utilisation() float64 {
	u := 0.0
	for _, t := range p.Tasks {
		u += t.Utilisation()
	}
	return u
}

func (p *Processor) MemoryUtilisation() float64 {
	u := 0.0
	for _, t := range p.Tasks {
		u += t.MemoryUtilisation()
	}
	return u
}

// MaxDeadline is used to derive divergence cutoffs for processor-wide
// recurrences.
func (p *Processor) MaxDeadline() int {
	d := 0
	for _, t := range p.Tasks {
		if t.D > d {
			d = t.D
		}
	}
	return d
}

func (p *Processor) Reset() {
	for _, t := range p.Tasks {
		t.Reset()
	}
}

func (p *Processor) Clone() *Processor {
	c := &Processor{
		Tasks: make([]*Task, len(p.Tasks)),
		mMax:  p.mMax,
		cMin:  p.cMin,
		cMax:  p.cMax,
	}
	for i, t := range p.Tasks {
		c.Tasks[i] = t.Clone()
	}
	return c
}
