package prem

import (
	"fmt"
	"strings"
)

// State tracks whether a system went through the response-time analysis.
type State int

const (
	Unanalysed State = iota
	Analysed
	// Diverged means the analysis ran but some task has no finite bound.
	Diverged
)

func (s State) String() string {
	switch s {
	case Unanalysed:
		return "unanalysed"
	case Analysed:
		return "analysed"
	case Diverged:
		return "diverged"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// System is a set of processors. The index of a processor is its memory
// arbitration priority, 0 being the highest.
type System struct {
	Processors []*Processor

	// Utilisation is the per-processor target the system was generated
	// for. It is a tag only and is not recomputed from the tasks.
	Utilisation float64

	State State
}

func NewSystem(utilisation float64, processors ...*Processor) *System {
	return &System{Processors: processors, Utilisation: utilisation}
}

// HigherProcessors returns the processors with higher priority than index prio.
func (s *System) HigherProcessors(prio int) []*Processor {
	if prio <= 0 {
		return nil
	}
	if prio > len(s.Processors) {
		prio = len(s.Processors)
	}
	return s.Processors[:prio]
}

func (s *System) LowerProcessors(prio int) []*Processor {
	if prio+1 >= len(s.Processors) {
		return nil
	}
	return s.Processors[prio+1:]
}

func (s *System) ProcessorCount() int {
	return len(s.Processors)
}

// TaskCount is the number of tasks across all processors.
func (s *System) TaskCount() int {
	n := 0
	for _, p := range s.Processors {
		n += p.Len()
	}
	return n
}

// Reset clears priorities, response times and the analysis state so the
// system can be analysed again.
func (s *System) Reset() {
	for _, p := range s.Processors {
		p.Reset()
	}
	s.State = Unanalysed
}

// ClearResponseTimes drops R but keeps priorities.
func (s *System) ClearResponseTimes() {
	for _, p := range s.Processors {
		for _, t := range p.Tasks {
			t.R = Unset
		}
	}
	s.State = Unanalysed
}

// Clone returns a deep copy sharing no task with the receiver.
func (s *System) Clone() *System {
	c := &System{
		Processors:  make([]*Processor, len(s.Processors)),
		Utilisation: s.Utilisation,
		State:       s.State,
	}
	for i, p := range s.Processors {
		c.Processors[i] = p.Clone()
	}
	return c
}

func (s *System) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "system(U=%g, %s)", s.Utilisation, s.State)
	for i, p := range s.Processors {
		fmt.Fprintf(&b, "\n  P%d:", i)
		for _, t := range p.Tasks {
			b.WriteString(" ")
			b.WriteString(t.String())
		}
	}
	return b.String()
}
