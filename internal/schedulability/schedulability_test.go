package schedulability

import (
	"testing"

	"prem-rta/internal/interference"
	"prem-rta/internal/prem"
	"prem-rta/internal/priority"
	"prem-rta/internal/rta"
)

func singleProcessor() *prem.System {
	p := prem.NewProcessor(
		prem.MustTask(2, 1, 24, 0),
		prem.MustTask(4, 6, 40, 0),
		prem.MustTask(14, 10, 50, 0),
	)
	return prem.NewSystem(0.855, p)
}

func TestUnanalysedSystemPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic on an unanalysed system")
		}
	}()
	System(singleProcessor())
}

func TestSingleProcessorVerdicts(t *testing.T) {
	sys := singleProcessor()
	priority.AssignSystem(sys, priority.RateMonotonic)
	rta.NewAnalyzer(interference.Classic{}).Analyze(sys)

	tasks := sys.Processors[0].Tasks
	// The first task is blocked by the non-preemptive job of the third.
	if Task(tasks[0]) {
		t.Fatalf("task 0 should miss its deadline (R=%d, D=%d)", tasks[0].R, tasks[0].D)
	}
	if !Task(tasks[1]) || !Task(tasks[2]) {
		t.Fatalf("tasks 1 and 2 should be schedulable: %s", sys)
	}
	if System(sys) {
		t.Fatalf("system should not be schedulable")
	}
	if got := PerProcessor(sys); len(got) != 1 || got[0] {
		t.Fatalf("PerProcessor = %v", got)
	}
}

func TestDivergedSystemIsNotSchedulable(t *testing.T) {
	p := prem.NewProcessor(prem.MustTask(5, 6, 10, 0))
	sys := prem.NewSystem(1.1, p)
	priority.AssignSystem(sys, priority.RateMonotonic)
	out := rta.NewAnalyzer(interference.Classic{}).Analyze(sys)

	if out.Analysable {
		t.Fatalf("overloaded processor should not be analysable")
	}
	if System(sys) {
		t.Fatalf("diverged system reported schedulable")
	}
	if got := PerProcessor(sys); got[0] {
		t.Fatalf("processor of a diverged task reported schedulable")
	}
}

func TestEmptyProcessorIsSchedulable(t *testing.T) {
	if !Processor(prem.NewProcessor()) {
		t.Fatalf("empty processor should be schedulable")
	}
}

func TestRatio(t *testing.T) {
	if Ratio(0, 0) != 0 || Ratio(1, 4) != 0.25 {
		t.Fatalf("unexpected ratios")
	}
}
