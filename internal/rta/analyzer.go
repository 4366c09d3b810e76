// Package rta computes worst-case response times of PREM tasks under
// partitioned fixed-priority scheduling with inter-processor memory
// interference.
package rta

//go:generate mockgen -destination "mock_estimator_test.go" -package $GOPACKAGE -write_package_comment=false prem-rta/internal/interference Estimator

import (
	"fmt"

	"prem-rta/internal/interference"
	"prem-rta/internal/logging"
	"prem-rta/internal/prem"

	"github.com/sirupsen/logrus"
)

// DefaultDivergenceFactor bounds every recurrence to this many deadlines.
const DefaultDivergenceFactor = 1000

// Analyzer runs the response-time analysis with one interference estimator.
// It holds no per-system state and can be shared between goroutines as long
// as each goroutine analyses its own system.
type Analyzer struct {
	estimator        interference.Estimator
	divergenceFactor int
	logger           *logrus.Logger
}

type Option func(*Analyzer)

// WithDivergenceFactor changes the cutoff after which a recurrence is
// declared divergent, expressed in multiples of the task deadline.
func WithDivergenceFactor(factor int) Option {
	return func(a *Analyzer) {
		if factor > 0 {
			a.divergenceFactor = factor
		}
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

func NewAnalyzer(estimator interference.Estimator, opts ...Option) *Analyzer {
	a := &Analyzer{
		estimator:        estimator,
		divergenceFactor: DefaultDivergenceFactor,
		logger:           logging.GetAnalysisLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analyzer) Estimator() interference.Estimator {
	return a.estimator
}

// Location identifies a task by processor index and position.
type Location struct {
	Processor int
	Task      int
}

func (l Location) String() string {
	return fmt.Sprintf("P%d/task%d", l.Processor, l.Task)
}

// Outcome is the result of analysing one system.
type Outcome struct {
	// ResponseTimes has one row per processor, in task order. It is nil
	// when the system is not analysable.
	ResponseTimes [][]int
	Analysable    bool
	// Diverged is the first task without a finite bound, if any.
	Diverged *Location
	// InterferenceCalls counts estimator evaluations.
	InterferenceCalls int
}

// Analyze computes R for every task, processor by processor in priority
// order, and stores it in the tasks. Priorities must be assigned. The first
// task without a finite bound stops the analysis and marks the system as
// diverged.
func (a *Analyzer) Analyze(sys *prem.System) Outcome {
	checkPriorities(sys)
	sys.ClearResponseTimes()

	run := newRun(a, sys)
	out := Outcome{Analysable: true}
	rows := make([][]int, len(sys.Processors))

	for cpu, p := range sys.Processors {
		rows[cpu] = make([]int, 0, len(p.Tasks))
		for i, task := range p.Tasks {
			r, ok := run.responseTime(cpu, task).Value()
			if !ok {
				loc := Location{Processor: cpu, Task: i}
				a.logger.WithFields(logrus.Fields{
					"estimator": a.estimator.Name(),
					"task":      loc.String(),
				}).Debug("response time diverged")
				sys.State = prem.Diverged
				out.Analysable = false
				out.Diverged = &loc
				out.InterferenceCalls = run.session.Calls()
				return out
			}
			task.R = r
			rows[cpu] = append(rows[cpu], r)
		}
	}

	sys.State = prem.Analysed
	out.ResponseTimes = rows
	out.InterferenceCalls = run.session.Calls()
	a.logger.WithFields(logrus.Fields{
		"estimator": a.estimator.Name(),
		"calls":     out.InterferenceCalls,
	}).Debug("system analysed")
	return out
}

func checkPriorities(sys *prem.System) {
	for cpu, p := range sys.Processors {
		for i, t := range p.Tasks {
			if t.Prio == prem.Unset {
				panic(fmt.Sprintf("rta: task %d of processor %d has no priority", i, cpu))
			}
		}
	}
}
