// Package interference bounds the memory interference a processor suffers
// from the memory phases of higher-priority processors.
package interference

import (
	"fmt"
	"strings"

	"prem-rta/internal/logging"
	"prem-rta/internal/prem"
	"prem-rta/internal/recurrence"

	"github.com/sirupsen/logrus"
)

// Estimator bounds the memory interference suffered by task, running on
// processor cpuPrio, within a window of length delta. Processors of higher
// priority must already be analysed when the estimator reads their R.
type Estimator interface {
	Name() string
	Interference(s *Session, cpuPrio, delta int, task *prem.Task) recurrence.Result
}

// Session carries the per-analysis caches of the estimators. A session must
// not outlive the analysis of one system.
type Session struct {
	System *prem.System

	globals []globalEntry
	calls   int
}

func NewSession(sys *prem.System) *Session {
	return &Session{
		System:  sys,
		globals: make([]globalEntry, len(sys.Processors)),
	}
}

// Calls is the number of interference evaluations made through the session.
func (s *Session) Calls() int {
	return s.calls
}

// Evaluate runs e and counts the call.
func (s *Session) Evaluate(e Estimator, cpuPrio, delta int, task *prem.Task) recurrence.Result {
	s.calls++
	res := e.Interference(s, cpuPrio, delta, task)
	logging.GetAnalysisLogger().WithFields(logrus.Fields{
		"estimator": e.Name(),
		"cpu":       cpuPrio,
		"delta":     delta,
		"result":    res.String(),
	}).Trace("interference evaluated")
	return res
}

// Names lists the estimators Lookup understands.
var Names = []string{"classic", "global_task", "knapsack", "greedy_knapsack"}

// Lookup builds an estimator from its configuration name. Several names
// separated by "+" yield a Composite.
func Lookup(name string) (Estimator, error) {
	parts := strings.Split(name, "+")
	if len(parts) > 1 {
		children := make([]Estimator, 0, len(parts))
		for _, p := range parts {
			e, err := Lookup(p)
			if err != nil {
				return nil, err
			}
			children = append(children, e)
		}
		return NewComposite(children...), nil
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "classic":
		return Classic{}, nil
	case "global_task", "global":
		return GlobalTask{}, nil
	case "knapsack", "exact_knapsack":
		return Knapsack{}, nil
	case "greedy_knapsack", "greedy":
		return Greedy{}, nil
	default:
		return nil, fmt.Errorf("unknown interference estimator %q", name)
	}
}

// LookupAll resolves a list of names into one estimator, a Composite when
// more than one name is given.
func LookupAll(names []string) (Estimator, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no interference estimator given")
	}
	if len(names) == 1 {
		return Lookup(names[0])
	}
	return Lookup(strings.Join(names, "+"))
}

func mustAnalysed(t *prem.Task) {
	if t.R == prem.Unset {
		panic(fmt.Sprintf("interference: higher-priority task %s has no response time", t))
	}
}
