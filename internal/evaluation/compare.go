package evaluation

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"prem-rta/internal/generator"
	"prem-rta/internal/interference"
	"prem-rta/internal/logging"
	"prem-rta/internal/prem"
	"prem-rta/internal/priority"
	"prem-rta/internal/recurrence"
	"prem-rta/internal/rta"

	"github.com/sirupsen/logrus"
)

// CompareParams configures an estimator comparison. Every generated system
// is analysed with the classic estimator, then each estimator bounds the
// interference its processors cause to a processor below all of them, for
// Deltas random window lengths.
type CompareParams struct {
	Generator   generator.Params
	Systems     int
	Deltas      int
	DeltaRange  generator.Interval
	Seed        int64
	Estimators  []string
	UseCounters bool
}

// Sample is one interference evaluation.
type Sample struct {
	Estimator    string
	System       int
	Delta        int
	Items        int
	Value        int
	Diverged     bool
	Elapsed      time.Duration
	Instructions uint64
}

// EstimatorStats aggregates the samples of one estimator.
type EstimatorStats struct {
	Estimator    string
	Samples      int
	Diverged     int
	MeanValue    float64
	MeanElapsed  time.Duration
	Instructions uint64
	// Tightest counts the samples where no other estimator gave a smaller
	// bound.
	Tightest int
}

type Comparison struct {
	Samples  []Sample
	Stats    []EstimatorStats
	Skipped  int
	Counters bool
}

func (p CompareParams) Validate() error {
	if p.Systems <= 0 || p.Deltas <= 0 {
		return fmt.Errorf("systems and deltas must be positive")
	}
	if p.DeltaRange.Min <= 0 || p.DeltaRange.Max < p.DeltaRange.Min {
		return fmt.Errorf("invalid delta range %s", p.DeltaRange)
	}
	if len(p.Estimators) == 0 {
		return fmt.Errorf("no estimator to compare")
	}
	return p.Generator.Validate()
}

// pendingItems is the number of jobs the knapsack estimators consider for a
// window of length delta below the processors of sys.
func pendingItems(sys *prem.System, delta int) int {
	items := 0
	for _, p := range sys.Processors {
		for _, t := range p.Tasks {
			if t.M > 0 {
				items += recurrence.CeilDiv(delta+t.R+t.E(), t.T)
			}
		}
	}
	return items
}

// Compare runs the comparison. It stops early, returning what it has, when
// ctx is cancelled.
func Compare(ctx context.Context, p CompareParams) (*Comparison, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	estimators := make([]interference.Estimator, len(p.Estimators))
	for i, name := range p.Estimators {
		e, err := interference.Lookup(name)
		if err != nil {
			return nil, err
		}
		estimators[i] = e
	}

	logger := logging.GetLogger()
	gen := generator.New(p.Seed)
	rng := rand.New(rand.NewSource(p.Seed + 1))
	classic := rta.NewAnalyzer(interference.Classic{}, rta.WithLogger(logging.GetAnalysisLogger()))
	probe := prem.MustTask(0, 0, 1, 0)

	cmp := &Comparison{}
	var runErr error

	withCounter(p.UseCounters, func(counter *InstructionCounter) {
		cmp.Counters = counter.Available()

		for i := 0; i < p.Systems; i++ {
			if err := ctx.Err(); err != nil {
				runErr = err
				return
			}

			sys, err := gen.System(p.Generator)
			if err != nil {
				runErr = fmt.Errorf("failed to generate system %d: %w", i, err)
				return
			}
			priority.AssignSystem(sys, priority.RateMonotonic)
			if !classic.Analyze(sys).Analysable {
				cmp.Skipped++
				continue
			}
			below := len(sys.Processors)

			for d := 0; d < p.Deltas; d++ {
				delta := p.DeltaRange.Min + rng.Intn(p.DeltaRange.Max-p.DeltaRange.Min+1)
				items := pendingItems(sys, delta)

				for _, e := range estimators {
					session := interference.NewSession(sys)
					var res recurrence.Result
					elapsed, instr := counter.Measure(func() {
						res = session.Evaluate(e, below, delta, probe)
					})
					v, ok := res.Value()
					cmp.Samples = append(cmp.Samples, Sample{
						Estimator:    e.Name(),
						System:       i,
						Delta:        delta,
						Items:        items,
						Value:        v,
						Diverged:     !ok,
						Elapsed:      elapsed,
						Instructions: instr,
					})
				}
			}

			if (i+1)%progressInterval == 0 {
				logger.WithField("analysed", i+1).Info("Number of compared systems")
			}
		}
	})

	cmp.Stats = summarise(cmp.Samples, estimators)
	for _, s := range cmp.Stats {
		logger.WithFields(logrus.Fields{
			"estimator":    s.Estimator,
			"samples":      s.Samples,
			"mean_value":   fmt.Sprintf("%.2f", s.MeanValue),
			"mean_elapsed": s.MeanElapsed.String(),
			"tightest":     s.Tightest,
		}).Info("Estimator comparison")
	}
	return cmp, runErr
}

// summarise aggregates samples laid out point by point, one sample per
// estimator in estimator order.
func summarise(samples []Sample, estimators []interference.Estimator) []EstimatorStats {
	n := len(estimators)
	stats := make([]EstimatorStats, n)
	for i, e := range estimators {
		stats[i].Estimator = e.Name()
	}

	elapsed := make([]time.Duration, n)
	values := make([]int, n)
	for start := 0; start+n <= len(samples); start += n {
		point := samples[start : start+n]
		best, found := 0, false
		for _, s := range point {
			if !s.Diverged && (!found || s.Value < best) {
				best, found = s.Value, true
			}
		}
		for i, s := range point {
			st := &stats[i]
			st.Samples++
			st.Instructions += s.Instructions
			elapsed[i] += s.Elapsed
			if s.Diverged {
				st.Diverged++
				continue
			}
			values[i] += s.Value
			if s.Value == best {
				st.Tightest++
			}
		}
	}

	for i := range stats {
		st := &stats[i]
		if st.Samples > 0 {
			st.MeanElapsed = elapsed[i] / time.Duration(st.Samples)
		}
		if ok := st.Samples - st.Diverged; ok > 0 {
			st.MeanValue = float64(values[i]) / float64(ok)
		}
	}
	return stats
}
