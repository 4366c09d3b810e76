// Package generator produces random PREM systems for schedulability
// experiments.
package generator

import (
	"fmt"
	"math"
	"math/rand"

	"prem-rta/internal/prem"
)

const maxAttempts = 1000

// Interval is an inclusive integer range.
type Interval struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

func (i Interval) String() string {
	return fmt.Sprintf("[%d;%d]", i.Min, i.Max)
}

// Distribution of task periods.
const (
	LogUniform = "logunif"
	Uniform    = "unif"
)

// Params describes the systems to generate. Every processor gets the same
// number of tasks and the same target utilisation.
type Params struct {
	Processors   int
	Tasks        int
	Periods      Interval
	Distribution string
	// Granularity is the step periods are floored to. Zero means 1.
	Granularity int
	Utilisation float64
	// MemoryShare is the percentage range of each job spent in its memory
	// phase.
	MemoryShare Interval
	// Scale multiplies periods and costs after generation. Zero means 1.
	Scale int
	// MinCost regenerates task sets whose smallest job is shorter.
	MinCost int
}

func (p Params) Validate() error {
	switch {
	case p.Processors <= 0:
		return fmt.Errorf("processor count must be positive")
	case p.Tasks <= 0:
		return fmt.Errorf("task count must be positive")
	case p.Periods.Min <= 0 || p.Periods.Max < p.Periods.Min:
		return fmt.Errorf("invalid period interval %s", p.Periods)
	case p.Distribution != LogUniform && p.Distribution != Uniform:
		return fmt.Errorf("unknown period distribution %q", p.Distribution)
	case p.Utilisation <= 0 || p.Utilisation > 1:
		return fmt.Errorf("utilisation must be in (0, 1], got %g", p.Utilisation)
	case p.MemoryShare.Min < 0 || p.MemoryShare.Max > 100 || p.MemoryShare.Max < p.MemoryShare.Min:
		return fmt.Errorf("invalid memory share interval %s", p.MemoryShare)
	}
	return nil
}

// MinCostFor is the smallest job cost that still leaves a non-empty compute
// phase at the highest memory share, in units of 1/100.
func MinCostFor(share Interval) int {
	if share.Max >= 100 {
		return 100
	}
	return int(math.Floor(100 / (1 - float64(share.Max)/100)))
}

// Generator draws systems from a seeded source. It is not safe for
// concurrent use.
type Generator struct {
	rng *rand.Rand
}

func New(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// System generates one system of p.Processors independent task sets.
func (g *Generator) System(p Params) (*prem.System, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	sys := prem.NewSystem(p.Utilisation)
	for i := 0; i < p.Processors; i++ {
		proc, err := g.processor(p)
		if err != nil {
			return nil, fmt.Errorf("processor %d: %w", i, err)
		}
		sys.Processors = append(sys.Processors, proc)
	}
	return sys, nil
}

type job struct {
	cost, period int
}

func (g *Generator) processor(p Params) (*prem.Processor, error) {
	var jobs []job
	for attempt := 0; ; attempt++ {
		if attempt == maxAttempts {
			return nil, fmt.Errorf("no task set with minimum cost %d after %d attempts", p.MinCost, maxAttempts)
		}
		jobs = g.taskSet(p)
		if acceptable(jobs, p.MinCost) {
			break
		}
	}

	proc := prem.NewProcessor()
	for _, j := range jobs {
		share := p.MemoryShare.Min + g.rng.Intn(p.MemoryShare.Max-p.MemoryShare.Min+1)
		m := j.cost * share / 100
		task, err := prem.NewTask(m, j.cost-m, j.period, 0)
		if err != nil {
			return nil, err
		}
		proc.Add(task)
	}
	return proc, nil
}

func acceptable(jobs []job, minCost int) bool {
	if minCost < 1 {
		minCost = 1
	}
	for _, j := range jobs {
		if j.cost < minCost || j.period <= 0 || j.cost > j.period {
			return false
		}
	}
	return true
}

func (g *Generator) taskSet(p Params) []job {
	gran := p.Granularity
	if gran <= 0 {
		gran = 1
	}
	scale := p.Scale
	if scale <= 0 {
		scale = 1
	}

	utils := g.uunifast(p.Tasks, p.Utilisation)
	jobs := make([]job, p.Tasks)
	for i, u := range utils {
		period := g.period(p.Periods, p.Distribution, gran)
		jobs[i] = job{
			cost:   int(math.Ceil(float64(scale) * u * period)),
			period: int(math.Floor(float64(scale) * period)),
		}
	}
	return jobs
}

// uunifast splits total into n utilisations drawn uniformly from the
// simplex of vectors summing to total.
func (g *Generator) uunifast(n int, total float64) []float64 {
	out := make([]float64, n)
	sum := total
	for i := 0; i < n-1; i++ {
		next := sum * math.Pow(g.rng.Float64(), 1/float64(n-i-1))
		out[i] = sum - next
		sum = next
	}
	out[n-1] = sum
	return out
}

func (g *Generator) period(iv Interval, dist string, gran int) float64 {
	lo, hi := float64(iv.Min), float64(iv.Max+gran)
	var v float64
	if dist == LogUniform {
		v = math.Exp(math.Log(lo) + g.rng.Float64()*(math.Log(hi)-math.Log(lo)))
	} else {
		v = lo + g.rng.Float64()*(hi-lo)
	}
	v = math.Floor(v/float64(gran)) * float64(gran)
	// Floating point may land on the open upper bound.
	return math.Min(v, float64(iv.Max))
}

// Rescale divides every timing parameter of sys by divisor, keeping periods
// and deadlines positive. Priorities are kept, response times cleared.
func Rescale(sys *prem.System, divisor int) {
	if divisor <= 1 {
		return
	}
	for i, p := range sys.Processors {
		tasks := p.Tasks
		for _, t := range tasks {
			t.M /= divisor
			t.C /= divisor
			t.T = max(1, t.T/divisor)
			t.D = max(1, t.D/divisor)
			t.R = prem.Unset
		}
		sys.Processors[i] = prem.NewProcessor(tasks...)
	}
	sys.State = prem.Unanalysed
}
