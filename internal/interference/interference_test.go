package interference

import (
	"math/rand"
	"testing"

	"prem-rta/internal/prem"
	"prem-rta/internal/recurrence"
)

// analysedTask builds a task that looks as if a previous analysis gave it
// response time r.
func analysedTask(m, c, t, prio, r int) *prem.Task {
	task := prem.MustTask(m, c, t, 0)
	task.Prio = prio
	task.R = r
	return task
}

func twoProcessorSystem() *prem.System {
	p0 := prem.NewProcessor(analysedTask(4, 5, 20, 1, 18), analysedTask(4, 5, 20, 2, 18))
	low := prem.MustTask(4, 5, 16, 0)
	low.Prio = 1
	p1 := prem.NewProcessor(low)
	return prem.NewSystem(0.5, p0, p1)
}

func mustConverge(t *testing.T, r recurrence.Result) int {
	t.Helper()
	v, ok := r.Value()
	if !ok {
		t.Fatalf("unexpected divergence")
	}
	return v
}

func TestClassic(t *testing.T) {
	sys := twoProcessorSystem()
	s := NewSession(sys)
	task := sys.Processors[1].Tasks[0]

	// ceil((16 + 18 - 9) / 20) = 2 jobs of M=4 per task.
	if got := mustConverge(t, Classic{}.Interference(s, 1, 16, task)); got != 16 {
		t.Fatalf("classic interference = %d, want 16", got)
	}
	if got := mustConverge(t, Classic{}.Interference(s, 0, 16, sys.Processors[0].Tasks[0])); got != 0 {
		t.Fatalf("highest processor suffers no interference, got %d", got)
	}
}

func TestClassicPanicsOnUnanalysedHigherTask(t *testing.T) {
	sys := twoProcessorSystem()
	sys.Processors[0].Tasks[1].R = prem.Unset
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for an unanalysed higher-priority task")
		}
	}()
	Classic{}.Interference(NewSession(sys), 1, 10, sys.Processors[1].Tasks[0])
}

func TestGlobalTask(t *testing.T) {
	sys := twoProcessorSystem()
	s := NewSession(sys)

	g, ok := s.GlobalTask(0)
	if !ok || g != (Global{M: 4, C: 5, T: 9}) {
		t.Fatalf("global task of P0 = %+v (ok=%v)", g, ok)
	}
	// Tm = 4 + ceil(Tm/9)*4 converges to 8.
	g, ok = s.GlobalTask(1)
	if !ok || g.T != 13 {
		t.Fatalf("global task of P1 = %+v (ok=%v)", g, ok)
	}

	got := mustConverge(t, GlobalTask{}.Interference(s, 1, 16, sys.Processors[1].Tasks[0]))
	if got != 8 {
		t.Fatalf("global task interference = %d, want 8", got)
	}
}

func TestGlobalTaskDivergesOnMemoryOverload(t *testing.T) {
	p0 := prem.NewProcessor(analysedTask(9, 0, 10, 1, 9))
	task := prem.MustTask(1, 1, 10, 0)
	task.Prio = 1
	sys := prem.NewSystem(0.9, p0, prem.NewProcessor(task))

	if res := (GlobalTask{}).Interference(NewSession(sys), 1, 10, task); !res.IsDiverged() {
		t.Fatalf("expected divergence, got %v", res)
	}
}

func TestKnapsackZeroWindow(t *testing.T) {
	sys := twoProcessorSystem()
	s := NewSession(sys)
	task := sys.Processors[1].Tasks[0]
	if got := mustConverge(t, Knapsack{}.Interference(s, 1, 0, task)); got != 0 {
		t.Fatalf("knapsack at delta 0 = %d", got)
	}
	if got := mustConverge(t, Greedy{}.Interference(s, 1, 0, task)); got != 0 {
		t.Fatalf("greedy at delta 0 = %d", got)
	}
}

func TestKnapsackSingleJob(t *testing.T) {
	groups := []jobGroup{{m: 5, e: 7, t: 10, count: 1}}
	if got := solveKnapsack(groups, 3); got != 3 {
		t.Fatalf("single job in capacity 3 = %d, want 3", got)
	}
	if got := solveKnapsack(groups, 20); got != 5 {
		t.Fatalf("single job in capacity 20 = %d, want 5", got)
	}
}

func TestKnapsackSmallInstance(t *testing.T) {
	// Capacity 10: take one (4,5) job whole, cut the other into the
	// remaining 5 units but at most its value 4.
	groups := []jobGroup{{m: 4, e: 5, t: 20, count: 2}}
	if got := solveKnapsack(groups, 10); got != 8 {
		t.Fatalf("knapsack = %d, want 8", got)
	}
	// Capacity 6: one whole job (4) plus min(1, 4) of the cut one.
	if got := solveKnapsack(groups, 6); got != 5 {
		t.Fatalf("knapsack = %d, want 5", got)
	}
}

// bruteForce enumerates every multiset of jobs with one job of some group
// held out as the cut job.
func bruteForce(groups []jobGroup, capacity int) int {
	best := 0
	for cut := range groups {
		counts := make([]int, len(groups))
		for i, g := range groups {
			counts[i] = g.count
		}
		counts[cut]--

		var walk func(i, w, v int)
		walk = func(i, w, v int) {
			if w > capacity {
				return
			}
			if i == len(groups) {
				if total := v + min(capacity-w, groups[cut].m); total > best {
					best = total
				}
				return
			}
			for k := 0; k <= counts[i]; k++ {
				walk(i+1, w+k*groups[i].e, v+k*groups[i].m)
			}
		}
		walk(0, 0, 0)
	}
	return best
}

func randomGroups(rng *rand.Rand) []jobGroup {
	n := 1 + rng.Intn(3)
	groups := make([]jobGroup, n)
	for i := range groups {
		m := 1 + rng.Intn(6)
		groups[i] = jobGroup{m: m, e: m + rng.Intn(6), t: 10 + i, count: 1 + rng.Intn(3)}
	}
	return groups
}

func TestKnapsackMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		groups := randomGroups(rng)
		capacity := 1 + rng.Intn(25)
		if got, want := solveKnapsack(groups, capacity), bruteForce(groups, capacity); got != want {
			t.Fatalf("iteration %d: knapsack %d, brute force %d for %+v at capacity %d", iter, got, want, groups, capacity)
		}
	}
}

func randomAnalysedSystem(rng *rand.Rand) *prem.System {
	var higher []*prem.Processor
	processors := 1 + rng.Intn(2)
	for p := 0; p < processors; p++ {
		proc := prem.NewProcessor()
		tasks := 1 + rng.Intn(3)
		for i := 0; i < tasks; i++ {
			period := 12 + rng.Intn(40)
			m := rng.Intn(6)
			c := 1 + rng.Intn(6)
			r := m + c + rng.Intn(period-m-c+1)
			proc.Add(analysedTask(m, c, period, i+1, r))
		}
		higher = append(higher, proc)
	}
	low := prem.MustTask(2, 3, 50, 0)
	low.Prio = 1
	return prem.NewSystem(0.5, append(higher, prem.NewProcessor(low))...)
}

func TestGreedyBoundsKnapsack(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for iter := 0; iter < 100; iter++ {
		sys := randomAnalysedSystem(rng)
		cpu := len(sys.Processors) - 1
		task := sys.Processors[cpu].Tasks[0]
		s := NewSession(sys)
		for delta := 0; delta <= 60; delta += 3 {
			exact := mustConverge(t, Knapsack{}.Interference(s, cpu, delta, task))
			greedy := mustConverge(t, Greedy{}.Interference(s, cpu, delta, task))
			if greedy < exact {
				t.Fatalf("iteration %d delta %d: greedy %d below exact %d\n%s", iter, delta, greedy, exact, sys)
			}
			if greedy > delta {
				t.Fatalf("greedy %d exceeds the window %d", greedy, delta)
			}
		}
	}
}

func TestKnapsackMonotoneInWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for iter := 0; iter < 50; iter++ {
		sys := randomAnalysedSystem(rng)
		cpu := len(sys.Processors) - 1
		task := sys.Processors[cpu].Tasks[0]
		s := NewSession(sys)
		prev := 0
		for delta := 0; delta <= 50; delta++ {
			got := mustConverge(t, Knapsack{}.Interference(s, cpu, delta, task))
			if got < prev {
				t.Fatalf("iteration %d: knapsack decreased from %d to %d at delta %d", iter, prev, got, delta)
			}
			prev = got
		}
	}
}

type fixedEstimator struct {
	name string
	res  recurrence.Result
}

func (f fixedEstimator) Name() string { return f.name }

func (f fixedEstimator) Interference(*Session, int, int, *prem.Task) recurrence.Result {
	return f.res
}

func TestComposite(t *testing.T) {
	sys := twoProcessorSystem()
	s := NewSession(sys)
	task := sys.Processors[1].Tasks[0]

	c := NewComposite(
		fixedEstimator{"a", recurrence.Converged(12)},
		fixedEstimator{"b", recurrence.Diverged},
		fixedEstimator{"c", recurrence.Converged(7)},
	)
	if got := mustConverge(t, c.Interference(s, 1, 5, task)); got != 7 {
		t.Fatalf("composite = %d, want 7", got)
	}
	if c.Name() != "a+b+c" {
		t.Fatalf("composite name = %q", c.Name())
	}

	allDiverged := NewComposite(fixedEstimator{"a", recurrence.Diverged}, fixedEstimator{"b", recurrence.Diverged})
	if res := allDiverged.Interference(s, 1, 5, task); !res.IsDiverged() {
		t.Fatalf("composite of diverged children = %v", res)
	}
}

func TestLookup(t *testing.T) {
	for _, name := range Names {
		e, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		if e.Name() != name {
			t.Fatalf("Lookup(%q).Name() = %q", name, e.Name())
		}
	}
	e, err := LookupAll([]string{"knapsack", "greedy_knapsack"})
	if err != nil {
		t.Fatalf("LookupAll: %v", err)
	}
	if _, ok := e.(*Composite); !ok {
		t.Fatalf("expected a composite, got %T", e)
	}
	if _, err := Lookup("magic"); err == nil {
		t.Fatalf("expected an error for an unknown estimator")
	}
}

func TestStall(t *testing.T) {
	cases := []struct {
		name                           string
		cpus, m, c, budget, period, want int
	}{
		{"single processor", 1, 10, 10, 2, 10, 40},
		{"single processor, remainder", 1, 5, 3, 2, 10, 24},
		{"no demand", 4, 0, 0, 2, 10, 0},
		{"low share, multiple of budget", 4, 4, 3, 2, 10, 22},
		{"low share, remainder", 4, 5, 3, 2, 10, 27},
		{"memory light", 2, 3, 7, 5, 10, 8},
		{"memory heavy, partial", 2, 3, 4, 8, 10, 4},
		{"memory heavy, full periods", 2, 5, 5, 8, 10, 6},
	}
	for _, c := range cases {
		got, ok := Stall(c.cpus, c.m, c.c, c.budget, c.period)
		if !ok || got != c.want {
			t.Fatalf("%s: Stall = %d (ok=%v), want %d", c.name, got, ok, c.want)
		}
	}
	if _, ok := Stall(2, 3, 3, 0, 10); ok {
		t.Fatalf("zero budget must not yield a bound")
	}
	if _, ok := Stall(1, 3, 3, 10, 10); ok {
		t.Fatalf("an unthrottled single processor must not yield a bound")
	}
}

func TestDefaultBudget(t *testing.T) {
	sys := twoProcessorSystem()
	b := DefaultBudget(sys)
	if b.Period != 5 || b.Budgets[0] != 4 || b.Budgets[1] != 4 {
		t.Fatalf("default budget = %+v", b)
	}
}
