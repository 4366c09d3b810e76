package interference

import (
	"sort"

	"prem-rta/internal/prem"
	"prem-rta/internal/recurrence"
)

// jobGroup is count identical pending jobs of one higher-processor task.
// As a knapsack item a job has value M and weight e.
type jobGroup struct {
	m, e, t int
	count   int
}

// pendingJobs lists, for every higher-processor task with a memory phase,
// the jobs that may overlap a window of length delta. Groups come sorted by
// M descending, then by period ascending.
func pendingJobs(s *Session, cpuPrio, delta int) []jobGroup {
	var groups []jobGroup
	for _, p := range s.System.HigherProcessors(cpuPrio) {
		for _, h := range p.Tasks {
			if h.M == 0 {
				continue
			}
			mustAnalysed(h)
			n := recurrence.CeilDiv(delta+h.R+h.E(), h.T)
			if n <= 0 {
				continue
			}
			groups = append(groups, jobGroup{m: h.M, e: h.E(), t: h.T, count: n})
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].m != groups[j].m {
			return groups[i].m > groups[j].m
		}
		return groups[i].t < groups[j].t
	})
	return groups
}

// Knapsack solves the interference as a 0/1 knapsack of capacity delta whose
// items are the pending memory phases. One job may be cut by the window
// edge, so for every distinct task the problem is solved once without one
// of its jobs, which is then allowed to fill the remaining space partially.
type Knapsack struct{}

func (Knapsack) Name() string { return "knapsack" }

func (Knapsack) Interference(s *Session, cpuPrio, delta int, _ *prem.Task) recurrence.Result {
	if delta == 0 {
		return recurrence.Converged(0)
	}
	return recurrence.Converged(solveKnapsack(pendingJobs(s, cpuPrio, delta), delta))
}

type item struct{ v, w int }

func solveKnapsack(groups []jobGroup, capacity int) int {
	var items []item
	var lastIndex []int
	for _, g := range groups {
		for i := 0; i < g.count; i++ {
			items = append(items, item{v: g.m, w: g.e})
		}
		lastIndex = append(lastIndex, len(items)-1)
	}

	best := 0
	for _, cut := range lastIndex {
		if v := solveWithCut(items, cut, capacity); v > best {
			best = v
		}
	}
	return best
}

func solveWithCut(all []item, cut, capacity int) int {
	cutValue := all[cut].v
	items := make([]item, 0, len(all)-1)
	items = append(items, all[:cut]...)
	items = append(items, all[cut+1:]...)

	if len(items) == 0 {
		return min(capacity, cutValue)
	}

	n := len(items)
	m := make([][]int, n+1)
	for i := range m {
		m[i] = make([]int, capacity+1)
	}
	for i, it := range items {
		for j := 1; j <= capacity; j++ {
			m[i+1][j] = m[i][j]
			if it.w <= j && m[i][j-it.w]+it.v > m[i+1][j] {
				m[i+1][j] = m[i][j-it.w] + it.v
			}
		}
	}

	best := 0
	for j := 1; j <= capacity; j++ {
		free := j
		for idx := n - 1; free > 0 && idx >= 0 && m[idx+1][free] != 0; idx-- {
			if m[idx+1][free] != m[idx][free] {
				free -= items[idx].w
			}
		}
		free += capacity - j
		if v := m[n][j] + min(free, cutValue); v > best {
			best = v
		}
	}
	return best
}
