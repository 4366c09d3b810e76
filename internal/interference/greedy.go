package interference

import (
	"sort"

	"prem-rta/internal/prem"
	"prem-rta/internal/recurrence"
)

// Greedy bounds the knapsack optimum from above instead of solving it: jobs
// are taken by decreasing value density until one does not fit, and the
// Dantzig or Martello-Toth bound covers the rest. The largest memory phase
// is added for the job cut by the window edge. The result never falls below
// the Knapsack estimate on the same window.
type Greedy struct{}

func (Greedy) Name() string { return "greedy_knapsack" }

// densityClass gathers the job groups sharing the density m/e, kept as the
// reduced fraction num/den.
type densityClass struct {
	num, den int
	groups   []jobGroup
}

func (c *densityClass) higherThan(o *densityClass) bool {
	return c.num*o.den > o.num*c.den
}

func (Greedy) Interference(s *Session, cpuPrio, delta int, _ *prem.Task) recurrence.Result {
	if delta == 0 {
		return recurrence.Converged(0)
	}
	groups := pendingJobs(s, cpuPrio, delta)
	if len(groups) == 0 {
		return recurrence.Converged(0)
	}

	maxM := 0
	var classes []*densityClass
	byKey := make(map[[2]int]*densityClass)
	for _, g := range groups {
		if g.m > maxM {
			maxM = g.m
		}
		d := gcd(g.m, g.e)
		key := [2]int{g.m / d, g.e / d}
		c, ok := byKey[key]
		if !ok {
			c = &densityClass{num: key[0], den: key[1]}
			byKey[key] = c
			classes = append(classes, c)
		}
		c.groups = append(c.groups, g)
	}
	sort.SliceStable(classes, func(i, j int) bool {
		return classes[i].higherThan(classes[j])
	})

	bound := greedyBound(classes, delta)
	return recurrence.Converged(min(delta, bound+maxM))
}

// greedyBound returns an upper bound of the 0/1 knapsack optimum over the
// jobs of classes, sorted by decreasing density.
func greedyBound(classes []*densityClass, capacity int) int {
	m1, w := 0, 0
	var before *densityClass

	for ci, c := range classes {
		for gi, g := range c.groups {
			fit := g.count
			if room := (capacity - w) / g.e; room < fit {
				fit = room
			}
			m1 += fit * g.m
			w += fit * g.e
			if fit > 0 {
				before = c
			}
			if fit == g.count {
				continue
			}

			// g is the critical job.
			rem := capacity - w
			var after *densityClass
			switch {
			case g.count-fit > 1 || gi < len(c.groups)-1:
				after = c
			case ci < len(classes)-1:
				after = classes[ci+1]
			}

			dantzig := rem * g.m / g.e
			if before == nil || after == nil {
				return m1 + dantzig
			}
			u0 := rem * after.num / after.den
			u1 := g.m - recurrence.CeilDiv((g.e-rem)*before.num, before.den)
			return m1 + max(u0, u1)
		}
	}
	return m1
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
