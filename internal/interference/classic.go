package interference

import (
	"prem-rta/internal/prem"
	"prem-rta/internal/recurrence"
)

// Classic counts every job of a higher-processor task that can start in
// the window, accounting for its release jitter R - e.
type Classic struct{}

func (Classic) Name() string { return "classic" }

func (Classic) Interference(s *Session, cpuPrio, delta int, _ *prem.Task) recurrence.Result {
	total := 0
	for _, p := range s.System.HigherProcessors(cpuPrio) {
		for _, h := range p.Tasks {
			mustAnalysed(h)
			jobs := recurrence.CeilDiv(delta+h.R-h.E(), h.T)
			if jobs > 0 {
				total += jobs * h.M
			}
		}
	}
	return recurrence.Converged(total)
}
