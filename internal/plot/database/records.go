package database

import (
	"fmt"
	"sort"

	"prem-rta/internal/prem"
	"prem-rta/internal/record"
	"prem-rta/internal/schedulability"
)

// SeriesFromRecords computes the schedulability ratio per utilisation from
// a record log. Records that were never analysed are skipped.
func SeriesFromRecords(label, path string) (RatioSeries, error) {
	systems, err := record.ReadFile(path)
	if err != nil {
		return RatioSeries{}, fmt.Errorf("failed to read records: %w", err)
	}

	points := make(map[float64]*RatioPoint)
	for _, sys := range systems {
		if sys.State == prem.Unanalysed {
			continue
		}
		p, ok := points[sys.Utilisation]
		if !ok {
			p = &RatioPoint{Utilisation: sys.Utilisation}
			points[sys.Utilisation] = p
		}
		p.Systems++
		if schedulability.System(sys) {
			p.Schedulable++
		}
	}

	series := RatioSeries{Label: label, Policy: label}
	for _, p := range points {
		p.Ratio = schedulability.Ratio(p.Schedulable, p.Systems)
		series.Points = append(series.Points, *p)
	}
	sort.Slice(series.Points, func(i, j int) bool {
		return series.Points[i].Utilisation < series.Points[j].Utilisation
	})
	return series, nil
}
