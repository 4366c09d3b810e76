package database

import "fmt"

// RatioPoint is the schedulability ratio measured at one utilisation.
type RatioPoint struct {
	Utilisation float64
	Systems     int
	Schedulable int
	Ratio       float64
}

// RatioSeries is one curve of a schedulability plot.
type RatioSeries struct {
	Label  string
	Policy string
	Points []RatioPoint
}

// RunInfo is the campaign metadata shown in the plot header.
type RunInfo struct {
	RunID       string
	Name        string
	Description string
	Checksum    string
	Started     string
	Finished    string
	Systems     int64
	Hostname    string
	CPUModel    string
}

func shareLabel(policy string, min, max int64, multiple bool) string {
	if !multiple {
		return policy
	}
	return fmt.Sprintf("%s (mem %d-%d\\%%)", policy, min, max)
}
