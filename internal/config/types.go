package config

import (
	"prem-rta/internal/generator"
)

type CampaignConfig struct {
	Evaluation EvaluationInfo          `yaml:"evaluation"`
	Policies   map[string]PolicyConfig `yaml:",inline"`
}

type EvaluationInfo struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	LogLevel    string `yaml:"log_level"`
	Seed        int64  `yaml:"seed"`
	Workers     int    `yaml:"workers"`
	// Systems is the number of systems per utilisation and memory share.
	Systems      int                  `yaml:"systems"`
	OutputDir    string               `yaml:"output_dir"`
	Priority     string               `yaml:"priority"`
	Generator    GeneratorConfig      `yaml:"generator"`
	Utilisations []float64            `yaml:"utilisations"`
	Sweep        *SweepConfig         `yaml:"utilisation_sweep,omitempty"`
	MemoryShares []generator.Interval `yaml:"memory_shares"`
	Data         DataConfig           `yaml:"data"`
}

type GeneratorConfig struct {
	Processors   int                `yaml:"processors"`
	Tasks        int                `yaml:"tasks"`
	Periods      generator.Interval `yaml:"periods"`
	Distribution string             `yaml:"distribution"`
	Granularity  int                `yaml:"granularity"`
	Scale        int                `yaml:"scale"`
	// MinCost of zero derives the minimum from the memory share interval.
	MinCost int `yaml:"min_cost"`
}

// SweepConfig expands to From, From+Step, ... up to To.
type SweepConfig struct {
	From float64 `yaml:"from"`
	To   float64 `yaml:"to"`
	Step float64 `yaml:"step"`
}

type DataConfig struct {
	DB       DatabaseConfig `yaml:"db"`
	SQLite   string         `yaml:"sqlite"`
	SpoolDir string         `yaml:"spool_dir"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Org      string `yaml:"org"`
}

func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// PolicyConfig is one way of analysing every generated system.
type PolicyConfig struct {
	KeyName    string        `yaml:"-"`
	Index      int           `yaml:"index"`
	Estimators []string      `yaml:"estimators"`
	Budget     bool          `yaml:"budget"`
	Rescale    RescaleConfig `yaml:"rescale"`
}

// RescaleConfig shrinks systems before analysis to bound the knapsack
// tables: Below is used under Threshold utilisation, Above otherwise.
type RescaleConfig struct {
	Threshold float64 `yaml:"threshold"`
	Below     int     `yaml:"below"`
	Above     int     `yaml:"above"`
}

// Divisor returns the rescale divisor for a utilisation, 1 when disabled.
func (r RescaleConfig) Divisor(utilisation float64) int {
	d := r.Above
	if utilisation < r.Threshold {
		d = r.Below
	}
	if d < 1 {
		return 1
	}
	return d
}

func (c *CampaignConfig) GetPoliciesSorted() []PolicyConfig {
	var policies []PolicyConfig
	for _, policy := range c.Policies {
		policies = append(policies, policy)
	}

	for i := 0; i < len(policies)-1; i++ {
		for j := i + 1; j < len(policies); j++ {
			if policies[i].Index > policies[j].Index ||
				(policies[i].Index == policies[j].Index && policies[i].KeyName > policies[j].KeyName) {
				policies[i], policies[j] = policies[j], policies[i]
			}
		}
	}

	return policies
}

// GeneratorParams builds generator parameters for one point of the campaign.
func (c *CampaignConfig) GeneratorParams(utilisation float64, share generator.Interval) generator.Params {
	g := c.Evaluation.Generator
	minCost := g.MinCost
	if minCost == 0 {
		minCost = generator.MinCostFor(share)
	}
	return generator.Params{
		Processors:   g.Processors,
		Tasks:        g.Tasks,
		Periods:      g.Periods,
		Distribution: g.Distribution,
		Granularity:  g.Granularity,
		Utilisation:  utilisation,
		MemoryShare:  share,
		Scale:        g.Scale,
		MinCost:      minCost,
	}
}
