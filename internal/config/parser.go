package config

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"

	"prem-rta/internal/generator"
	"prem-rta/internal/interference"
	"prem-rta/internal/logging"
	"prem-rta/internal/priority"

	"gopkg.in/yaml.v3"
)

func LoadConfig(filepath string) (*CampaignConfig, error) {
	config, _, err := LoadConfigWithContent(filepath)
	return config, err
}

func LoadConfigWithContent(filepath string) (*CampaignConfig, string, error) {
	logger := logging.GetLogger()

	data, err := os.ReadFile(filepath)
	if err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("Failed to read config file")
		return nil, "", err
	}

	originalContent := string(data)
	config, err := ParseConfig(originalContent)
	if err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("Failed to parse config file")
		return nil, "", err
	}
	return config, originalContent, nil
}

// ParseConfig expands ${VAR} references, decodes the YAML, applies defaults
// and validates the result.
func ParseConfig(content string) (*CampaignConfig, error) {
	expanded := expandEnvVars(content)

	var config CampaignConfig
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, err
	}

	for keyName, policy := range config.Policies {
		policy.KeyName = keyName
		config.Policies[keyName] = policy
	}

	applyDefaults(&config)

	if config.Evaluation.Sweep != nil && len(config.Evaluation.Utilisations) == 0 {
		utils, err := config.Evaluation.Sweep.Expand()
		if err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		config.Evaluation.Utilisations = utils
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		envVar := strings.Trim(match, "${}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})
}

func applyDefaults(config *CampaignConfig) {
	e := &config.Evaluation
	if e.LogLevel == "" {
		e.LogLevel = "info"
	}
	if e.Workers <= 0 {
		e.Workers = 1
	}
	if e.OutputDir == "" {
		e.OutputDir = "results"
	}
	if e.Priority == "" {
		e.Priority = "rate_monotonic"
	}
	if e.Generator.Distribution == "" {
		e.Generator.Distribution = generator.LogUniform
	}
	if e.Generator.Granularity == 0 {
		e.Generator.Granularity = 1
	}
	if e.Generator.Scale == 0 {
		e.Generator.Scale = 1
	}
	if len(e.MemoryShares) == 0 {
		e.MemoryShares = []generator.Interval{{Min: 0, Max: 0}}
	}
}

// Expand lists the utilisations of the sweep, rounded to 1e-6 so that
// 0.05 steps do not accumulate float error.
func (s SweepConfig) Expand() ([]float64, error) {
	if s.Step <= 0 {
		return nil, fmt.Errorf("utilisation sweep step must be positive")
	}
	if s.To < s.From {
		return nil, fmt.Errorf("utilisation sweep ends before it starts")
	}
	var out []float64
	for i := 0; ; i++ {
		u := math.Round((s.From+float64(i)*s.Step)*1e6) / 1e6
		if u > s.To+1e-9 {
			break
		}
		out = append(out, u)
	}
	return out, nil
}

func validateConfig(config *CampaignConfig) error {
	e := config.Evaluation
	if e.Name == "" {
		return fmt.Errorf("evaluation name is required")
	}
	if e.Systems <= 0 {
		return fmt.Errorf("evaluation systems must be positive")
	}
	if len(e.Utilisations) == 0 {
		return fmt.Errorf("at least one utilisation is required")
	}
	if _, err := priority.Lookup(e.Priority); err != nil {
		return err
	}
	if len(config.Policies) == 0 {
		return fmt.Errorf("at least one policy is required")
	}

	for _, share := range e.MemoryShares {
		for _, u := range e.Utilisations {
			if err := config.GeneratorParams(u, share).Validate(); err != nil {
				return fmt.Errorf("generator: %w", err)
			}
		}
	}

	for name, policy := range config.Policies {
		if policy.Budget {
			if len(policy.Estimators) > 0 {
				return fmt.Errorf("policy %s: budget analysis takes no estimators", name)
			}
			continue
		}
		if _, err := interference.LookupAll(policy.Estimators); err != nil {
			return fmt.Errorf("policy %s: %w", name, err)
		}
	}
	return nil
}
