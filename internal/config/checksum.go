package config

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"prem-rta/internal/generator"
)

type checksumPolicy struct {
	Key        string        `json:"key"`
	Index      int           `json:"index"`
	Estimators []string      `json:"estimators"`
	Budget     bool          `json:"budget"`
	Rescale    RescaleConfig `json:"rescale"`
}

type checksumPayload struct {
	Seed         int64                `json:"seed"`
	Systems      int                  `json:"systems"`
	Priority     string               `json:"priority"`
	Generator    GeneratorConfig      `json:"generator"`
	Utilisations []float64            `json:"utilisations"`
	MemoryShares []generator.Interval `json:"memory_shares"`
	Policies     []checksumPolicy     `json:"policies"`
}

// CampaignChecksum returns a short, stable checksum of everything that
// determines the results of a campaign. Naming, logging, worker count and
// sinks do not take part.
//
// It computes MD5 over a canonical JSON representation and returns the first 6 hex
// characters (equivalent to `md5sum | cut -c1-6`).
func CampaignChecksum(cfg *CampaignConfig) (string, error) {
	if cfg == nil {
		return "", nil
	}

	payload := checksumPayload{
		Seed:         cfg.Evaluation.Seed,
		Systems:      cfg.Evaluation.Systems,
		Priority:     cfg.Evaluation.Priority,
		Generator:    cfg.Evaluation.Generator,
		Utilisations: cfg.Evaluation.Utilisations,
		MemoryShares: cfg.Evaluation.MemoryShares,
	}
	for _, p := range cfg.GetPoliciesSorted() {
		payload.Policies = append(payload.Policies, checksumPolicy{
			Key:        p.KeyName,
			Index:      p.Index,
			Estimators: p.Estimators,
			Budget:     p.Budget,
			Rescale:    p.Rescale,
		})
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	sum := md5.Sum(b)
	hexStr := hex.EncodeToString(sum[:])
	if len(hexStr) > 6 {
		hexStr = hexStr[:6]
	}
	return hexStr, nil
}
