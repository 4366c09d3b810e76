package database

import (
	"context"
	"errors"
	"time"

	"prem-rta/internal/config"
	"prem-rta/internal/host"
	"prem-rta/internal/logging"
)

// RunMetadata describes one evaluation campaign.
type RunMetadata struct {
	RunID       string     `json:"run_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Checksum    string     `json:"checksum"`
	Started     time.Time  `json:"started"`
	Finished    time.Time  `json:"finished"`
	Systems     int        `json:"systems"`
	Policies    []string   `json:"policies"`
	Host        *host.Info `json:"host,omitempty"`
	ConfigFile  string     `json:"config_file"`
}

// SystemResult is the analysis of one generated system under one policy.
type SystemResult struct {
	RunID          string        `json:"run_id"`
	Policy         string        `json:"policy"`
	Utilisation    float64       `json:"utilisation"`
	MemoryShareMin int           `json:"memory_share_min"`
	MemoryShareMax int           `json:"memory_share_max"`
	Index          int           `json:"index"`
	Processors     int           `json:"processors"`
	Tasks          int           `json:"tasks"`
	Analysable     bool          `json:"analysable"`
	Schedulable    bool          `json:"schedulable"`
	Calls          int           `json:"calls"`
	Elapsed        time.Duration `json:"elapsed"`
	Record         string        `json:"record"`
}

// Summary aggregates the systems of one campaign point.
type Summary struct {
	RunID          string  `json:"run_id"`
	Policy         string  `json:"policy"`
	Utilisation    float64 `json:"utilisation"`
	MemoryShareMin int     `json:"memory_share_min"`
	MemoryShareMax int     `json:"memory_share_max"`
	Systems        int     `json:"systems"`
	Analysable     int     `json:"analysable"`
	Schedulable    int     `json:"schedulable"`
	Ratio          float64 `json:"ratio"`
}

// Sink stores campaign results. Implementations must be safe for
// concurrent use.
type Sink interface {
	WriteRun(ctx context.Context, run *RunMetadata) error
	WriteSystem(ctx context.Context, result *SystemResult) error
	WriteSummary(ctx context.Context, summary *Summary) error
	Close() error
}

// MultiSink fans every write out to all sinks and joins their errors.
type MultiSink []Sink

func (m MultiSink) WriteRun(ctx context.Context, run *RunMetadata) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.WriteRun(ctx, run))
	}
	return errors.Join(errs...)
}

func (m MultiSink) WriteSystem(ctx context.Context, result *SystemResult) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.WriteSystem(ctx, result))
	}
	return errors.Join(errs...)
}

func (m MultiSink) WriteSummary(ctx context.Context, summary *Summary) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.WriteSummary(ctx, summary))
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Open builds the sinks enabled in the data configuration. The spool
// artifact is always written so that a campaign never loses results.
func Open(cfg config.DataConfig, configContent string) (Sink, error) {
	var sinks MultiSink

	if cfg.DB.Enabled() {
		client, err := NewInfluxDBClient(cfg.DB)
		if err != nil {
			logging.GetLogger().WithError(err).Warn("InfluxDB unavailable, results go to the spool only")
		} else {
			sinks = append(sinks, client)
		}
	}

	if cfg.SQLite != "" {
		path := cfg.SQLite
		if path == "auto" {
			path = ""
		}
		s, err := NewSQLiteSink(path)
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		sinks = append(sinks, s)
	}

	dir := cfg.SpoolDir
	if dir == "" {
		dir = DefaultSpoolDir()
	}
	sinks = append(sinks, NewSpoolSink(dir, configContent))
	return sinks, nil
}
