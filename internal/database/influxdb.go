package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"prem-rta/internal/config"
	"prem-rta/internal/logging"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"
)

const (
	measurementSystem  = "prem_rta_system"
	measurementSummary = "prem_rta_summary"
	measurementMeta    = "prem_rta_meta"
)

type InfluxDBClient struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
	org      string
}

func NewInfluxDBClient(config config.DatabaseConfig) (*InfluxDBClient, error) {
	logger := logging.GetLogger()

	client := influxdb2.NewClient(config.Host, config.Password)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		logger.WithField("host", config.Host).WithError(err).Error("Failed to connect to InfluxDB")
		client.Close()
		return nil, err
	}

	if health.Status != "pass" {
		logger.WithFields(logrus.Fields{
			"host":    config.Host,
			"status":  health.Status,
			"message": health.Message,
		}).Error("InfluxDB health check failed")
		client.Close()
		return nil, fmt.Errorf("influxdb health check failed: %s", health.Status)
	}

	logger.WithFields(logrus.Fields{
		"host":   config.Host,
		"bucket": config.Name,
		"org":    config.Org,
	}).Info("Connected to InfluxDB")

	return &InfluxDBClient{
		client:   client,
		writeAPI: client.WriteAPIBlocking(config.Org, config.Name),
		bucket:   config.Name,
		org:      config.Org,
	}, nil
}

func shareTag(min, max int) string {
	return fmt.Sprintf("%d-%d", min, max)
}

func systemPoint(r *SystemResult, ts time.Time) *write.Point {
	return influxdb2.NewPoint(measurementSystem,
		map[string]string{
			"run_id":       r.RunID,
			"policy":       r.Policy,
			"utilisation":  strconv.FormatFloat(r.Utilisation, 'g', -1, 64),
			"memory_share": shareTag(r.MemoryShareMin, r.MemoryShareMax),
		},
		map[string]interface{}{
			"index":       r.Index,
			"processors":  r.Processors,
			"tasks":       r.Tasks,
			"analysable":  r.Analysable,
			"schedulable": r.Schedulable,
			"calls":       r.Calls,
			"elapsed_ns":  r.Elapsed.Nanoseconds(),
			"record":      r.Record,
		},
		ts)
}

func summaryPoint(s *Summary, ts time.Time) *write.Point {
	return influxdb2.NewPoint(measurementSummary,
		map[string]string{
			"run_id":       s.RunID,
			"policy":       s.Policy,
			"memory_share": shareTag(s.MemoryShareMin, s.MemoryShareMax),
		},
		map[string]interface{}{
			"utilisation": s.Utilisation,
			"systems":     s.Systems,
			"analysable":  s.Analysable,
			"schedulable": s.Schedulable,
			"ratio":       s.Ratio,
		},
		ts)
}

func runPoint(m *RunMetadata) *write.Point {
	fields := map[string]interface{}{
		"name":        m.Name,
		"description": m.Description,
		"checksum":    m.Checksum,
		"started":     m.Started.Format(time.RFC3339),
		"finished":    m.Finished.Format(time.RFC3339),
		"duration_s":  int64(m.Finished.Sub(m.Started).Seconds()),
		"systems":     m.Systems,
		"config_file": m.ConfigFile,
	}
	if m.Host != nil {
		fields["hostname"] = m.Host.Hostname
		fields["cpu_model"] = m.Host.CPUModel
		fields["kernel_version"] = m.Host.KernelVersion
		fields["logical_cores"] = m.Host.LogicalCores
		fields["rdt_supported"] = m.Host.RDT.Supported
	}
	return influxdb2.NewPoint(measurementMeta, map[string]string{"run_id": m.RunID}, fields, time.Now())
}

func (idb *InfluxDBClient) WriteRun(ctx context.Context, run *RunMetadata) error {
	if err := idb.writeAPI.WritePoint(ctx, runPoint(run)); err != nil {
		return fmt.Errorf("failed to write run metadata: %w", err)
	}
	return nil
}

func (idb *InfluxDBClient) WriteSystem(ctx context.Context, result *SystemResult) error {
	if err := idb.writeAPI.WritePoint(ctx, systemPoint(result, time.Now())); err != nil {
		return fmt.Errorf("failed to write system result: %w", err)
	}
	return nil
}

func (idb *InfluxDBClient) WriteSummary(ctx context.Context, summary *Summary) error {
	if err := idb.writeAPI.WritePoint(ctx, summaryPoint(summary, time.Now())); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func (idb *InfluxDBClient) Close() error {
	if idb.client != nil {
		idb.client.Close()
	}
	return nil
}
