package database

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sirupsen/logrus"
)

type PlotDBClient struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	bucket   string
	org      string
	logger   *logrus.Logger
}

func NewPlotDBClient(logger *logrus.Logger) (*PlotDBClient, error) {
	host := os.Getenv("INFLUXDB_HOST")
	token := os.Getenv("INFLUXDB_TOKEN")
	org := os.Getenv("INFLUXDB_ORG")
	bucket := os.Getenv("INFLUXDB_BUCKET")

	if host == "" || token == "" || org == "" || bucket == "" {
		return nil, fmt.Errorf("missing required environment variables for InfluxDB connection")
	}

	client := influxdb2.NewClient(host, token)
	queryAPI := client.QueryAPI(org)

	return &PlotDBClient{
		client:   client,
		queryAPI: queryAPI,
		bucket:   bucket,
		org:      org,
		logger:   logger,
	}, nil
}

func (c *PlotDBClient) Close() {
	c.client.Close()
}

// QuerySummaries reads the summaries of a run, one series per policy and
// memory share. An empty memoryShare ("min-max") keeps every share.
func (c *PlotDBClient) QuerySummaries(ctx context.Context, runID, memoryShare string) ([]RatioSeries, error) {
	c.logger.WithFields(logrus.Fields{
		"run_id":       runID,
		"memory_share": memoryShare,
	}).Debug("Querying schedulability summaries")

	shareFilter := ""
	if memoryShare != "" {
		shareFilter = fmt.Sprintf(`|> filter(fn: (r) => r["memory_share"] == "%s")`, memoryShare)
	}
	query := fmt.Sprintf(`
		from(bucket: "%s")
		|> range(start: 0)
		|> filter(fn: (r) => r["_measurement"] == "prem_rta_summary")
		|> filter(fn: (r) => r["run_id"] == "%s")
		%s
		|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
		|> group()
		|> sort(columns: ["policy", "memory_share", "utilisation"])
	`, c.bucket, runID, shareFilter)

	result, err := c.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	type key struct{ policy, share string }
	series := make(map[key]*RatioSeries)
	var order []key
	for result.Next() {
		record := result.Record()

		k := key{}
		if v, ok := record.ValueByKey("policy").(string); ok {
			k.policy = v
		}
		if v, ok := record.ValueByKey("memory_share").(string); ok {
			k.share = v
		}

		p := RatioPoint{}
		if v, ok := record.ValueByKey("utilisation").(float64); ok {
			p.Utilisation = v
		}
		if v, ok := record.ValueByKey("ratio").(float64); ok {
			p.Ratio = v
		}
		if v, ok := record.ValueByKey("systems").(int64); ok {
			p.Systems = int(v)
		}
		if v, ok := record.ValueByKey("schedulable").(int64); ok {
			p.Schedulable = int(v)
		}

		s, exists := series[k]
		if !exists {
			s = &RatioSeries{Policy: k.policy}
			series[k] = s
			order = append(order, k)
		}
		s.Points = append(s.Points, p)
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("query parsing failed: %w", result.Err())
	}

	shares := make(map[string]bool)
	for _, k := range order {
		shares[k.share] = true
	}
	out := make([]RatioSeries, 0, len(order))
	for _, k := range order {
		s := series[k]
		s.Label = s.Policy
		if len(shares) > 1 {
			s.Label = fmt.Sprintf("%s (mem %s\\%%)", s.Policy, k.share)
		}
		sort.Slice(s.Points, func(i, j int) bool { return s.Points[i].Utilisation < s.Points[j].Utilisation })
		out = append(out, *s)
	}

	c.logger.WithField("series", len(out)).Debug("Query completed")
	return out, nil
}

func (c *PlotDBClient) QueryRunInfo(ctx context.Context, runID string) (*RunInfo, error) {
	c.logger.WithField("run_id", runID).Debug("Querying run metadata")

	query := fmt.Sprintf(`
		from(bucket: "%s")
		|> range(start: 0)
		|> filter(fn: (r) => r["_measurement"] == "prem_rta_meta")
		|> filter(fn: (r) => r["run_id"] == "%s")
		|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
	`, c.bucket, runID)

	result, err := c.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	var info *RunInfo
	if result.Next() {
		record := result.Record()
		info = &RunInfo{RunID: runID}

		str := func(key string) string {
			v, _ := record.ValueByKey(key).(string)
			return strings.TrimSpace(v)
		}
		info.Name = str("name")
		info.Description = str("description")
		info.Checksum = str("checksum")
		info.Started = str("started")
		info.Finished = str("finished")
		info.Hostname = str("hostname")
		info.CPUModel = str("cpu_model")
		if v, ok := record.ValueByKey("systems").(int64); ok {
			info.Systems = v
		}
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("query parsing failed: %w", result.Err())
	}
	if info == nil {
		return nil, fmt.Errorf("no metadata found for run %s", runID)
	}
	return info, nil
}
