package plot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"prem-rta/internal/logging"
	"prem-rta/internal/plot/database"
	"prem-rta/internal/plot/ratio"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type SourceType string

const (
	SourceRecords  SourceType = "records"
	SourceSQLite   SourceType = "sqlite"
	SourceInfluxDB SourceType = "influxdb"
)

type PlotManager struct {
	ratioGenerator *ratio.RatioPlotGenerator
	logger         *logrus.Logger
}

func NewPlotManager() *PlotManager {
	logger := logging.GetLogger()
	return &PlotManager{
		ratioGenerator: ratio.NewRatioPlotGenerator(logger),
		logger:         logger,
	}
}

// RecordSeries names a record log to plot. An empty label derives one from
// the file name.
type RecordSeries struct {
	Label string
	Path  string
}

func labelFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// GenerateFromRecords plots one curve per record log.
func (pm *PlotManager) GenerateFromRecords(name string, files []RecordSeries) (plotTikz, wrapperTex string, err error) {
	var series []database.RatioSeries
	for _, f := range files {
		label := f.Label
		if label == "" {
			label = labelFromPath(f.Path)
		}
		s, err := database.SeriesFromRecords(label, f.Path)
		if err != nil {
			return "", "", fmt.Errorf("%s: %w", f.Path, err)
		}
		series = append(series, s)
	}

	return pm.ratioGenerator.Generate(ratio.PlotOptions{
		Name:   name,
		Source: string(SourceRecords),
		Series: series,
	})
}

// GenerateFromSQLite plots the summaries of a recorded run. An empty runID
// picks the latest run in the file.
func (pm *PlotManager) GenerateFromSQLite(path, runID string) (plotTikz, wrapperTex string, err error) {
	ctx := context.Background()

	reader, err := database.OpenSQLite(path)
	if err != nil {
		return "", "", err
	}
	defer reader.Close()

	name := runID
	if runID == "" {
		if runID, err = reader.LatestRun(ctx); err != nil {
			return "", "", err
		}
	}

	series, err := reader.QuerySummaries(ctx, runID)
	if err != nil {
		return "", "", fmt.Errorf("failed to query summaries: %w", err)
	}
	if len(series) == 0 {
		return "", "", fmt.Errorf("no summaries found for run %s", runID)
	}

	info, err := reader.QueryRunInfo(ctx, runID)
	if err != nil {
		pm.logger.WithError(err).Warn("Failed to query metadata, continuing without it")
	}

	return pm.ratioGenerator.Generate(ratio.PlotOptions{
		Name:   name,
		Source: string(SourceSQLite) + ":" + path,
		Run:    info,
		Series: series,
	})
}

// GenerateFromInfluxDB plots the summaries of a run exported to InfluxDB.
// Connection settings come from the environment or a .env file.
func (pm *PlotManager) GenerateFromInfluxDB(runID, memoryShare string) (plotTikz, wrapperTex string, err error) {
	ctx := context.Background()

	godotenv.Load(".env")

	dbClient, err := database.NewPlotDBClient(pm.logger)
	if err != nil {
		return "", "", fmt.Errorf("failed to create database client: %w", err)
	}
	defer dbClient.Close()

	series, err := dbClient.QuerySummaries(ctx, runID, memoryShare)
	if err != nil {
		return "", "", fmt.Errorf("failed to query summaries: %w", err)
	}
	if len(series) == 0 {
		return "", "", fmt.Errorf("no summaries found for run %s", runID)
	}

	info, err := dbClient.QueryRunInfo(ctx, runID)
	if err != nil {
		pm.logger.WithError(err).Warn("Failed to query metadata, continuing without it")
	}

	return pm.ratioGenerator.Generate(ratio.PlotOptions{
		Name:   runID,
		Source: string(SourceInfluxDB),
		Run:    info,
		Series: series,
	})
}

// FileName is the .tikz name the wrapper of a plot called name expects.
func FileName(name string) string {
	return ratio.PlotOptions{Name: name}.FileName()
}
