package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"prem-rta/internal/logging"
	"prem-rta/internal/plot"

	"github.com/spf13/cobra"
)

type plotOutput struct {
	onlyPlot    bool
	onlyWrapper bool
	outDir      string
}

func (o *plotOutput) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.onlyPlot, "plot", false, "Print only the plot file (TikZ)")
	cmd.Flags().BoolVar(&o.onlyWrapper, "wrapper", false, "Print only the wrapper file (LaTeX)")
	cmd.Flags().StringVar(&o.outDir, "out-dir", "", "Write the .tikz and .tex files to this directory instead of stdout")
}

// emit prints or stores a generated plot.
func (o *plotOutput) emit(name, plotTikz, wrapperTex string, stdout io.Writer) error {
	logger := logging.GetLogger()

	if o.outDir != "" {
		if err := os.MkdirAll(o.outDir, 0o755); err != nil {
			return err
		}
		tikzPath := filepath.Join(o.outDir, plot.FileName(name))
		texPath := strings.TrimSuffix(tikzPath, ".tikz") + ".tex"
		if err := os.WriteFile(tikzPath, []byte(plotTikz), 0o644); err != nil {
			return err
		}
		if err := os.WriteFile(texPath, []byte(wrapperTex), 0o644); err != nil {
			return err
		}
		logger.WithField("plot", tikzPath).WithField("wrapper", texPath).Info("Plot written")
		return nil
	}

	// Determine what to print
	showPlot := !o.onlyWrapper
	showWrapper := !o.onlyPlot

	if showPlot {
		fmt.Fprintln(stdout, plotTikz)
		if showWrapper {
			fmt.Fprintln(stdout)
		}
	}

	if showWrapper {
		fmt.Fprintln(stdout, wrapperTex)
	}
	return nil
}

func newPlotCommand() *cobra.Command {
	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "Generate schedulability plots",
		Long:  "Generate LaTeX/TikZ plots of the schedulability ratio per utilisation",
	}

	var name string
	var labels []string
	var recordsOut plotOutput
	recordsCmd := &cobra.Command{
		Use:   "records <file>...",
		Short: "Plot record logs, one curve per file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(labels) > 0 && len(labels) != len(args) {
				return fmt.Errorf("%d labels for %d files", len(labels), len(args))
			}
			var files []plot.RecordSeries
			for i, path := range args {
				s := plot.RecordSeries{Path: path}
				if len(labels) > 0 {
					s.Label = labels[i]
				}
				files = append(files, s)
			}
			plotTikz, wrapperTex, err := plot.NewPlotManager().GenerateFromRecords(name, files)
			if err != nil {
				logging.GetLogger().WithError(err).Error("Failed to generate plot")
				return fmt.Errorf("failed to generate plot: %w", err)
			}
			return recordsOut.emit(name, plotTikz, wrapperTex, cmd.OutOrStdout())
		},
	}
	recordsCmd.Flags().StringVar(&name, "name", "ratio", "Figure name")
	recordsCmd.Flags().StringSliceVar(&labels, "labels", nil, "Legend entries, one per file")
	recordsOut.bind(recordsCmd)

	var dbPath, sqliteRun string
	var sqliteOut plotOutput
	sqliteCmd := &cobra.Command{
		Use:   "sqlite",
		Short: "Plot the summaries of a run recorded in SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			plotTikz, wrapperTex, err := plot.NewPlotManager().GenerateFromSQLite(dbPath, sqliteRun)
			if err != nil {
				logging.GetLogger().WithError(err).Error("Failed to generate plot")
				return fmt.Errorf("failed to generate plot: %w", err)
			}
			return sqliteOut.emit(sqliteRun, plotTikz, wrapperTex, cmd.OutOrStdout())
		},
	}
	sqliteCmd.Flags().StringVar(&dbPath, "db", "", "SQLite file written by evaluate")
	sqliteCmd.Flags().StringVar(&sqliteRun, "run-id", "", "Run to plot (default: latest)")
	sqliteCmd.MarkFlagRequired("db")
	sqliteOut.bind(sqliteCmd)

	var influxRun, memoryShare string
	var influxOut plotOutput
	influxCmd := &cobra.Command{
		Use:   "influxdb",
		Short: "Plot the summaries of a run exported to InfluxDB",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateEnvironment(); err != nil {
				return err
			}
			plotTikz, wrapperTex, err := plot.NewPlotManager().GenerateFromInfluxDB(influxRun, memoryShare)
			if err != nil {
				logging.GetLogger().WithError(err).Error("Failed to generate plot")
				return fmt.Errorf("failed to generate plot: %w", err)
			}
			return influxOut.emit(influxRun, plotTikz, wrapperTex, cmd.OutOrStdout())
		},
	}
	influxCmd.Flags().StringVar(&influxRun, "run-id", "", "Run to plot")
	influxCmd.Flags().StringVar(&memoryShare, "memory-share", "", "Only plot this memory share, as min-max")
	influxCmd.MarkFlagRequired("run-id")
	influxOut.bind(influxCmd)

	plotCmd.AddCommand(recordsCmd)
	plotCmd.AddCommand(sqliteCmd)
	plotCmd.AddCommand(influxCmd)
	return plotCmd
}
