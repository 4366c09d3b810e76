package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"prem-rta/internal/config"
	"prem-rta/internal/database"
	"prem-rta/internal/evaluation"
	"prem-rta/internal/host"
	"prem-rta/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newEvaluateCommand() *cobra.Command {
	var configFile string

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run a schedulability campaign",
		Long:  "Generate systems for every utilisation and memory share of a campaign file and analyse them under every configured policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluation(cmd.Context(), configFile)
		},
	}
	evaluateCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to campaign configuration file")
	evaluateCmd.MarkFlagRequired("config")

	return evaluateCmd
}

func newValidateCommand() *cobra.Command {
	var configFile string

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a campaign configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(configFile)
		},
	}
	validateCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to campaign configuration file")
	validateCmd.MarkFlagRequired("config")

	return validateCmd
}

func validateConfig(configFile string) error {
	logger := logging.GetLogger()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		logger.WithField("config_file", configFile).WithError(err).Error("Configuration validation failed")
		return err
	}
	checksum, err := config.CampaignChecksum(cfg)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"config_file":  configFile,
		"checksum":     checksum,
		"policies":     len(cfg.Policies),
		"utilisations": len(cfg.Evaluation.Utilisations),
		"systems":      cfg.Evaluation.Systems * len(cfg.Evaluation.Utilisations) * len(cfg.Evaluation.MemoryShares),
	}).Info("Configuration is valid")
	return nil
}

func runEvaluation(parent context.Context, configFile string) error {
	logger := logging.GetLogger()

	cfg, content, err := config.LoadConfigWithContent(configFile)
	if err != nil {
		logger.WithField("config_file", configFile).WithError(err).Error("Failed to load configuration")
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set log level from configuration
	if err := logging.SetLogLevel(cfg.Evaluation.LogLevel); err != nil {
		logger.WithField("log_level", cfg.Evaluation.LogLevel).WithError(err).Warn("Invalid log level in config, using INFO")
		logging.SetLogLevel("info")
	} else {
		logger.WithField("log_level", cfg.Evaluation.LogLevel).Debug("Log level set from configuration")
	}

	hostInfo := host.Collect()
	logger.WithFields(logrus.Fields{
		"hostname":       hostInfo.Hostname,
		"cpu_model":      hostInfo.CPUModel,
		"physical_cores": hostInfo.PhysicalCores,
		"logical_cores":  hostInfo.LogicalCores,
		"rdt_supported":  hostInfo.RDT.Supported,
	}).Info("Host information collected")

	sink, err := database.Open(cfg.Evaluation.Data, content)
	if err != nil {
		logger.WithError(err).Error("Failed to open result sinks")
		return fmt.Errorf("failed to open result sinks: %w", err)
	}

	runner, err := evaluation.NewRunner(cfg, sink,
		evaluation.WithHost(hostInfo),
		evaluation.WithConfigFile(configFile))
	if err != nil {
		sink.Close()
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := runner.Run(ctx)

	if err := sink.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close result sinks")
	}
	if report != nil {
		for _, s := range report.Summaries {
			logger.WithFields(logrus.Fields{
				"policy":       s.Policy,
				"utilisation":  s.Utilisation,
				"memory_share": fmt.Sprintf("%d-%d", s.MemoryShareMin, s.MemoryShareMax),
				"schedulable":  s.Schedulable,
				"systems":      s.Systems,
				"ratio":        fmt.Sprintf("%.3f", s.Ratio),
			}).Info("Schedulability ratio")
		}
		for _, f := range report.Files {
			logger.WithField("file", f).Info("Records written")
		}
	}
	if runErr != nil {
		logger.WithError(runErr).Error("Evaluation did not complete")
		return runErr
	}
	return nil
}
