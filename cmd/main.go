package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"prem-rta/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const Version = "1.0.0"

func loadEnvironment() {
	logger := logging.GetLogger()

	// Try to load .env file from current directory
	envFile := ".env"
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
		} else {
			logger.WithField("file", envFile).Debug("Loaded environment variables")
		}
	} else {
		// Try to load from the application directory
		if execPath, err := os.Executable(); err == nil {
			appDir := filepath.Dir(execPath)
			envFile = filepath.Join(appDir, ".env")
			if _, err := os.Stat(envFile); err == nil {
				if err := godotenv.Load(envFile); err != nil {
					logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
				} else {
					logger.WithField("file", envFile).Debug("Loaded environment variables")
				}
			}
		}
	}
}

func validateEnvironment() error {
	logger := logging.GetLogger()

	requiredVars := []string{
		"INFLUXDB_HOST",
		"INFLUXDB_TOKEN",
		"INFLUXDB_ORG",
		"INFLUXDB_BUCKET",
	}

	var missing []string
	for _, varName := range requiredVars {
		if os.Getenv(varName) == "" {
			missing = append(missing, varName)
		}
	}

	if len(missing) > 0 {
		logger.WithField("missing_vars", missing).Error("Missing required environment variables")
		return fmt.Errorf("missing required environment variables: %v. Please ensure your .env file contains these variables", missing)
	}

	logger.Debug("All required environment variables are present")
	return nil
}

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	var logLevel string
	var analysisLogLevel string
	var logFormat string

	rootCmd := &cobra.Command{
		Use:     "prem-rta",
		Short:   "Response-time analysis for PREM multiprocessor systems",
		Long:    "Analyse fixed-priority PREM task sets on processors sharing a memory bus, and run schedulability campaigns over generated systems",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				if err := logging.SetLogLevel(logLevel); err != nil {
					return fmt.Errorf("invalid log level: %w", err)
				}
			}
			if analysisLogLevel != "" {
				if err := logging.SetAnalysisLogLevel(analysisLogLevel); err != nil {
					return fmt.Errorf("invalid analysis log level: %w", err)
				}
			}
			if logFormat != "" {
				if err := logging.SetFormat(logFormat); err != nil {
					return err
				}
			}
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&analysisLogLevel, "analysis-log-level", "", "Set the log level of the response-time engine")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log output format (text, json)")

	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newEvaluateCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newCompareCommand())
	rootCmd.AddCommand(newPlotCommand())

	return rootCmd
}

func Execute() error {
	loadEnvironment()
	return NewRootCommand().Execute()
}
