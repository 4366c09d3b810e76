package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"prem-rta/internal/interference"
	"prem-rta/internal/logging"
	"prem-rta/internal/prem"
	"prem-rta/internal/priority"
	"prem-rta/internal/record"
	"prem-rta/internal/rta"
	"prem-rta/internal/schedulability"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	input            string
	output           string
	estimator        string
	budget           bool
	priority         string
	divergenceFactor int
}

func newAnalyzeCommand() *cobra.Command {
	opts := analyzeOptions{}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [record...]",
		Short: "Compute response times of systems given as records",
		Long: "Compute the worst-case response time of every task. Systems are read as records, " +
			"one per line, from --file (\"-\" for stdin) or from the arguments, and written back " +
			"as records carrying the response times.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, args, cmd.OutOrStdout())
		},
	}

	analyzeCmd.Flags().StringVarP(&opts.input, "file", "f", "", "Record file to analyse (\"-\" for stdin)")
	analyzeCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write analysed records to this file instead of stdout")
	analyzeCmd.Flags().StringVarP(&opts.estimator, "estimator", "e", "classic", "Interference estimator, several joined by '+' ("+strings.Join(interference.Names, ", ")+")")
	analyzeCmd.Flags().BoolVar(&opts.budget, "budget", false, "Analyse under per-processor memory bandwidth budgets instead of processor priority")
	analyzeCmd.Flags().StringVarP(&opts.priority, "priority", "p", "rate_monotonic", "Priority policy (rate_monotonic, deadline_monotonic, shortest_job_first)")
	analyzeCmd.Flags().IntVar(&opts.divergenceFactor, "divergence-factor", rta.DefaultDivergenceFactor, "Give up on a recurrence once it exceeds this multiple of the deadline")

	return analyzeCmd
}

func readSystems(input string, args []string) ([]*prem.System, error) {
	if input == "" {
		var systems []*prem.System
		for i, line := range args {
			sys, err := record.Decode(line)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i+1, err)
			}
			systems = append(systems, sys)
		}
		return systems, nil
	}
	if input == "-" {
		return record.ReadAll(os.Stdin)
	}
	return record.ReadFile(input)
}

func runAnalyze(opts analyzeOptions, args []string, stdout io.Writer) error {
	logger := logging.GetLogger()

	order, err := priority.Lookup(opts.priority)
	if err != nil {
		return err
	}

	var estimator interference.Estimator = interference.Budget{}
	if !opts.budget {
		estimator, err = interference.Lookup(opts.estimator)
		if err != nil {
			return err
		}
	}

	systems, err := readSystems(opts.input, args)
	if err != nil {
		logger.WithError(err).Error("Failed to read systems")
		return err
	}
	if len(systems) == 0 {
		return fmt.Errorf("no system to analyse")
	}

	var w *record.Writer
	if opts.output != "" {
		w, err = record.Create(opts.output)
		if err != nil {
			return err
		}
	} else {
		w = record.NewWriter(stdout)
	}

	analyzer := rta.NewAnalyzer(estimator,
		rta.WithDivergenceFactor(opts.divergenceFactor),
		rta.WithLogger(logging.GetAnalysisLogger()))

	schedulable := 0
	for i, sys := range systems {
		priority.AssignSystem(sys, order)

		var out rta.Outcome
		if opts.budget {
			out = analyzer.AnalyzeBudgeted(sys, interference.DefaultBudget(sys))
		} else {
			out = analyzer.Analyze(sys)
		}
		ok := schedulability.System(sys)
		if ok {
			schedulable++
		}

		fields := logrus.Fields{
			"system":      i,
			"estimator":   estimator.Name(),
			"analysable":  out.Analysable,
			"schedulable": ok,
			"processors":  fmt.Sprint(schedulability.PerProcessor(sys)),
		}
		if out.Diverged != nil {
			fields["diverged"] = out.Diverged.String()
		}
		logger.WithFields(fields).Info("System analysed")

		if err := w.Write(sys); err != nil {
			if opts.output != "" {
				w.Close()
			}
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	if opts.output != "" {
		if err := w.Close(); err != nil {
			return err
		}
	} else if err := w.Flush(); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"systems":     len(systems),
		"schedulable": schedulable,
		"ratio":       schedulability.Ratio(schedulable, len(systems)),
	}).Info("Analysis finished")
	return nil
}
