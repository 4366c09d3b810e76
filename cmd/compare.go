package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"prem-rta/internal/evaluation"
	"prem-rta/internal/logging"

	"github.com/spf13/cobra"
)

func newCompareCommand() *cobra.Command {
	params := evaluation.CompareParams{}
	var samples bool

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare interference estimators on generated systems",
		Long: "Analyse generated systems, then bound the interference they cause to a lower " +
			"processor with every estimator for random window lengths, reporting bound, time " +
			"and instruction counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolveMinCost(&params.Generator)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runCompare(ctx, params, samples, cmd.OutOrStdout())
		},
	}
	addGeneratorFlags(compareCmd.Flags(), &params.Generator)
	compareCmd.Flags().IntVar(&params.Systems, "systems", 100, "Number of systems")
	compareCmd.Flags().IntVar(&params.Deltas, "deltas", 5, "Random windows per system")
	compareCmd.Flags().IntVar(&params.DeltaRange.Min, "delta-min", 100, "Shortest window")
	compareCmd.Flags().IntVar(&params.DeltaRange.Max, "delta-max", 2000, "Longest window")
	compareCmd.Flags().Int64Var(&params.Seed, "seed", 1, "Random seed")
	compareCmd.Flags().StringSliceVar(&params.Estimators, "estimators", []string{"classic", "global_task", "knapsack", "greedy_knapsack"}, "Estimators to compare")
	compareCmd.Flags().BoolVar(&params.UseCounters, "counters", true, "Count instructions with perf events when available")
	compareCmd.Flags().BoolVar(&samples, "samples", false, "Print every sample instead of the summary")

	return compareCmd
}

func runCompare(ctx context.Context, params evaluation.CompareParams, samples bool, stdout io.Writer) error {
	logger := logging.GetLogger()

	cmp, err := evaluation.Compare(ctx, params)
	if err != nil && cmp == nil {
		logger.WithError(err).Error("Comparison failed")
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	if samples {
		fmt.Fprintln(tw, "estimator\tsystem\tdelta\titems\tvalue\tdiverged\telapsed_ns\tinstructions")
		for _, s := range cmp.Samples {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%t\t%d\t%d\n",
				s.Estimator, s.System, s.Delta, s.Items, s.Value, s.Diverged, s.Elapsed.Nanoseconds(), s.Instructions)
		}
	} else {
		fmt.Fprintln(tw, "estimator\tsamples\tdiverged\tmean_value\ttightest\tmean_elapsed\tinstructions")
		for _, s := range cmp.Stats {
			instr := "n/a"
			if cmp.Counters {
				instr = fmt.Sprint(s.Instructions)
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t%d\t%s\t%s\n",
				s.Estimator, s.Samples, s.Diverged, s.MeanValue, s.Tightest, s.MeanElapsed, instr)
		}
	}
	if flushErr := tw.Flush(); flushErr != nil {
		return flushErr
	}

	if cmp.Skipped > 0 {
		logger.WithField("skipped", cmp.Skipped).Info("Systems without a finite classic bound were skipped")
	}
	return err
}
