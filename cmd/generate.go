package cmd

import (
	"fmt"
	"io"

	"prem-rta/internal/generator"
	"prem-rta/internal/logging"
	"prem-rta/internal/record"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addGeneratorFlags binds the system generator parameters shared by the
// generate and compare commands.
func addGeneratorFlags(flags *pflag.FlagSet, p *generator.Params) {
	flags.IntVar(&p.Processors, "processors", 4, "Processors per system")
	flags.IntVar(&p.Tasks, "tasks", 4, "Tasks per processor")
	flags.IntVar(&p.Periods.Min, "period-min", 10, "Smallest period before scaling")
	flags.IntVar(&p.Periods.Max, "period-max", 100, "Largest period before scaling")
	flags.StringVar(&p.Distribution, "distribution", generator.LogUniform, "Period distribution (logunif, unif)")
	flags.IntVar(&p.Granularity, "granularity", 1, "Periods are floored to a multiple of this")
	flags.Float64VarP(&p.Utilisation, "utilisation", "u", 0.5, "Utilisation of every processor")
	flags.IntVar(&p.MemoryShare.Min, "mem-min", 5, "Smallest memory share of a job, in percent")
	flags.IntVar(&p.MemoryShare.Max, "mem-max", 20, "Largest memory share of a job, in percent")
	flags.IntVar(&p.Scale, "scale", 100, "Multiplier applied to periods and costs")
	flags.IntVar(&p.MinCost, "min-cost", 0, "Smallest job cost (0 derives it from --mem-max)")
}

func resolveMinCost(p *generator.Params) {
	if p.MinCost == 0 {
		p.MinCost = generator.MinCostFor(p.MemoryShare)
	}
}

func newGenerateCommand() *cobra.Command {
	var params generator.Params
	var count int
	var seed int64
	var output string

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate random PREM systems as records",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolveMinCost(&params)
			return runGenerate(params, count, seed, output, cmd.OutOrStdout())
		},
	}
	addGeneratorFlags(generateCmd.Flags(), &params)
	generateCmd.Flags().IntVarP(&count, "count", "n", 1, "Number of systems")
	generateCmd.Flags().Int64Var(&seed, "seed", 1, "Random seed")
	generateCmd.Flags().StringVarP(&output, "output", "o", "", "Write records to this file instead of stdout")

	return generateCmd
}

func runGenerate(params generator.Params, count int, seed int64, output string, stdout io.Writer) error {
	logger := logging.GetLogger()

	if count <= 0 {
		return fmt.Errorf("count must be positive")
	}
	if err := params.Validate(); err != nil {
		return err
	}

	var w *record.Writer
	var err error
	if output != "" {
		if w, err = record.Create(output); err != nil {
			return err
		}
		defer w.Close()
	} else {
		w = record.NewWriter(stdout)
		defer w.Flush()
	}

	gen := generator.New(seed)
	for i := 0; i < count; i++ {
		sys, err := gen.System(params)
		if err != nil {
			logger.WithField("index", i).WithError(err).Error("Failed to generate system")
			return err
		}
		if err := w.Write(sys); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"systems":     count,
		"utilisation": params.Utilisation,
		"seed":        seed,
	}).Debug("Systems generated")
	return nil
}
