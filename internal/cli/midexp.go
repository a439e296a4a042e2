package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/headline-goat/powergoat/internal/request"
)

var midexpCmd = &cobra.Command{
	Use:   "midexp <file>",
	Short: "Projected power for a running experiment",
	Long: `Project the power a running experiment will have once the additional
users needed arrive, given the posterior statistics of every goal metric and
variation. Flags the experiment as low powered when even the best metric
cannot beat alpha.

Example:
  powergoat midexp snapshot.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runMidExperiment,
}

func init() {
	rootCmd.AddCommand(midexpCmd)
}

func runMidExperiment(cmd *cobra.Command, args []string) error {
	var req request.MidExperimentRequest
	if err := loadRequest(args[0], cmd.InOrStdin(), &req); err != nil {
		return err
	}

	result := req.Run()
	err := render(cmd.OutOrStdout(), result, func(tw *tabwriter.Writer) {
		if !result.OK() {
			fmt.Fprintf(tw, "Error: %s\n", result.Description)
			return
		}
		fmt.Fprintln(tw, "POWER\tADDITIONAL DAYS\tADDITIONAL USERS\t")
		fmt.Fprintf(tw, "%s\t%.0f\t%.0f\t\n", formatPercent(result.Power), result.AdditionalDays, result.AdditionalUsers)

		if result.LowPowerWarning {
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "Low power warning: the experiment is unlikely to reach significance")
		}
		if len(result.LowPowerTable) > 0 {
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "METRIC\tVARIATION\tEFFECT\tPOWER\tDAYS\tUSERS\t")
			for _, row := range result.LowPowerTable {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.0f\t%.0f\t\n",
					row.Metric, row.Variation, formatPercent(row.EffectSize), formatPercent(row.Power),
					row.AdditionalDaysNeeded, row.AdditionalUsersNeeded)
			}
		}
	})
	if err != nil {
		return err
	}

	if !result.OK() {
		return fmt.Errorf("%w: %s", ErrCalculation, result.Description)
	}
	return nil
}
