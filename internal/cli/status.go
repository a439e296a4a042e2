package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/headline-goat/powergoat/internal/request"
)

var statusCmd = &cobra.Command{
	Use:   "status <file>",
	Short: "Overall result status of a running experiment",
	Long: `Classify a running experiment: no data, unhealthy (sample ratio mismatch,
multiple exposures, low power), a decision framework recommendation, before
the minimum duration, or days left. Health thresholds come from the config
file unless the input sets its own.

Example:
  powergoat status experiment.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	var req request.StatusRequest
	if err := loadRequest(args[0], cmd.InOrStdin(), &req); err != nil {
		return err
	}

	result := req.Run()
	return render(cmd.OutOrStdout(), result, func(tw *tabwriter.Writer) {
		if result == nil {
			fmt.Fprintln(tw, "STATUS: nothing to report")
			return
		}
		fmt.Fprintf(tw, "STATUS: %s\n", result.Status)

		if u := result.UnhealthyData; u != nil {
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "CHECK\tFAILED\t")
			fmt.Fprintf(tw, "sample ratio mismatch\t%s\t\n", yesNo(u.SRM))
			if me := u.MultipleExposures; me != nil {
				fmt.Fprintf(tw, "multiple exposures\t%d users (%s)\t\n", me.MultipleExposedUsers, formatPercent(me.RawDecimal))
			} else {
				fmt.Fprintln(tw, "multiple exposures\tno\t")
			}
			fmt.Fprintf(tw, "low power\t%s\t\n", yesNo(u.LowPowered))
		}
		if result.Recommendation != nil {
			fmt.Fprintln(tw)
			printRecommendation(tw, result.Recommendation)
		}
		if result.DaysLeft != nil {
			fmt.Fprintf(tw, "DAYS LEFT: %d\n", *result.DaysLeft)
		}
	})
}
