package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/headline-goat/powergoat/internal/decision"
	"github.com/headline-goat/powergoat/internal/request"
)

var decideCmd = &cobra.Command{
	Use:   "decide <file>",
	Short: "Ship, rollback or review recommendation from metric results",
	Long: `Evaluate decision criteria against every variation's goal and guardrail
metric results. Super-stat-sig results are checked first; ordinary results
count once the experiment has reached its target power (daysNeeded set).
Without criteria in the file the "Clear Signals" preset applies.

Example:
  powergoat decide results.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runDecide,
}

func init() {
	rootCmd.AddCommand(decideCmd)
}

func runDecide(cmd *cobra.Command, args []string) error {
	var req request.DecisionRequest
	if err := loadRequest(args[0], cmd.InOrStdin(), &req); err != nil {
		return err
	}

	resp := req.Run()
	return render(cmd.OutOrStdout(), resp, func(tw *tabwriter.Writer) {
		printRecommendation(tw, resp.Recommendation)
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "PASS\tVARIATION\tACTION\t")
		for _, d := range resp.SuperStatSig {
			fmt.Fprintf(tw, "super-stat-sig\t%s\t%s\t\n", d.VariationID, d.Action)
		}
		for _, d := range resp.Ordinary {
			fmt.Fprintf(tw, "ordinary\t%s\t%s\t\n", d.VariationID, d.Action)
		}
	})
}

func printRecommendation(tw *tabwriter.Writer, rec *decision.Recommendation) {
	if rec == nil {
		fmt.Fprintln(tw, "RECOMMENDATION: none yet (target power not reached)")
		return
	}
	fmt.Fprintf(tw, "RECOMMENDATION: %s\n", rec.Status)
	fmt.Fprintf(tw, "VARIATIONS: %s\n", strings.Join(rec.VariationIDs, ", "))
	fmt.Fprintf(tw, "POWER REACHED: %s\n", yesNo(rec.PowerReached))
	fmt.Fprintf(tw, "SEQUENTIAL: %s\n", yesNo(rec.SequentialUsed))
}
