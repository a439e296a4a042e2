package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/headline-goat/powergoat/internal/request"
)

var mdeCmd = &cobra.Command{
	Use:   "mde <file>",
	Short: "Minimum detectable effect for one metric at a fixed sample size",
	Long: `Solve for the smallest relative lift the experiment can detect with the
target power, using the configured frequentist or Bayesian engine.

Example:
  powergoat mde signup.yaml
  echo '{"metric":{"type":"binomial","conversionRate":0.1},"users":20000}' | powergoat mde -`,
	Args: cobra.ExactArgs(1),
	RunE: runMDE,
}

func init() {
	rootCmd.AddCommand(mdeCmd)
}

func runMDE(cmd *cobra.Command, args []string) error {
	var req request.MDERequest
	if err := loadRequest(args[0], cmd.InOrStdin(), &req); err != nil {
		return err
	}

	result := req.Run()
	err := render(cmd.OutOrStdout(), result, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "ENGINE\tUSERS\tVARIATIONS\tPOWER\tMDE\t")
		mde := formatPercent(result.MDE)
		if !result.OK() {
			mde = "N/A"
		}
		fmt.Fprintf(tw, "%s\t%.0f\t%d\t%s\t%s\t\n",
			req.StatsEngineSettings.Type, req.Users, req.NVariations, formatPercent(req.TargetPower), mde)
	})
	if err != nil {
		return err
	}

	if !result.OK() {
		return fmt.Errorf("%w: %s", ErrCalculation, result.Description)
	}
	return nil
}
