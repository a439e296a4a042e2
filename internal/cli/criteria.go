package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/headline-goat/powergoat/internal/decision"
	"github.com/headline-goat/powergoat/internal/request"
)

var criteriaFile string

var criteriaCmd = &cobra.Command{
	Use:   "criteria",
	Short: "Show or check decision criteria",
	Long: `Print the default "Clear Signals" decision criteria, or validate and
print a custom criteria file. Use -o yaml to get a starting point for your
own criteria.

Example:
  powergoat criteria -o yaml > criteria.yaml
  powergoat criteria --file criteria.yaml`,
	Args: cobra.NoArgs,
	RunE: runCriteria,
}

func init() {
	criteriaCmd.Flags().StringVarP(&criteriaFile, "file", "f", "", "criteria file to validate")
	rootCmd.AddCommand(criteriaCmd)
}

func runCriteria(cmd *cobra.Command, args []string) error {
	criteria := decision.DefaultCriteria()
	if criteriaFile != "" {
		criteria = decision.Criteria{}
		if err := request.Load(criteriaFile, cmd.InOrStdin(), &criteria); err != nil {
			return err
		}
		if err := request.Validate(&criteria); err != nil {
			return fmt.Errorf("%s: %w", criteriaFile, err)
		}
	}

	return render(cmd.OutOrStdout(), criteria, func(tw *tabwriter.Writer) {
		if criteria.Name != "" {
			fmt.Fprintf(tw, "CRITERIA: %s\n", criteria.Name)
		}
		if criteria.Description != "" {
			fmt.Fprintf(tw, "%s\n", criteria.Description)
		}
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "#\tIF\tTHEN\t")
		for i, rule := range criteria.Rules {
			fmt.Fprintf(tw, "%d\t%s\t%s\t\n", i+1, describeConditions(rule.Conditions), rule.Action)
		}
		fmt.Fprintf(tw, "-\totherwise\t%s\t\n", criteria.DefaultAction)
	})
}

func describeConditions(conditions []decision.Condition) string {
	if len(conditions) == 0 {
		return "always"
	}
	parts := make([]string, len(conditions))
	for i, c := range conditions {
		parts[i] = fmt.Sprintf("%s %s %s", c.Match, c.Metrics, c.Direction)
	}
	return strings.Join(parts, " and ")
}
