package cli

import (
	"fmt"
	"runtime"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/headline-goat/powergoat/internal/power"
	"github.com/headline-goat/powergoat/internal/request"
)

var powerCmd = &cobra.Command{
	Use:   "power <file>...",
	Short: "Weekly power and MDE schedule for planned experiments",
	Long: `Compute, for every metric and every week of accumulated traffic, the power
to detect the metric's effect size and the minimum detectable effect.
Reports when each metric first reaches 80% power and the recommended
duration. Several files are computed concurrently.

Example:
  powergoat power checkout.yaml
  powergoat power -o json a.yaml b.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPower,
}

func init() {
	rootCmd.AddCommand(powerCmd)
}

// PowerFileResult pairs an input file with its schedule.
type PowerFileResult struct {
	File   string                       `json:"file" yaml:"file"`
	Result power.PowerCalculationResult `json:"result" yaml:"result"`
}

func runPower(cmd *cobra.Command, args []string) error {
	results := make([]PowerFileResult, len(args))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.NumCPU())
	for i, path := range args {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var req request.PowerRequest
			if err := loadRequest(path, cmd.InOrStdin(), &req); err != nil {
				return err
			}
			results[i] = PowerFileResult{File: path, Result: req.Run()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := any(results)
	if len(results) == 1 {
		out = results[0].Result
	}
	err := render(cmd.OutOrStdout(), out, func(tw *tabwriter.Writer) {
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(tw)
			}
			printPowerTable(tw, r)
		}
	})
	if err != nil {
		return err
	}

	for _, r := range results {
		if !r.Result.OK() {
			return fmt.Errorf("%w: %s: %s", ErrCalculation, r.File, r.Result.Description)
		}
	}
	return nil
}

func printPowerTable(tw *tabwriter.Writer, r PowerFileResult) {
	keys := make([]string, 0, len(r.Result.SampleSizeAndRuntime))
	for key := range r.Result.SampleSizeAndRuntime {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Fprintf(tw, "FILE: %s\n\n", r.File)
	if !r.Result.OK() {
		fmt.Fprintf(tw, "Error: %s\n", r.Result.Description)
		return
	}
	fmt.Fprintln(tw, "WEEK\tUSERS\tMETRIC\tPOWER\tMDE\t")
	for i, week := range r.Result.Weeks {
		for _, key := range keys {
			m := week.Metrics[key]
			mde := "N/A"
			if m.EffectSize != nil {
				mde = formatPercent(*m.EffectSize)
			}
			marker := ""
			if m.IsThreshold {
				marker = "<- target"
			}
			fmt.Fprintf(tw, "%d\t%.0f\t%s\t%s\t%s\t%s\n", i+1, week.Users, key, formatPercent(m.Power), mde, marker)
		}
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "METRIC\tWEEKS TO 80%\tUSERS\t")
	for _, key := range keys {
		rt := r.Result.SampleSizeAndRuntime[key]
		if rt == nil {
			fmt.Fprintf(tw, "%s\tnot reached\t-\t\n", key)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%.0f\t\n", key, rt.Weeks, rt.Users)
	}

	fmt.Fprintln(tw)
	if r.Result.WeekThreshold != nil {
		fmt.Fprintf(tw, "Recommended duration: %d weeks\n", *r.Result.WeekThreshold)
	} else {
		fmt.Fprintln(tw, "Recommended duration: no metric reaches 80% power in the scheduled weeks")
	}
}
