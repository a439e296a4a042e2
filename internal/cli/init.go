package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/headline-goat/powergoat/internal/config"
	"github.com/headline-goat/powergoat/internal/power"
)

var (
	initPath  string
	initYes   bool
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a powergoat.yaml config file",
	Long: `Create a config file interactively. Asks for the stats engine, the
significance level, sequential testing and the server port; everything else
keeps its default and can be edited in the file afterwards.

Example:
  powergoat init
  powergoat init --yes --path ./config/powergoat.yaml`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initPath, "path", config.FileName+".yaml", "where to write the config file")
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "write the defaults without prompting")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}

// initAnswers are the settings the wizard asks for.
type initAnswers struct {
	Engine     power.EngineType
	Alpha      float64
	Sequential bool
	Port       int
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(initPath); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", initPath)
	}

	out := config.Default()
	if !initYes {
		answers, err := promptAnswers(out)
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) {
				return nil
			}
			return err
		}
		applyAnswers(out, answers)
	}

	if err := out.Validate(); err != nil {
		return err
	}
	if err := config.Write(out, initPath); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", initPath)
	return nil
}

func applyAnswers(c *config.Config, a initAnswers) {
	c.Stats.Engine = string(a.Engine)
	c.Stats.Alpha = a.Alpha
	c.Stats.SequentialTesting = a.Sequential
	c.Server.Port = a.Port
}

func promptAnswers(defaults *config.Config) (initAnswers, error) {
	var a initAnswers

	engines := []power.EngineType{power.EngineBayesian, power.EngineFrequentist}
	engineSelect := promptui.Select{
		Label: "Stats engine",
		Items: engines,
		Size:  len(engines),
	}
	idx, _, err := engineSelect.Run()
	if err != nil {
		return a, err
	}
	a.Engine = engines[idx]

	alphaPrompt := promptui.Prompt{
		Label:    "Significance level (alpha)",
		Default:  strconv.FormatFloat(defaults.Stats.Alpha, 'g', -1, 64),
		Validate: validateAlpha,
	}
	raw, err := alphaPrompt.Run()
	if err != nil {
		return a, err
	}
	a.Alpha, _ = strconv.ParseFloat(raw, 64)

	if a.Engine == power.EngineFrequentist {
		seqSelect := promptui.Select{
			Label: "Sequential testing",
			Items: []string{"off", "on"},
		}
		idx, _, err := seqSelect.Run()
		if err != nil {
			return a, err
		}
		a.Sequential = idx == 1
	}

	portPrompt := promptui.Prompt{
		Label:    "Server port",
		Default:  strconv.Itoa(defaults.Server.Port),
		Validate: validatePort,
	}
	raw, err = portPrompt.Run()
	if err != nil {
		return a, err
	}
	a.Port, _ = strconv.Atoi(raw)

	return a, nil
}

func validateAlpha(input string) error {
	v, err := strconv.ParseFloat(input, 64)
	if err != nil {
		return errors.New("must be a number")
	}
	if v <= 0 || v >= 0.5 {
		return errors.New("must be between 0 and 0.5")
	}
	return nil
}

func validatePort(input string) error {
	v, err := strconv.Atoi(input)
	if err != nil {
		return errors.New("must be a whole number")
	}
	if v < 1 || v > 65535 {
		return errors.New("must be between 1 and 65535")
	}
	return nil
}
