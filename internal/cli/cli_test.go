package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"text/tabwriter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/headline-goat/powergoat/internal/config"
	"github.com/headline-goat/powergoat/internal/decision"
	"github.com/headline-goat/powergoat/internal/power"
	"github.com/headline-goat/powergoat/internal/request"
)

// execute runs the root command in a fresh working directory with flags
// reset to their defaults.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	configPath, outputFormat, logLevel = "", formatTable, ""
	criteriaFile = ""
	initPath, initYes, initForce = config.FileName+".yaml", false, false
	port = 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const powerYAML = `
nVariations: 2
nWeeks: 4
usersPerWeek: 10000
statsEngineSettings:
  type: frequentist
metrics:
  signup:
    type: binomial
    conversionRate: 0.1
    effectSize: 0.1
`

const powerJSON = `{
	"nVariations": 2,
	"nWeeks": 2,
	"usersPerWeek": 10000,
	"statsEngineSettings": {"type": "frequentist"},
	"metrics": {"revenue": {"type": "mean", "mean": 10, "standardDeviation": 20, "effectSize": 0.01}}
}`

const mdeJSON = `{"metric": {"type": "binomial", "conversionRate": 0.1, "effectSize": 0.05}, "users": 10000, "statsEngineSettings": {"type": "frequentist"}}`

func TestPower_Table(t *testing.T) {
	path := writeFile(t, "power.yaml", powerYAML)

	out, err := execute(t, "", "power", path)

	require.NoError(t, err)
	assert.Contains(t, out, "FILE: "+path)
	assert.Contains(t, out, "signup")
	assert.Contains(t, out, "<- target")
	assert.Contains(t, out, "Recommended duration: 4 weeks")
}

func TestPower_ManyFilesKeepArgumentOrder(t *testing.T) {
	yamlPath := writeFile(t, "a.yaml", powerYAML)
	jsonPath := writeFile(t, "b.json", powerJSON)

	out, err := execute(t, "", "power", "-o", "json", yamlPath, jsonPath)

	require.NoError(t, err)
	var got []PowerFileResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)

	assert.Equal(t, yamlPath, got[0].File)
	require.NotNil(t, got[0].Result.WeekThreshold)
	assert.Equal(t, 4, *got[0].Result.WeekThreshold)

	assert.Equal(t, jsonPath, got[1].File)
	assert.Len(t, got[1].Result.Weeks, 2)
	assert.Nil(t, got[1].Result.SampleSizeAndRuntime["revenue"])
	assert.Nil(t, got[1].Result.WeekThreshold)
}

func TestPower_InvalidFileFailsTheBatch(t *testing.T) {
	good := writeFile(t, "a.yaml", powerYAML)
	bad := writeFile(t, "b.yaml", "nVariations: 1\nnWeeks: 4\nusersPerWeek: 100\nmetrics: {}\n")

	_, err := execute(t, "", "power", good, bad)

	require.Error(t, err)
	var verr *request.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "nVariations: gte=2")
}

func TestPower_DegenerateMetricRejected(t *testing.T) {
	path := writeFile(t, "power.yaml", strings.Replace(powerYAML, "conversionRate: 0.1", "conversionRate: 0", 1))

	_, err := execute(t, "", "power", path)

	var verr *request.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "metrics[signup].conversionRate: gt=0")
}

func TestPrintPowerTable_ErrorResult(t *testing.T) {
	var out bytes.Buffer
	tw := tabwriter.NewWriter(&out, 0, 0, 2, ' ', 0)

	printPowerTable(tw, PowerFileResult{
		File:   "broken.yaml",
		Result: power.PowerCalculationResult{Type: power.ResultError, Description: "metric mean must be finite and non-zero."},
	})
	require.NoError(t, tw.Flush())

	assert.Contains(t, out.String(), "FILE: broken.yaml")
	assert.Contains(t, out.String(), "Error: metric mean must be finite and non-zero.")
	assert.NotContains(t, out.String(), "WEEK")
}

func TestMDE_Stdin(t *testing.T) {
	out, err := execute(t, mdeJSON, "mde", "-o", "json", "-")

	require.NoError(t, err)
	var got power.MDEResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.OK())

	metric := power.MetricParams{Type: power.MetricBinomial, ConversionRate: 0.1, EffectSize: 0.05}
	assert.Equal(t, power.FindMDEFrequentist(metric, 0.8, 10000, 2, 0.05, 0), got)
}

func TestMDE_ErrorResult(t *testing.T) {
	body := `{"metric": {"type": "binomial", "conversionRate": 0.1}, "users": 10000, "alpha": 0.5, "targetPower": 0.3, "statsEngineSettings": {"type": "frequentist"}}`

	out, err := execute(t, body, "mde", "-o", "yaml", "-")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCalculation))
	assert.Contains(t, err.Error(), "power must be greater than alpha.")
	assert.Contains(t, out, "type: error")
}

func TestMDE_ConfigFileSetsEngine(t *testing.T) {
	cfgPath := writeFile(t, "powergoat.yaml", "stats:\n  engine: frequentist\n  alpha: 0.1\n")
	path := writeFile(t, "mde.json", `{"metric": {"type": "binomial", "conversionRate": 0.1}, "users": 10000}`)

	out, err := execute(t, "", "mde", "--config", cfgPath, "-o", "json", path)

	require.NoError(t, err)
	var got power.MDEResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	metric := power.MetricParams{Type: power.MetricBinomial, ConversionRate: 0.1}
	assert.Equal(t, power.FindMDEFrequentist(metric, 0.8, 10000, 2, 0.1, 0), got)
}

func TestMidExperiment_Table(t *testing.T) {
	path := writeFile(t, "mid.yaml", `
newDailyUsers: 1000
secondPeriodSampleSize: 10000
numVariations: 2
numGoalMetrics: 1
variationWeights: [0.5, 0.5]
responses:
  - firstPeriodPairwiseSampleSize: 1000
    firstPeriodSampleSize: 1000
    effectSize: 0
    sigmahat2Delta: 0.01
    sigma2Posterior: 0.00005
    deltaPosterior: 0
    powerAdditionalUsers: 5000
`)

	out, err := execute(t, "", "midexp", path)

	require.NoError(t, err)
	assert.Contains(t, out, "ADDITIONAL DAYS")
	assert.Contains(t, out, "Low power warning")
	assert.Contains(t, out, "METRIC")
}

func TestDecide_Table(t *testing.T) {
	path := writeFile(t, "decision.yaml", `
goalMetrics: ["conversion"]
guardrailMetrics: ["latency"]
daysNeeded: 0
results:
  variations:
    - variationId: "1"
      goalMetrics:
        conversion: {status: won, superStatSigStatus: neutral}
      guardrailMetrics:
        latency: {status: neutral}
`)

	out, err := execute(t, "", "decide", path)

	require.NoError(t, err)
	assert.Contains(t, out, "RECOMMENDATION: ship-now")
	assert.Contains(t, out, "POWER REACHED: yes")
	assert.Contains(t, out, "super-stat-sig")
}

func TestDecide_DefaultCriteriaRollsBack(t *testing.T) {
	path := writeFile(t, "decision.yaml", `
goalMetrics: ["conversion"]
guardrailMetrics: ["latency"]
daysNeeded: 0
results:
  variations:
    - variationId: "1"
      goalMetrics:
        conversion: {status: won, superStatSigStatus: neutral}
      guardrailMetrics:
        latency: {status: lost}
`)

	out, err := execute(t, "", "decide", path)

	require.NoError(t, err)
	// guardrails are read the same way in both passes, so the first pass
	// already rolls back
	assert.Contains(t, out, "RECOMMENDATION: rollback-now")
	assert.Contains(t, out, "POWER REACHED: no")
	assert.Contains(t, out, "SEQUENTIAL: yes")
}

func TestDecide_NotYetPowered(t *testing.T) {
	body := `{"goalMetrics": ["c"], "guardrailMetrics": [], "results": {"variations": [{"variationId": "1", "goalMetrics": {"c": {"status": "won", "superStatSigStatus": "neutral"}}}]}}`

	out, err := execute(t, body, "decide", "-o", "json", "-")

	require.NoError(t, err)
	var got request.DecisionResponse
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Nil(t, got.Recommendation)
	assert.Equal(t, decision.ActionShip, got.Ordinary[0].Action)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no data", `{"users": 0}`, "STATUS: no-data"},
		{"srm", `{"users": 1000, "srmPValue": 0.0001, "daysRunning": 10}`, "sample ratio mismatch  yes"},
		{"before min duration", `{"users": 1000, "daysRunning": 2}`, "STATUS: before-min-duration"},
		{"days left", `{"users": 1000, "daysRunning": 10, "daysLeft": 3}`, "DAYS LEFT: 3"},
		{"nothing", `{"users": 1000, "daysRunning": 10}`, "STATUS: nothing to report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.body, "status", "-")

			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestCriteria_DefaultRoundTrips(t *testing.T) {
	out, err := execute(t, "", "criteria", "-o", "yaml")

	require.NoError(t, err)
	var got decision.Criteria
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, decision.DefaultCriteria(), got)
}

func TestCriteria_Table(t *testing.T) {
	out, err := execute(t, "", "criteria")

	require.NoError(t, err)
	assert.Contains(t, out, "CRITERIA: Clear Signals")
	assert.Contains(t, out, "all goals statsigWinner and none guardrails statsigLoser")
	assert.Contains(t, out, "otherwise")
}

func TestCriteria_InvalidFile(t *testing.T) {
	path := writeFile(t, "criteria.yaml", `
rules:
  - conditions:
      - {metrics: goals, match: most, direction: statsigWinner}
    action: ship
defaultAction: review
`)

	_, err := execute(t, "", "criteria", "--file", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rules[0].conditions[0].match: oneof=all any none")
}

func TestInit_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "powergoat.yaml")

	out, err := execute(t, "", "init", "--yes", "--path", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	got, err := config.Load(config.New(), path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), got)

	_, err = execute(t, "", "init", "--yes", "--path", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "", "init", "--yes", "--force", "--path", path)
	assert.NoError(t, err)
}

func TestApplyAnswers(t *testing.T) {
	c := config.Default()

	applyAnswers(c, initAnswers{Engine: power.EngineFrequentist, Alpha: 0.1, Sequential: true, Port: 9000})

	assert.Equal(t, "frequentist", c.Stats.Engine)
	assert.Equal(t, 0.1, c.Stats.Alpha)
	assert.True(t, c.Stats.SequentialTesting)
	assert.Equal(t, 9000, c.Server.Port)
	assert.NoError(t, c.Validate())
}

func TestPromptValidators(t *testing.T) {
	assert.NoError(t, validateAlpha("0.05"))
	assert.Error(t, validateAlpha("abc"))
	assert.Error(t, validateAlpha("0"))
	assert.Error(t, validateAlpha("0.5"))

	assert.NoError(t, validatePort("8080"))
	assert.Error(t, validatePort("http"))
	assert.Error(t, validatePort("70000"))
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := execute(t, "", "criteria", "-o", "xml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output format "xml"`)
}
