package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/headline-goat/powergoat/internal/request"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// ErrCalculation marks a calculation that returned an error result.
var ErrCalculation = errors.New("calculation failed")

type defaultable interface {
	ApplyDefaults(request.Defaults)
}

// loadRequest decodes path into req, fills configured defaults and
// validates the result.
func loadRequest(path string, stdin io.Reader, req defaultable) error {
	if err := request.Load(path, stdin, req); err != nil {
		return err
	}
	req.ApplyDefaults(cfg.Defaults())
	if err := request.Validate(req); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("request loaded", "path", path)
	return nil
}

// render writes v in the selected format, using table for the table view.
func render(w io.Writer, v any, table func(tw *tabwriter.Writer)) error {
	switch outputFormat {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

func formatPercent(rate float64) string {
	if rate == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", rate*100)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
