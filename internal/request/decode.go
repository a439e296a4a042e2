// Package request decodes and validates calculation inputs coming from files,
// stdin or HTTP bodies.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/headline-goat/powergoat/internal/power"
)

// ErrUnsupportedFormat is returned for input files that are neither JSON nor
// YAML.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Format is an input encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension. "-" means stdin, which
// is read as JSON.
func FormatFor(path string) (Format, error) {
	if path == "-" {
		return FormatJSON, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
}

// Decode reads one document of the given format into v.
func Decode(r io.Reader, format Format, v any) error {
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("failed to decode JSON: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("failed to decode YAML: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return nil
}

// Load decodes the file at path, or stdin when path is "-", into v.
func Load(path string, stdin io.Reader, v any) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	if path == "-" {
		return Decode(stdin, format, v)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := Decode(f, format, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name so errors match what users wrote.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterStructValidation(validateMetric, power.MetricParams{})
}

// validateMetric rejects metrics without a relative scale: a binomial rate
// must lie strictly inside (0, 1), and a mean metric needs a non-zero mean
// and a positive standard deviation.
func validateMetric(sl validator.StructLevel) {
	m := sl.Current().Interface().(power.MetricParams)
	switch m.Type {
	case power.MetricBinomial:
		if m.ConversionRate <= 0 {
			sl.ReportError(m.ConversionRate, "conversionRate", "ConversionRate", "gt", "0")
		}
		if m.ConversionRate >= 1 {
			sl.ReportError(m.ConversionRate, "conversionRate", "ConversionRate", "lt", "1")
		}
	case power.MetricMean:
		if m.Mean == 0 {
			sl.ReportError(m.Mean, "mean", "Mean", "required", "")
		}
		if m.StandardDeviation <= 0 {
			sl.ReportError(m.StandardDeviation, "standardDeviation", "StandardDeviation", "gt", "0")
		}
	}
}

// Validate checks v's struct tags and flattens any failures into a single
// error of the form "field: rule; field: rule".
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation failed: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", fieldPath(fe.Namespace()), rule))
	}
	return &ValidationError{Fields: msgs}
}

// ValidationError lists every failed field rule.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Fields, "; ")
}

// fieldPath drops the root struct and embedded struct names from a validator
// namespace, leaving the JSON path the caller wrote.
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" && unicode.IsUpper(rune(p[0])) {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, ".")
}
