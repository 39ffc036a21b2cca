package harness

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/lydata/internal/fusion"
)

// Scenario defines one conformance run of the pipeline.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario covers.
	Description string `yaml:"description"`

	// Raw is the institutional export to transform.
	Raw string `yaml:"raw"`

	// Mapping is the CUE or YAML mapping file.
	Mapping string `yaml:"mapping"`

	// Validate lists the modalities whose columns are validated. Empty
	// skips validation.
	Validate []string `yaml:"validate,omitempty"`

	// Combine fuses the modalities after import when set.
	Combine *CombineStep `yaml:"combine,omitempty"`

	// Assertions are evaluated against the final table and the store.
	Assertions []Assertion `yaml:"assertions"`
}

// CombineStep configures fusion.
type CombineStep struct {
	Method     string   `yaml:"method"`
	Infer      bool     `yaml:"infer,omitempty"`
	Modalities []string `yaml:"modalities,omitempty"`
}

// Assertion checks one property of the result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Column is the canonical key (column_values).
	Column string `yaml:"column,omitempty"`

	// Values are the expected cells (column_values). null is a missing cell.
	Values []any `yaml:"values,omitempty"`

	// Where and Given are conditions in query syntax (portion, select).
	Where []string `yaml:"where,omitempty"`
	Given []string `yaml:"given,omitempty"`

	// Match and Total are the expected portion.
	Match int `yaml:"match,omitempty"`
	Total int `yaml:"total,omitempty"`

	// Count is the expected number (row_count, select, violations).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount     = "row_count"
	AssertColumnValues = "column_values"
	AssertPortion      = "portion"
	AssertSelect       = "select"
	AssertViolations   = "violations"
)

// LoadScenario reads and checks a scenario file. Unknown fields are
// rejected. Raw and mapping paths are resolved against the scenario's
// directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario file")
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrapf(err, "parse scenario %s", path)
	}

	base := filepath.Dir(path)
	for _, p := range []*string{&s.Raw, &s.Mapping} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}

	if err := validateScenario(&s); err != nil {
		return nil, errors.Wrapf(err, "invalid scenario %s", path)
	}
	return &s, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if s.Raw == "" {
		return errors.New("raw is required")
	}
	if s.Mapping == "" {
		return errors.New("mapping is required")
	}
	for _, p := range []string{s.Raw, s.Mapping} {
		if _, err := os.Stat(p); err != nil {
			return errors.Wrap(err, "scenario input")
		}
	}
	if s.Combine != nil {
		if _, err := fusion.ParseMethod(s.Combine.Method); err != nil {
			return errors.Wrap(err, "combine")
		}
	}
	if len(s.Assertions) == 0 {
		return errors.New("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return errors.Newf("assertions[%d]: type is required", index)
	case AssertRowCount, AssertViolations:
		if a.Count < 0 {
			return errors.Newf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertColumnValues:
		if a.Column == "" {
			return errors.Newf("assertions[%d]: column is required for column_values", index)
		}
	case AssertPortion:
		if a.Match < 0 || a.Total < a.Match {
			return errors.Newf("assertions[%d]: need 0 <= match <= total for portion", index)
		}
	case AssertSelect:
		if len(a.Where) == 0 {
			return errors.Newf("assertions[%d]: where is required for select", index)
		}
	default:
		return errors.Newf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
