package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gridforge/stencil/internal/ir"
)

// Scenario describes one conformance run: an operator definition, its
// inputs, and assertions over the final state.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Definition is the path to the CUE operator definition, relative
	// to the scenario file.
	Definition string `yaml:"definition"`

	// Operator selects one operator when the definition holds several.
	Operator string `yaml:"operator,omitempty"`

	// Data gives one array per tensor parameter.
	Data map[string]GridSpec `yaml:"data"`

	// Dims gives extents for dimensions the array shapes cannot
	// resolve.
	Dims map[string]int `yaml:"dims,omitempty"`

	// Autotune runs the block size search before the measured run.
	Autotune bool `yaml:"autotune,omitempty"`

	// Assertions validate the final arrays and the run summary.
	Assertions []Assertion `yaml:"assertions"`
}

// GridSpec describes one input array: its shape plus either a uniform
// fill or explicit row-major values.
type GridSpec struct {
	Shape  []int     `yaml:"shape"`
	Fill   float64   `yaml:"fill,omitempty"`
	Values []float64 `yaml:"values,omitempty"`
}

// Grid materializes the array.
func (s GridSpec) Grid() *ir.Grid {
	g := ir.NewGrid(s.Shape...)
	if len(s.Values) != 0 {
		copy(g.Data, s.Values)
		return g
	}
	if s.Fill != 0 {
		g.Fill(s.Fill)
	}
	return g
}

// LoadScenario reads and validates a scenario YAML file. Unknown fields
// are rejected so a typo never silently drops an assertion. The
// definition path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}

	if s.Definition != "" && !filepath.IsAbs(s.Definition) {
		s.Definition = filepath.Join(filepath.Dir(path), s.Definition)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Definition == "" {
		return fmt.Errorf("definition is required")
	}
	if _, err := os.Stat(s.Definition); err != nil {
		return fmt.Errorf("definition not found: %s", s.Definition)
	}
	if len(s.Data) == 0 {
		return fmt.Errorf("data is required")
	}
	for name, g := range s.Data {
		if len(g.Shape) == 0 {
			return fmt.Errorf("data %q needs a shape", name)
		}
		n := 1
		for _, e := range g.Shape {
			if e <= 0 {
				return fmt.Errorf("data %q has a non-positive extent", name)
			}
			n *= e
		}
		if len(g.Values) != 0 && len(g.Values) != n {
			return fmt.Errorf("data %q has %d values for shape %v", name, len(g.Values), g.Shape)
		}
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], s.Data); err != nil {
			return err
		}
	}
	return nil
}
