package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gridforge/stencil/internal/ir"
)

// Manifest is the YAML description of one run's inputs: an array per grid
// and a size per dimension the arrays cannot resolve.
//
//	data:
//	  u:
//	    shape: [2, 128]
//	    fill: 1.0
//	dims:
//	  time: 100
type Manifest struct {
	Data map[string]DataSpec `yaml:"data"`
	Dims map[string]int      `yaml:"dims"`
}

// DataSpec describes one array: its shape plus either a uniform fill or
// explicit row-major values.
type DataSpec struct {
	Shape  []int     `yaml:"shape"`
	Fill   float64   `yaml:"fill"`
	Values []float64 `yaml:"values"`
}

// LoadManifest reads and validates a YAML data manifest.
func LoadManifest(path string) (*Manifest, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(src, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	for name, d := range m.Data {
		if len(d.Shape) == 0 {
			return nil, fmt.Errorf("manifest %s: data %q needs a shape", path, name)
		}
		n := 1
		for _, s := range d.Shape {
			if s <= 0 {
				return nil, fmt.Errorf("manifest %s: data %q has a non-positive extent", path, name)
			}
			n *= s
		}
		if len(d.Values) != 0 && len(d.Values) != n {
			return nil, fmt.Errorf("manifest %s: data %q has %d values for shape %v",
				path, name, len(d.Values), d.Shape)
		}
	}
	return &m, nil
}

// Grid materializes one array from the manifest.
func (d DataSpec) Grid() *ir.Grid {
	g := ir.NewGrid(d.Shape...)
	if len(d.Values) != 0 {
		copy(g.Data, d.Values)
		return g
	}
	if d.Fill != 0 {
		g.Fill(d.Fill)
	}
	return g
}

// bind assembles positional data and keyword sizes for the named tensor
// parameters, in declaration order.
func (m *Manifest) bind(params []ir.Parameter) ([]*ir.Grid, map[string]ir.Value, error) {
	var data []*ir.Grid
	for _, p := range params {
		if p.Kind != ir.TensorParam {
			continue
		}
		d, ok := m.Data[p.Name]
		if !ok {
			return nil, nil, fmt.Errorf("manifest has no data for grid %q", p.Name)
		}
		data = append(data, d.Grid())
	}
	kw := make(map[string]ir.Value, len(m.Dims))
	for name, v := range m.Dims {
		kw[name] = v
	}
	return data, kw, nil
}
