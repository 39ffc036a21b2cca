package fusion

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/lydata/internal/table"
)

// Kind separates imaging-style modalities from pathological ones.
type Kind string

const (
	Clinical     Kind = "clinical"
	Pathological Kind = "pathological"
)

// ModalityConfig is the diagnostic accuracy of one modality.
type ModalityConfig struct {
	Sens float64 `yaml:"sens" json:"sens"`
	Spec float64 `yaml:"spec" json:"spec"`
	Kind Kind    `yaml:"kind" json:"kind"`
}

// NewModalityConfig checks that sens and spec lie in [0.5, 1] and that kind
// is known. An empty kind means Clinical.
func NewModalityConfig(sens, spec float64, kind Kind) (ModalityConfig, error) {
	if kind == "" {
		kind = Clinical
	}
	c := ModalityConfig{Sens: sens, Spec: spec, Kind: kind}
	return c, c.validate()
}

func (c ModalityConfig) validate() error {
	if !(c.Sens >= 0.5 && c.Sens <= 1) {
		return errors.Newf("sensitivity %v is outside [0.5, 1]", c.Sens)
	}
	if !(c.Spec >= 0.5 && c.Spec <= 1) {
		return errors.Newf("specificity %v is outside [0.5, 1]", c.Spec)
	}
	switch c.Kind {
	case Clinical, Pathological:
		return nil
	}
	return errors.Newf("unknown modality kind %q", c.Kind)
}

// Modality is a named config.
type Modality struct {
	Name string
	ModalityConfig
}

// Modalities is an ordered, immutable modality registry. Fusion walks
// modalities in registry order.
type Modalities struct {
	names   []string
	configs map[string]ModalityConfig
}

// NewModalities validates every entry and rejects duplicate names.
func NewModalities(mods ...Modality) (*Modalities, error) {
	m := &Modalities{configs: make(map[string]ModalityConfig, len(mods))}
	for _, mod := range mods {
		if mod.Name == "" {
			return nil, errors.New("modality name is empty")
		}
		if _, dup := m.configs[mod.Name]; dup {
			return nil, errors.Newf("duplicate modality %q", mod.Name)
		}
		cfg, err := NewModalityConfig(mod.Sens, mod.Spec, mod.Kind)
		if err != nil {
			return nil, errors.Wrapf(err, "modality %s", mod.Name)
		}
		m.names = append(m.names, mod.Name)
		m.configs[mod.Name] = cfg
	}
	return m, nil
}

// DefaultModalities returns a fresh registry of the standard lydata
// modalities.
func DefaultModalities() *Modalities {
	m, err := NewModalities(
		Modality{"CT", ModalityConfig{Sens: 0.81, Spec: 0.76}},
		Modality{"MRI", ModalityConfig{Sens: 0.81, Spec: 0.63}},
		Modality{"PET", ModalityConfig{Sens: 0.79, Spec: 0.86}},
		Modality{"FNA", ModalityConfig{Sens: 0.80, Spec: 0.98, Kind: Pathological}},
		Modality{"diagnostic_consensus", ModalityConfig{Sens: 0.81, Spec: 0.86}},
		Modality{"pathology", ModalityConfig{Sens: 1, Spec: 1, Kind: Pathological}},
		Modality{"pCT", ModalityConfig{Sens: 0.81, Spec: 0.86}},
	)
	if err != nil {
		panic(err)
	}
	return m
}

// Names returns the modality names in order.
func (m *Modalities) Names() []string {
	return append([]string(nil), m.names...)
}

// Len is the number of modalities.
func (m *Modalities) Len() int {
	return len(m.names)
}

// Get returns the config for name.
func (m *Modalities) Get(name string) (ModalityConfig, bool) {
	c, ok := m.configs[name]
	return c, ok
}

// Only returns the registry restricted to names, keeping registry order.
// Unknown names are an error.
func (m *Modalities) Only(names ...string) (*Modalities, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := m.configs[n]; !ok {
			return nil, errors.Newf("unknown modality %q", n)
		}
		want[n] = true
	}
	out := &Modalities{configs: make(map[string]ModalityConfig, len(names))}
	for _, n := range m.names {
		if want[n] {
			out.names = append(out.names, n)
			out.configs[n] = m.configs[n]
		}
	}
	return out, nil
}

type modalityFile struct {
	Name string  `yaml:"name"`
	Sens float64 `yaml:"sens"`
	Spec float64 `yaml:"spec"`
	Kind Kind    `yaml:"kind"`
}

// ParseModalities reads a YAML list of modalities:
//
//	- name: CT
//	  sens: 0.81
//	  spec: 0.76
//	- name: FNA
//	  sens: 0.80
//	  spec: 0.98
//	  kind: pathological
//
// Unknown fields are rejected.
func ParseModalities(data []byte) (*Modalities, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var entries []modalityFile
	if err := dec.Decode(&entries); err != nil {
		return nil, errors.Wrap(err, "decode modalities")
	}
	mods := make([]Modality, len(entries))
	for i, e := range entries {
		mods[i] = Modality{Name: e.Name, ModalityConfig: ModalityConfig{Sens: e.Sens, Spec: e.Spec, Kind: e.Kind}}
	}
	return NewModalities(mods...)
}

// LoadModalities reads a modality file from disk.
func LoadModalities(path string) (*Modalities, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read modalities")
	}
	m, err := ParseModalities(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return m, nil
}

// NonModalityDomains are the top-level headers that never hold diagnoses.
func NonModalityDomains() []string {
	return []string{
		"patient", "tumor",
		"total_dissected", "positive_dissected",
		"enbloc_dissected", "enbloc_positive",
	}
}

// ModalitiesIn returns the top-level domains of t that are not in exclude.
// A nil exclude uses NonModalityDomains.
func ModalitiesIn(t *table.Table, exclude []string) []string {
	if exclude == nil {
		exclude = NonModalityDomains()
	}
	skip := make(map[string]bool, len(exclude))
	for _, d := range exclude {
		skip[d] = true
	}
	var out []string
	for _, d := range t.Domains() {
		if !skip[d] {
			out = append(out, d)
		}
	}
	return out
}
