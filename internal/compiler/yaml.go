package compiler

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lydata/internal/transform"
	"github.com/roach88/lydata/internal/transform/builtin"
)

var topLevelFields = map[string]bool{"header_rows": true, "exclude": true, "columns": true}

// yamlExclude mirrors one entry of the exclude list. It is decoded strictly.
type yamlExclude struct {
	Column yaml.Node      `yaml:"column"`
	Check  string         `yaml:"check"`
	Kwargs map[string]any `yaml:"kwargs"`
}

// CompileMappingYAML parses a YAML mapping file. Key order in the columns
// tree is preserved into the output column order.
func CompileMappingYAML(data []byte, filename string, reg *builtin.Registry) (*MappingFile, error) {
	if reg == nil {
		reg = builtin.Default()
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &CompileError{Field: "yaml", Message: err.Error(), File: filename}
	}
	if len(doc.Content) == 0 {
		return nil, &CompileError{Field: "yaml", Message: "empty document", File: filename}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, yamlError(filename, root, "yaml", "top level must be a mapping")
	}

	mf := &MappingFile{Source: filename, HeaderRows: 1}
	var columns *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if transform.IsPrivate(key.Value) {
			continue
		}
		if !topLevelFields[key.Value] {
			return nil, yamlError(filename, key, key.Value, "unknown field")
		}
		switch key.Value {
		case "header_rows":
			var n int
			if err := val.Decode(&n); err != nil || n < 1 {
				return nil, yamlError(filename, val, "header_rows", "must be an integer of at least 1")
			}
			mf.HeaderRows = n
		case "exclude":
			rules, err := yamlExcludes(filename, val, reg)
			if err != nil {
				return nil, err
			}
			mf.Exclude = rules
		case "columns":
			columns = val
		}
	}
	if columns == nil {
		return nil, &CompileError{Field: "columns", Message: "columns is required", File: filename}
	}

	tree, err := yamlBranch(filename, columns, "columns", reg)
	if err != nil {
		return nil, err
	}
	m, err := transform.NewMapping(tree)
	if err != nil {
		return nil, yamlError(filename, columns, "columns", err.Error())
	}
	mf.Mapping = m
	return mf, nil
}

func yamlExcludes(file string, n *yaml.Node, reg *builtin.Registry) ([]transform.ExclusionRule, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, yamlError(file, n, "exclude", "must be a list")
	}
	var out []transform.ExclusionRule
	for i, item := range n.Content {
		var raw yamlExclude
		if err := strictDecode(item, &raw); err != nil {
			return nil, yamlError(file, item, fmt.Sprintf("exclude[%d]", i), err.Error())
		}
		col, err := yamlSourceKey(&raw.Column)
		if err != nil {
			return nil, yamlError(file, item, fmt.Sprintf("exclude[%d].column", i), err.Error())
		}
		spec := excludeSpec{column: col, check: raw.Check, kwargs: raw.Kwargs, loc: yamlLocation(file, item)}
		rule, err := spec.build(i, reg)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

func yamlBranch(file string, n *yaml.Node, path string, reg *builtin.Registry) (transform.Branch, error) {
	if n.Kind != yaml.MappingNode {
		return nil, yamlError(file, n, path, "must be a mapping or a leaf")
	}
	var out transform.Branch
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		label := key.Value
		if transform.IsPrivate(label) {
			continue
		}
		childPath := path + "." + label
		if isLeaf(yamlKeys(val)) {
			leaf, err := yamlLeaf(file, val, childPath)
			if err != nil {
				return nil, err
			}
			in, err := leaf.build(childPath, reg)
			if err != nil {
				return nil, err
			}
			out = append(out, transform.Entry{Label: label, Node: in})
			continue
		}
		sub, err := yamlBranch(file, val, childPath, reg)
		if err != nil {
			return nil, err
		}
		out = append(out, transform.Entry{Label: label, Node: sub})
	}
	return out, nil
}

func yamlKeys(n *yaml.Node) []string {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(n.Content)/2)
	for i := 0; i < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys
}

func yamlLeaf(file string, n *yaml.Node, path string) (leafSpec, error) {
	spec := leafSpec{loc: yamlLocation(file, n)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		switch {
		case key.Value == "__doc__":
			_ = val.Decode(&spec.doc)
		case transform.IsPrivate(key.Value):
		case key.Value == "default":
			var v any
			if err := val.Decode(&v); err != nil {
				return spec, yamlError(file, val, path+".default", err.Error())
			}
			spec.hasDefault = true
			spec.def = v
		case key.Value == "func":
			if err := val.Decode(&spec.fn); err != nil {
				return spec, yamlError(file, val, path+".func", "must be a string")
			}
		case key.Value == "columns":
			if val.Kind != yaml.SequenceNode {
				return spec, yamlError(file, val, path+".columns", "must be a list")
			}
			for _, item := range val.Content {
				k, err := yamlSourceKey(item)
				if err != nil {
					return spec, yamlError(file, item, path+".columns", err.Error())
				}
				spec.columns = append(spec.columns, k)
			}
		case key.Value == "kwargs":
			if err := val.Decode(&spec.kwargs); err != nil {
				return spec, yamlError(file, val, path+".kwargs", "must be a mapping")
			}
		default:
			return spec, yamlError(file, key, path+"."+key.Value, "unknown leaf field")
		}
	}
	return spec, nil
}

// yamlSourceKey accepts "age" or [Bauwens, Database, 0_lvl_2].
func yamlSourceKey(n *yaml.Node) (transform.SourceKey, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return transform.Source(n.Value), nil
	case yaml.SequenceNode:
		var levels []string
		if err := n.Decode(&levels); err != nil {
			return nil, err
		}
		return transform.Source(levels...), nil
	case 0:
		return nil, nil
	default:
		return nil, fmt.Errorf("source key must be a string or list of strings")
	}
}

// strictDecode decodes n rejecting unknown fields, like a KnownFields decoder.
func strictDecode(n *yaml.Node, out any) error {
	b, err := yaml.Marshal(n)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(out)
}

func yamlLocation(file string, n *yaml.Node) location {
	return location{file: file, line: n.Line, column: n.Column}
}

func yamlError(file string, n *yaml.Node, field, msg string) *CompileError {
	return yamlLocation(file, n).errorf(field, msg)
}
