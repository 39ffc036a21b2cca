// Package compiler turns mapping files written in CUE or YAML into
// transform mappings and exclusion rules.
//
// A mapping file has three top-level fields:
//
//	header_rows: 1
//	exclude: [{column: "Exclusion", check: "equals", kwargs: {value: 1}}]
//	columns: {
//		patient: "#": age: {func: "robust_int", columns: ["age"]}
//		tumor: "1": subsite: {default: "C10.9"}
//	}
//
// Leaves are recognized by a default or func field. Labels starting with an
// underscore, such as "__doc__", are documentation and are ignored.
package compiler

import (
	"strconv"

	"github.com/roach88/lydata/internal/table"
	"github.com/roach88/lydata/internal/transform"
	"github.com/roach88/lydata/internal/transform/builtin"
)

// MappingFile is a compiled mapping file.
type MappingFile struct {
	Source     string
	HeaderRows int
	Mapping    *transform.Mapping
	Exclude    []transform.ExclusionRule
}

// location identifies where a node was declared.
type location struct {
	file         string
	line, column int
}

func (l location) errorf(field, msg string) *CompileError {
	return &CompileError{Field: field, Message: msg, File: l.file, Line: l.line, Column: l.column}
}

// leafSpec is the format-independent form of a mapping leaf.
type leafSpec struct {
	hasDefault bool
	def        any
	fn         string
	columns    []transform.SourceKey
	kwargs     map[string]any
	doc        string
	loc        location
}

func (s leafSpec) build(path string, reg *builtin.Registry) (*transform.Instruction, error) {
	if s.hasDefault {
		v, err := table.ValueOf(s.def)
		if err != nil {
			return nil, s.loc.errorf(path+".default", err.Error())
		}
		in := transform.Const(v)
		in.Doc = s.doc
		return in, nil
	}

	fn, ok := reg.Func(s.fn)
	if !ok {
		return nil, s.loc.errorf(path+".func", "unknown func "+strconv.Quote(s.fn))
	}
	in := transform.Apply(s.fn, fn, s.columns...).With(transform.Kwargs(s.kwargs))
	in.Doc = s.doc
	return in, nil
}

// excludeSpec is the format-independent form of an exclusion rule.
type excludeSpec struct {
	column transform.SourceKey
	check  string
	kwargs map[string]any
	loc    location
}

func (s excludeSpec) build(i int, reg *builtin.Registry) (transform.ExclusionRule, error) {
	field := "exclude[" + strconv.Itoa(i) + "]"
	if len(s.column) == 0 {
		return transform.ExclusionRule{}, s.loc.errorf(field+".column", "column is required")
	}
	check, err := reg.Check(s.check, transform.Kwargs(s.kwargs))
	if err != nil {
		return transform.ExclusionRule{}, s.loc.errorf(field+".check", err.Error())
	}
	return transform.ExclusionRule{
		Column: s.column,
		Check:  check,
		Name:   s.check + "(" + s.column.String() + ")",
	}, nil
}

var leafFields = map[string]bool{"default": true, "func": true, "columns": true, "kwargs": true}

func isLeaf(labels []string) bool {
	for _, l := range labels {
		if l == "default" || l == "func" {
			return true
		}
	}
	return false
}
