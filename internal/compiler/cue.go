package compiler

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/cockroachdb/errors"

	"github.com/roach88/lydata/internal/transform"
	"github.com/roach88/lydata/internal/transform/builtin"
)

// CompileMappingString compiles CUE source text. filename is used in error
// positions only.
func CompileMappingString(src, filename string, reg *builtin.Registry) (*MappingFile, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	mf, err := CompileMapping(v, reg)
	if err != nil {
		return nil, err
	}
	mf.Source = filename
	return mf, nil
}

// CompileMapping parses a CUE mapping file value.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(src)
//	mf, err := CompileMapping(v, builtin.Default())
func CompileMapping(v cue.Value, reg *builtin.Registry) (*MappingFile, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError("cue", err)
	}
	if reg == nil {
		reg = builtin.Default()
	}
	mf := &MappingFile{HeaderRows: 1}

	if hr := v.LookupPath(cue.ParsePath("header_rows")); hr.Exists() {
		n, err := hr.Int64()
		if err != nil {
			return nil, formatCUEError("header_rows", err)
		}
		if n < 1 {
			return nil, cueError("header_rows", "must be at least 1", hr.Pos())
		}
		mf.HeaderRows = int(n)
	}

	if ex := v.LookupPath(cue.ParsePath("exclude")); ex.Exists() {
		specs, err := cueExcludes(ex)
		if err != nil {
			return nil, err
		}
		for i, s := range specs {
			rule, err := s.build(i, reg)
			if err != nil {
				return nil, err
			}
			mf.Exclude = append(mf.Exclude, rule)
		}
	}

	cols := v.LookupPath(cue.ParsePath("columns"))
	if !cols.Exists() {
		return nil, cueError("columns", "columns is required", v.Pos())
	}
	root, err := cueBranch(cols, "columns", reg)
	if err != nil {
		return nil, err
	}
	m, err := transform.NewMapping(root)
	if err != nil {
		return nil, cueError("columns", err.Error(), cols.Pos())
	}
	mf.Mapping = m
	return mf, nil
}

func cueBranch(v cue.Value, path string, reg *builtin.Registry) (transform.Branch, error) {
	if v.Kind() != cue.StructKind {
		return nil, cueError(path, "must be a struct or a leaf", v.Pos())
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(path, err)
	}
	var out transform.Branch
	for iter.Next() {
		label := iter.Label()
		if transform.IsPrivate(label) {
			continue
		}
		child := iter.Value()
		childPath := path + "." + label

		labels, err := cueLabels(child)
		if err != nil {
			return nil, cueError(childPath, err.Error(), child.Pos())
		}
		if isLeaf(labels) {
			leaf, err := cueLeaf(child, childPath, labels)
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
		sub, err := cueBranch(child, childPath, reg)
		if err != nil {
			return nil, err
		}
		out = append(out, transform.Entry{Label: label, Node: sub})
	}
	return out, nil
}

func cueLabels(v cue.Value) ([]string, error) {
	if v.Kind() != cue.StructKind {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, err
	}
	var labels []string
	for iter.Next() {
		labels = append(labels, iter.Label())
	}
	return labels, nil
}

func cueLeaf(v cue.Value, path string, labels []string) (leafSpec, error) {
	loc := cueLocation(v)
	spec := leafSpec{loc: loc}
	for _, l := range labels {
		if !leafFields[l] && !transform.IsPrivate(l) {
			return spec, cueError(path+"."+l, "unknown leaf field", v.Pos())
		}
	}
	if doc := v.LookupPath(cue.MakePath(cue.Str("__doc__"))); doc.Exists() {
		spec.doc, _ = doc.String()
	}
	if d := v.LookupPath(cue.ParsePath("default")); d.Exists() {
		val, err := cueNative(d)
		if err != nil {
			return spec, cueError(path+".default", err.Error(), d.Pos())
		}
		spec.hasDefault = true
		spec.def = val
	}
	if f := v.LookupPath(cue.ParsePath("func")); f.Exists() {
		name, err := f.String()
		if err != nil {
			return spec, formatCUEError(path+".func", err)
		}
		spec.fn = name
	}
	if c := v.LookupPath(cue.ParsePath("columns")); c.Exists() {
		cols, err := cueColumns(c, path+".columns")
		if err != nil {
			return spec, err
		}
		spec.columns = cols
	}
	if k := v.LookupPath(cue.ParsePath("kwargs")); k.Exists() {
		val, err := cueNative(k)
		if err != nil {
			return spec, cueError(path+".kwargs", err.Error(), k.Pos())
		}
		kw, ok := val.(map[string]any)
		if !ok {
			return spec, cueError(path+".kwargs", "must be a struct", k.Pos())
		}
		spec.kwargs = kw
	}
	return spec, nil
}

func cueColumns(v cue.Value, path string) ([]transform.SourceKey, error) {
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(path, err)
	}
	var out []transform.SourceKey
	for list.Next() {
		key, err := cueSourceKey(list.Value())
		if err != nil {
			return nil, cueError(path, err.Error(), list.Value().Pos())
		}
		out = append(out, key)
	}
	return out, nil
}

// cueSourceKey accepts "age" or ["Bauwens", "Database", "0_lvl_2"].
func cueSourceKey(v cue.Value) (transform.SourceKey, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		return transform.Source(s), err
	case cue.ListKind:
		val, err := cueNative(v)
		if err != nil {
			return nil, err
		}
		var key transform.SourceKey
		for _, item := range val.([]any) {
			s, ok := item.(string)
			if !ok {
				return nil, errors.Newf("source key levels must be strings, got %T", item)
			}
			key = append(key, s)
		}
		return key, nil
	default:
		return nil, errors.Newf("source key must be a string or list of strings, got %v", v.Kind())
	}
}

func cueExcludes(v cue.Value) ([]excludeSpec, error) {
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError("exclude", err)
	}
	var out []excludeSpec
	for list.Next() {
		item := list.Value()
		spec := excludeSpec{loc: cueLocation(item)}
		col := item.LookupPath(cue.ParsePath("column"))
		if col.Exists() {
			key, err := cueSourceKey(col)
			if err != nil {
				return nil, cueError("exclude.column", err.Error(), col.Pos())
			}
			spec.column = key
		}
		check := item.LookupPath(cue.ParsePath("check"))
		if !check.Exists() {
			return nil, cueError("exclude.check", "check is required", item.Pos())
		}
		name, err := check.String()
		if err != nil {
			return nil, formatCUEError("exclude.check", err)
		}
		spec.check = name
		if k := item.LookupPath(cue.ParsePath("kwargs")); k.Exists() {
			val, err := cueNative(k)
			if err != nil {
				return nil, cueError("exclude.kwargs", err.Error(), k.Pos())
			}
			spec.kwargs, _ = val.(map[string]any)
		}
		out = append(out, spec)
	}
	return out, nil
}

// cueNative converts a concrete CUE value into plain Go values.
func cueNative(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind:
		return v.Float64()
	case cue.StringKind:
		return v.String()
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		out := []any{}
		for iter.Next() {
			item, err := cueNative(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		out := map[string]any{}
		for iter.Next() {
			item, err := cueNative(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Label()] = item
		}
		return out, nil
	default:
		return nil, errors.Newf("value is not concrete (kind %v)", v.IncompleteKind())
	}
}

func cueLocation(v cue.Value) location {
	pos := v.Pos()
	if !pos.IsValid() {
		return location{}
	}
	return location{file: pos.Filename(), line: pos.Line(), column: pos.Column()}
}
