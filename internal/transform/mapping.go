package transform

import (
	"strconv"
	"strings"

	"github.com/roach88/lydata/internal/table"
)

// Func computes one destination cell from the row's source values. The
// values arrive in the order of Instruction.Columns.
type Func func(args []table.Value, kw Kwargs) (table.Value, error)

// Node is a sealed interface for mapping tree nodes. Only Branch and
// *Instruction implement it.
type Node interface {
	mappingNode()
}

// Entry is one labeled child of a Branch.
type Entry struct {
	Label string
	Node  Node
}

// Branch is an ordered group of labeled children. Order is preserved into
// the output column order.
type Branch []Entry

func (Branch) mappingNode() {}

// Instruction is a mapping leaf. It either fills a constant (HasDefault) or
// applies Func to the listed source columns row by row. When both are set
// the default wins and Func is never called.
type Instruction struct {
	Default    table.Value
	HasDefault bool

	Func     Func
	FuncName string // for error messages and documentation
	Columns  []SourceKey
	Kwargs   Kwargs

	Doc string
}

func (*Instruction) mappingNode() {}

// Const returns an instruction that fills every row with v.
func Const(v table.Value) *Instruction {
	if v == nil {
		v = table.Null{}
	}
	return &Instruction{Default: v, HasDefault: true}
}

// Apply returns an instruction that calls fn with the given source columns.
func Apply(name string, fn Func, columns ...SourceKey) *Instruction {
	return &Instruction{Func: fn, FuncName: name, Columns: columns}
}

// With sets the instruction's kwargs and returns it.
func (in *Instruction) With(kw Kwargs) *Instruction {
	in.Kwargs = kw
	return in
}

func (in *Instruction) check(path string) error {
	switch {
	case in == nil:
		return &ConfigError{Path: path, Message: "nil instruction"}
	case in.HasDefault:
		return nil
	case in.Func == nil:
		return &ConfigError{Path: path, Message: "instruction has neither default nor func"}
	}
	return nil
}

// Target is a flattened mapping entry: one destination column and how to
// compute it.
type Target struct {
	Key   table.Key
	Instr *Instruction
}

// IsPrivate reports whether a label is reserved for documentation, such as
// "__doc__". Private labels are dropped before a tree is processed.
func IsPrivate(label string) bool {
	return strings.HasPrefix(label, "_")
}

// StripPrivate returns a copy of b without private labels at any level.
func StripPrivate(b Branch) Branch {
	out := make(Branch, 0, len(b))
	for _, e := range b {
		if IsPrivate(e.Label) {
			continue
		}
		if sub, ok := e.Node.(Branch); ok {
			e.Node = StripPrivate(sub)
		}
		out = append(out, e)
	}
	return out
}

// Depth returns the uniform leaf depth of n. A leaf has depth 0. Mixed leaf
// depths or empty groups are configuration errors.
func Depth(n Node) (int, error) {
	return depth(n, "")
}

func depth(n Node, path string) (int, error) {
	switch node := n.(type) {
	case *Instruction:
		return 0, nil
	case Branch:
		if len(node) == 0 {
			return 0, &ConfigError{Path: path, Message: "empty mapping group"}
		}
		want := -1
		for _, e := range node {
			d, err := depth(e.Node, join(path, e.Label))
			if err != nil {
				return 0, err
			}
			if want >= 0 && d != want {
				return 0, &ConfigError{
					Path:    join(path, e.Label),
					Message: "leaves sit at different depths",
				}
			}
			want = d
		}
		return want + 1, nil
	case nil:
		return 0, &ConfigError{Path: path, Message: "nil node"}
	default:
		return 0, &ConfigError{Path: path, Message: "unknown node type"}
	}
}

// Flatten turns a uniform-depth tree into targets in tree order. A depth-3
// tree yields keys from its three label levels. A depth-1 tree is a flat map
// whose labels are domain/group/field paths.
func Flatten(b Branch) ([]Target, error) {
	d, err := Depth(b)
	if err != nil {
		return nil, err
	}
	var out []Target
	switch d {
	case table.HeaderRows:
		for _, e1 := range b {
			for _, e2 := range e1.Node.(Branch) {
				for _, e3 := range e2.Node.(Branch) {
					out = append(out, Target{
						Key:   table.K(e1.Label, e2.Label, e3.Label),
						Instr: e3.Node.(*Instruction),
					})
				}
			}
		}
	case 1:
		for _, e := range b {
			k, err := table.ParseKey(e.Label)
			if err != nil {
				return nil, &ConfigError{Path: e.Label, Message: err.Error()}
			}
			out = append(out, Target{Key: k, Instr: e.Node.(*Instruction)})
		}
	default:
		return nil, &ConfigError{Message: "mapping depth must be 3 (or 1 with path labels), got " + strconv.Itoa(d)}
	}
	return out, nil
}

// Mapping is a validated, flattened mapping spec. It is immutable once built.
type Mapping struct {
	targets []Target
}

// NewMapping strips private labels from root, checks its depth and leaves,
// and flattens it.
func NewMapping(root Branch) (*Mapping, error) {
	targets, err := Flatten(StripPrivate(root))
	if err != nil {
		return nil, err
	}
	return FlatMapping(targets...)
}

// FlatMapping builds a mapping from already flat targets.
func FlatMapping(targets ...Target) (*Mapping, error) {
	seen := make(map[table.Key]bool, len(targets))
	for _, t := range targets {
		if err := t.Instr.check(t.Key.String()); err != nil {
			return nil, err
		}
		if seen[t.Key] {
			return nil, &ConfigError{Path: t.Key.String(), Message: "duplicate destination column"}
		}
		seen[t.Key] = true
	}
	return &Mapping{targets: append([]Target(nil), targets...)}, nil
}

// Targets returns the destination columns in output order.
func (m *Mapping) Targets() []Target {
	return append([]Target(nil), m.targets...)
}

func join(path, label string) string {
	if path == "" {
		return label
	}
	return path + "/" + label
}
