package table

import (
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/unicode/norm"
)

// Kind identifies the dynamic type of a cell.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a sealed interface for cell values.
// Only Null, Bool, Int, Float and String implement it.
type Value interface {
	Kind() Kind
	String() string
	cellValue() // Sealed
}

// Null marks a missing cell. For involvement columns it means "not observed",
// which is distinct from Bool(false).
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) String() string { return "" }
func (Null) cellValue() {}

// Bool is a boolean cell.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (b Bool) String() string {
	if b {
		return "True"
	}
	return "False"
}
func (Bool) cellValue() {}

// Int is an integer cell.
type Int int64

func (Int) Kind() Kind { return KindInt }
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (Int) cellValue() {}

// Float is a floating point cell.
type Float float64

func (Float) Kind() Kind { return KindFloat }
func (f Float) String() string { return strconv.FormatFloat(float64(f), 'f', -1, 64) }
func (Float) cellValue() {}

// String is a text cell. Text read from files is NFC-normalized.
type String string

func (String) Kind() Kind { return KindString }
func (s String) String() string { return string(s) }
func (String) cellValue() {}

// IsNull reports whether v is missing. A nil Value counts as missing.
func IsNull(v Value) bool {
	return v == nil || v.Kind() == KindNull
}

// Number returns v as float64 if it is an Int or Float.
func Number(v Value) (float64, bool) {
	switch x := v.(type) {
	case Int:
		return float64(x), true
	case Float:
		return float64(x), true
	default:
		return 0, false
	}
}

// Equal compares two cells. Int and Float compare numerically; nulls are
// never equal to anything, including other nulls.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return false
	}
	if x, ok := Number(a); ok {
		y, ok := Number(b)
		return ok && x == y
	}
	switch x := a.(type) {
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	}
	return false
}

// ValueOf converts a Go native into a cell Value.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(x), nil
	case int32:
		return Int(x), nil
	case int64:
		return Int(x), nil
	case float32:
		return floatValue(float64(x)), nil
	case float64:
		return floatValue(x), nil
	case string:
		return String(x), nil
	default:
		return nil, errors.Newf("unsupported cell type %T", v)
	}
}

// MustValueOf is ValueOf for literals known to be valid.
func MustValueOf(v any) Value {
	val, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return val
}

func floatValue(f float64) Value {
	if math.IsNaN(f) {
		return Null{}
	}
	return Float(f)
}

// Infer types a raw CSV cell. Empty cells and NaN become Null; True/False in
// any case become Bool; integers and floats become Int and Float; anything
// else is kept as trimmed, NFC-normalized text.
func Infer(cell string) Value {
	s := strings.TrimSpace(cell)
	if s == "" {
		return Null{}
	}
	switch strings.ToLower(s) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	case "nan":
		return Null{}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) {
		return Float(f)
	}
	return String(norm.NFC.String(s))
}
