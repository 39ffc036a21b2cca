package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lydata/internal/table"
	"github.com/roach88/lydata/internal/transform"
)

func run(t *testing.T, name string, kw transform.Kwargs, args ...table.Value) table.Value {
	t.Helper()
	fn, ok := Default().Func(name)
	require.True(t, ok, "func %q registered", name)
	v, err := fn(args, kw)
	require.NoError(t, err)
	return v
}

func TestRobustInt(t *testing.T) {
	assert.Equal(t, table.Int(61), run(t, "robust_int", nil, table.String("61")))
	assert.Equal(t, table.Int(61), run(t, "robust_int", nil, table.Float(61)))
	assert.Equal(t, table.Null{}, run(t, "robust_int", nil, table.Float(61.5)))
	assert.Equal(t, table.Null{}, run(t, "robust_int", nil, table.String("unknown")))
	assert.Equal(t, table.Null{}, run(t, "robust_int", nil, table.Null{}))
}

func TestRobustDate(t *testing.T) {
	assert.Equal(t, table.String("2021-03-15"), run(t, "robust_date", nil, table.String("15.03.2021")))
	assert.Equal(t, table.String("2021-03-15"), run(t, "robust_date", nil, table.Int(20210315)))
	assert.Equal(t, table.Null{}, run(t, "robust_date", nil, table.String("soon")))

	custom := transform.Kwargs{"layouts": []any{"01/02/2006"}}
	assert.Equal(t, table.String("2021-03-15"), run(t, "robust_date", custom, table.String("03/15/2021")))
}

func TestStripLettersAndCategory(t *testing.T) {
	assert.Equal(t, table.Int(2), run(t, "strip_letters", nil, table.String("2a")))
	assert.Equal(t, table.Int(4), run(t, "strip_letters", nil, table.Int(4)))

	fn, _ := Default().Func("strip_letters")
	_, err := fn([]table.Value{table.String("x")}, nil)
	assert.Error(t, err)

	assert.Equal(t, table.Int(2), run(t, "category", nil, table.String("pN2+")))
	assert.Equal(t, table.Int(4), run(t, "category", nil, table.String("cT4a")))
	assert.Equal(t, table.Null{}, run(t, "category", nil, table.String("Tx")))
}

func TestBooleanFuncs(t *testing.T) {
	assert.Equal(t, table.Bool(false), run(t, "nonzero", nil, table.Int(0)))
	assert.Equal(t, table.Bool(true), run(t, "nonzero", nil, table.Int(2)))
	assert.Equal(t, table.Null{}, run(t, "nonzero", nil, table.Null{}))

	assert.Equal(t, table.Bool(false), run(t, "parse_pathology", nil, table.Float(0)))
	assert.Equal(t, table.Bool(true), run(t, "parse_pathology", nil, table.Int(3)))
	assert.Equal(t, table.Null{}, run(t, "parse_pathology", nil, table.Null{}))

	fn, _ := Default().Func("parse_pathology")
	_, err := fn([]table.Value{table.String("many")}, nil)
	assert.Error(t, err)
}

func TestMapValues(t *testing.T) {
	kw := transform.Kwargs{"mapping": map[string]any{"1": "male", "2": "female"}}
	assert.Equal(t, table.String("male"), run(t, "map_values", kw, table.Int(1)))
	assert.Equal(t, table.Null{}, run(t, "map_values", kw, table.Int(9)))

	kw["default"] = "female"
	assert.Equal(t, table.String("female"), run(t, "map_values", kw, table.Int(9)))

	fn, _ := Default().Func("map_values")
	_, err := fn([]table.Value{table.Int(1)}, nil)
	assert.ErrorContains(t, err, "mapping")
}

func TestTextFuncs(t *testing.T) {
	assert.Equal(t, table.String("C10.2"), run(t, "icd_subsite", nil, table.String("Oropharynx (C10.2)")))
	assert.Equal(t, table.String("C01"), run(t, "icd_subsite", nil, table.String("C01")))
	assert.Equal(t, table.Null{}, run(t, "icd_subsite", nil, table.String("none")))

	assert.Equal(t, table.String("Centre Leon Berard"), run(t, "fold_text", nil, table.String("Centre Léon Bérard")))
	assert.Equal(t, table.String("centre leon berard"),
		run(t, "fold_text", transform.Kwargs{"lower": true}, table.String("Centre Léon Bérard")))

	assert.Equal(t, table.String("12"), run(t, "string", nil, table.Int(12)))
}

func TestSumAndCoalesce(t *testing.T) {
	assert.Equal(t, table.Int(5), run(t, "sum", nil, table.Int(2), table.String("3")))
	assert.Equal(t, table.Null{}, run(t, "sum", nil, table.Int(2), table.Null{}))
	assert.Equal(t, table.Int(7), run(t, "first_non_null", nil, table.Null{}, table.Int(7), table.Int(8)))
}

func TestChecks(t *testing.T) {
	reg := Default()
	col := []table.Value{table.Null{}, table.String("n"), table.String("y")}

	check, err := reg.Check("present_and_not", transform.Kwargs{"value": "n"})
	require.NoError(t, err)
	mask, err := check(col)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true}, mask)

	check, err = reg.Check("is_null", nil)
	require.NoError(t, err)
	mask, _ = check(col)
	assert.Equal(t, []bool{true, false, false}, mask)

	check, err = reg.Check("not_in", transform.Kwargs{"values": []any{"n", "y"}})
	require.NoError(t, err)
	mask, _ = check(col)
	assert.Equal(t, []bool{true, false, false}, mask)

	check, err = reg.Check("equals", transform.Kwargs{"value": 1})
	require.NoError(t, err)
	mask, _ = check([]table.Value{table.Int(1), table.Float(1), table.Int(2)})
	assert.Equal(t, []bool{true, true, false}, mask)

	_, err = reg.Check("nope", nil)
	assert.ErrorContains(t, err, "unknown exclusion check")
}

func TestFuncNamesSorted(t *testing.T) {
	names := Default().FuncNames()
	assert.Contains(t, names, "robust_int")
	assert.IsNonDecreasing(t, names)
}
