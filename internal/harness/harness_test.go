package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lydata/internal/table"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_FusedTableIsKept(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/usz_oropharynx.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	require.NotNil(t, result.Table)

	assert.True(t, result.Table.Has(table.K("CT", "ipsi", "II")))
	assert.Len(t, result.Table.KeysIn("max_llh"), 2)
	assert.Empty(t, result.Violations)

	sex, err := result.Table.Column(table.K("patient", "#", "sex"))
	require.NoError(t, err)
	assert.Equal(t, []table.Value{
		table.String("male"), table.String("female"), table.String("male"), table.String("male"),
	}, sex)

	date, err := result.Table.Column(table.K("patient", "#", "diagnose_date"))
	require.NoError(t, err)
	assert.Equal(t, table.String("2020-11-02"), date[1], "dotted dates are normalized")
}

func TestRun_FailedAssertions(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/usz_oropharynx.yaml")
	require.NoError(t, err)

	s.Combine = nil
	s.Assertions = []Assertion{
		{Type: AssertRowCount, Count: 5},
		{Type: AssertPortion, Where: []string{"hpv == True"}, Match: 1, Total: 4},
		{Type: AssertColumnValues, Column: "CT/ipsi/II", Values: []any{true, false, nil, false}},
		{Type: AssertSelect, Where: []string{"age >= 50"}, Count: 1},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "assertions[0]")
	assert.Contains(t, result.Errors[0], "5 row(s)")
	assert.Contains(t, result.Errors[1], "1/4")
	assert.Contains(t, result.Errors[2], "assertions[3]")

	assert.Contains(t, result.TraceText(), "assert[2] column_values: ok CT/ipsi/II")
	assert.Contains(t, result.TraceText(), "assert[0] row_count: FAIL")
}

func TestRun_UnexpectedViolations(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/usz_missing_prefix.yaml")
	require.NoError(t, err)

	s.Assertions = []Assertion{{Type: AssertRowCount, Count: 4}}
	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "tumor/1/stage_prefix", result.Violations[0].Column)
	assert.Contains(t, result.Errors, "1 unexpected schema violation(s)")
}

func TestRun_BrokenMapping(t *testing.T) {
	dir := t.TempDir()
	mapping := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(mapping, []byte("columns: {a/b/c: {func: no_such_func, columns: [x]}}\n"), 0o644))

	s := &Scenario{
		Name:       "broken",
		Raw:        "testdata/raw_usz.csv",
		Mapping:    mapping,
		Assertions: []Assertion{{Type: AssertRowCount}},
	}
	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load mapping")
}

func TestLoadScenario_Errors(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.csv")
	mapping := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(raw, []byte("a\n1\n"), 0o644))
	require.NoError(t, os.WriteFile(mapping, []byte("columns: {a/b/c: {default: 1}}\n"), 0o644))

	head := "name: s\ndescription: d\nraw: raw.csv\nmapping: mapping.yaml\n"
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown field", head + "assertion: []\n", "field assertion not found"},
		{"missing name", "description: d\nraw: raw.csv\nmapping: mapping.yaml\nassertions: [{type: row_count}]\n", "name is required"},
		{"missing raw file", "name: s\ndescription: d\nraw: nope.csv\nmapping: mapping.yaml\nassertions: [{type: row_count}]\n", "scenario input"},
		{"no assertions", head, "assertions list is required"},
		{"unknown assertion", head + "assertions: [{type: trace_count}]\n", `unknown assertion type "trace_count"`},
		{"select without where", head + "assertions: [{type: select, count: 1}]\n", "where is required"},
		{"bad portion", head + "assertions: [{type: portion, match: 3, total: 2}]\n", "match <= total"},
		{"column without key", head + "assertions: [{type: column_values}]\n", "column is required"},
		{"bad method", head + "combine: {method: vote}\nassertions: [{type: row_count}]\n", "combine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "scenario.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_ResolvesPaths(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/usz_oropharynx.yaml")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("testdata", "raw_usz.csv"), s.Raw)
	assert.Equal(t, filepath.Join("testdata", "mapping_usz.yaml"), s.Mapping)
	assert.Equal(t, []string{"CT", "MRI"}, s.Validate)
	require.NotNil(t, s.Combine)
	assert.Equal(t, "max_llh", s.Combine.Method)
	assert.Len(t, s.Assertions, 5)
}
