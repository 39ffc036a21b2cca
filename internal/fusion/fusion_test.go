package fusion

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/lydata/internal/table"
)

func tri(vs ...any) []table.Value {
	out := make([]table.Value, len(vs))
	for i, v := range vs {
		out[i] = table.MustValueOf(v)
	}
	return out
}

func build(t *testing.T, rows int, cols map[table.Key][]table.Value, order ...table.Key) *table.Table {
	t.Helper()
	tbl := table.New(rows)
	for _, k := range order {
		require.NoError(t, tbl.Set(k, cols[k]))
	}
	return tbl
}

func column(t *testing.T, tbl *table.Table, k table.Key) []table.Value {
	t.Helper()
	col, err := tbl.Column(k)
	require.NoError(t, err)
	return col
}

func TestNewModalityConfig(t *testing.T) {
	_, err := NewModalityConfig(0.8, 0.9, "")
	require.NoError(t, err)

	for _, c := range []struct {
		sens, spec float64
		kind       Kind
	}{
		{0.4, 0.9, Clinical},
		{0.8, 1.1, Clinical},
		{0.8, 0.9, "radiological"},
	} {
		_, err := NewModalityConfig(c.sens, c.spec, c.kind)
		assert.Error(t, err, "%+v", c)
	}
}

func TestDefaultModalities(t *testing.T) {
	m := DefaultModalities()
	assert.Equal(t, []string{"CT", "MRI", "PET", "FNA", "diagnostic_consensus", "pathology", "pCT"}, m.Names())
	fna, ok := m.Get("FNA")
	require.True(t, ok)
	assert.Equal(t, ModalityConfig{Sens: 0.80, Spec: 0.98, Kind: Pathological}, fna)

	sub, err := m.Only("pathology", "CT")
	require.NoError(t, err)
	assert.Equal(t, []string{"CT", "pathology"}, sub.Names())

	_, err = m.Only("SPECT")
	assert.Error(t, err)
}

func TestParseModalities(t *testing.T) {
	m, err := ParseModalities([]byte(`
- name: CT
  sens: 0.81
  spec: 0.76
- name: FNA
  sens: 0.8
  spec: 0.98
  kind: pathological
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"CT", "FNA"}, m.Names())
	ct, _ := m.Get("CT")
	assert.Equal(t, Clinical, ct.Kind)

	_, err = ParseModalities([]byte("- name: CT\n  sens: 0.81\n  spec: 0.76\n  accuracy: 1\n"))
	assert.Error(t, err)
	_, err = ParseModalities([]byte("- name: CT\n  sens: 0.3\n  spec: 0.76\n"))
	assert.ErrorContains(t, err, "sensitivity")
	_, err = ParseModalities([]byte("- {name: CT, sens: 0.8, spec: 0.8}\n- {name: CT, sens: 0.8, spec: 0.8}\n"))
	assert.ErrorContains(t, err, "duplicate")
}

func TestLoadModalities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modalities.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- {name: MRI, sens: 0.81, spec: 0.63}\n"), 0o644))
	m, err := LoadModalities(path)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	_, err = LoadModalities(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestModalitiesIn(t *testing.T) {
	tbl, err := table.ReadCSV(strings.NewReader(
		"patient,tumor,CT,CT,total_dissected,MRI\n#,1,ipsi,contra,ipsi,ipsi\nage,subsite,II,II,II,II\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"CT", "MRI"}, ModalitiesIn(tbl, nil))
	assert.Equal(t, []string{"tumor", "CT", "total_dissected", "MRI"}, ModalitiesIn(tbl, []string{"patient"}))
}

func TestFuse(t *testing.T) {
	mods := DefaultModalities()
	cfg := func(names ...string) []ModalityConfig {
		out := make([]ModalityConfig, len(names))
		for i, n := range names {
			out[i], _ = mods.Get(n)
		}
		return out
	}
	mcp := cfg("MRI", "CT", "pathology")
	T, F, U := table.True, table.False, table.Unknown

	tests := []struct {
		name   string
		obs    []table.Tri
		method Method
		want   table.Tri
	}{
		{"two positive imaging", []table.Tri{T, T, U}, MaxLLH, T},
		{"two negative imaging", []table.Tri{F, F, U}, MaxLLH, F},
		{"all unknown ties to healthy", []table.Tri{U, U, U}, MaxLLH, F},
		{"pathology overrides imaging", []table.Tri{F, F, T}, MaxLLH, T},
		{"negative pathology overrides", []table.Tri{T, F, F}, MaxLLH, F},
		{"single positive", []table.Tri{U, T, U}, MaxLLH, T},
		{"rank all unknown", []table.Tri{U, U, U}, Rank, F},
		{"rank pathology negative", []table.Tri{T, T, F}, Rank, F},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fuse(tt.obs, mcp, tt.method))
		})
	}

	// Rank lets the strongest single observation decide where max_llh
	// would compound the weaker ones.
	sym := []ModalityConfig{{Sens: 0.9, Spec: 0.9}, {Sens: 0.7, Spec: 0.7}, {Sens: 0.7, Spec: 0.7}, {Sens: 0.7, Spec: 0.7}}
	assert.Equal(t, T, Fuse([]table.Tri{T, F, F, F}, sym, Rank))
	assert.Equal(t, F, Fuse([]table.Tri{T, F, F, F}, sym, MaxLLH))
}

func TestCombine(t *testing.T) {
	mri, ct, path := table.K("MRI", "ipsi", "I"), table.K("CT", "ipsi", "I"), table.K("pathology", "ipsi", "I")
	ctII, info := table.K("CT", "contra", "II"), table.K("CT", "info", "date")
	tbl := build(t, 4, map[table.Key][]table.Value{
		mri:  tri(false, true, true, nil),
		ct:   tri(false, true, false, true),
		path: tri(true, nil, false, nil),
		ctII: tri(true, false, nil, nil),
		info: tri("2020-01-01", nil, nil, nil),
	}, mri, ct, info, ctII, path)

	out, err := Combine(context.Background(), tbl, nil, MaxLLH)
	require.NoError(t, err)
	assert.Equal(t, []table.Key{
		table.K("max_llh", "ipsi", "I"),
		table.K("max_llh", "contra", "II"),
	}, out.Keys())
	assert.Equal(t, tri(true, true, false, true), column(t, out, table.K("max_llh", "ipsi", "I")))
	assert.Equal(t, tri(true, false, false, false), column(t, out, table.K("max_llh", "contra", "II")))

	merged, err := tbl.Update(out)
	require.NoError(t, err)
	assert.Equal(t, tbl.Width()+2, merged.Width())
	assert.Equal(t, tri(false, true, true, nil), column(t, merged, mri))
}

func TestCombine_SkipsAbsentModalities(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := &Engine{Logger: zap.New(core).Sugar()}

	k := table.K("CT", "ipsi", "II")
	tbl := build(t, 2, map[table.Key][]table.Value{k: tri(true, false)}, k)
	out, err := e.Combine(context.Background(), tbl, Rank)
	require.NoError(t, err)
	assert.Equal(t, tri(true, false), column(t, out, table.K("rank", "ipsi", "II")))
	assert.Equal(t, DefaultModalities().Len()-1, logs.FilterMessage("modality not in table, skipping").Len())
}

func TestCombine_Errors(t *testing.T) {
	k := table.K("CT", "ipsi", "II")
	tbl := build(t, 2, map[table.Key][]table.Value{k: tri(true, "maybe")}, k)

	_, err := Combine(context.Background(), tbl, nil, "vote")
	assert.ErrorContains(t, err, "unknown combine method")

	_, err = Combine(context.Background(), tbl, nil, MaxLLH)
	assert.ErrorContains(t, err, "is not a diagnosis")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Combine(ctx, tbl, nil, MaxLLH)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCombine_NoModalities(t *testing.T) {
	k := table.K("patient", "#", "age")
	tbl := build(t, 3, map[table.Key][]table.Value{k: tri(1, 2, 3)}, k)
	out, err := Combine(context.Background(), tbl, nil, MaxLLH)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, 0, out.Width())
}

func TestInferSublevels(t *testing.T) {
	mi, mc, mii, miv := table.K("MRI", "ipsi", "I"), table.K("MRI", "contra", "I"), table.K("MRI", "ipsi", "II"), table.K("MRI", "ipsi", "IV")
	ct := table.K("CT", "ipsi", "I")
	tbl := build(t, 4, map[table.Key][]table.Value{
		mi:  tri(true, false, false, nil),
		mc:  tri(false, true, false, nil),
		mii: tri(false, false, true, nil),
		miv: tri(false, false, true, nil),
		ct:  tri(true, false, false, nil),
	}, mi, mc, mii, miv, ct)

	out, err := InferSublevels(tbl, LevelOptions{Modalities: []string{"MRI"}})
	require.NoError(t, err)
	assert.Equal(t, []table.Key{
		table.K("MRI", "ipsi", "Ia"), table.K("MRI", "ipsi", "Ib"),
		table.K("MRI", "ipsi", "IIa"), table.K("MRI", "ipsi", "IIb"),
		table.K("MRI", "contra", "Ia"), table.K("MRI", "contra", "Ib"),
	}, out.Keys())
	assert.Equal(t, tri(nil, false, false, nil), column(t, out, table.K("MRI", "ipsi", "Ia")))
	assert.Equal(t, tri(false, false, nil, nil), column(t, out, table.K("MRI", "ipsi", "IIb")))
	assert.Equal(t, tri(false, nil, false, nil), column(t, out, table.K("MRI", "contra", "Ib")))
}

func TestInferSuperlevels(t *testing.T) {
	ia, ib := table.K("MRI", "ipsi", "Ia"), table.K("MRI", "ipsi", "Ib")
	iia, iib := table.K("MRI", "contra", "IIa"), table.K("MRI", "contra", "IIb")
	va := table.K("MRI", "ipsi", "Va")
	tbl := build(t, 5, map[table.Key][]table.Value{
		ia:  tri(true, false, false, nil, false),
		ib:  tri(false, true, false, nil, nil),
		iia: tri(false, false, nil, nil, nil),
		iib: tri(false, true, true, nil, nil),
		va:  tri(true, true, true, true, true),
	}, ia, ib, iia, iib, va)

	out, err := InferSuperlevels(tbl, LevelOptions{Modalities: []string{"MRI"}})
	require.NoError(t, err)
	assert.Equal(t, []table.Key{table.K("MRI", "ipsi", "I"), table.K("MRI", "contra", "II")}, out.Keys(),
		"V has no Vb column and is skipped")
	assert.Equal(t, tri(true, true, false, nil, false), column(t, out, table.K("MRI", "ipsi", "I")))
	assert.Equal(t, tri(false, true, true, nil, nil), column(t, out, table.K("MRI", "contra", "II")))
}

func TestInferAndCombine(t *testing.T) {
	// CT reports only sublevels, MRI only the superlevel.
	cta, ctb := table.K("CT", "ipsi", "IIa"), table.K("CT", "ipsi", "IIb")
	mri := table.K("MRI", "ipsi", "II")
	tbl := build(t, 3, map[table.Key][]table.Value{
		cta: tri(false, true, nil),
		ctb: tri(false, false, nil),
		mri: tri(nil, false, false),
	}, cta, ctb, mri)

	out, err := InferAndCombine(context.Background(), tbl, nil, MaxLLH, LevelOptions{})
	require.NoError(t, err)

	// Superlevel from CT sublevels.
	assert.Equal(t, tri(false, true, nil), column(t, out, table.K("CT", "ipsi", "II")))
	// Sublevels from MRI superlevel; known CT sublevels are kept.
	assert.Equal(t, tri(nil, false, false), column(t, out, table.K("MRI", "ipsi", "IIa")))
	assert.Equal(t, tri(false, true, nil), column(t, out, cta))
	// Fused superlevel: CT negative, CT positive vs MRI negative, MRI negative.
	assert.Equal(t, tri(false, true, false), column(t, out, table.K("max_llh", "ipsi", "II")))
	assert.Equal(t, tri(false, false, false), column(t, out, table.K("max_llh", "ipsi", "IIb")))

	assert.Equal(t, 3, tbl.Width(), "input is not modified")
}
