package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	keyAge = K("patient", "#", "age")
	keyHPV = K("patient", "#", "hpv_status")
	keyCT  = K("CT", "ipsi", "II")
)

func buildTable(t *testing.T, rows int, cols map[Key][]Value, order ...Key) *Table {
	t.Helper()
	tbl := New(rows)
	for _, k := range order {
		require.NoError(t, tbl.Set(k, cols[k]))
	}
	return tbl
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("CT/ipsi/IIa")
	require.NoError(t, err)
	assert.Equal(t, K("CT", "ipsi", "IIa"), k)
	assert.Equal(t, "CT/ipsi/IIa", k.String())

	_, err = ParseKey("age")
	assert.Error(t, err)
	_, err = ParseKey("patient//age")
	assert.Error(t, err)
}

func TestInfer(t *testing.T) {
	tests := []struct {
		cell string
		want Value
	}{
		{"", Null{}},
		{"  ", Null{}},
		{"NaN", Null{}},
		{"True", Bool(true)},
		{"false", Bool(false)},
		{"61", Int(61)},
		{"-1", Int(-1)},
		{"61.5", Float(61.5)},
		{"male", String("male")},
		{"C10.2", String("C10.2")},
		{" 2", Int(2)},
		{" male ", String("male")},
		{"Zu\u0308rich ", String("Z\u00fcrich")},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			assert.Equal(t, tt.want, Infer(tt.cell))
		})
	}
}

func TestTriOf(t *testing.T) {
	cases := []struct {
		in   Value
		want Tri
		ok   bool
	}{
		{Null{}, Unknown, true},
		{nil, Unknown, true},
		{Bool(true), True, true},
		{Bool(false), False, true},
		{Int(1), True, true},
		{Int(0), False, true},
		{Int(2), Unknown, false},
		{String("yes"), Unknown, false},
	}
	for _, c := range cases {
		got, ok := TriOf(c.in)
		assert.Equal(t, c.want, got, "TriOf(%v)", c.in)
		assert.Equal(t, c.ok, ok, "TriOf(%v) ok", c.in)
	}
	assert.Equal(t, Null{}, Unknown.Value())
	assert.Equal(t, Bool(false), False.Value())
}

func TestEqual_NullNeverEqual(t *testing.T) {
	assert.True(t, Equal(Int(3), Float(3)))
	assert.False(t, Equal(Null{}, Null{}))
	assert.False(t, Equal(String("3"), Int(3)))
	assert.True(t, Equal(Bool(true), Bool(true)))
}

func TestTable_SetAndColumn(t *testing.T) {
	tbl := New(2)
	require.NoError(t, tbl.Set(keyAge, []Value{Int(61), nil}))

	col, err := tbl.Column(keyAge)
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(61), Null{}}, col)

	// Returned columns are copies.
	col[0] = Int(0)
	again, _ := tbl.Column(keyAge)
	assert.Equal(t, Int(61), again[0])

	_, err = tbl.Column(keyHPV)
	assert.ErrorIs(t, err, ErrColumnNotFound)

	assert.Error(t, tbl.Set(keyHPV, []Value{Bool(true)}))
}

func TestTable_DomainsAndKeysIn(t *testing.T) {
	tbl := buildTable(t, 1, map[Key][]Value{
		keyAge: {Int(1)},
		keyCT:  {Null{}},
		keyHPV: {Null{}},
	}, keyAge, keyCT, keyHPV)

	assert.Equal(t, []string{"patient", "CT"}, tbl.Domains())
	assert.Equal(t, []Key{keyAge, keyHPV}, tbl.KeysIn("patient"))
}

func TestTable_SelectAndTake(t *testing.T) {
	tbl := buildTable(t, 3, map[Key][]Value{
		keyAge: {Int(61), Int(52), Int(73)},
	}, keyAge)

	sel, err := tbl.Select([]bool{true, false, true})
	require.NoError(t, err)
	col, _ := sel.Column(keyAge)
	assert.Equal(t, []Value{Int(61), Int(73)}, col)
	assert.Equal(t, 3, tbl.Len(), "input untouched")

	_, err = tbl.Select([]bool{true})
	assert.Error(t, err)

	taken, err := tbl.Take([]int{2, 0})
	require.NoError(t, err)
	col, _ = taken.Column(keyAge)
	assert.Equal(t, []Value{Int(73), Int(61)}, col)
}

func TestTable_UpdateFillsOnlyMissing(t *testing.T) {
	base := buildTable(t, 3, map[Key][]Value{
		keyCT: {Bool(true), Null{}, Bool(false)},
	}, keyCT)
	patch := buildTable(t, 3, map[Key][]Value{
		keyCT:  {Bool(false), Bool(true), Bool(true)},
		keyHPV: {Null{}, Bool(true), Null{}},
	}, keyCT, keyHPV)

	out, err := base.Update(patch)
	require.NoError(t, err)

	ct, _ := out.Column(keyCT)
	assert.Equal(t, []Value{Bool(true), Bool(true), Bool(false)}, ct)
	hpv, _ := out.Column(keyHPV)
	assert.Equal(t, []Value{Null{}, Bool(true), Null{}}, hpv)
	assert.Equal(t, []Key{keyCT, keyHPV}, out.Keys())

	orig, _ := base.Column(keyCT)
	assert.Equal(t, Null{}, orig[1], "update must not touch the receiver")

	_, err = base.Update(New(1))
	assert.Error(t, err)
}

func TestConcat(t *testing.T) {
	a := buildTable(t, 1, map[Key][]Value{keyAge: {Int(61)}}, keyAge)
	b := buildTable(t, 2, map[Key][]Value{
		keyHPV: {Bool(true), Bool(false)},
		keyAge: {Int(52), Int(73)},
	}, keyHPV, keyAge)

	out := Concat(a, b)
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, []Key{keyAge, keyHPV}, out.Keys())
	hpv, _ := out.Column(keyHPV)
	assert.Equal(t, []Value{Null{}, Bool(true), Bool(false)}, hpv)
}

func TestFingerprint(t *testing.T) {
	a := New(2)
	require.NoError(t, a.Set(K("patient", "#", "age"), []Value{Int(61), Null{}}))
	b := a.Clone()

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
	assert.Len(t, fa, 32)

	require.NoError(t, b.Set(K("patient", "#", "age"), []Value{Int(61), Int(52)}))
	fb, err = Fingerprint(b)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fb)
}
