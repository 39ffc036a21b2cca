package table

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV_Golden(t *testing.T) {
	tbl := buildTable(t, 2, map[Key][]Value{
		keyAge: {Int(61), Int(52)},
		keyHPV: {Bool(true), Null{}},
		keyCT:  {Null{}, Bool(false)},
	}, keyAge, keyHPV, keyCT)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "canonical_write", buf.Bytes())
}

func TestReadCSV_RoundTrip(t *testing.T) {
	src := "patient,patient,CT\n#,#,ipsi\nage,hpv_status,II\n61,True,\n52,,False\n"

	tbl, err := ReadCSV(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []Key{keyAge, keyHPV, keyCT}, tbl.Keys())

	ct, _ := tbl.Column(keyCT)
	assert.Equal(t, []Value{Null{}, Bool(false)}, ct)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	assert.Equal(t, src, buf.String())
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\nc,d\n"))
	assert.Error(t, err, "two header rows")

	_, err = ReadCSV(strings.NewReader("a,a\nb,b\nc,c\n1,2\n"))
	assert.ErrorContains(t, err, "duplicate column")
}
