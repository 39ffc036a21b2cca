package transform

import (
	"encoding/csv"
	"io"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/lydata/internal/table"
)

// SourceKey is the header path of a raw column. Single-header exports use
// one level; spreadsheet exports with stacked headers use several.
type SourceKey []string

// Source builds a SourceKey from its header levels.
func Source(levels ...string) SourceKey {
	return SourceKey(levels)
}

func (k SourceKey) String() string {
	return strings.Join(k, "/")
}

func (k SourceKey) id() string {
	return strings.Join(k, "\x1f")
}

// RawTable is an institutional export before transformation.
type RawTable struct {
	rows    int
	headers []SourceKey
	index   map[string]int
	cols    [][]table.Value
}

// NewRawTable creates an empty raw table with a fixed number of rows.
func NewRawTable(rows int) *RawTable {
	return &RawTable{rows: rows, index: make(map[string]int)}
}

// Len returns the number of rows.
func (r *RawTable) Len() int { return r.rows }

// Headers returns the column header paths in order.
func (r *RawTable) Headers() []SourceKey {
	return append([]SourceKey(nil), r.headers...)
}

// AddColumn appends a column. Header paths must be unique.
func (r *RawTable) AddColumn(key SourceKey, values []table.Value) error {
	if len(values) != r.rows {
		return errors.Newf("raw column %s has %d values, table has %d rows", key, len(values), r.rows)
	}
	if _, dup := r.index[key.id()]; dup {
		return errors.Newf("duplicate raw column %s", key)
	}
	r.index[key.id()] = len(r.headers)
	r.headers = append(r.headers, key)
	r.cols = append(r.cols, values)
	return nil
}

// Column returns the values of the raw column key.
func (r *RawTable) Column(key SourceKey) ([]table.Value, error) {
	i, ok := r.index[key.id()]
	if !ok {
		return nil, errors.Wrapf(table.ErrColumnNotFound, "raw column %s", key)
	}
	return r.cols[i], nil
}

// ReadRawCSV parses an export with headerRows stacked header rows. An empty
// cell in an upper header row inherits the value to its left when both
// columns share the same parents, which is how merged spreadsheet cells come
// out of a CSV export.
func ReadRawCSV(rd io.Reader, headerRows int) (*RawTable, error) {
	if headerRows < 1 {
		return nil, errors.Newf("header rows must be at least 1, got %d", headerRows)
	}
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read raw csv")
	}
	if len(records) < headerRows {
		return nil, errors.Newf("raw csv has %d lines, want at least %d header rows", len(records), headerRows)
	}

	width := len(records[headerRows-1])
	keys := make([]SourceKey, width)
	for c := range width {
		keys[c] = make(SourceKey, headerRows)
	}
	for h := 0; h < headerRows; h++ {
		for c := range width {
			cell := ""
			if c < len(records[h]) {
				cell = strings.TrimSpace(records[h][c])
			}
			if cell == "" && h < headerRows-1 && c > 0 && slices.Equal(keys[c][:h], keys[c-1][:h]) {
				cell = keys[c-1][h]
			}
			keys[c][h] = cell
		}
	}

	body := records[headerRows:]
	raw := NewRawTable(len(body))
	for c, k := range keys {
		col := make([]table.Value, len(body))
		for r, rec := range body {
			if c < len(rec) {
				col[r] = table.Infer(rec[c])
			} else {
				col[r] = table.Null{}
			}
		}
		if err := raw.AddColumn(k, col); err != nil {
			return nil, err
		}
	}
	return raw, nil
}
