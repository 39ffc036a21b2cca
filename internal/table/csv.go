package table

import (
	"encoding/csv"
	"io"

	"github.com/cockroachdb/errors"
)

// HeaderRows is the number of header rows in a canonical CSV file.
const HeaderRows = 3

// ReadCSV parses a canonical CSV with exactly three header rows. Cells are
// typed with Infer.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read canonical csv")
	}
	if len(records) < HeaderRows {
		return nil, errors.Newf("canonical csv has %d header rows, want %d", len(records), HeaderRows)
	}

	width := len(records[0])
	keys := make([]Key, width)
	for c := 0; c < width; c++ {
		var levels [HeaderRows]string
		for h := 0; h < HeaderRows; h++ {
			if c >= len(records[h]) {
				return nil, errors.Newf("header row %d has %d columns, want %d", h+1, len(records[h]), width)
			}
			levels[h] = records[h][c]
		}
		keys[c] = K(levels[0], levels[1], levels[2])
	}

	body := records[HeaderRows:]
	t := New(len(body))
	for c, k := range keys {
		if t.Has(k) {
			return nil, errors.Newf("duplicate column %s", k)
		}
		col := make([]Value, len(body))
		for r, rec := range body {
			if len(rec) != width {
				return nil, errors.Newf("line %d has %d fields, want %d", r+HeaderRows+1, len(rec), width)
			}
			col[r] = Infer(rec[c])
		}
		if err := t.Set(k, col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// WriteCSV writes t as a canonical CSV: three header rows, then one line per
// row. Null cells are empty and booleans are written as True/False.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	headers := [HeaderRows][]string{}
	for _, k := range t.keys {
		headers[0] = append(headers[0], k.Domain)
		headers[1] = append(headers[1], k.Group)
		headers[2] = append(headers[2], k.Field)
	}
	for _, h := range headers {
		if err := cw.Write(h); err != nil {
			return errors.Wrap(err, "write header")
		}
	}

	rec := make([]string, len(t.keys))
	for r := 0; r < t.rows; r++ {
		for c := range t.keys {
			rec[c] = t.cols[c][r].String()
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "write row %d", r)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}
