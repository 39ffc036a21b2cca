package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/roach88/lydata/internal/logger"
	"github.com/roach88/lydata/internal/query"
	"github.com/roach88/lydata/internal/querysql"
	"github.com/roach88/lydata/internal/table"
)

// ErrNotFound is returned when no dataset has the requested name.
var ErrNotFound = errors.New("dataset not found")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(row rowScanner) (Dataset, error) {
	var d Dataset
	err := row.Scan(&d.ID, &d.Name, &d.Fingerprint, &d.Rows, &d.Columns, &d.Seq)
	return d, err
}

// ListDatasets returns every import in import order.
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListDatasets(ctx context.Context) ([]Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, fingerprint, row_count, col_count, seq
		FROM datasets
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "query datasets")
	}
	defer rows.Close()

	out := []Dataset{}
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan dataset")
		}
		out = append(out, d)
	}
	return out, errors.Wrap(rows.Err(), "iterate datasets")
}

// Latest returns the most recent import of name.
func (s *Store) Latest(ctx context.Context, name string) (Dataset, error) {
	d, err := scanDataset(s.db.QueryRowContext(ctx, `
		SELECT id, name, fingerprint, row_count, col_count, seq
		FROM datasets
		WHERE name = ?
		ORDER BY seq DESC
		LIMIT 1
	`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return Dataset{}, errors.Wrapf(ErrNotFound, "%s", name)
	}
	if err != nil {
		return Dataset{}, errors.Wrapf(err, "look up dataset %s", name)
	}
	return d, nil
}

// LoadDataset rebuilds the latest import of name as a table.
func (s *Store) LoadDataset(ctx context.Context, name string) (*table.Table, error) {
	d, err := s.Latest(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.loadTable(ctx, d, nil)
}

// DeleteDataset removes every import of name and returns how many were
// removed. Columns and cells go with them.
func (s *Store) DeleteDataset(ctx context.Context, name string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, name)
	if err != nil {
		return 0, errors.Wrapf(err, "delete dataset %s", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return 0, errors.Wrapf(ErrNotFound, "%s", name)
	}
	s.logger.Infow("dataset deleted", logger.FieldDataset, name, "imports", n)
	return int(n), nil
}

// RowIndexes runs p as SQL against the latest import of name and returns
// the matching row positions in ascending order.
func (s *Store) RowIndexes(ctx context.Context, name string, p query.Predicate, r query.Resolver) ([]int, error) {
	d, err := s.Latest(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.rowIndexes(ctx, d, p, r)
}

// SelectRows returns the rows of the latest import of name where p holds.
// The predicate is compiled to SQL; match leaves are rejected with
// querysql.ErrNotCompilable.
func (s *Store) SelectRows(ctx context.Context, name string, p query.Predicate, r query.Resolver) (*table.Table, error) {
	d, err := s.Latest(ctx, name)
	if err != nil {
		return nil, err
	}
	idx, err := s.rowIndexes(ctx, d, p, r)
	if err != nil {
		return nil, err
	}
	return s.loadTable(ctx, d, idx)
}

func (s *Store) rowIndexes(ctx context.Context, d Dataset, p query.Predicate, r query.Resolver) ([]int, error) {
	cols, err := s.columnIndex(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	c := &querysql.Compiler{
		Resolver: r,
		ColumnIndex: func(k table.Key) (int, error) {
			i, ok := cols[k]
			if !ok {
				return 0, errors.Wrapf(table.ErrColumnNotFound, "%s in %s", k, d.Name)
			}
			return i, nil
		},
	}
	stmt, params, err := c.Compile(d.ID, p)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, errors.Wrap(err, "select rows")
	}
	defer rows.Close()

	out := []int{}
	for rows.Next() {
		var i int
		if err := rows.Scan(&i); err != nil {
			return nil, errors.Wrap(err, "scan row index")
		}
		out = append(out, i)
	}
	return out, errors.Wrap(rows.Err(), "iterate rows")
}

func (s *Store) columnKeys(ctx context.Context, id string) ([]table.Key, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, grp, field
		FROM columns
		WHERE dataset_id = ?
		ORDER BY col_idx ASC
	`, id)
	if err != nil {
		return nil, errors.Wrap(err, "query columns")
	}
	defer rows.Close()

	var keys []table.Key
	for rows.Next() {
		var k table.Key
		if err := rows.Scan(&k.Domain, &k.Group, &k.Field); err != nil {
			return nil, errors.Wrap(err, "scan column")
		}
		keys = append(keys, k)
	}
	return keys, errors.Wrap(rows.Err(), "iterate columns")
}

func (s *Store) columnIndex(ctx context.Context, id string) (map[table.Key]int, error) {
	keys, err := s.columnKeys(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make(map[table.Key]int, len(keys))
	for i, k := range keys {
		out[k] = i
	}
	return out, nil
}

// loadTable rebuilds d. A nil rows loads every row; otherwise only the
// listed rows, in the given order.
func (s *Store) loadTable(ctx context.Context, d Dataset, rows []int) (*table.Table, error) {
	keys, err := s.columnKeys(ctx, d.ID)
	if err != nil {
		return nil, err
	}

	n := d.Rows
	pos := func(r int) (int, bool) { return r, r < n }
	if rows != nil {
		n = len(rows)
		at := make(map[int]int, len(rows))
		for i, r := range rows {
			at[r] = i
		}
		pos = func(r int) (int, bool) {
			i, ok := at[r]
			return i, ok
		}
	}

	cols := make([][]table.Value, len(keys))
	for c := range cols {
		cols[c] = make([]table.Value, n)
	}

	cells, err := s.db.QueryContext(ctx, `
		SELECT row_idx, col_idx, kind, num, txt
		FROM cells
		WHERE dataset_id = ?
		ORDER BY row_idx ASC, col_idx ASC
	`, d.ID)
	if err != nil {
		return nil, errors.Wrap(err, "query cells")
	}
	defer cells.Close()

	for cells.Next() {
		var (
			r, c, kind int
			num        any
			txt        sql.NullString
		)
		if err := cells.Scan(&r, &c, &kind, &num, &txt); err != nil {
			return nil, errors.Wrap(err, "scan cell")
		}
		i, ok := pos(r)
		if !ok || c >= len(cols) {
			continue
		}
		v, err := decodeCell(table.Kind(kind), num, txt)
		if err != nil {
			return nil, errors.Wrapf(err, "cell %s row %d", keys[c], r)
		}
		cols[c][i] = v
	}
	if err := cells.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate cells")
	}

	t := table.New(n)
	for c, k := range keys {
		if err := t.Set(k, cols[c]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func decodeCell(kind table.Kind, num any, txt sql.NullString) (table.Value, error) {
	switch kind {
	case table.KindNull:
		return table.Null{}, nil
	case table.KindString:
		return table.String(txt.String), nil
	case table.KindBool, table.KindInt, table.KindFloat:
	default:
		return nil, errors.Newf("unknown kind %d", kind)
	}

	var (
		i int64
		f float64
	)
	switch x := num.(type) {
	case int64:
		i, f = x, float64(x)
	case float64:
		i, f = int64(x), x
	default:
		return nil, errors.Newf("%s cell holds %T", kind, num)
	}
	switch kind {
	case table.KindBool:
		return table.Bool(i != 0), nil
	case table.KindInt:
		return table.Int(i), nil
	}
	return table.Float(f), nil
}
