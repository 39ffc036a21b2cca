package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/roach88/lydata/internal/logger"
	"github.com/roach88/lydata/internal/table"
)

// Dataset is the stored record of one import.
type Dataset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"`
	Rows        int    `json:"rows"`
	Columns     int    `json:"columns"`
	Seq         int64  `json:"seq"`
}

// SaveDataset imports t under name. If the same content was already saved
// under that name, the existing record is returned with created false and
// nothing is written.
func (s *Store) SaveDataset(ctx context.Context, name string, t *table.Table) (Dataset, bool, error) {
	if name == "" {
		return Dataset{}, false, errors.New("save dataset: empty name")
	}
	fp, err := table.Fingerprint(t)
	if err != nil {
		return Dataset{}, false, errors.Wrap(err, "save dataset")
	}

	var (
		rec     Dataset
		created bool
	)
	err = s.tx(ctx, func(tx *sql.Tx) error {
		existing, err := scanDataset(tx.QueryRowContext(ctx, `
			SELECT id, name, fingerprint, row_count, col_count, seq
			FROM datasets
			WHERE name = ? AND fingerprint = ?
		`, name, fp))
		switch {
		case err == nil:
			rec = existing
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return errors.Wrap(err, "look up dataset")
		}

		id, err := uuid.NewV7()
		if err != nil {
			return errors.Wrap(err, "generate dataset id")
		}
		var seq int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM datasets`).Scan(&seq); err != nil {
			return errors.Wrap(err, "next seq")
		}

		rec = Dataset{
			ID:          id.String(),
			Name:        name,
			Fingerprint: fp,
			Rows:        t.Len(),
			Columns:     t.Width(),
			Seq:         seq,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO datasets (id, name, fingerprint, row_count, col_count, seq)
			VALUES (?, ?, ?, ?, ?, ?)
		`, rec.ID, rec.Name, rec.Fingerprint, rec.Rows, rec.Columns, rec.Seq); err != nil {
			return errors.Wrap(err, "insert dataset")
		}
		if err := insertCells(ctx, tx, rec.ID, t); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return Dataset{}, false, errors.Wrapf(err, "save dataset %s", name)
	}

	if created {
		s.logger.Infow("dataset imported",
			logger.FieldDataset, name,
			logger.FieldRows, rec.Rows,
			logger.FieldColumns, rec.Columns,
			"id", rec.ID,
		)
	} else {
		s.logger.Infow("dataset already imported, skipping",
			logger.FieldDataset, name,
			"id", rec.ID,
			"fingerprint", fp,
		)
	}
	return rec, created, nil
}

func insertCells(ctx context.Context, tx *sql.Tx, id string, t *table.Table) error {
	colStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO columns (dataset_id, col_idx, domain, grp, field)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.Wrap(err, "prepare columns")
	}
	defer colStmt.Close()

	cellStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cells (dataset_id, row_idx, col_idx, kind, num, txt)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.Wrap(err, "prepare cells")
	}
	defer cellStmt.Close()

	for c, k := range t.Keys() {
		if _, err := colStmt.ExecContext(ctx, id, c, k.Domain, k.Group, k.Field); err != nil {
			return errors.Wrapf(err, "insert column %s", k)
		}
		col, err := t.Column(k)
		if err != nil {
			return err
		}
		for r, v := range col {
			num, txt := encodeCell(v)
			if _, err := cellStmt.ExecContext(ctx, id, r, c, int(v.Kind()), num, txt); err != nil {
				return errors.Wrapf(err, "insert cell %s row %d", k, r)
			}
		}
	}
	return nil
}

func encodeCell(v table.Value) (num, txt any) {
	switch x := v.(type) {
	case table.Bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case table.Int:
		return int64(x), nil
	case table.Float:
		return float64(x), nil
	case table.String:
		return nil, string(x)
	}
	return nil, nil
}
