package store

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/lydata/internal/query"
	"github.com/roach88/lydata/internal/querysql"
	"github.com/roach88/lydata/internal/table"
)

func TestSaveDataset_Idempotent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := createTestStore(t, WithLogger(zap.New(core).Sugar()))
	ctx := context.Background()
	tbl := createTestTable(t)

	first, created, err := s.SaveDataset(ctx, "2021-usz-oropharynx", tbl)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, 6, first.Rows)
	assert.Equal(t, 7, first.Columns)
	assert.Len(t, first.Fingerprint, 32)

	second, created, err := s.SaveDataset(ctx, "2021-usz-oropharynx", tbl.Clone())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)

	all, err := s.ListDatasets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.Equal(t, 1, logs.FilterMessage("dataset imported").Len())
	assert.Equal(t, 1, logs.FilterMessage("dataset already imported, skipping").Len())

	var cells int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM cells").Scan(&cells))
	assert.Equal(t, 6*7, cells)
}

func TestSaveDataset_NewContentGetsNextSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tbl := createTestTable(t)

	_, _, err := s.SaveDataset(ctx, "a", tbl)
	require.NoError(t, err)

	head, err := tbl.Take([]int{0, 1})
	require.NoError(t, err)
	rec, created, err := s.SaveDataset(ctx, "a", head)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(2), rec.Seq)

	other, _, err := s.SaveDataset(ctx, "b", tbl)
	require.NoError(t, err)
	assert.Equal(t, int64(3), other.Seq)

	latest, err := s.Latest(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, latest.ID)
	assert.Equal(t, 2, latest.Rows)

	all, err := s.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, d := range all {
		assert.Equal(t, int64(i+1), d.Seq)
	}

	_, _, err = s.SaveDataset(ctx, "", tbl)
	assert.Error(t, err)
}

func TestLoadDataset_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tbl := createTestTable(t)

	_, _, err := s.SaveDataset(ctx, "cohort", tbl)
	require.NoError(t, err)

	got, err := s.LoadDataset(ctx, "cohort")
	require.NoError(t, err)
	assert.Equal(t, tbl.Keys(), got.Keys())
	assert.Equal(t, tbl.Len(), got.Len())

	for _, k := range tbl.Keys() {
		want, err := tbl.Column(k)
		require.NoError(t, err)
		have, err := got.Column(k)
		require.NoError(t, err)
		assert.Equal(t, want, have, "column %s", k)
	}

	wantFP, err := table.Fingerprint(tbl)
	require.NoError(t, err)
	gotFP, err := table.Fingerprint(got)
	require.NoError(t, err)
	assert.Equal(t, wantFP, gotFP)

	_, err = s.LoadDataset(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteDataset_Cascades(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tbl := createTestTable(t)

	_, _, err := s.SaveDataset(ctx, "cohort", tbl)
	require.NoError(t, err)
	head, err := tbl.Take([]int{0})
	require.NoError(t, err)
	_, _, err = s.SaveDataset(ctx, "cohort", head)
	require.NoError(t, err)

	n, err := s.DeleteDataset(ctx, "cohort")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, name := range []string{"datasets", "columns", "cells"} {
		var count int
		require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+name).Scan(&count))
		assert.Zero(t, count, name)
	}

	_, err = s.DeleteDataset(ctx, "cohort")
	assert.True(t, errors.Is(err, ErrNotFound))
}

// SQL selection must agree with in-memory evaluation row for row.
func TestRowIndexes_MatchesInMemoryMask(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tbl := createTestTable(t)

	_, _, err := s.SaveDataset(ctx, "cohort", tbl)
	require.NoError(t, err)

	preds := []query.Predicate{
		query.True(),
		query.C("age").Ge(50),
		query.C("age").Lt(50.5),
		query.C("hpv").Eq(true),
		query.C("hpv").Ne(true),
		query.C("hpv").IsNull(),
		query.C("hpv").NotNull(),
		query.C("hpv").Gt(false),
		query.C("CT/ipsi/II").Eq(true),
		query.C("CT/contra/II").Ne(false),
		query.C("patient/#/sex").In("male", "Müller"),
		query.C("patient/#/sex").Lt("m"),
		query.C("patient/#/sex").Gt(5),
		query.C("patient/#/weight").Eq(62.0),
		query.C("patient/#/weight").Le(71.25),
		query.C("t_stage").In(1, 2),
		query.C("t_stage").In(),
		query.C("age").Ne(nil),
		query.AndOf(),
		query.OrOf(),
		query.AndOf(query.C("age").Ge(40), query.C("hpv").Eq(true)),
		query.OrOf(query.C("t_stage").Eq(4), query.C("CT/ipsi/II").IsNull()),
		query.Negate(query.AndOf(query.C("age").Ge(50), query.OrOf(query.C("hpv").Eq(false), query.C("hpv").IsNull()))),
	}

	for _, p := range preds {
		t.Run(p.String(), func(t *testing.T) {
			mask, err := query.Mask(tbl, p)
			require.NoError(t, err)
			want := []int{}
			for i, ok := range mask {
				if ok {
					want = append(want, i)
				}
			}

			got, err := s.RowIndexes(ctx, "cohort", p, nil)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestSelectRows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tbl := createTestTable(t)

	_, _, err := s.SaveDataset(ctx, "cohort", tbl)
	require.NoError(t, err)

	p := query.AndOf(query.C("age").Ge(50), query.C("hpv").Eq(true))
	got, err := s.SelectRows(ctx, "cohort", p, nil)
	require.NoError(t, err)

	want, err := query.Query(tbl, p)
	require.NoError(t, err)
	assert.Equal(t, want.Len(), got.Len())
	for _, k := range want.Keys() {
		w, _ := want.Column(k)
		g, _ := got.Column(k)
		assert.Equal(t, w, g, "column %s", k)
	}

	_, err = s.SelectRows(ctx, "cohort", query.C("age").Match("any", func(col []table.Value) []bool {
		return make([]bool, len(col))
	}), nil)
	assert.True(t, errors.Is(err, querysql.ErrNotCompilable))

	_, err = s.SelectRows(ctx, "cohort", query.C("MRI/ipsi/II").Eq(true), nil)
	assert.True(t, errors.Is(err, table.ErrColumnNotFound))
}
