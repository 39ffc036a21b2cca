package fusion

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/lydata/internal/table"
)

// Engine carries the configuration fusion and level inference run with. The
// zero value uses DefaultModalities, the default level options and no
// logging.
type Engine struct {
	Modalities *Modalities
	Levels     LevelOptions
	Logger     *zap.SugaredLogger
}

func (e *Engine) modalities() *Modalities {
	if e.Modalities == nil {
		return DefaultModalities()
	}
	return e.Modalities
}

func (e *Engine) logger() *zap.SugaredLogger {
	if e.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return e.Logger
}

// InferAndCombine infers superlevels, then sublevels, then fuses all
// modalities, merging each result into t before the next step. The returned
// table is t with every derived column added; t itself is unchanged.
func (e *Engine) InferAndCombine(ctx context.Context, t *table.Table, method Method) (*table.Table, error) {
	sup, err := e.InferSuperlevels(t)
	if err != nil {
		return nil, errors.Wrap(err, "infer superlevels")
	}
	cur, err := t.Update(sup)
	if err != nil {
		return nil, err
	}

	sub, err := e.InferSublevels(cur)
	if err != nil {
		return nil, errors.Wrap(err, "infer sublevels")
	}
	if cur, err = cur.Update(sub); err != nil {
		return nil, err
	}

	fused, err := e.Combine(ctx, cur, method)
	if err != nil {
		return nil, errors.Wrap(err, "combine")
	}
	return cur.Update(fused)
}

// Combine fuses t's diagnoses with mods (nil for the defaults).
func Combine(ctx context.Context, t *table.Table, mods *Modalities, method Method) (*table.Table, error) {
	e := &Engine{Modalities: mods}
	return e.Combine(ctx, t, method)
}

// InferSublevels derives sublevels with opts.
func InferSublevels(t *table.Table, opts LevelOptions) (*table.Table, error) {
	e := &Engine{Levels: opts}
	return e.InferSublevels(t)
}

// InferSuperlevels derives superlevels with opts.
func InferSuperlevels(t *table.Table, opts LevelOptions) (*table.Table, error) {
	e := &Engine{Levels: opts}
	return e.InferSuperlevels(t)
}

// InferAndCombine runs the full pipeline with mods and opts.
func InferAndCombine(ctx context.Context, t *table.Table, mods *Modalities, method Method, opts LevelOptions) (*table.Table, error) {
	e := &Engine{Modalities: mods, Levels: opts}
	return e.InferAndCombine(ctx, t, method)
}
