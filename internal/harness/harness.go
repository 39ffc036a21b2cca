package harness

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/lydata/internal/compiler"
	"github.com/roach88/lydata/internal/fusion"
	"github.com/roach88/lydata/internal/logger"
	"github.com/roach88/lydata/internal/schema"
	"github.com/roach88/lydata/internal/store"
	"github.com/roach88/lydata/internal/table"
	"github.com/roach88/lydata/internal/transform"
	"github.com/roach88/lydata/internal/transform/builtin"
)

// Harness holds what a scenario run shares between stages.
type Harness struct {
	store  *store.Store
	logger *zap.SugaredLogger
}

// Option configures a run.
type Option func(*Harness)

// WithLogger routes pipeline logs to l. Runs are silent by default.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(h *Harness) { h.logger = l }
}

// Run executes a scenario and returns its result.
//
// Each scenario gets a fresh in-memory database. An error is returned only
// when the pipeline cannot run at all (unreadable inputs, broken mapping,
// store failure); failed assertions and unexpected violations are
// recorded in the result.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{logger: logger.Nop()}
	for _, opt := range opts {
		opt(h)
	}

	st, err := store.Open(":memory:", store.WithLogger(h.logger))
	if err != nil {
		return nil, errors.Wrap(err, "create in-memory store")
	}
	defer st.Close()
	h.store = st

	result := NewResult()

	t, err := h.transform(s, result)
	if err != nil {
		return nil, err
	}

	if len(s.Validate) > 0 {
		t = h.validate(s, t, result)
	}

	if _, _, err := st.SaveDataset(ctx, s.Name, t); err != nil {
		return nil, errors.Wrap(err, "import")
	}
	result.AddTrace("import", "%d row(s) as %s", t.Len(), s.Name)
	stored := t

	if s.Combine != nil {
		if t, err = h.combine(ctx, s.Combine, t, result); err != nil {
			return nil, err
		}
	}
	result.Table = t

	actx := &AssertionContext{
		Ctx:     ctx,
		Store:   st,
		Dataset: s.Name,
		Stored:  stored,
	}
	for _, msg := range EvaluateAssertions(result, s.Assertions, actx) {
		result.AddError(msg)
	}
	if len(result.Violations) > 0 && !hasAssertion(s.Assertions, AssertViolations) {
		result.AddError(fmt.Sprintf("%d unexpected schema violation(s)", len(result.Violations)))
	}
	return result, nil
}

func (h *Harness) transform(s *Scenario, result *Result) (*table.Table, error) {
	mf, err := compiler.LoadMappingFile(s.Mapping, builtin.Default())
	if err != nil {
		return nil, errors.Wrap(err, "load mapping")
	}
	f, err := os.Open(s.Raw)
	if err != nil {
		return nil, errors.Wrap(err, "open raw table")
	}
	defer f.Close()
	raw, err := transform.ReadRawCSV(f, mf.HeaderRows)
	if err != nil {
		return nil, err
	}

	t, err := transform.Transform(raw, mf.Mapping, mf.Exclude)
	var terr *transform.TransformError
	switch {
	case errors.As(err, &terr):
		result.AddError(terr.Error())
		result.AddTrace("transform", "%d raw row(s) -> %d row(s), %d failed column(s)", raw.Len(), t.Len(), len(terr.Failures))
		return t, nil
	case err != nil:
		return nil, errors.Wrap(err, "transform")
	}
	h.logger.Debugw("scenario transformed", logger.FieldPath, s.Raw, logger.FieldRows, t.Len())
	result.AddTrace("transform", "%d raw row(s) -> %d row(s), %d column(s)", raw.Len(), t.Len(), t.Width())
	return t, nil
}

// validate returns the coerced table, or t itself when violations were
// found.
func (h *Harness) validate(s *Scenario, t *table.Table, result *Result) *table.Table {
	out, err := schema.Construct(s.Validate, nil).Validate(t)
	mods := strings.Join(s.Validate, ", ")
	if err == nil {
		result.AddTrace("validate", "ok (%s)", mods)
		return out
	}
	var se *schema.SchemaError
	if errors.As(err, &se) {
		result.Violations = se.Violations
		result.AddTrace("validate", "%d violation(s) (%s)", len(se.Violations), mods)
		return t
	}
	result.AddError(err.Error())
	result.AddTrace("validate", "error (%s)", mods)
	return t
}

func (h *Harness) combine(ctx context.Context, c *CombineStep, t *table.Table, result *Result) (*table.Table, error) {
	method, err := fusion.ParseMethod(c.Method)
	if err != nil {
		return nil, err
	}
	mods := fusion.DefaultModalities()
	if len(c.Modalities) > 0 {
		if mods, err = mods.Only(c.Modalities...); err != nil {
			return nil, err
		}
	}
	e := &fusion.Engine{Modalities: mods, Logger: h.logger}

	var out *table.Table
	if c.Infer {
		out, err = e.InferAndCombine(ctx, t, method)
	} else {
		var fused *table.Table
		if fused, err = e.Combine(ctx, t, method); err == nil {
			out, err = t.Update(fused)
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, "combine")
	}
	result.AddTrace("combine", "%s, %d fused column(s)", method, len(out.KeysIn(string(method))))
	return out, nil
}

func hasAssertion(as []Assertion, typ string) bool {
	for _, a := range as {
		if a.Type == typ {
			return true
		}
	}
	return false
}
