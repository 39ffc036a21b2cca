package query

import "github.com/cockroachdb/errors"

// ErrParse is the base of condition parsing errors.
var ErrParse = errors.New("invalid condition")

func errUnknownOp(op string) error {
	return errors.Newf("unknown operator %q", op)
}

func errInLiteral(ref string) error {
	return errors.Newf("operator in on %s needs a list value", ref)
}
