package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/lydata/internal/table"
)

var (
	nullCond = regexp.MustCompile(`^(\S+)\s+(is\s+null|is\s+not\s+null|not\s+null)$`)
	inCond   = regexp.MustCompile(`^(\S+)\s+in\s*\[(.*)\]$`)
	cmpCond  = regexp.MustCompile(`^([^\s=!<>]+)\s*(==|!=|<=|>=|=|<|>)\s*([^\s=!<>].*)$`)
)

// ParseCondition parses a single leaf written as text, the same form
// Leaf.String produces:
//
//	age >= 50
//	patient/#/sex == "male"
//	t_stage in [3, 4]
//	CT/ipsi/II is null
//
// Literals are typed like CSV cells; quote them to force text.
func ParseCondition(s string) (*Leaf, error) {
	s = strings.TrimSpace(s)
	if m := nullCond.FindStringSubmatch(s); m != nil {
		if strings.Contains(m[2], "not") {
			return C(m[1]).NotNull(), nil
		}
		return C(m[1]).IsNull(), nil
	}
	if m := inCond.FindStringSubmatch(s); m != nil {
		var vals []table.Value
		for _, part := range splitList(m[2]) {
			v, err := parseLiteral(part)
			if err != nil {
				return nil, errors.Wrapf(err, "%q", s)
			}
			vals = append(vals, v)
		}
		return &Leaf{Ref: m[1], Op: OpIn, Values: vals}, nil
	}
	if m := cmpCond.FindStringSubmatch(s); m != nil {
		v, err := parseLiteral(m[3])
		if err != nil {
			return nil, errors.Wrapf(err, "%q", s)
		}
		return Q(m[1], m[2], v), nil
	}
	return nil, errors.Wrapf(ErrParse, "%q", s)
}

// ParseConditions parses each condition and combines them with AND.
func ParseConditions(conds []string) (Predicate, error) {
	if len(conds) == 0 {
		return True(), nil
	}
	preds := make([]Predicate, 0, len(conds))
	for _, c := range conds {
		l, err := ParseCondition(c)
		if err != nil {
			return nil, err
		}
		preds = append(preds, l)
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return AndOf(preds...), nil
}

func parseLiteral(s string) (table.Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.Wrap(ErrParse, "empty literal")
	}
	if s[0] == '"' || s[0] == '\'' {
		if s[0] == '\'' {
			s = `"` + strings.ReplaceAll(strings.Trim(s, "'"), `"`, `\"`) + `"`
		}
		u, err := strconv.Unquote(s)
		if err != nil {
			return nil, errors.Wrapf(ErrParse, "bad string literal %s", s)
		}
		return table.String(u), nil
	}
	if s == "null" {
		return table.Null{}, nil
	}
	return table.Infer(s), nil
}

// splitList splits a comma separated list, ignoring commas inside quotes.
func splitList(s string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote rune
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == ',':
			out = append(out, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	if strings.TrimSpace(cur.String()) != "" {
		out = append(out, cur.String())
	}
	return out
}
