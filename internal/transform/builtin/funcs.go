package builtin

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cast"
	"golang.org/x/text/runes"
	xtransform "golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/lydata/internal/table"
	"github.com/roach88/lydata/internal/transform"
)

// defaultLayouts are tried in order by robust_date unless kwargs.layouts is set.
var defaultLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2006/01/02",
	"20060102",
	"2 January 2006",
	"January 2, 2006",
}

var (
	subsitePattern  = regexp.MustCompile(`C\d{2}(\.\d)?`)
	categoryPattern = regexp.MustCompile(`[TNtn]\s*(\d)`)
	digitPattern    = regexp.MustCompile(`\d`)
)

func arg(args []table.Value, i int) (table.Value, error) {
	if i >= len(args) {
		return nil, errors.Newf("want at least %d source column(s), got %d", i+1, len(args))
	}
	if args[i] == nil {
		return table.Null{}, nil
	}
	return args[i], nil
}

// native unwraps a cell for spf13/cast.
func native(v table.Value) any {
	switch x := v.(type) {
	case table.Bool:
		return bool(x)
	case table.Int:
		return int64(x)
	case table.Float:
		return float64(x)
	case table.String:
		return strings.TrimSpace(string(x))
	default:
		return nil
	}
}

func toString(args []table.Value, _ transform.Kwargs) (table.Value, error) {
	v, err := arg(args, 0)
	if err != nil || table.IsNull(v) {
		return table.Null{}, err
	}
	return table.String(v.String()), nil
}

// robustInt yields Null for anything that is not an integer.
func robustInt(args []table.Value, _ transform.Kwargs) (table.Value, error) {
	v, err := arg(args, 0)
	if err != nil || table.IsNull(v) {
		return table.Null{}, err
	}
	if f, ok := v.(table.Float); ok {
		if float64(f) != float64(int64(f)) {
			return table.Null{}, nil
		}
		return table.Int(int64(f)), nil
	}
	if s, ok := v.(table.String); ok {
		i, err := strconv.ParseInt(strings.TrimSpace(string(s)), 10, 64)
		if err != nil {
			return table.Null{}, nil
		}
		return table.Int(i), nil
	}
	i, err := cast.ToInt64E(native(v))
	if err != nil {
		return table.Null{}, nil
	}
	return table.Int(i), nil
}

func robustFloat(args []table.Value, _ transform.Kwargs) (table.Value, error) {
	v, err := arg(args, 0)
	if err != nil || table.IsNull(v) {
		return table.Null{}, err
	}
	f, err := cast.ToFloat64E(native(v))
	if err != nil {
		return table.Null{}, nil
	}
	return table.Float(f), nil
}

// robustDate normalizes a date to YYYY-MM-DD, or Null when no layout fits.
func robustDate(args []table.Value, kw transform.Kwargs) (table.Value, error) {
	v, err := arg(args, 0)
	if err != nil || table.IsNull(v) {
		return table.Null{}, err
	}
	layouts, err := kw.Strings("layouts", defaultLayouts)
	if err != nil {
		return nil, err
	}
	s := strings.TrimSpace(v.String())
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return table.String(t.Format(time.DateOnly)), nil
		}
	}
	return table.Null{}, nil
}

// stripLetters turns "2a" into 2. Values without a leading digit are an error.
func stripLetters(args []table.Value, _ transform.Kwargs) (table.Value, error) {
	v, err := arg(args, 0)
	if err != nil {
		return nil, err
	}
	if i, ok := v.(table.Int); ok {
		return i, nil
	}
	s := strings.TrimSpace(v.String())
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return nil, errors.Newf("no leading digits in %q", s)
	}
	i, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "strip letters from %q", s)
	}
	return table.Int(i), nil
}

// category extracts a T or N category, turning "pN2+" into 2.
func category(args []table.Value, _ transform.Kwargs) (table.Value, error) {
	v, err := arg(args, 0)
	if err != nil || table.IsNull(v) {
		return table.Null{}, err
	}
	if i, ok := v.(table.Int); ok {
		return i, nil
	}
	s := v.String()
	digit := ""
	if m := categoryPattern.FindStringSubmatch(s); m != nil {
		digit = m[1]
	} else if m := digitPattern.FindString(s); m != "" {
		digit = m
	}
	if digit == "" {
		return table.Null{}, nil
	}
	return table.Int(digit[0] - '0'), nil
}

// nonzero maps 0 to false and any other value to true. Missing stays missing.
func nonzero(args []table.Value, _ transform.Kwargs) (table.Value, error) {
	v, err := arg(args, 0)
	if err != nil || table.IsNull(v) {
		return table.Null{}, err
	}
	if b, ok := v.(table.Bool); ok {
		return b, nil
	}
	if f, ok := table.Number(v); ok {
		return table.Bool(f != 0), nil
	}
	return table.Bool(true), nil
}

// parsePathology turns a count of positive nodes into involvement.
func parsePathology(args []table.Value, _ transform.Kwargs) (table.Value, error) {
	v, err := arg(args, 0)
	if err != nil || table.IsNull(v) {
		return table.Null{}, err
	}
	f, ok := table.Number(v)
	if !ok {
		return nil, errors.Newf("pathology count %q is not a number", v.String())
	}
	return table.Bool(f != 0), nil
}

// mapValues looks the cell's text up in kwargs.mapping. Unmapped values
// fall back to kwargs.default, or Null.
func mapValues(args []table.Value, kw transform.Kwargs) (table.Value, error) {
	v, err := arg(args, 0)
	if err != nil {
		return nil, err
	}
	mapping, err := kw.Map("mapping")
	if err != nil {
		return nil, err
	}
	if mapping == nil {
		return nil, errors.New("map_values needs a mapping kwarg")
	}
	key := v.String()
	if table.IsNull(v) {
		key = "null"
	}
	if out, ok := mapping[key]; ok {
		return table.ValueOf(out)
	}
	if def, ok := kw["default"]; ok {
		return table.ValueOf(def)
	}
	return table.Null{}, nil
}

// icdSubsite extracts an ICD-10 code like C10.2 from free text.
func icdSubsite(args []table.Value, _ transform.Kwargs) (table.Value, error) {
	v, err := arg(args, 0)
	if err != nil || table.IsNull(v) {
		return table.Null{}, err
	}
	if m := subsitePattern.FindString(v.String()); m != "" {
		return table.String(m), nil
	}
	return table.Null{}, nil
}

// sum adds integer columns; any missing or non-integer value gives Null.
func sum(args []table.Value, kw transform.Kwargs) (table.Value, error) {
	var total int64
	for i := range args {
		v, err := robustInt(args[i:i+1], kw)
		if err != nil {
			return nil, err
		}
		n, ok := v.(table.Int)
		if !ok {
			return table.Null{}, nil
		}
		total += int64(n)
	}
	return table.Int(total), nil
}

func firstNonNull(args []table.Value, _ transform.Kwargs) (table.Value, error) {
	for _, v := range args {
		if !table.IsNull(v) {
			return v, nil
		}
	}
	return table.Null{}, nil
}

// foldText strips diacritics, e.g. "Léon Bérard" becomes "Leon Berard".
// With kwargs.lower set the result is lowercased too.
func foldText(args []table.Value, kw transform.Kwargs) (table.Value, error) {
	v, err := arg(args, 0)
	if err != nil || table.IsNull(v) {
		return table.Null{}, err
	}
	lower, err := kw.String("lower", "false")
	if err != nil {
		return nil, err
	}
	t := xtransform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := xtransform.String(t, v.String())
	if err != nil {
		return nil, errors.Wrap(err, "fold text")
	}
	if cast.ToBool(lower) {
		s = strings.ToLower(s)
	}
	return table.String(s), nil
}
