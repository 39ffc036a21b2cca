package query

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Portion is how many rows of a subset matched a query.
type Portion struct {
	Match int `json:"match"`
	Total int `json:"total"`
}

// NewPortion returns a portion or an error unless 0 <= match <= total.
func NewPortion(match, total int) (Portion, error) {
	if match < 0 || total < 0 {
		return Portion{}, errors.Newf("portion counts must be non-negative, got %d/%d", match, total)
	}
	if match > total {
		return Portion{}, errors.Newf("portion match %d exceeds total %d", match, total)
	}
	return Portion{Match: match, Total: total}, nil
}

// Fail is the number of rows that did not match.
func (p Portion) Fail() int {
	return p.Total - p.Match
}

// Ratio is Match/Total. ok is false for an empty portion.
func (p Portion) Ratio() (r float64, ok bool) {
	if p.Total == 0 {
		return 0, false
	}
	return float64(p.Match) / float64(p.Total), true
}

// Percent is the ratio in percent. ok is false for an empty portion.
func (p Portion) Percent() (float64, bool) {
	r, ok := p.Ratio()
	return 100 * r, ok
}

// Invert swaps matching and failing rows.
func (p Portion) Invert() Portion {
	return Portion{Match: p.Fail(), Total: p.Total}
}

func (p Portion) String() string {
	pct, ok := p.Percent()
	if !ok {
		return fmt.Sprintf("%d/%d (undefined)", p.Match, p.Total)
	}
	return fmt.Sprintf("%d/%d (%.1f%%)", p.Match, p.Total, pct)
}
