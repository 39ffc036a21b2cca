package table

// Tri is a three-valued involvement state. Unknown means the site was not
// observed and must never be read as False.
type Tri int8

const (
	Unknown Tri = iota
	False
	True
)

func (t Tri) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// Value converts t back into a cell.
func (t Tri) Value() Value {
	switch t {
	case True:
		return Bool(true)
	case False:
		return Bool(false)
	default:
		return Null{}
	}
}

// TriOf reads a cell as a tri-state. Integer 0 and 1 are accepted because
// exports often encode involvement numerically. ok is false for cells that
// have no tri-state reading.
func TriOf(v Value) (t Tri, ok bool) {
	switch x := v.(type) {
	case nil, Null:
		return Unknown, true
	case Bool:
		if x {
			return True, true
		}
		return False, true
	case Int:
		switch x {
		case 0:
			return False, true
		case 1:
			return True, true
		}
	case Float:
		switch x {
		case 0:
			return False, true
		case 1:
			return True, true
		}
	}
	return Unknown, false
}

// Tris reads a whole column as tri-states. Cells without a tri-state reading
// become Unknown.
func Tris(col []Value) []Tri {
	out := make([]Tri, len(col))
	for i, v := range col {
		out[i], _ = TriOf(v)
	}
	return out
}
