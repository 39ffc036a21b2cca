// Package schema validates canonical lydata tables against fixed patient
// and tumor contracts plus generated per-modality contracts.
package schema

import (
	"github.com/roach88/lydata/internal/table"
)

// DType is the expected cell type of a column.
type DType int

const (
	TypeString DType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeDate // ISO 8601 calendar date held as text
)

func (d DType) String() string {
	switch d {
	case TypeString:
		return "str"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeDate:
		return "date"
	default:
		return "unknown"
	}
}

// Column is the contract for one canonical column.
type Column struct {
	Key      table.Key
	Type     DType
	Checks   []Check
	Nullable bool
	Required bool
}

// LNLs returns the catalogue of lymph node levels that modality columns are
// generated for.
func LNLs() []string {
	return []string{
		"I", "Ia", "Ib", "II", "IIa", "IIb", "III", "IV",
		"V", "Va", "Vb", "VI", "VII", "VIII", "IX", "X",
	}
}

// Sides returns the neck sides modality columns are generated for.
func Sides() []string {
	return []string{"ipsi", "contra"}
}

// DefaultModalityNames lists the modalities validated when none are given.
func DefaultModalityNames() []string {
	return []string{"pathology", "diagnostic_consensus", "PET", "CT", "FNA", "MRI"}
}

func required(domain, group, field string, typ DType, checks ...Check) Column {
	return Column{Key: table.K(domain, group, field), Type: typ, Checks: checks, Required: true}
}

func optional(domain, group, field string, typ DType, checks ...Check) Column {
	return Column{Key: table.K(domain, group, field), Type: typ, Checks: checks, Nullable: true}
}

// PatientColumns returns the fixed patient contracts.
func PatientColumns() []Column {
	return []Column{
		required("patient", "#", "institution", TypeString),
		required("patient", "#", "sex", TypeString, Matches(`^(male|female)$`)),
		required("patient", "#", "age", TypeInt),
		optional("patient", "#", "weight", TypeFloat, GreaterThan(0)),
		required("patient", "#", "diagnose_date", TypeDate),
		optional("patient", "#", "alcohol_abuse", TypeBool),
		optional("patient", "#", "nicotine_abuse", TypeBool),
		optional("patient", "#", "hpv_status", TypeBool),
		optional("patient", "#", "neck_dissection", TypeBool),
		required("patient", "#", "tnm_edition", TypeInt, InRange(7, 8)),
		required("patient", "#", "n_stage", TypeInt, InRange(0, 3)),
		required("patient", "#", "m_stage", TypeInt, InRange(-1, 1)),
	}
}

// TumorColumns returns the fixed tumor contracts.
func TumorColumns() []Column {
	return []Column{
		required("tumor", "1", "subsite", TypeString, Matches(`^C\d{2}(\.\d)?$`)),
		required("tumor", "1", "t_stage", TypeInt, InRange(0, 4)),
		required("tumor", "1", "stage_prefix", TypeString, Matches(`^(p|c)$`)),
		optional("tumor", "1", "volume", TypeFloat, GreaterThan(0)),
		optional("tumor", "1", "central", TypeBool),
		optional("tumor", "1", "extension", TypeBool),
	}
}

// ModalityColumns generates the optional contracts of one modality: its
// info/date column and a tri-state column per side and level.
func ModalityColumns(modality string, lnls []string) []Column {
	cols := []Column{optional(modality, "info", "date", TypeDate)}
	for _, side := range Sides() {
		for _, lnl := range lnls {
			cols = append(cols, optional(modality, side, lnl, TypeBool))
		}
	}
	return cols
}

// Schema is an ordered set of column contracts.
type Schema struct {
	columns []Column
}

// New builds a schema from explicit contracts.
func New(cols ...Column) *Schema {
	return &Schema{columns: append([]Column(nil), cols...)}
}

// Construct builds the lydata schema for the given modalities. A nil lnls
// uses LNLs().
func Construct(modalities []string, lnls []string) *Schema {
	if lnls == nil {
		lnls = LNLs()
	}
	cols := append(PatientColumns(), TumorColumns()...)
	for _, m := range modalities {
		cols = append(cols, ModalityColumns(m, lnls)...)
	}
	return New(cols...)
}

// Columns returns the contracts in order.
func (s *Schema) Columns() []Column {
	return append([]Column(nil), s.columns...)
}
