package store

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/roach88/lydata/internal/table"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

const cohortCSV = `patient,patient,patient,patient,tumor,CT,CT
#,#,#,#,1,ipsi,contra
age,sex,hpv_status,weight,t_stage,II,II
61,male,True,80.5,2,True,False
45,female,False,62,4,False,
70,male,,,1,,True
52,female,True,71.25,3,True,False
38,male,False,90,4,,
9007199254740993,Müller,True,1.0,0,False,True
`

// createTestTable parses the shared cohort fixture.
func createTestTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.ReadCSV(strings.NewReader(cohortCSV))
	if err != nil {
		t.Fatalf("ReadCSV() failed: %v", err)
	}
	return tbl
}
