// Package harness runs end-to-end conformance scenarios over the lydata
// pipeline.
//
// A scenario names a raw export and a mapping file, optionally the
// modalities to validate against and a fusion method, and a list of
// assertions about the result:
//
//	name: usz_oropharynx
//	description: "USZ-style export through the whole pipeline"
//	raw: raw.csv
//	mapping: mapping.yaml
//	validate: [CT, MRI]
//	combine:
//	  method: max_llh
//	assertions:
//	  - type: row_count
//	    count: 4
//	  - type: column_values
//	    column: max_llh/ipsi/II
//	    values: [true, false, true, false]
//	  - type: portion
//	    where: ["CT/ipsi/II == True"]
//	    given: ["t_stage in [1, 2]"]
//	    match: 1
//	    total: 2
//	  - type: select
//	    where: ["age >= 50"]
//	    count: 3
//
// Paths are relative to the scenario file.
//
// # Assertion Types
//
//   - row_count: rows in the final table
//   - column_values: every cell of one column, in row order
//   - portion: match and total of a query portion
//   - select: rows matched by the SQL compilation of a condition over the
//     stored table; the SQL result must also agree with the in-memory query
//   - violations: number of schema violations (without it any violation
//     fails the scenario)
//
// # Pipeline
//
// Run transforms the raw table, validates it, imports it into a fresh
// in-memory store, fuses the modalities and evaluates the assertions. Each
// stage appends one line to the trace; RunWithGolden compares the trace
// with testdata/golden/{name}.golden.
package harness
