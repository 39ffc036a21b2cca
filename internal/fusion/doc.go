// Package fusion merges several imperfect diagnoses of the same lymph node
// level into one estimate and infers involvement between super- and
// sublevels.
//
// Every function returns a new table holding only the derived columns. Use
// table.Update to merge them into the source table: known cells are never
// overwritten.
//
// InferAndCombine runs the three steps in the only safe order. Superlevel
// inference comes first because sublevels can only be marked healthy when
// their superlevel is known to be healthy, and that knowledge may itself
// come from the sublevels of another modality column.
package fusion
