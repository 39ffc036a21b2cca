// Package query provides a composable predicate algebra over canonical
// lydata tables.
//
// PREDICATES:
//
// A Predicate is pure data. It holds column references as strings, either a
// short alias ("age") or a full "domain/group/field" path, and resolves them
// only when it is evaluated against a table. Building a predicate therefore
// never fails on unknown columns; the lookup failure surfaces from Mask.
//
//	p := query.AndOf(
//	    query.C("age").Ge(50),
//	    query.C("CT/ipsi/II").Eq(true),
//	)
//	mask, err := query.Mask(t, p)
//
// Predicate types:
//   - *Leaf: column, operator and literal; or a custom column function
//   - *And, *Or: element-wise conjunction and disjunction of children
//   - *Not: element-wise negation
//   - *All: the neutral predicate, true for every row
//
// NULL SEMANTICS:
//
// Involvement cells are tri-state and unknown is never false. A null cell
// fails ==, <, <=, >, >= and in, and satisfies !=. Ordering operators are
// false for cells whose kind cannot be ordered against the literal.
// Negation is plain mask inversion, so NOT (x == v) holds for null cells.
//
// PORTIONS:
//
// Portion counts how many rows of a "given" subset also match a query. A
// portion over zero rows has no ratio: Ratio and Percent report ok=false
// instead of dividing by zero.
//
// SEALED INTERFACES:
//
// Predicate is sealed with a marker method so backends, like the SQL
// compiler in querysql, can switch over every predicate type exhaustively.
package query
