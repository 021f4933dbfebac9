// Package audit implements the append-only audit trail of dispatcher actions.
//
// Every command accepted or rejected for a unit is written as one JSON line
// with the acting user, unit, parameters, outcome and result code. The file
// is rotated by size.
package audit
