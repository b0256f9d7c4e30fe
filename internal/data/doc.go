// Package data provides the structured-data tag values that store sinks,
// data predicates and macro arguments operate on.
//
// This package imports nothing internal. Every other package that touches
// entity data, storage compounds or numeric store targets depends on it.
//
// Key design constraints:
//   - Numeric tags keep their declared width (byte, short, int, long, float,
//     double); narrowing wraps and never saturates
//   - Compound iteration always goes through SortedKeys (UTF-16 order)
//   - The canonical encoding is the only persisted form; strings are NFC
//     normalized at that boundary
package data
