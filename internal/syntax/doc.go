// Package syntax maps development operations to shell command templates for
// each operating system family.
//
// The table is static. A lookup selects the row for the family of the
// probed environment, falling back along a fixed chain when the family has
// no row of its own:
//
//	pi     -> linux
//	darwin -> linux
//	linux  -> darwin
//	windows   (no fallback)
//
// Templates use {name} placeholders; {{ and }} produce literal braces.
// Format never returns a partially expanded string: a missing variable is
// reported as ErrMissingVariable naming the key.
package syntax
