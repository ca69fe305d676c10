// Package counter provides the crash-tolerant tick counter.
//
// The count lives in a single small file holding its decimal value. Every
// increment writes the new value to a temporary file in the same directory
// and renames it over the old one, so a reader after a crash sees either the
// previous or the new value. Content that does not parse as a non-negative
// integer is read as zero and overwritten by the next increment.
//
// One File owns one path. Two processes incrementing the same path at the
// same time is not supported.
package counter
