// Package logging configures the process-wide zerolog logger, optionally
// teeing to a size-rotated file.
package logging
