// Package patches rewrites selected file contents after source resolution.
// Configured rules pair a destination glob with a regular expression
// substitution and run in declared order, so later rules observe the output
// of earlier ones. Binary files are never rewritten.
package patches
