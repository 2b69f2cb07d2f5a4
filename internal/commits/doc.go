// Package commits records the written destination tree in version control.
// The driver stages everything, skips committing when nothing changed, and
// falls back to the repository's configured identity when no author is
// supplied.
package commits
