// Package destination replaces the contents of the destination working tree
// with a resolved file set. The wipe spares reserved control directories, and
// every file is written through a temporary sibling and rename so readers
// never observe a half-written file.
package destination
