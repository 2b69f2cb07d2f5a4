// Package fileset models the resolved destination tree of a release.
//
// A ResolvedFileSet maps normalized destination-relative paths to lazy
// byte-content providers plus the provenance of the rule that produced each
// entry. Merging is strict: two producers targeting the same destination path
// (or a file path shadowing a directory) raise PathCollisionError instead of
// silently overwriting, so every released byte stays traceable to exactly one
// rule.
package fileset
