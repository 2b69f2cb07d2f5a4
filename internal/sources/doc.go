// Package sources turns configured release rules into materialized file sets.
//
// Each rule kind (local tree, built wheel artifact, remote repository) knows
// how to resolve itself into entries for the shared ResolvedFileSet. Remote
// repositories may carry their own release configuration, in which case the
// full pipeline recurses into the materialized clone; a visited chain of
// repository addresses guards the recursion against cycles. Wheel and repo
// rules resolve concurrently under a bounded worker pool, but results always
// merge in declared rule order so collision detection stays reproducible.
package sources
