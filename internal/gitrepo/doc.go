// Package gitrepo contains the git collaborator used by the release pipeline.
//
// It speaks to the git CLI through execshell and deliberately stays at the
// plumbing level the pipeline needs: clone at a ref, stage everything, read
// configured identity, commit, push, and answer head/status queries. Release
// semantics live elsewhere.
package gitrepo
