// Package manifests synthesizes derived release artifacts: the flattened
// requirements manifest, managed pyproject edits, the version descriptor,
// and post-write lock file regeneration. Requirement data comes from the
// origin's own dependency tooling (uv preferred, poetry fallback).
package manifests
