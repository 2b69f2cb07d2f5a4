// Package releaser drives the release pipeline end to end: configuration
// loading, source resolution, patching, metadata generation, destination
// writing, and the final commit. It owns the per-run workspace and tears it
// down on every exit path.
package releaser
