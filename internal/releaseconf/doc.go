// Package releaseconf defines the typed release configuration model.
//
// A Configuration is loaded from the [tool.relpack] table of an origin's
// pyproject.toml, validated once, and treated as immutable by the rest of the
// pipeline. Validation guarantees that every destination path is relative,
// confined, and free of duplicate or nested targets before any I/O happens.
package releaseconf
