// Package cli constructs the relpack command-line interface, wiring the
// Cobra command hierarchy, configuration loader, and structured logging
// primitives around the release pipeline.
package cli
