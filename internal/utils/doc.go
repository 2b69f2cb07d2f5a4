// Package utils exposes reusable helpers consumed by multiple commands.
//
// It contains the viper-backed configuration loader and the zap logger
// factory shared by the relpack command tree.
package utils
