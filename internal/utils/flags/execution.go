// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// DryRunFlagName is the canonical name of the dry-run toggle shared across commands.
	DryRunFlagName          = "dry-run"
	dryRunFlagUsageConstant = "Preview the release plan without touching the destination"
)

// ExecutionFlags captures the resolved values of the standardized execution flags.
type ExecutionFlags struct {
	DryRun    bool
	DryRunSet bool
}

// BindDryRunFlag attaches the standardized dry-run flag to the provided command.
func BindDryRunFlag(command *cobra.Command, defaultValue bool) {
	if command == nil {
		return
	}
	command.Flags().Bool(DryRunFlagName, defaultValue, dryRunFlagUsageConstant)
}

// ResolveExecutionFlags reads the standardized execution flags from the command or its ancestors.
func ResolveExecutionFlags(command *cobra.Command) ExecutionFlags {
	resolved := ExecutionFlags{}
	if command == nil {
		return resolved
	}

	dryRunFlag := lookupFlag(command, DryRunFlagName)
	if dryRunFlag == nil {
		return resolved
	}

	flagValue, parseError := command.Flags().GetBool(DryRunFlagName)
	if parseError != nil {
		return resolved
	}

	resolved.DryRun = flagValue
	resolved.DryRunSet = dryRunFlag.Changed
	return resolved
}

func lookupFlag(command *cobra.Command, flagName string) *pflag.Flag {
	for currentCommand := command; currentCommand != nil; currentCommand = currentCommand.Parent() {
		if foundFlag := currentCommand.Flags().Lookup(flagName); foundFlag != nil {
			return foundFlag
		}
	}
	return nil
}
