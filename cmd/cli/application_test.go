package cli_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relpack/relpack/cmd/cli"
)

func TestEmbeddedDefaultConfiguration(testInstance *testing.T) {
	configurationContent, configurationType := cli.EmbeddedDefaultConfiguration()
	require.Equal(testInstance, "yaml", configurationType)
	require.Contains(testInstance, string(configurationContent), "log_level: info")
}

func TestRootCommandShowsHelp(testInstance *testing.T) {
	application := cli.NewApplication()

	outputBuffer := &bytes.Buffer{}
	executionError := application.ExecuteWithArgs(outputBuffer, []string{})
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, outputBuffer.String(), "release")
}

func TestReleaseCommandRequiresDestination(testInstance *testing.T) {
	application := cli.NewApplication()

	outputBuffer := &bytes.Buffer{}
	executionError := application.ExecuteWithArgs(outputBuffer, []string{"release"})
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), "destination")
}
