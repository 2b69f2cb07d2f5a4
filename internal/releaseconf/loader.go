package releaseconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	mapstructure "github.com/go-viper/mapstructure/v2"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	// ProjectManifestFileName is the manifest probed for a release configuration.
	ProjectManifestFileName = "pyproject.toml"

	toolTableKeyConstant          = "tool"
	relpackTableKeyConstant       = "relpack"
	projectTableKeyConstant       = "project"
	poetryTableKeyConstant        = "poetry"
	versionKeyConstant            = "version"
	manifestReadErrorTemplate     = "unable to read %s: %w"
	manifestParseErrorTemplate    = "unable to parse %s: %w"
	configurationDecodeErrorTempl = "unable to decode [tool.relpack]: %v"
)

// ErrConfigurationNotFound reports that the manifest carries no [tool.relpack] table.
var ErrConfigurationNotFound = errors.New("relpack configuration not found")

// Load reads and validates the release configuration from the directory's
// project manifest. Directories without a manifest or without a
// [tool.relpack] table yield ErrConfigurationNotFound.
func Load(directoryPath string) (Configuration, error) {
	manifestPath := filepath.Join(directoryPath, ProjectManifestFileName)

	manifestContent, readError := os.ReadFile(manifestPath)
	if readError != nil {
		if os.IsNotExist(readError) {
			return Configuration{}, ErrConfigurationNotFound
		}
		return Configuration{}, fmt.Errorf(manifestReadErrorTemplate, manifestPath, readError)
	}

	return Parse(manifestContent, manifestPath)
}

// Parse decodes a release configuration from manifest content. The manifest
// path is only used for error reporting.
func Parse(manifestContent []byte, manifestPath string) (Configuration, error) {
	var manifestDocument map[string]any
	if unmarshalError := toml.Unmarshal(manifestContent, &manifestDocument); unmarshalError != nil {
		return Configuration{}, fmt.Errorf(manifestParseErrorTemplate, manifestPath, unmarshalError)
	}

	relpackTable, tableFound := lookupTable(manifestDocument, toolTableKeyConstant, relpackTableKeyConstant)
	if !tableFound {
		return Configuration{}, ErrConfigurationNotFound
	}

	var configuration Configuration
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &configuration})
	if decoderError != nil {
		return Configuration{}, decoderError
	}
	if decodeError := decoder.Decode(relpackTable); decodeError != nil {
		return Configuration{}, NewConfigError(configurationDecodeErrorTempl, decodeError)
	}

	configuration.Version = resolveManifestVersion(manifestDocument)

	if validationError := Validate(configuration); validationError != nil {
		return Configuration{}, validationError
	}

	return configuration, nil
}

// resolveManifestVersion prefers the PEP 621 [project] version and falls back
// to [tool.poetry].
func resolveManifestVersion(manifestDocument map[string]any) string {
	if projectTable, projectFound := lookupTable(manifestDocument, projectTableKeyConstant); projectFound {
		if versionValue, versionIsString := projectTable[versionKeyConstant].(string); versionIsString {
			return versionValue
		}
	}
	if poetryTable, poetryFound := lookupTable(manifestDocument, toolTableKeyConstant, poetryTableKeyConstant); poetryFound {
		if versionValue, versionIsString := poetryTable[versionKeyConstant].(string); versionIsString {
			return versionValue
		}
	}
	return ""
}

func lookupTable(document map[string]any, tableKeys ...string) (map[string]any, bool) {
	currentTable := document
	for _, tableKey := range tableKeys {
		childValue, childExists := currentTable[tableKey]
		if !childExists {
			return nil, false
		}
		childTable, childIsTable := childValue.(map[string]any)
		if !childIsTable {
			return nil, false
		}
		currentTable = childTable
	}
	return currentTable, true
}
