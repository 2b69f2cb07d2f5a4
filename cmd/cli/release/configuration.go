package release

import "strings"

const (
	authorNameConfigurationKeyConstant  = "author_name"
	authorEmailConfigurationKeyConstant = "author_email"
	configurationKeySeparatorConstant   = "."
)

// CommandConfiguration stores persisted defaults for the release command.
type CommandConfiguration struct {
	AuthorName  string `mapstructure:"author_name"`
	AuthorEmail string `mapstructure:"author_email"`
}

// DefaultCommandConfiguration returns the built-in command defaults.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{}
}

// Sanitize normalizes configured values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	configuration.AuthorName = strings.TrimSpace(configuration.AuthorName)
	configuration.AuthorEmail = strings.TrimSpace(configuration.AuthorEmail)
	return configuration
}

// DefaultConfigurationValues exposes the command defaults for the
// application-level configuration loader.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	return map[string]any{
		configurationKeyPrefix + configurationKeySeparatorConstant + authorNameConfigurationKeyConstant:  "",
		configurationKeyPrefix + configurationKeySeparatorConstant + authorEmailConfigurationKeyConstant: "",
	}
}
