package releaseconf

import "fmt"

const configErrorTemplateConstant = "invalid release configuration: %s"

// ConfigError reports malformed or contradictory release configuration.
// It is always raised before the pipeline performs any I/O.
type ConfigError struct {
	Detail string
}

// Error implements the error interface.
func (configurationError *ConfigError) Error() string {
	return fmt.Sprintf(configErrorTemplateConstant, configurationError.Detail)
}

// NewConfigError builds a ConfigError with a formatted detail message.
func NewConfigError(detailTemplate string, templateArguments ...any) *ConfigError {
	return &ConfigError{Detail: fmt.Sprintf(detailTemplate, templateArguments...)}
}
