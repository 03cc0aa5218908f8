package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidProviders returns the accepted oracle providers.
func ValidProviders() []string {
	return []string{"none", "mock", "openai", "codex"}
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log formats
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	provider := strings.ToLower(strings.TrimSpace(c.Oracle.Provider))
	if provider == "" {
		provider = "none"
	}
	c.Oracle.Provider = provider
	if !slices.Contains(ValidProviders(), provider) {
		errs = append(errs, ValidationError{
			Field:   "oracle.provider",
			Value:   c.Oracle.Provider,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidProviders(), ", ")),
		})
	}
	if provider == "openai" && strings.TrimSpace(c.Oracle.APIKey) == "" {
		errs = append(errs, ValidationError{
			Field:   "oracle.api_key",
			Value:   "",
			Message: "required for the openai provider (or set OPENAI_API_KEY)",
		})
	}
	if c.Oracle.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "oracle.timeout", Value: c.Oracle.Timeout, Message: "must be positive"})
	}
	if c.Planner.LockTTL <= 0 {
		errs = append(errs, ValidationError{Field: "planner.lock_ttl", Value: c.Planner.LockTTL, Message: "must be positive"})
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, ValidationError{Field: "database.path", Value: c.Database.Path, Message: "is required"})
	}
	if strings.TrimSpace(c.Audit.Path) == "" {
		errs = append(errs, ValidationError{Field: "audit.path", Value: c.Audit.Path, Message: "is required"})
	}
	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}
	return errs
}
