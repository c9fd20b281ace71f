package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("Validation errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    - %s\n", suggestion))
			}
		}
		builder.WriteString("\n")
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("Validation warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    - %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

// Catalog lists the stage, theme and template ids known at runtime so
// references in the config can be checked.
type Catalog struct {
	Stages    []string
	Themes    []string
	Templates []string
}

// ValidateConfigWithDetails performs comprehensive validation with detailed feedback
func ValidateConfigWithDetails(config *Config, catalog Catalog) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateServerConfigDetails(&config.Server, result)
	validatePreviewConfigDetails(&config.Preview, catalog, result)
	validateStagesDetails(config, catalog, result)

	if config.Cache.Capacity < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "cache.capacity",
			Value:   config.Cache.Capacity,
			Message: "capacity must be at least 1",
			Suggestions: []string{
				fmt.Sprintf("Remove the key to use the default of %d", DefaultCacheCapacity),
			},
		})
	}

	result.Valid = !result.HasErrors()

	return result
}

func validateServerConfigDetails(config *ServerConfig, result *ValidationResult) {
	if config.Port < 0 || config.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.port",
			Value:   config.Port,
			Message: fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			Suggestions: []string{
				"Use a port between 1024-65535 for non-privileged access",
				"Port 0 allows system to assign an available port",
			},
		})
	} else if config.Port > 0 && config.Port < 1024 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "server.port",
			Value:   config.Port,
			Message: "port below 1024 requires elevated privileges",
			Suggestions: []string{
				"Consider using a port above 1024 for a local preview",
			},
		})
	}

	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "server.host",
				Value:   config.Host,
				Message: err.Error(),
				Suggestions: []string{
					"Use 'localhost' for local previews",
					"Use '0.0.0.0' to bind to all interfaces",
				},
			})
		} else if config.Host == "0.0.0.0" {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   "server.host",
				Value:   config.Host,
				Message: "preview is reachable from other machines",
				Suggestions: []string{
					"Use 'localhost' unless the preview must be shared",
				},
			})
		}
	}
}

func validatePreviewConfigDetails(config *PreviewConfig, catalog Catalog, result *ValidationResult) {
	if len(catalog.Themes) > 0 && config.Theme != "" && !contains(catalog.Themes, config.Theme) {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "preview.theme",
			Value:   config.Theme,
			Message: fmt.Sprintf("unknown theme '%s', the stylesheet will be empty", config.Theme),
			Suggestions: []string{
				"Available themes: " + strings.Join(catalog.Themes, ", "),
			},
		})
	}

	if config.TemplateEnabled && len(catalog.Templates) > 0 && !knownTemplate(catalog.Templates, config.Template) {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "preview.template",
			Value:   config.Template,
			Message: fmt.Sprintf("unknown template '%s', rendering falls back to raw markup", config.Template),
			Suggestions: []string{
				"Available templates: " + strings.Join(catalog.Templates, ", "),
			},
		})
	}

	if config.Debounce > 0 && config.Debounce < 20*time.Millisecond {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "preview.debounce",
			Value:   config.Debounce,
			Message: "a very short quiet window renders on almost every keystroke",
			Suggestions: []string{
				fmt.Sprintf("The default is %s", DefaultDebounce),
			},
		})
	}

	if config.MinUpdateInterval > config.Debounce {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "preview.min_update_interval",
			Value:   config.MinUpdateInterval,
			Message: "updates closer than the interval are dropped; a value above the debounce window can leave the preview one edit behind",
			Suggestions: []string{
				"Keep min_update_interval below preview.debounce",
			},
		})
	}

	for field, dir := range map[string]string{
		"preview.templates_dir": config.TemplatesDir,
		"preview.themes_dir":    config.ThemesDir,
	} {
		if dir == "" {
			continue
		}
		if err := validatePath(dir); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Value:   dir,
				Message: err.Error(),
				Suggestions: []string{
					"Use relative paths from the document directory",
					"Avoid parent directory references (..)",
				},
			})
		} else if !pathExists(dir) {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   field,
				Value:   dir,
				Message: "directory does not exist",
				Suggestions: []string{
					"Create the directory: mkdir -p " + dir,
					"Remove the setting to use the built-in set",
				},
			})
		}
	}
}

func validateStagesDetails(config *Config, catalog Catalog, result *ValidationResult) {
	seen := make(map[string]bool, len(config.Stages))
	for i, st := range config.Stages {
		field := fmt.Sprintf("stages[%d]", i)
		switch {
		case strings.TrimSpace(st.ID) == "":
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Value:   st,
				Message: "stage has no id",
			})
		case seen[st.ID]:
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Value:   st.ID,
				Message: fmt.Sprintf("stage '%s' listed twice", st.ID),
				Suggestions: []string{
					"Each stage runs at most once; remove the duplicate",
				},
			})
		case len(catalog.Stages) > 0 && !contains(catalog.Stages, st.ID):
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   field,
				Value:   st.ID,
				Message: fmt.Sprintf("unknown stage '%s' will be skipped", st.ID),
				Suggestions: []string{
					"Available stages: " + strings.Join(catalog.Stages, ", "),
				},
			})
		}
		seen[st.ID] = true
	}
}

// Helper validation functions

func validateHostname(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	if host == "localhost" {
		return nil
	}

	if !hostnamePattern.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}

	return nil
}

var hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// knownTemplate mirrors the store lookup, which also accepts the id with a
// trailing ".html".
func knownTemplate(ids []string, id string) bool {
	return contains(ids, id) || contains(ids, strings.TrimSuffix(id, ".html"))
}
