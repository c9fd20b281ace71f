package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/conneroisu/mdpreview/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Output formats accepted by listing commands.
var outputFormats = []string{"table", "json", "yaml"}

// addServerFlags registers the flags of commands that serve a preview.
func addServerFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntP("port", "p", 8080, "Port to serve on")
	fs.String("host", "localhost", "Host to bind to")
	fs.Bool("no-open", false, "Don't open browser automatically")
	fs.StringSlice("allowed-origins", nil, "Extra origins allowed to open the websocket")

	AddFlagValidation(fs, "port", ValidatePort)
	AddFlagValidation(fs, "host", ValidateHost)

	bindFlags(cmd, map[string]string{
		"port":            "server.port",
		"host":            "server.host",
		"no-open":         "server.no-open",
		"allowed-origins": "server.allowed_origins",
	})
}

// addPreviewFlags registers the rendering flags shared by serve and render.
func addPreviewFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringP("theme", "t", "", "Preview theme id")
	fs.String("template", "", "Template id used for metadata substitution")
	fs.Bool("use-template", false, "Wrap the rendered document in the selected template")
	fs.Bool("hide-leading-heading", false, "Hide the document's first heading")
	fs.String("templates-dir", "", "Directory with extra *.html templates")
	fs.String("themes-dir", "", "Directory with extra <id>.css themes")
	fs.String("author", "", "Default author for documents without one")

	AddFlagValidation(fs, "templates-dir", ValidateDirExists)
	AddFlagValidation(fs, "themes-dir", ValidateDirExists)

	bindFlags(cmd, map[string]string{
		"theme":                "preview.theme",
		"template":             "preview.template",
		"use-template":         "preview.template_enabled",
		"hide-leading-heading": "preview.hide_leading_heading",
		"templates-dir":        "preview.templates_dir",
		"themes-dir":           "preview.themes_dir",
		"author":               "metadata.author",
	})
}

// addOutputFlag registers --format for listing commands.
func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "format", "f", "table", "Output format (table|json|yaml)")
	AddFlagValidation(cmd.Flags(), "format", ValidateOneOf(outputFormats...))
}

// flagBindings maps each command's flags to configuration keys. Several
// commands share flag names, so bindings are applied for the command that
// actually runs rather than at registration time.
var flagBindings = map[*cobra.Command]map[string]string{}

// bindFlags records flag to configuration key bindings for cmd.
func bindFlags(cmd *cobra.Command, bindings map[string]string) {
	if flagBindings[cmd] == nil {
		flagBindings[cmd] = make(map[string]string, len(bindings))
	}
	for flagName, configKey := range bindings {
		flagBindings[cmd][flagName] = configKey
	}
}

// applyFlagBindings binds the running command's flags to viper.
func applyFlagBindings(cmd *cobra.Command) error {
	for flagName, configKey := range flagBindings[cmd] {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil {
			continue
		}
		if err := viper.BindPFlag(configKey, flag); err != nil {
			return fmt.Errorf("binding --%s: %w", flagName, err)
		}
	}
	return nil
}

// AddFlagValidation validates a flag's value whenever it is set.
func AddFlagValidation(fs *pflag.FlagSet, flagName string, validator func(string) error) {
	flag := fs.Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidatePort checks a TCP port number.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}

	return nil
}

// ValidateHost rejects empty hosts and values that look like URLs or paths.
func ValidateHost(host string) error {
	if strings.TrimSpace(host) == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if strings.ContainsAny(host, "/ ") {
		return fmt.Errorf("invalid host: %s", host)
	}
	return nil
}

// ValidateLogLevel checks a log level name.
func ValidateLogLevel(level string) error {
	_, err := logging.ParseLevel(level)
	return err
}

// ValidateOneOf returns a validator accepting only the given values.
func ValidateOneOf(allowed ...string) func(string) error {
	return func(val string) error {
		for _, a := range allowed {
			if val == a {
				return nil
			}
		}
		return fmt.Errorf("invalid value %s, must be one of: %s", val, strings.Join(allowed, ", "))
	}
}

// ValidateFileExists checks that filename names an existing regular file.
func ValidateFileExists(filename string) error {
	if filename == "" {
		return nil
	}

	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filename)
	}
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", filename, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", filename)
	}

	return nil
}

// ValidateDirExists checks that dir names an existing directory. Empty is
// valid for optional directories.
func ValidateDirExists(dir string) error {
	if dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return fmt.Errorf("directory does not exist: %s", dir)
	}
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	return nil
}
