package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/conneroisu/mdpreview/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = ".mdpreview.yml"

var (
	configFormat string
	configStrict bool
	configForce  bool

	configValidateFile string
	configInitFile     string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate configuration",
	Long: `Inspect, validate and create mdpreview configuration.

Configuration is read from .mdpreview.yml (or --config), MDPREVIEW_*
environment variables and command-line flags.

Examples:
  mdpreview config show                 # Effective configuration as YAML
  mdpreview config show -f json         # ... as JSON
  mdpreview config validate             # Validate .mdpreview.yml
  mdpreview config validate --strict    # Treat warnings as errors
  mdpreview config init                 # Write a default .mdpreview.yml`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the defaults",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configValidateCmd, configInitCmd)

	configShowCmd.Flags().StringVarP(&configFormat, "format", "f", "yaml", "Output format (yaml, json)")
	AddFlagValidation(configShowCmd.Flags(), "format", ValidateOneOf("yaml", "json"))

	configValidateCmd.Flags().StringVar(&configValidateFile, "file", "", "Configuration file to validate (default .mdpreview.yml)")
	configValidateCmd.Flags().BoolVar(&configStrict, "strict", false, "Treat warnings as errors")

	configInitCmd.Flags().StringVar(&configInitFile, "file", defaultConfigFile, "File to write")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	return writeConfig(cmd.OutOrStdout(), cfg, configFormat)
}

func writeConfig(out io.Writer, cfg *config.Config, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	case "yaml", "yml":
		fmt.Fprintln(out, "# Effective mdpreview configuration")
		fmt.Fprintln(out, "# Resolved from all sources (file, env vars, flags, defaults)")
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format: %s (supported: yaml, json)", format)
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	targetFile := configValidateFile
	if targetFile == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return errors.New("no configuration file found. Use --file to specify a config file " +
				"or run 'mdpreview config init' to create one")
		}
		targetFile = defaultConfigFile
	}

	if _, err := os.Stat(targetFile); os.IsNotExist(err) {
		return fmt.Errorf("configuration file %s does not exist", targetFile)
	}

	fmt.Fprintf(out, "Validating configuration file: %s\n", targetFile)

	v := viper.New()
	v.SetConfigFile(targetFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	cfg, err := config.Decode(v)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	validation := config.ValidateConfigWithDetails(cfg, newCatalog(cfg))

	if !validation.HasErrors() && !validation.HasWarnings() {
		fmt.Fprintln(out, "Configuration is valid.")
		return nil
	}

	fmt.Fprint(out, validation.String())

	if validation.HasErrors() {
		return fmt.Errorf("configuration validation failed with %d errors", len(validation.Errors))
	}

	if configStrict {
		return fmt.Errorf(
			"configuration validation failed in strict mode with %d warnings",
			len(validation.Warnings),
		)
	}

	fmt.Fprintf(out, "Configuration is valid with %d warnings. Use --strict to treat warnings as errors.\n",
		len(validation.Warnings))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configInitFile); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configInitFile)
	}

	cfg, err := config.Decode(viper.New())
	if err != nil {
		return err
	}

	f, err := os.Create(configInitFile)
	if err != nil {
		return fmt.Errorf("creating %s: %w", configInitFile, err)
	}
	defer f.Close()

	if err := writeConfig(f, cfg, "yaml"); err != nil {
		return fmt.Errorf("writing %s: %w", configInitFile, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configInitFile)
	return nil
}
