// Package cmd provides the command-line interface for mdpreview.
//
// Configuration System:
//
//	Settings come from several sources with clear precedence:
//	1. Command-line flags (--config, --port, etc.) - highest priority
//	2. MDPREVIEW_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (MDPREVIEW_SERVER_PORT, etc.)
//	4. Configuration file (.mdpreview.yml) - lowest priority
//
// Environment Variables:
//
//	MDPREVIEW_CONFIG_FILE: Path to custom configuration file
//	MDPREVIEW_SERVER_PORT: Override server port
//	MDPREVIEW_PREVIEW_THEME: Override the preview theme
//	And the rest following the MDPREVIEW_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conneroisu/mdpreview/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mdpreview",
	Short: "Live browser preview for markdown documents",
	Long: `mdpreview renders a markdown document in the browser and keeps the
preview in sync while you edit the file.

Key Features:
  • Debounced re-rendering with scroll-preserving content patches
  • Front-matter metadata with template substitution
  • Configurable post-processing stages
  • Themes with live stylesheet reload

Quick Start:
  mdpreview serve README.md       Preview a document
  mdpreview render README.md      Render a document to HTML
  mdpreview stages                List transform stages
  mdpreview config show           Print the effective configuration`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return applyFlagBindings(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .mdpreview.yml, can also use MDPREVIEW_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))

	AddFlagValidation(rootCmd.PersistentFlags(), "log-level", ValidateLogLevel)
	AddFlagValidation(rootCmd.PersistentFlags(), "log-format", ValidateOneOf("text", "json"))
}

// initConfig points viper at the configuration file.
//
// Loading priority (highest to lowest):
//  1. --config flag
//  2. MDPREVIEW_CONFIG_FILE environment variable
//  3. .mdpreview.yml in the current directory
//
// Every key can also be set from the environment with the MDPREVIEW_ prefix,
// e.g. MDPREVIEW_SERVER_PORT=9000.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("MDPREVIEW_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mdpreview")
	}

	viper.SetEnvPrefix("MDPREVIEW")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// A missing or unreadable file falls back to defaults.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from the resolved log settings.
// Logs go to stderr so rendered output on stdout stays clean.
func newLogger(level, format string, out io.Writer) logging.Logger {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		lvl = logging.LevelInfo
	}
	if out == nil {
		out = os.Stderr
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     lvl,
		Format:    format,
		Output:    out,
		Component: "mdpreview",
	})
}
