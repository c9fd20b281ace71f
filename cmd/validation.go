package cmd

import (
	"fmt"
	"strings"

	"github.com/conneroisu/mdpreview/internal/watcher"
	"github.com/spf13/cobra"
)

// validateDocumentArg checks the document argument of serve and render.
func validateDocumentArg(arg string) error {
	if strings.TrimSpace(arg) == "" {
		return fmt.Errorf("document path cannot be empty")
	}
	if strings.ContainsRune(arg, 0) {
		return fmt.Errorf("document path contains a NUL byte")
	}

	if !watcher.MarkdownFilter(arg) {
		return fmt.Errorf("not a markdown file: %s", arg)
	}

	return ValidateFileExists(arg)
}

// documentArg is a cobra positional-args validator for a single document.
func documentArg(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one markdown file, got %d arguments", len(args))
	}
	if err := validateDocumentArg(args[0]); err != nil {
		return fmt.Errorf("invalid argument '%s': %w", args[0], err)
	}
	return nil
}
