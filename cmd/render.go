package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/conneroisu/mdpreview/internal/document"
	"github.com/conneroisu/mdpreview/internal/logging"
	"github.com/conneroisu/mdpreview/internal/metadata"
	"github.com/conneroisu/mdpreview/internal/mount"
	"github.com/conneroisu/mdpreview/internal/version"
	"github.com/conneroisu/mdpreview/internal/views"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	renderOutput   string
	renderFragment bool
	renderMeta     bool
	renderSet      map[string]string
)

var renderCmd = &cobra.Command{
	Use:     "render <file.md>",
	Aliases: []string{"r"},
	Short:   "Render a markdown document to HTML",
	Long: `Render a document once with the configured theme, template and stages
and write the result as a standalone HTML page.

Examples:
  mdpreview render README.md                     # Write HTML to stdout
  mdpreview render README.md -o README.html      # Write to a file
  mdpreview render notes.md --fragment           # Markup only, no page shell
  mdpreview render notes.md --meta               # Print resolved metadata
  mdpreview render notes.md --set title=Draft    # Override a metadata field`,
	Args: documentArg,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	addPreviewFlags(renderCmd)

	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output file (default stdout)")
	renderCmd.Flags().BoolVar(&renderFragment, "fragment", false, "Write the rendered markup without the page shell")
	renderCmd.Flags().BoolVar(&renderMeta, "meta", false, "Print the resolved metadata as YAML instead of rendering")
	renderCmd.Flags().StringToStringVar(&renderSet, "set", nil, "Override a metadata field (key=value, repeatable)")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stack, err := newRenderStack(cfg, logger)
	if err != nil {
		return err
	}

	doc, err := document.Load(cfg.Document)
	if err != nil {
		return err
	}

	fm, err := metadata.ParseFrontmatter(doc.Text)
	if err != nil {
		logger.Warn(ctx, err, "Ignoring malformed front-matter", "document", doc.Path)
	}
	meta := metadata.Resolve(
		overrideFromFlags(renderSet),
		fm,
		metadata.ComputeDefaults(doc.Path, time.Now(), cfg.Metadata.Author),
	)

	out, closeOut, err := openOutput(cmd.OutOrStdout(), renderOutput)
	if err != nil {
		return err
	}
	defer closeOut()

	if renderMeta {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]interface{}(meta)); err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}
		return enc.Close()
	}

	snap := cfg.Snapshot()
	op := logging.StartOperation(logger, "render", "document", doc.Path)
	markup := stack.pipeline.Render(ctx, doc.Path, doc.Text, snap, meta)
	op.End(ctx)

	if renderFragment {
		_, err := io.WriteString(out, markup)
		return err
	}

	css, err := stack.themes.Stylesheet(snap.ThemeID)
	if err != nil {
		logger.Warn(ctx, err, "Theme unavailable; rendering without styles", "theme", snap.ThemeID)
	}

	return views.Page(views.PageData{
		Title:     meta.String(metadata.FieldTitle),
		ThemeID:   snap.ThemeID,
		CSS:       css,
		Markup:    markup,
		Container: mount.DefaultContainer,
		Isolation: cfg.Preview.Isolation,
		Version:   version.GetShortVersion(),
		Static:    true,
	}).Render(ctx, out)
}

// overrideFromFlags turns --set pairs into a metadata override. A pair with an
// empty value still counts as present and clears the field.
func overrideFromFlags(pairs map[string]string) metadata.Override {
	if len(pairs) == 0 {
		return nil
	}
	o := make(metadata.Override, len(pairs))
	for k, v := range pairs {
		o[k] = v
	}
	return o
}

// openOutput returns the file at path, or def when path is empty.
func openOutput(def io.Writer, path string) (io.Writer, func(), error) {
	if path == "" {
		return def, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
