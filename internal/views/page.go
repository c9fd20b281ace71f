// Package views renders the preview page shell and the diagnostic panel as
// templ components.
package views

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// PageData feeds the preview page shell.
type PageData struct {
	Title     string
	ThemeID   string
	CSS       string
	Markup    string
	Container string
	Isolation bool
	WSPath    string
	Version   string
	// Static omits the live-update script, for exported documents.
	Static bool
}

// Page renders the full preview document. Content and styles arrive over the
// websocket afterwards; the initial markup avoids a blank first paint.
func Page(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := data.Title
		if title == "" {
			title = "mdpreview"
		}

		if _, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><meta name="generator" content="mdpreview %s"><title>%s</title><style id="mdpreview-style">%s</style></head>`,
			templ.EscapeString(data.Version),
			templ.EscapeString(title),
			data.CSS,
		); err != nil {
			return err
		}

		isolation := "false"
		if data.Isolation {
			isolation = "true"
		}
		if _, err := fmt.Fprintf(w,
			`<body><main id="%s" data-theme="%s" data-isolation="%s" data-ws="%s">`,
			templ.EscapeString(data.Container),
			templ.EscapeString(data.ThemeID),
			isolation,
			templ.EscapeString(data.WSPath),
		); err != nil {
			return err
		}

		// Markup is produced by the render pipeline.
		if err := templ.Raw(data.Markup).Render(ctx, w); err != nil {
			return err
		}

		if data.Static {
			_, err := io.WriteString(w, `</main></body></html>`)
			return err
		}
		if _, err := io.WriteString(w, `</main><script>`+clientScript+`</script></body></html>`); err != nil {
			return err
		}
		return nil
	})
}

// Diagnostic renders the panel shown instead of content when the preview
// surface cannot be mounted.
func Diagnostic(title string, err error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		detail := "unknown error"
		if err != nil {
			detail = err.Error()
		}
		_, werr := fmt.Fprintf(w,
			`<section class="mdpreview mdpreview-diagnostic" role="alert"><div class="mdpreview-render-error"><h2>%s</h2><pre>%s</pre><p>The preview will retry on the next edit.</p></div></section>`,
			templ.EscapeString(title),
			templ.EscapeString(detail),
		)
		return werr
	})
}

// RenderString renders a component to a string.
func RenderString(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
