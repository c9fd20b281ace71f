package stages

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExternalLinksID identifies the external-links stage.
const ExternalLinksID = "external-links"

// NewExternalLinks opens absolute http(s) links in a new browsing context.
//
// Options: "target" (default "_blank"), "rel" (default "noopener noreferrer").
func NewExternalLinks() Stage {
	return Func{
		Name:    ExternalLinksID,
		Summary: "Open external links in a new tab",
		Fn:      applyExternalLinks,
	}
}

func applyExternalLinks(markup string, config map[string]interface{}) (string, error) {
	target := configString(config, "target", "_blank")
	rel := configString(config, "rel", "noopener noreferrer")

	return transform(markup, func(root *html.Node) {
		Walk(root, func(n *html.Node) bool {
			if n.Type != html.ElementNode || n.DataAtom != atom.A {
				return true
			}
			href, ok := Attr(n, "href")
			if !ok || !isExternal(href) {
				return true
			}
			SetAttr(n, "target", target)
			SetAttr(n, "rel", rel)
			return true
		})
	})
}

func isExternal(href string) bool {
	lower := strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "//")
}
