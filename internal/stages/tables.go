package stages

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TableWrapID identifies the table-wrap stage.
const TableWrapID = "table-wrap"

// NewTableWrap wraps every table in a scrollable container so wide tables do
// not stretch the preview. Option: "class" (default "table-wrap").
func NewTableWrap() Stage {
	return Func{
		Name:    TableWrapID,
		Summary: "Wrap tables in a horizontally scrollable container",
		Fn:      applyTableWrap,
	}
}

func applyTableWrap(markup string, config map[string]interface{}) (string, error) {
	class := configString(config, "class", "table-wrap")

	return transform(markup, func(root *html.Node) {
		var tables []*html.Node
		Walk(root, func(n *html.Node) bool {
			if n.Type == html.ElementNode && n.DataAtom == atom.Table {
				tables = append(tables, n)
				return false
			}
			return true
		})

		for _, table := range tables {
			if parent := table.Parent; parent != nil && isWrapper(parent, class) {
				continue
			}
			wrapper := &html.Node{
				Type:     html.ElementNode,
				Data:     "div",
				DataAtom: atom.Div,
				Attr:     []html.Attribute{{Key: "class", Val: class}},
			}
			table.Parent.InsertBefore(wrapper, table)
			table.Parent.RemoveChild(table)
			wrapper.AppendChild(table)
		}
	})
}

func isWrapper(n *html.Node, class string) bool {
	if n.Type != html.ElementNode || n.DataAtom != atom.Div {
		return false
	}
	v, _ := Attr(n, "class")
	return v == class
}
