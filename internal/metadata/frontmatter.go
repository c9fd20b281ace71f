package metadata

import (
	"fmt"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// frontmatterPattern matches a YAML block delimited by "---" lines at the very
// start of the document. The block body is optional so "---\n---\n" strips too.
var frontmatterPattern = regexp.MustCompile(`\A---[ \t]*\r?\n(?:([\s\S]*?)\r?\n)?---[ \t]*(?:\r?\n|\z)`)

// SplitFrontmatter separates a leading front-matter block from the body.
// ok is false when the text does not start with a delimited block, in which
// case body is the unchanged input.
func SplitFrontmatter(text string) (block, body string, ok bool) {
	loc := frontmatterPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return "", text, false
	}
	if loc[2] >= 0 {
		block = text[loc[2]:loc[3]]
	}
	return block, text[loc[1]:], true
}

// StripFrontmatter returns the document body without its front-matter block.
func StripFrontmatter(text string) string {
	_, body, _ := SplitFrontmatter(text)
	return body
}

// ParseFrontmatter decodes the leading YAML block of a document. Documents
// without front-matter yield an empty map and no error.
func ParseFrontmatter(text string) (Frontmatter, error) {
	block, _, ok := SplitFrontmatter(text)
	if !ok || block == "" {
		return Frontmatter{}, nil
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(block), &raw); err != nil {
		return Frontmatter{}, fmt.Errorf("parsing front-matter: %w", err)
	}

	fm := make(Frontmatter, len(raw))
	for k, v := range raw {
		fm[k] = normalizeValue(v)
	}
	return fm, nil
}

// normalizeValue flattens YAML-specific types into the plain values the
// resolver and templates work with.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case time.Time:
		return val.Format(DateLayout)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
