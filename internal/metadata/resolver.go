// Package metadata resolves the document metadata fed to template
// substitution.
//
// Three sources compete for every field: user-entered overrides, the
// document's front-matter and computed defaults. Resolve applies a fixed
// precedence table and is a pure function of its inputs.
package metadata

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DateLayout is the format used for the publish date field.
const DateLayout = "2006-01-02"

// Field names with dedicated precedence rules.
const (
	FieldTitle       = "title"
	FieldAuthor      = "author"
	FieldDate        = "date"
	FieldTags        = "tags"
	FieldDescription = "description"
	FieldCover       = "cover"
	FieldSummary     = "summary"
)

// scalarFields let an explicitly present override (even "") win.
var scalarFields = []string{FieldTitle, FieldAuthor, FieldDate}

// plainFields are always present in the context, blank when unset.
var plainFields = []string{FieldDescription, FieldCover, FieldSummary}

// Override holds user-entered values. Key presence is meaningful.
type Override map[string]interface{}

// Frontmatter holds values parsed from the document header.
type Frontmatter map[string]interface{}

// Defaults holds computed fallback values for fields that define one.
type Defaults map[string]interface{}

// Context is the resolved, fully populated metadata map.
type Context map[string]interface{}

// Clone copies an override so callers can keep mutating their own map.
func (o Override) Clone() Override {
	if o == nil {
		return nil
	}
	out := make(Override, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// String returns a field as a string, or "" if absent.
func (c Context) String(field string) string {
	return stringValue(c[field])
}

// Tags returns the resolved tag list.
func (c Context) Tags() []string {
	tags, _ := c[FieldTags].([]string)
	return tags
}

// ComputeDefaults builds the computed defaults for a document: today's date,
// a title derived from the file name and the configured author.
func ComputeDefaults(path string, now time.Time, author string) Defaults {
	d := Defaults{
		FieldDate: now.Format(DateLayout),
	}
	if title := titleFromPath(path); title != "" {
		d[FieldTitle] = title
	}
	if author != "" {
		d[FieldAuthor] = author
	}
	return d
}

func titleFromPath(path string) string {
	if path == "" {
		return ""
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" || base == "." {
		return ""
	}
	return cases.Title(language.English).String(base)
}

// Resolve merges the three sources into one context.
//
// Scalar fields (title, author, date): a present override key wins even when
// empty; otherwise non-empty front-matter; otherwise the default, if any.
// Tags: a non-empty override list wins; an empty one does not suppress
// front-matter tags. Everything else: non-empty override, then non-empty
// front-matter, then "".
func Resolve(override Override, frontmatter Frontmatter, defaults Defaults) Context {
	ctx := make(Context, len(override)+len(frontmatter)+len(scalarFields)+len(plainFields)+1)

	for _, field := range scalarFields {
		ctx[field] = resolveScalar(field, override, frontmatter, defaults)
	}

	ctx[FieldTags] = resolveTags(override, frontmatter)

	handled := make(map[string]bool, len(scalarFields)+1)
	for _, field := range scalarFields {
		handled[field] = true
	}
	handled[FieldTags] = true

	for _, field := range plainFields {
		ctx[field] = resolvePlain(field, override, frontmatter)
		handled[field] = true
	}
	for field := range frontmatter {
		if !handled[field] {
			ctx[field] = resolvePlain(field, override, frontmatter)
		}
	}
	for field := range override {
		if !handled[field] {
			ctx[field] = resolvePlain(field, override, frontmatter)
		}
	}

	return ctx
}

func resolveScalar(field string, override Override, fm Frontmatter, defaults Defaults) string {
	if v, present := override[field]; present {
		return stringValue(v)
	}
	if v := stringValue(fm[field]); strings.TrimSpace(v) != "" {
		return v
	}
	if v, ok := defaults[field]; ok {
		return stringValue(v)
	}
	return ""
}

func resolveTags(override Override, fm Frontmatter) []string {
	if tags := listValue(override[FieldTags]); len(tags) > 0 {
		return tags
	}
	if tags := listValue(fm[FieldTags]); len(tags) > 0 {
		return tags
	}
	return []string{}
}

func resolvePlain(field string, override Override, fm Frontmatter) interface{} {
	if v := override[field]; !isEmpty(v) {
		return v
	}
	if v := fm[field]; !isEmpty(v) {
		return v
	}
	return ""
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(DateLayout)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func listValue(v interface{}) []string {
	var out []string
	switch val := v.(type) {
	case []string:
		for _, s := range val {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []interface{}:
		for _, item := range val {
			if s := strings.TrimSpace(stringValue(item)); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func isEmpty(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []string:
		return len(val) == 0
	case []interface{}:
		return len(val) == 0
	case map[string]interface{}:
		return len(val) == 0
	default:
		return false
	}
}
