package stages

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// SanitizeID identifies the sanitize stage.
const SanitizeID = "sanitize"

var chromaClass = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

// NewSanitize strips unsafe markup with a user-generated-content policy.
//
// Option: "allow_styles" (default true) keeps inline style attributes so
// highlighted code blocks keep their colors.
func NewSanitize() Stage {
	return Func{
		Name:    SanitizeID,
		Summary: "Remove scripts and unsafe attributes",
		Fn:      applySanitize,
	}
}

func applySanitize(markup string, config map[string]interface{}) (string, error) {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(chromaClass).Globally()
	policy.AllowAttrs("id").Globally()
	policy.AllowElements("section")
	if configBool(config, "allow_styles", true) {
		policy.AllowStyling()
		policy.AllowAttrs("style").Globally()
	}
	if configBool(config, "allow_target", true) {
		policy.AllowAttrs("target").OnElements("a")
		policy.RequireNoFollowOnLinks(false)
		policy.AllowAttrs("rel").OnElements("a")
	}
	return policy.Sanitize(markup), nil
}
