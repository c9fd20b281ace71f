// Package validation checks URLs and origins before they reach the browser
// launcher or the websocket upgrade.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// unsafeURLChars could alter a command line if a URL were ever passed
// through a shell.
var unsafeURLChars = []string{";", "&", "|", "`", "$", "(", ")", "<", ">", "\"", "'", "\\", "\n", "\r", " "}

// ValidateURL accepts only plain http(s) URLs with a host, so the value is
// safe to hand to the platform's URL opener.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (only http/https allowed)", parsed.Scheme)
	}

	for _, char := range unsafeURLChars {
		if strings.Contains(rawURL, char) {
			return fmt.Errorf("URL contains unsafe character %q", char)
		}
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must have a valid hostname")
	}

	return nil
}

// ParseOrigin parses an Origin header value. Only http(s) origins are
// accepted.
func ParseOrigin(origin string) (*url.URL, error) {
	if origin == "" {
		return nil, fmt.Errorf("origin header is required")
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin format: %w", err)
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", originURL.Scheme)
	}

	if originURL.Host == "" {
		return nil, fmt.Errorf("origin '%s' has no host", origin)
	}

	return originURL, nil
}

// ValidateOrigin checks origin against allowed. Entries match either the full
// origin ("http://localhost:8080") or its host ("localhost:8080").
func ValidateOrigin(origin string, allowed []string) error {
	originURL, err := ParseOrigin(origin)
	if err != nil {
		return err
	}

	for _, a := range allowed {
		if a == "" {
			continue
		}
		if origin == a || originURL.Host == a {
			return nil
		}
	}

	return fmt.Errorf("origin '%s' is not in allowed origins list", origin)
}
