// Package theme resolves preview stylesheets by theme id.
package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/conneroisu/mdpreview/internal/errors"
)

var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Store returns the stylesheet for a theme.
type Store struct {
	dir string
}

// NewStore creates a store. Themes in dir, as <id>.css, take precedence over
// the built-in ones. dir may be empty.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Stylesheet returns the base rules followed by the theme's rules.
func (s *Store) Stylesheet(themeID string) (string, error) {
	if themeID == "" {
		themeID = "default"
	}
	if !validID.MatchString(themeID) {
		return "", errors.NewIOError(errors.ErrCodeThemeNotFound, "invalid theme id: "+themeID, nil)
	}

	rules, err := s.rules(themeID)
	if err != nil {
		return "", err
	}
	return baseCSS + "\n" + rules, nil
}

func (s *Store) rules(themeID string) (string, error) {
	if s.dir != "" {
		data, err := os.ReadFile(filepath.Join(s.dir, themeID+".css"))
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", errors.NewIOError(errors.ErrCodeThemeNotFound, "reading theme "+themeID, err)
		}
	}

	if css, ok := builtin[themeID]; ok {
		return css, nil
	}
	return "", errors.NewIOError(errors.ErrCodeThemeNotFound, fmt.Sprintf("theme not found: %s", themeID), nil)
}

// IDs lists the available theme ids.
func (s *Store) IDs() []string {
	seen := make(map[string]bool, len(builtin))
	for id := range builtin {
		seen[id] = true
	}
	if s.dir != "" {
		if entries, err := os.ReadDir(s.dir); err == nil {
			for _, e := range entries {
				if !e.IsDir() && filepath.Ext(e.Name()) == ".css" {
					seen[strings.TrimSuffix(e.Name(), ".css")] = true
				}
			}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
