//go:build property
// +build property

package config

import (
	"fmt"
	"testing"

	"github.com/conneroisu/mdpreview/internal/settings"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestServerConfigProperties tests server validation over generated input.
func TestServerConfigProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("port validation", prop.ForAll(
		func(port int) bool {
			err := validateServerConfig(&ServerConfig{Port: port, Host: "localhost"})
			valid := port >= 0 && port <= 65535
			return (err == nil) == valid
		},
		gen.IntRange(-1000, 70000),
	))

	properties.Property("plain hostnames accepted", prop.ForAll(
		func(host string) bool {
			return validateServerConfig(&ServerConfig{Port: 8080, Host: host}) == nil
		},
		gen.RegexMatch(`^[a-zA-Z0-9.-]+$`),
	))

	properties.TestingRun(t)
}

// TestStageListProperties checks duplicate detection in the stage list.
func TestStageListProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("distinct ids validate", prop.ForAll(
		func(n int) bool {
			stages := make([]settings.StageConfig, n)
			for i := range stages {
				stages[i] = settings.StageConfig{ID: fmt.Sprintf("stage-%d", i)}
			}
			return validateStages(stages) == nil
		},
		gen.IntRange(0, 20),
	))

	properties.Property("any repeated id is rejected", prop.ForAll(
		func(n, dup int) bool {
			stages := make([]settings.StageConfig, n)
			for i := range stages {
				stages[i] = settings.StageConfig{ID: fmt.Sprintf("stage-%d", i)}
			}
			stages = append(stages, settings.StageConfig{ID: stages[dup%n].ID})
			return validateStages(stages) != nil
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
