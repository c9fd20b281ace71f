package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePort(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"8080", false},
		{"1", false},
		{"65535", false},
		{"0", true},
		{"65536", true},
		{"-1", true},
		{"http", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidatePort(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateHost(t *testing.T) {
	assert.NoError(t, ValidateHost("localhost"))
	assert.NoError(t, ValidateHost("0.0.0.0"))
	assert.Error(t, ValidateHost(""))
	assert.Error(t, ValidateHost("  "))
	assert.Error(t, ValidateHost("http://localhost"))
	assert.Error(t, ValidateHost("local host"))
}

func TestValidateLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "INFO"} {
		assert.NoError(t, ValidateLogLevel(level), level)
	}
	assert.Error(t, ValidateLogLevel("verbose"))
}

func TestValidateOneOf(t *testing.T) {
	validate := ValidateOneOf("table", "json")
	assert.NoError(t, validate("table"))
	assert.NoError(t, validate("json"))

	err := validate("csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table, json")
}

func TestValidateFileAndDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(file, []byte("# hi"), 0o644))

	assert.NoError(t, ValidateFileExists(""))
	assert.NoError(t, ValidateFileExists(file))
	assert.Error(t, ValidateFileExists(dir))
	assert.Error(t, ValidateFileExists(filepath.Join(dir, "missing.md")))

	assert.NoError(t, ValidateDirExists(""))
	assert.NoError(t, ValidateDirExists(dir))
	assert.Error(t, ValidateDirExists(file))
	assert.Error(t, ValidateDirExists(filepath.Join(dir, "missing")))
}

func TestAddFlagValidation(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	port := fs.Int("port", 8080, "")
	AddFlagValidation(fs, "port", ValidatePort)
	AddFlagValidation(fs, "missing", ValidatePort)

	err := fs.Parse([]string{"--port", "70000"})
	require.Error(t, err)
	assert.Equal(t, 8080, *port)

	require.NoError(t, fs.Parse([]string{"--port", "9000"}))
	assert.Equal(t, 9000, *port)
	assert.Equal(t, "int", fs.Lookup("port").Value.Type())
}

func TestApplyFlagBindingsUsesRunningCommand(t *testing.T) {
	for _, name := range []string{"theme", "author", "themes-dir"} {
		assert.Equal(t, flagBindings[renderCmd][name], flagBindings[serveCmd][name])
	}
	assert.Equal(t, "server.port", flagBindings[serveCmd]["port"])
	_, renderHasPort := flagBindings[renderCmd]["port"]
	assert.False(t, renderHasPort)
}

func TestValidateDocumentArg(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(md, []byte("# hi"), 0o644))
	mdDir := filepath.Join(dir, "folder.md")
	require.NoError(t, os.Mkdir(mdDir, 0o755))

	tests := []struct {
		name    string
		arg     string
		wantErr string
	}{
		{"valid", md, ""},
		{"empty", " ", "cannot be empty"},
		{"nul byte", "no\x00tes.md", "NUL"},
		{"not markdown", filepath.Join(dir, "notes.txt"), "not a markdown file"},
		{"missing", filepath.Join(dir, "missing.markdown"), "does not exist"},
		{"directory", mdDir, "is a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDocumentArg(tt.arg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.Error(t, documentArg(nil, nil))
	assert.Error(t, documentArg(nil, []string{md, md}))
	assert.NoError(t, documentArg(nil, []string{md}))
}
