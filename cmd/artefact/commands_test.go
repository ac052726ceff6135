package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := buildRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--env-file", ""}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestBuildRootCommand(t *testing.T) {
	root := buildRootCommand()

	assert.Equal(t, "artefact", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)

	names := make([]string, 0)
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"run", "eval", "schema", "tier"}, names)
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	root := buildRootCommand()

	tests := []struct {
		flagName string
		defValue string
	}{
		{"env-file", ".env"},
		{"db", ""},
		{"models", ""},
		{"log-level", ""},
		{"log-format", ""},
		{"capabilities", "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.flagName, func(t *testing.T) {
			flag := root.PersistentFlags().Lookup(tt.flagName)
			require.NotNil(t, flag)
			assert.Equal(t, tt.defValue, flag.DefValue)
		})
	}
}

func TestSchemaCommand(t *testing.T) {
	out, err := execute(t, "schema", "db_query")
	require.NoError(t, err)

	var env struct {
		Request  map[string]any `json:"request"`
		Response map[string]any `json:"response"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.NotEmpty(t, env.Request)
	assert.NotEmpty(t, env.Response)

	out, err = execute(t, "schema")
	require.NoError(t, err)
	var all map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &all))
	assert.Contains(t, all, "chat_send_message")

	_, err = execute(t, "schema", "nope")
	assert.Error(t, err)
}

func TestEvalCommand(t *testing.T) {
	out, err := execute(t, "--db", ":memory:", "--capabilities", "db", "eval", "-e", `
		print(type(__host_sqlite_call), tostring(chat))
		return 1 + 1
	`)
	require.NoError(t, err)
	assert.Equal(t, "function\tnil\n2\n", out)

	path := filepath.Join(t.TempDir(), "script.lua")
	require.NoError(t, os.WriteFile(path, []byte(`return "from file"`), 0o600))
	out, err = execute(t, "--db", ":memory:", "--capabilities", "db", "eval", path)
	require.NoError(t, err)
	assert.Equal(t, "from file\n", out)

	_, err = execute(t, "--db", ":memory:", "eval")
	assert.ErrorContains(t, err, "either a script file or -e code")

	_, err = execute(t, "--db", ":memory:", "--capabilities", "db", "eval", "-e", "error('bad')")
	assert.ErrorContains(t, err, "run script")
}

func TestRunCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "--db", ":memory:", "run", filepath.Join(t.TempDir(), "missing.wasm"))
	assert.ErrorContains(t, err, "read guest")
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := execute(t, "--log-format", "xml", "tier")
	assert.Error(t, err)
}

func TestTierCommand(t *testing.T) {
	pterm.DisableStyling()
	t.Cleanup(pterm.EnableStyling)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "embed-base.yaml"), []byte("kind: chargram\n"), 0o600))
	t.Setenv("ARTEFACT_MEMORY_BYTES", "3221225472")

	out, err := execute(t, "--models", dir, "tier")
	require.NoError(t, err)

	assert.Contains(t, out, "<4GiB")
	assert.Contains(t, out, "chat-medium.yaml")
	assert.Contains(t, out, "structured-medium.yaml")
	assert.Regexp(t, `embed-base\.yaml\s*\|\s*yes`, out)
	assert.Regexp(t, `chat-medium\.yaml\s*\|\s*no`, out)
}

func TestModelPresent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.yaml")

	got, err := modelPresent(path)
	require.NoError(t, err)
	assert.Equal(t, "no", got)

	require.NoError(t, os.WriteFile(path, nil, 0o600))
	got, err = modelPresent(path)
	require.NoError(t, err)
	assert.Equal(t, "yes", got)
}
