package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with a temp config so tests never touch the
// user's settings or drop log files into the repo.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "settings.yaml")
	cfg := "logging:\n  level: error\n  log_file: " + filepath.Join(dir, "llt.log") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	// Flag values live in package variables that outlast one Execute call.
	templateName, contextFile, langCode, modelName = "", "", "", ""
	messagesJSON = false
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeTemplate(t *testing.T, source string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "greet.llt")
	require.NoError(t, os.WriteFile(path, []byte(source), 0644))
	return path
}

func TestRenderCommand(t *testing.T) {
	tmplPath := writeTemplate(t, "@template greet { Hello, @name! }")

	ctxDir := t.TempDir()
	ctxPath := filepath.Join(ctxDir, "ctx.json")
	require.NoError(t, os.WriteFile(ctxPath, []byte(`{"name": "Andrew"}`), 0644))

	out, err := execute(t, "render", "-t", "greet", "-x", ctxPath, tmplPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Hello, Andrew!")
}

func TestRenderCommandYAMLContext(t *testing.T) {
	// The shared library persists across commands, so this test uses its
	// own template name.
	tmplPath := writeTemplate(t, "@template greet_casual { Hi @name }")

	ctxDir := t.TempDir()
	ctxPath := filepath.Join(ctxDir, "ctx.yaml")
	require.NoError(t, os.WriteFile(ctxPath, []byte("name: Rob\n"), 0644))

	out, err := execute(t, "render", "-t", "greet_casual", "-x", ctxPath, tmplPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Hi Rob")
}

func TestRenderCommandUnknownTemplate(t *testing.T) {
	tmplPath := writeTemplate(t, "@template greet { hi }")
	_, err := execute(t, "render", "-t", "missing", tmplPath)
	assert.Error(t, err)
}

func TestMessagesCommand(t *testing.T) {
	source := "@messages template conv { @system message { stay concise } }"
	tmplPath := writeTemplate(t, source)

	out, err := execute(t, "messages", "-t", "conv", "--json", tmplPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"role": "system"`)
	assert.Contains(t, out, "stay concise")
}

func TestListCommand(t *testing.T) {
	tmplPath := writeTemplate(t, "@template listed { @metadata { lang: 'en' } x }")

	out, err := execute(t, "list", tmplPath)
	require.NoError(t, err)
	assert.Contains(t, out, "listed")
	assert.Contains(t, out, "lang=en")
}
