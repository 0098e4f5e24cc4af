package interpret

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/pantomime/internal/plugin"
)

func scriptPlugin(t *testing.T, actions []string, body string) *plugin.Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
	dir := t.TempDir()
	exe := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"+body), 0755))
	return &plugin.Plugin{
		Manifest:   plugin.Manifest{Name: "scripted", Executable: "run.sh", Actions: actions},
		Path:       dir,
		Executable: exe,
	}
}

func TestNewPlugin_RequiresInterpretAction(t *testing.T) {
	p := scriptPlugin(t, []string{"keystroke"}, "true\n")
	_, err := NewPlugin(plugin.NewExecutor(time.Second), p, nil)
	assert.Error(t, err)
}

func TestPlugin_Interpret(t *testing.T) {
	p := scriptPlugin(t, []string{plugin.ActionInterpret}, "cat >/dev/null\necho '{\"success\":true,\"gestures\":[\"punch\"]}'\n")
	interp, err := NewPlugin(plugin.NewExecutor(5*time.Second), p, json.RawMessage(`{"rules":{}}`))
	require.NoError(t, err)

	got, err := interp.Interpret(context.Background(), "wave", []string{"idle", "wave", "punch"})
	require.NoError(t, err)
	assert.Equal(t, []string{"punch"}, got)
	assert.Equal(t, "plugin:scripted", interp.Name())
}

func TestPlugin_Unsuccessful(t *testing.T) {
	p := scriptPlugin(t, []string{plugin.ActionInterpret}, "cat >/dev/null\necho '{\"success\":false,\"error\":\"no rule\"}'\n")
	interp, err := NewPlugin(plugin.NewExecutor(5*time.Second), p, nil)
	require.NoError(t, err)

	_, err = interp.Interpret(context.Background(), "wave", []string{"wave"})
	assert.ErrorContains(t, err, "no rule")
}
