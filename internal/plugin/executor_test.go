package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, dir, name, body string) *Plugin {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return &Plugin{
		Manifest: Manifest{
			Name:       strings.TrimSuffix(name, ".sh"),
			Version:    "1.0.0",
			Executable: name,
			Actions:    []string{ActionInterpret},
		},
		Path:       dir,
		Executable: path,
	}
}

func TestExecutor_Execute(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	p := writeScript(t, t.TempDir(), "test-plugin.sh", `cat <<'EOF'
{"success":true,"gestures":["wave","punch"]}
EOF
`)

	req := &Request{
		Action:  ActionInterpret,
		Gesture: "wave",
		Options: []string{"idle", "wave", "punch"},
		Config:  json.RawMessage(`{"key":"value"}`),
	}

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, req)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !resp.Success {
		t.Errorf("expected success, got error %q", resp.Error)
	}
	if len(resp.Gestures) != 2 || resp.Gestures[0] != "wave" || resp.Gestures[1] != "punch" {
		t.Errorf("Gestures = %v, want [wave punch]", resp.Gestures)
	}
}

func TestExecutor_PassesRequestOnStdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	p := writeScript(t, dir, "capture.sh", "cat > request.json\necho '{\"success\":true}'\n")

	req := &Request{Action: ActionInterpret, Gesture: "punch", Options: []string{"idle", "punch"}}
	if _, err := NewExecutor(5*time.Second).Execute(context.Background(), p, req); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "request.json"))
	if err != nil {
		t.Fatalf("plugin did not run in its own directory: %v", err)
	}
	var got Request
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("stdin was not JSON: %v", err)
	}
	if got.Gesture != "punch" || len(got.Options) != 2 {
		t.Errorf("plugin saw %+v", got)
	}
}

func TestExecutor_Failures(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tests := []struct {
		name    string
		script  string
		wantErr string
	}{
		{"non-zero exit", "echo boom >&2\nexit 3\n", "boom"},
		{"invalid json", "echo not json\n", "failed to parse plugin response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeScript(t, t.TempDir(), "bad.sh", tt.script)
			_, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{Action: ActionInterpret})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Execute() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExecutor_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
	if testing.Short() {
		t.Skip("skipping slow timeout test in short mode")
	}

	p := writeScript(t, t.TempDir(), "slow.sh", "exec sleep 5\n")
	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), p, &Request{Action: ActionInterpret})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Execute() error = %v, want ErrTimeout", err)
	}
}

func TestNewExecutor_DefaultTimeout(t *testing.T) {
	if e := NewExecutor(0); e.timeout != 5*time.Second {
		t.Errorf("timeout = %s, want 5s", e.timeout)
	}
}
