// Package plugin discovers external interpreter plugins and runs them as
// subprocesses speaking JSON over stdin and stdout.
package plugin

import "encoding/json"

// ActionInterpret is the action an interpreter plugin must list.
const ActionInterpret = "interpret"

// Manifest is read from each plugin's plugin.json.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the manifest lists action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request is written to the plugin's stdin.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Options []string        `json:"options,omitempty"`
	Config  json.RawMessage `json:"config,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success  bool            `json:"success"`
	Error    string          `json:"error,omitempty"`
	Gestures []string        `json:"gestures,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
