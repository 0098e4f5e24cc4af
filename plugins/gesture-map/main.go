// Package main is an interpreter plugin that answers each gesture with a
// fixed list of responses read from its config, falling back to mirroring
// the gesture back.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Options []string        `json:"options"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params"`
}

type Response struct {
	Success  bool     `json:"success"`
	Error    string   `json:"error,omitempty"`
	Gestures []string `json:"gestures,omitempty"`
}

// Config maps a gesture name to the responses it should trigger.
type Config struct {
	Rules map[string][]string `json:"rules"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}
	if req.Action != "interpret" {
		writeResponse(Response{Error: fmt.Sprintf("unknown action: %s", req.Action)})
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(Response{Error: fmt.Sprintf("failed to parse config: %v", err)})
			return
		}
	}

	writeResponse(Response{Success: true, Gestures: interpret(req.Gesture, req.Options, cfg.Rules)})
}

// interpret returns the configured responses for gesture that are among
// options. Without a rule the gesture itself is returned.
func interpret(gesture string, options []string, rules map[string][]string) []string {
	offered := make(map[string]bool, len(options))
	for _, o := range options {
		offered[strings.ToLower(o)] = true
	}

	candidates, ok := rules[gesture]
	if !ok {
		candidates = []string{gesture}
	}

	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.ToLower(strings.TrimSpace(c))
		if offered[c] {
			out = append(out, c)
		}
	}
	return out
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
