package interpret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/pantomime/internal/plugin"
)

// Plugin delegates interpretation to an external plugin process.
type Plugin struct {
	executor *plugin.Executor
	plugin   *plugin.Plugin
	config   json.RawMessage
}

// NewPlugin wraps p. config is forwarded verbatim on every request.
func NewPlugin(executor *plugin.Executor, p *plugin.Plugin, config json.RawMessage) (*Plugin, error) {
	if !p.Manifest.Supports(plugin.ActionInterpret) {
		return nil, fmt.Errorf("plugin %s does not support %q", p.Manifest.Name, plugin.ActionInterpret)
	}
	return &Plugin{executor: executor, plugin: p, config: config}, nil
}

func (p *Plugin) Name() string { return "plugin:" + p.plugin.Manifest.Name }

func (p *Plugin) Interpret(ctx context.Context, gesture string, options []string) ([]string, error) {
	resp, err := p.executor.Execute(ctx, p.plugin, &plugin.Request{
		Action:  plugin.ActionInterpret,
		Gesture: gesture,
		Options: options,
		Config:  p.config,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		if resp.Error == "" {
			resp.Error = "unsuccessful response"
		}
		return nil, errors.New(p.plugin.Manifest.Name + ": " + resp.Error)
	}
	return resp.Gestures, nil
}
