// Package interpret turns a matched gesture into the gestures the avatar
// should perform in reply.
package interpret

import (
	"context"
	"strings"
)

// Interpreter answers one matched gesture with zero or more response
// names. Implementations may return names outside options; the Stage
// filters them.
type Interpreter interface {
	Interpret(ctx context.Context, gesture string, options []string) ([]string, error)
	Name() string
}

// SystemPrompt is sent ahead of every language-model request. The
// {options} placeholder is replaced with the comma-separated gesture names.
const SystemPrompt = `Respond in just one or two words, using the following options:
{options}
Separate options with a comma. Dont use any other text. Try to use just one pantomime if possible. Be very creative.`

// UserPrefix precedes the matched gesture in the user message.
const UserPrefix = "The user made a gesture that you interpret with: "

// BuildPrompt fills SystemPrompt with options.
func BuildPrompt(options []string) string {
	return strings.Replace(SystemPrompt, "{options}", strings.Join(options, ", "), 1)
}

// ParseReply splits a free-text reply on commas and keeps the trimmed
// words that are among options, in reply order.
func ParseReply(reply string, options []string) []string {
	valid := make(map[string]bool, len(options))
	for _, o := range options {
		valid[o] = true
	}

	var out []string
	for _, word := range strings.Split(reply, ",") {
		word = strings.TrimSpace(word)
		if word != "" && valid[word] {
			out = append(out, word)
		}
	}
	return out
}

// Echo replies with the matched gesture itself.
type Echo struct{}

func (Echo) Name() string { return "echo" }

func (Echo) Interpret(_ context.Context, gesture string, _ []string) ([]string, error) {
	return []string{gesture}, nil
}
