package interpret

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when GeminiConfig.Model is empty.
const DefaultGeminiModel = "gemini-2.0-flash"

// ErrNoAPIKey is returned by NewGemini without a key.
var ErrNoAPIKey = errors.New("gemini: API key is required")

// GeminiConfig configures the Gemini interpreter.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

// generator is the slice of the genai client the interpreter uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini model to respond to each gesture.
type Gemini struct {
	models generator
	config GeminiConfig
}

// NewGemini creates a client for the Gemini API.
func NewGemini(ctx context.Context, config GeminiConfig) (*Gemini, error) {
	if config.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return newGemini(client.Models, config), nil
}

func newGemini(models generator, config GeminiConfig) *Gemini {
	if config.Model == "" {
		config.Model = DefaultGeminiModel
	}
	return &Gemini{models: models, config: config}
}

func (g *Gemini) Name() string { return "gemini:" + g.config.Model }

func (g *Gemini) Interpret(ctx context.Context, gesture string, options []string) ([]string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(BuildPrompt(options), genai.RoleUser),
	}
	if g.config.Temperature > 0 {
		temp := g.config.Temperature
		cfg.Temperature = &temp
	}

	resp, err := g.models.GenerateContent(ctx, g.config.Model, genai.Text(UserPrefix+gesture), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return ParseReply(resp.Text(), options), nil
}
