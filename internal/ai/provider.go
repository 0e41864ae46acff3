package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"paperdex/internal/lang"
)

var (
	// ErrUnavailable means the provider is not configured at all.
	ErrUnavailable = errors.New("ai provider unavailable")
	// ErrLanguageUnsupported means no embedding model exists for the
	// requested language; callers decide whether to fall back.
	ErrLanguageUnsupported = errors.New("embedding language unsupported")
)

// StructuredAnalysis is the raw shape a structured generation call
// returns before normalization.
type StructuredAnalysis struct {
	Summary  string   `json:"summary"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

type IProvider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string) (string, error)
	GenerateStructured(ctx context.Context, model string, prompt string) (*StructuredAnalysis, error)
	Embed(ctx context.Context, model string, text string) ([]float32, error)
}

type IGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStructured(ctx context.Context, prompt string) (*StructuredAnalysis, error)
}

type IEmbedder interface {
	Embed(ctx context.Context, text string, language lang.Language) ([]float32, error)
	ModelName() string
}

type generator struct {
	provider IProvider
	model    string
}

func NewGenerator(p IProvider, model string) IGenerator {
	return &generator{provider: p, model: model}
}

func (g *generator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.provider.Generate(ctx, g.model, prompt)
}

func (g *generator) GenerateStructured(ctx context.Context, prompt string) (*StructuredAnalysis, error) {
	return g.provider.GenerateStructured(ctx, g.model, prompt)
}

// embedder routes each supported language to its own embedding model.
// Languages without a configured model report ErrLanguageUnsupported.
type embedder struct {
	provider IProvider
	models   map[lang.Language]string
}

func NewEmbedder(p IProvider, models map[lang.Language]string) IEmbedder {
	return &embedder{provider: p, models: models}
}

func (e *embedder) Embed(ctx context.Context, text string, language lang.Language) ([]float32, error) {
	model := e.models[language]
	if model == "" {
		return nil, ErrLanguageUnsupported
	}
	return e.provider.Embed(ctx, model, text)
}

func (e *embedder) ModelName() string {
	names := make([]string, 0, len(e.models))
	for language, model := range e.models {
		names = append(names, string(language)+":"+model)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}
