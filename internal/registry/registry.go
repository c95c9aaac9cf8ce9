// Package registry holds the static table of provider descriptors. The table
// is built once at process start from defaults plus configuration overrides
// and is never mutated during a call; adding a provider means adding a
// descriptor here plus a codec for its wire format.
package registry

import (
	"fmt"
	"sort"

	"modelgate/internal/core"
)

// WireFormat tags the concrete request/response schema and auth convention a
// provider family speaks.
type WireFormat string

const (
	OpenAICompatible  WireFormat = "openai_compatible"
	AnthropicMessages WireFormat = "anthropic_messages"
	GeminiGenerate    WireFormat = "gemini_generate"
)

// Descriptor describes one provider entry. Immutable after registry
// construction.
type Descriptor struct {
	ID           string
	DisplayName  string
	BaseURL      string
	DefaultModel string
	WireFormat   WireFormat
}

// Registry is an immutable lookup table of provider descriptors.
type Registry struct {
	descriptors map[string]Descriptor
}

// Defaults returns the built-in provider table. Base URLs and default models
// can be overridden at configuration time; the custom entry has no base URL
// of its own and must be given one in configuration.
func Defaults() []Descriptor {
	return []Descriptor{
		{
			ID:           "openrouter",
			DisplayName:  "OpenRouter",
			BaseURL:      "https://openrouter.ai/api/v1",
			DefaultModel: "openai/gpt-4o-mini",
			WireFormat:   OpenAICompatible,
		},
		{
			ID:           "openai",
			DisplayName:  "OpenAI",
			BaseURL:      "https://api.openai.com/v1",
			DefaultModel: "gpt-4o-mini",
			WireFormat:   OpenAICompatible,
		},
		{
			ID:           "groq",
			DisplayName:  "Groq",
			BaseURL:      "https://api.groq.com/openai/v1",
			DefaultModel: "llama-3.3-70b-versatile",
			WireFormat:   OpenAICompatible,
		},
		{
			ID:           "custom",
			DisplayName:  "Custom OpenAI-compatible",
			BaseURL:      "",
			DefaultModel: "",
			WireFormat:   OpenAICompatible,
		},
		{
			ID:           "anthropic",
			DisplayName:  "Anthropic",
			BaseURL:      "https://api.anthropic.com/v1",
			DefaultModel: "claude-3-5-sonnet-20241022",
			WireFormat:   AnthropicMessages,
		},
		{
			ID:           "gemini",
			DisplayName:  "Google Gemini",
			BaseURL:      "https://generativelanguage.googleapis.com/v1beta",
			DefaultModel: "gemini-1.5-flash",
			WireFormat:   GeminiGenerate,
		},
	}
}

// New builds a registry from the given descriptors. Duplicate ids and
// descriptors missing required fields are rejected so misconfiguration
// surfaces at startup, not mid-call.
func New(descriptors []Descriptor) (*Registry, error) {
	m := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		if d.ID == "" {
			return nil, fmt.Errorf("descriptor with empty id")
		}
		if _, dup := m[d.ID]; dup {
			return nil, fmt.Errorf("duplicate provider id %q", d.ID)
		}
		switch d.WireFormat {
		case OpenAICompatible, AnthropicMessages, GeminiGenerate:
		default:
			return nil, fmt.Errorf("provider %q: unknown wire format %q", d.ID, d.WireFormat)
		}
		m[d.ID] = d
	}
	return &Registry{descriptors: m}, nil
}

// NewDefault builds a registry from the built-in provider table.
func NewDefault() *Registry {
	r, err := New(Defaults())
	if err != nil {
		// Defaults are static; a failure here is a programming error.
		panic(err)
	}
	return r
}

// Lookup returns the descriptor for the given provider id.
func (r *Registry) Lookup(id string) (Descriptor, error) {
	d, ok := r.descriptors[id]
	if !ok {
		return Descriptor{}, core.NewUnknownProviderError(id)
	}
	return d, nil
}

// List returns all descriptors sorted by id.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
