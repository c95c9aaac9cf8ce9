// Package openai implements the OpenAI-compatible wire format used by
// OpenAI, OpenRouter, Groq, and custom chat-completions endpoints.
package openai

import (
	"encoding/json"
	"net/http"

	"modelgate/internal/core"
	"modelgate/internal/registry"
	"modelgate/internal/wire"
)

func init() {
	wire.Register(Codec{})
}

// Codec speaks the common chat-completions convention. The canonical model
// was designed to match this format, so translation is near-verbatim.
type Codec struct{}

func (Codec) Format() registry.WireFormat { return registry.OpenAICompatible }

func (Codec) SupportsTools() bool { return true }

// chatRequest is the JSON body sent to /chat/completions.
type chatRequest struct {
	Model       string          `json:"model"`
	Messages    []core.Message  `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream"`
	Tools       []core.Tool     `json:"tools,omitempty"`
	ToolChoice  core.ToolChoice `json:"tool_choice,omitempty"`
	Provider    *routingPrefs   `json:"provider,omitempty"`
}

// routingPrefs carries OpenRouter's provider-routing extension. Other
// OpenAI-compatible providers never see this field.
type routingPrefs struct {
	AllowFallbacks bool `json:"allow_fallbacks"`
}

// chatResponse is the JSON body returned by /chat/completions.
type chatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage"`
}

type choice struct {
	Message      respMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type respMessage struct {
	Content   string          `json:"content"`
	ToolCalls []core.ToolCall `json:"tool_calls"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Translate passes the canonical request through near-verbatim. Auth is a
// Bearer token; OpenRouter additionally gets fallback routing preferences.
func (Codec) Translate(req *core.ChatRequest, desc registry.Descriptor, apiKey string) (*wire.HTTPRequest, error) {
	body := chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
		Tools:       req.Tools,
		ToolChoice:  req.ToolChoice,
	}
	if desc.ID == "openrouter" {
		body.Provider = &routingPrefs{AllowFallbacks: true}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to marshal request", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Authorization", "Bearer "+apiKey)

	return &wire.HTTPRequest{
		Method: http.MethodPost,
		URL:    desc.BaseURL + "/chat/completions",
		Header: header,
		Body:   raw,
	}, nil
}

// Normalize extracts text, tool calls, and usage from a success body. Empty
// choices normalize to an empty text, not an error.
func (Codec) Normalize(providerID string, body []byte) (*core.ChatResponse, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, core.NewProtocolError(providerID, "failed to decode chat completion response", body, err)
	}

	out := &core.ChatResponse{
		ID:       resp.ID,
		Model:    resp.Model,
		Provider: providerID,
	}
	if len(resp.Choices) > 0 {
		out.Text = resp.Choices[0].Message.Content
		out.ToolCalls = resp.Choices[0].Message.ToolCalls
		out.FinishReason = resp.Choices[0].FinishReason
	}
	if resp.Usage != nil {
		out.Usage = &core.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}
