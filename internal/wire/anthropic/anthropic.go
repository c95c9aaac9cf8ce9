// Package anthropic implements the Anthropic Messages wire format.
package anthropic

import (
	"encoding/json"
	"net/http"

	"modelgate/internal/core"
	"modelgate/internal/registry"
	"modelgate/internal/wire"
)

const apiVersion = "2023-06-01"

func init() {
	wire.Register(Codec{})
}

// Codec speaks the Anthropic Messages API. Tool definitions are not
// translated for this format; the facade rejects tool requests before
// dialing.
type Codec struct{}

func (Codec) Format() registry.WireFormat { return registry.AnthropicMessages }

func (Codec) SupportsTools() bool { return false }

// messagesRequest is the JSON body sent to /messages. MaxTokens is mandatory
// in this wire format.
type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the JSON body returned by /messages.
type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      *usage         `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Translate moves the first system message into the dedicated system field.
// Later system messages are dropped by policy, not merged and not an error.
// Remaining roles are restricted to user/assistant; anything else is sent as
// user.
func (Codec) Translate(req *core.ChatRequest, desc registry.Descriptor, apiKey string) (*wire.HTTPRequest, error) {
	body := messagesRequest{
		Model:       req.Model,
		MaxTokens:   core.DefaultMaxTokens,
		Temperature: req.Temperature,
		Stream:      false,
	}
	if req.MaxTokens != nil {
		body.MaxTokens = *req.MaxTokens
	}

	seenSystem := false
	for _, msg := range req.Messages {
		if msg.Role == core.RoleSystem {
			if !seenSystem {
				body.System = msg.Content
				seenSystem = true
			}
			continue
		}
		role := "user"
		if msg.Role == core.RoleAssistant {
			role = "assistant"
		}
		body.Messages = append(body.Messages, message{Role: role, Content: msg.Content})
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to marshal request", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("x-api-key", apiKey)
	header.Set("anthropic-version", apiVersion)

	return &wire.HTTPRequest{
		Method: http.MethodPost,
		URL:    desc.BaseURL + "/messages",
		Header: header,
		Body:   raw,
	}, nil
}

// Normalize extracts the first text content block; a response without one
// normalizes to empty text.
func (Codec) Normalize(providerID string, body []byte) (*core.ChatResponse, error) {
	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, core.NewProtocolError(providerID, "failed to decode messages response", body, err)
	}

	out := &core.ChatResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Provider:     providerID,
		FinishReason: resp.StopReason,
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.Text = block.Text
			break
		}
	}
	if resp.Usage != nil {
		out.Usage = &core.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		}
	}
	return out, nil
}
