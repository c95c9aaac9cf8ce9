// Package gemini implements the Google generate-content wire format.
package gemini

import (
	"encoding/json"
	"net/http"
	"net/url"

	"modelgate/internal/core"
	"modelgate/internal/registry"
	"modelgate/internal/wire"
)

func init() {
	wire.Register(Codec{})
}

// Codec speaks the native Gemini generateContent API. Tool definitions are
// not translated for this format; the facade rejects tool requests before
// dialing.
type Codec struct{}

func (Codec) Format() registry.WireFormat { return registry.GeminiGenerate }

func (Codec) SupportsTools() bool { return false }

// generateRequest is the JSON body sent to /models/{model}:generateContent.
// Generation parameters live in a nested config object.
type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

// generateResponse is the JSON body returned by generateContent.
type generateResponse struct {
	Candidates []candidate    `json:"candidates"`
	Usage      *usageMetadata `json:"usageMetadata"`
}

type candidate struct {
	Content      *content `json:"content"`
	FinishReason string   `json:"finishReason"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Translate extracts the first system message into systemInstruction
// (later system messages are dropped by policy) and remaps roles:
// user stays user, assistant becomes model, anything else defaults to user.
// The API key travels as a URL query parameter, not a header.
func (Codec) Translate(req *core.ChatRequest, desc registry.Descriptor, apiKey string) (*wire.HTTPRequest, error) {
	body := generateRequest{
		GenerationConfig: &generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}

	for _, msg := range req.Messages {
		if msg.Role == core.RoleSystem {
			if body.SystemInstruction == nil {
				body.SystemInstruction = &content{Parts: []part{{Text: msg.Content}}}
			}
			continue
		}
		role := "user"
		if msg.Role == core.RoleAssistant {
			role = "model"
		}
		body.Contents = append(body.Contents, content{
			Role:  role,
			Parts: []part{{Text: msg.Content}},
		})
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to marshal request", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	return &wire.HTTPRequest{
		Method: http.MethodPost,
		URL:    desc.BaseURL + "/models/" + url.PathEscape(req.Model) + ":generateContent?key=" + url.QueryEscape(apiKey),
		Header: header,
		Body:   raw,
	}, nil
}

// Normalize extracts candidates[0].content.parts[0].text; a response with no
// candidates or parts normalizes to empty text.
func (Codec) Normalize(providerID string, body []byte) (*core.ChatResponse, error) {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, core.NewProtocolError(providerID, "failed to decode generateContent response", body, err)
	}

	out := &core.ChatResponse{Provider: providerID}
	if len(resp.Candidates) > 0 {
		cand := resp.Candidates[0]
		out.FinishReason = cand.FinishReason
		if cand.Content != nil && len(cand.Content.Parts) > 0 {
			out.Text = cand.Content.Parts[0].Text
		}
	}
	if resp.Usage != nil {
		out.Usage = &core.Usage{
			PromptTokens:     resp.Usage.PromptTokenCount,
			CompletionTokens: resp.Usage.CandidatesTokenCount,
			TotalTokens:      resp.Usage.TotalTokenCount,
		}
	}
	return out, nil
}
