package openai

import (
	"encoding/json"
	"errors"
	"testing"

	"modelgate/internal/core"
	"modelgate/internal/registry"
)

var openaiDesc = registry.Descriptor{
	ID:           "openai",
	DisplayName:  "OpenAI",
	BaseURL:      "https://api.openai.com/v1",
	DefaultModel: "gpt-4o-mini",
	WireFormat:   registry.OpenAICompatible,
}

func TestTranslatePassThrough(t *testing.T) {
	temp := 0.7
	maxTokens := 256
	req := &core.ChatRequest{
		Model:       "gpt-4o-mini",
		Temperature: &temp,
		MaxTokens:   &maxTokens,
		Messages: []core.Message{
			{Role: core.RoleSystem, Content: "be brief"},
			{Role: core.RoleUser, Content: "hi"},
		},
		Tools: []core.Tool{
			{Type: "function", Function: core.FunctionDef{Name: "get_weather"}},
		},
		ToolChoice: core.ToolChoiceAuto,
	}

	wreq, err := Codec{}.Translate(req, openaiDesc, "sk-test")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}

	if wreq.URL != "https://api.openai.com/v1/chat/completions" {
		t.Errorf("URL = %q", wreq.URL)
	}
	if got := wreq.Header.Get("Authorization"); got != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want bearer token", got)
	}

	var body map[string]any
	if err := json.Unmarshal(wreq.Body, &body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if body["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", body["model"])
	}
	if body["temperature"] != 0.7 {
		t.Errorf("temperature = %v", body["temperature"])
	}
	if body["max_tokens"] != float64(256) {
		t.Errorf("max_tokens = %v", body["max_tokens"])
	}
	if body["stream"] != false {
		t.Errorf("stream = %v, want explicit false", body["stream"])
	}
	if body["tool_choice"] != "auto" {
		t.Errorf("tool_choice = %v", body["tool_choice"])
	}
	msgs, ok := body["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("messages = %v, want 2 entries", body["messages"])
	}
	if _, present := body["provider"]; present {
		t.Error("provider routing prefs must not be sent to plain OpenAI")
	}
}

func TestTranslateOpenRouterFallbacks(t *testing.T) {
	desc := openaiDesc
	desc.ID = "openrouter"
	req := &core.ChatRequest{
		Model:    "openai/gpt-4o-mini",
		Messages: []core.Message{{Role: core.RoleUser, Content: "hi"}},
	}

	wreq, err := Codec{}.Translate(req, desc, "sk-or")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}

	var body struct {
		Provider *struct {
			AllowFallbacks bool `json:"allow_fallbacks"`
		} `json:"provider"`
	}
	if err := json.Unmarshal(wreq.Body, &body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if body.Provider == nil || !body.Provider.AllowFallbacks {
		t.Errorf("allow_fallbacks routing preference missing: %+v", body.Provider)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantText  string
		wantCalls int
	}{
		{
			name:     "round trip text",
			body:     `{"id":"chatcmpl-1","model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`,
			wantText: "hello",
		},
		{
			name:     "empty choices is success with empty text",
			body:     `{"id":"chatcmpl-2","choices":[]}`,
			wantText: "",
		},
		{
			name:      "tool calls preserved",
			body:      `{"choices":[{"message":{"content":null,"tool_calls":[{"id":"call_1","type":"function","function":{"name":"get_weather","arguments":"{\"city\":\"Oslo\"}"}}]},"finish_reason":"tool_calls"}]}`,
			wantText:  "",
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Codec{}.Normalize("openai", []byte(tt.body))
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if resp.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", resp.Text, tt.wantText)
			}
			if len(resp.ToolCalls) != tt.wantCalls {
				t.Fatalf("len(ToolCalls) = %d, want %d", len(resp.ToolCalls), tt.wantCalls)
			}
			if tt.wantCalls > 0 {
				call := resp.ToolCalls[0]
				if call.Function.Name != "get_weather" {
					t.Errorf("tool name = %q", call.Function.Name)
				}
				// Arguments stay provider-exact raw JSON text.
				if call.Function.Arguments != `{"city":"Oslo"}` {
					t.Errorf("arguments = %q", call.Function.Arguments)
				}
			}
		})
	}
}

func TestNormalizeUsage(t *testing.T) {
	body := `{"choices":[{"message":{"content":"ok"}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`
	resp, err := Codec{}.Normalize("openai", []byte(body))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if resp.Usage == nil || resp.Usage.PromptTokens != 10 || resp.Usage.CompletionTokens != 5 || resp.Usage.TotalTokens != 15 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
}

func TestNormalizeMalformedBody(t *testing.T) {
	_, err := Codec{}.Normalize("openai", []byte("not json"))
	var gwErr *core.GatewayError
	if !errors.As(err, &gwErr) || gwErr.Code != core.ErrProtocol {
		t.Fatalf("error = %v, want protocol error", err)
	}
	if gwErr.Provider != "openai" {
		t.Errorf("Provider = %q", gwErr.Provider)
	}
}
