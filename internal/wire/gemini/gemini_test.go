package gemini

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"modelgate/internal/core"
	"modelgate/internal/registry"
)

var geminiDesc = registry.Descriptor{
	ID:           "gemini",
	DisplayName:  "Google Gemini",
	BaseURL:      "https://generativelanguage.googleapis.com/v1beta",
	DefaultModel: "gemini-1.5-flash",
	WireFormat:   registry.GeminiGenerate,
}

func translateBody(t *testing.T, req *core.ChatRequest) generateRequest {
	t.Helper()
	wreq, err := Codec{}.Translate(req, geminiDesc, "AIza-test")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	var body generateRequest
	if err := json.Unmarshal(wreq.Body, &body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	return body
}

func TestTranslateURLAndAuth(t *testing.T) {
	wreq, err := Codec{}.Translate(&core.ChatRequest{
		Model:    "gemini-1.5-flash",
		Messages: []core.Message{{Role: core.RoleUser, Content: "hi"}},
	}, geminiDesc, "AIza-test")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}

	if !strings.Contains(wreq.URL, "/models/gemini-1.5-flash:generateContent") {
		t.Errorf("URL = %q, want generateContent path", wreq.URL)
	}
	// Auth is a query parameter, not a header.
	if !strings.Contains(wreq.URL, "key=AIza-test") {
		t.Errorf("URL = %q, want key query parameter", wreq.URL)
	}
	if got := wreq.Header.Get("Authorization"); got != "" {
		t.Errorf("Authorization = %q, want none", got)
	}
	if got := wreq.Header.Get("x-api-key"); got != "" {
		t.Errorf("x-api-key = %q, want none", got)
	}
}

func TestTranslateSystemExtraction(t *testing.T) {
	body := translateBody(t, &core.ChatRequest{
		Model: "gemini-1.5-flash",
		Messages: []core.Message{
			{Role: core.RoleSystem, Content: "S1"},
			{Role: core.RoleUser, Content: "U1"},
			{Role: core.RoleSystem, Content: "S2"},
		},
	})

	if body.SystemInstruction == nil || len(body.SystemInstruction.Parts) != 1 ||
		body.SystemInstruction.Parts[0].Text != "S1" {
		t.Errorf("SystemInstruction = %+v, want S1", body.SystemInstruction)
	}
	if len(body.Contents) != 1 {
		t.Fatalf("len(Contents) = %d, want 1 (both system messages excluded)", len(body.Contents))
	}
	if body.Contents[0].Parts[0].Text != "U1" {
		t.Errorf("Contents[0] = %+v", body.Contents[0])
	}
}

func TestTranslateRoleRemap(t *testing.T) {
	body := translateBody(t, &core.ChatRequest{
		Model: "gemini-1.5-flash",
		Messages: []core.Message{
			{Role: core.RoleUser, Content: "a"},
			{Role: core.RoleAssistant, Content: "b"},
			{Role: core.RoleTool, Content: "c"},
		},
	})

	want := []string{"user", "model", "user"}
	if len(body.Contents) != len(want) {
		t.Fatalf("len(Contents) = %d, want %d", len(body.Contents), len(want))
	}
	for i, w := range want {
		if body.Contents[i].Role != w {
			t.Errorf("Contents[%d].Role = %q, want %q", i, body.Contents[i].Role, w)
		}
	}
}

func TestTranslateGenerationConfig(t *testing.T) {
	temp := 0.2
	maxTokens := 321
	body := translateBody(t, &core.ChatRequest{
		Model:       "gemini-1.5-flash",
		Temperature: &temp,
		MaxTokens:   &maxTokens,
		Messages:    []core.Message{{Role: core.RoleUser, Content: "hi"}},
	})

	if body.GenerationConfig == nil {
		t.Fatal("GenerationConfig missing")
	}
	if body.GenerationConfig.Temperature == nil || *body.GenerationConfig.Temperature != 0.2 {
		t.Errorf("Temperature = %v", body.GenerationConfig.Temperature)
	}
	if body.GenerationConfig.MaxOutputTokens == nil || *body.GenerationConfig.MaxOutputTokens != 321 {
		t.Errorf("MaxOutputTokens = %v", body.GenerationConfig.MaxOutputTokens)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantText string
	}{
		{
			name:     "candidate text",
			body:     `{"candidates":[{"content":{"role":"model","parts":[{"text":"hello"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":1,"totalTokenCount":5}}`,
			wantText: "hello",
		},
		{
			name:     "no candidates is empty success",
			body:     `{"candidates":[]}`,
			wantText: "",
		},
		{
			name:     "candidate without parts is empty success",
			body:     `{"candidates":[{"finishReason":"SAFETY"}]}`,
			wantText: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Codec{}.Normalize("gemini", []byte(tt.body))
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if resp.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", resp.Text, tt.wantText)
			}
		})
	}
}

func TestNormalizeUsage(t *testing.T) {
	body := `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":1,"totalTokenCount":5}}`
	resp, err := Codec{}.Normalize("gemini", []byte(body))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if resp.Usage == nil || resp.Usage.PromptTokens != 4 || resp.Usage.CompletionTokens != 1 || resp.Usage.TotalTokens != 5 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
}

func TestNormalizeMalformedBody(t *testing.T) {
	_, err := Codec{}.Normalize("gemini", []byte("{"))
	var gwErr *core.GatewayError
	if !errors.As(err, &gwErr) || gwErr.Code != core.ErrProtocol {
		t.Fatalf("error = %v, want protocol error", err)
	}
}

func TestSupportsTools(t *testing.T) {
	if (Codec{}).SupportsTools() {
		t.Error("the generate-content wire format must report no tool support")
	}
}
