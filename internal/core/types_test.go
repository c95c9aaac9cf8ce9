package core

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"system", RoleSystem, false},
		{"user", RoleUser, false},
		{"assistant", RoleAssistant, false},
		{"tool", RoleTool, false},
		{"model", "", true},
		{"SYSTEM", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestChatRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ChatRequest
		wantErr bool
	}{
		{
			name:    "empty messages rejected",
			req:     ChatRequest{Model: "gpt-4o-mini"},
			wantErr: true,
		},
		{
			name: "unknown role rejected",
			req: ChatRequest{
				Model:    "gpt-4o-mini",
				Messages: []Message{{Role: "robot", Content: "hi"}},
			},
			wantErr: true,
		},
		{
			name: "valid request",
			req: ChatRequest{
				Model: "gpt-4o-mini",
				Messages: []Message{
					{Role: RoleSystem, Content: "be brief"},
					{Role: RoleUser, Content: "hi"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
