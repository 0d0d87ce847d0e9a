package delivery

import "testing"

func TestParseDiscordWebhookURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantID    string
		wantToken string
		wantErr   bool
	}{
		{
			name:      "standard webhook url",
			url:       "https://discord.com/api/webhooks/123456789/abcDEF-token_123",
			wantID:    "123456789",
			wantToken: "abcDEF-token_123",
		},
		{
			name:      "trailing slash",
			url:       "https://discord.com/api/webhooks/123456789/abcDEF-token_123/",
			wantID:    "123456789",
			wantToken: "abcDEF-token_123",
		},
		{
			name:    "missing token",
			url:     "https://discord.com/api/webhooks/123456789",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, token, err := parseDiscordWebhookURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.wantID || token != tt.wantToken {
				t.Errorf("got (%q, %q), want (%q, %q)", id, token, tt.wantID, tt.wantToken)
			}
		})
	}
}
