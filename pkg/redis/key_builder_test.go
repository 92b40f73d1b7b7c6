package redis

import (
	"testing"
)

func TestKeyBuilder_Environment_Prefixes(t *testing.T) {
	tests := []struct {
		name           string
		environment    string
		expectedPrefix string
	}{
		{
			name:           "Production environment should use prod prefix",
			environment:    "production",
			expectedPrefix: "prod",
		},
		{
			name:           "Development environment should use staging prefix",
			environment:    "development",
			expectedPrefix: "staging",
		},
		{
			name:           "Staging environment should use staging prefix",
			environment:    "staging",
			expectedPrefix: "staging",
		},
		{
			name:           "Unknown environment should default to prod prefix",
			environment:    "unknown",
			expectedPrefix: "prod",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := NewKeyBuilder(tt.environment)
			want := tt.expectedPrefix + ":feed:submissions"
			if got := kb.KeyFeedChannel("submissions"); got != want {
				t.Errorf("NewKeyBuilder(%s).KeyFeedChannel() = %s, want %s",
					tt.environment, got, want)
			}
		})
	}
}

func TestKeyBuilder_Keys(t *testing.T) {
	kb := NewKeyBuilder("staging")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"feed channel", kb.KeyFeedChannel("submissions"), "staging:feed:submissions"},
		{"settings channel", kb.KeyFeedChannel("app_settings"), "staging:feed:app_settings"},
		{"revoked admin token", kb.KeyAdminRevoked("jti-1"), "staging:admin:revoked:jti-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}
}
