package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// KeyFeedChannel is the pub/sub channel for a change-feed topic
func (kb *KeyBuilder) KeyFeedChannel(topic string) string {
	return kb.BuildKey(fmt.Sprintf(KeyFeedChannel, topic))
}

// KeyAdminRevoked marks a logged-out admin token id
func (kb *KeyBuilder) KeyAdminRevoked(tokenID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyAdminRevoked, tokenID))
}
