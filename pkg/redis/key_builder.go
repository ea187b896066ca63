package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" || environment == "test" {
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

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyTest builds the cache key for a test document view
func (kb *KeyBuilder) KeyTest(testID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyTest, testID))
}

// KeyTestResults builds the cache key for a test's ranked tally results
func (kb *KeyBuilder) KeyTestResults(testID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyTestResults, testID))
}

// KeySessionResults builds the cache key for session-derived results
func (kb *KeyBuilder) KeySessionResults(testID string) string {
	return kb.BuildKey(fmt.Sprintf(KeySessionResults, testID))
}

// KeyTestList builds the cache key for a listing page
func (kb *KeyBuilder) KeyTestList(filterHash string) string {
	return kb.BuildKey(fmt.Sprintf(KeyTestList, filterHash))
}

// KeyGlobalStats builds the cache key for site-wide vote totals
func (kb *KeyBuilder) KeyGlobalStats() string {
	return kb.BuildKey(KeyGlobalStats)
}

// KeyIdempotency builds the key guarding duplicate mutating requests
func (kb *KeyBuilder) KeyIdempotency(token string) string {
	return kb.BuildKey(fmt.Sprintf(KeyIdempotency, token))
}

// KeyCustom builds a key from a custom pattern
func (kb *KeyBuilder) KeyCustom(pattern string, args ...interface{}) string {
	return kb.BuildKey(fmt.Sprintf(pattern, args...))
}
