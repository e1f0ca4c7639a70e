package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeGenerator counts calls and returns a configurable payload.
type fakeGenerator struct {
	payload map[string]any
	err     error
	calls   int
}

func (g *fakeGenerator) GenerateDatabaseCredential(ctx context.Context, instanceName string) (map[string]any, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.payload, nil
}

func newTestCache(gen CredentialGenerator, staticUser, staticSecret string) *Cache {
	provider := NewProvider(gen, "my-instance.database.cloud.databricks.com", staticUser, zap.NewNop())
	return NewCache(provider, staticUser, staticSecret, zap.NewNop())
}

func TestProviderGenerateNotAvailable(t *testing.T) {
	provider := NewProvider(nil, "host", "fallback", zap.NewNop())

	assert.False(t, provider.Available())
	result := provider.Generate(context.Background())
	assert.Equal(t, GenerationNotAvailable, result.Status)
}

func TestProviderGenerateSuccess(t *testing.T) {
	gen := &fakeGenerator{payload: map[string]any{
		"username": "svc-user",
		"token":    "ephemeral",
	}}
	provider := NewProvider(gen, "my-instance.database.cloud.databricks.com", "fallback", zap.NewNop())

	result := provider.Generate(context.Background())
	require.Equal(t, GenerationOK, result.Status)
	assert.Equal(t, "svc-user", result.Credential.Username)
	assert.Equal(t, "ephemeral", result.Credential.Secret)
	assert.Equal(t, OriginDynamic, result.Credential.Origin)
	assert.Equal(t, "my-instance", result.Credential.InstanceName)
}

func TestProviderGenerateUsernameFallback(t *testing.T) {
	gen := &fakeGenerator{payload: map[string]any{"token": "ephemeral"}}
	provider := NewProvider(gen, "host", "configured-user", zap.NewNop())

	result := provider.Generate(context.Background())
	require.Equal(t, GenerationOK, result.Status)
	assert.Equal(t, "configured-user", result.Credential.Username)
}

func TestProviderGenerateNoSecretIsFailure(t *testing.T) {
	gen := &fakeGenerator{payload: map[string]any{"username": "svc-user"}}
	provider := NewProvider(gen, "host", "fallback", zap.NewNop())

	result := provider.Generate(context.Background())
	assert.Equal(t, GenerationFailed, result.Status)
	assert.Error(t, result.Err)
}

func TestProviderGenerateError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	provider := NewProvider(gen, "host", "fallback", zap.NewNop())

	result := provider.Generate(context.Background())
	assert.Equal(t, GenerationFailed, result.Status)
	assert.Error(t, result.Err)
}

func TestCacheReusesWithinTTL(t *testing.T) {
	gen := &fakeGenerator{payload: map[string]any{"username": "svc", "token": "s"}}
	cache := newTestCache(gen, "static-user", "static-pw")

	t0 := time.Date(2025, 11, 14, 10, 0, 0, 0, time.UTC)
	now := t0
	cache.now = func() time.Time { return now }

	first := cache.Get(context.Background())
	assert.Equal(t, OriginDynamic, first.Origin)
	assert.Equal(t, 1, gen.calls)

	// Just inside the window: served from cache.
	now = t0.Add(CredentialTTL - time.Second)
	second := cache.Get(context.Background())
	assert.Equal(t, first, second)
	assert.Equal(t, 1, gen.calls)

	// Just past the window: regenerated.
	now = t0.Add(CredentialTTL + time.Second)
	third := cache.Get(context.Background())
	assert.Equal(t, OriginDynamic, third.Origin)
	assert.Equal(t, 2, gen.calls)
}

func TestCacheInvalidateForcesRegeneration(t *testing.T) {
	gen := &fakeGenerator{payload: map[string]any{"username": "svc", "token": "s"}}
	cache := newTestCache(gen, "static-user", "static-pw")

	cache.Get(context.Background())
	cache.Get(context.Background())
	assert.Equal(t, 1, gen.calls)

	cache.Invalidate()
	cache.Get(context.Background())
	assert.Equal(t, 2, gen.calls)

	// Idempotent on an already-empty cache.
	cache.Invalidate()
	cache.Invalidate()
}

func TestCacheStaticFallbackNeverCached(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("generation down")}
	cache := newTestCache(gen, "static-user", "static-pw")

	first := cache.Get(context.Background())
	assert.Equal(t, OriginStatic, first.Origin)
	assert.Equal(t, "static-user", first.Username)
	assert.Equal(t, "static-pw", first.Secret)
	assert.Equal(t, "static", first.InstanceName)

	// Every subsequent call re-attempts generation.
	cache.Get(context.Background())
	cache.Get(context.Background())
	assert.Equal(t, 3, gen.calls)

	snap := cache.Inspect()
	assert.False(t, snap.Active)
}

func TestCacheStaticFallbackWithoutGenerator(t *testing.T) {
	cache := newTestCache(nil, "static-user", "")

	creds := cache.Get(context.Background())
	assert.Equal(t, OriginStatic, creds.Origin)
	assert.Empty(t, creds.Secret)
	assert.False(t, cache.CanGenerate())
	assert.False(t, cache.StaticPasswordConfigured())
}

func TestCacheInspect(t *testing.T) {
	gen := &fakeGenerator{payload: map[string]any{"username": "svc", "token": "s"}}
	cache := newTestCache(gen, "static-user", "static-pw")

	t0 := time.Date(2025, 11, 14, 10, 0, 0, 0, time.UTC)
	now := t0
	cache.now = func() time.Time { return now }

	cache.Get(context.Background())
	now = t0.Add(10 * time.Minute)

	snap := cache.Inspect()
	require.True(t, snap.Active)
	assert.Equal(t, "svc", snap.Credential.Username)
	assert.Equal(t, CredentialTTL, snap.TTL)
	assert.Equal(t, CredentialTTL-10*time.Minute, snap.TimeRemaining)

	// Inspect never triggers generation.
	assert.Equal(t, 1, gen.calls)
}
