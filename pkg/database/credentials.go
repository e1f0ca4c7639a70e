// Package database owns the PostgreSQL side of the service: credential
// resolution and caching, the pooled connection manager, and schema
// migrations.
package database

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lakeview-data/marketplace-api/pkg/warehouse"
)

// CredentialTTL is how long a generated credential is served from cache.
// The remote authority may report its own expiry; that value is informational
// only - the cache window is fixed for the process lifetime.
const CredentialTTL = time.Hour

// Origin records how a credential was obtained.
type Origin string

const (
	// OriginDynamic marks a credential generated by the remote authority
	// within the current cache window.
	OriginDynamic Origin = "dynamic"
	// OriginStatic marks the configured fallback credential.
	OriginStatic Origin = "static"
)

// staticInstanceName is the sentinel instance name for static credentials.
const staticInstanceName = "static"

// ResolvedCredential is a username/secret pair ready to connect with.
// A static credential may carry an empty secret; that is a valid, if
// insecure, state. A dynamic credential never has an empty secret.
type ResolvedCredential struct {
	Username     string
	Secret       string
	Origin       Origin
	InstanceName string
}

// GenerationStatus classifies the outcome of a dynamic generation attempt.
// NotAvailable is the expected state when no generation capability exists and
// triggers the static fallback; Failed is a genuine error that is logged but
// falls back the same way.
type GenerationStatus int

const (
	GenerationOK GenerationStatus = iota
	GenerationNotAvailable
	GenerationFailed
)

// GenerationResult is the explicit outcome of Provider.Generate. Callers
// never need to catch errors to detect the normal fallback path.
type GenerationResult struct {
	Status     GenerationStatus
	Credential ResolvedCredential
	Err        error
}

// CredentialGenerator issues short-lived database credentials for an
// instance. *warehouse.Client implements it.
type CredentialGenerator interface {
	GenerateDatabaseCredential(ctx context.Context, instanceName string) (map[string]any, error)
}

// Provider resolves dynamic credentials through the remote authority.
type Provider struct {
	generator    CredentialGenerator
	host         string
	fallbackUser string
	logger       *zap.Logger
}

// NewProvider creates a credential provider. A nil generator is valid and
// means dynamic generation is not available.
func NewProvider(generator CredentialGenerator, host, fallbackUser string, logger *zap.Logger) *Provider {
	return &Provider{
		generator:    generator,
		host:         host,
		fallbackUser: fallbackUser,
		logger:       logger.Named("credentials"),
	}
}

// Available reports whether dynamic credential generation is possible.
func (p *Provider) Available() bool {
	return p.generator != nil
}

// Generate attempts to obtain a dynamic credential for the configured host.
// The response document is probed for username and secret fields since its
// shape is not guaranteed; a missing username falls back to the configured
// user, a missing secret is a generation failure.
func (p *Provider) Generate(ctx context.Context) GenerationResult {
	if p.generator == nil {
		return GenerationResult{Status: GenerationNotAvailable}
	}

	instanceName := warehouse.InstanceNameFromHost(p.host)
	payload, err := p.generator.GenerateDatabaseCredential(ctx, instanceName)
	if err != nil {
		p.logger.Error("Credential generation failed", zap.Error(err))
		return GenerationResult{Status: GenerationFailed, Err: err}
	}

	username, ok := warehouse.ExtractUsername(payload)
	if !ok {
		username = p.fallbackUser
		p.logger.Debug("No username in credential response, using fallback",
			zap.String("username", username))
	}

	secret, ok := warehouse.ExtractSecret(payload)
	if !ok {
		err := errors.New("credential response contained no usable secret")
		p.logger.Warn("Credential generation yielded no secret")
		return GenerationResult{Status: GenerationFailed, Err: err}
	}

	p.logger.Info("Generated database credential",
		zap.String("username", username),
		zap.String("instance_name", instanceName))

	return GenerationResult{
		Status: GenerationOK,
		Credential: ResolvedCredential{
			Username:     username,
			Secret:       secret,
			Origin:       OriginDynamic,
			InstanceName: instanceName,
		},
	}
}

type cacheEntry struct {
	credential ResolvedCredential
	issuedAt   time.Time
}

// Cache holds the most recently generated dynamic credential for a fixed
// window. The common path is a zero-I/O cached read; on miss or expiry it
// re-attempts generation and otherwise serves the static fallback without
// caching it, so every miss re-tries generation.
type Cache struct {
	mu           sync.Mutex
	provider     *Provider
	staticUser   string
	staticSecret string
	ttl          time.Duration
	now          func() time.Time
	entry        *cacheEntry
	logger       *zap.Logger
}

// NewCache creates a credential cache with the fixed process-wide TTL.
func NewCache(provider *Provider, staticUser, staticSecret string, logger *zap.Logger) *Cache {
	return &Cache{
		provider:     provider,
		staticUser:   staticUser,
		staticSecret: staticSecret,
		ttl:          CredentialTTL,
		now:          time.Now,
		logger:       logger.Named("credential_cache"),
	}
}

// Get returns the current credential set: the cached dynamic credential while
// fresh, a newly generated one on miss, or the static fallback.
func (c *Cache) Get(ctx context.Context) ResolvedCredential {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry != nil && c.now().Sub(c.entry.issuedAt) < c.ttl {
		c.logger.Debug("Using cached database credential")
		return c.entry.credential
	}

	result := c.provider.Generate(ctx)
	if result.Status == GenerationOK {
		c.entry = &cacheEntry{credential: result.Credential, issuedAt: c.now()}
		return result.Credential
	}

	if result.Status == GenerationFailed {
		c.logger.Warn("Falling back to static credential after generation failure",
			zap.Error(result.Err))
	} else {
		c.logger.Debug("Dynamic generation not available, using static credential")
	}
	if c.staticSecret == "" {
		c.logger.Warn("No static password configured; connecting without a secret")
	}

	// Static fallback is never cached: configuration may change and dynamic
	// availability may recover before the next call.
	return ResolvedCredential{
		Username:     c.staticUser,
		Secret:       c.staticSecret,
		Origin:       OriginStatic,
		InstanceName: staticInstanceName,
	}
}

// Invalidate clears the cached entry unconditionally. Idempotent.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = nil
}

// CanGenerate reports whether a dynamic generation capability exists.
func (c *Cache) CanGenerate() bool {
	return c.provider.Available()
}

// StaticPasswordConfigured reports whether a static fallback secret is set.
func (c *Cache) StaticPasswordConfigured() bool {
	return c.staticSecret != ""
}

// Snapshot is a read-only view of cache state for diagnostics.
type Snapshot struct {
	Active        bool
	Credential    ResolvedCredential
	IssuedAt      time.Time
	TTL           time.Duration
	TimeRemaining time.Duration
}

// Inspect returns the current cache state without side effects.
func (c *Cache) Inspect() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{TTL: c.ttl}
	if c.entry == nil {
		return snap
	}
	remaining := c.ttl - c.now().Sub(c.entry.issuedAt)
	if remaining < 0 {
		remaining = 0
	}
	snap.Active = true
	snap.Credential = c.entry.credential
	snap.IssuedAt = c.entry.issuedAt
	snap.TimeRemaining = remaining
	return snap
}
