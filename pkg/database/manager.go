package database

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lakeview-data/marketplace-api/pkg/apperrors"
	"github.com/lakeview-data/marketplace-api/pkg/config"
	"github.com/lakeview-data/marketplace-api/pkg/logging"
)

// sslModeTable translates configured SSL mode spellings to libpq sslmode
// values. Unrecognized values pass through verbatim rather than erroring.
var sslModeTable = map[string]string{
	"require":  "require",
	"required": "require",
	"prefer":   "prefer",
	"disable":  "disable",
	"disabled": "disable",
	"allow":    "allow",
}

// connPool is the subset of *pgxpool.Pool the manager uses. It exists so the
// refresh/retry cycle can be tested against a simulated dead pool.
type connPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// Manager owns the pooled database connection. The pool is bound to a
// credential set at construction time and never mutated in place: a refresh
// disposes the old pool and builds a new one. Refresh and initialize are
// serialized under a mutex so concurrent refresh triggers cannot race on the
// dispose-and-rebuild sequence.
type Manager struct {
	cfg             config.DatabaseConfig
	cache           *Cache
	env             string
	warehouseMethod string
	logger          *zap.Logger

	// refreshMu serializes Initialize/Refresh. poolMu guards the handle swap
	// so queries issued during a refresh see either the old or the new pool.
	refreshMu sync.Mutex
	poolMu    sync.RWMutex
	pool      connPool

	newPool func(ctx context.Context, connString string) (connPool, error)
}

// NewManager creates a connection manager. Call Initialize before use.
func NewManager(cfg config.DatabaseConfig, cache *Cache, env, warehouseMethod string, logger *zap.Logger) *Manager {
	m := &Manager{
		cfg:             cfg,
		cache:           cache,
		env:             env,
		warehouseMethod: warehouseMethod,
		logger:          logger.Named("database"),
	}
	m.newPool = m.buildPool
	return m
}

// BuildConnectionString combines static network parameters with the current
// credentials from the cache. User-provided fields are URL-escaped so
// passwords with special characters survive URL parsing.
func (m *Manager) BuildConnectionString(ctx context.Context) string {
	creds := m.cache.Get(ctx)

	sslMode := m.cfg.SSLMode
	if mapped, ok := sslModeTable[sslMode]; ok {
		sslMode = mapped
	}

	auth := url.QueryEscape(creds.Username)
	if creds.Secret != "" {
		auth += ":" + url.QueryEscape(creds.Secret)
	}

	connString := fmt.Sprintf(
		"postgresql://%s@%s:%d/%s",
		auth, m.cfg.Host, m.cfg.Port, url.QueryEscape(m.cfg.Database),
	)
	if sslMode != "" {
		connString += "?sslmode=" + sslMode
	}

	m.logger.Info("Built database connection string",
		zap.String("host", m.cfg.Host),
		zap.Int("port", m.cfg.Port),
		zap.String("database", m.cfg.Database),
		zap.String("user", creds.Username),
		zap.String("ssl_mode", sslMode),
		zap.String("auth_origin", string(creds.Origin)))

	return connString
}

func (m *Manager) buildPool(ctx context.Context, connString string) (connPool, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = m.cfg.PoolMaxConns
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 15
	}
	poolConfig.MinConns = m.cfg.PoolMinConns
	if m.cfg.PoolRecycleSeconds > 0 {
		poolConfig.MaxConnLifetime = time.Duration(m.cfg.PoolRecycleSeconds) * time.Second
	}
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return pool, nil
}

// Initialize constructs the pooled connection. Pool construction failure is
// the one unrecoverable failure at this layer and propagates; a failed
// liveness ping is only logged since the JSON fallback keeps the service
// useful without a database.
func (m *Manager) Initialize(ctx context.Context) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()
	return m.initializeLocked(ctx)
}

func (m *Manager) initializeLocked(ctx context.Context) error {
	connString := m.BuildConnectionString(ctx)

	pool, err := m.newPool(ctx, connString)
	if err != nil {
		return err
	}

	if err := pool.Ping(ctx); err != nil {
		m.logger.Warn("Database ping failed; serving without connectivity until refreshed",
			zap.String("error", logging.SanitizeError(err)))
	} else {
		m.logger.Info("Database connection initialized")
	}

	m.poolMu.Lock()
	old := m.pool
	m.pool = pool
	m.poolMu.Unlock()

	if old != nil {
		// In-flight queries on the old pool complete or fail naturally;
		// Close waits for checked-out connections to be released.
		old.Close()
	}
	return nil
}

func (m *Manager) currentPool() connPool {
	m.poolMu.RLock()
	defer m.poolMu.RUnlock()
	return m.pool
}

// Execute runs one statement and returns each row as a mapping keyed by
// column name, with column order preserved in the field descriptions.
func (m *Manager) Execute(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	pool := m.currentPool()
	if pool == nil {
		return nil, apperrors.ErrNoConnection
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	results := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		results = append(results, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return results, nil
}

// probe issues the trivial connectivity statement.
func (m *Manager) probe(ctx context.Context) error {
	rows, err := m.Execute(ctx, "SELECT 1 AS test")
	if err != nil {
		return err
	}
	if len(rows) != 1 {
		return fmt.Errorf("unexpected probe result: %d rows", len(rows))
	}
	return nil
}

// TestConnection probes connectivity. On failure, if a dynamic credential
// capability exists, it performs exactly one refresh-and-retry cycle before
// reporting failure. It never retries more than once per call and never
// returns an error.
func (m *Manager) TestConnection(ctx context.Context) bool {
	if err := m.probe(ctx); err == nil {
		return true
	} else {
		m.logger.Warn("Database connection test failed",
			zap.String("error", logging.SanitizeError(err)))
	}

	if !m.cache.CanGenerate() {
		return false
	}

	m.logger.Info("Refreshing credentials and reconnecting")
	if err := m.Refresh(ctx); err != nil {
		m.logger.Error("Connection refresh failed", zap.Error(err))
		return false
	}
	if err := m.probe(ctx); err != nil {
		m.logger.Error("Connection retry with fresh credentials failed", zap.Error(err))
		return false
	}
	return true
}

// Refresh invalidates the credential cache, disposes the current pool, and
// builds a new one. Safe to call concurrently; refreshes are serialized.
func (m *Manager) Refresh(ctx context.Context) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	m.logger.Info("Refreshing database connection")
	m.cache.Invalidate()
	return m.initializeLocked(ctx)
}

// Close disposes the pooled connection.
func (m *Manager) Close() {
	m.poolMu.Lock()
	pool := m.pool
	m.pool = nil
	m.poolMu.Unlock()
	if pool != nil {
		pool.Close()
	}
}

// CredentialReport is the read-only diagnostic view of credential state.
type CredentialReport struct {
	Status                  string `json:"status"`
	AuthMethod              string `json:"auth_method"`
	Cached                  bool   `json:"cached"`
	CacheDuration           int    `json:"cache_duration,omitempty"`
	TimeRemaining           int    `json:"time_remaining"`
	Username                string `json:"username,omitempty"`
	InstanceName            string `json:"instance_name,omitempty"`
	GeneratorAvailable      bool   `json:"warehouse_client_available"`
	StaticPasswordAvailable bool   `json:"static_password_available"`
	WarehouseAuthMethod     string `json:"warehouse_auth_method"`
	Environment             string `json:"environment"`
}

// CredentialReport exposes cache state for observability. Read-only.
func (m *Manager) CredentialReport() CredentialReport {
	snap := m.cache.Inspect()

	report := CredentialReport{
		GeneratorAvailable:      m.cache.CanGenerate(),
		StaticPasswordAvailable: m.cache.StaticPasswordConfigured(),
		WarehouseAuthMethod:     m.warehouseMethod,
		Environment:             m.env,
	}
	if !snap.Active {
		report.Status = "no_credentials"
		report.AuthMethod = "none"
		return report
	}

	report.Status = "active"
	report.AuthMethod = string(snap.Credential.Origin)
	report.Cached = true
	report.CacheDuration = int(snap.TTL.Seconds())
	report.TimeRemaining = int(snap.TimeRemaining.Seconds())
	report.Username = snap.Credential.Username
	report.InstanceName = snap.Credential.InstanceName
	return report
}
