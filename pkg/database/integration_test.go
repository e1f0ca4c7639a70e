package database_test

import (
	"context"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lakeview-data/marketplace-api/pkg/config"
	"github.com/lakeview-data/marketplace-api/pkg/database"
	"github.com/lakeview-data/marketplace-api/pkg/testhelpers"
)

func containerConfig(t *testing.T, connStr string) config.DatabaseConfig {
	t.Helper()
	u, err := url.Parse(connStr)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	password, _ := u.User.Password()

	return config.DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		Database: "marketplace_test",
		SSLMode:  "disable",
	}
}

func TestManagerAgainstPostgres(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	cfg := containerConfig(t, testDB.ConnStr)
	provider := database.NewProvider(nil, "", cfg.User, zap.NewNop())
	cache := database.NewCache(provider, cfg.User, cfg.Password, zap.NewNop())
	m := database.NewManager(cfg, cache, "test", "none", zap.NewNop())

	require.NoError(t, m.Initialize(ctx))
	defer m.Close()

	assert.True(t, m.TestConnection(ctx))

	_, err := testDB.Pool.Exec(ctx, `
		INSERT INTO datasets (id, title, category)
		VALUES ('it-1', 'Integration Listing', 'MARKET_TRADING')
		ON CONFLICT (id) DO NOTHING`)
	require.NoError(t, err)

	rows, err := m.Execute(ctx, "SELECT id, title, category FROM datasets WHERE id = 'it-1'")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "it-1", rows[0]["id"])
	assert.Equal(t, "Integration Listing", rows[0]["title"])
	assert.Equal(t, "MARKET_TRADING", rows[0]["category"])
}

func TestManagerRefreshAgainstPostgres(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	cfg := containerConfig(t, testDB.ConnStr)
	provider := database.NewProvider(nil, "", cfg.User, zap.NewNop())
	cache := database.NewCache(provider, cfg.User, cfg.Password, zap.NewNop())
	m := database.NewManager(cfg, cache, "test", "none", zap.NewNop())

	require.NoError(t, m.Initialize(ctx))
	defer m.Close()

	// The rebuilt pool works immediately after a refresh.
	require.NoError(t, m.Refresh(ctx))
	assert.True(t, m.TestConnection(ctx))
}
