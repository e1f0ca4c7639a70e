package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the marketplace API.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, tokens) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"development"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Warehouse configuration (remote SQL warehouse + credential authority)
	Warehouse WarehouseConfig `yaml:"warehouse"`

	// Preview configuration
	Preview PreviewConfig `yaml:"preview"`

	// DatasetsTable is the table the dataset listing is read from.
	DatasetsTable string `yaml:"datasets_table" env:"DATASETS_TABLE" env-default:"datasets"`

	// DatasetsFile is the JSON fallback source used when the database is
	// unreachable or empty.
	DatasetsFile string `yaml:"datasets_file" env:"DATASETS_FILE" env-default:"data/datasets.json"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User     string `yaml:"user" env:"PGUSER" env-default:"postgres"`
	Password string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"PGDATABASE" env-default:"marketplace"`
	SSLMode  string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"require"`

	// Pool sizing: bounded pool plus an overflow allowance.
	PoolMaxConns int32 `yaml:"pool_max_conns" env:"PGPOOL_MAX_CONNS" env-default:"15"`
	PoolMinConns int32 `yaml:"pool_min_conns" env:"PGPOOL_MIN_CONNS" env-default:"5"`

	// PoolRecycleSeconds forces pooled connections to be recycled after this
	// many seconds regardless of health.
	PoolRecycleSeconds int `yaml:"pool_recycle_seconds" env:"PGPOOL_RECYCLE_SECONDS" env-default:"3600"`

	// RunMigrations applies pending schema migrations at startup.
	RunMigrations  bool   `yaml:"run_migrations" env:"RUN_MIGRATIONS" env-default:"false"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// WarehouseConfig holds configuration for the remote analytics warehouse.
// The same host serves both dynamic database-credential generation and
// ad-hoc statement execution; authentication resolves through a fixed
// three-tier precedence (OAuth client credentials > access token > CLI profile).
type WarehouseConfig struct {
	Host         string `yaml:"host" env:"DATABRICKS_HOST" env-default:""`
	WarehouseID  string `yaml:"warehouse_id" env:"DATABRICKS_WAREHOUSE_ID" env-default:""`
	AccessToken  string `yaml:"-" env:"DATABRICKS_ACCESS_TOKEN"` // Secret - not in YAML
	ClientID     string `yaml:"client_id" env:"DATABRICKS_CLIENT_ID" env-default:""`
	ClientSecret string `yaml:"-" env:"DATABRICKS_CLIENT_SECRET"` // Secret - not in YAML
	CLIProfile   string `yaml:"cli_profile" env:"DATABRICKS_CLI_PROFILE" env-default:"DEFAULT"`

	// ConfigFile overrides the default CLI profile file (~/.databrickscfg).
	ConfigFile string `yaml:"config_file" env:"DATABRICKS_CONFIG_FILE" env-default:""`
}

// PreviewConfig holds table preview settings.
type PreviewConfig struct {
	// RowLimit is the maximum row count returned by a table preview.
	RowLimit int `yaml:"row_limit" env:"PREVIEW_DATA_LIMIT" env-default:"15"`
	// Workers is the size of the fixed worker pool blocking warehouse calls
	// are dispatched to.
	Workers int `yaml:"workers" env:"PREVIEW_WORKERS" env-default:"2"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. All settings are optional; missing values resolve to defaults.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	// config.yaml is optional; environment variables alone are enough.
	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	return cfg, nil
}

// HTTPPath returns the SQL warehouse HTTP path for diagnostics.
func (c *WarehouseConfig) HTTPPath() string {
	return "/sql/1.0/warehouses/" + c.WarehouseID
}

// HasClientCredentials reports whether OAuth client credentials are configured.
func (c *WarehouseConfig) HasClientCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}
