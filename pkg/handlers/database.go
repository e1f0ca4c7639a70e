package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/lakeview-data/marketplace-api/pkg/config"
	"github.com/lakeview-data/marketplace-api/pkg/database"
)

// DatabaseHandler serves the database diagnostic and maintenance endpoints.
type DatabaseHandler struct {
	cfg    *config.Config
	db     DatabaseManager
	logger *zap.Logger
}

// NewDatabaseHandler creates a new DatabaseHandler.
func NewDatabaseHandler(cfg *config.Config, db DatabaseManager, logger *zap.Logger) *DatabaseHandler {
	return &DatabaseHandler{cfg: cfg, db: db, logger: logger}
}

// RegisterRoutes registers the database routes on the given mux.
func (h *DatabaseHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/database/credentials", h.Credentials)
	mux.HandleFunc("POST /api/database/refresh", h.Refresh)
	mux.HandleFunc("GET /api/database/test", h.Test)
}

// databaseInfo is the non-secret connection configuration echoed back by the
// diagnostic endpoints.
type databaseInfo struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	SSLMode  string `json:"ssl_mode"`
}

func (h *DatabaseHandler) databaseInfo() databaseInfo {
	return databaseInfo{
		Host:     h.cfg.Database.Host,
		Port:     h.cfg.Database.Port,
		Database: h.cfg.Database.Database,
		User:     h.cfg.Database.User,
		SSLMode:  h.cfg.Database.SSLMode,
	}
}

// CredentialsResponse is the body of GET /api/database/credentials.
type CredentialsResponse struct {
	Status      string                    `json:"status"`
	Credentials database.CredentialReport `json:"credentials"`
	Database    databaseInfo              `json:"database"`
	Warehouse   warehouseInfo             `json:"warehouse"`
	Environment string                    `json:"environment"`
}

type warehouseInfo struct {
	ServerHostname       string `json:"server_hostname"`
	HTTPPath             string `json:"http_path"`
	CLIProfile           string `json:"cli_profile"`
	HasAccessToken       bool   `json:"has_access_token"`
	HasClientCredentials bool   `json:"has_client_credentials"`
	AuthMethod           string `json:"auth_method"`
}

// Credentials handles GET /api/database/credentials: the verbose
// credential/environment diagnostic surface.
func (h *DatabaseHandler) Credentials(w http.ResponseWriter, r *http.Request) {
	report := h.db.CredentialReport()

	response := CredentialsResponse{
		Status:      "success",
		Credentials: report,
		Database:    h.databaseInfo(),
		Warehouse: warehouseInfo{
			ServerHostname:       h.cfg.Warehouse.Host,
			HTTPPath:             h.cfg.Warehouse.HTTPPath(),
			CLIProfile:           h.cfg.Warehouse.CLIProfile,
			HasAccessToken:       h.cfg.Warehouse.AccessToken != "",
			HasClientCredentials: h.cfg.Warehouse.HasClientCredentials(),
			AuthMethod:           report.WarehouseAuthMethod,
		},
		Environment: h.cfg.Env,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode credentials response", zap.Error(err))
	}
}

// RefreshResponse is the body of POST /api/database/refresh.
type RefreshResponse struct {
	Status         string                    `json:"status"`
	Message        string                    `json:"message"`
	ConnectionTest string                    `json:"connection_test"`
	Credentials    database.CredentialReport `json:"credentials"`
}

// Refresh handles POST /api/database/refresh: triggers a credential
// invalidation plus pool rebuild, then probes the new connection.
func (h *DatabaseHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Refresh(r.Context()); err != nil {
		h.logger.Error("Database refresh failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "refresh_failed", "Failed to refresh connection: "+err.Error())
		return
	}

	test := "failed"
	if h.db.TestConnection(r.Context()) {
		test = "passed"
	}

	response := RefreshResponse{
		Status:         "success",
		Message:        "Database connection refreshed",
		ConnectionTest: test,
		Credentials:    h.db.CredentialReport(),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode refresh response", zap.Error(err))
	}
}

// TestResponse is the body of GET /api/database/test.
type TestResponse struct {
	Status   string       `json:"status"`
	Message  string       `json:"message"`
	Database databaseInfo `json:"database"`
}

// Test handles GET /api/database/test: the dedicated connectivity probe.
func (h *DatabaseHandler) Test(w http.ResponseWriter, r *http.Request) {
	response := TestResponse{
		Status:   "failed",
		Message:  "Database connection failed",
		Database: h.databaseInfo(),
	}
	if h.db.TestConnection(r.Context()) {
		response.Status = "success"
		response.Message = "Database connection successful"
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode database test response", zap.Error(err))
	}
}
