package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/lakeview-data/marketplace-api/pkg/config"
	"github.com/lakeview-data/marketplace-api/pkg/database"
)

// DatabaseManager is the connection manager surface the diagnostic handlers
// use.
type DatabaseManager interface {
	TestConnection(ctx context.Context) bool
	Refresh(ctx context.Context) error
	CredentialReport() database.CredentialReport
}

// HealthHandler serves overall service liveness.
type HealthHandler struct {
	cfg    *config.Config
	db     DatabaseManager
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(cfg *config.Config, db DatabaseManager, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, db: db, logger: logger}
}

// RegisterRoutes registers the health route on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.Health)
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status       string         `json:"status"`
	Service      string         `json:"service"`
	Version      string         `json:"version"`
	Database     string         `json:"database"`
	DatabaseAuth DatabaseAuth   `json:"database_auth"`
	Environment  string         `json:"environment"`
}

// DatabaseAuth summarizes the credential state for the health body.
type DatabaseAuth struct {
	Method              string `json:"method"`
	Status              string `json:"status"`
	WarehouseAvailable  bool   `json:"warehouse_client_available"`
	WarehouseAuthMethod string `json:"warehouse_auth_method"`
}

// Health handles GET /api/health: liveness including database connectivity
// and a credential diagnostic summary.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	connected := h.db.TestConnection(r.Context())
	report := h.db.CredentialReport()

	dbStatus := "disconnected"
	if connected {
		dbStatus = "connected"
	}

	response := HealthResponse{
		Status:   "healthy",
		Service:  "marketplace-api",
		Version:  h.cfg.Version,
		Database: dbStatus,
		DatabaseAuth: DatabaseAuth{
			Method:              report.AuthMethod,
			Status:              report.Status,
			WarehouseAvailable:  report.GeneratorAvailable,
			WarehouseAuthMethod: report.WarehouseAuthMethod,
		},
		Environment: h.cfg.Env,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}
