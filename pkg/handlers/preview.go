package handlers

import (
	"context"
	"net/http"

	libinjection "github.com/corazawaf/libinjection-go"
	"go.uber.org/zap"

	"github.com/lakeview-data/marketplace-api/pkg/config"
	"github.com/lakeview-data/marketplace-api/pkg/preview"
)

// TablePreviewer serves table previews and connection probes.
type TablePreviewer interface {
	GetTablePreview(ctx context.Context, reference string) preview.TablePreviewResult
	TestConnection(ctx context.Context) bool
	Limit() int
}

// PreviewHandler serves the warehouse table preview endpoints.
type PreviewHandler struct {
	svc       TablePreviewer
	warehouse config.WarehouseConfig
	method    string
	logger    *zap.Logger
}

// NewPreviewHandler creates a new PreviewHandler. method is the diagnostic
// name of the warehouse authentication strategy in effect.
func NewPreviewHandler(svc TablePreviewer, warehouse config.WarehouseConfig, method string, logger *zap.Logger) *PreviewHandler {
	return &PreviewHandler{svc: svc, warehouse: warehouse, method: method, logger: logger}
}

// RegisterRoutes registers the preview routes on the given mux.
func (h *PreviewHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/preview", h.Preview)
	mux.HandleFunc("GET /api/preview/test", h.Test)
}

// Preview handles GET /api/preview?table_reference=. Preview failures are
// returned as data with a 200 status; only handler-level faults produce 500s.
func (h *PreviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("table_reference")
	if reference == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_table_reference", "query parameter 'table_reference' is required")
		return
	}

	// Screen the raw reference for SQL injection patterns ahead of the
	// identifier allow-list the adapter applies after sanitization.
	if isSQLi, fingerprint := libinjection.IsSQLi(reference); isSQLi {
		h.logger.Warn("Rejected table reference with injection pattern",
			zap.String("table_reference", reference),
			zap.String("fingerprint", string(fingerprint)))
		result := preview.TablePreviewResult{
			TableName:    reference,
			Columns:      nil,
			Rows:         nil,
			PreviewLimit: h.svc.Limit(),
			Error:        "invalid table reference",
		}
		_ = WriteJSON(w, http.StatusOK, result)
		return
	}

	result := h.svc.GetTablePreview(r.Context(), reference)
	if result.Error != "" {
		h.logger.Warn("Preview failed",
			zap.String("table_reference", reference),
			zap.String("error", result.Error))
	}
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode preview result", zap.Error(err))
	}
}

// PreviewTestResponse is the body of GET /api/preview/test.
type PreviewTestResponse struct {
	Status          string `json:"status"`
	Service         string `json:"service"`
	ServerHostname  string `json:"server_hostname"`
	HTTPPath        string `json:"http_path"`
	PreviewLimit    int    `json:"preview_limit"`
	AuthMethod      string `json:"auth_method"`
	UsingCLIProfile bool   `json:"using_cli_profile"`
}

// Test handles GET /api/preview/test: a warehouse connection diagnostic.
func (h *PreviewHandler) Test(w http.ResponseWriter, r *http.Request) {
	status := "disconnected"
	if h.svc.TestConnection(r.Context()) {
		status = "connected"
	}

	response := PreviewTestResponse{
		Status:          status,
		Service:         "sql-warehouse",
		ServerHostname:  h.warehouse.Host,
		HTTPPath:        h.warehouse.HTTPPath(),
		PreviewLimit:    h.svc.Limit(),
		AuthMethod:      h.method,
		UsingCLIProfile: h.method == "cli_profile",
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode preview test response", zap.Error(err))
	}
}
