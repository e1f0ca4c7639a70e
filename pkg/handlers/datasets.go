package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/lakeview-data/marketplace-api/pkg/apperrors"
	"github.com/lakeview-data/marketplace-api/pkg/models"
)

// DatasetCatalog is the catalog surface the handler serves.
type DatasetCatalog interface {
	GetAll(ctx context.Context, page, limit int) ([]models.Dataset, int)
	GetByCategory(ctx context.Context, category models.DatasetCategory, page, limit int) ([]models.Dataset, int)
	GetByID(ctx context.Context, id string) (models.Dataset, error)
	Search(ctx context.Context, query string, page, limit int) ([]models.Dataset, int)
	Stats(ctx context.Context) models.DatasetStatsResponse
	Refresh()
}

// DatasetsHandler serves the dataset catalog endpoints.
type DatasetsHandler struct {
	catalog DatasetCatalog
	logger  *zap.Logger
}

// NewDatasetsHandler creates a new DatasetsHandler.
func NewDatasetsHandler(catalog DatasetCatalog, logger *zap.Logger) *DatasetsHandler {
	return &DatasetsHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes registers the dataset routes on the given mux.
func (h *DatasetsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/datasets", h.List)
	mux.HandleFunc("GET /api/datasets/stats", h.Stats)
	mux.HandleFunc("GET /api/datasets/search", h.Search)
	mux.HandleFunc("GET /api/datasets/{id}", h.GetByID)
	mux.HandleFunc("POST /api/datasets/refresh", h.Refresh)
}

// List handles GET /api/datasets with optional category filter and pagination.
func (h *DatasetsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r)

	var (
		datasets []models.Dataset
		total    int
	)
	if raw := r.URL.Query().Get("category"); raw != "" {
		if !models.KnownCategory(raw) {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_category", "unknown dataset category: "+raw)
			return
		}
		datasets, total = h.catalog.GetByCategory(r.Context(), models.CanonicalCategory(raw), page, limit)
	} else {
		datasets, total = h.catalog.GetAll(r.Context(), page, limit)
	}

	response := models.DatasetListResponse{
		Data:  datasets,
		Total: total,
		Page:  page,
		Limit: limit,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode dataset listing", zap.Error(err))
	}
}

// Stats handles GET /api/datasets/stats.
func (h *DatasetsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.catalog.Stats(r.Context())
	if err := WriteJSON(w, http.StatusOK, stats); err != nil {
		h.logger.Error("Failed to encode dataset stats", zap.Error(err))
	}
}

// Search handles GET /api/datasets/search?q=.
func (h *DatasetsHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_query", "query parameter 'q' is required")
		return
	}

	page, limit := pagination(r)
	datasets, total := h.catalog.Search(r.Context(), query, page, limit)

	response := models.DatasetListResponse{
		Data:  datasets,
		Total: total,
		Page:  page,
		Limit: limit,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode search results", zap.Error(err))
	}
}

// GetByID handles GET /api/datasets/{id}.
func (h *DatasetsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	dataset, err := h.catalog.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "not_found", "Dataset not found")
			return
		}
		h.logger.Error("Failed to load dataset", zap.String("id", id), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to load dataset")
		return
	}
	if err := WriteJSON(w, http.StatusOK, dataset); err != nil {
		h.logger.Error("Failed to encode dataset", zap.Error(err))
	}
}

// Refresh handles POST /api/datasets/refresh: clears the listing cache.
func (h *DatasetsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.catalog.Refresh()
	_ = WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Datasets refreshed successfully",
	})
}
