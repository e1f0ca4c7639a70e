package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lakeview-data/marketplace-api/pkg/apperrors"
	"github.com/lakeview-data/marketplace-api/pkg/models"
)

// fakeCatalog is an in-memory DatasetCatalog.
type fakeCatalog struct {
	datasets  []models.Dataset
	refreshed bool
}

func (f *fakeCatalog) page(items []models.Dataset, page, limit int) ([]models.Dataset, int) {
	total := len(items)
	start := (page - 1) * limit
	if start >= total {
		return []models.Dataset{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return items[start:end], total
}

func (f *fakeCatalog) GetAll(ctx context.Context, page, limit int) ([]models.Dataset, int) {
	return f.page(f.datasets, page, limit)
}

func (f *fakeCatalog) GetByCategory(ctx context.Context, category models.DatasetCategory, page, limit int) ([]models.Dataset, int) {
	filtered := make([]models.Dataset, 0)
	for _, ds := range f.datasets {
		if ds.Category == category {
			filtered = append(filtered, ds)
		}
	}
	return f.page(filtered, page, limit)
}

func (f *fakeCatalog) GetByID(ctx context.Context, id string) (models.Dataset, error) {
	for _, ds := range f.datasets {
		if ds.ID == id {
			return ds, nil
		}
	}
	return models.Dataset{}, apperrors.ErrNotFound
}

func (f *fakeCatalog) Search(ctx context.Context, query string, page, limit int) ([]models.Dataset, int) {
	return f.page(f.datasets, page, limit)
}

func (f *fakeCatalog) Stats(ctx context.Context) models.DatasetStatsResponse {
	return models.DatasetStatsResponse{
		TotalDatasets:  len(f.datasets),
		TotalProviders: 2,
		CategoryCounts: map[string]int{"Market Trading": 1},
	}
}

func (f *fakeCatalog) Refresh() { f.refreshed = true }

func newDatasetsServer(catalog *fakeCatalog) *httptest.Server {
	mux := http.NewServeMux()
	NewDatasetsHandler(catalog, zap.NewNop()).RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{datasets: []models.Dataset{
		{ID: "ds-1", Title: "First", Category: models.CategoryMarketTrading},
		{ID: "ds-2", Title: "Second", Category: models.CategoryCreditRisk},
		{ID: "ds-3", Title: "Third", Category: models.CategoryMarketTrading},
	}}
}

func decodeListing(t *testing.T, resp *http.Response) models.DatasetListResponse {
	t.Helper()
	defer resp.Body.Close()
	var listing models.DatasetListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	return listing
}

func TestListDatasets(t *testing.T) {
	server := newDatasetsServer(testCatalog())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/datasets")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	listing := decodeListing(t, resp)
	assert.Equal(t, 3, listing.Total)
	assert.Equal(t, 1, listing.Page)
	assert.Equal(t, 50, listing.Limit)
	assert.Len(t, listing.Data, 3)
}

func TestListDatasetsPagination(t *testing.T) {
	server := newDatasetsServer(testCatalog())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/datasets?page=2&limit=2")
	require.NoError(t, err)

	listing := decodeListing(t, resp)
	assert.Equal(t, 3, listing.Total)
	assert.Equal(t, 2, listing.Page)
	assert.Equal(t, 2, listing.Limit)
	require.Len(t, listing.Data, 1)
	assert.Equal(t, "ds-3", listing.Data[0].ID)
}

func TestListDatasetsLimitCapped(t *testing.T) {
	server := newDatasetsServer(testCatalog())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/datasets?limit=500")
	require.NoError(t, err)

	listing := decodeListing(t, resp)
	assert.Equal(t, 100, listing.Limit)
}

func TestListDatasetsByCategory(t *testing.T) {
	server := newDatasetsServer(testCatalog())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/datasets?category=MARKET_TRADING")
	require.NoError(t, err)

	listing := decodeListing(t, resp)
	assert.Equal(t, 2, listing.Total)
}

func TestListDatasetsInvalidCategory(t *testing.T) {
	server := newDatasetsServer(testCatalog())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/datasets?category=WEATHER")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "invalid_category", body["error"])
}

func TestGetDatasetByID(t *testing.T) {
	server := newDatasetsServer(testCatalog())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/datasets/ds-2")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var ds models.Dataset
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ds))
	assert.Equal(t, "Second", ds.Title)
}

func TestGetDatasetByIDNotFound(t *testing.T) {
	server := newDatasetsServer(testCatalog())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/datasets/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSearchRequiresQuery(t *testing.T) {
	server := newDatasetsServer(testCatalog())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/datasets/search")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchDatasets(t *testing.T) {
	server := newDatasetsServer(testCatalog())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/datasets/search?q=first")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	listing := decodeListing(t, resp)
	assert.Equal(t, 3, listing.Total)
}

func TestDatasetStats(t *testing.T) {
	server := newDatasetsServer(testCatalog())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/datasets/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats models.DatasetStatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 3, stats.TotalDatasets)
	assert.Equal(t, 2, stats.TotalProviders)
}

func TestRefreshDatasets(t *testing.T) {
	catalog := testCatalog()
	server := newDatasetsServer(catalog)
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/datasets/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, catalog.refreshed)
}
