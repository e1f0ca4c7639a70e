package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lakeview-data/marketplace-api/pkg/config"
	"github.com/lakeview-data/marketplace-api/pkg/preview"
	"github.com/lakeview-data/marketplace-api/pkg/warehouse"
)

// fakePreviewer returns a canned result and records the references it saw.
type fakePreviewer struct {
	result     preview.TablePreviewResult
	connected  bool
	references []string
}

func (f *fakePreviewer) GetTablePreview(ctx context.Context, reference string) preview.TablePreviewResult {
	f.references = append(f.references, reference)
	return f.result
}

func (f *fakePreviewer) TestConnection(ctx context.Context) bool { return f.connected }

func (f *fakePreviewer) Limit() int { return 15 }

func newPreviewServer(svc *fakePreviewer, method string) *httptest.Server {
	cfg := config.WarehouseConfig{
		Host:        "workspace.cloud.example.com",
		WarehouseID: "wh-123",
		CLIProfile:  "DEFAULT",
	}
	mux := http.NewServeMux()
	NewPreviewHandler(svc, cfg, method, zap.NewNop()).RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

func getPreview(t *testing.T, server *httptest.Server, reference string) (*http.Response, preview.TablePreviewResult) {
	t.Helper()
	resp, err := http.Get(server.URL + "/api/preview?table_reference=" + url.QueryEscape(reference))
	require.NoError(t, err)
	defer resp.Body.Close()

	var result preview.TablePreviewResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return resp, result
}

func TestPreviewRequiresTableReference(t *testing.T) {
	server := newPreviewServer(&fakePreviewer{}, "access_token")
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/preview")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreviewReturnsResult(t *testing.T) {
	svc := &fakePreviewer{result: preview.TablePreviewResult{
		TableName: "solacc_var.market_data",
		Columns: []warehouse.Column{
			{Name: "symbol", Type: "STRING"},
		},
		Rows:         []map[string]any{{"symbol": "AAPL"}},
		RowCount:     1,
		PreviewLimit: 15,
	}}
	server := newPreviewServer(svc, "access_token")
	defer server.Close()

	resp, result := getPreview(t, server, "sp500-sample")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "solacc_var.market_data", result.TableName)
	assert.Equal(t, 1, result.RowCount)
	assert.Equal(t, []string{"sp500-sample"}, svc.references)
}

func TestPreviewFailureIsDataNotError(t *testing.T) {
	svc := &fakePreviewer{result: preview.TablePreviewResult{
		TableName:    "solacc_var.broken",
		Columns:      []warehouse.Column{},
		Rows:         []map[string]any{},
		PreviewLimit: 15,
		Error:        "TABLE_OR_VIEW_NOT_FOUND",
	}}
	server := newPreviewServer(svc, "access_token")
	defer server.Close()

	resp, result := getPreview(t, server, "solacc_var.broken")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "TABLE_OR_VIEW_NOT_FOUND", result.Error)
	assert.Equal(t, 0, result.RowCount)
}

func TestPreviewScreensInjectionPatterns(t *testing.T) {
	svc := &fakePreviewer{}
	server := newPreviewServer(svc, "access_token")
	defer server.Close()

	resp, result := getPreview(t, server, "x' OR '1'='1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "invalid table reference", result.Error)
	// The reference never reaches the preview service.
	assert.Empty(t, svc.references)
}

func TestPreviewTestConnected(t *testing.T) {
	server := newPreviewServer(&fakePreviewer{connected: true}, "cli_profile")
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/preview/test")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body PreviewTestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "connected", body.Status)
	assert.Equal(t, "sql-warehouse", body.Service)
	assert.Equal(t, "workspace.cloud.example.com", body.ServerHostname)
	assert.Equal(t, "/sql/1.0/warehouses/wh-123", body.HTTPPath)
	assert.Equal(t, 15, body.PreviewLimit)
	assert.Equal(t, "cli_profile", body.AuthMethod)
	assert.True(t, body.UsingCLIProfile)
}

func TestPreviewTestDisconnected(t *testing.T) {
	server := newPreviewServer(&fakePreviewer{connected: false}, "access_token")
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/preview/test")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body PreviewTestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "disconnected", body.Status)
	assert.False(t, body.UsingCLIProfile)
}
