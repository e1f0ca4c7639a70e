// Package services holds the dataset catalog service: listing, search,
// stats, and the short-lived listing cache over the database-backed source
// with a JSON file fallback.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lakeview-data/marketplace-api/pkg/apperrors"
	"github.com/lakeview-data/marketplace-api/pkg/models"
)

// listingCacheTTL is how long a loaded dataset listing is reused before the
// source is consulted again. Separate from the credential cache.
const listingCacheTTL = 5 * time.Minute

// DatabaseClient is the slice of the connection manager the service needs.
type DatabaseClient interface {
	TestConnection(ctx context.Context) bool
	Execute(ctx context.Context, query string, args ...any) ([]map[string]any, error)
}

// DatasetService loads marketplace listings from PostgreSQL, falling back to
// a bundled JSON file when the database is unreachable or empty.
type DatasetService struct {
	db           DatabaseClient
	table        string
	fallbackPath string
	logger       *zap.Logger

	mu       sync.Mutex
	cached   []models.Dataset
	cachedAt time.Time
	ttl      time.Duration
	now      func() time.Time
}

// NewDatasetService creates the dataset service. db may be nil, in which case
// every load serves the JSON fallback.
func NewDatasetService(db DatabaseClient, table, fallbackPath string, logger *zap.Logger) *DatasetService {
	return &DatasetService{
		db:           db,
		table:        table,
		fallbackPath: fallbackPath,
		logger:       logger.Named("datasets"),
		ttl:          listingCacheTTL,
		now:          time.Now,
	}
}

// datasets returns the listing, reusing the cache while fresh.
func (s *DatasetService) datasets(ctx context.Context) []models.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Sub(s.cachedAt) < s.ttl {
		return s.cached
	}

	loaded := s.loadFromDatabase(ctx)
	s.cached = loaded
	s.cachedAt = s.now()
	return loaded
}

func (s *DatasetService) loadFromDatabase(ctx context.Context) []models.Dataset {
	if s.db == nil || !s.db.TestConnection(ctx) {
		s.logger.Warn("Database unavailable, falling back to JSON file")
		return s.loadFromJSON()
	}

	rows, err := s.db.Execute(ctx, fmt.Sprintf("SELECT * FROM %s", s.table))
	if err != nil {
		s.logger.Error("Failed to load datasets from database", zap.Error(err))
		return s.loadFromJSON()
	}
	if len(rows) == 0 {
		s.logger.Warn("No datasets found in database, falling back to JSON file")
		return s.loadFromJSON()
	}

	datasets := make([]models.Dataset, 0, len(rows))
	for _, row := range rows {
		ds, err := rowToDataset(row)
		if err != nil {
			s.logger.Error("Skipping malformed dataset row",
				zap.Any("id", row["id"]), zap.Error(err))
			continue
		}
		datasets = append(datasets, ds)
	}

	s.logger.Info("Loaded datasets from database", zap.Int("count", len(datasets)))
	return datasets
}

func (s *DatasetService) loadFromJSON() []models.Dataset {
	data, err := os.ReadFile(s.fallbackPath)
	if err != nil {
		s.logger.Error("Fallback JSON file unavailable",
			zap.String("path", s.fallbackPath), zap.Error(err))
		return []models.Dataset{}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Error("Failed to parse fallback JSON", zap.Error(err))
		return []models.Dataset{}
	}

	datasets := make([]models.Dataset, 0, len(raw))
	for _, item := range raw {
		var ds models.Dataset
		if err := json.Unmarshal(item, &ds); err != nil {
			s.logger.Error("Skipping malformed fallback dataset", zap.Error(err))
			continue
		}
		ds.Category = models.CanonicalCategory(string(ds.Category))
		ds.Frequency = models.CanonicalFrequency(string(ds.Frequency))
		ds.PricingModel = models.CanonicalPricingModel(string(ds.PricingModel))
		ds.AccessLevel = models.CanonicalAccessLevel(string(ds.AccessLevel))
		datasets = append(datasets, ds)
	}

	s.logger.Info("Loaded datasets from JSON fallback", zap.Int("count", len(datasets)))
	return datasets
}

// paginate applies the page/limit window: page p, limit l returns
// min(l, max(0, N-(p-1)*l)) items.
func paginate(datasets []models.Dataset, page, limit int) []models.Dataset {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(datasets) {
		return []models.Dataset{}
	}
	end := start + limit
	if end > len(datasets) {
		end = len(datasets)
	}
	return datasets[start:end]
}

// GetAll returns one page of the listing and the unpaginated total.
func (s *DatasetService) GetAll(ctx context.Context, page, limit int) ([]models.Dataset, int) {
	all := s.datasets(ctx)
	return paginate(all, page, limit), len(all)
}

// GetByCategory returns one page of datasets in the given category.
func (s *DatasetService) GetByCategory(ctx context.Context, category models.DatasetCategory, page, limit int) ([]models.Dataset, int) {
	all := s.datasets(ctx)
	filtered := make([]models.Dataset, 0)
	for _, ds := range all {
		if ds.Category == category {
			filtered = append(filtered, ds)
		}
	}
	return paginate(filtered, page, limit), len(filtered)
}

// GetByID returns the dataset with the given id, or apperrors.ErrNotFound.
func (s *DatasetService) GetByID(ctx context.Context, id string) (models.Dataset, error) {
	for _, ds := range s.datasets(ctx) {
		if ds.ID == id {
			return ds, nil
		}
	}
	return models.Dataset{}, fmt.Errorf("dataset %s: %w", id, apperrors.ErrNotFound)
}

// Search returns datasets matching the query: a case-insensitive substring
// match across title, description, provider name, and tags.
func (s *DatasetService) Search(ctx context.Context, query string, page, limit int) ([]models.Dataset, int) {
	q := strings.ToLower(query)
	filtered := make([]models.Dataset, 0)
	for _, ds := range s.datasets(ctx) {
		if matchesQuery(ds, q) {
			filtered = append(filtered, ds)
		}
	}
	return paginate(filtered, page, limit), len(filtered)
}

func matchesQuery(ds models.Dataset, q string) bool {
	if strings.Contains(strings.ToLower(ds.Title), q) ||
		strings.Contains(strings.ToLower(ds.Description), q) ||
		strings.Contains(strings.ToLower(ds.Provider.Name), q) {
		return true
	}
	for _, tag := range ds.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// Stats summarizes the catalog: totals and per-category counts.
func (s *DatasetService) Stats(ctx context.Context) models.DatasetStatsResponse {
	all := s.datasets(ctx)
	counts := make(map[string]int)
	providers := make(map[string]struct{})
	for _, ds := range all {
		counts[string(ds.Category)]++
		providers[ds.Provider.Name] = struct{}{}
	}
	return models.DatasetStatsResponse{
		TotalDatasets:  len(all),
		TotalProviders: len(providers),
		CategoryCounts: counts,
	}
}

// Refresh clears the listing cache so the next read reloads from source.
func (s *DatasetService) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("Refreshing dataset listing cache")
	s.cached = nil
	s.cachedAt = time.Time{}
}
