package preview

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lakeview-data/marketplace-api/pkg/apperrors"
	"github.com/lakeview-data/marketplace-api/pkg/warehouse"
)

// StatementExecutor runs one SQL statement against the warehouse.
// *warehouse.Client implements it.
type StatementExecutor interface {
	ExecuteStatement(ctx context.Context, statement string) (*warehouse.StatementResult, error)
}

// TablePreviewResult is the uniform shape every preview request resolves to.
// Failures are data, not errors: a broken sample table populates Error and
// leaves the rest empty.
type TablePreviewResult struct {
	TableName    string             `json:"table_name"`
	Columns      []warehouse.Column `json:"columns"`
	Rows         []map[string]any   `json:"data"`
	RowCount     int                `json:"row_count"`
	PreviewLimit int                `json:"preview_limit"`
	Error        string             `json:"error,omitempty"`
}

// Service fetches table previews from the remote warehouse. Statement
// execution blocks on network I/O and is dispatched to the worker pool.
type Service struct {
	client StatementExecutor
	pool   *WorkerPool
	limit  int
	logger *zap.Logger
}

// NewService creates a preview service. client may be nil when the warehouse
// is unconfigured; every preview then resolves to an error-carrying result.
func NewService(client StatementExecutor, pool *WorkerPool, rowLimit int, logger *zap.Logger) *Service {
	if rowLimit <= 0 {
		rowLimit = 15
	}
	return &Service{
		client: client,
		pool:   pool,
		limit:  rowLimit,
		logger: logger.Named("preview"),
	}
}

// Limit returns the configured preview row limit.
func (s *Service) Limit() int {
	return s.limit
}

// execute dispatches one blocking statement to the worker pool.
func (s *Service) execute(ctx context.Context, statement string) (*warehouse.StatementResult, error) {
	if s.client == nil {
		return nil, apperrors.ErrClientNotInitialized
	}

	var result *warehouse.StatementResult
	err := s.pool.Do(ctx, func() error {
		var execErr error
		result, execErr = s.client.ExecuteStatement(ctx, statement)
		return execErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetTablePreview sanitizes the reference, fetches the table schema and a
// limited row sample as two sequential dispatches, and assembles the result.
// It never returns an error: any failure at any stage yields a result with
// RowCount 0, empty columns and rows, and a populated Error field.
func (s *Service) GetTablePreview(ctx context.Context, reference string) TablePreviewResult {
	tableName := SanitizeTableReference(reference)

	if !ValidTableIdentifier(tableName) {
		rejection := fmt.Errorf("%w, invalid table name format: %s", apperrors.ErrInvalidTableIdentifier, tableName)
		s.logger.Warn("Rejected table identifier",
			zap.String("reference", reference),
			zap.Error(rejection))
		return s.failure(reference, rejection.Error())
	}

	s.logger.Info("Fetching table preview", zap.String("table_name", tableName))

	// Schema first, then rows: the sequential order keeps warehouse load
	// predictable within a single request.
	if _, err := s.execute(ctx, "DESCRIBE "+tableName); err != nil {
		s.logger.Warn("Schema describe failed",
			zap.String("table_name", tableName), zap.Error(err))
		return s.failure(tableName, err.Error())
	}

	fetch := fmt.Sprintf("SELECT * FROM %s LIMIT %d", tableName, s.limit)
	result, err := s.execute(ctx, fetch)
	if err != nil {
		s.logger.Warn("Row fetch failed",
			zap.String("table_name", tableName), zap.Error(err))
		return s.failure(tableName, err.Error())
	}

	rows := shapeRows(result, s.limit)
	s.logger.Info("Table preview fetched",
		zap.String("table_name", tableName),
		zap.Int("row_count", len(rows)))

	columns := result.Columns
	if columns == nil {
		columns = []warehouse.Column{}
	}
	return TablePreviewResult{
		TableName:    tableName,
		Columns:      columns,
		Rows:         rows,
		RowCount:     len(rows),
		PreviewLimit: s.limit,
	}
}

// shapeRows converts the positional data array into mappings keyed by column
// name, preserving column order. Cells past the known schema fall back to a
// positional key.
func shapeRows(result *warehouse.StatementResult, limit int) []map[string]any {
	rows := make([]map[string]any, 0)
	for _, raw := range result.Rows {
		if len(rows) >= limit {
			break
		}
		row := make(map[string]any, len(raw))
		for i, value := range raw {
			if i < len(result.Columns) {
				row[result.Columns[i].Name] = value
			} else {
				row[fmt.Sprintf("column_%d", i)] = value
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *Service) failure(tableName, message string) TablePreviewResult {
	return TablePreviewResult{
		TableName:    tableName,
		Columns:      []warehouse.Column{},
		Rows:         []map[string]any{},
		RowCount:     0,
		PreviewLimit: s.limit,
		Error:        message,
	}
}

// TestConnection dispatches a trivial statement through the worker pool.
// Returns false on any failure or when no client was constructed; never
// returns an error.
func (s *Service) TestConnection(ctx context.Context) bool {
	if s.client == nil {
		s.logger.Warn("Warehouse client not initialized")
		return false
	}

	result, err := s.execute(ctx, "SELECT 1 AS test")
	if err != nil {
		s.logger.Warn("Warehouse connection test failed", zap.Error(err))
		return false
	}
	return result != nil && len(result.Rows) > 0
}
