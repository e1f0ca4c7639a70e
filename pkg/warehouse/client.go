package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/lakeview-data/marketplace-api/pkg/apperrors"
	"github.com/lakeview-data/marketplace-api/pkg/config"
)

// DefaultTimeout is the maximum time to wait for warehouse responses.
// Statement execution carries the same bound as its server-side wait timeout.
const DefaultTimeout = 30 * time.Second

// statementWaitTimeout is the server-side wait for synchronous statement
// execution. The API requires the "Ns" string form.
const statementWaitTimeout = "30s"

const (
	statementsPath  = "/api/2.0/sql/statements"
	credentialsPath = "/api/2.0/database/credentials"
	tokenPath       = "/oidc/v1/token"
)

// Column describes one result column, in result order.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// StatementResult is the shaped outcome of a successful statement.
type StatementResult struct {
	Columns []Column
	Rows    [][]any
}

// StatementError is a non-success terminal state reported by the warehouse.
type StatementError struct {
	State   string
	Message string
}

func (e *StatementError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("statement failed with state %s", e.State)
	}
	return fmt.Sprintf("statement failed with state %s: %s", e.State, e.Message)
}

// Client executes SQL statements and generates database credentials against
// the remote warehouse. A nil *Client is valid and reports itself unavailable
// from every call, so callers can treat "no client" as a normal state.
type Client struct {
	baseURL     string
	warehouseID string
	method      string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient builds an authenticated warehouse client using the resolved
// strategy. Construction fails when no host can be determined or the CLI
// profile cannot be read; callers treat a failed construction as an absent
// client, not a fatal error.
func NewClient(cfg config.WarehouseConfig, logger *zap.Logger) (*Client, error) {
	strategy := ResolveStrategy(cfg)
	host := normalizeHost(cfg.Host)

	var source oauth2.TokenSource
	switch s := strategy.(type) {
	case OAuthClientCredentials:
		if host == "" {
			return nil, apperrors.ErrWarehouseUnconfigured
		}
		cc := &clientcredentials.Config{
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
			TokenURL:     "https://" + host + tokenPath,
			Scopes:       []string{"all-apis"},
		}
		source = cc.TokenSource(context.Background())
	case AccessToken:
		if host == "" {
			return nil, apperrors.ErrWarehouseUnconfigured
		}
		source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.Token})
	case CLIProfile:
		creds, err := loadProfile(cfg.ConfigFile, s.Name)
		if err != nil {
			return nil, fmt.Errorf("load CLI profile: %w", err)
		}
		if host == "" {
			host = normalizeHost(creds.Host)
		}
		if host == "" {
			return nil, apperrors.ErrWarehouseUnconfigured
		}
		source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.Token})
	}

	httpClient := oauth2.NewClient(context.Background(), source)
	httpClient.Timeout = DefaultTimeout

	logger.Info("Warehouse client initialized",
		zap.String("host", host),
		zap.String("auth_method", strategy.Method()))

	return &Client{
		baseURL:     "https://" + host,
		warehouseID: cfg.WarehouseID,
		method:      strategy.Method(),
		httpClient:  httpClient,
		logger:      logger.Named("warehouse"),
	}, nil
}

// normalizeHost strips a scheme and trailing slash from a configured host.
func normalizeHost(host string) string {
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimSuffix(host, "/")
}

// Method returns the diagnostic name of the authentication strategy in use.
func (c *Client) Method() string {
	if c == nil {
		return "none"
	}
	return c.method
}

// Available reports whether the client was constructed.
func (c *Client) Available() bool {
	return c != nil
}

type statementRequest struct {
	Statement   string `json:"statement"`
	WarehouseID string `json:"warehouse_id"`
	WaitTimeout string `json:"wait_timeout"`
}

type statementResponse struct {
	Status struct {
		State string `json:"state"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"status"`
	Manifest *struct {
		Schema struct {
			Columns []struct {
				Name     string `json:"name"`
				TypeName string `json:"type_name"`
			} `json:"columns"`
		} `json:"schema"`
	} `json:"manifest"`
	Result *struct {
		DataArray [][]any `json:"data_array"`
	} `json:"result"`
}

// ExecuteStatement runs one SQL statement synchronously on the configured
// warehouse and shapes the result. A non-SUCCEEDED terminal state is returned
// as a *StatementError carrying the reported state and message.
func (c *Client) ExecuteStatement(ctx context.Context, statement string) (*StatementResult, error) {
	if c == nil {
		return nil, apperrors.ErrClientNotInitialized
	}
	if c.warehouseID == "" {
		return nil, fmt.Errorf("warehouse id not configured")
	}

	c.logger.Debug("Executing statement",
		zap.String("warehouse_id", c.warehouseID),
		zap.String("statement", truncate(statement, 100)))

	var resp statementResponse
	err := c.postJSON(ctx, statementsPath, statementRequest{
		Statement:   statement,
		WarehouseID: c.warehouseID,
		WaitTimeout: statementWaitTimeout,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Status.State != "SUCCEEDED" {
		stmtErr := &StatementError{State: resp.Status.State}
		if resp.Status.Error != nil {
			stmtErr.Message = resp.Status.Error.Message
		}
		return nil, stmtErr
	}

	result := &StatementResult{}
	if resp.Manifest != nil {
		for _, col := range resp.Manifest.Schema.Columns {
			result.Columns = append(result.Columns, Column{Name: col.Name, Type: col.TypeName})
		}
	}
	if resp.Result != nil {
		result.Rows = resp.Result.DataArray
	}
	return result, nil
}

type credentialRequest struct {
	RequestID     string   `json:"request_id"`
	InstanceNames []string `json:"instance_names"`
}

// GenerateDatabaseCredential requests a short-lived database credential for
// the named instance. The response shape is not guaranteed field-by-field, so
// it is returned as a raw document for the caller to probe.
func (c *Client) GenerateDatabaseCredential(ctx context.Context, instanceName string) (map[string]any, error) {
	if c == nil {
		return nil, apperrors.ErrClientNotInitialized
	}

	// A fresh request ID makes generation idempotent and traceable.
	requestID := uuid.NewString()
	c.logger.Info("Generating database credential",
		zap.String("instance_name", instanceName),
		zap.String("request_id", requestID))

	var payload map[string]any
	err := c.postJSON(ctx, credentialsPath, credentialRequest{
		RequestID:     requestID,
		InstanceNames: []string{instanceName},
	}, &payload)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// postJSON sends a JSON POST and decodes the JSON response into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("warehouse request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("warehouse returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
