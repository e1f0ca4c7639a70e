package apperrors

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrNoConnection           = errors.New("database connection not initialized")
	ErrWarehouseUnconfigured  = errors.New("warehouse host not configured")
	ErrClientNotInitialized   = errors.New("warehouse client not initialized")
	ErrInvalidTableIdentifier = errors.New("invalid table identifier")
)
