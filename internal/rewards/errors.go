package rewards

import "errors"

// Error kinds of the reconciliation workflow. Callers match them with
// errors.Is; the wrapped text is safe to show to an operator.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrServerMisconfigured = errors.New("server configuration error")
	ErrNotFound            = errors.New("click not found")
	ErrConflict            = errors.New("click already reconciled")
	ErrUpstream            = errors.New("upstream failure")
)
