package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adeelqureshi/solana-pool-gateway/internal/cpmm"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		// Don't send response if already committed
		if c.Response().Committed {
			return
		}

		// Handle Echo HTTP errors (like 404, 400, etc.)
		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		// Handle all other errors as internal server error
		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// domainError translates pool-layer errors into an HTTP response. Execution
// failures keep their classification and logs in the details payload so the
// dashboard can explain what went wrong.
func (h *Handlers) domainError(c echo.Context, err error) error {
	var valErr *cpmm.ValidationError
	if errors.As(err, &valErr) {
		return h.err(c, http.StatusBadRequest, valErr.Error(), nil)
	}

	var execErr *cpmm.OnChainExecutionError
	if errors.As(err, &execErr) {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: execErr.Summary,
			Code:  http.StatusUnprocessableEntity,
			Details: map[string]any{
				"kind":      string(execErr.Kind),
				"signature": execErr.Signature,
				"address":   execErr.Address,
				"logs":      execErr.Logs,
			},
		})
	}

	switch {
	case errors.Is(err, cpmm.ErrNotFound):
		return h.err(c, http.StatusNotFound, "not found", nil)
	case errors.Is(err, cpmm.ErrInvalidToken), errors.Is(err, cpmm.ErrIdentityOrdering):
		return h.err(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, cpmm.ErrInsufficientLiquidity):
		return h.err(c, http.StatusUnprocessableEntity, err.Error(), nil)
	}

	var transportErr *cpmm.TransportError
	if errors.As(err, &transportErr) {
		h.Logger.WithError(err).Error("Upstream RPC failure")
		return h.err(c, http.StatusBadGateway, "upstream rpc failure", nil)
	}

	h.Logger.WithError(err).Error("Unhandled request failure")
	return h.err(c, http.StatusInternalServerError, "internal server error", nil)
}
