package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrKriegler/go-brokerage/internal/core"
	"github.com/MrKriegler/go-brokerage/internal/files"
	"github.com/MrKriegler/go-brokerage/pkg/problem"
)

// writeError maps core errors onto problem responses. Core messages name the
// failed precondition, so they are safe to return as the detail.
func writeError(r *http.Request, log *slog.Logger, w http.ResponseWriter, err error) {
	ctx := r.Context()
	p := problem.Problem{Detail: err.Error(), Instance: r.URL.Path}

	var verr *core.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		log.WarnContext(ctx, "validation failed", "err", err)
		p.Status, p.Title, p.Field = http.StatusBadRequest, "Validation Error", verr.Field

	case errors.Is(err, core.ErrValidation):
		log.WarnContext(ctx, "validation failed", "err", err)
		p.Status, p.Title = http.StatusBadRequest, "Validation Error"

	case errors.Is(err, core.ErrUnauthorized):
		log.WarnContext(ctx, "unauthenticated request", "err", err)
		p.Status, p.Title = http.StatusUnauthorized, "Unauthorized"

	case errors.Is(err, core.ErrPermissionDenied):
		log.WarnContext(ctx, "permission denied", "err", err)
		p.Status, p.Title = http.StatusForbidden, "Forbidden"

	case errors.Is(err, core.ErrNotFound):
		log.WarnContext(ctx, "resource not found", "err", err)
		p.Status, p.Title = http.StatusNotFound, "Not Found"

	case errors.Is(err, core.ErrOfferExpired):
		log.InfoContext(ctx, "offer expired", "err", err)
		p.Status, p.Title = http.StatusGone, "Offer Expired"

	case errors.Is(err, core.ErrConsentRequired):
		log.WarnContext(ctx, "consent missing", "err", err)
		p.Status, p.Title = http.StatusUnprocessableEntity, "Consent Required"

	case errors.Is(err, core.ErrInvalidState):
		log.WarnContext(ctx, "invalid state transition", "err", err)
		p.Status, p.Title = http.StatusConflict, "Invalid State"

	case errors.Is(err, core.ErrConflict):
		log.WarnContext(ctx, "resource conflict", "err", err)
		p.Status, p.Title = http.StatusConflict, "Conflict"

	case errors.As(err, &tooLarge):
		log.WarnContext(ctx, "request too large", "err", err)
		p.Status, p.Title = http.StatusRequestEntityTooLarge, "Request Too Large"

	case errors.Is(err, files.ErrStorageDisabled):
		log.ErrorContext(ctx, "document storage unavailable", "err", err)
		p.Status, p.Title = http.StatusServiceUnavailable, "Storage Unavailable"

	case errors.Is(err, context.DeadlineExceeded):
		log.ErrorContext(ctx, "operation timeout", "err", err)
		p.Status, p.Title, p.Detail = http.StatusGatewayTimeout, "Timeout", "Operation took too long."

	default:
		log.ErrorContext(ctx, "internal server error", "err", err)
		p.Status, p.Title, p.Detail = http.StatusInternalServerError, "Internal Server Error", "Unexpected error."
	}

	problem.WriteProblem(w, p)
}
