package analytics

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/linklytics/linklytics/internal/errx"
	"github.com/linklytics/linklytics/internal/httpx"
)

// Handler provides HTTP handlers for the analytics read endpoints.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

// NewHandler creates a new Handler instance.
func NewHandler(aggregator *Aggregator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		aggregator: aggregator,
		logger:     logger,
	}
}

// ByAlias handles GET requests for a single alias rollup.
func (h *Handler) ByAlias(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	alias := r.PathValue("alias")
	rollup, err := h.aggregator.ForAlias(ctx, alias)
	if err != nil {
		h.handleError(ctx, w, err, "Short URL not found")
		return
	}

	writeRaw(w, rollup)
}

// ByTopic handles GET requests for a topic-scoped rollup.
func (h *Handler) ByTopic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	topic := r.PathValue("topic")
	rollup, err := h.aggregator.ForTopic(ctx, topic)
	if err != nil {
		h.handleError(ctx, w, err, "No URLs found for this topic")
		return
	}

	writeRaw(w, rollup)
}

// Overall handles GET requests for the caller's rollup across all of
// their links. The scope comes from the verified caller identity, never
// from the request.
func (h *Handler) Overall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID := httpx.GetOwnerID(ctx)
	if ownerID == "" {
		h.logger.WarnContext(ctx, "analytics request without caller identity",
			"request_id", httpx.GetRequestID(ctx),
		)
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "caller identity required", nil)
		return
	}

	rollup, err := h.aggregator.ForOwner(ctx, ownerID)
	if err != nil {
		h.handleError(ctx, w, err, "No URLs found for this user")
		return
	}

	writeRaw(w, rollup)
}

// handleError maps aggregation errors onto HTTP responses. notFoundMsg
// is the scope-specific message for an empty or unknown scope.
func (h *Handler) handleError(ctx context.Context, w http.ResponseWriter, err error, notFoundMsg string) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"request_id", httpx.GetRequestID(ctx),
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.NotFound:
		h.logger.WarnContext(ctx, "analytics scope not found", logAttrs...)
		httpx.WriteError(w, http.StatusNotFound, "not_found", notFoundMsg, nil)

	case errx.Unavailable:
		h.logger.ErrorContext(ctx, "analytics backend unavailable", logAttrs...)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
			"Unable to load analytics at this time. Please try again.", nil)

	default:
		h.logger.ErrorContext(ctx, "unexpected error computing analytics", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Internal Server Error", nil)
	}
}

// writeRaw sends an already-serialized rollup unchanged. Rollups are
// cached in serialized form, so re-encoding here would break the
// guarantee that a cache hit returns exactly what was stored.
func writeRaw(w http.ResponseWriter, rollup []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rollup)
}
