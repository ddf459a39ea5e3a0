package shortlink

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/linklytics/linklytics/internal/errx"
	"github.com/linklytics/linklytics/internal/httpx"
)

// HTTPCreateLinkRequest represents the JSON request body for creating a link.
type HTTPCreateLinkRequest struct {
	LongURL     string `json:"longUrl"`
	CustomAlias string `json:"customAlias,omitempty"`
	Topic       string `json:"topic,omitempty"`
}

// CreateLinkResponse represents the JSON response for a created link.
type CreateLinkResponse struct {
	ShortURL  string `json:"shortUrl"`
	CreatedAt string `json:"createdAt"`
}

// ClickRecorder records a click against an alias. Recording must never
// fail or delay the redirect, so the method returns nothing.
type ClickRecorder interface {
	Record(alias, clientAddress, userAgent string)
}

// Handler provides HTTP handlers for link creation and redirection.
type Handler struct {
	allocator *Allocator
	resolver  *Resolver
	clicks    ClickRecorder
	logger    *slog.Logger
	baseURL   string
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Allocator *Allocator
	Resolver  *Resolver
	Clicks    ClickRecorder
	Logger    *slog.Logger
	BaseURL   string // Base URL for constructing short URLs (e.g., "https://short.ly")
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		allocator: cfg.Allocator,
		resolver:  cfg.Resolver,
		clicks:    cfg.Clicks,
		logger:    logger,
		baseURL:   cfg.BaseURL,
	}
}

// CreateLink handles POST requests to create a new short link.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.logger.With(
		"request_id", httpx.GetRequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
	)

	ownerID := httpx.GetOwnerID(ctx)
	if ownerID == "" {
		logger.WarnContext(ctx, "create without caller identity")
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "caller identity required", nil)
		return
	}

	req, err := httpx.DecodeJSON[HTTPCreateLinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request",
			"error", err.Error(),
		)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	if req.LongURL == "" {
		logger.WarnContext(ctx, "missing longUrl")
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", "longUrl is required", nil)
		return
	}

	link, err := h.allocator.Allocate(ctx, CreateLinkRequest{
		LongURL:     req.LongURL,
		CustomAlias: req.CustomAlias,
		Topic:       req.Topic,
		OwnerID:     ownerID,
	})
	if err != nil {
		h.handleCreateError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "link created successfully",
		"link_id", link.ID.String(),
		"alias", link.Alias,
		"topic", link.Topic,
		"custom_alias", link.IsCustomAlias,
	)

	httpx.WriteJSON(w, http.StatusCreated, CreateLinkResponse{
		ShortURL:  fmt.Sprintf("%s/%s", h.baseURL, link.Alias),
		CreatedAt: link.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// Redirect handles GET requests to resolve an alias and redirect to the
// target URL. A click is recorded fire-and-forget on every successful
// resolution; recording failures never reach the client.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.logger.With(
		"request_id", httpx.GetRequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
	)

	alias := r.PathValue("alias")
	if alias == "" || len(alias) > MaxAliasLength {
		logger.WarnContext(ctx, "invalid alias in path", "alias", alias)
		httpx.WriteError(w, http.StatusNotFound, "not_found", "short link doesn't exist", nil)
		return
	}

	target, err := h.resolver.Resolve(ctx, alias)
	if err != nil {
		h.handleResolveError(ctx, w, err, alias)
		return
	}

	if h.clicks != nil {
		h.clicks.Record(alias, httpx.ClientIP(r), r.UserAgent())
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// handleCreateError handles errors from Allocate.
func (h *Handler) handleCreateError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.Conflict:
		h.logger.WarnContext(ctx, "alias conflict", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "conflict",
			"Custom alias already taken", nil)

	case errx.Invalid:
		h.logger.WarnContext(ctx, "invalid link request", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)

	case errx.ResourceExhausted:
		// Operational alert: the alias space is saturated or the store
		// keeps rejecting inserts.
		h.logger.ErrorContext(ctx, "alias allocation budget exhausted", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "resource_exhausted",
			"Unable to create short link at this time. Please try again.", nil)

	case errx.Unavailable:
		h.logger.ErrorContext(ctx, "store unavailable", logAttrs...)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
			"Unable to create short link at this time. Please try again.", nil)

	default:
		h.logger.ErrorContext(ctx, "unexpected error creating link", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Internal Server Error", nil)
	}
}

// handleResolveError handles errors from Resolve.
func (h *Handler) handleResolveError(ctx context.Context, w http.ResponseWriter, err error, alias string) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
		"alias", alias,
	}

	switch kind {
	case errx.NotFound:
		h.logger.WarnContext(ctx, "alias not found", logAttrs...)
		httpx.WriteError(w, http.StatusNotFound, "not_found",
			"short link doesn't exist", nil)

	case errx.Invalid:
		h.logger.WarnContext(ctx, "invalid alias", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)

	default:
		h.logger.ErrorContext(ctx, "unexpected error resolving link", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Internal Server Error", nil)
	}
}
