// Package handler provides HTTP handlers for all API endpoints.
// Handlers talk to the rule store and the notification engine directly;
// there is no service layer in between.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/albapepper/courtwatch/internal/api/respond"
	"github.com/albapepper/courtwatch/internal/cache"
	"github.com/albapepper/courtwatch/internal/config"
	"github.com/albapepper/courtwatch/internal/rules"
	"github.com/albapepper/courtwatch/internal/store"
)

// maxBodyBytes caps request bodies for rule and settings documents.
const maxBodyBytes = 1 << 20

// Store is the rule store as seen by the API.
type Store interface {
	Ping(ctx context.Context) error
	Settings() rules.Settings
	UpdateSettings(ctx context.Context, settings rules.Settings) (rules.Settings, error)
	ListRules() []rules.Rule
	GetRule(id string) (rules.Rule, error)
	CreateRule(ctx context.Context, r rules.Rule) (rules.Rule, error)
	UpdateRule(ctx context.Context, id string, r rules.Rule) (rules.Rule, error)
	DeleteRule(ctx context.Context, id string) error
	SetEnabled(ctx context.Context, id string, enabled bool) (rules.Rule, error)
	History(limit int) []rules.RunResult
	ClearHistory(ctx context.Context) error
}

// Engine runs the notification pipeline on demand.
type Engine interface {
	Run(ctx context.Context, mode rules.Mode) (*rules.RunResult, error)
	TestDelivery(ctx context.Context, channel rules.Channel) (rules.ChannelResult, error)
	Phase() rules.Phase
}

// Channels reports which delivery channels can currently send.
type Channels interface {
	Configured(settings rules.Settings) map[rules.Channel]bool
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store    Store
	engine   Engine
	channels Channels
	cache    *cache.Cache
	cfg      *config.Config
	logger   *slog.Logger

	eventTypes     []byte
	eventTypesETag string
}

// New creates a Handler with shared dependencies.
func New(st Store, engine Engine, channels Channels, c *cache.Cache, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		store:    st,
		engine:   engine,
		channels: channels,
		cache:    c,
		cfg:      cfg,
		logger:   logger,
	}
	h.eventTypes, h.eventTypesETag = buildEventTypes()
	return h
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status, and the run phase.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"name":        "Courtwatch Notification API",
		"version":     "1.0.0",
		"status":      "running",
		"docs":        "/docs",
		"environment": h.cfg.Environment,
		"store":       h.cfg.StoreBackend,
		"schedule":    h.cfg.PollSchedule,
		"phase":       h.engine.Phase(),
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckStore verifies the rule store is reachable.
// @Summary Store health check
// @Description Verifies the rule store backend (file or Postgres) is reachable.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/store [get]
func (h *Handler) HealthCheckStore(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("store health check failed", "error", err)
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"store":     "unreachable",
			"error":     "Store check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"store":     h.cfg.StoreBackend,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns tennis API response cache statistics.
// @Summary Cache health check
// @Description Returns in-memory response cache statistics (active keys, expired keys).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// decode reads a JSON body into v.
func decode(r *http.Request, w http.ResponseWriter, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// writeStoreError maps store and validation errors to responses.
func (h *Handler) writeStoreError(w http.ResponseWriter, op string, err error) {
	var verr *rules.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.WriteValidation(w, err)
	case errors.Is(err, store.ErrNotFound):
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Rule not found")
	default:
		h.logger.Error("store operation failed", "op", op, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Could not save changes")
	}
}
