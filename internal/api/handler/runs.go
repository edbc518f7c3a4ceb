package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/albapepper/courtwatch/internal/api/respond"
	"github.com/albapepper/courtwatch/internal/notifications"
	"github.com/albapepper/courtwatch/internal/rules"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// TriggerRun runs the pipeline now and returns the result. By default the
// run is forced and bypasses dedup; force=false keeps dedup.
// @Summary Run now
// @Description Runs the notification pipeline once. Returns 409 if a run is already in progress.
// @Tags runs
// @Produce json
// @Param force query bool false "Bypass dedup (default true)"
// @Success 200 {object} rules.RunResult
// @Failure 409 {object} respond.ErrorResponse
// @Router /runs [post]
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	mode := rules.ModeManual
	if force, err := strconv.ParseBool(r.URL.Query().Get("force")); err == nil && !force {
		mode = rules.ModeScheduled
	}

	// A client hanging up does not abort a run that may be mid-dispatch.
	result, err := h.engine.Run(context.WithoutCancel(r.Context()), mode)
	switch {
	case errors.Is(err, notifications.ErrRunInProgress):
		respond.WriteError(w, http.StatusConflict, "RUN_IN_PROGRESS", "A notification run is already in progress")
		return
	case err != nil:
		h.logger.Error("manual run failed", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "RUN_FAILED", "Notification run could not start")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, result)
}

// RunStatus reports the phase of the run in flight.
// @Summary Run status
// @Tags runs
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /runs/status [get]
func (h *Handler) RunStatus(w http.ResponseWriter, r *http.Request) {
	phase := h.engine.Phase()
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"phase":   phase,
		"running": phase != rules.PhaseIdle,
	})
}

// GetHistory returns recent runs, newest first.
// @Summary Run history
// @Tags runs
// @Produce json
// @Param limit query int false "Max entries (default 20, max 100)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /history [get]
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	runs := h.store.History(limit)
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// ClearHistory deletes all run history.
// @Summary Clear history
// @Tags runs
// @Success 204
// @Router /history [delete]
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearHistory(r.Context()); err != nil {
		h.writeStoreError(w, "clear history", err)
		return
	}
	h.logger.Info("History cleared")
	respond.WriteNoContent(w)
}

type testDeliveryRequest struct {
	Channel rules.Channel `json:"channel"`
}

// TestDelivery sends a test message on one channel.
// @Summary Test delivery
// @Tags runs
// @Accept json
// @Produce json
// @Param request body testDeliveryRequest true "Channel to test"
// @Success 200 {object} rules.ChannelResult
// @Failure 400 {object} respond.ErrorResponse
// @Router /test-delivery [post]
func (h *Handler) TestDelivery(w http.ResponseWriter, r *http.Request) {
	var in testDeliveryRequest
	if err := decode(r, w, &in); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be {\"channel\": ...}", err.Error())
		return
	}
	res, err := h.engine.TestDelivery(r.Context(), in.Channel)
	if err != nil {
		respond.WriteValidation(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, res)
}
