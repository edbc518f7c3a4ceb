package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/courtwatch/internal/api/respond"
	"github.com/albapepper/courtwatch/internal/cache"
	"github.com/albapepper/courtwatch/internal/rules"
)

// eventTypesTTL is how long clients may cache the capability listing.
const eventTypesTTL = time.Hour

// eventTypeInfo is one row of the capability listing.
type eventTypeInfo struct {
	EventType rules.EventType `json:"event_type"`
	rules.Capability
}

// buildEventTypes renders the static capability table once.
func buildEventTypes() ([]byte, string) {
	list := make([]eventTypeInfo, 0, len(rules.EventTypes))
	for _, t := range rules.EventTypes {
		c, _ := rules.CapabilityFor(t)
		list = append(list, eventTypeInfo{EventType: t, Capability: c})
	}
	data, _ := json.Marshal(map[string]any{"event_types": list})
	return data, cache.ComputeETag(data)
}

// ListEventTypes returns the capability table.
// @Summary List event types
// @Description Returns every supported event type with the filters and params it honours and the feeds it is derived from.
// @Tags rules
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Success 304
// @Router /event-types [get]
func (h *Handler) ListEventTypes(w http.ResponseWriter, r *http.Request) {
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), h.eventTypesETag) {
		respond.WriteNotModified(w, h.eventTypesETag)
		return
	}
	respond.WriteJSON(w, h.eventTypes, h.eventTypesETag, eventTypesTTL)
}

// ListRules returns every rule in evaluation order.
// @Summary List rules
// @Tags rules
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /rules [get]
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	list := h.store.ListRules()
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"rules": list,
		"count": len(list),
	})
}

// GetRule returns one rule with its runtime state.
// @Summary Get rule
// @Tags rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} rules.Rule
// @Failure 404 {object} respond.ErrorResponse
// @Router /rules/{id} [get]
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.store.GetRule(chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, "get rule", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, rule)
}

// CreateRule validates and stores a new rule. Runtime state in the body is
// ignored.
// @Summary Create rule
// @Tags rules
// @Accept json
// @Produce json
// @Param rule body rules.Rule true "Rule"
// @Success 201 {object} rules.Rule
// @Failure 400 {object} respond.ErrorResponse
// @Router /rules [post]
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var in rules.Rule
	if err := decode(r, w, &in); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not a valid rule", err.Error())
		return
	}
	rule, err := h.store.CreateRule(r.Context(), in)
	if err != nil {
		h.writeStoreError(w, "create rule", err)
		return
	}
	h.logger.Info("Rule created", "rule_id", rule.ID, "event_type", rule.EventType)
	respond.WriteJSONObject(w, http.StatusCreated, rule)
}

// UpdateRule replaces a rule's authored fields.
// @Summary Replace rule
// @Tags rules
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param rule body rules.Rule true "Rule"
// @Success 200 {object} rules.Rule
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /rules/{id} [put]
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var in rules.Rule
	if err := decode(r, w, &in); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not a valid rule", err.Error())
		return
	}
	rule, err := h.store.UpdateRule(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeStoreError(w, "update rule", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, rule)
}

// DeleteRule removes a rule.
// @Summary Delete rule
// @Tags rules
// @Param id path string true "Rule ID"
// @Success 204
// @Failure 404 {object} respond.ErrorResponse
// @Router /rules/{id} [delete]
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteRule(r.Context(), id); err != nil {
		h.writeStoreError(w, "delete rule", err)
		return
	}
	h.logger.Info("Rule deleted", "rule_id", id)
	respond.WriteNoContent(w)
}

// EnableRule turns a rule on. The rule must validate.
// @Summary Enable rule
// @Tags rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} rules.Rule
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /rules/{id}/enable [post]
func (h *Handler) EnableRule(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

// DisableRule turns a rule off.
// @Summary Disable rule
// @Tags rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} rules.Rule
// @Failure 404 {object} respond.ErrorResponse
// @Router /rules/{id}/disable [post]
func (h *Handler) DisableRule(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *Handler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	rule, err := h.store.SetEnabled(r.Context(), chi.URLParam(r, "id"), enabled)
	if err != nil {
		h.writeStoreError(w, "set enabled", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, rule)
}
