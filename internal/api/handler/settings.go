package handler

import (
	"net/http"

	"github.com/albapepper/courtwatch/internal/api/respond"
	"github.com/albapepper/courtwatch/internal/rules"
)

// settingsResponse adds which channels can currently send.
type settingsResponse struct {
	rules.Settings
	Channels map[rules.Channel]bool `json:"channels"`
}

// GetSettings returns the notification settings.
// @Summary Get settings
// @Description Returns notification settings and which delivery channels are configured.
// @Tags settings
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s := h.store.Settings()
	respond.WriteJSONObject(w, http.StatusOK, settingsResponse{Settings: s, Channels: h.channels.Configured(s)})
}

// UpdateSettings replaces the notification settings.
// @Summary Update settings
// @Tags settings
// @Accept json
// @Produce json
// @Param settings body rules.Settings true "Settings"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in rules.Settings
	if err := decode(r, w, &in); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not valid settings", err.Error())
		return
	}
	s, err := h.store.UpdateSettings(r.Context(), in)
	if err != nil {
		h.writeStoreError(w, "update settings", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, settingsResponse{Settings: s, Channels: h.channels.Configured(s)})
}
