package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/TheMarco/sora-renderer/internal/domain"
)

type settingsView struct {
	Theme        string `json:"theme"`
	PollingMs    int    `json:"polling_ms"`
	AutoDownload bool   `json:"auto_download"`
	ShowAdvanced bool   `json:"show_advanced"`
}

func (a *App) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.Settings.Get(r.Context())
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, settingsView{
		Theme:        settings.Theme,
		PollingMs:    settings.PollingMs,
		AutoDownload: settings.AutoDownload,
		ShowAdvanced: settings.ShowAdvanced,
	})
}

func (a *App) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsView
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Theme != "dark" && req.Theme != "light" {
		a.error(w, http.StatusBadRequest, "bad_request", "theme must be dark or light")
		return
	}
	if req.PollingMs < domain.DefaultPollingMs || req.PollingMs > domain.MaxPollingMs {
		a.error(w, http.StatusBadRequest, "bad_request", "polling_ms out of range")
		return
	}
	settings := &domain.Settings{
		ID:           domain.SettingsID,
		Theme:        req.Theme,
		PollingMs:    req.PollingMs,
		AutoDownload: req.AutoDownload,
		ShowAdvanced: req.ShowAdvanced,
	}
	if err := a.Settings.Put(r.Context(), settings); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, req)
}
