package handlers

import (
	"net/http"
)

func (a *App) SettingsGet(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Settings.Current())
}

// SettingsPatch applies all named fields together; one rejected field rejects
// the whole request.
func (a *App) SettingsPatch(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if !a.decode(w, r, &fields) {
		return
	}
	if len(fields) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "no fields to update")
		return
	}
	updated, err := a.Settings.Apply(r.Context(), fields)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, updated)
}
