package handlers

import (
	"net/http"
	"strconv"
)

// Events returns orchestrator events newer than ?since=.
func (a *App) Events(w http.ResponseWriter, r *http.Request) {
	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "since must be a non-negative integer")
			return
		}
		since = v
	}
	bus := a.Orchestrator.Events()
	a.json(w, http.StatusOK, map[string]any{
		"events":   bus.Since(since),
		"last_seq": bus.LastSeq(),
	})
}
