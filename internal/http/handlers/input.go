package handlers

import "net/http"

type pendingInputRequest struct {
	Text string `json:"text"`
}

func (a *App) InputPut(w http.ResponseWriter, r *http.Request) {
	var req pendingInputRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.Orchestrator.SetPendingInput(req.Text)
	a.json(w, http.StatusOK, map[string]string{"pending_input": a.Orchestrator.PendingInput()})
}
