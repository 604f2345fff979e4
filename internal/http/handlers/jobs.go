package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"veobatch/internal/domain"
	"veobatch/internal/jobs"
)

type startJobsRequest struct {
	Prompts string `json:"prompts"`
	APIKey  string `json:"api_key"`
}

type startJobsResponse struct {
	Jobs []domain.Job `json:"jobs"`
}

func (a *App) State(w http.ResponseWriter, r *http.Request) {
	state := a.Orchestrator.Snapshot()
	a.json(w, http.StatusOK, map[string]any{
		"jobs":           state.Jobs,
		"busy":           state.Busy,
		"stop_requested": state.StopRequested,
		"pending_input":  state.PendingInput,
		"settings":       a.Settings.Current(),
		"last_seq":       a.Orchestrator.Events().LastSeq(),
	})
}

func (a *App) JobsStart(w http.ResponseWriter, r *http.Request) {
	var req startJobsRequest
	if !a.decode(w, r, &req) {
		return
	}
	credential, err := a.credential(r.Context(), req.APIKey)
	if err != nil {
		a.fail(w, err)
		return
	}
	created, err := a.Orchestrator.Start(jobs.StartRequest{
		Prompts:    req.Prompts,
		Credential: credential,
		Settings:   a.Settings.Current(),
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, startJobsResponse{Jobs: created})
}

func (a *App) JobsStop(w http.ResponseWriter, r *http.Request) {
	running := a.Orchestrator.RequestStop()
	a.json(w, http.StatusOK, map[string]bool{"stopping": running})
}

func (a *App) JobGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := a.Orchestrator.Job(id)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	a.json(w, http.StatusOK, jobs.JobView{
		Job:     job,
		Percent: domain.ProgressPercentage(job.Status, job.ProgressMessage),
	})
}

// JobsArchive zips the exported videos of the given ids, or of every
// completed job when none are named.
func (a *App) JobsArchive(w http.ResponseWriter, r *http.Request) {
	if a.Archiver == nil {
		a.error(w, http.StatusNotFound, "not_found", "export is disabled")
		return
	}
	var ids []string
	for _, part := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	if len(ids) == 0 {
		for _, job := range a.Orchestrator.Jobs() {
			if job.Status == domain.JobStatusCompleted {
				ids = append(ids, job.ID)
			}
		}
	}
	archive, err := a.Archiver.Archive(r.Context(), ids)
	if err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=veo2-batch-%d.zip", len(ids)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
