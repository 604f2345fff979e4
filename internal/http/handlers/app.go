package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"veobatch/internal/domain"
	"veobatch/internal/jobs"
	"veobatch/internal/providers/prompt"
	"veobatch/internal/settings"
)

// Archiver bundles exported videos into a zip.
type Archiver interface {
	Archive(ctx context.Context, jobIDs []string) ([]byte, error)
}

// IdeaGenerator expands short ideas into video prompts.
type IdeaGenerator interface {
	Generate(ctx context.Context, req prompt.IdeaRequest) ([]prompt.IdeaResult, error)
}

// CredentialFunc resolves the credential used when a request carries none.
type CredentialFunc func(ctx context.Context) (string, error)

type App struct {
	Logger       zerolog.Logger
	Orchestrator *jobs.Orchestrator
	Settings     *settings.Store
	Archiver     Archiver
	Ideas        IdeaGenerator
	Credential   CredentialFunc
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// fail maps domain errors onto HTTP statuses.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobs.ErrAlreadyRunning):
		a.error(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrPrecondition),
		errors.Is(err, domain.ErrInvalidSetting),
		errors.Is(err, domain.ErrUnknownSetting):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrProviderFailure):
		a.error(w, http.StatusBadGateway, "provider_error", err.Error())
	default:
		a.Logger.Error().Err(err).Msg("http: unhandled error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

// credential prefers the key sent with the request and falls back to the
// configured one.
func (a *App) credential(ctx context.Context, supplied string) (string, error) {
	if key := strings.TrimSpace(supplied); key != "" {
		return key, nil
	}
	if a.Credential == nil {
		return "", nil
	}
	return a.Credential(ctx)
}
