package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"veobatch/internal/domain"
	"veobatch/internal/jobs"
	"veobatch/internal/providers/prompt"
	"veobatch/internal/providers/video"
	"veobatch/internal/settings"
)

type stubGenerator struct {
	fail map[string]bool
}

func (s stubGenerator) Generate(ctx context.Context, req video.GenerateRequest, onProgress video.ProgressFunc) (*video.Result, error) {
	onProgress(domain.ProgressSubmitting)
	if s.fail[req.Prompt] {
		return nil, errors.New("rejected")
	}
	return &video.Result{VideoURL: "/static/videos/" + req.RequestID + ".mp4", ThumbnailURL: "data:,", Data: []byte("x")}, nil
}

type stubArchiver struct {
	ids []string
	err error
}

func (s *stubArchiver) Archive(ctx context.Context, ids []string) ([]byte, error) {
	s.ids = ids
	if s.err != nil {
		return nil, s.err
	}
	return []byte("PK"), nil
}

type stubIdeas struct {
	results []prompt.IdeaResult
	err     error
	got     prompt.IdeaRequest
}

func (s *stubIdeas) Generate(ctx context.Context, req prompt.IdeaRequest) ([]prompt.IdeaResult, error) {
	s.got = req
	return s.results, s.err
}

func newTestApp(t *testing.T, gen video.Generator) *App {
	t.Helper()
	return &App{
		Logger: zerolog.Nop(),
		Orchestrator: jobs.NewOrchestrator(context.Background(), jobs.Options{
			Generator: gen,
			Events:    jobs.NewEventBus(50),
			Logger:    zerolog.Nop(),
		}),
		Settings: settings.NewStore(settings.NewMemoryKV(), zerolog.Nop()),
		Credential: func(context.Context) (string, error) {
			return "", nil
		},
	}
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func waitIdle(t *testing.T, app *App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Orchestrator.Wait(ctx); err != nil {
		t.Fatalf("orchestrator still busy: %v", err)
	}
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rr.Body.String())
	}
	return body.Error.Code
}

func TestJobsStart(t *testing.T) {
	testCases := []struct {
		name       string
		body       map[string]any
		fallback   string
		wantStatus int
		wantJobs   int
		wantCode   string
	}{{
		name:       "success",
		body:       map[string]any{"prompts": "cat\n\nin space", "api_key": "key"},
		wantStatus: http.StatusAccepted,
		wantJobs:   2,
	}, {
		name:       "fallback credential",
		body:       map[string]any{"prompts": "cat"},
		fallback:   "env-key",
		wantStatus: http.StatusAccepted,
		wantJobs:   1,
	}, {
		name:       "missing credential",
		body:       map[string]any{"prompts": "cat"},
		wantStatus: http.StatusBadRequest,
		wantCode:   "bad_request",
	}, {
		name:       "blank prompts",
		body:       map[string]any{"prompts": " \n ", "api_key": "key"},
		wantStatus: http.StatusBadRequest,
		wantCode:   "bad_request",
	}, {
		name:       "unknown field",
		body:       map[string]any{"prompts": "cat", "api_key": "key", "model": "veo-3"},
		wantStatus: http.StatusBadRequest,
		wantCode:   "bad_request",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, stubGenerator{})
			fallback := tc.fallback
			app.Credential = func(context.Context) (string, error) { return fallback, nil }

			rr := doJSON(t, app.JobsStart, http.MethodPost, "/v1/jobs", tc.body)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d; body=%s", rr.Code, tc.wantStatus, rr.Body.String())
			}
			if tc.wantCode != "" {
				if code := errorCode(t, rr); code != tc.wantCode {
					t.Fatalf("error code = %q, want %q", code, tc.wantCode)
				}
				if len(app.Orchestrator.Jobs()) != 0 {
					t.Fatal("rejected request created jobs")
				}
				return
			}
			var resp startJobsResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if len(resp.Jobs) != tc.wantJobs {
				t.Fatalf("jobs = %d, want %d", len(resp.Jobs), tc.wantJobs)
			}
			waitIdle(t, app)
		})
	}
}

func TestJobsStartConflict(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	gen := blockingGenerator{release: release}
	app := newTestApp(t, gen)

	rr := doJSON(t, app.JobsStart, http.MethodPost, "/v1/jobs", map[string]any{"prompts": "one", "api_key": "k"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("first start status = %d", rr.Code)
	}
	rr = doJSON(t, app.JobsStart, http.MethodPost, "/v1/jobs", map[string]any{"prompts": "two", "api_key": "k"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("second start status = %d, want 409", rr.Code)
	}
}

type blockingGenerator struct {
	release chan struct{}
}

func (b blockingGenerator) Generate(ctx context.Context, req video.GenerateRequest, _ video.ProgressFunc) (*video.Result, error) {
	<-b.release
	return &video.Result{VideoURL: "v"}, nil
}

func TestStateAfterFailedJob(t *testing.T) {
	app := newTestApp(t, stubGenerator{fail: map[string]bool{"two": true}})
	rr := doJSON(t, app.JobsStart, http.MethodPost, "/v1/jobs", map[string]any{"prompts": "one\ntwo\nthree", "api_key": "k"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rr.Code)
	}
	waitIdle(t, app)

	rr = doJSON(t, app.State, http.MethodGet, "/v1/state", nil)
	var state struct {
		Jobs         []jobs.JobView  `json:"jobs"`
		Busy         bool            `json:"busy"`
		PendingInput string          `json:"pending_input"`
		Settings     domain.Settings `json:"settings"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Busy || state.PendingInput != "two" || len(state.Jobs) != 2 {
		t.Fatalf("state = %#v", state)
	}
	for _, job := range state.Jobs {
		if job.Percent != 100 {
			t.Fatalf("job %s percent = %d", job.Prompt, job.Percent)
		}
	}
	if state.Settings.AspectRatio != domain.AspectRatioLandscape {
		t.Fatalf("settings = %#v", state.Settings)
	}
}

func TestJobsStopWhileIdle(t *testing.T) {
	app := newTestApp(t, stubGenerator{})
	rr := doJSON(t, app.JobsStop, http.MethodPost, "/v1/jobs/stop", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"stopping":false`) {
		t.Fatalf("stop response = %d %s", rr.Code, rr.Body.String())
	}
}

func TestJobGet(t *testing.T) {
	app := newTestApp(t, stubGenerator{})
	created, err := app.Orchestrator.Start(jobs.StartRequest{Prompts: "one", Credential: "k"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitIdle(t, app)

	r := chi.NewRouter()
	r.Get("/v1/jobs/{id}", app.JobGet)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/jobs/"+created[0].ID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var view jobs.JobView
	if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ID != created[0].ID || view.Status != domain.JobStatusCompleted || view.Percent != 100 {
		t.Fatalf("view = %#v", view)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing job status = %d", rr.Code)
	}
}

func TestJobsArchive(t *testing.T) {
	app := newTestApp(t, stubGenerator{})
	archiver := &stubArchiver{}
	app.Archiver = archiver
	created, err := app.Orchestrator.Start(jobs.StartRequest{Prompts: "one\ntwo", Credential: "k"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitIdle(t, app)

	rr := doJSON(t, app.JobsArchive, http.MethodGet, "/v1/jobs/archive", nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "application/zip" {
		t.Fatalf("archive response = %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}
	if len(archiver.ids) != 2 || archiver.ids[0] != created[0].ID {
		t.Fatalf("archived ids = %#v", archiver.ids)
	}

	rr = doJSON(t, app.JobsArchive, http.MethodGet, "/v1/jobs/archive?ids=a,%20b,,", nil)
	if rr.Code != http.StatusOK || len(archiver.ids) != 2 || archiver.ids[1] != "b" {
		t.Fatalf("explicit ids = %#v (status %d)", archiver.ids, rr.Code)
	}

	archiver.err = domain.ErrNotFound
	rr = doJSON(t, app.JobsArchive, http.MethodGet, "/v1/jobs/archive?ids=zzz", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestEventsSince(t *testing.T) {
	app := newTestApp(t, stubGenerator{})
	if _, err := app.Orchestrator.Start(jobs.StartRequest{Prompts: "one", Credential: "k"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitIdle(t, app)

	rr := doJSON(t, app.Events, http.MethodGet, "/v1/events?since=1", nil)
	var resp struct {
		Events  []jobs.Event `json:"events"`
		LastSeq int64        `json:"last_seq"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Events) == 0 || resp.Events[0].Seq != 2 {
		t.Fatalf("events = %#v", resp.Events)
	}
	if resp.LastSeq != resp.Events[len(resp.Events)-1].Seq {
		t.Fatalf("last_seq = %d", resp.LastSeq)
	}

	rr = doJSON(t, app.Events, http.MethodGet, "/v1/events?since=-4", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestInputPut(t *testing.T) {
	app := newTestApp(t, stubGenerator{})
	rr := doJSON(t, app.InputPut, http.MethodPut, "/v1/input", map[string]any{"text": "draft"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := app.Orchestrator.PendingInput(); got != "draft" {
		t.Fatalf("PendingInput = %q", got)
	}
}

func TestSettingsPatch(t *testing.T) {
	testCases := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantRatio  domain.AspectRatio
	}{
		{name: "portrait", body: map[string]any{"aspect_ratio": "9:16"}, wantStatus: http.StatusOK, wantRatio: domain.AspectRatioPortrait},
		{name: "invalid ratio", body: map[string]any{"aspect_ratio": "4:3"}, wantStatus: http.StatusBadRequest, wantRatio: domain.AspectRatioLandscape},
		{name: "unknown field", body: map[string]any{"resolution": "1080p"}, wantStatus: http.StatusBadRequest, wantRatio: domain.AspectRatioLandscape},
		{name: "valid with unknown field", body: map[string]any{"aspect_ratio": "9:16", "bogus": "x"}, wantStatus: http.StatusBadRequest, wantRatio: domain.AspectRatioLandscape},
		{name: "valid with invalid field", body: map[string]any{"aspectRatio": "9:16", "aspect_ratio": "4:3"}, wantStatus: http.StatusBadRequest, wantRatio: domain.AspectRatioLandscape},
		{name: "empty", body: map[string]any{}, wantStatus: http.StatusBadRequest, wantRatio: domain.AspectRatioLandscape},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, stubGenerator{})
			rr := doJSON(t, app.SettingsPatch, http.MethodPatch, "/v1/settings", tc.body)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d; body=%s", rr.Code, tc.wantStatus, rr.Body.String())
			}
			if got := app.Settings.Current().AspectRatio; got != tc.wantRatio {
				t.Fatalf("aspect ratio = %q, want %q", got, tc.wantRatio)
			}
		})
	}
}

func TestSettingsGet(t *testing.T) {
	app := newTestApp(t, stubGenerator{})
	rr := doJSON(t, app.SettingsGet, http.MethodGet, "/v1/settings", nil)
	if strings.TrimSpace(rr.Body.String()) != `{"aspectRatio":"16:9"}` {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestPromptIdeas(t *testing.T) {
	app := newTestApp(t, stubGenerator{})
	ideas := &stubIdeas{results: []prompt.IdeaResult{{Idea: "cat", Prompts: []string{"a cat at dawn", "a cat at dusk"}}}}
	app.Ideas = ideas
	app.Orchestrator.SetPendingInput("existing ")

	rr := doJSON(t, app.PromptIdeas, http.MethodPost, "/v1/prompts/ideas", map[string]any{
		"ideas": "cat", "count": 2, "api_key": "k", "append_to_input": true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body=%s", rr.Code, rr.Body.String())
	}
	if ideas.got.Count != 2 || ideas.got.Credential != "k" {
		t.Fatalf("request = %#v", ideas.got)
	}
	if got := app.Orchestrator.PendingInput(); got != "existing\na cat at dawn\na cat at dusk" {
		t.Fatalf("PendingInput = %q", got)
	}

	ideas.results = nil
	ideas.err = domain.ErrProviderFailure
	rr = doJSON(t, app.PromptIdeas, http.MethodPost, "/v1/prompts/ideas", map[string]any{"ideas": "cat", "api_key": "k"})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
	if code := errorCode(t, rr); code != "provider_error" {
		t.Fatalf("code = %q", code)
	}
}

func TestPromptIdeasKeepsPartialResults(t *testing.T) {
	app := newTestApp(t, stubGenerator{})
	app.Ideas = &stubIdeas{
		results: []prompt.IdeaResult{{Idea: "cat", Prompts: []string{"a cat at dawn"}}},
		err:     fmt.Errorf("%w: quota exceeded", domain.ErrProviderFailure),
	}
	app.Orchestrator.SetPendingInput("existing")

	rr := doJSON(t, app.PromptIdeas, http.MethodPost, "/v1/prompts/ideas", map[string]any{
		"ideas": "cat\ndog", "api_key": "k", "append_to_input": true,
	})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502; body=%s", rr.Code, rr.Body.String())
	}
	var body struct {
		Results []prompt.IdeaResult `json:"results"`
		Prompts string              `json:"prompts"`
		Error   errorDetail         `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Results) != 1 || body.Prompts != "a cat at dawn" {
		t.Fatalf("partial results = %#v", body)
	}
	if body.Error.Code != "provider_error" || !strings.Contains(body.Error.Message, "quota exceeded") {
		t.Fatalf("error = %#v", body.Error)
	}
	if got := app.Orchestrator.PendingInput(); got != "existing" {
		t.Fatalf("PendingInput = %q, failed request must not append", got)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, stubGenerator{})
	rr := doJSON(t, app.Health, http.MethodGet, "/v1/healthz", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("health = %d %s", rr.Code, rr.Body.String())
	}
}
