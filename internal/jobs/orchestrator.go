package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"veobatch/internal/domain"
	"veobatch/internal/providers/video"
)

var (
	ErrMissingCredential = fmt.Errorf("%w: credential is required", domain.ErrPrecondition)
	ErrNoPrompts         = fmt.Errorf("%w: no prompts to submit", domain.ErrPrecondition)
	ErrAlreadyRunning    = fmt.Errorf("%w: a batch is already running", domain.ErrPrecondition)
)

// Exporter saves the bytes of a completed video somewhere the user can pick
// them up. It returns the location it wrote to.
type Exporter interface {
	Export(ctx context.Context, job domain.Job, data []byte) (string, error)
}

type Options struct {
	Generator video.Generator
	Exporter  Exporter
	Events    *EventBus
	Logger    zerolog.Logger
	NewID     func() string
}

// StartRequest is one submission: a newline separated prompt blob plus the
// credential and settings the whole batch runs with.
type StartRequest struct {
	Prompts    string
	Credential string
	Settings   domain.Settings
}

// JobView is a job as presented to callers, with its display percentage.
type JobView struct {
	domain.Job
	Percent int `json:"percent"`
}

// State is a point-in-time copy of everything the presentation layer reads.
type State struct {
	Jobs          []JobView `json:"jobs"`
	Busy          bool      `json:"busy"`
	StopRequested bool      `json:"stop_requested"`
	PendingInput  string    `json:"pending_input"`
}

// Orchestrator runs submitted prompts one at a time through the generator.
// Failed and unstarted prompts are handed back through the pending-input
// buffer instead of being kept as failed jobs.
type Orchestrator struct {
	ctx       context.Context
	generator video.Generator
	exporter  Exporter
	events    *EventBus
	logger    zerolog.Logger
	newID     func() string

	mu            sync.RWMutex
	jobs          []domain.Job
	busy          bool
	stopRequested bool
	pending       string
	attempts      uint64
	active        uint64
	idle          chan struct{}
}

// NewOrchestrator builds an idle orchestrator. ctx bounds every provider call
// it makes; cancelling it behaves like a stop request at the next boundary.
func NewOrchestrator(ctx context.Context, opts Options) *Orchestrator {
	if ctx == nil {
		ctx = context.Background()
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	idle := make(chan struct{})
	close(idle)
	return &Orchestrator{
		ctx:       ctx,
		generator: opts.Generator,
		exporter:  opts.Exporter,
		events:    opts.Events,
		logger:    opts.Logger,
		newID:     newID,
		idle:      idle,
	}
}

// Start validates the request, queues one job per prompt line and runs them
// in the background. On error nothing changes.
func (o *Orchestrator) Start(req StartRequest) ([]domain.Job, error) {
	credential := strings.TrimSpace(req.Credential)
	if credential == "" {
		return nil, ErrMissingCredential
	}
	prompts := domain.ParsePrompts(req.Prompts)
	if len(prompts) == 0 {
		return nil, ErrNoPrompts
	}
	if o.generator == nil {
		return nil, fmt.Errorf("%w: no generator configured", domain.ErrPrecondition)
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return nil, ErrAlreadyRunning
	}

	group := make([]domain.Job, 0, len(prompts))
	ids := make([]string, 0, len(prompts))
	for _, prompt := range prompts {
		job := domain.NewQueuedJob(o.newID(), prompt)
		group = append(group, job)
		ids = append(ids, job.ID)
	}

	o.pending = ""
	o.busy = true
	o.stopRequested = false
	o.idle = make(chan struct{})
	o.jobs = append(append(make([]domain.Job, 0, len(group)+len(o.jobs)), group...), o.jobs...)
	o.publish(Event{Type: EventTypeBatch, JobIDs: ids, Prompts: prompts})
	o.mu.Unlock()

	o.logger.Info().Int("jobs", len(group)).Msg("jobs: batch started")

	settings := req.Settings.Normalize()
	go o.run(group, credential, settings)

	created := make([]domain.Job, len(group))
	copy(created, group)
	return created, nil
}

// RequestStop asks the running batch to stop before its next job. The job
// currently generating is left to finish. It reports whether a batch was
// running.
func (o *Orchestrator) RequestStop() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.busy {
		return false
	}
	if !o.stopRequested {
		o.stopRequested = true
		o.publish(Event{Type: EventTypeStop})
		o.logger.Info().Msg("jobs: stop requested")
	}
	return true
}

// Wait blocks until no batch is running or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.RLock()
	idle := o.idle
	o.mu.RUnlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) Busy() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.busy
}

func (o *Orchestrator) PendingInput() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pending
}

// SetPendingInput replaces the buffer with text typed by the user.
func (o *Orchestrator) SetPendingInput(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = text
}

// AppendPendingInput adds text after the trimmed buffer in one step, so
// prompts returned by the loop in the meantime are kept. It returns the new
// buffer.
func (o *Orchestrator) AppendPendingInput(text string) string {
	text = strings.TrimSpace(text)
	o.mu.Lock()
	defer o.mu.Unlock()
	if text != "" {
		o.pending = appendPrompt(o.pending, text)
	}
	return o.pending
}

// Jobs returns a copy of the batch, newest group first.
func (o *Orchestrator) Jobs() []domain.Job {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]domain.Job, len(o.jobs))
	copy(out, o.jobs)
	return out
}

func (o *Orchestrator) Job(id string) (domain.Job, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if i := o.indexOf(id); i >= 0 {
		return o.jobs[i], true
	}
	return domain.Job{}, false
}

func (o *Orchestrator) Snapshot() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	views := make([]JobView, 0, len(o.jobs))
	for _, job := range o.jobs {
		views = append(views, JobView{Job: job, Percent: domain.ProgressPercentage(job.Status, job.ProgressMessage)})
	}
	return State{
		Jobs:          views,
		Busy:          o.busy,
		StopRequested: o.stopRequested,
		PendingInput:  o.pending,
	}
}

// Events exposes the bus the orchestrator publishes to, if any.
func (o *Orchestrator) Events() *EventBus {
	return o.events
}

func (o *Orchestrator) run(group []domain.Job, credential string, settings domain.Settings) {
	var held []string
	for _, job := range group {
		if o.shouldStop() {
			break
		}
		token, ok := o.begin(job.ID)
		if !ok {
			continue
		}

		log := o.logger.With().Str("job_id", job.ID).Str("prompt", job.Prompt).Logger()
		log.Info().Msg("jobs: generating")

		result, err := o.generator.Generate(o.ctx, video.GenerateRequest{
			Prompt:      job.Prompt,
			Credential:  credential,
			AspectRatio: string(settings.AspectRatio),
			RequestID:   job.ID,
		}, func(message string) {
			o.progress(token, job.ID, message)
		})
		o.endAttempt(token)

		if err == nil && result == nil {
			err = fmt.Errorf("%w: generator returned no result", domain.ErrProviderFailure)
		}
		if err != nil {
			log.Error().Err(err).Msg("jobs: generation failed, prompt returned to input")
			if o.fail(job, err) {
				held = append(held, job.Prompt)
				break
			}
			continue
		}

		completed, ok := o.complete(job.ID, result)
		if !ok {
			continue
		}
		log.Info().Str("video_url", completed.VideoURL).Msg("jobs: completed")
		o.export(log, completed, result.Data)
	}
	o.finish(held)
}

func (o *Orchestrator) shouldStop() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stopRequested || o.ctx.Err() != nil
}

func (o *Orchestrator) begin(id string) (uint64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := o.indexOf(id)
	if i < 0 || !domain.CanTransition(o.jobs[i].Status, domain.JobStatusGenerating) {
		return 0, false
	}
	o.attempts++
	o.active = o.attempts
	o.jobs[i].Status = domain.JobStatusGenerating
	o.jobs[i].ProgressMessage = domain.ProgressInitializing
	o.publishJob(EventTypeStatus, o.jobs[i])
	return o.active, true
}

// progress applies a provider message, ignoring callbacks from any attempt
// other than the one currently running.
func (o *Orchestrator) progress(token uint64, id, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if token == 0 || token != o.active {
		return
	}
	i := o.indexOf(id)
	if i < 0 || o.jobs[i].Status != domain.JobStatusGenerating {
		return
	}
	o.jobs[i].ProgressMessage = message
	o.publishJob(EventTypeProgress, o.jobs[i])
}

func (o *Orchestrator) endAttempt(token uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == token {
		o.active = 0
	}
}

func (o *Orchestrator) complete(id string, result *video.Result) (domain.Job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := o.indexOf(id)
	if i < 0 || !domain.CanTransition(o.jobs[i].Status, domain.JobStatusCompleted) {
		return domain.Job{}, false
	}
	o.jobs[i].Status = domain.JobStatusCompleted
	o.jobs[i].ProgressMessage = domain.MessageCompleted
	o.jobs[i].VideoURL = result.VideoURL
	o.jobs[i].ThumbnailURL = result.ThumbnailURL
	o.publishJob(EventTypeStatus, o.jobs[i])
	return o.jobs[i], true
}

// fail removes the job. Its prompt goes back to the pending buffer right away
// unless the batch is stopping, in which case the caller holds it for the
// sweep and fail reports true.
func (o *Orchestrator) fail(job domain.Job, cause error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.remove(job.ID)
	o.publish(Event{Type: EventTypeRemoved, JobID: job.ID, Error: cause.Error()})

	if o.stopRequested || o.ctx.Err() != nil {
		return true
	}
	o.pending = appendPrompt(o.pending, job.Prompt)
	o.publish(Event{Type: EventTypeRequeued, JobID: job.ID, Prompts: []string{job.Prompt}})
	return false
}

func (o *Orchestrator) export(log zerolog.Logger, job domain.Job, data []byte) {
	if o.exporter == nil || len(data) == 0 {
		return
	}
	location, err := o.exporter.Export(o.ctx, job, data)
	if err != nil {
		log.Warn().Err(err).Msg("jobs: export failed")
		return
	}
	log.Debug().Str("path", location).Msg("jobs: exported")
}

// finish sweeps every still-queued job back into the pending buffer, ahead of
// whatever text is already there, and marks the orchestrator idle.
func (o *Orchestrator) finish(held []string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	returned := append([]string(nil), held...)
	kept := o.jobs[:0]
	var swept []string
	for _, job := range o.jobs {
		if job.Status == domain.JobStatusQueued {
			returned = append(returned, job.Prompt)
			swept = append(swept, job.ID)
			continue
		}
		kept = append(kept, job)
	}
	o.jobs = kept
	for _, id := range swept {
		o.publish(Event{Type: EventTypeRemoved, JobID: id})
	}
	if len(returned) > 0 {
		o.pending = prependPrompts(returned, o.pending)
		o.publish(Event{Type: EventTypeRequeued, Prompts: returned})
		o.logger.Info().Int("prompts", len(returned)).Msg("jobs: unfinished prompts returned to input")
	}

	o.busy = false
	o.stopRequested = false
	o.active = 0
	o.publish(Event{Type: EventTypeIdle})
	close(o.idle)
	o.logger.Info().Msg("jobs: batch finished")
}

func (o *Orchestrator) remove(id string) {
	if i := o.indexOf(id); i >= 0 {
		o.jobs = append(o.jobs[:i], o.jobs[i+1:]...)
	}
}

func (o *Orchestrator) indexOf(id string) int {
	for i := range o.jobs {
		if o.jobs[i].ID == id {
			return i
		}
	}
	return -1
}

func (o *Orchestrator) publish(event Event) {
	o.events.Publish(event)
}

func (o *Orchestrator) publishJob(t EventType, job domain.Job) {
	o.publish(Event{
		Type:    t,
		JobID:   job.ID,
		Status:  job.Status,
		Message: job.ProgressMessage,
		Percent: domain.ProgressPercentage(job.Status, job.ProgressMessage),
	})
}

func appendPrompt(buffer, prompt string) string {
	if trimmed := strings.TrimSpace(buffer); trimmed != "" {
		return trimmed + "\n" + prompt
	}
	return prompt
}

func prependPrompts(prompts []string, buffer string) string {
	head := domain.JoinPrompts(prompts)
	if trimmed := strings.TrimSpace(buffer); trimmed != "" {
		return head + "\n" + trimmed
	}
	return head
}

// IsAlreadyRunning reports whether err came from starting over an active batch.
func IsAlreadyRunning(err error) bool {
	return errors.Is(err, ErrAlreadyRunning)
}
