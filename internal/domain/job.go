package domain

import "fmt"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusGenerating JobStatus = "generating"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Display messages set by the orchestrator itself rather than by a provider.
const (
	MessageQueued    = "Menunggu di antrian..."
	MessageCompleted = "Selesai"
)

// Job is one prompt's generation attempt and its current status/artifacts.
type Job struct {
	ID              string    `json:"id"`
	Prompt          string    `json:"prompt"`
	Status          JobStatus `json:"status"`
	ProgressMessage string    `json:"progress_message"`
	VideoURL        string    `json:"video_url,omitempty"`
	ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// NewQueuedJob creates a job waiting for its turn in the batch.
func NewQueuedJob(id, prompt string) Job {
	return Job{
		ID:              id,
		Prompt:          prompt,
		Status:          JobStatusQueued,
		ProgressMessage: MessageQueued,
	}
}

// IsTerminal reports whether no further transition applies to the status.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusGenerating, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// UnmarshalText rejects statuses outside the known set.
func (s *JobStatus) UnmarshalText(text []byte) error {
	status := JobStatus(text)
	if !status.Valid() {
		return fmt.Errorf("job status %q: unknown", string(text))
	}
	*s = status
	return nil
}

// CanTransition enforces the job state machine edges. Removal of a job from
// the batch is not a transition and is not modelled here.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusQueued:
		return to == JobStatusGenerating
	case JobStatusGenerating:
		return to == JobStatusCompleted
	default:
		return false
	}
}
