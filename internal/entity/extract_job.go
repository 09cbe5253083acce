package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/text-extractor/constants"
)

// ExtractJob represents one dispatched extraction for data transfer between layers.
type ExtractJob struct {
	ID         uuid.UUID           `json:"id"`
	Class      string              `json:"class"`
	SourcePath string              `json:"source_path"`
	Languages  []string            `json:"languages"`
	Status     constants.JobStatus `json:"status"`
	Error      string              `json:"error,omitempty"`
	WorkerID   string              `json:"worker_id,omitempty"`
	TextLength int                 `json:"text_length"`
	QueuedAt   time.Time           `json:"queued_at"`
	StartedAt  *time.Time          `json:"started_at,omitempty"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

// NewExtractJob returns a job in the QUEUED state.
func NewExtractJob(class, sourcePath string, languages []string) *ExtractJob {
	return &ExtractJob{
		ID:         uuid.New(),
		Class:      class,
		SourcePath: sourcePath,
		Languages:  languages,
		Status:     constants.JobStatusQueued,
		QueuedAt:   time.Now().UTC(),
	}
}

// Start moves the job to RUNNING.
func (j *ExtractJob) Start() {
	now := time.Now().UTC()
	j.Status = constants.JobStatusRunning
	j.StartedAt = &now
}

// Finish settles the job. A terminal status is never overwritten.
func (j *ExtractJob) Finish(status constants.JobStatus, textLen int, errMsg string) {
	if j.Status.Terminal() {
		return
	}
	now := time.Now().UTC()
	j.Status = status
	j.TextLength = textLen
	j.Error = errMsg
	j.FinishedAt = &now
}

// Duration is the running time of a finished job, zero otherwise.
func (j *ExtractJob) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}
