package constants

// JobStatus is the canonical status for rows in extract_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued    JobStatus = "QUEUED"    // waiting for a queue slot
	JobStatusRunning   JobStatus = "RUNNING"   // admitted, dispatched to a worker
	JobStatusSucceeded JobStatus = "SUCCEEDED" // text extracted and cached
	JobStatusFailed    JobStatus = "FAILED"    // terminal failure, poison entry written
	JobStatusTimedOut  JobStatus = "TIMED_OUT" // worker missed its deadline and was destroyed
)

// Terminal reports whether no further transitions are expected.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusTimedOut:
		return true
	}
	return false
}
