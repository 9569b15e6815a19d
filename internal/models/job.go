package models

import "time"

type JobKind string

const (
	JobGeneration JobKind = "generation"
	JobApproval   JobKind = "approval"
)

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

var jobStatusRank = map[JobStatus]int{
	JobPending:    0,
	JobProcessing: 1,
	JobCompleted:  2,
	JobFailed:     2,
}

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanAdvanceTo reports whether a job in status s may move to next.
// Staying in the same non-terminal status is allowed.
func (s JobStatus) CanAdvanceTo(next JobStatus) bool {
	cur, ok := jobStatusRank[s]
	if !ok {
		return false
	}
	nxt, ok := jobStatusRank[next]
	if !ok {
		return false
	}
	if s.Terminal() {
		return false
	}
	return nxt >= cur
}

type Job struct {
	ID         string              `json:"id"`
	Kind       JobKind             `json:"kind"`
	Status     JobStatus           `json:"status"`
	Progress   int                 `json:"progress"`
	Total      int                 `json:"total"`
	Generated  int                 `json:"generated"`
	Processed  int                 `json:"processed"`
	Questions  []CandidateQuestion `json:"questions,omitempty"`
	Error      string              `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	StartedAt  *time.Time          `json:"started_at,omitempty"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

// Clone returns a copy that shares no mutable state with j.
func (j Job) Clone() Job {
	out := j
	if j.Questions != nil {
		out.Questions = make([]CandidateQuestion, len(j.Questions))
		copy(out.Questions, j.Questions)
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

type JobAccepted struct {
	JobID   string `json:"jobId"`
	Message string `json:"message"`
}
