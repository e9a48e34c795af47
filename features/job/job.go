package job

import (
	"errors"

	"talentsync/apps/worker/internal/worker"
)

var (
	ErrMissingJobType = errors.New("job_type is required")
	ErrUnknownJobType = errors.New("unknown job_type")
)

// Request is the body accepted by POST /jobs.
type Request struct {
	JobType     string `json:"job_type"`
	CandidateID *int64 `json:"candidate_id,omitempty"`
}

var knownTypes = map[string]bool{
	worker.JobTypeSync:           true,
	worker.JobTypeEmbeddingBatch: true,
	worker.JobTypeSingleIndex:    true,
	worker.JobTypeDeletePoint:    true,
	worker.JobTypeFullReindex:    true,
}

func (r Request) Validate() error {
	if r.JobType == "" {
		return ErrMissingJobType
	}
	if !knownTypes[r.JobType] {
		return ErrUnknownJobType
	}
	if worker.RequiresCandidate(r.JobType) && r.CandidateID == nil {
		return worker.ErrMissingCandidateID
	}
	return nil
}
