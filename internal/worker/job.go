package worker

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedJob           = errors.New("malformed job payload")
	ErrMissingCandidateID     = errors.New("missing required field: candidate_id")
	ErrEmbeddingCountMismatch = errors.New("embedding count does not match input count")
)

// IsTerminal reports whether err came from the job itself rather than a collaborator.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrMalformedJob) || errors.Is(err, ErrMissingCandidateID)
}

type Kind int

const (
	KindUnknown Kind = iota
	KindSyncAll
	KindEmbeddingBatch
	KindSingleIndex
	KindDeletePoint
	KindFullReindex
)

func (k Kind) String() string {
	switch k {
	case KindSyncAll:
		return "SyncAll"
	case KindEmbeddingBatch:
		return "EmbeddingBatch"
	case KindSingleIndex:
		return "SingleIndex"
	case KindDeletePoint:
		return "DeletePoint"
	case KindFullReindex:
		return "FullReindex"
	default:
		return "Unknown"
	}
}

// Job is a decoded JobMessage. Type keeps the producer's string so an
// unrecognised kind can still be reported.
type Job struct {
	Kind        Kind
	Type        string
	CandidateID int64
	RequestedBy string
	Timestamp   string
}

func kindOf(jobType string) Kind {
	switch jobType {
	case JobTypeSync:
		return KindSyncAll
	case JobTypeEmbeddingBatch:
		return KindEmbeddingBatch
	case JobTypeSingleIndex:
		return KindSingleIndex
	case JobTypeDeletePoint:
		return KindDeletePoint
	case JobTypeFullReindex:
		return KindFullReindex
	default:
		return KindUnknown
	}
}

// wireJob tells an absent job_type apart from an empty one.
type wireJob struct {
	JobType     *string `json:"job_type"`
	CandidateID *int64  `json:"candidate_id"`
	RequestedBy string  `json:"requested_by"`
	Timestamp   string  `json:"timestamp"`
}

// DecodeJob parses one queue payload. A missing job_type is malformed; any
// string, empty included, decodes, and unrecognised ones become KindUnknown.
func DecodeJob(payload []byte) (Job, error) {
	var msg wireJob
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	if msg.JobType == nil {
		return Job{}, fmt.Errorf("%w: job_type is missing", ErrMalformedJob)
	}

	job := Job{
		Kind:        kindOf(*msg.JobType),
		Type:        *msg.JobType,
		RequestedBy: msg.RequestedBy,
		Timestamp:   msg.Timestamp,
	}

	if job.Kind == KindSingleIndex || job.Kind == KindDeletePoint {
		if msg.CandidateID == nil {
			return job, fmt.Errorf("%s: %w", job.Type, ErrMissingCandidateID)
		}
		job.CandidateID = *msg.CandidateID
	}
	return job, nil
}
