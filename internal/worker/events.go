package worker

const (
	JobTypeSync           = "etl_sync"
	JobTypeEmbeddingBatch = "embedding_batch"
	JobTypeSingleIndex    = "single_index"
	JobTypeDeletePoint    = "delete_point"
	JobTypeFullReindex    = "full_reindex"
)

// JobMessage is the queue payload shared by producers and the consumer.
type JobMessage struct {
	JobType     string `json:"job_type"`
	CandidateID *int64 `json:"candidate_id,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// RequiresCandidate reports whether jobType targets a single candidate.
func RequiresCandidate(jobType string) bool {
	return jobType == JobTypeSingleIndex || jobType == JobTypeDeletePoint
}
