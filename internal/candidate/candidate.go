package candidate

import (
	"fmt"
	"time"
)

// Candidate is one profile row from the system of record.
type Candidate struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Summary    string     `json:"summary"`
	Skills     string     `json:"skills"`
	Experience string     `json:"experience"`
	UpdatedAt  time.Time  `json:"updated_at"`
	IndexedAt  *time.Time `json:"indexed_at,omitempty"`
}

// IsStale reports whether the row changed since it was last pushed to the index.
// It mirrors the WHERE clause of ListStale.
func (c Candidate) IsStale() bool {
	return c.IndexedAt == nil || c.UpdatedAt.After(*c.IndexedAt)
}

// ContextText is the embedding input and the text stored alongside the vector.
func (c Candidate) ContextText() string {
	return fmt.Sprintf("%s | %s | Skills: %s | Experience: %s", c.Name, c.Summary, c.Skills, c.Experience)
}
