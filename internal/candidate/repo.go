package candidate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const selectColumns = `SELECT id, COALESCE(name, ''), COALESCE(summary, ''), COALESCE(skills, ''), COALESCE(experience, ''), updated_at, last_indexed_at FROM candidates`

type PostgresRepo struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresRepo bounds every call by timeout; zero leaves the caller's deadline alone.
func NewPostgresRepo(db *sql.DB, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(s rowScanner) (*Candidate, error) {
	c := &Candidate{}
	var indexedAt sql.NullTime
	if err := s.Scan(&c.ID, &c.Name, &c.Summary, &c.Skills, &c.Experience, &c.UpdatedAt, &indexedAt); err != nil {
		return nil, err
	}
	if indexedAt.Valid {
		t := indexedAt.Time
		c.IndexedAt = &t
	}
	return c, nil
}

func (r *PostgresRepo) ListStale(ctx context.Context) ([]Candidate, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := selectColumns + ` WHERE last_indexed_at IS NULL OR updated_at > last_indexed_at ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list stale candidates: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, *c)
	}
	return candidates, rows.Err()
}

// Get returns nil, nil when no candidate has the id.
func (r *PostgresRepo) Get(ctx context.Context, id int64) (*Candidate, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	c, err := scanCandidate(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate %d: %w", id, err)
	}
	return c, nil
}

func (r *PostgresRepo) MarkIndexed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `UPDATE candidates SET last_indexed_at = NOW() WHERE id = ANY($1)`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("mark %d candidates indexed: %w", len(ids), err)
	}
	return nil
}

func (r *PostgresRepo) ResetAllIndexed(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `UPDATE candidates SET last_indexed_at = NULL`)
	if err != nil {
		return 0, fmt.Errorf("reset indexed flags: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepo) CountStale(ctx context.Context) (int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int
	query := `SELECT COUNT(*) FROM candidates WHERE last_indexed_at IS NULL OR updated_at > last_indexed_at`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}
