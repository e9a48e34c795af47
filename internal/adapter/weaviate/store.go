package weaviate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"talentsync/apps/worker/internal/vector"
	"talentsync/apps/worker/internal/worker"
)

// candidateNamespace seeds the deterministic object ids so a re-upsert overwrites.
var candidateNamespace = uuid.MustParse("6f1c7a52-3f0e-4d8e-9b7e-2c1d5a9e4b10")

type Store struct {
	client    *weaviate.Client
	schema    vector.SchemaClient
	className string
	timeout   time.Duration
}

func NewStore(client *weaviate.Client, collection string, timeout time.Duration) *Store {
	return &Store{
		client:    client,
		schema:    vector.NewWeaviateClientAdapter(client),
		className: ClassName(collection),
		timeout:   timeout,
	}
}

// ClassName turns a collection name into a Weaviate class name, which must start upper-case.
func ClassName(collection string) string {
	if collection == "" {
		return ""
	}
	return strings.ToUpper(collection[:1]) + collection[1:]
}

// ObjectID is the Weaviate id for a candidate.
func ObjectID(candidateID int64) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(candidateNamespace, []byte(strconv.FormatInt(candidateID, 10))).String())
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// EnsureCollection creates the class. Weaviate infers the dimension from the first vector.
func (s *Store) EnsureCollection(ctx context.Context, dimension int, distance vector.Distance) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return vector.EnsureSchema(ctx, s.schema, s.className, distance)
}

func (s *Store) Upsert(ctx context.Context, points []worker.Point) error {
	if len(points) == 0 {
		return nil
	}

	objects := make([]*models.Object, len(points))
	for i, p := range points {
		objects[i] = &models.Object{
			Class: s.className,
			ID:    ObjectID(p.ID),
			Properties: map[string]interface{}{
				"candidateId": p.ID,
				"name":        p.Payload[worker.PayloadName],
				"textContent": p.Payload[worker.PayloadTextContent],
				"updatedAt":   p.Payload[worker.PayloadUpdatedAt],
			},
			Vector: models.C11yVector(p.Vector),
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("batch upsert: %w", err)
	}
	for _, r := range res {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch upsert object %s: %s", r.ID, r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	exists, err := s.schema.ClassExists(ctx, s.className)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	_, err = s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.className).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"candidateId"}).
			WithOperator(filters.Equal).
			WithValueInt(id)).
		Do(ctx)
	return err
}

// Clear drops the class; the next EnsureCollection recreates it empty.
func (s *Store) Clear(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	exists, err := s.schema.ClassExists(ctx, s.className)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return s.schema.DeleteClass(ctx, s.className)
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	exists, err := s.schema.ClassExists(ctx, s.className)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	res, err := s.client.GraphQL().Aggregate().
		WithClassName(s.className).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	agg, ok := res.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	rows, ok := agg[s.className].([]interface{})
	if !ok || len(rows) == 0 {
		return 0, nil
	}
	if row, ok := rows[0].(map[string]interface{}); ok {
		if meta, ok := row["meta"].(map[string]interface{}); ok {
			if count, ok := meta["count"].(float64); ok {
				return int64(count), nil
			}
		}
	}
	return 0, nil
}
