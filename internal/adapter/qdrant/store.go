package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"talentsync/apps/worker/internal/vector"
	"talentsync/apps/worker/internal/worker"
)

type Store struct {
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
	collection  string
	timeout     time.Duration
}

// Dial opens a plaintext gRPC connection to Qdrant. The connection is lazy.
func Dial(host string, port int) (*grpc.ClientConn, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s: %w", addr, err)
	}
	return conn, nil
}

func NewStore(conn grpc.ClientConnInterface, collection string, timeout time.Duration) *Store {
	return NewStoreWithClients(qdrantclient.NewCollectionsClient(conn), qdrantclient.NewPointsClient(conn), collection, timeout)
}

func NewStoreWithClients(collections qdrantclient.CollectionsClient, points qdrantclient.PointsClient, collection string, timeout time.Duration) *Store {
	return &Store{collections: collections, points: points, collection: collection, timeout: timeout}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func toQdrantDistance(d vector.Distance) qdrantclient.Distance {
	switch d {
	case vector.Euclid:
		return qdrantclient.Distance_Euclid
	case vector.Dot:
		return qdrantclient.Distance_Dot
	default:
		return qdrantclient.Distance_Cosine
	}
}

func (s *Store) exists(ctx context.Context) (bool, error) {
	res, err := s.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}
	for _, c := range res.GetCollections() {
		if c.GetName() == s.collection {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) EnsureCollection(ctx context.Context, dimension int, distance vector.Distance) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	exists, err := s.exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	slog.InfoContext(ctx, "creating qdrant collection", "collection", s.collection, "dimension", dimension, "distance", distance.String())
	_, err = s.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(dimension),
					Distance: toQdrantDistance(distance),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func pointID(id int64) (*qdrantclient.PointId, error) {
	if id < 0 {
		return nil, fmt.Errorf("qdrant point ids must be non-negative, got %d", id)
	}
	return &qdrantclient.PointId{
		PointIdOptions: &qdrantclient.PointId_Num{Num: uint64(id)},
	}, nil
}

func (s *Store) Upsert(ctx context.Context, points []worker.Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrantclient.PointStruct, 0, len(points))
	for _, p := range points {
		id, err := pointID(p.ID)
		if err != nil {
			return err
		}
		payload := make(map[string]*qdrantclient.Value, len(p.Payload))
		for k, v := range p.Payload {
			payload[k] = &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: v}}
		}
		structs = append(structs, &qdrantclient.PointStruct{
			Id: id,
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: p.Vector},
				},
			},
			Payload: payload,
		})
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	wait := true
	_, err := s.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	pid, err := pointID(id)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	wait := true
	_, err = s.points.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &qdrantclient.PointsSelector{
			PointsSelectorOneOf: &qdrantclient.PointsSelector_Points{
				Points: &qdrantclient.PointsIdsList{Ids: []*qdrantclient.PointId{pid}},
			},
		},
	})
	if status.Code(err) == codes.NotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete point: %w", err)
	}
	return nil
}

// Clear deletes every point with an empty filter and keeps the collection itself.
func (s *Store) Clear(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	exists, err := s.exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		slog.InfoContext(ctx, "collection absent, nothing to clear", "collection", s.collection)
		return nil
	}

	wait := true
	_, err = s.points.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &qdrantclient.PointsSelector{
			PointsSelectorOneOf: &qdrantclient.PointsSelector_Filter{Filter: &qdrantclient.Filter{}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	exact := true
	res, err := s.points.Count(ctx, &qdrantclient.CountPoints{CollectionName: s.collection, Exact: &exact})
	if status.Code(err) == codes.NotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int64(res.GetResult().GetCount()), nil
}
