package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc"

	"talentsync/apps/worker/internal/adapter/qdrant"
	"talentsync/apps/worker/internal/config"
)

type IntegrationSuite struct {
	T        *testing.T
	DB       *sql.DB
	Weaviate *weaviate.Client
	Qdrant   *grpc.ClientConn
	Redis    *redis.Client

	pgConnStr    string
	pgHost       string
	pgPort       int
	qdrantHost   string
	qdrantPort   int
	weaviateHost string
	redisURL     string

	containers []testcontainers.Container
}

func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	return &IntegrationSuite{T: t}
}

// MigrationPath is the file:// URL of the repo's migrations directory.
func MigrationPath() string {
	_, b, _, _ := runtime.Caller(0)
	return fmt.Sprintf("file://%s/../../migrations", filepath.Dir(b))
}

// Setup starts every backend the worker talks to.
func (s *IntegrationSuite) Setup() {
	s.SetupPostgres()
	s.SetupQdrant()
	s.SetupRedis()
}

func (s *IntegrationSuite) SetupPostgres() {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("talentsync_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(s.T, err)
	s.containers = append(s.containers, pgContainer)

	s.pgConnStr, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T, err)

	s.DB, err = sql.Open("postgres", s.pgConnStr)
	require.NoError(s.T, err)

	s.pgHost, err = pgContainer.Host(ctx)
	require.NoError(s.T, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(s.T, err)
	s.pgPort = port.Int()

	m, err := migrate.New(MigrationPath(), s.pgConnStr)
	require.NoError(s.T, err)
	require.NoError(s.T, m.Up())
}

func (s *IntegrationSuite) SetupQdrant() {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "qdrant/qdrant:v1.14.0",
		ExposedPorts: []string{"6333/tcp", "6334/tcp"},
		WaitingFor:   wait.ForHTTP("/readyz").WithPort("6333/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T, err)
	s.containers = append(s.containers, c)

	s.qdrantHost, err = c.Host(ctx)
	require.NoError(s.T, err)
	port, err := c.MappedPort(ctx, "6334")
	require.NoError(s.T, err)
	s.qdrantPort = port.Int()

	s.Qdrant, err = qdrant.Dial(s.qdrantHost, s.qdrantPort)
	require.NoError(s.T, err)
}

func (s *IntegrationSuite) SetupWeaviate() {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "semitechnologies/weaviate:latest",
		ExposedPorts: []string{"8080/tcp", "50051/tcp"},
		Env: map[string]string{
			"AUTHENTICATION_ANONYMOUS_ACCESS_ENABLED": "true",
			"DEFAULT_VECTORIZER_MODULE":               "none",
			"PERSISTENCE_DATA_PATH":                   "/var/lib/weaviate",
		},
		WaitingFor: wait.ForHTTP("/v1/meta").WithPort("8080/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T, err)
	s.containers = append(s.containers, c)

	host, err := c.Host(ctx)
	require.NoError(s.T, err)
	port, err := c.MappedPort(ctx, "8080")
	require.NoError(s.T, err)
	s.weaviateHost = fmt.Sprintf("%s:%s", host, port.Port())

	s.Weaviate, err = weaviate.NewClient(weaviate.Config{Host: s.weaviateHost, Scheme: "http"})
	require.NoError(s.T, err)
}

func (s *IntegrationSuite) SetupRedis() {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T, err)
	s.containers = append(s.containers, c)

	host, err := c.Host(ctx)
	require.NoError(s.T, err)
	port, err := c.MappedPort(ctx, "6379")
	require.NoError(s.T, err)
	s.redisURL = fmt.Sprintf("redis://%s:%s", host, port.Port())

	opt, err := redis.ParseURL(s.redisURL)
	require.NoError(s.T, err)
	s.Redis = redis.NewClient(opt)
}

// GetAppConfig points a worker config at the started containers. Embeddings
// go to a local Ollama that is never called unless a job runs.
func (s *IntegrationSuite) GetAppConfig() *config.Config {
	return &config.Config{
		DBHost:           s.pgHost,
		DBPort:           s.pgPort,
		DBUser:           "test",
		DBPass:           "test",
		DBName:           "talentsync_test",
		DBTimeoutSeconds: 10,
		MigrationPath:    MigrationPath(),
		RunMigrations:    true,

		QueueBackend: config.QueueRedis,
		RedisURL:     s.redisURL,
		RedisQueue:   "candidate_jobs",

		VectorBackend:        config.VectorQdrant,
		QdrantHost:           s.qdrantHost,
		QdrantPort:           s.qdrantPort,
		WeaviateHost:         s.weaviateHost,
		WeaviateScheme:       "http",
		CollectionName:       "candidates",
		VectorTimeoutSeconds: 10,

		EmbeddingProvider:       config.ProviderOllama,
		OllamaHost:              "http://localhost:11434",
		EmbeddingDimension:      3,
		EmbeddingDistance:       "Cosine",
		EmbeddingTimeoutSeconds: 5,
		EmbeddingRetryMinWait:   1,
		EmbeddingRetryMaxWait:   1,

		EnableAPI:    true,
		ServerPort:   freePortHint,
		HistoryLimit: 50,

		BootstrapRetryAttempts:     5,
		BootstrapRetryDelaySeconds: 1,
	}
}

// freePortHint keeps the smoke test off the default admin port.
const freePortHint = 18082

// ServerURL is the admin API base URL for cfg.
func ServerURL(cfg *config.Config) string {
	return "http://localhost:" + strconv.Itoa(cfg.ServerPort)
}

func (s *IntegrationSuite) Teardown() {
	ctx := context.Background()
	if s.DB != nil {
		s.DB.Close()
	}
	if s.Qdrant != nil {
		s.Qdrant.Close()
	}
	if s.Redis != nil {
		s.Redis.Close()
	}
	for i := len(s.containers) - 1; i >= 0; i-- {
		if err := s.containers[i].Terminate(ctx); err != nil {
			s.T.Logf("failed to terminate container: %v", err)
		}
	}
}
