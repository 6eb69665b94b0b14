//go:build database

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) (string, string) {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)
	return host, mapped.Port()
}

// exerciseBackend runs the snapshot lifecycle against a live backend.
func exerciseBackend(t *testing.T, backend Backend, dsn string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	kv, err := Open(ctx, backend, dsn)
	require.NoError(t, err)
	store := NewSnapshotStore(kv, WithBackendLabel(string(backend)))
	defer func() { _ = store.Close() }()

	_, ok, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	want := sampleSnapshot()
	require.NoError(t, store.Save(ctx, "alice", want))
	want.ConversationsCount++
	require.NoError(t, store.Save(ctx, "alice", want))

	got, ok, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want.Ratings, got.Ratings)
	assert.Equal(t, 11, got.ConversationsCount)

	require.NoError(t, store.Reset(ctx, "alice"))
	_, ok, err = store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresBackend(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env:          map[string]string{"POSTGRES_HOST_AUTH_METHOD": "trust"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}, "5432")

	exerciseBackend(t, BackendPostgres, fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port))
}

func TestMySQLBackend(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "rapport",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(90 * time.Second),
	}, "3306")

	exerciseBackend(t, BackendMySQL, fmt.Sprintf("root:secret123@tcp(%s:%s)/rapport", host, port))
}

func TestRedisBackend(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}, "6379")

	exerciseBackend(t, BackendRedis, fmt.Sprintf("redis://%s:%s/0", host, port))
}

func TestMongoBackend(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
	}, "27017")

	exerciseBackend(t, BackendMongo, fmt.Sprintf("mongodb://%s:%s/rapport", host, port))
}
