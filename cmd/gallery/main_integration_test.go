//go:build integration

package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/boba-gallery/internal/testutil"
	"github.com/Sternrassler/boba-gallery/pkg/cache"
	"github.com/Sternrassler/boba-gallery/pkg/config"
)

// setupTestRedis starts a Redis container and returns its redis:// URL.
func setupTestRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() { redisC.Terminate(context.Background()) })

	endpoint, err := redisC.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get container endpoint: %v", err)
	}
	return "redis://" + endpoint + "/0"
}

func TestIntegration_RunBuildWithRedisCache(t *testing.T) {
	redisURL := setupTestRedis(t)

	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetRecords(
		testutil.NewRecord("rec1", "One", "Approved", "EVT", "https://dl.airtable.com/one.png"),
		testutil.NewRecord("rec2", "Two", "Approved", "EVT", "https://dl.airtable.com/two.png"),
	)

	cfg := buildConfig(t, mock, "secret")
	cfg.Cache.Backend = config.BackendRedis
	cfg.Cache.RedisURL = redisURL

	ctx := context.Background()
	if _, err := runBuild(ctx, cfg, zerolog.Nop()); err != nil {
		t.Fatalf("runBuild() failed: %v", err)
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		t.Fatalf("openStore() failed: %v", err)
	}
	defer closeStore()

	entries, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("redis holds %d entries, want 2", len(entries))
	}
	e := entries[cache.Key("https://dl.airtable.com/one.png")]
	if e.Status != cache.StatusOptimized || e.CDNURL != testutil.DeployedURL("https://dl.airtable.com/one.png") {
		t.Errorf("entry = %+v", e)
	}

	// A fresh checkout without the cache file still reuses the Redis mapping.
	mock.Reset()
	mock.SetRecords(testutil.NewRecord("rec1", "One", "Approved", "EVT", "https://dl.airtable.com/one.png"))
	if _, err := runBuild(ctx, cfg, zerolog.Nop()); err != nil {
		t.Fatalf("second runBuild() failed: %v", err)
	}
	if mock.GetUploadCount() != 0 {
		t.Errorf("second build uploaded %d images, want 0", mock.GetUploadCount())
	}
}

func TestIntegration_OpenStoreUnreachable(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()

	cfg := buildConfig(t, mock, "secret")
	cfg.Cache.Backend = config.BackendRedis
	cfg.Cache.RedisURL = "redis://127.0.0.1:1/0"

	if _, _, err := openStore(context.Background(), cfg); err == nil {
		t.Error("expected error for unreachable redis")
	}
}
