package testsupport

import (
	"testing"
	"time"

	"finlens/internal/artifacts"
	"finlens/internal/config"
	"finlens/internal/jobs"
	"finlens/internal/logging"
	"finlens/internal/workqueue"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenBroker opens a workqueue.Broker for tests and registers cleanup.
func MustOpenBroker(t testing.TB, cfg *config.Config) *workqueue.Broker {
	t.Helper()

	broker, err := workqueue.Open(cfg.QueueDatabasePath(), time.Duration(cfg.Queue.LeaseSeconds)*time.Second)
	if err != nil {
		t.Fatalf("workqueue.Open: %v", err)
	}
	t.Cleanup(func() {
		broker.Close()
	})
	return broker
}

// MustOpenArtifacts opens an artifacts.Store for tests.
func MustOpenArtifacts(t testing.TB, cfg *config.Config) *artifacts.Store {
	t.Helper()

	store, err := artifacts.NewStore(cfg.Paths.ArtifactDir, logging.NewNop())
	if err != nil {
		t.Fatalf("artifacts.NewStore: %v", err)
	}
	return store
}
