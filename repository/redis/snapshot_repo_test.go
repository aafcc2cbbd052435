package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
	"github.com/gavinmorrow/hunter-extension-sub000/repository"
)

// newTestRepository connects to REDIS_ADDR and namespaces keys per test.
func newTestRepository(t *testing.T) (repository.Store, *redislib.Client, string) {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redislib.NewClient(&redislib.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Fatalf("ping %s: %v", addr, err)
	}

	prefix := "hunter-test:" + uuid.NewString() + ":"
	t.Cleanup(func() {
		client.Del(context.Background(), prefix+"snapshot", prefix+"settings")
		client.Close()
	})
	return NewCacheRepository(client, prefix), client, prefix
}

func TestCacheRepositorySnapshotRoundTrip(t *testing.T) {
	repo, _, _ := newTestRepository(t)
	ctx := context.Background()

	empty, err := repo.LoadSnapshot(ctx)
	if err != nil || empty != nil {
		t.Fatalf("missing key: %v %v", empty, err)
	}

	desc := "<p>read</p>"
	first := []domain.Assignment{{
		ID:           1,
		Kind:         domain.KindTask,
		Title:        "Read",
		Description:  &desc,
		Status:       domain.StatusToDo,
		DueDate:      time.Date(2024, 4, 23, 15, 0, 0, 0, time.UTC),
		AssignedDate: time.Date(2024, 4, 20, 8, 0, 0, 0, time.UTC),
	}}
	if err := repo.SaveSnapshot(ctx, first); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	got, err := repo.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if diff := cmp.Diff(first, got); diff != "" {
		t.Fatalf("snapshot (-want +got):\n%s", diff)
	}

	second := []domain.Assignment{{
		ID:           2,
		Kind:         domain.KindAssignment,
		Title:        "Quiz",
		Status:       domain.StatusInProgress,
		DueDate:      time.Date(2024, 4, 24, 23, 59, 0, 0, time.UTC),
		AssignedDate: time.Date(2024, 4, 15, 8, 0, 0, 0, time.UTC),
	}}
	if err := repo.SaveSnapshot(ctx, second); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	got, err = repo.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if diff := cmp.Diff(second, got); diff != "" {
		t.Fatalf("snapshot not overwritten (-want +got):\n%s", diff)
	}
}

func TestCacheRepositorySettingsRoundTrip(t *testing.T) {
	repo, client, prefix := newTestRepository(t)
	ctx := context.Background()

	overrides := map[string]any{"weekStart": "Monday", "showWeekends": true}
	if err := repo.SaveSettings(ctx, overrides); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	got, err := repo.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if diff := cmp.Diff(overrides, got); diff != "" {
		t.Fatalf("settings (-want +got):\n%s", diff)
	}

	if err := client.Set(ctx, prefix+"settings", "{not json", 0).Err(); err != nil {
		t.Fatalf("seed corrupt value: %v", err)
	}
	if _, err := repo.LoadSettings(ctx); !domain.IsDomainError(err, domain.ErrCodeInternal) {
		t.Fatalf("corrupt settings: err = %v", err)
	}
}
