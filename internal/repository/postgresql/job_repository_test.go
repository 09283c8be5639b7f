package postgresql

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"video-processing-service/internal/entity"
)

// Runs against a real database when POSTGRES_TEST_DSN is set.
func newTestRepo(t *testing.T) *JobRepository {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	repo := NewJobRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return repo
}

func testID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

func TestJobRepository_ClaimLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := testID("user1")

	status, err := repo.GetStatus(ctx, entity.KindVideo, id)
	if err != nil || status != entity.StatusUnset {
		t.Fatalf("expected unset, got %q, %v", status, err)
	}

	if err := repo.Claim(ctx, entity.KindVideo, id, "user1", id+".mp4"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := repo.Claim(ctx, entity.KindVideo, id, "user1", id+".mp4"); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}

	outputs := []entity.Output{{ResolutionLabel: "360p", Filename: "processed-" + id + "_360p.mp4"}}
	if err := repo.MarkProcessed(ctx, entity.KindVideo, id, outputs); err != nil {
		t.Fatalf("mark processed: %v", err)
	}

	rec, err := repo.Get(ctx, entity.KindVideo, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != entity.StatusProcessed || rec.OwnerID != "user1" || len(rec.Outputs) != 1 || rec.Outputs[0] != outputs[0] {
		t.Fatalf("unexpected record %+v", rec)
	}

	if err := repo.Release(ctx, entity.KindVideo, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("processed records cannot be released, got %v", err)
	}
}

func TestJobRepository_UpsertMergeKeepsClaimable(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := testID("user2")

	title := "Holiday"
	if err := repo.UpsertMerge(ctx, entity.KindVideo, id, entity.RecordPatch{Title: &title}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	desc := "Beach"
	if err := repo.UpsertMerge(ctx, entity.KindVideo, id, entity.RecordPatch{Description: &desc}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	// a record created by metadata save is still unset, so it can be claimed
	if err := repo.Claim(ctx, entity.KindVideo, id, "user2", id+".mp4"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	rec, err := repo.Get(ctx, entity.KindVideo, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Title != title || rec.Description != desc || rec.Status != entity.StatusProcessing {
		t.Fatalf("unexpected record %+v", rec)
	}

	if err := repo.Release(ctx, entity.KindVideo, id); err != nil {
		t.Fatalf("release: %v", err)
	}
	if status, _ := repo.GetStatus(ctx, entity.KindVideo, id); status != entity.StatusUnset {
		t.Fatalf("expected unset after release, got %q", status)
	}
}

func TestJobRepository_ConcurrentClaim(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := testID("thumbnail-user3")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Claim(ctx, entity.KindThumbnail, id, "user3", id+".png")
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, ErrAlreadyClaimed) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one claim to win, got %d", wins)
	}
}

func TestJobRepository_GetMissing(t *testing.T) {
	repo := newTestRepo(t)

	if _, err := repo.Get(context.Background(), entity.KindThumbnail, testID("nobody")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTable_RejectsUnknownKind(t *testing.T) {
	if _, err := table("audio"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if got, _ := table(entity.KindThumbnail); got != "thumbnails" {
		t.Fatalf("expected thumbnails, got %q", got)
	}
}
