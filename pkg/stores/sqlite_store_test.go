package stores

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "designcore.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("expected an error for a missing path")
	}
}

func TestRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &Run{
		ID:         uuid.NewString(),
		Part:       "bracket",
		IntentHash: "intent_deadbeef",
		Status:     RunStatusRunning,
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Part != "bracket" || got.IntentHash != "intent_deadbeef" {
		t.Errorf("unexpected run: %+v", got)
	}
	if got.Status != RunStatusRunning {
		t.Errorf("expected running status, got %s", got.Status)
	}
	if got.CompletedAt != nil {
		t.Error("a running run must not have a completion time")
	}

	if err := store.UpdateRunStatus(ctx, run.ID, RunStatusCompleted, nil); err != nil {
		t.Fatalf("failed to update status: %v", err)
	}
	got, err = store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to reload run: %v", err)
	}
	if got.Status != RunStatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("a completed run must have a completion time")
	}
}

func TestRunFailureRecordsError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &Run{ID: uuid.NewString(), Part: "plate", IntentHash: "intent_0", Status: RunStatusRunning}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	msg := "operation op_2 timed out"
	if err := store.UpdateRunStatus(ctx, run.ID, RunStatusFailed, &msg); err != nil {
		t.Fatalf("failed to update status: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to reload run: %v", err)
	}
	if got.Error == nil || *got.Error != msg {
		t.Errorf("expected error message, got %v", got.Error)
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetRun(context.Background(), "missing"); err == nil {
		t.Fatal("expected an error for an unknown run")
	}
	if err := store.UpdateRunStatus(context.Background(), "missing", RunStatusFailed, nil); err == nil {
		t.Fatal("expected an error updating an unknown run")
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, part := range []string{"a", "b", "c"} {
		run := &Run{ID: uuid.NewString(), Part: part, IntentHash: "intent_x"}
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx, 2, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}

	all, err := store.ListRuns(ctx, 10, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 runs, got %d", len(all))
	}
}

func TestRunEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &Run{ID: uuid.NewString(), Part: "bracket", IntentHash: "intent_x"}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	for _, ev := range []struct{ op, status, msg string }{
		{"op_1", "running", ""},
		{"op_1", "complete", ""},
		{"op_2", "running", ""},
		{"op_2", "error", "no local fallback for ADD_HOLE"},
	} {
		event := &RunEvent{RunID: run.ID, OperationID: ev.op, Status: ev.status, Message: ev.msg}
		if err := store.AppendEvent(ctx, event); err != nil {
			t.Fatalf("failed to append event: %v", err)
		}
		if event.ID == 0 {
			t.Error("expected the insert id to be backfilled")
		}
	}

	events, err := store.ListEvents(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[0].OperationID != "op_1" || events[0].Status != "running" {
		t.Errorf("events out of order: %+v", events[0])
	}
	if events[3].Status != "error" || events[3].Message == "" {
		t.Errorf("expected the failure event last, got %+v", events[3])
	}
}
