package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/FlavienRemy/csv-merger/internal/merger/entity"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgerror"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgtable"
)

func mustTable(t *testing.T, name, body string) *pkgtable.Table {
	t.Helper()
	table, err := pkgtable.Parse(context.Background(), name, strings.NewReader(body), pkgtable.ParseOptions{})
	if err != nil {
		t.Fatalf("Parse() err = %v", err)
	}
	return table
}

func TestInMemoryStore_CreateWorkspace_Duplicate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore()
	ws := entity.Workspace{ID: "ws-1", CreatedAt: 100}

	if err := store.CreateWorkspace(ctx, ws); err != nil {
		t.Fatalf("CreateWorkspace() err = %v", err)
	}

	err := store.CreateWorkspace(ctx, ws)
	if err == nil {
		t.Fatal("CreateWorkspace() expected error, got nil")
	}

	if got := pkgerror.CodeOf(err); got != pkgerror.CodeConflict {
		t.Fatalf("CreateWorkspace() error code = %v, want %v", got, pkgerror.CodeConflict)
	}

	got, err := store.GetWorkspace(ctx, ws.ID)
	if err != nil {
		t.Fatalf("GetWorkspace() err = %v", err)
	}
	if got.Primary.Slot != entity.SlotPrimary || got.Secondary.Slot != entity.SlotSecondary {
		t.Fatalf("GetWorkspace() slots = %q/%q", got.Primary.Slot, got.Secondary.Slot)
	}
}

func TestInMemoryStore_SaveTable_And_Tables(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore()
	if err := store.CreateWorkspace(ctx, entity.Workspace{ID: "ws-2"}); err != nil {
		t.Fatalf("CreateWorkspace() err = %v", err)
	}

	table := mustTable(t, "s.csv", "id,v\n1,a\n")
	err := store.SaveTable(ctx, "ws-2", entity.SlotSecondary, table, func(meta *entity.TableMeta) {
		meta.Status = entity.LoadStatusDone
		meta.Loaded = true
		meta.Rows = table.Len()
	})
	if err != nil {
		t.Fatalf("SaveTable() err = %v", err)
	}

	primary, secondary, ws, err := store.Tables(ctx, "ws-2")
	if err != nil {
		t.Fatalf("Tables() err = %v", err)
	}
	if primary != nil {
		t.Fatalf("Tables() primary = %v, want nil", primary)
	}
	if secondary != table {
		t.Fatalf("Tables() secondary = %v, want %v", secondary, table)
	}
	if !ws.Secondary.Loaded || ws.Secondary.Rows != 1 || ws.Primary.Loaded {
		t.Fatalf("Tables() meta = %+v / %+v", ws.Primary, ws.Secondary)
	}

	if err := store.ClearTable(ctx, "ws-2", entity.SlotSecondary); err != nil {
		t.Fatalf("ClearTable() err = %v", err)
	}
	_, secondary, ws, err = store.Tables(ctx, "ws-2")
	if err != nil {
		t.Fatalf("Tables() err = %v", err)
	}
	if secondary != nil || ws.Secondary.Loaded || ws.Secondary.Slot != entity.SlotSecondary {
		t.Fatalf("ClearTable() left %v / %+v", secondary, ws.Secondary)
	}
}

func TestInMemoryStore_ClearTable_RefusesWhileLoading(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore()
	if err := store.CreateWorkspace(ctx, entity.Workspace{ID: "ws-5"}); err != nil {
		t.Fatalf("CreateWorkspace() err = %v", err)
	}

	table := mustTable(t, "p.csv", "id\n1\n")
	if err := store.SaveTable(ctx, "ws-5", entity.SlotPrimary, table, func(meta *entity.TableMeta) {
		meta.Status = entity.LoadStatusDone
		meta.Loaded = true
	}); err != nil {
		t.Fatalf("SaveTable() err = %v", err)
	}
	if err := store.UpdateWorkspace(ctx, "ws-5", func(ws *entity.Workspace) {
		ws.Primary.ID = "load-2"
		ws.Primary.Status = entity.LoadStatusQueued
	}); err != nil {
		t.Fatalf("UpdateWorkspace() err = %v", err)
	}

	if err := store.ClearTable(ctx, "ws-5", entity.SlotPrimary); !errors.Is(err, pkgerror.ErrBusy) {
		t.Fatalf("ClearTable() err = %v, want %v", err, pkgerror.ErrBusy)
	}

	primary, _, ws, err := store.Tables(ctx, "ws-5")
	if err != nil {
		t.Fatalf("Tables() err = %v", err)
	}
	if primary != table {
		t.Fatalf("Tables() primary = %v, want %v", primary, table)
	}
	if ws.Primary.ID != "load-2" || ws.Primary.Status != entity.LoadStatusQueued {
		t.Fatalf("ClearTable() changed queued meta: %+v", ws.Primary)
	}

	if err := store.ClearTable(ctx, "missing", entity.SlotPrimary); !errors.Is(err, pkgerror.ErrNotFound) {
		t.Fatalf("ClearTable() err = %v, want %v", err, pkgerror.ErrNotFound)
	}
}

func TestInMemoryStore_SaveRun_ClearsLastError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore()
	if err := store.CreateWorkspace(ctx, entity.Workspace{ID: "ws-3"}); err != nil {
		t.Fatalf("CreateWorkspace() err = %v", err)
	}
	if err := store.UpdateWorkspace(ctx, "ws-3", func(ws *entity.Workspace) {
		ws.LastError = "boom"
	}); err != nil {
		t.Fatalf("UpdateWorkspace() err = %v", err)
	}

	if err := store.SaveRun(ctx, "ws-3", entity.MergeRun{RunID: 7}); err != nil {
		t.Fatalf("SaveRun() err = %v", err)
	}

	ws, err := store.GetWorkspace(ctx, "ws-3")
	if err != nil {
		t.Fatalf("GetWorkspace() err = %v", err)
	}
	if ws.LastError != "" || ws.Run == nil || ws.Run.RunID != 7 {
		t.Fatalf("GetWorkspace() = %+v", ws)
	}
}

func TestInMemoryStore_NotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore()

	if _, err := store.GetWorkspace(ctx, "missing"); !errors.Is(err, pkgerror.ErrNotFound) {
		t.Fatalf("GetWorkspace() err = %v, want %v", err, pkgerror.ErrNotFound)
	}
	if err := store.UpdateWorkspace(ctx, "missing", func(*entity.Workspace) {}); !errors.Is(err, pkgerror.ErrNotFound) {
		t.Fatalf("UpdateWorkspace() err = %v, want %v", err, pkgerror.ErrNotFound)
	}
	if _, _, _, err := store.Tables(ctx, "missing"); !errors.Is(err, pkgerror.ErrNotFound) {
		t.Fatalf("Tables() err = %v, want %v", err, pkgerror.ErrNotFound)
	}
	if err := store.DeleteWorkspace(ctx, "missing"); !errors.Is(err, pkgerror.ErrNotFound) {
		t.Fatalf("DeleteWorkspace() err = %v, want %v", err, pkgerror.ErrNotFound)
	}
}

func TestInMemoryStore_ConcurrentUpdates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore()
	if err := store.CreateWorkspace(ctx, entity.Workspace{ID: "ws-4"}); err != nil {
		t.Fatalf("CreateWorkspace() err = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.UpdateWorkspace(ctx, "ws-4", func(ws *entity.Workspace) {
				ws.Primary.Rows++
			})
		}()
	}
	wg.Wait()

	ws, err := store.GetWorkspace(ctx, "ws-4")
	if err != nil {
		t.Fatalf("GetWorkspace() err = %v", err)
	}
	if ws.Primary.Rows != 50 {
		t.Fatalf("Primary.Rows = %d, want 50", ws.Primary.Rows)
	}
}
