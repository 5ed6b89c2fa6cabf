package store

import (
	"context"
	"sync"

	"github.com/FlavienRemy/csv-merger/internal/merger/entity"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgerror"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgtable"
)

type InMemoryStore struct {
	mu         sync.RWMutex
	workspaces map[string]*workspaceRecord
}

type workspaceRecord struct {
	mu        sync.RWMutex
	workspace entity.Workspace
	primary   *pkgtable.Table
	secondary *pkgtable.Table
}

func (r *workspaceRecord) slot(slot entity.Slot) (**pkgtable.Table, *entity.TableMeta) {
	if slot == entity.SlotSecondary {
		return &r.secondary, &r.workspace.Secondary
	}
	return &r.primary, &r.workspace.Primary
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		workspaces: make(map[string]*workspaceRecord),
	}
}

func (s *InMemoryStore) CreateWorkspace(ctx context.Context, ws entity.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workspaces[ws.ID]; exists {
		return pkgerror.NewBusiness("workspace already exists", pkgerror.CodeConflict)
	}

	ws.Primary.Slot = entity.SlotPrimary
	ws.Secondary.Slot = entity.SlotSecondary
	s.workspaces[ws.ID] = &workspaceRecord{
		workspace: ws,
	}

	return nil
}

func (s *InMemoryStore) DeleteWorkspace(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workspaces[id]; !ok {
		return pkgerror.ErrNotFound
	}
	delete(s.workspaces, id)

	return nil
}

func (s *InMemoryStore) GetWorkspace(ctx context.Context, id string) (entity.Workspace, error) {
	rec, err := s.get(id)
	if err != nil {
		return entity.Workspace{}, err
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()

	return rec.workspace, nil
}

// UpdateWorkspace applies fn to the workspace under its lock.
func (s *InMemoryStore) UpdateWorkspace(ctx context.Context, id string, fn func(ws *entity.Workspace)) error {
	rec, err := s.get(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	fn(&rec.workspace)

	return nil
}

// SaveTable replaces the table of a slot and updates its meta in one step.
func (s *InMemoryStore) SaveTable(ctx context.Context, id string, slot entity.Slot, table *pkgtable.Table, fn func(meta *entity.TableMeta)) error {
	rec, err := s.get(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	tbl, meta := rec.slot(slot)
	*tbl = table
	fn(meta)

	return nil
}

// ClearTable drops the table of a slot and resets its meta. It returns
// pkgerror.ErrBusy and changes nothing while the slot is loading.
func (s *InMemoryStore) ClearTable(ctx context.Context, id string, slot entity.Slot) error {
	rec, err := s.get(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	tbl, meta := rec.slot(slot)
	if meta.Loading() {
		return pkgerror.ErrBusy
	}
	*tbl = nil
	*meta = entity.TableMeta{Slot: slot}

	return nil
}

// Tables returns the tables currently held together with the workspace they belong to.
func (s *InMemoryStore) Tables(ctx context.Context, id string) (*pkgtable.Table, *pkgtable.Table, entity.Workspace, error) {
	rec, err := s.get(id)
	if err != nil {
		return nil, nil, entity.Workspace{}, err
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()

	return rec.primary, rec.secondary, rec.workspace, nil
}

// SaveRun replaces the merge result and clears the last error.
func (s *InMemoryStore) SaveRun(ctx context.Context, id string, run entity.MergeRun) error {
	return s.UpdateWorkspace(ctx, id, func(ws *entity.Workspace) {
		ws.Run = &run
		ws.LastError = ""
	})
}

func (s *InMemoryStore) get(id string) (*workspaceRecord, error) {
	s.mu.RLock()
	rec, ok := s.workspaces[id]
	s.mu.RUnlock()
	if !ok {
		return nil, pkgerror.ErrNotFound
	}

	return rec, nil
}
