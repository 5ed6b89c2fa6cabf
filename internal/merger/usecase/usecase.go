package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/FlavienRemy/csv-merger/internal/merger/engine"
	"github.com/FlavienRemy/csv-merger/internal/merger/entity"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgerror"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkglog"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgroutine"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgtable"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkguid"
)

type Store interface {
	CreateWorkspace(ctx context.Context, ws entity.Workspace) error
	DeleteWorkspace(ctx context.Context, id string) error
	GetWorkspace(ctx context.Context, id string) (entity.Workspace, error)
	UpdateWorkspace(ctx context.Context, id string, fn func(ws *entity.Workspace)) error
	SaveTable(ctx context.Context, id string, slot entity.Slot, table *pkgtable.Table, fn func(meta *entity.TableMeta)) error
	ClearTable(ctx context.Context, id string, slot entity.Slot) error
	Tables(ctx context.Context, id string) (*pkgtable.Table, *pkgtable.Table, entity.Workspace, error)
	SaveRun(ctx context.Context, id string, run entity.MergeRun) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event entity.Event) error
}

// Runner starts f in the background or refuses at once; it never blocks
// waiting for capacity.
type Runner interface {
	TryGo(ctx context.Context, f func(ctx context.Context) error) error
}

type Clock interface {
	Now() time.Time
}

type Dependency struct {
	Store        Store
	Events       EventPublisher
	Runner       Runner
	Clock        Clock
	ID           pkguid.StringID
	RunID        pkguid.NumberID
	RootCtx      context.Context
	ParseOptions pkgtable.ParseOptions
}

type Usecase struct {
	store     Store
	events    EventPublisher
	runner    Runner
	clock     Clock
	id        pkguid.StringID
	runID     pkguid.NumberID
	rootCtx   context.Context
	parseOpts pkgtable.ParseOptions
}

func New(dep Dependency) *Usecase {
	root := dep.RootCtx
	if root == nil {
		root = context.Background()
	}

	clock := dep.Clock
	if clock == nil {
		clock = realClock{}
	}

	return &Usecase{
		store:     dep.Store,
		events:    dep.Events,
		runner:    dep.Runner,
		clock:     clock,
		id:        dep.ID,
		runID:     dep.RunID,
		rootCtx:   root,
		parseOpts: dep.ParseOptions,
	}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (u *Usecase) CreateWorkspace(ctx context.Context) (entity.Workspace, error) {
	if u.store == nil || u.id == nil {
		return entity.Workspace{}, pkgerror.NewServer(errors.New("missing dependency"))
	}

	ws := entity.Workspace{
		ID:        u.id.Generate(),
		CreatedAt: u.clock.Now().Unix(),
		Primary:   entity.TableMeta{Slot: entity.SlotPrimary},
		Secondary: entity.TableMeta{Slot: entity.SlotSecondary},
	}
	if err := u.store.CreateWorkspace(ctx, ws); err != nil {
		return entity.Workspace{}, normalizeErr(err)
	}

	slog.InfoContext(ctx, "workspace created", "workspace_id", ws.ID)
	return ws, nil
}

func (u *Usecase) Workspace(ctx context.Context, workspaceID string) (entity.Workspace, error) {
	if workspaceID == "" {
		return entity.Workspace{}, pkgerror.NewInvalidInput(errors.New("workspace_id is required"))
	}

	ws, err := u.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return entity.Workspace{}, mapStoreErr(err)
	}
	return ws, nil
}

func (u *Usecase) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	if workspaceID == "" {
		return pkgerror.NewInvalidInput(errors.New("workspace_id is required"))
	}

	if err := u.store.DeleteWorkspace(ctx, workspaceID); err != nil {
		return mapStoreErr(err)
	}

	slog.InfoContext(ctx, "workspace deleted", "workspace_id", workspaceID)
	return nil
}

// LoadTable queues r to be parsed into the given slot. Parsing happens in the
// background; the slot status tells when the new table is in place.
func (u *Usecase) LoadTable(ctx context.Context, workspaceID string, slot entity.Slot, fileName string, r io.Reader) (TableResult, error) {
	if u.store == nil || u.id == nil || u.runner == nil {
		return TableResult{}, pkgerror.NewServer(errors.New("missing dependency"))
	}
	if workspaceID == "" {
		return TableResult{}, pkgerror.NewInvalidInput(errors.New("workspace_id is required"))
	}

	fileName = strings.TrimSpace(filepath.Base(fileName))
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		fileName = string(slot) + ".csv"
	}

	loadID := u.id.Generate()
	var (
		meta      entity.TableMeta
		busy      bool
		loadQueue = func(ws *entity.Workspace) {
			m := slotMeta(ws, slot)
			if m.Loading() {
				busy = true
				return
			}
			m.ID = loadID
			m.Name = fileName
			m.Status = entity.LoadStatusQueued
			m.Err = ""
			m.StartedAt = 0
			m.EndedAt = 0
			meta = *m
		}
	)

	if err := u.store.UpdateWorkspace(ctx, workspaceID, loadQueue); err != nil {
		return TableResult{}, mapStoreErr(err)
	}
	if busy {
		return TableResult{}, pkgerror.NewBusiness(fmt.Sprintf("%s table is still loading", slot), pkgerror.CodeConflict)
	}

	err := u.runner.TryGo(pkglog.CopyCorrelationID(u.rootCtx, ctx), func(ctx context.Context) error {
		if err := u.processLoad(ctx, workspaceID, slot, loadID, fileName, r); err != nil {
			slog.ErrorContext(ctx, "table load failed", "workspace_id", workspaceID, "slot", slot, "load_id", loadID, "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		_ = u.store.UpdateWorkspace(ctx, workspaceID, func(ws *entity.Workspace) {
			m := slotMeta(ws, slot)
			if m.ID == loadID {
				m.Status = entity.LoadStatusFailed
				m.Err = err.Error()
			}
		})
		if errors.Is(err, pkgroutine.ErrSaturated) {
			return TableResult{}, pkgerror.NewBusiness("too many tables loading, retry later", pkgerror.CodeUnavailable)
		}
		return TableResult{}, pkgerror.NewServer(err)
	}

	return TableResult{WorkspaceID: workspaceID, Meta: meta}, nil
}

func (u *Usecase) ClearTable(ctx context.Context, workspaceID string, slot entity.Slot) error {
	if workspaceID == "" {
		return pkgerror.NewInvalidInput(errors.New("workspace_id is required"))
	}

	err := u.store.ClearTable(ctx, workspaceID, slot)
	if errors.Is(err, pkgerror.ErrBusy) {
		return pkgerror.NewBusiness(fmt.Sprintf("%s table is still loading", slot), pkgerror.CodeConflict)
	}
	if err != nil {
		return mapStoreErr(err)
	}
	return nil
}

// Merge joins the two tables of a workspace. A successful merge replaces the
// previous result; a failed one leaves it untouched and records the message.
func (u *Usecase) Merge(ctx context.Context, workspaceID string, in MergeInput) (MergeResult, error) {
	if workspaceID == "" {
		return MergeResult{}, pkgerror.NewInvalidInput(errors.New("workspace_id is required"))
	}

	primary, secondary, ws, err := u.store.Tables(ctx, workspaceID)
	if err != nil {
		return MergeResult{}, mapStoreErr(err)
	}
	if ws.Primary.Loading() || ws.Secondary.Loading() {
		return MergeResult{}, pkgerror.NewBusiness("tables are still loading", pkgerror.CodeConflict)
	}
	if primary == nil || secondary == nil {
		return MergeResult{}, u.failMerge(ctx, workspaceID, pkgerror.NewBusiness("both tables must be loaded before merging", pkgerror.CodeConflict))
	}

	spec, err := in.spec()
	if err != nil {
		return MergeResult{}, u.failMerge(ctx, workspaceID, mapMergeErr(err))
	}

	started := u.clock.Now()
	res, err := engine.Merge(primary, secondary, spec)
	if err != nil {
		return MergeResult{}, u.failMerge(ctx, workspaceID, mapMergeErr(err))
	}
	ended := u.clock.Now()

	run := entity.MergeRun{
		Spec:          spec,
		Result:        res,
		PrimaryName:   primary.Name(),
		SecondaryName: secondary.Name(),
		StartedAt:     started.Unix(),
		EndedAt:       ended.Unix(),
	}
	if u.runID != nil {
		run.RunID = u.runID.Generate()
	}

	if err := u.store.SaveRun(ctx, workspaceID, run); err != nil {
		return MergeResult{}, mapStoreErr(err)
	}

	slog.InfoContext(ctx, "merge completed",
		"workspace_id", workspaceID,
		"run_id", run.RunID,
		"mode", spec.Mode,
		"merged_rows", res.Stats.MergedRows,
		"conflicts", res.Stats.ConflictColumns,
		"shadowed_rows", res.Stats.ShadowedRows,
	)
	u.publish(ctx, entity.Event{
		Kind:        entity.EventMergeCompleted,
		WorkspaceID: workspaceID,
		RunID:       run.RunID,
		Detail:      fmt.Sprintf("%s join produced %d rows", spec.Mode, res.Stats.MergedRows),
	})

	return MergeResult{
		WorkspaceID: workspaceID,
		Run:         run,
		DurationMS:  ended.Sub(started).Milliseconds(),
	}, nil
}

func (u *Usecase) Rows(ctx context.Context, workspaceID string, page, pageSize int) (RowsResult, error) {
	if workspaceID == "" {
		return RowsResult{}, pkgerror.NewInvalidInput(errors.New("workspace_id is required"))
	}
	if page < 1 || pageSize < 1 {
		return RowsResult{}, pkgerror.NewInvalidInput(errors.New("invalid pagination"))
	}

	run, err := u.currentRun(ctx, workspaceID)
	if err != nil {
		return RowsResult{}, err
	}

	table := run.Result.Table
	start := (page - 1) * pageSize
	rows := table.Slice(start, start+pageSize)

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Strings())
	}

	return RowsResult{
		WorkspaceID: workspaceID,
		RunID:       run.RunID,
		Headers:     table.Headers(),
		Rows:        out,
		Page:        page,
		PageSize:    pageSize,
		Total:       table.Len(),
	}, nil
}

// Export returns the merged table and the name to download it under. An empty
// name becomes merged_<date>.csv.
func (u *Usecase) Export(ctx context.Context, workspaceID, fileName string) (ExportResult, error) {
	if workspaceID == "" {
		return ExportResult{}, pkgerror.NewInvalidInput(errors.New("workspace_id is required"))
	}

	run, err := u.currentRun(ctx, workspaceID)
	if err != nil {
		return ExportResult{}, err
	}

	return ExportResult{
		FileName: exportName(fileName, u.clock.Now()),
		Table:    run.Result.Table,
	}, nil
}

func (u *Usecase) currentRun(ctx context.Context, workspaceID string) (entity.MergeRun, error) {
	ws, err := u.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return entity.MergeRun{}, mapStoreErr(err)
	}
	if ws.Run == nil {
		return entity.MergeRun{}, pkgerror.NewBusiness("no merge result yet", pkgerror.CodeNotFound)
	}
	return *ws.Run, nil
}

func (u *Usecase) processLoad(ctx context.Context, workspaceID string, slot entity.Slot, loadID, fileName string, r io.Reader) error {
	// The sender may still be writing when parsing stops early.
	defer func() {
		_, _ = io.Copy(io.Discard, r)
	}()

	startedAt := u.clock.Now().Unix()
	if err := u.store.UpdateWorkspace(ctx, workspaceID, func(ws *entity.Workspace) {
		m := slotMeta(ws, slot)
		m.Status = entity.LoadStatusProcessing
		m.StartedAt = startedAt
	}); err != nil {
		return err
	}

	table, err := pkgtable.Parse(ctx, fileName, r, u.parseOpts)
	endedAt := u.clock.Now().Unix()
	if err != nil {
		if metaErr := u.store.UpdateWorkspace(ctx, workspaceID, func(ws *entity.Workspace) {
			m := slotMeta(ws, slot)
			m.Status = entity.LoadStatusFailed
			m.Err = err.Error()
			m.EndedAt = endedAt
			ws.LastError = err.Error()
		}); metaErr != nil {
			return metaErr
		}

		u.publish(ctx, entity.Event{
			Kind:        entity.EventTableFailed,
			WorkspaceID: workspaceID,
			Slot:        slot,
			Detail:      err.Error(),
		})
		return err
	}

	if err := u.store.SaveTable(ctx, workspaceID, slot, table, func(meta *entity.TableMeta) {
		meta.Status = entity.LoadStatusDone
		meta.Err = ""
		meta.EndedAt = endedAt
		meta.Loaded = true
		meta.Columns = table.Headers()
		meta.Rows = table.Len()
	}); err != nil {
		return err
	}

	slog.InfoContext(ctx, "table loaded", "workspace_id", workspaceID, "slot", slot, "name", fileName, "rows", table.Len(), "columns", table.Width())
	u.publish(ctx, entity.Event{
		Kind:        entity.EventTableLoaded,
		WorkspaceID: workspaceID,
		Slot:        slot,
		Detail:      fmt.Sprintf("%s: %d rows, %d columns", fileName, table.Len(), table.Width()),
	})

	return nil
}

// failMerge records err as the workspace's last error and returns it.
func (u *Usecase) failMerge(ctx context.Context, workspaceID string, err error) error {
	msg := err.Error()
	if updErr := u.store.UpdateWorkspace(ctx, workspaceID, func(ws *entity.Workspace) {
		ws.LastError = msg
	}); updErr != nil {
		slog.WarnContext(ctx, "failed to record merge error", "workspace_id", workspaceID, "error", updErr)
	}

	slog.WarnContext(ctx, "merge rejected", "workspace_id", workspaceID, "error", msg)
	u.publish(ctx, entity.Event{
		Kind:        entity.EventMergeFailed,
		WorkspaceID: workspaceID,
		Detail:      msg,
	})
	return err
}

func (u *Usecase) publish(ctx context.Context, event entity.Event) {
	if u.events == nil {
		return
	}

	event.EventID = u.id.Generate()
	if err := u.events.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish event", "workspace_id", event.WorkspaceID, "event_id", event.EventID, "kind", event.Kind, "error", err)
	}
}

func slotMeta(ws *entity.Workspace, slot entity.Slot) *entity.TableMeta {
	if slot == entity.SlotSecondary {
		return &ws.Secondary
	}
	return &ws.Primary
}

func exportName(fileName string, now time.Time) string {
	name := strings.TrimSpace(filepath.Base(fileName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "merged_" + now.Format("2006-01-02") + ".csv"
	}
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		name += ".csv"
	}
	return name
}

func mapMergeErr(err error) error {
	switch {
	case errors.Is(err, engine.ErrMissingJoinKey),
		errors.Is(err, engine.ErrUnknownJoinKey),
		errors.Is(err, engine.ErrInvalidMode):
		return pkgerror.NewInvalidInput(err)
	default:
		return normalizeErr(err)
	}
}

func mapStoreErr(err error) error {
	if errors.Is(err, pkgerror.ErrNotFound) {
		return pkgerror.NewBusiness("workspace not found", pkgerror.CodeNotFound)
	}
	return normalizeErr(err)
}

func normalizeErr(err error) error {
	var perr *pkgerror.Error
	if errors.As(err, &perr) {
		return perr
	}
	return pkgerror.NewServer(err)
}
