package inbound

import (
	"context"
	"io"

	"github.com/FlavienRemy/csv-merger/internal/merger/entity"
	"github.com/FlavienRemy/csv-merger/internal/merger/usecase"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgrouter"
)

type uc interface {
	CreateWorkspace(ctx context.Context) (entity.Workspace, error)
	Workspace(ctx context.Context, workspaceID string) (entity.Workspace, error)
	DeleteWorkspace(ctx context.Context, workspaceID string) error
	LoadTable(ctx context.Context, workspaceID string, slot entity.Slot, fileName string, r io.Reader) (usecase.TableResult, error)
	ClearTable(ctx context.Context, workspaceID string, slot entity.Slot) error
	Merge(ctx context.Context, workspaceID string, in usecase.MergeInput) (usecase.MergeResult, error)
	Rows(ctx context.Context, workspaceID string, page, pageSize int) (usecase.RowsResult, error)
	Export(ctx context.Context, workspaceID, fileName string) (usecase.ExportResult, error)
}

type Options struct {
	// MaxUploadBytes caps table uploads; zero means no cap.
	MaxUploadBytes int64
}

func RegisterHTTPEndpoint(r *pkgrouter.Router, uc uc, opts Options) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/workspaces", end.CreateWorkspace)
	r.GET("/workspaces/:id", end.Workspace)
	r.DELETE("/workspaces/:id", end.DeleteWorkspace)

	r.PUT("/workspaces/:id/tables/:slot", end.LoadTable, pkgrouter.MaxBytes(opts.MaxUploadBytes)) // multipart "file" or raw body, ?name=
	r.DELETE("/workspaces/:id/tables/:slot", end.ClearTable)

	r.POST("/workspaces/:id/merge", end.Merge)
	r.GET("/workspaces/:id/result", end.Result)                   // ?page=&page_size=
	r.GET("/workspaces/:id/result/download", end.ResultDownload) // ?filename=
}
