package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/FlavienRemy/csv-merger/internal/merger/entity"
	"github.com/FlavienRemy/csv-merger/internal/merger/usecase"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgerror"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgrouter"
)

type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) CreateWorkspace(ctx context.Context, r *http.Request) (any, error) {
	ws, err := h.uc.CreateWorkspace(ctx)
	if err != nil {
		return nil, err
	}

	resp := toWorkspaceResponse(ws)
	resp.created = true
	return resp, nil
}

func (h *HTTPEndpoint) Workspace(ctx context.Context, r *http.Request) (any, error) {
	ws, err := h.uc.Workspace(ctx, pkgrouter.GetParam(ctx, "id"))
	if err != nil {
		return nil, err
	}

	return toWorkspaceResponse(ws), nil
}

func (h *HTTPEndpoint) DeleteWorkspace(ctx context.Context, r *http.Request) (any, error) {
	if err := h.uc.DeleteWorkspace(ctx, pkgrouter.GetParam(ctx, "id")); err != nil {
		return nil, err
	}

	return nil, nil
}

// LoadTable accepts the CSV either as the "file" part of a multipart form or
// as the raw request body, and feeds it to the background parser as it arrives.
func (h *HTTPEndpoint) LoadTable(ctx context.Context, r *http.Request) (any, error) {
	slot, err := usecase.ParseSlot(pkgrouter.GetParam(ctx, "slot"))
	if err != nil {
		return nil, err
	}

	reader, fileName, cleanup, err := extractCSVReader(r)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		fileName = name
	}

	pr, pw := io.Pipe()
	result, err := h.uc.LoadTable(ctx, pkgrouter.GetParam(ctx, "id"), slot, fileName, pr)
	if err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, err
	}

	if err := streamToPipe(reader, pw); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, pkgerror.NewTooLarge(maxErr.Limit)
		}
		return nil, pkgerror.NewServer(err)
	}

	return TableResponse{
		WorkspaceID: result.WorkspaceID,
		Table:       toTableMeta(result.Meta),
	}, nil
}

func (h *HTTPEndpoint) ClearTable(ctx context.Context, r *http.Request) (any, error) {
	slot, err := usecase.ParseSlot(pkgrouter.GetParam(ctx, "slot"))
	if err != nil {
		return nil, err
	}

	if err := h.uc.ClearTable(ctx, pkgrouter.GetParam(ctx, "id"), slot); err != nil {
		return nil, err
	}

	return nil, nil
}

func (h *HTTPEndpoint) Merge(ctx context.Context, r *http.Request) (any, error) {
	var req MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, pkgerror.NewInvalidFormat()
	}

	result, err := h.uc.Merge(ctx, pkgrouter.GetParam(ctx, "id"), usecase.MergeInput{
		PrimaryKey:   req.PrimaryKey,
		SecondaryKey: req.SecondaryKey,
		Mode:         req.Mode,
		TrimSpace:    req.TrimSpace,
		IgnoreCase:   req.IgnoreCase,
	})
	if err != nil {
		return nil, err
	}

	return MergeResponse{
		WorkspaceID: result.WorkspaceID,
		DurationMS:  result.DurationMS,
		Run:         toRun(result.Run),
	}, nil
}

func (h *HTTPEndpoint) Result(ctx context.Context, r *http.Request) (any, error) {
	query := r.URL.Query()
	page, pageSize, err := parsePagination(query.Get("page"), query.Get("page_size"))
	if err != nil {
		return nil, err
	}

	result, err := h.uc.Rows(ctx, pkgrouter.GetParam(ctx, "id"), page, pageSize)
	if err != nil {
		return nil, err
	}

	return ResultResponse{
		WorkspaceID: result.WorkspaceID,
		RunID:       result.RunID,
		Headers:     result.Headers,
		Rows:        result.Rows,
		page:        result.Page,
		pageSize:    result.PageSize,
		total:       result.Total,
	}, nil
}

func (h *HTTPEndpoint) ResultDownload(ctx context.Context, r *http.Request) (any, error) {
	result, err := h.uc.Export(ctx, pkgrouter.GetParam(ctx, "id"), r.URL.Query().Get("filename"))
	if err != nil {
		return nil, err
	}

	return csvDownload{fileName: result.FileName, table: result.Table}, nil
}

func parsePagination(pageRaw, sizeRaw string) (int, int, error) {
	page := 1
	pageSize := 50

	if pageRaw != "" {
		value, err := strconv.Atoi(pageRaw)
		if err != nil || value < 1 {
			return 0, 0, pkgerror.NewInvalidInput(errors.New("invalid page"))
		}
		page = value
	}

	if sizeRaw != "" {
		value, err := strconv.Atoi(sizeRaw)
		if err != nil || value < 1 {
			return 0, 0, pkgerror.NewInvalidInput(errors.New("invalid page_size"))
		}
		if value > 500 {
			value = 500
		}
		pageSize = value
	}

	return page, pageSize, nil
}

func toWorkspaceResponse(ws entity.Workspace) WorkspaceResponse {
	resp := WorkspaceResponse{
		ID:        ws.ID,
		CreatedAt: ws.CreatedAt,
		Primary:   toTableMeta(ws.Primary),
		Secondary: toTableMeta(ws.Secondary),
		LastError: ws.LastError,
	}
	if ws.Run != nil {
		run := toRun(*ws.Run)
		resp.Run = &run
	}
	return resp
}

func toTableMeta(meta entity.TableMeta) TableMeta {
	columns := meta.Columns
	if columns == nil {
		columns = []string{}
	}

	return TableMeta{
		LoadID:    meta.ID,
		Slot:      meta.Slot,
		Name:      meta.Name,
		Status:    meta.Status,
		Error:     meta.Err,
		StartedAt: meta.StartedAt,
		EndedAt:   meta.EndedAt,
		Loaded:    meta.Loaded,
		Columns:   columns,
		Rows:      meta.Rows,
	}
}

func toRun(run entity.MergeRun) Run {
	stats := run.Result.Stats
	return Run{
		RunID:           run.RunID,
		Mode:            run.Spec.Mode,
		PrimaryKey:      run.Spec.PrimaryKey,
		SecondaryKey:    run.Spec.SecondaryKey,
		TrimSpace:       run.Spec.Match.TrimSpace,
		IgnoreCase:      run.Spec.Match.IgnoreCase,
		PrimaryName:     run.PrimaryName,
		SecondaryName:   run.SecondaryName,
		Headers:         run.Result.Headers(),
		ConflictColumns: nonNil(run.Result.ConflictColumns),
		AddedColumns:    nonNil(run.Result.AddedColumns),
		Stats: Stats{
			PrimaryRows:     stats.PrimaryRows,
			SecondaryRows:   stats.SecondaryRows,
			MergedRows:      stats.MergedRows,
			ConflictColumns: stats.ConflictColumns,
			MatchedRows:     stats.MatchedRows,
			ShadowedRows:    stats.ShadowedRows,
		},
		StartedAt: run.StartedAt,
		EndedAt:   run.EndedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func extractCSVReader(r *http.Request) (io.Reader, string, func(), error) {
	contentType := r.Header.Get("Content-Type")
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil && strings.EqualFold(mediaType, "multipart/form-data") {
			return extractMultipartFile(r)
		}
	}

	if r.Body == nil || r.Body == http.NoBody {
		return nil, "", func() {}, pkgerror.NewInvalidInput(errors.New("empty request body"))
	}

	return r.Body, "", func() {}, nil
}

func extractMultipartFile(r *http.Request) (io.Reader, string, func(), error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, "", func() {}, pkgerror.NewInvalidFormat()
	}

	for {
		part, err := reader.NextPart()
		if err != nil {
			var maxErr *http.MaxBytesError
			switch {
			case errors.Is(err, io.EOF):
				return nil, "", func() {}, pkgerror.NewInvalidInput(errors.New("file part is required"))
			case errors.As(err, &maxErr):
				return nil, "", func() {}, pkgerror.NewTooLarge(maxErr.Limit)
			default:
				return nil, "", func() {}, pkgerror.NewInvalidFormat()
			}
		}

		if part.FormName() == "file" {
			return part, part.FileName(), func() { _ = part.Close() }, nil
		}
		_ = part.Close()
	}
}

func streamToPipe(src io.Reader, dst *io.PipeWriter) error {
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.CloseWithError(err)
		return err
	}

	return dst.Close()
}
