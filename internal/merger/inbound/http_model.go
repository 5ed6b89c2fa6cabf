package inbound

import (
	"io"
	"mime"
	"net/http"

	"github.com/FlavienRemy/csv-merger/internal/merger/engine"
	"github.com/FlavienRemy/csv-merger/internal/merger/entity"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgtable"
)

type MergeRequest struct {
	PrimaryKey   string `json:"primary_key"`
	SecondaryKey string `json:"secondary_key"`
	Mode         string `json:"mode"`
	TrimSpace    bool   `json:"trim_space"`
	IgnoreCase   bool   `json:"ignore_case"`
}

type TableMeta struct {
	LoadID    string            `json:"load_id,omitempty"`
	Slot      entity.Slot       `json:"slot"`
	Name      string            `json:"name,omitempty"`
	Status    entity.LoadStatus `json:"status,omitempty"`
	Error     string            `json:"error,omitempty"`
	StartedAt int64             `json:"started_at,omitempty"`
	EndedAt   int64             `json:"ended_at,omitempty"`
	Loaded    bool              `json:"loaded"`
	Columns   []string          `json:"columns"`
	Rows      int               `json:"rows"`
}

type Stats struct {
	PrimaryRows     int `json:"primary_rows"`
	SecondaryRows   int `json:"secondary_rows"`
	MergedRows      int `json:"merged_rows"`
	ConflictColumns int `json:"conflict_columns"`
	MatchedRows     int `json:"matched_rows"`
	ShadowedRows    int `json:"shadowed_rows"`
}

type Run struct {
	RunID           int64       `json:"run_id,string"`
	Mode            engine.Mode `json:"mode"`
	PrimaryKey      string      `json:"primary_key"`
	SecondaryKey    string      `json:"secondary_key"`
	TrimSpace       bool        `json:"trim_space"`
	IgnoreCase      bool        `json:"ignore_case"`
	PrimaryName     string      `json:"primary_name"`
	SecondaryName   string      `json:"secondary_name"`
	Headers         []string    `json:"headers"`
	ConflictColumns []string    `json:"conflict_columns"`
	AddedColumns    []string    `json:"added_columns"`
	Stats           Stats       `json:"stats"`
	StartedAt       int64       `json:"started_at"`
	EndedAt         int64       `json:"ended_at"`
}

type WorkspaceResponse struct {
	ID        string    `json:"id"`
	CreatedAt int64     `json:"created_at"`
	Primary   TableMeta `json:"primary"`
	Secondary TableMeta `json:"secondary"`
	LastError string    `json:"last_error,omitempty"`
	Run       *Run      `json:"run,omitempty"`
	created   bool
}

func (r WorkspaceResponse) StatusCode() int {
	if r.created {
		return http.StatusCreated
	}
	return http.StatusOK
}

type TableResponse struct {
	WorkspaceID string    `json:"workspace_id"`
	Table       TableMeta `json:"table"`
}

func (TableResponse) StatusCode() int {
	return http.StatusAccepted
}

func (TableResponse) Message() string {
	return "table accepted"
}

type MergeResponse struct {
	WorkspaceID string `json:"workspace_id"`
	DurationMS  int64  `json:"duration_ms"`
	Run         Run    `json:"run"`
}

func (MergeResponse) Message() string {
	return "merge completed"
}

type ResultResponse struct {
	WorkspaceID string     `json:"workspace_id"`
	RunID       int64      `json:"run_id,string"`
	Headers     []string   `json:"headers"`
	Rows        [][]string `json:"rows"`
	page        int
	pageSize    int
	total       int
}

func (r ResultResponse) Meta() map[string]any {
	return map[string]any{
		"page":      r.page,
		"page_size": r.pageSize,
		"total":     r.total,
	}
}

// csvDownload streams a table as a CSV attachment.
type csvDownload struct {
	fileName string
	table    *pkgtable.Table
}

func (csvDownload) ContentType() string {
	return "text/csv; charset=utf-8"
}

func (d csvDownload) Headers() http.Header {
	h := http.Header{}
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.fileName}))
	return h
}

func (d csvDownload) Stream(w io.Writer) error {
	return pkgtable.Write(w, d.table, pkgtable.WriteOptions{})
}
