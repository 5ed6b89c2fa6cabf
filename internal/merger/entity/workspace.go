package entity

import "github.com/FlavienRemy/csv-merger/internal/merger/engine"

// TableMeta describes one workspace slot. ID, Name, Status, Err and the
// timestamps belong to the latest load attempt; Loaded, Columns and Rows
// describe the table currently held, which a failed load leaves in place.
type TableMeta struct {
	ID        string
	Slot      Slot
	Name      string
	Status    LoadStatus
	Err       string
	StartedAt int64
	EndedAt   int64

	Loaded  bool
	Columns []string
	Rows    int
}

// Loading reports whether a load is queued or running for the slot.
func (m TableMeta) Loading() bool {
	return m.Status == LoadStatusQueued || m.Status == LoadStatusProcessing
}

// MergeRun is the last successful merge of a workspace.
type MergeRun struct {
	RunID         int64
	Spec          engine.Spec
	Result        engine.Result
	PrimaryName   string
	SecondaryName string
	StartedAt     int64
	EndedAt       int64
}

// Workspace is a snapshot of the state a user builds a merge from.
type Workspace struct {
	ID        string
	CreatedAt int64
	Primary   TableMeta
	Secondary TableMeta
	LastError string

	// Run is nil until a merge succeeds.
	Run *MergeRun
}
