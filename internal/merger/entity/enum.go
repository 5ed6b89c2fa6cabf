package entity

type Slot string

const (
	SlotPrimary   Slot = "primary"
	SlotSecondary Slot = "secondary"
)

type LoadStatus string

const (
	LoadStatusQueued     LoadStatus = "QUEUED"
	LoadStatusProcessing LoadStatus = "PROCESSING"
	LoadStatusDone       LoadStatus = "DONE"
	LoadStatusFailed     LoadStatus = "FAILED"
)

type EventKind string

const (
	EventTableLoaded    EventKind = "table.loaded"
	EventTableFailed    EventKind = "table.failed"
	EventMergeCompleted EventKind = "merge.completed"
	EventMergeFailed    EventKind = "merge.failed"
)
