package entity

type Event struct {
	EventID     string
	Kind        EventKind
	WorkspaceID string
	Slot        Slot
	RunID       int64
	Detail      string
}
