package usecase

import (
	"errors"
	"strings"

	"github.com/FlavienRemy/csv-merger/internal/merger/engine"
	"github.com/FlavienRemy/csv-merger/internal/merger/entity"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgerror"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgtable"
)

type TableResult struct {
	WorkspaceID string
	Meta        entity.TableMeta
}

type MergeInput struct {
	PrimaryKey   string
	SecondaryKey string
	// Mode defaults to left when empty.
	Mode       string
	TrimSpace  bool
	IgnoreCase bool
}

type MergeResult struct {
	WorkspaceID string
	Run         entity.MergeRun
	DurationMS  int64
}

type RowsResult struct {
	WorkspaceID string
	RunID       int64
	Headers     []string
	Rows        [][]string
	Page        int
	PageSize    int
	Total       int
}

type ExportResult struct {
	FileName string
	Table    *pkgtable.Table
}

func ParseSlot(value string) (entity.Slot, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(entity.SlotPrimary):
		return entity.SlotPrimary, nil
	case string(entity.SlotSecondary):
		return entity.SlotSecondary, nil
	default:
		return "", pkgerror.NewInvalidInput(errors.New("slot must be primary or secondary"))
	}
}

func (in MergeInput) spec() (engine.Spec, error) {
	mode := engine.ModeLeft
	if strings.TrimSpace(in.Mode) != "" {
		m, err := engine.ParseMode(in.Mode)
		if err != nil {
			return engine.Spec{}, err
		}
		mode = m
	}

	return engine.Spec{
		PrimaryKey:   in.PrimaryKey,
		SecondaryKey: in.SecondaryKey,
		Mode:         mode,
		Match: engine.MatchOptions{
			TrimSpace:  in.TrimSpace,
			IgnoreCase: in.IgnoreCase,
		},
	}, nil
}
