// Package engine joins two tables on a single key column.
//
// Merge never mutates its inputs and returns identical results for identical
// arguments. Only the first secondary row for a given key participates, and the
// table the output is based on wins column name collisions. Every output row
// carries every output column, using an empty string where no value exists.
package engine

import (
	"fmt"

	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgtable"
)

// Stats summarizes a merge.
type Stats struct {
	PrimaryRows     int
	SecondaryRows   int
	MergedRows      int
	ConflictColumns int
	// MatchedRows counts output rows built from both tables.
	MatchedRows int
	// ShadowedRows counts secondary rows ignored because an earlier row had the same key.
	ShadowedRows int
}

// Result is the outcome of a merge. Table holds the primary headers followed by
// the added columns.
type Result struct {
	Table           *pkgtable.Table
	ConflictColumns []string
	AddedColumns    []string
	Stats           Stats
}

// Headers returns the merged column names.
func (r Result) Headers() []string {
	if r.Table == nil {
		return nil
	}
	return r.Table.Headers()
}

// Merge joins primary and secondary according to spec.
func Merge(primary, secondary *pkgtable.Table, spec Spec) (Result, error) {
	pk, sk, err := validate(primary, secondary, spec)
	if err != nil {
		return Result{}, err
	}

	m := newMerger(primary, secondary, pk, sk, spec.Match.keyFunc())

	b, err := pkgtable.NewBuilder(mergedName(primary, secondary), m.schema, primary.Len())
	if err != nil {
		return Result{}, err
	}

	var matched int
	switch spec.Mode {
	case ModeLeft:
		matched = m.left(b, false)
	case ModeInner:
		matched = m.left(b, true)
	case ModeRight:
		matched = m.right(b)
	case ModeOuter:
		matched = m.outer(b)
	}

	table := b.Build()

	return Result{
		Table:           table,
		ConflictColumns: m.conflicts,
		AddedColumns:    m.addedNames,
		Stats: Stats{
			PrimaryRows:     primary.Len(),
			SecondaryRows:   secondary.Len(),
			MergedRows:      table.Len(),
			ConflictColumns: len(m.conflicts),
			MatchedRows:     matched,
			ShadowedRows:    m.shadowed,
		},
	}, nil
}

func validate(primary, secondary *pkgtable.Table, spec Spec) (int, int, error) {
	if spec.PrimaryKey == "" {
		return 0, 0, &KeyError{Side: SidePrimary, Err: ErrMissingJoinKey}
	}
	if spec.SecondaryKey == "" {
		return 0, 0, &KeyError{Side: SideSecondary, Err: ErrMissingJoinKey}
	}

	pk, ok := primary.ColumnIndex(spec.PrimaryKey)
	if !ok {
		return 0, 0, &KeyError{Side: SidePrimary, Column: spec.PrimaryKey, Err: ErrUnknownJoinKey}
	}
	sk, ok := secondary.ColumnIndex(spec.SecondaryKey)
	if !ok {
		return 0, 0, &KeyError{Side: SideSecondary, Column: spec.SecondaryKey, Err: ErrUnknownJoinKey}
	}

	if !spec.Mode.Valid() {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMode, spec.Mode)
	}

	return pk, sk, nil
}

func mergedName(primary, secondary *pkgtable.Table) string {
	switch {
	case primary.Name() == "":
		return secondary.Name()
	case secondary.Name() == "":
		return primary.Name()
	default:
		return primary.Name() + "+" + secondary.Name()
	}
}
