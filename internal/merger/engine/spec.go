package engine

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

var (
	// ErrMissingJoinKey is returned when a join key column was not selected.
	ErrMissingJoinKey = errors.New("join key is required")
	// ErrUnknownJoinKey is returned when a join key column is not a header of its table.
	ErrUnknownJoinKey = errors.New("join key not found in headers")
	// ErrInvalidMode is returned for a join mode other than left, right, inner or outer.
	ErrInvalidMode = errors.New("invalid join mode")
)

// Side names the table a join key belongs to.
type Side string

const (
	SidePrimary   Side = "primary"
	SideSecondary Side = "secondary"
)

// KeyError describes a join key that cannot be used.
type KeyError struct {
	Side   Side
	Column string
	Err    error
}

func (e *KeyError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s %v", e.Side, e.Err)
	}
	return fmt.Sprintf("%s %v: %q", e.Side, e.Err, e.Column)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// Mode selects which rows the merge emits.
type Mode string

const (
	// ModeLeft emits every primary row.
	ModeLeft Mode = "left"
	// ModeRight emits every secondary row.
	ModeRight Mode = "right"
	// ModeInner emits primary rows that have a secondary match.
	ModeInner Mode = "inner"
	// ModeOuter emits every primary row, then unmatched secondary rows.
	ModeOuter Mode = "outer"
)

// ParseMode converts a case-insensitive mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeLeft, ModeRight, ModeInner, ModeOuter:
		return true
	default:
		return false
	}
}

// MatchOptions relax how key values are compared. The zero value compares
// the exact text.
type MatchOptions struct {
	TrimSpace  bool
	IgnoreCase bool
}

// Spec describes one merge request.
type Spec struct {
	PrimaryKey   string
	SecondaryKey string
	Mode         Mode
	Match        MatchOptions
}

// keyFunc turns a key cell into its comparable form. ok is false for absent cells.
type keyFunc func(value string, present bool) (key string, ok bool)

func (o MatchOptions) keyFunc() keyFunc {
	var fold cases.Caser
	if o.IgnoreCase {
		fold = cases.Fold()
	}

	return func(value string, present bool) (string, bool) {
		if !present {
			return "", false
		}
		if o.TrimSpace {
			value = strings.TrimSpace(value)
		}
		if o.IgnoreCase {
			value = fold.String(value)
		}
		return value, true
	}
}
