package engine

import (
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgtable"
)

type merger struct {
	primary   *pkgtable.Table
	secondary *pkgtable.Table
	pk        int
	sk        int
	key       keyFunc

	schema     []string
	conflicts  []string
	addedNames []string
	// added holds the secondary column of each added column.
	added []int
	// conflictSrc maps each primary column to the secondary column sharing its name, or -1.
	conflictSrc []int

	// index maps a secondary key to the first secondary row holding it.
	index    map[string]int
	shadowed int
}

func newMerger(primary, secondary *pkgtable.Table, pk, sk int, key keyFunc) *merger {
	m := &merger{
		primary:   primary,
		secondary: secondary,
		pk:        pk,
		sk:        sk,
		key:       key,
	}

	m.classify()
	m.index, m.shadowed = buildIndex(secondary, sk, key)

	return m
}

func (m *merger) classify() {
	m.conflictSrc = make([]int, m.primary.Width())
	for i := range m.conflictSrc {
		m.conflictSrc[i] = -1
	}

	for col, name := range m.secondary.Headers() {
		if col == m.sk {
			continue
		}
		if pc, ok := m.primary.ColumnIndex(name); ok {
			m.conflicts = append(m.conflicts, name)
			m.conflictSrc[pc] = col
			continue
		}
		m.addedNames = append(m.addedNames, name)
		m.added = append(m.added, col)
	}

	m.schema = append(m.primary.Headers(), m.addedNames...)
}

// buildIndex maps each present key to its first row. It also returns how many
// rows were shadowed by an earlier row with the same key.
func buildIndex(t *pkgtable.Table, col int, key keyFunc) (map[string]int, int) {
	index := make(map[string]int, t.Len())
	shadowed := 0

	for i := 0; i < t.Len(); i++ {
		c := t.Cell(i, col)
		k, ok := key(c.Value, c.Present)
		if !ok {
			continue
		}
		if _, exists := index[k]; exists {
			shadowed++
			continue
		}
		index[k] = i
	}

	return index, shadowed
}

func (m *merger) lookup(index map[string]int, c pkgtable.Cell) int {
	k, ok := m.key(c.Value, c.Present)
	if !ok {
		return -1
	}
	if i, found := index[k]; found {
		return i
	}
	return -1
}

// left emits primary-based rows. With matchedOnly, rows without a secondary
// match are dropped.
func (m *merger) left(b *pkgtable.Builder, matchedOnly bool) int {
	matched := 0
	for i := 0; i < m.primary.Len(); i++ {
		j := m.lookup(m.index, m.primary.Cell(i, m.pk))
		if j < 0 && matchedOnly {
			continue
		}
		if j >= 0 {
			matched++
		}
		b.Append(m.fromPrimary(i, j))
	}
	return matched
}

func (m *merger) right(b *pkgtable.Builder) int {
	primaryIndex, _ := buildIndex(m.primary, m.pk, m.key)

	matched := 0
	for j := 0; j < m.secondary.Len(); j++ {
		i := m.lookup(primaryIndex, m.secondary.Cell(j, m.sk))
		if i >= 0 {
			matched++
		}
		b.Append(m.fromSecondary(j, i))
	}
	return matched
}

func (m *merger) outer(b *pkgtable.Builder) int {
	matched := m.left(b, false)

	primaryKeys, _ := buildIndex(m.primary, m.pk, m.key)
	for j := 0; j < m.secondary.Len(); j++ {
		if m.lookup(primaryKeys, m.secondary.Cell(j, m.sk)) >= 0 {
			continue
		}
		b.Append(m.fromSecondary(j, -1))
	}
	return matched
}

// fromPrimary builds a row based on primary row i, taking added columns from
// secondary row j when j >= 0.
func (m *merger) fromPrimary(i, j int) pkgtable.Row {
	width := m.primary.Width()
	row := make(pkgtable.Row, len(m.schema))

	for c := 0; c < width; c++ {
		row[c] = pkgtable.Text(m.primary.Cell(i, c).Value)
	}
	for a, sc := range m.added {
		v := ""
		if j >= 0 {
			v = m.secondary.Cell(j, sc).Value
		}
		row[width+a] = pkgtable.Text(v)
	}

	return row
}

// fromSecondary builds a row based on secondary row j, taking the remaining
// primary columns from primary row i when i >= 0. Conflict columns carry the
// secondary's value; the primary key column carries the secondary key value
// unless the secondary has its own column of that name.
func (m *merger) fromSecondary(j, i int) pkgtable.Row {
	width := m.primary.Width()
	row := make(pkgtable.Row, len(m.schema))

	for c := 0; c < width; c++ {
		v := ""
		switch {
		case m.conflictSrc[c] >= 0:
			v = m.secondary.Cell(j, m.conflictSrc[c]).Value
		case c == m.pk:
			v = m.secondary.Cell(j, m.sk).Value
		case i >= 0:
			v = m.primary.Cell(i, c).Value
		}
		row[c] = pkgtable.Text(v)
	}
	for a, sc := range m.added {
		row[width+a] = pkgtable.Text(m.secondary.Cell(j, sc).Value)
	}

	return row
}
