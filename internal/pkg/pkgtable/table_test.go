package pkgtable

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New("a", []string{"id", "id"}, nil)
	assert.ErrorIs(t, err, ErrDuplicateHeader)

	_, err = New("a", []string{"id"}, []Row{{Text("1"), Text("2")}})
	assert.ErrorIs(t, err, ErrRowTooWide)

	tbl, err := New("a", []string{"id", "name"}, []Row{{Text("1")}})
	require.NoError(t, err)
	assert.Equal(t, Row{Text("1"), Absent()}, tbl.Row(0))
}

func TestNew_CopiesInput(t *testing.T) {
	t.Parallel()

	headers := []string{"id"}
	rows := []Row{{Text("1")}}
	tbl, err := New("a", headers, rows)
	require.NoError(t, err)

	headers[0] = "changed"
	rows[0][0] = Text("changed")
	got := tbl.Row(0)
	got[0] = Text("changed")

	assert.Equal(t, []string{"id"}, tbl.Headers())
	assert.Equal(t, Text("1"), tbl.Cell(0, 0))
}

func TestFromRecords(t *testing.T) {
	t.Parallel()

	tbl, err := FromRecords("a", []string{"id", "name"}, []map[string]string{
		{"id": "1", "name": "a"},
		{"id": "2"},
	})
	require.NoError(t, err)

	assert.Equal(t, Absent(), tbl.Cell(1, 1))
	assert.Equal(t, []map[string]string{{"id": "1", "name": "a"}, {"id": "2"}}, tbl.Records())

	_, err = FromRecords("a", []string{"id"}, []map[string]string{{"nope": "x"}})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestSlice_Clamps(t *testing.T) {
	t.Parallel()

	tbl, err := FromRecords("a", []string{"id"}, []map[string]string{{"id": "1"}, {"id": "2"}, {"id": "3"}})
	require.NoError(t, err)

	assert.Len(t, tbl.Slice(1, 10), 2)
	assert.Empty(t, tbl.Slice(5, 10))
	assert.Empty(t, tbl.Slice(-3, 0))
}

func TestBuilder(t *testing.T) {
	t.Parallel()

	b, err := NewBuilder("merged", []string{"id", "v"}, 1)
	require.NoError(t, err)
	b.Append(Row{Text("1"), Text("x")})
	tbl := b.Build()

	assert.Equal(t, 1, tbl.Len())
	assert.Panics(t, func() {
		b2, _ := NewBuilder("m", []string{"id"}, 0)
		b2.Append(Row{})
	})
}

func TestWrite(t *testing.T) {
	t.Parallel()

	tbl, err := FromRecords("a", []string{"id", "note"}, []map[string]string{
		{"id": "1", "note": "hello, world"},
		{"id": "2"},
		{"id": "3", "note": "say \"hi\""},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl, WriteOptions{}))

	assert.Equal(t, "id,note\n1,\"hello, world\"\n2,\n3,\"say \"\"hi\"\"\"\n", buf.String())
}

func TestWrite_Options(t *testing.T) {
	t.Parallel()

	tbl, err := FromRecords("a", []string{"id", "v"}, []map[string]string{{"id": "1", "v": "x"}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl, WriteOptions{Delimiter: ';', UseCRLF: true}))

	assert.Equal(t, "id;v\r\n1;x\r\n", buf.String())
}

func TestWriteParse_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers []string
		records []map[string]string
	}{
		{
			name:    "quoting",
			headers: []string{"id", "text", "empty"},
			records: []map[string]string{
				{"id": "1", "text": "a,b", "empty": ""},
				{"id": "2", "text": "line\nbreak", "empty": ""},
				{"id": "", "text": "", "empty": ""},
			},
		},
		{
			name:    "single empty column",
			headers: []string{"only"},
			records: []map[string]string{{"only": ""}, {"only": "x"}, {"only": ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := FromRecords("src", tt.headers, tt.records)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, Write(&buf, tbl, WriteOptions{}))

			back, err := Parse(context.Background(), "back", strings.NewReader(buf.String()), ParseOptions{Delimiter: ','})
			require.NoError(t, err)

			assert.Equal(t, tbl.Headers(), back.Headers())
			assert.Equal(t, tt.records, back.Records())
		})
	}
}
