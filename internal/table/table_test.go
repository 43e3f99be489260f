package table_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kesshi/dscstools/internal/dialect"
	"github.com/kesshi/dscstools/internal/table"
)

func boolStructure() table.Structure {
	return table.Structure{
		Name: "flags",
		Entries: []table.StructureEntry{
			{Name: "a", Type: table.Bool},
			{Name: "b", Type: table.Bool},
			{Name: "c", Type: table.Bool},
			{Name: "value", Type: table.Int32},
		},
	}
}

func stringStructure() table.Structure {
	return table.Structure{
		Name: "names",
		Entries: []table.StructureEntry{
			{Name: "label", Type: table.String},
			{Name: "value", Type: table.Int32},
		},
	}
}

func TestStructureSize_BoolsAndInt32(t *testing.T) {
	s := boolStructure()
	if got := s.RawSize(); got != 8 {
		t.Fatalf("RawSize() = %d, want 8", got)
	}
	if got := s.ExpaSize(); got != 8 {
		t.Fatalf("ExpaSize() = %d, want 8", got)
	}
}

func TestStructureSize_StringAndInt32(t *testing.T) {
	s := stringStructure()
	if got := s.RawSize(); got != 12 {
		t.Fatalf("RawSize() = %d, want 12", got)
	}
	if got := s.ExpaSize(); got != 16 {
		t.Fatalf("ExpaSize() = %d, want 16", got)
	}
}

func TestPackUnpack_Bools(t *testing.T) {
	s := boolStructure()
	row := table.Row{true, false, true, int32(42)}

	packed, chunks, err := table.Pack(s, row)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for bool/int32 row, got %d", len(chunks))
	}
	if len(packed) != s.ExpaSize() {
		t.Fatalf("packed row is %d bytes, want %d", len(packed), s.ExpaSize())
	}

	got, err := table.Unpack(s, packed, 0, func(int64) ([]byte, bool) { return nil, false })
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if !reflect.DeepEqual(got, row) {
		t.Fatalf("Unpack() = %#v, want %#v", got, row)
	}
}

func TestPackUnpack_String(t *testing.T) {
	s := stringStructure()
	row := table.Row{"hi", int32(7)}

	packed, chunks, err := table.Pack(s, row)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Offset != 0 {
		t.Fatalf("chunk offset = %d, want 0", chunks[0].Offset)
	}
	want := []byte{'h', 'i', 0, 0}
	if !reflect.DeepEqual(chunks[0].Payload, want) {
		t.Fatalf("chunk payload = %v, want %v", chunks[0].Payload, want)
	}

	const rowFileOffset = 100
	chunkMap := map[int64][]byte{int64(rowFileOffset) + int64(chunks[0].Offset): chunks[0].Payload}
	resolve := func(off int64) ([]byte, bool) {
		p, ok := chunkMap[off]
		return p, ok
	}

	got, err := table.Unpack(s, packed, rowFileOffset, resolve)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if !reflect.DeepEqual(got, row) {
		t.Fatalf("Unpack() = %#v, want %#v", got, row)
	}
}

func TestPackUnpack_EmptyString(t *testing.T) {
	s := stringStructure()
	row := table.Row{"", int32(1)}

	packed, chunks, err := table.Pack(s, row)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunk for empty string, got %d", len(chunks))
	}

	got, err := table.Unpack(s, packed, 0, func(int64) ([]byte, bool) { return nil, false })
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got[0] != "" {
		t.Fatalf("got[0] = %q, want empty string", got[0])
	}
}

func TestPackUnpack_IntArray(t *testing.T) {
	s := table.Structure{
		Name: "arrays",
		Entries: []table.StructureEntry{
			{Name: "values", Type: table.IntArray},
		},
	}
	row := table.Row{[]uint32{1, 2, 3}}

	packed, chunks, err := table.Pack(s, row)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Offset != 8 {
		t.Fatalf("expected one chunk at offset 8, got %#v", chunks)
	}

	chunkMap := map[int64][]byte{int64(chunks[0].Offset): chunks[0].Payload}
	resolve := func(off int64) ([]byte, bool) {
		p, ok := chunkMap[off]
		return p, ok
	}
	got, err := table.Unpack(s, packed, 0, resolve)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if !reflect.DeepEqual(got[0], []uint32{1, 2, 3}) {
		t.Fatalf("got[0] = %v, want [1 2 3]", got[0])
	}
}

func TestTableFile_RoundTrip(t *testing.T) {
	d, ok := dialect.For(dialect.DSCSConsole)
	if !ok {
		t.Fatal("dialect.For(DSCSConsole) = false")
	}

	tf := &table.TableFile{
		Tables: []table.Table{
			{
				Name:      "flags",
				Structure: boolStructure(),
				Rows: []table.Row{
					{true, false, true, int32(1)},
					{false, false, false, int32(-5)},
				},
			},
			{
				Name:      "names",
				Structure: stringStructure(),
				Rows: []table.Row{
					{"hello", int32(10)},
					{"", int32(20)},
					{"world", int32(30)},
				},
			},
		},
	}

	encoded, err := table.Write(tf, d)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	schemas := map[string]table.Structure{
		"flags": boolStructure(),
		"names": stringStructure(),
	}
	resolve := func(name string) (table.Structure, bool) {
		s, ok := schemas[name]
		return s, ok
	}

	got, err := table.Read(encoded, d, resolve)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.Tables) != len(tf.Tables) {
		t.Fatalf("got %d tables, want %d", len(got.Tables), len(tf.Tables))
	}
	for i, want := range tf.Tables {
		if got.Tables[i].Name != want.Name {
			t.Fatalf("table %d name = %q, want %q", i, got.Tables[i].Name, want.Name)
		}
		if !reflect.DeepEqual(got.Tables[i].Rows, want.Rows) {
			t.Fatalf("table %d rows = %#v, want %#v", i, got.Tables[i].Rows, want.Rows)
		}
	}
}

func TestTableFile_InlineFieldTypesRoundTrip(t *testing.T) {
	d, ok := dialect.For(dialect.DSTS)
	if !ok {
		t.Fatal("dialect.For(DSTS) = false")
	}

	tf := &table.TableFile{
		Tables: []table.Table{
			{
				Name:      "names",
				Structure: stringStructure(),
				Rows: []table.Row{
					{"abc", int32(1)},
				},
			},
		},
	}

	encoded, err := table.Write(tf, d)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	// No resolver: the reader must fall back to the inline field-type
	// list DSTS embeds per table.
	got, err := table.Read(encoded, d, func(string) (table.Structure, bool) { return table.Structure{}, false })
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.Tables) != 1 || len(got.Tables[0].Rows) != 1 {
		t.Fatalf("unexpected decode shape: %#v", got.Tables)
	}
	if got.Tables[0].Rows[0][0] != "abc" {
		t.Fatalf("row[0] = %v, want \"abc\"", got.Tables[0].Rows[0][0])
	}
}

func TestCSV_ExportImportRoundTrip(t *testing.T) {
	tf := &table.TableFile{
		Tables: []table.Table{
			{
				Name:      "names",
				Structure: stringStructure(),
				Rows: []table.Row{
					{"hello, world", int32(1)},
					{"quote\"d", int32(-2)},
				},
			},
		},
	}

	dir := t.TempDir()
	if err := table.ExportCSV(tf, dir); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	wantFile := filepath.Join(dir, "000_names.csv")
	if _, err := os.Stat(wantFile); err != nil {
		t.Fatalf("expected %s to exist: %v", wantFile, err)
	}

	schemas := map[string]table.Structure{"names": stringStructure()}
	resolve := func(name string) (table.Structure, bool) {
		s, ok := schemas[name]
		return s, ok
	}

	got, err := table.ImportCSV(dir, resolve)
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if len(got.Tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(got.Tables))
	}
	if got.Tables[0].Name != "names" {
		t.Fatalf("table name = %q, want names", got.Tables[0].Name)
	}
	if !reflect.DeepEqual(got.Tables[0].Rows, tf.Tables[0].Rows) {
		t.Fatalf("round-tripped rows = %#v, want %#v", got.Tables[0].Rows, tf.Tables[0].Rows)
	}
}

func TestTableNameFromFilename(t *testing.T) {
	cases := map[string]string{
		"000_names.csv": "names",
		"012_items.csv": "items",
		"plain.csv":     "plain",
	}
	for filename, want := range cases {
		dir := t.TempDir()
		path := filepath.Join(dir, filename)
		if err := os.WriteFile(path, []byte("a\n1\n"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		tf, err := table.ImportCSV(dir, func(string) (table.Structure, bool) { return table.Structure{}, false })
		if err != nil {
			t.Fatalf("ImportCSV(%s): %v", filename, err)
		}
		if len(tf.Tables) != 1 || tf.Tables[0].Name != want {
			t.Fatalf("ImportCSV(%s) table name = %q, want %q", filename, tf.Tables[0].Name, want)
		}
	}
}
