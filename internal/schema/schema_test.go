package schema_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kesshi/dscstools/internal/schema"
	"github.com/kesshi/dscstools/internal/table"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

func TestLoad_MissingIndexIsNotAnError(t *testing.T) {
	root := t.TempDir()
	reg, err := schema.Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := reg.Resolve("any/path.bin", "items"); ok {
		t.Fatal("Resolve should miss with no structure.json")
	}
}

func TestResolve_ExactTableNameWinsOverRegex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "structure.json"), `{"^chr/.*\\.bin$": "chr.json"}`)
	writeFile(t, filepath.Join(root, "chr.json"), `{
		"items": {"id": "int32", "name": "string"},
		"it.*": {"id": "int16", "flag": "bool"}
	}`)

	reg, err := schema.Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s, ok := reg.Resolve("chr/0001.bin", "items")
	if !ok {
		t.Fatal("expected a match for table \"items\"")
	}
	if len(s.Entries) != 2 || s.Entries[0].Name != "id" || s.Entries[0].Type != table.Int32 {
		t.Fatalf("exact match resolved to %#v, want int32 id + string name", s.Entries)
	}

	s2, ok := reg.Resolve("chr/0001.bin", "itemsother")
	if !ok {
		t.Fatal("expected a regex match for table \"itemsother\"")
	}
	if len(s2.Entries) != 2 || s2.Entries[0].Type != table.Int16 {
		t.Fatalf("regex match resolved to %#v, want int16 id + bool flag", s2.Entries)
	}
}

func TestResolve_NoIndexMatchMisses(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "structure.json"), `{"^chr/.*$": "chr.json"}`)
	writeFile(t, filepath.Join(root, "chr.json"), `{"items": {"id": "int32"}}`)

	reg, err := schema.Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := reg.Resolve("snd/bgm.bin", "items"); ok {
		t.Fatal("Resolve should miss when no index pattern matches the source path")
	}
}

func TestResolve_FieldOrderPreserved(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "structure.json"), `{".*": "doc.json"}`)
	writeFile(t, filepath.Join(root, "doc.json"), `{
		"stats": {"zzz": "int32", "aaa": "string", "mmm": "bool"}
	}`)

	reg, err := schema.Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, ok := reg.Resolve("any.bin", "stats")
	if !ok {
		t.Fatal("expected a match for table \"stats\"")
	}
	want := []string{"zzz", "aaa", "mmm"}
	for i, name := range want {
		if s.Entries[i].Name != name {
			t.Fatalf("field %d = %q, want %q (order must match declaration order)", i, s.Entries[i].Name, name)
		}
	}
}

func TestResolveType_LegacyAliases(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "structure.json"), `{".*": "doc.json"}`)
	writeFile(t, filepath.Join(root, "doc.json"), `{
		"legacy": {"a": "byte", "b": "short", "c": "int"}
	}`)

	reg, err := schema.Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, ok := reg.Resolve("any.bin", "legacy")
	if !ok {
		t.Fatal("expected a match for table \"legacy\"")
	}
	wantTypes := []table.EntryType{table.Int8, table.Int16, table.Int32}
	for i, want := range wantTypes {
		if s.Entries[i].Type != want {
			t.Fatalf("field %d type = %v, want %v", i, s.Entries[i].Type, want)
		}
	}
}
