// Package schema resolves row structures for a table from an external
// JSON descriptor tree (format spec §4.6): a top-level index mapping a
// regex over source file paths to a schema document, and each document
// mapping a table name (or anchored regex) to an ordered field list.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/kesshi/dscstools/internal/dscserr"
	"github.com/kesshi/dscstools/internal/table"
)

// fieldDecl is one schema document field: a name and a type name as
// spelled in the descriptor (resolved to an EntryType by resolveType).
type fieldDecl struct {
	Name string
	Type string
}

// Registry resolves Structures by (source path, table name), loading
// descriptor documents lazily and caching them by filename.
type Registry struct {
	root    string
	index   []indexEntry
	cache   map[string]orderedSchemaDoc
}

type indexEntry struct {
	re       *regexp.Regexp
	filename string
}

// orderedSchemaDoc preserves both the table-name matching order (first
// match wins, same as the index) and each table's field order.
type orderedSchemaDoc []tableDecl

type tableDecl struct {
	nameOrPattern string
	re            *regexp.Regexp
	fields        []fieldDecl
}

// Load reads structure.json under root and prepares a Registry. root is
// typically "structures/<dialect>" (format spec §4.6).
func Load(root string) (*Registry, error) {
	idxPath := filepath.Join(root, "structure.json")
	raw, err := os.ReadFile(idxPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{root: root, cache: map[string]orderedSchemaDoc{}}, nil
		}
		return nil, fmt.Errorf("schema: read %s: %w", idxPath, dscserr.ErrIO)
	}

	entries, err := parseIndex(raw)
	if err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", idxPath, err)
	}

	return &Registry{root: root, index: entries, cache: map[string]orderedSchemaDoc{}}, nil
}

// parseIndex decodes the index document preserving pattern declaration
// order — Resolve must try patterns in that order and stop at the
// first match, which a plain map decode would make nondeterministic.
func parseIndex(raw []byte) ([]indexEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode index: %w", dscserr.ErrInvalidInput)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("index root is not an object: %w", dscserr.ErrInvalidInput)
	}

	var entries []indexEntry
	for dec.More() {
		patternTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode index pattern: %w", dscserr.ErrInvalidInput)
		}
		filenameTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode index filename: %w", dscserr.ErrInvalidInput)
		}
		pattern, _ := patternTok.(string)
		filename, _ := filenameTok.(string)

		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("index pattern %q: %w", pattern, dscserr.ErrInvalidInput)
		}
		entries = append(entries, indexEntry{re: re, filename: filename})
	}
	return entries, nil
}

// Resolve returns the Structure for tableName as referenced from
// sourcePath (format spec §4.6's two-step lookup): first the index
// entry whose regex matches sourcePath selects a document, then an
// exact table-name match in that document wins over the first regex
// match. An empty Structure (ok=false) means no schema applies.
func (r *Registry) Resolve(sourcePath, tableName string) (table.Structure, bool) {
	var filename string
	for _, e := range r.index {
		if e.re.MatchString(sourcePath) {
			filename = e.filename
			break
		}
	}
	if filename == "" {
		return table.Structure{}, false
	}

	doc, err := r.loadDoc(filename)
	if err != nil {
		return table.Structure{}, false
	}

	for _, t := range doc {
		if t.nameOrPattern == tableName {
			return toStructure(tableName, t.fields), true
		}
	}
	for _, t := range doc {
		if t.re != nil && t.re.MatchString(tableName) {
			return toStructure(tableName, t.fields), true
		}
	}
	return table.Structure{}, false
}

func (r *Registry) loadDoc(filename string) (orderedSchemaDoc, error) {
	if doc, ok := r.cache[filename]; ok {
		return doc, nil
	}
	raw, err := os.ReadFile(filepath.Join(r.root, filename))
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", filename, dscserr.ErrIO)
	}
	doc, err := parseSchemaDoc(raw)
	if err != nil {
		return nil, err
	}
	r.cache[filename] = doc
	return doc, nil
}

// parseSchemaDoc decodes a schema document preserving both table-order
// and, within each table, field declaration order — encoding/json's
// map decoding loses both, so this walks the raw token stream instead.
func parseSchemaDoc(raw []byte) (orderedSchemaDoc, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("schema: decode document: %w", dscserr.ErrInvalidInput)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("schema: document root is not an object: %w", dscserr.ErrInvalidInput)
	}

	var out orderedSchemaDoc
	for dec.More() {
		nameTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("schema: decode table name: %w", dscserr.ErrInvalidInput)
		}
		name, _ := nameTok.(string)

		fields, err := decodeFieldList(dec)
		if err != nil {
			return nil, err
		}

		td := tableDecl{nameOrPattern: name, fields: fields}
		if re, err := regexp.Compile("^" + name + "$"); err == nil {
			td.re = re
		}
		out = append(out, td)
	}
	return out, nil
}

func decodeFieldList(dec *json.Decoder) ([]fieldDecl, error) {
	openTok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("schema: decode field list: %w", dscserr.ErrInvalidInput)
	}
	if d, ok := openTok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("schema: table entry is not an object: %w", dscserr.ErrInvalidInput)
	}

	var fields []fieldDecl
	for dec.More() {
		nameTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("schema: decode field name: %w", dscserr.ErrInvalidInput)
		}
		typeTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("schema: decode field type: %w", dscserr.ErrInvalidInput)
		}
		name, _ := nameTok.(string)
		typ, _ := typeTok.(string)
		fields = append(fields, fieldDecl{Name: name, Type: typ})
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("schema: decode field list end: %w", dscserr.ErrInvalidInput)
	}
	return fields, nil
}

func toStructure(tableName string, fields []fieldDecl) table.Structure {
	entries := make([]table.StructureEntry, len(fields))
	for i, f := range fields {
		entries[i] = table.StructureEntry{Name: f.Name, Type: resolveType(f.Type)}
	}
	return table.Structure{Name: tableName, Entries: entries}
}

// resolveType maps a schema's type name, including legacy aliases, to
// an EntryType. Unknown names resolve to EMPTY (format spec §4.6).
func resolveType(name string) table.EntryType {
	switch name {
	case "int8", "byte":
		return table.Int8
	case "int16", "short":
		return table.Int16
	case "int32", "int":
		return table.Int32
	case "float":
		return table.Float
	case "bool":
		return table.Bool
	case "string":
		return table.String
	case "string2":
		return table.String2
	case "string3":
		return table.String3
	case "int array":
		return table.IntArray
	case "empty":
		return table.Empty
	default:
		return table.Empty
	}
}
