package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kesshi/dscstools/internal/dscserr"
)

// ExportCSV writes one CSV file per table into dir, named
// "<index>_<tablename>.csv" with index formatted to three digits, a
// header row of field names, and one row per record (format spec
// §4.7's CSV bridge).
func ExportCSV(tf *TableFile, dir string) error {
	for i, t := range tf.Tables {
		name := fmt.Sprintf("%03d_%s.csv", i, t.Name)
		if err := exportOneCSV(t, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func exportOneCSV(t Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("table: create %s: %w", path, dscserr.ErrIO)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := make([]string, len(t.Structure.Entries))
	for i, e := range t.Structure.Entries {
		header[i] = e.Name
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("table: write header for %s: %w", path, dscserr.ErrIO)
	}

	for _, row := range t.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatCell(t.Structure.Entries[i].Type, v)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("table: write row in %s: %w", path, dscserr.ErrIO)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("table: flush %s: %w", path, dscserr.ErrIO)
	}
	return nil
}

func formatCell(t EntryType, v any) string {
	switch t {
	case Bool:
		b, _ := v.(bool)
		if b {
			return "true"
		}
		return "false"
	case Int8, Int16, Int32:
		n, _ := asInt(v)
		return strconv.FormatInt(n, 10)
	case Float:
		f, _ := v.(float32)
		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	case String, String2, String3:
		s, _ := v.(string)
		return s
	case IntArray:
		arr, _ := v.([]uint32)
		parts := make([]string, len(arr))
		for i, x := range arr {
			parts[i] = strconv.FormatUint(uint64(x), 10)
		}
		return strings.Join(parts, " ")
	default: // Empty, UNK1
		return ""
	}
}

// ImportCSV reads every *.csv file in dir (sorted lexicographically)
// back into a TableFile. The table name is the filename stem with its
// leading "NNN_" index prefix stripped. resolve, if it returns a
// Structure for a table name, takes priority over the column types
// inferred from the CSV header (format spec §4.7's CSV bridge: "schema
// registry wins over header-derived typing").
func ImportCSV(dir string, resolve SchemaResolver) (*TableFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("table: read dir %s: %w", dir, dscserr.ErrIO)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".csv") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	tf := &TableFile{Tables: make([]Table, 0, len(names))}
	for _, name := range names {
		tableName := tableNameFromFilename(name)
		t, err := importOneCSV(filepath.Join(dir, name), tableName, resolve)
		if err != nil {
			return nil, err
		}
		tf.Tables = append(tf.Tables, t)
	}
	return tf, nil
}

// tableNameFromFilename strips a leading "NNN_" index prefix and the
// ".csv" suffix, matching ExportCSV's naming.
func tableNameFromFilename(filename string) string {
	stem := strings.TrimSuffix(filename, ".csv")
	if len(stem) > 4 && stem[3] == '_' {
		if _, err := strconv.Atoi(stem[:3]); err == nil {
			return stem[4:]
		}
	}
	return stem
}

func importOneCSV(path, tableName string, resolve SchemaResolver) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("table: open %s: %w", path, dscserr.ErrIO)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("table: read %s: %w", path, dscserr.ErrIO)
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("table: %s has no header row: %w", path, dscserr.ErrInvalidInput)
	}
	header := records[0]

	structure, ok := resolve(tableName)
	if !ok {
		entries := make([]StructureEntry, len(header))
		for i, h := range header {
			entries[i] = StructureEntry{Name: h, Type: String}
		}
		structure = Structure{Name: tableName, Entries: entries}
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(structure.Entries))
		for i, e := range structure.Entries {
			var cell string
			if i < len(record) {
				cell = record[i]
			}
			v, err := parseCell(e.Type, cell)
			if err != nil {
				return Table{}, fmt.Errorf("table: %s: field %q: %w", path, e.Name, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}

	return Table{Name: tableName, Structure: structure, Rows: rows}, nil
}

func parseCell(t EntryType, cell string) (any, error) {
	switch t {
	case Bool:
		return cell == "true" || cell == "1", nil
	case Int8:
		n, err := strconv.ParseInt(cell, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid int8: %w", cell, dscserr.ErrInvalidInput)
		}
		return int8(n), nil
	case Int16:
		n, err := strconv.ParseInt(cell, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid int16: %w", cell, dscserr.ErrInvalidInput)
		}
		return int16(n), nil
	case Int32:
		n, err := strconv.ParseInt(cell, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid int32: %w", cell, dscserr.ErrInvalidInput)
		}
		return int32(n), nil
	case Float:
		f, err := strconv.ParseFloat(cell, 32)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid float: %w", cell, dscserr.ErrInvalidInput)
		}
		return float32(f), nil
	case String, String2, String3:
		return cell, nil
	case IntArray:
		if strings.TrimSpace(cell) == "" {
			return []uint32(nil), nil
		}
		fields := strings.Fields(cell)
		arr := make([]uint32, len(fields))
		for i, f := range fields {
			n, err := strconv.ParseUint(f, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%q is not a valid int array: %w", cell, dscserr.ErrInvalidInput)
			}
			arr[i] = uint32(n)
		}
		return arr, nil
	default: // Empty, UNK1
		return EmptyValue{}, nil
	}
}
