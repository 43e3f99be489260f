package table

import (
	"encoding/binary"
	"fmt"

	"github.com/kesshi/dscstools/internal/dialect"
	"github.com/kesshi/dscstools/internal/dscserr"
)

const (
	expaMagic uint32 = 0x41505845
	chnkMagic uint32 = 0x4B4E4843
)

// Table is one named, typed table within a TableFile.
type Table struct {
	Name      string
	Structure Structure
	Rows      []Row
}

// TableFile is the outer container: an ordered list of Tables backed
// by a trailing chunk section (format spec §3.2, §4.8).
type TableFile struct {
	Tables []Table
}

// SchemaResolver looks up the Structure to use for tableName. Callers
// typically close over a *schema.Registry's Resolve method; defined
// here (rather than importing internal/schema) to avoid a package
// cycle, since schema itself depends on table's types.
type SchemaResolver func(tableName string) (Structure, bool)

func align(n, step int) int {
	if rem := n % step; rem != 0 {
		return n + (step - rem)
	}
	return n
}

// Read parses a TableFile from data for dialect d (format spec §4.8's
// reader). resolve supplies the Structure for each table name; if it
// returns ok=false for a table, the Structure is built from the table's
// inline field-type list (DSTS/THL), with fields named field0, field1,
// and so on. Dialects without an inline list get an empty Structure
// there, so Read fails with ErrSchemaMismatch unless the file's row
// size is 0.
func Read(data []byte, d dialect.Dialect, resolve SchemaResolver) (*TableFile, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("table: truncated EXPA header: %w", dscserr.ErrCorruptIndex)
	}
	if binary.LittleEndian.Uint32(data) != expaMagic {
		return nil, fmt.Errorf("table: bad EXPA magic: %w", dscserr.ErrBadMagic)
	}
	tableCount := binary.LittleEndian.Uint32(data[4:])
	pos := 8

	type tableMeta struct {
		name      string
		structure Structure
		rowCount  int
		dataStart int
		rawSize   int
	}
	metas := make([]tableMeta, 0, tableCount)

	for t := uint32(0); t < tableCount; t++ {
		pos = align(pos, d.TableAlignment)
		if pos+4 > len(data) {
			return nil, fmt.Errorf("table: truncated table header: %w", dscserr.ErrCorruptIndex)
		}
		nameLen := int(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4
		if pos+nameLen > len(data) {
			return nil, fmt.Errorf("table: truncated table name: %w", dscserr.ErrCorruptIndex)
		}
		name := cStringFrom(data[pos : pos+nameLen])
		pos += nameLen

		var inlineTypes []EntryType
		if d.InlineFieldTypes {
			if pos+4 > len(data) {
				return nil, fmt.Errorf("table: truncated field count: %w", dscserr.ErrCorruptIndex)
			}
			fieldCount := int(binary.LittleEndian.Uint32(data[pos:]))
			pos += 4
			if pos+fieldCount*4 > len(data) {
				return nil, fmt.Errorf("table: truncated field type list: %w", dscserr.ErrCorruptIndex)
			}
			inlineTypes = make([]EntryType, fieldCount)
			for i := 0; i < fieldCount; i++ {
				inlineTypes[i] = EntryType(binary.LittleEndian.Uint32(data[pos:]))
				pos += 4
			}
		}

		if pos+8 > len(data) {
			return nil, fmt.Errorf("table: truncated structure/row counts: %w", dscserr.ErrCorruptIndex)
		}
		rawSize := int(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4
		rowCount := int(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4

		pos = align(pos, 8)

		structure, ok := resolve(name)
		if !ok {
			structure = inlineStructure(name, inlineTypes)
		}
		if structure.ExpaSize() != ceil8(rawSize) {
			return nil, fmt.Errorf("table: %s: schema row stride %d != file row stride %d: %w",
				name, structure.ExpaSize(), ceil8(rawSize), dscserr.ErrSchemaMismatch)
		}

		stride := structure.ExpaSize()
		dataStart := pos
		pos += rowCount * stride
		if pos > len(data) {
			return nil, fmt.Errorf("table: %s: row data runs past EOF: %w", name, dscserr.ErrCorruptIndex)
		}

		metas = append(metas, tableMeta{name: name, structure: structure, rowCount: rowCount, dataStart: dataStart, rawSize: rawSize})
	}

	pos = align(pos, d.TableAlignment)
	if pos+8 > len(data) {
		return nil, fmt.Errorf("table: truncated CHNK header: %w", dscserr.ErrCorruptIndex)
	}
	if binary.LittleEndian.Uint32(data[pos:]) != chnkMagic {
		return nil, fmt.Errorf("table: bad CHNK magic: %w", dscserr.ErrBadMagic)
	}
	chunkCount := binary.LittleEndian.Uint32(data[pos+4:])
	pos += 8

	chunkByOffset := make(map[int64][]byte, chunkCount)
	for i := uint32(0); i < chunkCount; i++ {
		if pos+8 > len(data) {
			return nil, fmt.Errorf("table: truncated chunk entry: %w", dscserr.ErrCorruptIndex)
		}
		slotOffset := int64(binary.LittleEndian.Uint32(data[pos:]))
		payloadSize := int(binary.LittleEndian.Uint32(data[pos+4:]))
		pos += 8
		if pos+payloadSize > len(data) {
			return nil, fmt.Errorf("table: chunk payload runs past EOF: %w", dscserr.ErrCorruptIndex)
		}
		chunkByOffset[slotOffset] = data[pos : pos+payloadSize]
		pos += payloadSize
	}

	resolveChunk := func(absOffset int64) ([]byte, bool) {
		p, ok := chunkByOffset[absOffset]
		return p, ok
	}

	tf := &TableFile{Tables: make([]Table, len(metas))}
	for i, m := range metas {
		rows := make([]Row, m.rowCount)
		stride := m.structure.ExpaSize()
		for r := 0; r < m.rowCount; r++ {
			off := m.dataStart + r*stride
			row, err := Unpack(m.structure, data[off:off+stride], int64(off), resolveChunk)
			if err != nil {
				return nil, fmt.Errorf("table: %s row %d: %w", m.name, r, err)
			}
			rows[r] = row
		}
		tf.Tables[i] = Table{Name: m.name, Structure: m.structure, Rows: rows}
	}
	return tf, nil
}

// inlineStructure builds a Structure with anonymous field names from a
// DSTS/THL table's inline type-tag list, used when no schema resolves
// the table by name.
func inlineStructure(name string, types []EntryType) Structure {
	entries := make([]StructureEntry, len(types))
	for i, t := range types {
		entries[i] = StructureEntry{Name: fmt.Sprintf("field%d", i), Type: t}
	}
	return Structure{Name: name, Entries: entries}
}

// Write serializes tf for dialect d (format spec §4.8's writer, the
// inverse of Read).
func Write(tf *TableFile, d dialect.Dialect) ([]byte, error) {
	var out []byte
	putU32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		out = append(out, b[:]...)
	}
	padTo := func(step int) {
		if rem := len(out) % step; rem != 0 {
			out = append(out, make([]byte, step-rem)...)
		}
	}

	putU32(expaMagic)
	putU32(uint32(len(tf.Tables)))

	type pendingChunk struct {
		absOffset int
		payload   []byte
	}
	var chunks []pendingChunk

	for _, t := range tf.Tables {
		padTo(d.TableAlignment)
		nameLen := align(len(t.Name)+1, 4)
		putU32(uint32(nameLen))
		nameBytes := make([]byte, nameLen)
		copy(nameBytes, t.Name)
		out = append(out, nameBytes...)

		if d.InlineFieldTypes {
			putU32(uint32(len(t.Structure.Entries)))
			for _, e := range t.Structure.Entries {
				putU32(uint32(e.Type))
			}
		}

		putU32(uint32(t.Structure.RawSize()))
		putU32(uint32(len(t.Rows)))
		padTo(8)

		stride := t.Structure.ExpaSize()
		for _, row := range t.Rows {
			rowStart := len(out)
			packed, rowChunks, err := Pack(t.Structure, row)
			if err != nil {
				return nil, fmt.Errorf("table: %s: %w", t.Name, err)
			}
			if len(packed) != stride {
				return nil, fmt.Errorf("table: %s: packed row is %d bytes, want %d: %w",
					t.Name, len(packed), stride, dscserr.ErrSchemaMismatch)
			}
			out = append(out, packed...)
			for _, c := range rowChunks {
				chunks = append(chunks, pendingChunk{absOffset: rowStart + c.Offset, payload: c.Payload})
			}
		}
	}

	padTo(d.TableAlignment)
	putU32(chnkMagic)
	putU32(uint32(len(chunks)))
	for _, c := range chunks {
		putU32(uint32(c.absOffset))
		putU32(uint32(len(c.payload)))
		out = append(out, c.payload...)
	}

	return out, nil
}
