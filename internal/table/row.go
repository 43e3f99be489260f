package table

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/kesshi/dscstools/internal/dscserr"
)

// Row is one record: a list of typed values parallel to a Structure's
// entries. Values hold Go-native types per EntryType: int8/int16/int32
// for the integer kinds, float32, bool, string for the three STRING
// variants, []uint32 for INT_ARRAY, and EmptyValue{} for EMPTY/UNK1.
type Row []any

// EmptyValue is the Row cell value for EMPTY and UNK1 fields: neither
// type has any on-disk representation to read back, so both decode to
// this sentinel rather than nil, keeping every Row index populated.
type EmptyValue struct{}

// ChunkEntry is one out-of-line payload produced by Pack: Offset is
// the byte offset, within the packed row, of the pointer slot this
// payload belongs to (format spec §4.7 — the caller, typically the
// TableFile writer, adds the row's own file offset before recording
// this in the CHNK section).
type ChunkEntry struct {
	Offset  int
	Payload []byte
}

// Pack serializes row into a Structure.ExpaSize()-byte buffer plus any
// chunk entries for its variable-length fields (format spec §4.7's
// packing algorithm).
func Pack(s Structure, row Row) ([]byte, []ChunkEntry, error) {
	if len(row) != len(s.Entries) {
		return nil, nil, fmt.Errorf("table: row has %d values, structure has %d fields: %w",
			len(row), len(s.Entries), dscserr.ErrSchemaMismatch)
	}

	size := s.ExpaSize()
	buf := make([]byte, size)
	var chunks []ChunkEntry
	var packErr error

	i := 0
	walk(s.Entries, func(step walkStep) {
		if packErr != nil {
			return
		}
		v := row[i]
		i++

		switch step.entry.Type {
		case Bool:
			if v != nil {
				b, ok := v.(bool)
				if !ok {
					packErr = fmt.Errorf("table: field %q: expected bool, got %T: %w", step.entry.Name, v, dscserr.ErrSchemaMismatch)
					return
				}
				if b {
					word := binary.LittleEndian.Uint32(buf[step.offset:])
					word |= 1 << uint(step.bit)
					binary.LittleEndian.PutUint32(buf[step.offset:], word)
				}
			}
		case Int8:
			n, err := asInt(v)
			if err != nil {
				packErr = wrapField(step.entry.Name, err)
				return
			}
			buf[step.offset] = byte(n)
		case Int16:
			n, err := asInt(v)
			if err != nil {
				packErr = wrapField(step.entry.Name, err)
				return
			}
			binary.LittleEndian.PutUint16(buf[step.offset:], uint16(n))
		case Int32:
			n, err := asInt(v)
			if err != nil {
				packErr = wrapField(step.entry.Name, err)
				return
			}
			binary.LittleEndian.PutUint32(buf[step.offset:], uint32(n))
		case Float:
			f, ok := v.(float32)
			if !ok {
				packErr = fmt.Errorf("table: field %q: expected float32, got %T: %w", step.entry.Name, v, dscserr.ErrSchemaMismatch)
				return
			}
			binary.LittleEndian.PutUint32(buf[step.offset:], math.Float32bits(f))
		case String, String2, String3:
			s, _ := v.(string)
			if s != "" {
				payload := append([]byte(s), 0, 0)
				for len(payload)%4 != 0 {
					payload = append(payload, 0)
				}
				chunks = append(chunks, ChunkEntry{Offset: step.offset, Payload: payload})
			}
		case IntArray:
			arr, _ := v.([]uint32)
			binary.LittleEndian.PutUint32(buf[step.offset:], uint32(len(arr)))
			if len(arr) > 0 {
				payload := make([]byte, len(arr)*4)
				for j, x := range arr {
					binary.LittleEndian.PutUint32(payload[j*4:], x)
				}
				chunks = append(chunks, ChunkEntry{Offset: step.offset + 8, Payload: payload})
			}
		case Empty, UNK1:
			// nothing stored
		}
	})
	if packErr != nil {
		return nil, nil, packErr
	}
	return buf, chunks, nil
}

func wrapField(name string, err error) error {
	return fmt.Errorf("table: field %q: %w", name, err)
}

func asInt(v any) (int64, error) {
	switch n := v.(type) {
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected an integer value, got %T: %w", v, dscserr.ErrSchemaMismatch)
	}
}

// ChunkResolver looks up the out-of-line payload recorded for the
// pointer slot at absFileOffset (rowFileOffset + the field's offset
// within the row). This stands in for the reference implementation's
// raw-pointer patch: callers retain payload bytes in a chunk arena and
// hand back a slice, never an address (format spec §9's mandatory
// redesign).
type ChunkResolver func(absFileOffset int64) ([]byte, bool)

// Unpack deserializes data (exactly s.ExpaSize() bytes) back into a
// Row. rowFileOffset is the row's own absolute offset in the
// TableFile, needed to resolve chunk-backed fields via resolve.
func Unpack(s Structure, data []byte, rowFileOffset int64, resolve ChunkResolver) (Row, error) {
	if len(data) != s.ExpaSize() {
		return nil, fmt.Errorf("table: row buffer is %d bytes, want %d: %w", len(data), s.ExpaSize(), dscserr.ErrSchemaMismatch)
	}

	row := make(Row, len(s.Entries))
	i := 0
	walk(s.Entries, func(step walkStep) {
		idx := i
		i++
		switch step.entry.Type {
		case Bool:
			word := binary.LittleEndian.Uint32(data[step.offset:])
			row[idx] = (word>>uint(step.bit))&1 == 1
		case Int8:
			row[idx] = int8(data[step.offset])
		case Int16:
			row[idx] = int16(binary.LittleEndian.Uint16(data[step.offset:]))
		case Int32:
			row[idx] = int32(binary.LittleEndian.Uint32(data[step.offset:]))
		case Float:
			row[idx] = math.Float32frombits(binary.LittleEndian.Uint32(data[step.offset:]))
		case String, String2, String3:
			payload, ok := resolve(rowFileOffset + int64(step.offset))
			if !ok || len(payload) == 0 {
				row[idx] = ""
				return
			}
			row[idx] = cStringFrom(payload)
		case IntArray:
			count := binary.LittleEndian.Uint32(data[step.offset:])
			if count == 0 {
				row[idx] = []uint32(nil)
				return
			}
			payload, ok := resolve(rowFileOffset + int64(step.offset+8))
			if !ok {
				row[idx] = []uint32(nil)
				return
			}
			out := make([]uint32, 0, count)
			for off := 0; off+4 <= len(payload) && uint32(len(out)) < count; off += 4 {
				out = append(out, binary.LittleEndian.Uint32(payload[off:]))
			}
			row[idx] = out
		case Empty, UNK1:
			row[idx] = EmptyValue{}
		}
	})
	return row, nil
}

// cStringFrom returns the NUL-terminated prefix of payload as a string.
func cStringFrom(payload []byte) string {
	for i, b := range payload {
		if b == 0 {
			return string(payload[:i])
		}
	}
	return string(payload)
}
