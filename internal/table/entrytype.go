// Package table implements the TableFile engine: a schema-driven row
// codec with fixed-stride rows, bit-packed booleans, and out-of-line
// "chunk" storage for variable-length fields (format spec §3.2, §4.7,
// §4.8), plus a CSV import/export bridge (format spec §4.7's CSV
// bridge subsection).
package table

// EntryType is the tagged kind of a table cell. Numeric values match
// the reference format's on-disk type tags (original_source's
// EXPA.h enum), since DSTS/THL schemas embed these tags inline.
type EntryType int

const (
	IntArray EntryType = iota // count:u32, pad:u32, pointer:u64 — chunk-backed
	UNK1                      // width 0; behavior unspecified by format spec §9's open question
	Int32
	Int16
	Int8
	Float
	String3 // 8-byte pointer slot, chunk-backed
	String  // 8-byte pointer slot, chunk-backed
	String2 // 8-byte pointer slot, chunk-backed
	Bool    // packed into 32-bit groups, see Pack/Unpack
	Empty   // width 0, placeholder
)

// Width returns the cell's raw (pre-bit-packing) byte width, or 0 for
// types with no row-inline storage of their own (BOOL packs into a
// shared accumulator; EMPTY/UNK1 reserve nothing).
func (t EntryType) Width() int {
	switch t {
	case Int8:
		return 1
	case Int16:
		return 2
	case Int32, Float:
		return 4
	case String, String2, String3:
		return 8
	case IntArray:
		return 16
	default: // Bool, Empty, UNK1
		return 0
	}
}

// Align returns the cell's required row-offset alignment (format spec
// §3.2's type table).
func (t EntryType) Align() int {
	switch t {
	case Int8:
		return 1
	case Int16:
		return 2
	case Int32, Float, Bool:
		return 4
	case String, String2, String3, IntArray:
		return 8
	default: // Empty, UNK1
		return 1
	}
}

// IsString reports whether t is one of the three string-like variants,
// all identically chunk-backed.
func (t EntryType) IsString() bool {
	return t == String || t == String2 || t == String3
}

func (t EntryType) String() string {
	switch t {
	case IntArray:
		return "int array"
	case UNK1:
		return "unk1"
	case Int32:
		return "int32"
	case Int16:
		return "int16"
	case Int8:
		return "int8"
	case Float:
		return "float"
	case String3:
		return "string3"
	case String:
		return "string"
	case String2:
		return "string2"
	case Bool:
		return "bool"
	case Empty:
		return "empty"
	default:
		return "unknown"
	}
}
