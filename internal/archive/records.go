package archive

import (
	"encoding/binary"

	"github.com/kesshi/dscstools/internal/dialect"
	"github.com/kesshi/dscstools/internal/trie"
)

// treeEntrySize returns the serialized byte size of one TreeEntry for w.
func treeEntrySize(w dialect.Widths) int { return 4 * w.TreeEntryFieldWidth }

// dataEntrySize returns the serialized byte size of one DataEntry for w.
func dataEntrySize(w dialect.Widths) int { return 3 * w.DataEntryFieldWidth }

func putUint(b []byte, width int, v uint64) {
	switch width {
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(b, v)
	default:
		panic("archive: unsupported field width")
	}
}

func getUint(b []byte, width int) uint64 {
	switch width {
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	case 8:
		return binary.LittleEndian.Uint64(b)
	default:
		panic("archive: unsupported field width")
	}
}

// sentinelUint is the on-disk stand-in for trie.Sentinel: all bits set
// within the field's width, matching the reference format's use of -1
// cast to an unsigned width.
func sentinelUint(width int) uint64 {
	switch width {
	case 2:
		return 0xFFFF
	case 4:
		return 0xFFFFFFFF
	default:
		return 0xFFFFFFFFFFFFFFFF
	}
}

func encodeSigned(width int, v int) uint64 {
	if v == trie.Sentinel {
		return sentinelUint(width)
	}
	return uint64(v)
}

func decodeSigned(width int, raw uint64) int {
	if raw == sentinelUint(width) {
		return trie.Sentinel
	}
	return int(raw)
}

// putTreeEntry serializes one TreeEntry into b (which must be at least
// treeEntrySize(w) long).
func putTreeEntry(b []byte, w dialect.Widths, n trie.Node) {
	fw := w.TreeEntryFieldWidth
	putUint(b[0*fw:], fw, encodeSigned(fw, n.CompareBit))
	putUint(b[1*fw:], fw, encodeSigned(fw, n.DataID))
	putUint(b[2*fw:], fw, uint64(n.Left))
	putUint(b[3*fw:], fw, uint64(n.Right))
}

// getTreeEntry deserializes one TreeEntry from b.
func getTreeEntry(b []byte, w dialect.Widths) trie.Node {
	fw := w.TreeEntryFieldWidth
	return trie.Node{
		CompareBit: decodeSigned(fw, getUint(b[0*fw:], fw)),
		DataID:     decodeSigned(fw, getUint(b[1*fw:], fw)),
		Left:       int(getUint(b[2*fw:], fw)),
		Right:      int(getUint(b[3*fw:], fw)),
	}
}

// dataEntry is the serialized (offset, fullSize, compressedSize) triple
// describing one physical payload blob (format spec §3.1).
type dataEntry struct {
	Offset         uint64
	FullSize       uint64
	CompressedSize uint64
}

func putDataEntry(b []byte, w dialect.Widths, e dataEntry) {
	fw := w.DataEntryFieldWidth
	putUint(b[0*fw:], fw, e.Offset)
	putUint(b[1*fw:], fw, e.FullSize)
	putUint(b[2*fw:], fw, e.CompressedSize)
}

func getDataEntry(b []byte, w dialect.Widths) dataEntry {
	fw := w.DataEntryFieldWidth
	return dataEntry{
		Offset:         getUint(b[0*fw:], fw),
		FullSize:       getUint(b[1*fw:], fw),
		CompressedSize: getUint(b[2*fw:], fw),
	}
}
