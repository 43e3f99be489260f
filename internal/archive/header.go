package archive

import (
	"encoding/binary"

	"github.com/kesshi/dscstools/internal/dialect"
)

const (
	// MagicPlain marks an archive stream with no whole-file obfuscation.
	MagicPlain uint32 = 0x3142444D
	// MagicObfuscated marks an archive stream obfuscated per
	// internal/obfuscate, keyed by absolute stream offset.
	MagicObfuscated uint32 = 0x608D920C
)

// header is the archive's fixed leading record (format spec §6.1).
// fileEntryCount/fileNameCount use the dialect's HeaderCountWidth;
// dataEntryCount is always 32 bits; dataStart/totalSize use the
// dialect's HeaderOffsetWidth.
type header struct {
	Magic           uint32
	FileEntryCount  uint32
	FileNameCount   uint32
	DataEntryCount  uint32
	DataStart       uint64
	TotalSize       uint64
}

// headerSize returns the serialized byte size of the header for w.
func headerSize(w dialect.Widths) int {
	return 4 + 2*w.HeaderCountWidth + 4 + 2*w.HeaderOffsetWidth
}

func putHeader(b []byte, w dialect.Widths, h header) {
	binary.LittleEndian.PutUint32(b, h.Magic)
	off := 4
	putUint(b[off:], w.HeaderCountWidth, uint64(h.FileEntryCount))
	off += w.HeaderCountWidth
	putUint(b[off:], w.HeaderCountWidth, uint64(h.FileNameCount))
	off += w.HeaderCountWidth
	binary.LittleEndian.PutUint32(b[off:], h.DataEntryCount)
	off += 4
	putUint(b[off:], w.HeaderOffsetWidth, h.DataStart)
	off += w.HeaderOffsetWidth
	putUint(b[off:], w.HeaderOffsetWidth, h.TotalSize)
}

func getHeader(b []byte, w dialect.Widths) header {
	var h header
	h.Magic = binary.LittleEndian.Uint32(b)
	off := 4
	h.FileEntryCount = uint32(getUint(b[off:], w.HeaderCountWidth))
	off += w.HeaderCountWidth
	h.FileNameCount = uint32(getUint(b[off:], w.HeaderCountWidth))
	off += w.HeaderCountWidth
	h.DataEntryCount = binary.LittleEndian.Uint32(b[off:])
	off += 4
	h.DataStart = getUint(b[off:], w.HeaderOffsetWidth)
	off += w.HeaderOffsetWidth
	h.TotalSize = getUint(b[off:], w.HeaderOffsetWidth)
	return h
}
