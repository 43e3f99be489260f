// Package audiobank implements the auxiliary audio-bank packer: simple
// concatenation of input files behind a two-field header. The format
// specification marks the audio bank out of scope beyond this ("simple
// concatenation with a two-field header"), so this package does not
// attempt to reproduce any real audio-bank internals — only enough to
// serve the pack-audio/unpack-audio CLI commands.
package audiobank

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kesshi/dscstools/internal/dscserr"
)

// entry is one bank member: its size and, during Pack, its source path.
type entry struct {
	size int64
	path string
}

// Pack concatenates every regular file directly under srcDir (sorted by
// name) into a single bank: a u32 entry count, a u32 size per entry,
// then each entry's raw bytes back to back.
func Pack(srcDir string) ([]byte, error) {
	files, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, fmt.Errorf("audiobank: read dir %s: %w", srcDir, dscserr.ErrIO)
	}

	var entries []entry
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		path := filepath.Join(srcDir, f.Name())
		info, err := f.Info()
		if err != nil {
			return nil, fmt.Errorf("audiobank: stat %s: %w", path, dscserr.ErrIO)
		}
		entries = append(entries, entry{size: info.Size(), path: path})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	var out []byte
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(entries)))
	out = append(out, header[:]...)
	for _, e := range entries {
		var sizeBuf [4]byte
		binary.LittleEndian.PutUint32(sizeBuf[:], uint32(e.size))
		out = append(out, sizeBuf[:]...)
	}
	for _, e := range entries {
		data, err := os.ReadFile(e.path)
		if err != nil {
			return nil, fmt.Errorf("audiobank: read %s: %w", e.path, dscserr.ErrIO)
		}
		out = append(out, data...)
	}
	return out, nil
}

// Unpack splits a bank produced by Pack back into numbered files
// ("000.bin", "001.bin", ...) under dstDir.
func Unpack(data []byte, dstDir string) error {
	if len(data) < 4 {
		return fmt.Errorf("audiobank: truncated header: %w", dscserr.ErrCorruptIndex)
	}
	count := binary.LittleEndian.Uint32(data)
	pos := 4

	if pos+int(count)*4 > len(data) {
		return fmt.Errorf("audiobank: truncated size table: %w", dscserr.ErrCorruptIndex)
	}
	sizes := make([]uint32, count)
	for i := range sizes {
		sizes[i] = binary.LittleEndian.Uint32(data[pos:])
		pos += 4
	}

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("audiobank: create %s: %w", dstDir, dscserr.ErrIO)
	}

	for i, size := range sizes {
		if pos+int(size) > len(data) {
			return fmt.Errorf("audiobank: entry %d runs past EOF: %w", i, dscserr.ErrCorruptIndex)
		}
		name := fmt.Sprintf("%03d.bin", i)
		if err := os.WriteFile(filepath.Join(dstDir, name), data[pos:pos+int(size)], 0o644); err != nil {
			return fmt.Errorf("audiobank: write %s: %w", name, dscserr.ErrIO)
		}
		pos += int(size)
	}
	return nil
}
