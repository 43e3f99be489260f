// Package archive implements the PATRICIA-trie-indexed archive format
// described in the design's Archive reader/writer components (format
// spec §3.1, §4.3-§4.5): header parsing, trie-backed lookup, streaming
// or parallel extraction, and deterministic repacking.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/exp/mmap"

	"github.com/kesshi/dscstools/internal/compress"
	"github.com/kesshi/dscstools/internal/dialect"
	"github.com/kesshi/dscstools/internal/dscserr"
	"github.com/kesshi/dscstools/internal/obfuscate"
	"github.com/kesshi/dscstools/internal/trie"
	"github.com/kesshi/dscstools/internal/workerpool"
)

// Entry describes one file slot after Index: its key, its DataEntry
// (absent for purely structural slots), and whether it's payload-
// bearing at all.
type Entry struct {
	Key        []byte
	RelPath    string
	HasPayload bool

	// DataID is the index into the archive's DataEntry table this
	// entry's payload was assigned; entries with identical content
	// written under ADVANCED dedup share a DataID (format spec §8's
	// deduplication property).
	DataID int

	data dataEntry
}

// Reader holds a parsed archive's in-memory index, built once and
// thereafter read-only so concurrent extraction jobs may share it by
// reference (format spec §5's mutability discipline).
type Reader struct {
	ra         *mmap.ReaderAt
	size       int64
	obfuscated bool
	dialect    dialect.Dialect

	nodes   []trie.Node
	entries []Entry // parallel to nodes, indexed by the same slot
	dataEnt []dataEntry

	dataStart uint64
}

// Open memory-maps path read-only, detects the magic, and builds the
// in-memory index (format spec §4.4's Open + Index steps).
func Open(path string, d dialect.Dialect) (*Reader, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	r := &Reader{ra: ra, size: int64(ra.Len()), dialect: d}
	if err := r.index(); err != nil {
		ra.Close()
		return nil, err
	}
	return r, nil
}

// Close releases the archive's memory mapping.
func (r *Reader) Close() error {
	return r.ra.Close()
}

func (r *Reader) readAt(buf []byte, offset int64) error {
	if _, err := r.ra.ReadAt(buf, offset); err != nil {
		return fmt.Errorf("archive: read at %d: %w: %w", offset, dscserr.ErrIO, err)
	}
	if r.obfuscated {
		obfuscate.XorInto(buf, buf, offset)
	}
	return nil
}

func (r *Reader) index() error {
	if r.size < 4 {
		return fmt.Errorf("archive: truncated header: %w", dscserr.ErrBadMagic)
	}
	var magicBuf [4]byte
	if _, err := r.ra.ReadAt(magicBuf[:], 0); err != nil {
		return fmt.Errorf("archive: read magic: %w", dscserr.ErrIO)
	}
	magic := uint32(magicBuf[0]) | uint32(magicBuf[1])<<8 | uint32(magicBuf[2])<<16 | uint32(magicBuf[3])<<24
	switch magic {
	case MagicObfuscated:
		r.obfuscated = true
	case MagicPlain:
		r.obfuscated = false
	default:
		return fmt.Errorf("archive: magic %#x: %w", magic, dscserr.ErrBadMagic)
	}

	w := r.dialect.Widths
	hs := headerSize(w)
	// The 4 magic bytes are never obfuscated — they're how Open decides
	// whether obfuscation applies at all — so they're copied in as-read
	// and only the remainder is run through readAt's XOR path, keyed by
	// its true absolute offset (4), not offset 0.
	hbuf := make([]byte, hs)
	copy(hbuf[:4], magicBuf[:])
	if err := r.readAt(hbuf[4:], 4); err != nil {
		return err
	}
	h := getHeader(hbuf, w)
	h.Magic = magic

	if h.FileEntryCount != h.FileNameCount {
		return fmt.Errorf("archive: fileEntryCount %d != fileNameCount %d: %w",
			h.FileEntryCount, h.FileNameCount, dscserr.ErrCorruptIndex)
	}
	n := int64(h.FileEntryCount)
	if n < 1 {
		return fmt.Errorf("archive: empty tree table: %w", dscserr.ErrCorruptIndex)
	}

	off := int64(hs)
	treeSize := treeEntrySize(w)
	nodes := make([]trie.Node, n)
	for i := int64(0); i < n; i++ {
		buf := make([]byte, treeSize)
		if err := r.readAt(buf, off); err != nil {
			return err
		}
		nodes[i] = getTreeEntry(buf, w)
		off += int64(treeSize)
	}

	names := make([][]byte, n)
	for i := int64(0); i < n; i++ {
		buf := make([]byte, w.KeyLength)
		if err := r.readAt(buf, off); err != nil {
			return err
		}
		names[i] = buf
		nodes[i].Key = buf
		off += int64(w.KeyLength)
	}

	dataCount := int64(h.DataEntryCount)
	deSize := dataEntrySize(w)
	dataEnt := make([]dataEntry, dataCount)
	for i := int64(0); i < dataCount; i++ {
		buf := make([]byte, deSize)
		if err := r.readAt(buf, off); err != nil {
			return err
		}
		dataEnt[i] = getDataEntry(buf, w)
		off += int64(deSize)
	}

	if h.DataStart < uint64(off) {
		return fmt.Errorf("archive: dataStart %d before table end %d: %w", h.DataStart, off, dscserr.ErrCorruptIndex)
	}

	// Slot 0 is always the root placeholder Build emits; every other
	// slot is always a real file node, even when its CompareBit is
	// itself trie.Sentinel (see trie.insert's first-leaf case) — so
	// payload-bearing is a slot-index check, not a CompareBit check.
	entries := make([]Entry, n)
	for i := int64(0); i < n; i++ {
		node := nodes[i]
		e := Entry{Key: names[i]}
		if i != 0 && node.DataID != trie.Sentinel && node.DataID < int(dataCount) {
			e.HasPayload = true
			e.DataID = node.DataID
			e.data = dataEnt[node.DataID]
			e.RelPath = relPathFromKey(names[i])
		}
		entries[i] = e
	}

	r.nodes = nodes
	r.entries = entries
	r.dataEnt = dataEnt
	r.dataStart = h.DataStart
	return nil
}

// relPathFromKey reverses MakeKey as far as it's reversible (format
// spec §3.1 notes the key is reversible "up to case and to these
// substitutions"): ext in the first 4 bytes, backslashes restored to
// forward slashes, trailing NULs trimmed.
func relPathFromKey(key []byte) string {
	ext := trimRight(key[:4], ' ')
	stem := trimRight(key[4:], 0)
	for i, b := range stem {
		if b == '\\' {
			stem[i] = '/'
		}
	}
	if len(ext) == 0 {
		return string(stem)
	}
	return string(stem) + "." + string(ext)
}

func trimRight(b []byte, pad byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == pad {
		end--
	}
	out := make([]byte, end)
	copy(out, b[:end])
	return out
}

// Lookup finds relPath's Entry via trie traversal (format spec §4.4).
// ok is false if relPath isn't present. trie.Lookup resolves to the
// terminating node's slot, which indexes r.entries directly; the
// DataEntry itself (and whether it's shared with other slots under
// dedup) lives on the returned Entry's DataID.
func (r *Reader) Lookup(relPath string) (Entry, bool) {
	key := MakeKey(relPath, r.dialect.Widths.KeyLength)
	slot, ok := trie.Lookup(r.nodes, key)
	if !ok {
		return Entry{}, false
	}
	return r.entries[slot], true
}

// Entries returns every payload-bearing slot in the archive, in
// on-disk slot order.
func (r *Reader) Entries() []Entry {
	var out []Entry
	for _, e := range r.entries {
		if e.HasPayload {
			out = append(out, e)
		}
	}
	return out
}

// ExtractOne streams entry e's payload (raw copy when decompress is
// false or the entry isn't actually compressed, decompressed
// otherwise) to outPath, creating parent directories as needed (format
// spec §4.4's Extract one).
func (r *Reader) ExtractOne(e Entry, outPath string, decompress bool) error {
	if !e.HasPayload {
		return fmt.Errorf("archive: %s has no payload: %w", e.RelPath, dscserr.ErrInvalidInput)
	}
	absOffset := int64(r.dataStart) + int64(e.data.Offset)

	var out []byte
	if e.data.CompressedSize == e.data.FullSize || !decompress {
		size := e.data.CompressedSize
		if decompress {
			size = e.data.FullSize
		}
		out = make([]byte, size)
		if err := r.readAt(out, absOffset); err != nil {
			return err
		}
	} else {
		buf := make([]byte, e.data.CompressedSize)
		if err := r.readAt(buf, absOffset); err != nil {
			return err
		}
		c := compress.For(r.dialect.Compressor)
		decoded, err := c.Decompress(buf, int(e.data.FullSize))
		if err != nil {
			return fmt.Errorf("archive: decompress %s: %w", e.RelPath, err)
		}
		out = decoded
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("archive: mkdir for %s: %w", outPath, dscserr.ErrIO)
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fmt.Errorf("archive: write %s: %w", outPath, dscserr.ErrIO)
	}
	return nil
}

// ExtractAllOptions controls ExtractAll's parallelism.
type ExtractAllOptions struct {
	// Workers bounds concurrent extraction jobs. 0 means unbounded.
	Workers int
	// Decompress matches ExtractOne's flag, applied to every entry.
	Decompress bool
	// OnError is called for each per-entry failure; if nil, every entry
	// is still attempted and ExtractAll returns the per-entry errors
	// joined (format spec §7's propagation policy expects per-file
	// failures to be logged and skipped in batch operations, which
	// callers implement via this hook).
	OnError func(e Entry, err error)
}

// ExtractAll writes every payload-bearing entry under outDir, its
// relative path taken from the reconstructed key. Entries are sorted by
// ascending payload offset first (streaming-friendly even when workers
// run in parallel), then dispatched to a bounded worker pool with a
// write-concurrency semaphore, per format spec §4.4's parallel
// extraction design.
func (r *Reader) ExtractAll(outDir string, opts ExtractAllOptions) error {
	entries := append([]Entry(nil), r.Entries()...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].data.Offset < entries[j].data.Offset })

	pool := workerpool.New(opts.Workers)
	writers := workerpool.NewWriteSemaphore(workerpool.DefaultWriters())

	for _, e := range entries {
		e := e
		pool.Go(func() error {
			outPath := filepath.Join(outDir, filepath.FromSlash(e.RelPath))
			writers.Acquire()
			err := r.ExtractOne(e, outPath, opts.Decompress)
			writers.Release()
			if err != nil && opts.OnError != nil {
				opts.OnError(e, err)
				return nil
			}
			return err
		})
	}
	return pool.Wait()
}
