package archive

import (
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/kesshi/dscstools/internal/compress"
	"github.com/kesshi/dscstools/internal/dialect"
	"github.com/kesshi/dscstools/internal/dscserr"
	"github.com/kesshi/dscstools/internal/obfuscate"
	"github.com/kesshi/dscstools/internal/trie"
	"github.com/kesshi/dscstools/internal/workerpool"
)

// CompressMode selects how aggressively Write compresses and
// deduplicates payloads (format spec §4.5).
type CompressMode int

const (
	// CompressNone stores every file's raw bytes unmodified.
	CompressNone CompressMode = iota
	// CompressNormal compresses eligible files but never deduplicates.
	CompressNormal
	// CompressAdvanced compresses and deduplicates identical payloads
	// by CRC-32 of their raw bytes.
	CompressAdvanced
)

// WriteOptions controls Write's parallelism and compression policy.
type WriteOptions struct {
	Mode    CompressMode
	Workers int // 0 means unbounded
}

type jobResult struct {
	relPath    string
	raw        []byte
	dataBytes  []byte
	checksum   uint32
}

// Write enumerates regular files under srcDir, builds the trie index,
// and emits a byte-stable archive at targetPath for dialect d (format
// spec §4.5). The target is written to a temporary sibling and renamed
// atomically on success — the reference implementation's "header
// placeholder written then rewritten" is allowed, but only behind this
// atomic rename (format spec §7, §9).
func Write(srcDir, targetPath string, d dialect.Dialect, opts WriteOptions) error {
	relPaths, err := enumerateFiles(srcDir)
	if err != nil {
		return err
	}
	if len(relPaths) == 0 {
		return fmt.Errorf("archive: %s contains no files: %w", srcDir, dscserr.ErrInvalidInput)
	}

	w := d.Widths
	type keyed struct {
		relPath string
		key     []byte
	}
	pairs := make([]keyed, len(relPaths))
	for i, rp := range relPaths {
		pairs[i] = keyed{relPath: rp, key: MakeKey(rp, w.KeyLength)}
	}
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i].key, pairs[j].key
		if c := compareTail(a[4:], b[4:]); c != 0 {
			return c < 0
		}
		return compareTail(a[:4], b[:4]) < 0
	})

	keys := make([][]byte, len(pairs))
	for i, p := range pairs {
		keys[i] = p.key
	}
	nodes := trie.Build(keys)

	results := make([]jobResult, len(pairs))
	c := compress.For(d.Compressor)
	pool := workerpool.New(opts.Workers)
	for i, p := range pairs {
		i, p := i, p
		pool.Go(func() error {
			raw, err := os.ReadFile(filepath.Join(srcDir, filepath.FromSlash(p.relPath)))
			if err != nil {
				return fmt.Errorf("archive: read %s: %w", p.relPath, dscserr.ErrIO)
			}
			dataBytes := raw
			if opts.Mode != CompressNone && len(raw) > 0 && !c.IsCompressed(raw) {
				candidate, err := c.Compress(raw)
				if err != nil {
					return fmt.Errorf("archive: compress %s: %w", p.relPath, err)
				}
				if len(candidate)+4 < len(raw) {
					dataBytes = candidate
				}
			}
			var checksum uint32
			if opts.Mode == CompressAdvanced {
				checksum = crc32.ChecksumIEEE(raw)
			}
			results[i] = jobResult{relPath: p.relPath, raw: raw, dataBytes: dataBytes, checksum: checksum}
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		return err
	}

	// Collate in trie order (== pairs order, since trie.Build assigns
	// DataID = index into the sorted input): assign each file either a
	// fresh DataEntry id or, in ADVANCED mode, the id of an
	// already-seen identical payload.
	dataIDForFile := make([]int, len(results))
	type pending struct {
		fullSize       uint64
		compressedSize uint64
		bytes          []byte
	}
	var entries []pending
	seen := map[uint32]int{}
	for i, res := range results {
		if opts.Mode == CompressAdvanced {
			if id, ok := seen[res.checksum]; ok {
				dataIDForFile[i] = id
				continue
			}
		}
		id := len(entries)
		entries = append(entries, pending{
			fullSize:       uint64(len(res.raw)),
			compressedSize: uint64(len(res.dataBytes)),
			bytes:          res.dataBytes,
		})
		dataIDForFile[i] = id
		if opts.Mode == CompressAdvanced {
			seen[res.checksum] = id
		}
	}

	hs := headerSize(w)
	treeSize := treeEntrySize(w)
	deSize := dataEntrySize(w)
	n := int64(len(nodes))
	tableBytes := int64(hs) + n*int64(treeSize) + n*int64(w.KeyLength) + int64(len(entries))*int64(deSize)

	offset := uint64(0)
	dataEntries := make([]dataEntry, len(entries))
	for i, p := range entries {
		dataEntries[i] = dataEntry{Offset: offset, FullSize: p.fullSize, CompressedSize: p.compressedSize}
		offset += p.compressedSize
	}
	totalSize := uint64(tableBytes) + offset

	magic := MagicPlain
	if d.Obfuscated {
		magic = MagicObfuscated
	}
	h := header{
		Magic:          magic,
		FileEntryCount: uint32(n),
		FileNameCount:  uint32(n),
		DataEntryCount: uint32(len(entries)),
		DataStart:      uint64(tableBytes),
		TotalSize:      totalSize,
	}

	out := make([]byte, int(totalSize))
	putHeader(out[:hs], w, h)

	pos := hs
	for i, nd := range nodes {
		buf := nd
		// Map each leaf's per-file DataID (index into results/pairs) to
		// its final, possibly-shared data entry id. Slot 0 is always
		// the root placeholder; every other slot is always a real file
		// leaf, even the first-ever-inserted one, whose CompareBit
		// stays trie.Sentinel (see trie.insert) — so this is a slot
		// check, not a CompareBit check.
		if i != 0 && buf.DataID != trie.Sentinel {
			buf.DataID = dataIDForFile[buf.DataID]
		}
		putTreeEntry(out[pos:pos+treeSize], w, buf)
		pos += treeSize
	}
	for _, nd := range nodes {
		if nd.Key != nil {
			copy(out[pos:pos+w.KeyLength], nd.Key)
		}
		pos += w.KeyLength
	}
	for _, de := range dataEntries {
		putDataEntry(out[pos:pos+deSize], w, de)
		pos += deSize
	}
	for _, p := range entries {
		copy(out[pos:pos+len(p.bytes)], p.bytes)
		pos += len(p.bytes)
	}

	if d.Obfuscated {
		obfuscate.XorInto(out[4:], out[4:], 4)
	}

	return atomicWrite(targetPath, out)
}

func atomicWrite(targetPath string, data []byte) error {
	dir := filepath.Dir(targetPath)
	tmp, err := os.CreateTemp(dir, ".dscstools-archive-*.tmp")
	if err != nil {
		return fmt.Errorf("archive: create temp file in %s: %w", dir, dscserr.ErrIO)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("archive: write temp file: %w", dscserr.ErrIO)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("archive: close temp file: %w", dscserr.ErrIO)
	}
	if err := os.Rename(tmpPath, targetPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("archive: rename into place: %w", dscserr.ErrIO)
	}
	return nil
}

func enumerateFiles(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("archive: walk %s: %w", root, dscserr.ErrIO)
	}
	return out, nil
}

func compareTail(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}
