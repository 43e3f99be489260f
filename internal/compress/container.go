package compress

import (
	"encoding/binary"
	"fmt"

	"github.com/kesshi/dscstools/internal/dscserr"
	"github.com/pierrec/lz4/v4"
)

// Both codecs wrap a raw LZ4 block in the same small container: a 4-byte
// marker distinguishing which dialect produced it, the little-endian
// uncompressed size, a one-byte flag (0 = LZ4 block follows, 1 = the
// uncompressed bytes are stored verbatim because LZ4 couldn't shrink
// them), then the payload. This gives IsCompressed something to
// recognize without needing the caller's expected size, the way the
// reference Doboz/LZ4 frames each carry their own self-describing header.
const headerLen = 9

const (
	flagBlock  = 0
	flagStored = 1
)

func hasMarker(b []byte, want string) bool {
	return len(b) >= headerLen && string(b[:4]) == want
}

func encode(tag string, raw []byte, hc bool, level lz4.CompressionLevel) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(raw))
	buf := make([]byte, headerLen+bound)
	copy(buf[:4], tag)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(raw)))

	var n int
	var err error
	if hc {
		c := lz4.CompressorHC{Level: level}
		n, err = c.CompressBlock(raw, buf[headerLen:])
	} else {
		var c lz4.Compressor
		n, err = c.CompressBlock(raw, buf[headerLen:])
	}
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w: %v", dscserr.ErrCompressor, err)
	}
	if n == 0 && len(raw) > 0 {
		// Incompressible input: pierrec/lz4 reports n==0 rather than
		// growing the output. Store the bytes verbatim so the
		// container is still self-describing.
		stored := make([]byte, headerLen+len(raw))
		copy(stored[:4], tag)
		binary.LittleEndian.PutUint32(stored[4:8], uint32(len(raw)))
		stored[8] = flagStored
		copy(stored[headerLen:], raw)
		return stored, nil
	}
	buf[8] = flagBlock
	return buf[:headerLen+n], nil
}

func decode(tag string, data []byte, expectedSize int) ([]byte, error) {
	if !hasMarker(data, tag) {
		return data, nil
	}
	size := int(binary.LittleEndian.Uint32(data[4:8]))
	if size != expectedSize {
		return data, nil
	}
	flag := data[8]
	payload := data[headerLen:]

	if flag == flagStored {
		if len(payload) != size {
			return nil, fmt.Errorf("lz4 decompress: %w: stored payload length %d, want %d", dscserr.ErrCompressor, len(payload), size)
		}
		return append([]byte(nil), payload...), nil
	}

	out := make([]byte, size)
	n, err := lz4.UncompressBlock(payload, out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w: %v", dscserr.ErrCompressor, err)
	}
	if n != size {
		return nil, fmt.Errorf("lz4 decompress: %w: got %d bytes, want %d", dscserr.ErrCompressor, n, size)
	}
	return out, nil
}
