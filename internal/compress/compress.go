// Package compress implements the archive format's pluggable compressor
// contract (format spec §4.2): two interchangeable, synchronous codecs
// that callers address only through the Compressor interface, never by
// concrete type.
package compress

import "github.com/kesshi/dscstools/internal/dialect"

// Compressor is the shared contract every payload codec in the archive
// format satisfies. Decompress and Compress are pure and synchronous;
// IsCompressed never errors.
type Compressor interface {
	// Decompress returns expectedSize bytes decoded from data, or data
	// unchanged (not an error) if data isn't recognizably compressed by
	// this codec or its declared uncompressed size disagrees with
	// expectedSize. A genuine decode failure of recognized input is an
	// error wrapping dscserr.ErrCompressor.
	Decompress(data []byte, expectedSize int) ([]byte, error)

	// Compress always attempts compression and returns the encoded
	// bytes, or an error wrapping dscserr.ErrCompressor.
	Compress(data []byte) ([]byte, error)

	// IsCompressed reports whether data is recognizably encoded by this
	// codec.
	IsCompressed(data []byte) bool
}

// For returns the Compressor implementation a dialect's Compressor field
// selects.
func For(kind dialect.CompressorKind) Compressor {
	switch kind {
	case dialect.CompressorLZHC:
		return lzhc{}
	default:
		return dictionaryLZ{}
	}
}
