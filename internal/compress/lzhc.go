package compress

import "github.com/pierrec/lz4/v4"

// lzhcTag marks payloads produced by lzhc, standing in for the reference
// format's LZ4-HC compressor used on the 64-bit (DSTS / THL) dialects.
const lzhcTag = "LZHC"

// lzhc is the maximum-level LZ4 HC configuration.
type lzhc struct{}

func (lzhc) Compress(data []byte) ([]byte, error) {
	return encode(lzhcTag, data, true, lz4.Level9)
}

func (lzhc) Decompress(data []byte, expectedSize int) ([]byte, error) {
	return decode(lzhcTag, data, expectedSize)
}

func (lzhc) IsCompressed(data []byte) bool {
	return hasMarker(data, lzhcTag)
}

var _ Compressor = lzhc{}
