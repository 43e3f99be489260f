package compress

// dictionaryLZTag marks payloads produced by dictionaryLZ, standing in
// for the reference format's Doboz-family compressor used on the 32-bit
// (DSCS / DSCS-console) dialects.
const dictionaryLZTag = "DCLZ"

// dictionaryLZ is the fast, non-HC LZ4 configuration.
type dictionaryLZ struct{}

func (dictionaryLZ) Compress(data []byte) ([]byte, error) {
	return encode(dictionaryLZTag, data, false, 0)
}

func (dictionaryLZ) Decompress(data []byte, expectedSize int) ([]byte, error) {
	return decode(dictionaryLZTag, data, expectedSize)
}

func (dictionaryLZ) IsCompressed(data []byte) bool {
	return hasMarker(data, dictionaryLZTag)
}

var _ Compressor = dictionaryLZ{}
