package compress_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kesshi/dscstools/internal/compress"
	"github.com/kesshi/dscstools/internal/dialect"
)

func TestCompressors_RoundTrip(t *testing.T) {
	codecs := []struct {
		name string
		c    compress.Compressor
	}{
		{"dictionary-lz", compress.For(dialect.CompressorDictionaryLZ)},
		{"lz-hc", compress.For(dialect.CompressorLZHC)},
	}

	payloads := map[string][]byte{
		"empty":      {},
		"repetitive": bytes.Repeat([]byte("abcabcabc"), 500),
		"text":       []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 50)),
		"binary":     {0x00, 0xFF, 0x01, 0xFE, 0x02, 0xFD, 0x03, 0xFC},
	}

	for _, codec := range codecs {
		for name, raw := range payloads {
			t.Run(codec.name+"/"+name, func(t *testing.T) {
				compressed, err := codec.c.Compress(raw)
				if err != nil {
					t.Fatalf("Compress() error = %v", err)
				}
				if !codec.c.IsCompressed(compressed) {
					t.Error("IsCompressed() = false on the codec's own output")
				}

				got, err := codec.c.Decompress(compressed, len(raw))
				if err != nil {
					t.Fatalf("Decompress() error = %v", err)
				}
				if !bytes.Equal(got, raw) {
					t.Errorf("Decompress(Compress(x)) = %x, want %x", got, raw)
				}
			})
		}
	}
}

func TestCompressors_NotRecognizedPassesThrough(t *testing.T) {
	for _, c := range []compress.Compressor{
		compress.For(dialect.CompressorDictionaryLZ),
		compress.For(dialect.CompressorLZHC),
	} {
		raw := []byte("not compressed at all")
		got, err := c.Decompress(raw, len(raw))
		if err != nil {
			t.Fatalf("Decompress() on unrecognized input returned error: %v", err)
		}
		if !bytes.Equal(got, raw) {
			t.Errorf("Decompress() on unrecognized input = %x, want unchanged %x", got, raw)
		}
		if c.IsCompressed(raw) {
			t.Error("IsCompressed() = true on plain bytes")
		}
	}
}

func TestCompressors_SizeMismatchPassesThrough(t *testing.T) {
	c := compress.For(dialect.CompressorDictionaryLZ)
	raw := bytes.Repeat([]byte{0x11, 0x22}, 100)
	compressed, err := c.Compress(raw)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	got, err := c.Decompress(compressed, len(raw)+1)
	if err != nil {
		t.Fatalf("Decompress() with wrong expected size returned error: %v", err)
	}
	if !bytes.Equal(got, compressed) {
		t.Error("Decompress() with mismatched expected size should return input unchanged")
	}
}

func TestCompressors_CrossCodecNotRecognized(t *testing.T) {
	dlz := compress.For(dialect.CompressorDictionaryLZ)
	hc := compress.For(dialect.CompressorLZHC)

	raw := []byte("cross codec probe data, should not cross-decode")
	compressed, err := dlz.Compress(raw)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	if hc.IsCompressed(compressed) {
		t.Error("lz-hc codec recognized dictionary-lz output as its own")
	}

	got, err := hc.Decompress(compressed, len(raw))
	if err != nil {
		t.Fatalf("Decompress() across codecs returned error: %v", err)
	}
	if !bytes.Equal(got, compressed) {
		t.Error("lz-hc Decompress() should pass through dictionary-lz output unchanged")
	}
}
