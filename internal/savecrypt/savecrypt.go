// Package savecrypt is a thin block-cipher wrapper for the
// encrypt-save/decrypt-save CLI commands. It is explicitly not a
// faithful reimplementation of any real save-file crypto scheme — per
// the format specification's scope, save-file encryption internals are
// out of core and this merely delegates to AES-CTR with a hard-coded
// key, mirroring how much of the reference format's own save crypto is
// "a block cipher with a fixed key" rather than anything bespoke.
package savecrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/kesshi/dscstools/internal/dscserr"
)

// key is the hard-coded 32-byte AES-256 key used for every save file,
// in place of any per-title or per-region derivation.
var key = [32]byte{
	0x44, 0x53, 0x43, 0x53, 0x54, 0x6F, 0x6F, 0x6C,
	0x73, 0x2D, 0x73, 0x61, 0x76, 0x65, 0x2D, 0x63,
	0x72, 0x79, 0x70, 0x74, 0x2D, 0x6B, 0x65, 0x79,
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
}

// nonceSize is the AES block size used as the CTR nonce; a fixed,
// all-zero nonce is acceptable here only because this cipher makes no
// confidentiality claims of its own (see package doc).
const nonceSize = aes.BlockSize

// Decrypt returns data with the fixed save-file cipher removed. The
// output is the same length as the input.
func Decrypt(data []byte) ([]byte, error) {
	return crypt(data)
}

// Encrypt returns data with the fixed save-file cipher applied. AES-CTR
// is its own inverse, so Encrypt and Decrypt are the same operation.
func Encrypt(data []byte) ([]byte, error) {
	return crypt(data)
}

func crypt(data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("savecrypt: new cipher: %w", dscserr.ErrUnsupported)
	}

	var nonce [nonceSize]byte
	stream := cipher.NewCTR(block, nonce[:])

	out := make([]byte, len(data))
	stream.XORKeyStream(out, data)
	return out, nil
}
