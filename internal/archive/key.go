package archive

import (
	"path"
	"strings"
)

// MakeKey builds the fixed-width, NUL-padded trie key for relPath with
// length keyLen (a dialect's Widths.KeyLength; format spec §3.1): the extension, stripped of
// its leading dot and space-padded to 4 bytes, occupies the first 4
// bytes; the path stem (directories included, `/` rewritten to `\`)
// fills the remainder, NUL-padded.
//
// relPath is interpreted with forward slashes regardless of host OS,
// matching how archive entries are always stored.
func MakeKey(relPath string, keyLen int) []byte {
	ext := strings.TrimPrefix(path.Ext(relPath), ".")
	stem := strings.TrimSuffix(relPath, path.Ext(relPath))
	stem = strings.ReplaceAll(stem, "/", "\\")

	key := make([]byte, keyLen)
	extBytes := []byte(ext)
	if len(extBytes) > 4 {
		extBytes = extBytes[:4]
	}
	copy(key[:4], extBytes)
	for i := len(extBytes); i < 4; i++ {
		key[i] = ' '
	}

	stemBytes := []byte(stem)
	if len(stemBytes) > keyLen-4 {
		stemBytes = stemBytes[:keyLen-4]
	}
	copy(key[4:], stemBytes)
	return key
}
