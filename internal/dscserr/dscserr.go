// Package dscserr defines the error kinds shared by every dscstools
// component, per the error handling design in the format specification.
// Every kind is surfaced as a value that satisfies errors.Is against the
// exported sentinel; nothing here ever panics or unwinds non-locally.
package dscserr

import "errors"

// Sentinel kinds. Wrap one of these with fmt.Errorf("...: %w", Kind) to
// attach context while keeping errors.Is(err, dscserr.KindX) working.
var (
	// ErrInvalidInput covers a source path that doesn't exist, is the
	// wrong kind (file vs directory), or aliases its own output.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBadMagic means the first four bytes match no magic recognized
	// for the requested operation.
	ErrBadMagic = errors.New("bad magic")

	// ErrCorruptIndex means header counts disagree, tables run past the
	// end of the file, or trie traversal walks off the node table.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrCorruptPayload means a compressed payload failed to decompress,
	// or its decompressed size didn't match the declared size.
	ErrCorruptPayload = errors.New("corrupt payload")

	// ErrSchemaMismatch means the row stride computed from a schema
	// disagrees with ceil(entrySize, 8) as read from the file.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrIO wraps an underlying read/write/seek failure.
	ErrIO = errors.New("io error")

	// ErrCompressor means the compression primitive rejected its input;
	// this is distinct from "not recognizably compressed", which is a
	// silent fallback, not an error.
	ErrCompressor = errors.New("compressor error")

	// ErrUnsupported means the requested operation has no implementation
	// for the given dialect (e.g. a save-crypt variant).
	ErrUnsupported = errors.New("unsupported")
)
