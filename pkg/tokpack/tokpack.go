// Package tokpack implements the token pack container.
//
// A token pack is a single memory-mappable file holding recorded requests:
// for every entry a prompt and the reference output the target model
// produced for it, stored as little-endian int32 token ids.
//
// Layout:
//
//	header (40 bytes) | token payload (8-byte aligned) | index (16 bytes per entry)
package tokpack

import (
	"encoding/binary"
	"errors"
)

const (
	// Magic is encoded as "TKP\0".
	Magic = "TKP\x00"

	// CurrentMajor changes only with breaking layout changes.
	CurrentMajor uint16 = 1
	// CurrentMinor may add optional trailing fields.
	CurrentMinor uint16 = 0

	headerSize = 40
	entrySize  = 16
	align      = 8
	tokenSize  = 4
)

var (
	ErrInvalidMagic     = errors.New("invalid token pack magic")
	ErrUnsupportedMajor = errors.New("unsupported token pack major version")
	ErrCorruptFile      = errors.New("corrupt token pack")
)

type Header struct {
	Magic       [4]byte
	Major       uint16
	Minor       uint16
	HeaderSize  uint32
	Count       uint32
	IndexOffset uint64
	DataOffset  uint64
	FileSize    uint64
}

func (h *Header) Valid() bool {
	return string(h.Magic[:]) == Magic && h.HeaderSize >= headerSize
}

func (h *Header) Compatible() bool {
	return h.Major == CurrentMajor
}

// IndexEntry locates one recorded request. Offsets count tokens from the
// start of the payload; the output immediately follows the prompt.
type IndexEntry struct {
	TokenOffset uint64
	PromptLen   uint32
	OutputLen   uint32
}

func (e IndexEntry) end() uint64 {
	return e.TokenOffset + uint64(e.PromptLen) + uint64(e.OutputLen)
}

func encodeHeader(dst []byte, h Header) bool {
	if len(dst) < headerSize {
		return false
	}
	le := binary.LittleEndian
	copy(dst[0:4], h.Magic[:])
	le.PutUint16(dst[4:6], h.Major)
	le.PutUint16(dst[6:8], h.Minor)
	le.PutUint32(dst[8:12], h.HeaderSize)
	le.PutUint32(dst[12:16], h.Count)
	le.PutUint64(dst[16:24], h.IndexOffset)
	le.PutUint64(dst[24:32], h.DataOffset)
	le.PutUint64(dst[32:40], h.FileSize)
	return true
}

func decodeHeader(src []byte) (Header, bool) {
	var h Header
	if len(src) < headerSize {
		return h, false
	}
	le := binary.LittleEndian
	copy(h.Magic[:], src[0:4])
	h.Major = le.Uint16(src[4:6])
	h.Minor = le.Uint16(src[6:8])
	h.HeaderSize = le.Uint32(src[8:12])
	h.Count = le.Uint32(src[12:16])
	h.IndexOffset = le.Uint64(src[16:24])
	h.DataOffset = le.Uint64(src[24:32])
	h.FileSize = le.Uint64(src[32:40])
	return h, true
}

func encodeEntry(dst []byte, e IndexEntry) bool {
	if len(dst) < entrySize {
		return false
	}
	le := binary.LittleEndian
	le.PutUint64(dst[0:8], e.TokenOffset)
	le.PutUint32(dst[8:12], e.PromptLen)
	le.PutUint32(dst[12:16], e.OutputLen)
	return true
}

func decodeEntry(src []byte) (IndexEntry, bool) {
	var e IndexEntry
	if len(src) < entrySize {
		return e, false
	}
	le := binary.LittleEndian
	e.TokenOffset = le.Uint64(src[0:8])
	e.PromptLen = le.Uint32(src[8:12])
	e.OutputLen = le.Uint32(src[12:16])
	return e, true
}

func padTo(n, a uint64) uint64 {
	if r := n % a; r != 0 {
		return a - r
	}
	return 0
}
