package tokpack

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// File is an opened token pack. Token slices returned by Entry alias the
// file's backing memory when possible and are invalid after Close.
type File struct {
	Data    []byte
	Header  *Header
	Index   []IndexEntry
	mmapped bool
	direct  bool
}

// Open maps a token pack read-only and validates its structure.
// If mmap is unavailable, it falls back to ReadAt-based loading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 < headerSize || size64 > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptFile
	}
	size := int(size64)

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		tf, parseErr := parseFileData(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return tf, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

// OpenReaderAt loads and validates a token pack without mmap.
func OpenReaderAt(r io.ReaderAt, size int64) (*File, error) {
	if size < headerSize || size > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptFile
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

func parseFileData(data []byte, mmapped bool) (*File, error) {
	hdr, ok := decodeHeader(data)
	if !ok {
		return nil, ErrCorruptFile
	}
	if !hdr.Valid() {
		return nil, ErrInvalidMagic
	}
	if !hdr.Compatible() {
		return nil, ErrUnsupportedMajor
	}
	size := uint64(len(data))
	if hdr.FileSize != size {
		return nil, fmt.Errorf("%w: file size %d, header says %d", ErrCorruptFile, size, hdr.FileSize)
	}
	if hdr.DataOffset < uint64(hdr.HeaderSize) || hdr.DataOffset%align != 0 {
		return nil, fmt.Errorf("%w: bad data offset %d", ErrCorruptFile, hdr.DataOffset)
	}
	if hdr.IndexOffset < hdr.DataOffset || hdr.IndexOffset > size {
		return nil, fmt.Errorf("%w: bad index offset %d", ErrCorruptFile, hdr.IndexOffset)
	}
	indexEnd := hdr.IndexOffset + uint64(hdr.Count)*entrySize
	if indexEnd < hdr.IndexOffset || indexEnd > size {
		return nil, fmt.Errorf("%w: index out of bounds", ErrCorruptFile)
	}

	payloadTokens := (hdr.IndexOffset - hdr.DataOffset) / tokenSize
	index := make([]IndexEntry, hdr.Count)
	for i := range index {
		start := hdr.IndexOffset + uint64(i)*entrySize
		e, ok := decodeEntry(data[start : start+entrySize])
		if !ok {
			return nil, ErrCorruptFile
		}
		if e.end() < e.TokenOffset || e.end() > payloadTokens {
			return nil, fmt.Errorf("%w: entry %d out of bounds", ErrCorruptFile, i)
		}
		index[i] = e
	}

	return &File{
		Data:    data,
		Header:  &hdr,
		Index:   index,
		mmapped: mmapped,
		direct:  nativeLittleEndian() && aligned(data, hdr.DataOffset),
	}, nil
}

// Len returns the number of recorded entries.
func (f *File) Len() int {
	return len(f.Index)
}

// Entry returns the prompt and reference output of entry i.
func (f *File) Entry(i int) (prompt, output []int32, ok bool) {
	if i < 0 || i >= len(f.Index) {
		return nil, nil, false
	}
	e := f.Index[i]
	tokens := f.tokens(e.TokenOffset, uint64(e.PromptLen)+uint64(e.OutputLen))
	return tokens[:e.PromptLen:e.PromptLen], tokens[e.PromptLen:], true
}

// TotalTokens returns the number of tokens across all entries.
func (f *File) TotalTokens() int {
	total := 0
	for _, e := range f.Index {
		total += int(e.PromptLen) + int(e.OutputLen)
	}
	return total
}

func (f *File) tokens(off, n uint64) []int32 {
	if n == 0 {
		return []int32{}
	}
	start := f.Header.DataOffset + off*tokenSize
	raw := f.Data[start : start+n*tokenSize]
	if f.direct {
		return unsafe.Slice((*int32)(unsafe.Pointer(&raw[0])), n)
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(raw[i*tokenSize:]))
	}
	return out
}

// Close releases file resources and any mmap backing.
func (f *File) Close() error {
	if f == nil || f.Data == nil {
		return nil
	}
	var err error
	if f.mmapped {
		err = unix.Munmap(f.Data)
	}
	f.Data = nil
	f.Header = nil
	f.Index = nil
	f.mmapped = false
	return err
}

func nativeLittleEndian() bool {
	var probe [2]byte
	binary.NativeEndian.PutUint16(probe[:], 1)
	return probe[0] == 1
}

func aligned(data []byte, off uint64) bool {
	if len(data) == 0 {
		return false
	}
	return (uintptr(unsafe.Pointer(&data[0]))+uintptr(off))%tokenSize == 0
}
