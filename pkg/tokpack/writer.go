package tokpack

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// Writer builds a token pack in a streaming fashion. Token payloads are
// written as they are added; the index and header are written by Finalise.
type Writer struct {
	ws     io.WriteSeeker
	bw     *bufio.Writer
	index  []IndexEntry
	tokens uint64
	closed bool
}

// NewWriter reserves the header and positions the writer at the payload.
// ws must be empty or positioned at its start.
func NewWriter(ws io.WriteSeeker) (*Writer, error) {
	if ws == nil {
		return nil, errors.New("tokpack: nil writer")
	}
	if _, err := ws.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	w := &Writer{ws: ws, bw: bufio.NewWriterSize(ws, 1<<16)}
	var zero [headerSize]byte
	if _, err := w.bw.Write(zero[:]); err != nil {
		return nil, err
	}
	return w, nil
}

// Add appends one recorded request.
func (w *Writer) Add(prompt, output []int32) error {
	if w.closed {
		return errors.New("tokpack: writer finalised")
	}
	if uint64(len(prompt)) > math.MaxUint32 || uint64(len(output)) > math.MaxUint32 {
		return errors.New("tokpack: entry too large")
	}
	if uint64(len(w.index)) == math.MaxUint32 {
		return errors.New("tokpack: too many entries")
	}
	w.index = append(w.index, IndexEntry{
		TokenOffset: w.tokens,
		PromptLen:   uint32(len(prompt)),
		OutputLen:   uint32(len(output)),
	})
	var buf [tokenSize]byte
	for _, seq := range [][]int32{prompt, output} {
		for _, tok := range seq {
			binary.LittleEndian.PutUint32(buf[:], uint32(tok))
			if _, err := w.bw.Write(buf[:]); err != nil {
				return err
			}
		}
		w.tokens += uint64(len(seq))
	}
	return nil
}

// Len returns the number of entries added so far.
func (w *Writer) Len() int {
	return len(w.index)
}

// Finalise writes the index and patches the header. The writer cannot be
// used afterwards.
func (w *Writer) Finalise() error {
	if w.closed {
		return errors.New("tokpack: writer finalised")
	}
	w.closed = true

	dataEnd := uint64(headerSize) + w.tokens*tokenSize
	pad := padTo(dataEnd, align)
	if pad > 0 {
		var zero [align]byte
		if _, err := w.bw.Write(zero[:pad]); err != nil {
			return err
		}
	}
	indexOffset := dataEnd + pad

	var raw [entrySize]byte
	for _, e := range w.index {
		encodeEntry(raw[:], e)
		if _, err := w.bw.Write(raw[:]); err != nil {
			return err
		}
	}
	if err := w.bw.Flush(); err != nil {
		return err
	}

	h := Header{
		Major:       CurrentMajor,
		Minor:       CurrentMinor,
		HeaderSize:  headerSize,
		Count:       uint32(len(w.index)),
		IndexOffset: indexOffset,
		DataOffset:  headerSize,
		FileSize:    indexOffset + uint64(len(w.index))*entrySize,
	}
	copy(h.Magic[:], Magic)
	var hdr [headerSize]byte
	encodeHeader(hdr[:], h)
	if _, err := w.ws.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.ws.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.ws.Seek(int64(h.FileSize), io.SeekStart)
	return err
}
