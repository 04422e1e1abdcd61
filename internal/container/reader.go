package container

import (
	"bufio"
	"fmt"
	"io"
)

// Frame is one compressed VP8 frame taken from a container.
type Frame struct {
	Index     int
	Timestamp uint64 // IVF timestamp, or the WebP animation time in ms
	Data      []byte
}

// FrameReader yields the compressed frames of a file in order. Next
// returns io.EOF after the last frame.
type FrameReader interface {
	Next() (Frame, error)
}

// Format identifies the container of an input.
type Format int

const (
	FormatRaw Format = iota // a single bare VP8 frame
	FormatIVF
	FormatWebP
)

func (f Format) String() string {
	switch f {
	case FormatIVF:
		return "ivf"
	case FormatWebP:
		return "webp"
	}
	return "raw"
}

// NewFrameReader detects the container of r from its first bytes. WebP
// and raw inputs are read completely.
func NewFrameReader(r io.Reader) (FrameReader, Format, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(TagSize)
	if err != nil && len(magic) == 0 {
		return nil, FormatRaw, fmt.Errorf("%w: empty input", ErrTruncated)
	}

	var tag uint32
	if len(magic) == TagSize {
		tag = ReadLE32(magic)
	}
	switch tag {
	case FourCCDKIF:
		ir, err := NewIVFReader(br)
		if err != nil {
			return nil, FormatIVF, err
		}
		return ir, FormatIVF, nil
	case FourCCRIFF:
		data, err := io.ReadAll(br)
		if err != nil {
			return nil, FormatWebP, err
		}
		f, err := ParseWebP(data)
		if err != nil {
			return nil, FormatWebP, err
		}
		frames := make([]Frame, len(f.Frames))
		var t uint64
		for i, wf := range f.Frames {
			frames[i] = Frame{Index: i, Timestamp: t, Data: wf.Payload}
			t += uint64(wf.Duration)
		}
		return &sliceReader{frames: frames}, FormatWebP, nil
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return nil, FormatRaw, err
	}
	return &sliceReader{frames: []Frame{{Data: data}}}, FormatRaw, nil
}

type sliceReader struct {
	frames []Frame
}

func (s *sliceReader) Next() (Frame, error) {
	if len(s.frames) == 0 {
		return Frame{}, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}
