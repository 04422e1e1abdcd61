package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// IVFHeader is the 32-byte file header of an IVF stream.
type IVFHeader struct {
	FourCC      uint32
	Width       uint16
	Height      uint16
	RateNum     uint32 // frame rate numerator
	RateDen     uint32
	FrameCount  uint32
	HeaderBytes uint16
}

// IVFReader reads frames from an IVF stream.
type IVFReader struct {
	r      io.Reader
	header IVFHeader
	index  int
}

// NewIVFReader reads and validates the file header.
func NewIVFReader(r io.Reader) (*IVFReader, error) {
	var buf [IVFHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading IVF header: %w", ErrTruncated, err)
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != FourCCDKIF {
		return nil, fmt.Errorf("%w: signature % x", ErrInvalidIVF, buf[0:4])
	}
	if v := binary.LittleEndian.Uint16(buf[4:6]); v != IVFVersion {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidIVF, v)
	}
	h := IVFHeader{
		HeaderBytes: binary.LittleEndian.Uint16(buf[6:8]),
		FourCC:      binary.LittleEndian.Uint32(buf[8:12]),
		Width:       binary.LittleEndian.Uint16(buf[12:14]),
		Height:      binary.LittleEndian.Uint16(buf[14:16]),
		RateNum:     binary.LittleEndian.Uint32(buf[16:20]),
		RateDen:     binary.LittleEndian.Uint32(buf[20:24]),
		FrameCount:  binary.LittleEndian.Uint32(buf[24:28]),
	}
	if h.FourCC != FourCCVP80 {
		return nil, fmt.Errorf("%w: codec %q", ErrUnsupported, FourCCString(h.FourCC))
	}
	// Skip any header extension.
	if extra := int(h.HeaderBytes) - IVFHeaderSize; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(extra)); err != nil {
			return nil, fmt.Errorf("%w: IVF header extension: %w", ErrTruncated, err)
		}
	}
	return &IVFReader{r: r, header: h}, nil
}

// Header returns the file header.
func (ir *IVFReader) Header() IVFHeader {
	return ir.header
}

// Next returns the next frame, or io.EOF after the last one.
func (ir *IVFReader) Next() (Frame, error) {
	var buf [IVFFrameHeaderSize]byte
	if _, err := io.ReadFull(ir.r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("%w: frame %d header: %w", ErrTruncated, ir.index, err)
	}
	size := binary.LittleEndian.Uint32(buf[0:4])
	if size > MaxIVFFrameSize {
		return Frame{}, fmt.Errorf("%w: frame %d of %d bytes", ErrTooLarge, ir.index, size)
	}
	f := Frame{
		Index:     ir.index,
		Timestamp: binary.LittleEndian.Uint64(buf[4:12]),
		Data:      make([]byte, size),
	}
	if _, err := io.ReadFull(ir.r, f.Data); err != nil {
		return Frame{}, fmt.Errorf("%w: frame %d data: %w", ErrTruncated, ir.index, err)
	}
	ir.index++
	return f, nil
}

// IVFWriter writes an IVF stream.
type IVFWriter struct {
	w io.Writer
}

// NewIVFWriter writes the file header for a VP8 stream of the given size.
// FrameCount in h is informational and may be zero.
func NewIVFWriter(w io.Writer, h IVFHeader) (*IVFWriter, error) {
	var buf [IVFHeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], FourCCDKIF)
	binary.LittleEndian.PutUint16(buf[4:6], IVFVersion)
	binary.LittleEndian.PutUint16(buf[6:8], IVFHeaderSize)
	binary.LittleEndian.PutUint32(buf[8:12], FourCCVP80)
	binary.LittleEndian.PutUint16(buf[12:14], h.Width)
	binary.LittleEndian.PutUint16(buf[14:16], h.Height)
	binary.LittleEndian.PutUint32(buf[16:20], h.RateNum)
	binary.LittleEndian.PutUint32(buf[20:24], h.RateDen)
	binary.LittleEndian.PutUint32(buf[24:28], h.FrameCount)
	if _, err := w.Write(buf[:]); err != nil {
		return nil, err
	}
	return &IVFWriter{w: w}, nil
}

// WriteFrame appends one frame.
func (iw *IVFWriter) WriteFrame(timestamp uint64, data []byte) error {
	var buf [IVFFrameHeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(data)))
	binary.LittleEndian.PutUint64(buf[4:12], timestamp)
	if _, err := iw.w.Write(buf[:]); err != nil {
		return err
	}
	if _, err := iw.w.Write(data); err != nil {
		return err
	}
	return nil
}
