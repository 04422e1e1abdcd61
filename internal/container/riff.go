package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Common errors.
var (
	ErrInvalidRIFF  = errors.New("container: invalid RIFF header")
	ErrInvalidWebP  = errors.New("container: invalid WEBP signature")
	ErrInvalidIVF   = errors.New("container: invalid IVF header")
	ErrTruncated    = errors.New("container: truncated data")
	ErrInvalidChunk = errors.New("container: invalid chunk")
	ErrTooLarge     = errors.New("container: chunk too large")
	ErrUnsupported  = errors.New("container: unsupported format")
)

// Chunk represents a single RIFF chunk with its FourCC tag and payload.
type Chunk struct {
	FourCC  uint32
	Payload []byte
}

// RIFFHeader holds the parsed RIFF container header.
type RIFFHeader struct {
	FileSize uint32 // total RIFF file size (excluding 8-byte RIFF header)
}

// ParseRIFFHeader validates and parses the 12-byte RIFF/WEBP header from data.
// Returns the header and the number of bytes consumed.
func ParseRIFFHeader(data []byte) (RIFFHeader, int, error) {
	if len(data) < RIFFHeaderSize {
		return RIFFHeader{}, 0, ErrTruncated
	}
	if binary.LittleEndian.Uint32(data[0:4]) != FourCCRIFF {
		return RIFFHeader{}, 0, ErrInvalidRIFF
	}

	fileSize := binary.LittleEndian.Uint32(data[4:8])
	if fileSize < ChunkHeaderSize {
		return RIFFHeader{}, 0, ErrInvalidRIFF
	}
	if fileSize > MaxChunkPayload {
		return RIFFHeader{}, 0, ErrTooLarge
	}
	if binary.LittleEndian.Uint32(data[8:12]) != FourCCWEBP {
		return RIFFHeader{}, 0, ErrInvalidWebP
	}
	return RIFFHeader{FileSize: fileSize}, RIFFHeaderSize, nil
}

// ReadChunkHeader reads a chunk's FourCC tag and payload size from data.
func ReadChunkHeader(data []byte) (fourcc uint32, payloadSize uint32, err error) {
	if len(data) < ChunkHeaderSize {
		return 0, 0, ErrTruncated
	}
	fourcc = binary.LittleEndian.Uint32(data[0:4])
	payloadSize = binary.LittleEndian.Uint32(data[4:8])
	if payloadSize > MaxChunkPayload {
		return 0, 0, ErrTooLarge
	}
	return fourcc, payloadSize, nil
}

// nextChunk splits the first chunk off buf and returns it with the rest.
func nextChunk(buf []byte) (Chunk, []byte, error) {
	fourcc, payloadSize, err := ReadChunkHeader(buf)
	if err != nil {
		return Chunk{}, nil, err
	}
	total := ChunkHeaderSize + int(PaddedSize(payloadSize))
	if ChunkHeaderSize+int(payloadSize) > len(buf) {
		return Chunk{}, nil, fmt.Errorf("%w: %s chunk of %d bytes", ErrTruncated, FourCCString(fourcc), payloadSize)
	}
	// A missing pad byte on the last chunk is tolerated.
	total = min(total, len(buf))
	return Chunk{FourCC: fourcc, Payload: buf[ChunkHeaderSize : ChunkHeaderSize+int(payloadSize)]}, buf[total:], nil
}

// PaddedSize returns the payload size padded to an even number of bytes,
// as required by the RIFF format.
func PaddedSize(size uint32) uint32 {
	return size + (size & 1)
}

// FourCCString returns a human-readable string for a FourCC value.
func FourCCString(fourcc uint32) string {
	b := [4]byte{
		byte(fourcc),
		byte(fourcc >> 8),
		byte(fourcc >> 16),
		byte(fourcc >> 24),
	}
	return string(b[:])
}

// ReadChunk reads a complete chunk (header + payload) from an io.Reader.
func ReadChunk(r io.Reader) (Chunk, error) {
	var hdr [ChunkHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Chunk{}, fmt.Errorf("container: reading chunk header: %w", err)
	}

	fourcc := binary.LittleEndian.Uint32(hdr[0:4])
	payloadSize := binary.LittleEndian.Uint32(hdr[4:8])
	if payloadSize > MaxChunkPayload {
		return Chunk{}, ErrTooLarge
	}

	payload := make([]byte, PaddedSize(payloadSize))
	if _, err := io.ReadFull(r, payload); err != nil {
		return Chunk{}, fmt.Errorf("container: reading chunk payload: %w", err)
	}
	return Chunk{FourCC: fourcc, Payload: payload[:payloadSize]}, nil
}

// AppendChunk appends c, with its header and pad byte, to buf.
func AppendChunk(buf []byte, c Chunk) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, c.FourCC)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.Payload)))
	buf = append(buf, c.Payload...)
	if len(c.Payload)&1 != 0 {
		buf = append(buf, 0)
	}
	return buf
}
