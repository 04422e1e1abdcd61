// Package container extracts compressed VP8 frames from the file formats
// that carry them: IVF streams and WebP (RIFF) files.
package container

import "encoding/binary"

// FourCC creates a FourCC value from four bytes (little-endian).
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// FourCC values.
var (
	FourCCRIFF = FourCC('R', 'I', 'F', 'F')
	FourCCWEBP = FourCC('W', 'E', 'B', 'P')
	FourCCVP8  = FourCC('V', 'P', '8', ' ')
	FourCCVP8L = FourCC('V', 'P', '8', 'L')
	FourCCVP8X = FourCC('V', 'P', '8', 'X')
	FourCCALPH = FourCC('A', 'L', 'P', 'H')
	FourCCANIM = FourCC('A', 'N', 'I', 'M')
	FourCCANMF = FourCC('A', 'N', 'M', 'F')

	FourCCDKIF = FourCC('D', 'K', 'I', 'F')
	FourCCVP80 = FourCC('V', 'P', '8', '0')
)

// RIFF structure sizes.
const (
	TagSize         = 4  // Size of a chunk tag (e.g. "VP8 ")
	ChunkHeaderSize = 8  // Size of a chunk header
	RIFFHeaderSize  = 12 // Size of the RIFF header ("RIFFnnnnWEBP")
	ANMFHeaderSize  = 16 // Size of the ANMF frame header before its sub-chunks
	VP8XChunkSize   = 10 // Size of a VP8X chunk

	MaxChunkPayload = ^uint32(0) - ChunkHeaderSize - 1
)

// IVF structure sizes.
const (
	IVFHeaderSize      = 32
	IVFFrameHeaderSize = 12
	IVFVersion         = 0

	// MaxIVFFrameSize bounds the size field of an IVF frame header.
	MaxIVFFrameSize = 1 << 28
)

// readLE24 reads a 24-bit little-endian integer from 3 bytes.
func readLE24(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}

// ReadLE16 reads a little-endian uint16 from data.
func ReadLE16(data []byte) uint16 {
	return binary.LittleEndian.Uint16(data)
}

// ReadLE32 reads a little-endian uint32 from data.
func ReadLE32(data []byte) uint32 {
	return binary.LittleEndian.Uint32(data)
}
