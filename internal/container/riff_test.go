package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestParseRIFFHeader_Valid(t *testing.T) {
	data := make([]byte, 20)
	binary.LittleEndian.PutUint32(data[0:4], FourCCRIFF)
	binary.LittleEndian.PutUint32(data[4:8], 100)
	binary.LittleEndian.PutUint32(data[8:12], FourCCWEBP)

	hdr, n, err := ParseRIFFHeader(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != RIFFHeaderSize {
		t.Fatalf("consumed %d bytes, want %d", n, RIFFHeaderSize)
	}
	if hdr.FileSize != 100 {
		t.Fatalf("file size = %d, want 100", hdr.FileSize)
	}
}

func TestParseRIFFHeader_Errors(t *testing.T) {
	junkRIFF := make([]byte, 12)
	copy(junkRIFF, "JUNK")

	junkWEBP := make([]byte, 12)
	binary.LittleEndian.PutUint32(junkWEBP[0:4], FourCCRIFF)
	binary.LittleEndian.PutUint32(junkWEBP[4:8], 100)
	copy(junkWEBP[8:12], "JUNK")

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"too short", []byte{0, 1, 2}, ErrTruncated},
		{"bad RIFF", junkRIFF, ErrInvalidRIFF},
		{"bad WEBP", junkWEBP, ErrInvalidWebP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseRIFFHeader(tt.data); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadChunkHeader(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:4], FourCCVP8)
	binary.LittleEndian.PutUint32(data[4:8], 42)

	fourcc, size, err := ReadChunkHeader(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fourcc != FourCCVP8 {
		t.Fatalf("fourcc = 0x%08x, want VP8", fourcc)
	}
	if size != 42 {
		t.Fatalf("size = %d, want 42", size)
	}
}

func TestPaddedSize(t *testing.T) {
	tests := []struct {
		in, want uint32
	}{
		{0, 0},
		{1, 2},
		{2, 2},
		{3, 4},
		{101, 102},
	}
	for _, tt := range tests {
		if got := PaddedSize(tt.in); got != tt.want {
			t.Errorf("PaddedSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFourCCString(t *testing.T) {
	if s := FourCCString(FourCCVP8); s != "VP8 " {
		t.Fatalf("FourCCString(VP8) = %q, want %q", s, "VP8 ")
	}
	if s := FourCCString(FourCCDKIF); s != "DKIF" {
		t.Fatalf("FourCCString(DKIF) = %q, want %q", s, "DKIF")
	}
}

func TestAppendChunk_ReadChunk(t *testing.T) {
	for _, payload := range [][]byte{{}, {1}, {1, 2}, {1, 2, 3}} {
		buf := AppendChunk(nil, Chunk{FourCC: FourCCALPH, Payload: payload})
		if len(buf)%2 != 0 {
			t.Fatalf("chunk of %d bytes is not padded", len(buf))
		}
		c, err := ReadChunk(bytes.NewReader(buf))
		if err != nil {
			t.Fatalf("ReadChunk: %v", err)
		}
		if c.FourCC != FourCCALPH || !bytes.Equal(c.Payload, payload) {
			t.Fatalf("got %s %v, want ALPH %v", FourCCString(c.FourCC), c.Payload, payload)
		}
	}
}
