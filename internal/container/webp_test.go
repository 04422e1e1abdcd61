package container

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fakeVP8 = []byte{0x10, 0x00, 0x00, 0x9d, 0x01, 0x2a, 0x10, 0x00, 0x10, 0x00, 0xaa}

func riff(chunks ...Chunk) []byte {
	body := le32(FourCCWEBP)
	for _, c := range chunks {
		body = AppendChunk(body, c)
	}
	return AppendChunk(nil, Chunk{FourCC: FourCCRIFF, Payload: body})
}

func vp8xChunk(flags byte, w, h int) Chunk {
	p := make([]byte, VP8XChunkSize)
	p[0] = flags
	p[4], p[5], p[6] = byte(w-1), byte((w-1)>>8), byte((w-1)>>16)
	p[7], p[8], p[9] = byte(h-1), byte((h-1)>>8), byte((h-1)>>16)
	return Chunk{FourCC: FourCCVP8X, Payload: p}
}

func anmfChunk(x, y, duration int, sub ...Chunk) Chunk {
	p := make([]byte, ANMFHeaderSize)
	p[0], p[3] = byte(x/2), byte(y/2)
	p[12], p[13] = byte(duration), byte(duration>>8)
	for _, c := range sub {
		p = AppendChunk(p, c)
	}
	return Chunk{FourCC: FourCCANMF, Payload: p}
}

func TestParseWebP_Simple(t *testing.T) {
	f, err := ParseWebP(BuildWebP(fakeVP8))
	require.NoError(t, err)
	assert.False(t, f.Extended)
	require.Len(t, f.Frames, 1)
	assert.Equal(t, fakeVP8, f.Frames[0].Payload)
}

func TestParseWebP_ExtendedStill(t *testing.T) {
	data := riff(
		vp8xChunk(byte(AlphaFlag), 16, 16),
		Chunk{FourCC: FourCC('I', 'C', 'C', 'P'), Payload: []byte{1, 2, 3}},
		Chunk{FourCC: FourCCALPH, Payload: []byte{0}},
		Chunk{FourCC: FourCCVP8, Payload: fakeVP8},
	)
	f, err := ParseWebP(data)
	require.NoError(t, err)
	assert.True(t, f.Extended)
	assert.False(t, f.Animated)
	assert.Equal(t, 16, f.CanvasWidth)
	require.Len(t, f.Frames, 1)
	assert.True(t, f.Frames[0].HasAlpha)
	assert.Equal(t, fakeVP8, f.Frames[0].Payload)
}

func TestParseWebP_Animation(t *testing.T) {
	data := riff(
		vp8xChunk(byte(AnimationFlag), 64, 32),
		Chunk{FourCC: FourCCANIM, Payload: make([]byte, 6)},
		anmfChunk(0, 0, 100, Chunk{FourCC: FourCCVP8, Payload: fakeVP8}),
		anmfChunk(16, 8, 40, Chunk{FourCC: FourCCALPH, Payload: []byte{0}}, Chunk{FourCC: FourCCVP8, Payload: fakeVP8[:10]}),
	)
	f, err := ParseWebP(data)
	require.NoError(t, err)
	assert.True(t, f.Animated)
	assert.Equal(t, 64, f.CanvasWidth)
	assert.Equal(t, 32, f.CanvasHeight)
	require.Len(t, f.Frames, 2)
	assert.Equal(t, 100, f.Frames[0].Duration)
	assert.Equal(t, 16, f.Frames[1].XOffset)
	assert.Equal(t, 8, f.Frames[1].YOffset)
	assert.True(t, f.Frames[1].HasAlpha)
	assert.Equal(t, fakeVP8[:10], f.Frames[1].Payload)

	r, format, err := NewFrameReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, FormatWebP, format)
	fr, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), fr.Timestamp)
	fr, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), fr.Timestamp)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestParseWebP_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"lossless", riff(Chunk{FourCC: FourCCVP8L, Payload: []byte{0x2f, 0, 0, 0, 0}}), ErrUnsupported},
		{"unknown first chunk", riff(Chunk{FourCC: FourCCALPH, Payload: []byte{0}}), ErrUnsupported},
		{"bad VP8X size", riff(Chunk{FourCC: FourCCVP8X, Payload: []byte{0, 0}}), ErrInvalidChunk},
		{"no frame", riff(vp8xChunk(0, 16, 16)), ErrInvalidChunk},
		{"duplicate VP8X", riff(vp8xChunk(0, 16, 16), vp8xChunk(0, 16, 16)), ErrInvalidChunk},
		{"VP8 outside ANMF", riff(vp8xChunk(byte(AnimationFlag), 16, 16), Chunk{FourCC: FourCCVP8, Payload: fakeVP8}), ErrInvalidChunk},
		{"empty ANMF", riff(vp8xChunk(byte(AnimationFlag), 16, 16), anmfChunk(0, 0, 1)), ErrInvalidChunk},
		{"truncated chunk", BuildWebP(fakeVP8)[:RIFFHeaderSize+ChunkHeaderSize+4], ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWebP(tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewFrameReader_Formats(t *testing.T) {
	ivf := writeIVF(t, fakeVP8, fakeVP8)
	r, format, err := NewFrameReader(bytes.NewReader(ivf))
	require.NoError(t, err)
	assert.Equal(t, FormatIVF, format)
	n := 0
	for {
		_, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 2, n)

	r, format, err = NewFrameReader(bytes.NewReader(fakeVP8))
	require.NoError(t, err)
	assert.Equal(t, FormatRaw, format)
	f, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, fakeVP8, f.Data)

	_, _, err = NewFrameReader(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrTruncated)
}
