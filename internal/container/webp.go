package container

import (
	"fmt"
)

// VP8X feature flags.
const (
	AnimationFlag uint32 = 0x00000002
	AlphaFlag     uint32 = 0x00000010
	AllValidFlags uint32 = 0x0000003e
)

// WebPFrame is one VP8 bitstream found in a WebP file.
type WebPFrame struct {
	Payload  []byte
	XOffset  int
	YOffset  int
	Duration int // milliseconds, animations only
	HasAlpha bool
}

// WebPFile lists the VP8 frames of a lossy WebP file, still or animated.
type WebPFile struct {
	Extended     bool
	Animated     bool
	CanvasWidth  int // zero for simple files
	CanvasHeight int
	Frames       []WebPFrame
}

// ParseWebP walks the chunks of a WebP file and collects its VP8 frames.
// Lossless (VP8L) images are reported as ErrUnsupported.
func ParseWebP(data []byte) (*WebPFile, error) {
	hdr, consumed, err := ParseRIFFHeader(data)
	if err != nil {
		return nil, err
	}

	// Limit parsing to the declared RIFF size.
	riffEnd := min(int(hdr.FileSize)+ChunkHeaderSize, len(data))
	buf := data[consumed:riffEnd]

	f := &WebPFile{}
	first, rest, err := nextChunk(buf)
	if err != nil {
		return nil, err
	}
	switch first.FourCC {
	case FourCCVP8:
		f.Frames = append(f.Frames, WebPFrame{Payload: first.Payload})
		return f, nil
	case FourCCVP8X:
		if err := f.parseVP8X(first.Payload); err != nil {
			return nil, err
		}
		if err := f.parseExtended(rest); err != nil {
			return nil, err
		}
		if len(f.Frames) == 0 {
			return nil, fmt.Errorf("%w: no VP8 frame", ErrInvalidChunk)
		}
		return f, nil
	case FourCCVP8L:
		return nil, fmt.Errorf("%w: lossless WebP", ErrUnsupported)
	}
	return nil, fmt.Errorf("%w: unexpected first chunk %q", ErrUnsupported, FourCCString(first.FourCC))
}

func (f *WebPFile) parseVP8X(payload []byte) error {
	if len(payload) != VP8XChunkSize {
		return fmt.Errorf("%w: VP8X payload of %d bytes", ErrInvalidChunk, len(payload))
	}
	flags := uint32(payload[0])
	if flags&^AllValidFlags != 0 {
		return fmt.Errorf("%w: VP8X flags %#x", ErrInvalidChunk, flags)
	}
	f.Extended = true
	f.Animated = flags&AnimationFlag != 0
	// Canvas dimensions: 24-bit LE, stored as value-1.
	f.CanvasWidth = 1 + readLE24(payload[4:7])
	f.CanvasHeight = 1 + readLE24(payload[7:10])
	return nil
}

// parseExtended iterates over the chunks following VP8X.
func (f *WebPFile) parseExtended(buf []byte) error {
	var alpha bool
	for len(buf) >= ChunkHeaderSize {
		c, rest, err := nextChunk(buf)
		if err != nil {
			return err
		}
		switch c.FourCC {
		case FourCCVP8X:
			return fmt.Errorf("%w: duplicate VP8X", ErrInvalidChunk)
		case FourCCALPH:
			alpha = true
		case FourCCVP8:
			if f.Animated {
				return fmt.Errorf("%w: VP8 outside ANMF in an animation", ErrInvalidChunk)
			}
			f.Frames = append(f.Frames, WebPFrame{Payload: c.Payload, HasAlpha: alpha})
		case FourCCVP8L:
			return fmt.Errorf("%w: lossless WebP", ErrUnsupported)
		case FourCCANMF:
			frame, err := parseANMF(c.Payload)
			if err != nil {
				return err
			}
			f.Frames = append(f.Frames, frame)
		}
		buf = rest
	}
	return nil
}

// parseANMF parses an ANMF chunk payload into a frame.
func parseANMF(payload []byte) (WebPFrame, error) {
	if len(payload) < ANMFHeaderSize {
		return WebPFrame{}, fmt.Errorf("%w: ANMF payload of %d bytes", ErrInvalidChunk, len(payload))
	}
	frame := WebPFrame{
		XOffset:  2 * readLE24(payload[0:3]),
		YOffset:  2 * readLE24(payload[3:6]),
		Duration: readLE24(payload[12:15]),
	}

	buf := payload[ANMFHeaderSize:]
	for len(buf) >= ChunkHeaderSize {
		c, rest, err := nextChunk(buf)
		if err != nil {
			return WebPFrame{}, err
		}
		switch c.FourCC {
		case FourCCALPH:
			frame.HasAlpha = true
		case FourCCVP8:
			frame.Payload = c.Payload
			return frame, nil
		case FourCCVP8L:
			return WebPFrame{}, fmt.Errorf("%w: lossless animation frame", ErrUnsupported)
		}
		buf = rest
	}
	return WebPFrame{}, fmt.Errorf("%w: ANMF without VP8 data", ErrInvalidChunk)
}

// BuildWebP wraps a single VP8 key frame in a simple WebP file.
func BuildWebP(vp8 []byte) []byte {
	body := AppendChunk(nil, Chunk{FourCC: FourCCVP8, Payload: vp8})
	out := make([]byte, 0, RIFFHeaderSize+len(body))
	out = AppendChunk(out, Chunk{FourCC: FourCCRIFF, Payload: append(le32(FourCCWEBP), body...)})
	return out
}

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
