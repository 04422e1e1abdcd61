package syntax

import (
	"encoding/binary"
	"fmt"

	"github.com/deepteams/vp8/internal/bitio"
)

const (
	frameTagSize    = 3
	keyFrameInfoLen = 7 // start code + dimensions
	maxVersion      = 3
)

// StartCode is the byte sequence that follows the tag of a key frame.
var StartCode = [3]byte{0x9d, 0x01, 0x2a}

// ParseFrameTag decodes the uncompressed chunk at the start of data and
// returns the tag together with the number of bytes it occupies.
func ParseFrameTag(data []byte) (FrameTag, int, error) {
	var tag FrameTag

	// Paragraph 9.1: frame tag (3 bytes, little endian).
	if len(data) < frameTagSize {
		return tag, 0, fmt.Errorf("%w: frame tag needs %d bytes, have %d", ErrTruncatedStream, frameTagSize, len(data))
	}
	bits := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16
	tag.KeyFrame = bits&1 == 0
	tag.Version = uint8(bits>>1) & 7
	tag.ShowFrame = (bits>>4)&1 != 0
	tag.FirstPartSize = bits >> 5

	if tag.Version > maxVersion {
		return tag, 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, tag.Version)
	}
	if !tag.KeyFrame {
		return tag, frameTagSize, nil
	}

	// Paragraph 9.2: start code and dimensions.
	buf := data[frameTagSize:]
	if len(buf) < keyFrameInfoLen {
		return tag, 0, fmt.Errorf("%w: key frame header needs %d bytes, have %d", ErrTruncatedStream, keyFrameInfoLen, len(buf))
	}
	if buf[0] != StartCode[0] || buf[1] != StartCode[1] || buf[2] != StartCode[2] {
		return tag, 0, fmt.Errorf("%w: % x", ErrInvalidStartCode, buf[:3])
	}
	w := binary.LittleEndian.Uint16(buf[3:5])
	h := binary.LittleEndian.Uint16(buf[5:7])
	tag.Width, tag.HorizontalScale = w&0x3fff, uint8(w>>14)
	tag.Height, tag.VerticalScale = h&0x3fff, uint8(h>>14)
	if tag.Width == 0 || tag.Height == 0 {
		return tag, 0, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, tag.Width, tag.Height)
	}
	return tag, frameTagSize + keyFrameInfoLen, nil
}

// parseFrameHeader reads the frame header from the first partition.
// Cross-frame values are read from and written back to s.
func (s *State) parseFrameHeader(d *bitio.RangeDecoder, tag FrameTag) (*FrameHeader, error) {
	h := &FrameHeader{}
	pc := s.Probs

	if tag.KeyFrame {
		h.ColorSpace = uint8(d.ReadLiteral(1))
		h.ClampingType = uint8(d.ReadLiteral(1))
	}

	s.parseSegmentHeader(d, &h.Segment)
	if err := checkDecoder(d, "segment header"); err != nil {
		return nil, err
	}
	s.parseFilterHeader(d, &h.Filter)
	h.NumPartitions = 1 << d.ReadLiteral(2)
	parseQuant(d, h)
	if err := checkDecoder(d, "filter and quantizer headers"); err != nil {
		return nil, err
	}

	// Paragraph 9.7 - 9.8: reference refresh flags.
	if tag.KeyFrame {
		h.RefreshGolden = true
		h.RefreshAltRef = true
		h.RefreshLast = true
		h.RefreshEntropyProbs = d.ReadFlag()
	} else {
		h.RefreshGolden = d.ReadFlag()
		h.RefreshAltRef = d.ReadFlag()
		if !h.RefreshGolden {
			h.CopyToGolden = uint8(d.ReadLiteral(2))
		}
		if !h.RefreshAltRef {
			h.CopyToAltRef = uint8(d.ReadLiteral(2))
		}
		h.SignBiasGolden = d.ReadFlag()
		h.SignBiasAltRef = d.ReadFlag()
		h.RefreshEntropyProbs = d.ReadFlag()
		h.RefreshLast = d.ReadFlag()
	}
	pc.SignBias[GoldenFrame] = h.SignBiasGolden
	pc.SignBias[AltRefFrame] = h.SignBiasAltRef

	pc.BeginFrame(h.RefreshEntropyProbs)
	t := pc.Tables()

	// Paragraph 13.4: coefficient probability updates.
	h.CoeffProbsUpdated = parseCoeffProbs(d, t)
	if err := checkDecoder(d, "coefficient probability updates"); err != nil {
		return nil, err
	}

	h.MBNoCoeffSkip = d.ReadFlag()
	if h.MBNoCoeffSkip {
		h.ProbSkipFalse = d.ReadProb8()
	}

	if !tag.KeyFrame {
		h.ProbIntra = d.ReadProb8()
		h.ProbLast = d.ReadProb8()
		h.ProbGolden = d.ReadProb8()
		if d.ReadFlag() {
			h.YModeProbsUpdated = true
			for i := range t.YMode {
				t.YMode[i] = d.ReadProb8()
			}
		}
		if d.ReadFlag() {
			h.UVModeProbsUpdated = true
			for i := range t.UVMode {
				t.UVMode[i] = d.ReadProb8()
			}
		}
		h.MVProbsUpdated = parseMVProbs(d, t)
	}
	if err := checkDecoder(d, "frame header"); err != nil {
		return nil, err
	}
	return h, nil
}

// parseSegmentHeader reads Paragraph 9.3. Segment data that is not
// updated keeps its previous value; values of an update that are not
// flagged become zero.
func (s *State) parseSegmentHeader(d *bitio.RangeDecoder, sh *SegmentHeader) {
	sh.Enabled = d.ReadFlag()
	if sh.Enabled {
		sh.UpdateMap = d.ReadFlag()
		sh.UpdateData = d.ReadFlag()
		if sh.UpdateData {
			s.segment.absoluteDelta = d.ReadFlag()
			for i := range s.segment.quantizer {
				s.segment.quantizer[i] = int8(d.ReadOptionalSigned(7))
			}
			for i := range s.segment.filterLevel {
				s.segment.filterLevel[i] = int8(d.ReadOptionalSigned(6))
			}
		}
		if sh.UpdateMap {
			for i := range s.Probs.SegmentProbs {
				p := uint8(255)
				if d.ReadFlag() {
					p = d.ReadProb8()
				}
				s.Probs.SegmentProbs[i] = p
			}
		}
	}
	sh.AbsoluteDelta = s.segment.absoluteDelta
	sh.Quantizer = s.segment.quantizer
	sh.FilterLevel = s.segment.filterLevel
	sh.TreeProbs = s.Probs.SegmentProbs
}

// parseFilterHeader reads Paragraph 9.6. Deltas that are not flagged keep
// their previous value.
func (s *State) parseFilterHeader(d *bitio.RangeDecoder, fh *FilterHeader) {
	pc := s.Probs
	fh.Type = FilterType(d.ReadLiteral(1))
	fh.Level = uint8(d.ReadLiteral(6))
	fh.Sharpness = uint8(d.ReadLiteral(3))
	fh.DeltaEnabled = d.ReadFlag()
	if fh.DeltaEnabled {
		fh.DeltaUpdate = d.ReadFlag()
		if fh.DeltaUpdate {
			for i := range pc.RefLFDelta {
				if d.ReadFlag() {
					pc.RefLFDelta[i] = int8(d.ReadSignedLiteral(6))
				}
			}
			for i := range pc.ModeLFDelta {
				if d.ReadFlag() {
					pc.ModeLFDelta[i] = int8(d.ReadSignedLiteral(6))
				}
			}
		}
	}
	fh.RefDelta = pc.RefLFDelta
	fh.ModeDelta = pc.ModeLFDelta
}

// parseCoeffProbs applies the coefficient probability update pass and
// returns the number of updated entries. Entries without an update keep
// their current value.
func parseCoeffProbs(d *bitio.RangeDecoder, t *EntropyTables) int {
	n := 0
	for i := range t.Coeff {
		for b := range t.Coeff[i] {
			for c := range t.Coeff[i][b] {
				for p := range t.Coeff[i][b][c] {
					if d.ReadBool(CoeffUpdateProbs[i][b][c][p]) {
						t.Coeff[i][b][c][p] = d.ReadProb8()
						n++
					}
				}
			}
		}
	}
	return n
}

// parseMVProbs applies the motion vector probability update pass
// (Paragraph 17.2) and returns the number of updated entries.
func parseMVProbs(d *bitio.RangeDecoder, t *EntropyTables) int {
	n := 0
	for i := range t.MV {
		for j := range t.MV[i] {
			if d.ReadBool(MVUpdateProbs[i][j]) {
				t.MV[i][j] = d.ReadProb7()
				n++
			}
		}
	}
	return n
}

// splitPartitions cuts the data following the first partition into the
// token partitions. Sizes of all but the last partition precede them as
// 3-byte little endian values; the last partition takes the remainder.
func splitPartitions(data []byte, n int) ([][]byte, error) {
	sizeBytes := 3 * (n - 1)
	if len(data) < sizeBytes {
		return nil, fmt.Errorf("%w: partition size table needs %d bytes, have %d", ErrTruncatedStream, sizeBytes, len(data))
	}
	sizes := data[:sizeBytes]
	rest := data[sizeBytes:]

	parts := make([][]byte, n)
	for i := 0; i < n-1; i++ {
		sz := int(sizes[3*i]) | int(sizes[3*i+1])<<8 | int(sizes[3*i+2])<<16
		if sz > len(rest) {
			return nil, fmt.Errorf("%w: partition %d size %d exceeds %d remaining bytes", ErrTruncatedStream, i+1, sz, len(rest))
		}
		parts[i] = rest[:sz]
		rest = rest[sz:]
	}
	parts[n-1] = rest
	return parts, nil
}
