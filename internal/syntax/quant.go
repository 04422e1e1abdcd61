package syntax

import "github.com/deepteams/vp8/internal/bitio"

const (
	maxQuantIndex  = 127
	maxFilterLevel = 63
)

// clip clips v to [0, max].
func clip(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// parseQuant reads the quantizer indices (Paragraph 9.6) and resolves the
// base index of every segment.
func parseQuant(d *bitio.RangeDecoder, h *FrameHeader) {
	q := &h.Quant
	q.YAC = int(d.ReadLiteral(7))
	q.YDCDelta = int(d.ReadOptionalSigned(4))
	q.Y2DCDelta = int(d.ReadOptionalSigned(4))
	q.Y2ACDelta = int(d.ReadOptionalSigned(4))
	q.UVDCDelta = int(d.ReadOptionalSigned(4))
	q.UVACDelta = int(d.ReadOptionalSigned(4))

	for i := range h.SegmentQuant {
		v := q.YAC
		if h.Segment.Enabled {
			v = int(h.Segment.Quantizer[i])
			if !h.Segment.AbsoluteDelta {
				v += q.YAC
			}
		}
		h.SegmentQuant[i] = clip(v, maxQuantIndex)
	}
}

// filterLevels holds the loop filter level of every combination of
// segment, reference frame and mode class.
type filterLevels [NumSegments][4][4]uint8

// computeFilterLevels applies the segment override and the reference and
// mode deltas to the frame's base loop filter level.
func computeFilterLevels(h *FrameHeader) *filterLevels {
	lv := &filterLevels{}
	fh := &h.Filter
	for s := 0; s < NumSegments; s++ {
		base := int(fh.Level)
		if h.Segment.Enabled {
			base = int(h.Segment.FilterLevel[s])
			if !h.Segment.AbsoluteDelta {
				base += int(fh.Level)
			}
			base = clip(base, maxFilterLevel)
		}
		for ref := IntraFrame; ref <= AltRefFrame; ref++ {
			for class := ClassSubblock; class <= ClassSplit; class++ {
				level := base
				if fh.DeltaEnabled {
					level += int(fh.RefDelta[ref])
					switch {
					case ref != IntraFrame:
						level += int(fh.ModeDelta[class])
					case class == ClassSubblock:
						level += int(fh.ModeDelta[0])
					}
				}
				lv[s][ref][class] = uint8(clip(level, maxFilterLevel))
			}
		}
	}
	return lv
}
