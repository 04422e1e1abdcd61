package syntax

import (
	"fmt"

	"github.com/deepteams/vp8/internal/bitio"
)

// modeParser reads the per-macroblock prediction syntax that follows the
// frame header in the first partition.
type modeParser struct {
	d      *bitio.RangeDecoder
	state  *State
	tag    FrameTag
	hdr    *FrameHeader
	tables *EntropyTables
	grid   macroblockGrid
}

// parseAll reads every macroblock header in raster order.
func (p *modeParser) parseAll() error {
	for r := 0; r < p.grid.rows; r++ {
		for c := 0; c < p.grid.cols; c++ {
			p.parseMacroblock(r, c)
			if err := checkDecoder(p.d, fmt.Sprintf("macroblock header (%d,%d)", r, c)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *modeParser) parseMacroblock(r, c int) {
	d := p.d
	i := r*p.grid.cols + c
	mb := &p.grid.mbs[i].Header
	*mb = MacroblockHeader{}

	seg := &p.hdr.Segment
	switch {
	case seg.UpdateMap:
		mb.Segment = uint8(d.ReadTree(segmentTree, p.state.Probs.SegmentProbs[:]))
		p.state.segmentMap[i] = mb.Segment
	case seg.Enabled:
		mb.Segment = p.state.segmentMap[i]
	}
	if p.hdr.MBNoCoeffSkip {
		mb.Skip = d.ReadBool(p.hdr.ProbSkipFalse)
	}

	switch {
	case p.tag.KeyFrame:
		p.parseKeyFrameModes(r, c, mb)
	case d.ReadBool(p.hdr.ProbIntra):
		p.parseInterModes(r, c, mb)
	default:
		p.parseIntraModes(mb)
	}
	mb.Class = classOf(mb.YMode)
}

// parseKeyFrameModes reads intra modes with the key-frame probabilities.
// Sub-block modes are conditioned on the modes above and to the left.
func (p *modeParser) parseKeyFrameModes(r, c int, mb *MacroblockHeader) {
	d := p.d
	mb.Ref = IntraFrame
	mb.YMode = PredictionMode(d.ReadTree(kfYModeTree, kfYModeProbs[:]))
	if mb.YMode == BPred {
		for b := range mb.SubModes {
			above, left := p.grid.subModeContext(r, c, b, mb)
			mb.SubModes[b] = SubblockMode(d.ReadTree(bModeTree, kfBModeProbs[above][left][:]))
		}
	} else {
		fillSubModes(mb)
	}
	mb.UVMode = PredictionMode(d.ReadTree(uvModeTree, kfUVModeProbs[:]))
}

// parseIntraModes reads the modes of an intra macroblock in an inter
// frame. These use the frame's mode probabilities and fixed sub-block
// probabilities.
func (p *modeParser) parseIntraModes(mb *MacroblockHeader) {
	d := p.d
	mb.Ref = IntraFrame
	mb.YMode = PredictionMode(d.ReadTree(yModeTree, p.tables.YMode[:]))
	if mb.YMode == BPred {
		for b := range mb.SubModes {
			mb.SubModes[b] = SubblockMode(d.ReadTree(bModeTree, bModeProbs[:]))
		}
	} else {
		fillSubModes(mb)
	}
	mb.UVMode = PredictionMode(d.ReadTree(uvModeTree, p.tables.UVMode[:]))
}

func fillSubModes(mb *MacroblockHeader) {
	m := impliedSubblockModes[mb.YMode]
	for b := range mb.SubModes {
		mb.SubModes[b] = m
	}
}

// parseInterModes reads the reference frame, motion vector mode and
// motion vectors of an inter macroblock (Paragraph 16.3).
func (p *modeParser) parseInterModes(r, c int, mb *MacroblockHeader) {
	d := p.d
	mb.Ref = LastFrame
	if d.ReadBool(p.hdr.ProbLast) {
		mb.Ref = GoldenFrame
		if d.ReadBool(p.hdr.ProbGolden) {
			mb.Ref = AltRefFrame
		}
	}

	near := p.grid.findNearMVs(r, c, mb.Ref, &p.state.Probs.SignBias)
	probs := near.probs()
	mb.YMode = PredictionMode(d.ReadTree(mvRefTree, probs[:]))
	mb.UVMode = DCPred

	bounds := p.grid.bounds(r, c)
	switch mb.YMode {
	case NearestMV:
		mb.MV = bounds.clamp(near.nearest)
	case NearMV:
		mb.MV = bounds.clamp(near.near)
	case NewMV:
		mb.MV = readMV(d, &p.tables.MV).add(bounds.clamp(near.best))
	case SplitMV:
		p.parseSplitMV(r, c, mb, bounds.clamp(near.best))
		return
	}
	for b := range mb.SubMVs {
		mb.SubMVs[b] = mb.MV
	}
}

// parseSplitMV reads the partitioning of a SPLITMV macroblock and one
// motion vector per partition. The macroblock vector is that of the last
// sub-block.
func (p *modeParser) parseSplitMV(r, c int, mb *MacroblockHeader, best MotionVector) {
	d := p.d
	mb.Partition = SplitPartition(d.ReadTree(splitTree, splitProbs[:]))
	layout := &splitLayouts[mb.Partition]
	for part := 0; part < splitCounts[mb.Partition]; part++ {
		k := firstBlockOf(layout, part)
		left, above := p.grid.subMVContext(r, c, k, mb)
		ref := SubMVRef(d.ReadTree(subMVRefTree, subMVRefProbs[subMVRefContext(left, above)][:]))

		var mv MotionVector
		switch ref {
		case SubMVLeft:
			mv = left
		case SubMVAbove:
			mv = above
		case SubMVNew:
			mv = readMV(d, &p.tables.MV).add(best)
		}
		for b, bp := range layout {
			if int(bp) == part {
				mb.SubMVs[b] = mv
				mb.SubRefs[b] = ref
			}
		}
	}
	mb.MV = mb.SubMVs[15]
}
