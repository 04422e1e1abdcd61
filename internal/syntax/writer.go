package syntax

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/deepteams/vp8/internal/bitio"
)

var errWriter = errors.New("vp8: cannot encode frame")

// maxCoeffMagnitude is the largest value a DCT_CAT6 token can carry.
const maxCoeffMagnitude = 67 + 1<<11 - 1

// FrameSource describes a frame to be written by FrameWriter.
type FrameSource struct {
	// Tag supplies the key frame flag, version, show flag and, for key
	// frames, the dimensions. FirstPartSize is computed.
	Tag FrameTag
	// Header supplies every frame header syntax element. Segment and
	// filter delta values are the values to put in effect.
	Header FrameHeader
	// Tables are the probabilities the frame should use. Entries that
	// differ from the current ones are sent as updates. Nil sends none.
	Tables *EntropyTables
	// Macroblocks in raster order. Derived fields (Class, motion vectors
	// of NEAREST/NEAR/ZERO and of LEFT/ABOVE/ZERO sub-blocks) are
	// recomputed the way the decoder derives them.
	Macroblocks []Macroblock
}

// FrameWriter encodes frame syntax. It keeps the same cross-frame state
// as the decoder so that a stream of frames decodes back to its sources.
type FrameWriter struct {
	state *State
}

// NewFrameWriter returns a writer at the start of a stream.
func NewFrameWriter() *FrameWriter {
	return &FrameWriter{state: NewState()}
}

// WriteFrame encodes src and returns the compressed frame. On error the
// writer state is unchanged.
func (w *FrameWriter) WriteFrame(src *FrameSource) ([]byte, error) {
	var snap stateSnapshot
	w.state.save(&snap)
	data, err := w.writeFrame(src)
	if err != nil {
		w.state.restore(&snap)
		return nil, err
	}
	return data, nil
}

func (w *FrameWriter) writeFrame(src *FrameSource) ([]byte, error) {
	s := w.state
	tag := src.Tag
	if tag.Version > maxVersion {
		return nil, fmt.Errorf("%w: %w: %d", errWriter, ErrUnsupportedVersion, tag.Version)
	}
	if tag.KeyFrame {
		if tag.Width == 0 || tag.Height == 0 {
			return nil, fmt.Errorf("%w: %w: %dx%d", errWriter, ErrInvalidDimensions, tag.Width, tag.Height)
		}
		s.beginKeyFrame(tag)
	} else {
		if !s.hasKeyFrame {
			return nil, fmt.Errorf("%w: %w: inter frame before any key frame", errWriter, ErrDimensionMismatch)
		}
		s.inheritDimensions(&tag)
	}
	rows, cols := tag.MacroblockRows(), tag.MacroblockCols()
	if len(src.Macroblocks) != rows*cols {
		return nil, fmt.Errorf("%w: have %d macroblocks, frame needs %d", errWriter, len(src.Macroblocks), rows*cols)
	}

	hdr := src.Header
	log2Parts, err := log2Partitions(hdr.NumPartitions)
	if err != nil {
		return nil, err
	}

	bw := bitio.NewBoolWriter(rows * cols * 8)
	if err := w.emitFrameHeader(bw, tag, &hdr, log2Parts, src.Tables); err != nil {
		return nil, err
	}

	mbs := make([]Macroblock, len(src.Macroblocks))
	grid := macroblockGrid{rows: rows, cols: cols, mbs: mbs}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := r*cols + c
			mbs[i].Header = src.Macroblocks[i].Header
			if err := w.emitMacroblock(bw, &grid, r, c, tag, &hdr); err != nil {
				return nil, fmt.Errorf("macroblock (%d,%d): %w", r, c, err)
			}
			mbs[i].Residual = src.Macroblocks[i].Residual
		}
	}
	part0 := bw.Finish()
	if err := bw.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errWriter, err)
	}
	if len(part0) >= 1<<19 {
		return nil, fmt.Errorf("%w: first partition of %d bytes exceeds the tag field", errWriter, len(part0))
	}

	parts, err := w.emitTokenPartitions(&grid, &hdr)
	if err != nil {
		return nil, err
	}
	tag.FirstPartSize = uint32(len(part0))
	return assembleFrame(tag, part0, parts), nil
}

func log2Partitions(n int) (int, error) {
	switch n {
	case 0, 1:
		return 0, nil
	case 2:
		return 1, nil
	case 4:
		return 2, nil
	case 8:
		return 3, nil
	}
	return 0, fmt.Errorf("%w: %d token partitions", errWriter, n)
}

// emitFrameHeader writes the frame header in the order parseFrameHeader
// reads it and applies the same state changes.
func (w *FrameWriter) emitFrameHeader(bw *bitio.BoolWriter, tag FrameTag, h *FrameHeader, log2Parts int, want *EntropyTables) error {
	s := w.state
	pc := s.Probs
	h.NumPartitions = 1 << log2Parts

	if tag.KeyFrame {
		bw.PutLiteral(uint32(h.ColorSpace), 1)
		bw.PutLiteral(uint32(h.ClampingType), 1)
	}

	w.writeSegmentHeader(bw, &h.Segment)
	w.writeFilterHeader(bw, &h.Filter)
	bw.PutLiteral(uint32(log2Parts), 2)

	q := &h.Quant
	bw.PutLiteral(uint32(q.YAC), 7)
	bw.PutOptionalSigned(int32(q.YDCDelta), 4)
	bw.PutOptionalSigned(int32(q.Y2DCDelta), 4)
	bw.PutOptionalSigned(int32(q.Y2ACDelta), 4)
	bw.PutOptionalSigned(int32(q.UVDCDelta), 4)
	bw.PutOptionalSigned(int32(q.UVACDelta), 4)

	if tag.KeyFrame {
		h.SignBiasGolden, h.SignBiasAltRef = false, false
		bw.PutFlag(h.RefreshEntropyProbs)
	} else {
		bw.PutFlag(h.RefreshGolden)
		bw.PutFlag(h.RefreshAltRef)
		if !h.RefreshGolden {
			bw.PutLiteral(uint32(h.CopyToGolden), 2)
		}
		if !h.RefreshAltRef {
			bw.PutLiteral(uint32(h.CopyToAltRef), 2)
		}
		bw.PutFlag(h.SignBiasGolden)
		bw.PutFlag(h.SignBiasAltRef)
		bw.PutFlag(h.RefreshEntropyProbs)
		bw.PutFlag(h.RefreshLast)
	}
	pc.SignBias[GoldenFrame] = h.SignBiasGolden
	pc.SignBias[AltRefFrame] = h.SignBiasAltRef

	pc.BeginFrame(h.RefreshEntropyProbs)
	t := pc.Tables()
	if want == nil {
		want = t
	}

	for i := range t.Coeff {
		for b := range t.Coeff[i] {
			for c := range t.Coeff[i][b] {
				for p := range t.Coeff[i][b][c] {
					v := want.Coeff[i][b][c][p]
					if bw.PutBool(v != t.Coeff[i][b][c][p], CoeffUpdateProbs[i][b][c][p]) {
						bw.PutLiteral(uint32(v), 8)
						t.Coeff[i][b][c][p] = v
					}
				}
			}
		}
	}

	bw.PutFlag(h.MBNoCoeffSkip)
	if h.MBNoCoeffSkip {
		bw.PutLiteral(uint32(h.ProbSkipFalse), 8)
	}

	if !tag.KeyFrame {
		bw.PutLiteral(uint32(h.ProbIntra), 8)
		bw.PutLiteral(uint32(h.ProbLast), 8)
		bw.PutLiteral(uint32(h.ProbGolden), 8)
		if bw.PutFlag(want.YMode != t.YMode) {
			t.YMode = want.YMode
			for _, p := range t.YMode {
				bw.PutLiteral(uint32(p), 8)
			}
		}
		if bw.PutFlag(want.UVMode != t.UVMode) {
			t.UVMode = want.UVMode
			for _, p := range t.UVMode {
				bw.PutLiteral(uint32(p), 8)
			}
		}
		// Updates carry 7 bits: p>>1 for even p, 0 for p == 1.
		for i := range t.MV {
			for j := range t.MV[i] {
				v := want.MV[i][j]
				if !bw.PutBool(v != t.MV[i][j], MVUpdateProbs[i][j]) {
					continue
				}
				if v == 0 || v != 1 && v&1 != 0 {
					return fmt.Errorf("%w: motion vector probability [%d][%d] = %d has no 7-bit code", errWriter, i, j, v)
				}
				bw.PutLiteral(uint32(v>>1), 7)
				t.MV[i][j] = v
			}
		}
	}
	return nil
}

func (w *FrameWriter) writeSegmentHeader(bw *bitio.BoolWriter, sh *SegmentHeader) {
	s := w.state
	if !bw.PutFlag(sh.Enabled) {
		return
	}
	bw.PutFlag(sh.UpdateMap)
	bw.PutFlag(sh.UpdateData)
	if sh.UpdateData {
		bw.PutFlag(sh.AbsoluteDelta)
		s.segment.absoluteDelta = sh.AbsoluteDelta
		for i, q := range sh.Quantizer {
			bw.PutOptionalSigned(int32(q), 7)
			s.segment.quantizer[i] = q
		}
		for i, lf := range sh.FilterLevel {
			bw.PutOptionalSigned(int32(lf), 6)
			s.segment.filterLevel[i] = lf
		}
	}
	if sh.UpdateMap {
		for i, p := range sh.TreeProbs {
			if bw.PutFlag(p != 255) {
				bw.PutLiteral(uint32(p), 8)
			}
			s.Probs.SegmentProbs[i] = p
		}
	}
}

func (w *FrameWriter) writeFilterHeader(bw *bitio.BoolWriter, fh *FilterHeader) {
	pc := w.state.Probs
	bw.PutLiteral(uint32(fh.Type), 1)
	bw.PutLiteral(uint32(fh.Level), 6)
	bw.PutLiteral(uint32(fh.Sharpness), 3)
	if !bw.PutFlag(fh.DeltaEnabled) {
		return
	}
	if !bw.PutFlag(fh.DeltaUpdate) {
		return
	}
	for i, v := range fh.RefDelta {
		if bw.PutFlag(v != pc.RefLFDelta[i]) {
			bw.PutSignedLiteral(int32(v), 6)
			pc.RefLFDelta[i] = v
		}
	}
	for i, v := range fh.ModeDelta {
		if bw.PutFlag(v != pc.ModeLFDelta[i]) {
			bw.PutSignedLiteral(int32(v), 6)
			pc.ModeLFDelta[i] = v
		}
	}
}

// emitMacroblock writes the header of the macroblock at (r, c), whose
// source header has been copied into the grid.
func (w *FrameWriter) emitMacroblock(bw *bitio.BoolWriter, g *macroblockGrid, r, c int, tag FrameTag, h *FrameHeader) error {
	s := w.state
	i := r*g.cols + c
	mb := &g.mbs[i].Header
	mb.HasContent = false

	switch {
	case h.Segment.UpdateMap:
		if mb.Segment >= NumSegments {
			return fmt.Errorf("%w: segment %d", errWriter, mb.Segment)
		}
		bw.PutTree(segmentTree, s.Probs.SegmentProbs[:], int(mb.Segment))
		s.segmentMap[i] = mb.Segment
	case h.Segment.Enabled:
		mb.Segment = s.segmentMap[i]
	default:
		mb.Segment = 0
	}
	if h.MBNoCoeffSkip {
		bw.PutBool(mb.Skip, h.ProbSkipFalse)
	} else {
		mb.Skip = false
	}

	t := s.Probs.Tables()
	switch {
	case tag.KeyFrame:
		mb.Ref = IntraFrame
		if mb.YMode.IsInter() {
			return fmt.Errorf("%w: inter mode %v in key frame", errWriter, mb.YMode)
		}
		bw.PutTree(kfYModeTree, kfYModeProbs[:], int(mb.YMode))
		if mb.YMode == BPred {
			for b := range mb.SubModes {
				above, left := g.subModeContext(r, c, b, mb)
				bw.PutTree(bModeTree, kfBModeProbs[above][left][:], int(mb.SubModes[b]))
			}
		} else {
			fillSubModes(mb)
		}
		bw.PutTree(uvModeTree, kfUVModeProbs[:], int(mb.UVMode))
		clearMotion(mb)

	case !mb.YMode.IsInter():
		bw.PutBool(false, h.ProbIntra)
		mb.Ref = IntraFrame
		bw.PutTree(yModeTree, t.YMode[:], int(mb.YMode))
		if mb.YMode == BPred {
			for _, m := range mb.SubModes {
				bw.PutTree(bModeTree, bModeProbs[:], int(m))
			}
		} else {
			fillSubModes(mb)
		}
		bw.PutTree(uvModeTree, t.UVMode[:], int(mb.UVMode))
		clearMotion(mb)

	default:
		bw.PutBool(true, h.ProbIntra)
		if mb.Ref == IntraFrame {
			mb.Ref = LastFrame
		}
		if bw.PutBool(mb.Ref != LastFrame, h.ProbLast) {
			bw.PutBool(mb.Ref == AltRefFrame, h.ProbGolden)
		}
		mb.SubModes = [16]SubblockMode{}
		if err := w.emitInterModes(bw, g, r, c, mb, &t.MV); err != nil {
			return err
		}
	}
	mb.Class = classOf(mb.YMode)
	return nil
}

// clearMotion zeroes the inter fields of an intra macroblock.
func clearMotion(mb *MacroblockHeader) {
	mb.MV, mb.SubMVs = MotionVector{}, [16]MotionVector{}
	mb.Partition, mb.SubRefs = 0, [16]SubMVRef{}
}

func (w *FrameWriter) emitInterModes(bw *bitio.BoolWriter, g *macroblockGrid, r, c int, mb *MacroblockHeader, mvProbs *[2][NumMVProbs]uint8) error {
	near := g.findNearMVs(r, c, mb.Ref, &w.state.Probs.SignBias)
	probs := near.probs()
	bw.PutTree(mvRefTree, probs[:], int(mb.YMode))
	mb.UVMode = DCPred

	bounds := g.bounds(r, c)
	best := bounds.clamp(near.best)
	switch mb.YMode {
	case NearestMV:
		mb.MV = bounds.clamp(near.nearest)
	case NearMV:
		mb.MV = bounds.clamp(near.near)
	case ZeroMV:
		mb.MV = MotionVector{}
	case NewMV:
		if err := writeMV(bw, mvProbs, mb.MV, best); err != nil {
			return err
		}
	case SplitMV:
		return emitSplitMV(bw, g, r, c, mb, best, mvProbs)
	default:
		return fmt.Errorf("%w: mode %v", errWriter, mb.YMode)
	}
	mb.Partition, mb.SubRefs = 0, [16]SubMVRef{}
	for b := range mb.SubMVs {
		mb.SubMVs[b] = mb.MV
	}
	return nil
}

func emitSplitMV(bw *bitio.BoolWriter, g *macroblockGrid, r, c int, mb *MacroblockHeader, best MotionVector, mvProbs *[2][NumMVProbs]uint8) error {
	if mb.Partition > Split4x4 {
		return fmt.Errorf("%w: split partition %d", errWriter, mb.Partition)
	}
	bw.PutTree(splitTree, splitProbs[:], int(mb.Partition))
	layout := &splitLayouts[mb.Partition]
	want := mb.SubMVs
	for part := 0; part < splitCounts[mb.Partition]; part++ {
		k := firstBlockOf(layout, part)
		left, above := g.subMVContext(r, c, k, mb)
		ref := mb.SubRefs[k]
		bw.PutTree(subMVRefTree, subMVRefProbs[subMVRefContext(left, above)][:], int(ref))

		var mv MotionVector
		switch ref {
		case SubMVLeft:
			mv = left
		case SubMVAbove:
			mv = above
		case SubMVNew:
			mv = want[k]
			if err := writeMV(bw, mvProbs, mv, best); err != nil {
				return err
			}
		}
		for b, bp := range layout {
			if int(bp) == part {
				mb.SubMVs[b] = mv
				mb.SubRefs[b] = ref
			}
		}
	}
	mb.MV = mb.SubMVs[15]
	return nil
}

// writeMV writes mv as a difference from best.
func writeMV(bw *bitio.BoolWriter, probs *[2][NumMVProbs]uint8, mv, best MotionVector) error {
	dr, dc := int(mv.Row)-int(best.Row), int(mv.Col)-int(best.Col)
	if dr < -maxMVMagnitude || dr > maxMVMagnitude || dc < -maxMVMagnitude || dc > maxMVMagnitude {
		return fmt.Errorf("%w: motion vector %v is too far from predictor %v", errWriter, mv, best)
	}
	writeMVComponent(bw, &probs[0], dr)
	writeMVComponent(bw, &probs[1], dc)
	return nil
}

func writeMVComponent(bw *bitio.BoolWriter, p *[NumMVProbs]uint8, v int) {
	a := v
	if a < 0 {
		a = -a
	}
	if bw.PutBool(a > mvShortMax, p[mvpIsShort]) {
		for i := 0; i < 3; i++ {
			bw.PutBool(a>>i&1 == 1, p[mvpLong+i])
		}
		for i := mvLongBits - 1; i > 3; i-- {
			bw.PutBool(a>>i&1 == 1, p[mvpLong+i])
		}
		if a&0xfff0 != 0 {
			bw.PutBool(a>>3&1 == 1, p[mvpLong+3])
		}
	} else {
		bw.PutTree(smallMVTree, p[mvpShort:], a)
	}
	if a != 0 {
		bw.PutBool(v < 0, p[mvpSign])
	}
}

// emitTokenPartitions writes the residuals of every row into partition
// row mod n.
func (w *FrameWriter) emitTokenPartitions(g *macroblockGrid, h *FrameHeader) ([][]byte, error) {
	t := w.state.Probs.Tables()
	n := h.NumPartitions
	bws := make([]*bitio.BoolWriter, n)
	for i := range bws {
		bws[i] = bitio.NewBoolWriter(g.rows * g.cols * 32 / n)
	}
	above := make([]tokenContext, g.cols)
	for r := 0; r < g.rows; r++ {
		bw := bws[r%n]
		var left tokenContext
		for c := 0; c < g.cols; c++ {
			mb := &g.mbs[r*g.cols+c]
			if err := writeResidual(bw, t, &mb.Header.MacroblockMeta, &mb.Residual, &above[c], &left); err != nil {
				return nil, fmt.Errorf("macroblock (%d,%d): %w", r, c, err)
			}
		}
	}
	parts := make([][]byte, n)
	for i, bw := range bws {
		parts[i] = bw.Finish()
		if err := bw.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", errWriter, err)
		}
	}
	return parts, nil
}

// writeResidual mirrors tokenDecoder.decodeMacroblock.
func writeResidual(bw *bitio.BoolWriter, t *EntropyTables, meta *MacroblockMeta, res *ResidualData, above, left *tokenContext) error {
	hasY2 := meta.Class.HasY2()
	if meta.Skip {
		above.y, left.y = [4]bool{}, [4]bool{}
		above.u, left.u = [2]bool{}, [2]bool{}
		above.v, left.v = [2]bool{}, [2]bool{}
		if hasY2 {
			above.y2, left.y2 = false, false
		}
		return nil
	}

	first, yType := 0, blockTypeYWithDC
	if hasY2 {
		nz, err := writeBlock(bw, &t.Coeff[blockTypeY2], b2i(above.y2)+b2i(left.y2), 0, &res.Coeffs[y2Block])
		if err != nil {
			return err
		}
		above.y2, left.y2 = nz, nz
		first, yType = 1, blockTypeYAfterY2
	}
	for y := 0; y < 4; y++ {
		l := left.y[y]
		for x := 0; x < 4; x++ {
			nz, err := writeBlock(bw, &t.Coeff[yType], b2i(above.y[x])+b2i(l), first, &res.Coeffs[y*4+x])
			if err != nil {
				return err
			}
			above.y[x], l = nz, nz
		}
		left.y[y] = l
	}
	for _, plane := range []struct {
		base        int
		above, left *[2]bool
	}{
		{firstUBlock, &above.u, &left.u},
		{firstVBlock, &above.v, &left.v},
	} {
		for y := 0; y < 2; y++ {
			l := plane.left[y]
			for x := 0; x < 2; x++ {
				b := plane.base + y*2 + x
				nz, err := writeBlock(bw, &t.Coeff[blockTypeChroma], b2i(plane.above[x])+b2i(l), 0, &res.Coeffs[b])
				if err != nil {
					return err
				}
				plane.above[x], l = nz, nz
			}
			plane.left[y] = l
		}
	}
	return nil
}

// writeBlock writes the tokens of one block from scan position first up
// to its last non-zero coefficient, followed by an end of block unless
// the block runs to the last position.
func writeBlock(bw *bitio.BoolWriter, probs *[NumBands][NumContexts][NumTokenProbs]uint8, ctx, first int, in *[16]int16) (bool, error) {
	eob := first
	for n := 15; n >= first; n-- {
		if in[Zigzag[n]] != 0 {
			eob = n + 1
			break
		}
	}

	n, start := first, 0
	for ; n < eob; n++ {
		p := probs[coeffBands[n]][ctx][:]
		v := int(in[Zigzag[n]])
		if v == 0 {
			bw.PutTreeFrom(coeffTree, p, tokenZero, start)
			ctx, start = 0, 2
			continue
		}
		a := v
		if a < 0 {
			a = -a
		}
		if a > maxCoeffMagnitude {
			return false, fmt.Errorf("%w: coefficient %d out of range", errWriter, v)
		}
		tok, extra := tokenFor(a)
		bw.PutTreeFrom(coeffTree, p, tok, start)
		if tok >= tokenCat1 {
			cp := catProbs[tok-tokenCat1]
			for i, pr := range cp {
				bw.PutBool(extra>>(len(cp)-1-i)&1 == 1, pr)
			}
		}
		bw.PutFlag(v < 0)
		ctx, start = 2, 0
		if a == 1 {
			ctx = 1
		}
	}
	if n < 16 {
		bw.PutTreeFrom(coeffTree, probs[coeffBands[n]][ctx][:], tokenEOB, start)
	}
	return eob > first, nil
}

// tokenFor returns the token carrying magnitude a and its extra bits.
func tokenFor(a int) (tok, extra int) {
	if a <= 4 {
		return a, 0
	}
	for cat := len(catBases) - 1; cat >= 0; cat-- {
		if a >= catBases[cat] {
			return tokenCat1 + cat, a - catBases[cat]
		}
	}
	return tokenFour, 0
}

// assembleFrame joins the frame tag, the key frame start code and
// dimensions, the first partition, the partition size table and the
// token partitions.
func assembleFrame(tag FrameTag, part0 []byte, parts [][]byte) []byte {
	size := frameTagSize + len(part0) + 3*(len(parts)-1)
	if tag.KeyFrame {
		size += keyFrameInfoLen
	}
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)

	bits := uint32(tag.Version&7)<<1 | tag.FirstPartSize<<5
	if !tag.KeyFrame {
		bits |= 1
	}
	if tag.ShowFrame {
		bits |= 1 << 4
	}
	buf = append(buf, byte(bits), byte(bits>>8), byte(bits>>16))

	if tag.KeyFrame {
		buf = append(buf, StartCode[:]...)
		buf = binary.LittleEndian.AppendUint16(buf, tag.Width&0x3fff|uint16(tag.HorizontalScale)<<14)
		buf = binary.LittleEndian.AppendUint16(buf, tag.Height&0x3fff|uint16(tag.VerticalScale)<<14)
	}
	buf = append(buf, part0...)
	for i := 0; i < len(parts)-1; i++ {
		sz := len(parts[i])
		buf = append(buf, byte(sz), byte(sz>>8), byte(sz>>16))
	}
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}
