package syntax

import "github.com/deepteams/vp8/internal/bitio"

// mvBorder is how far, in quarter pels, a motion vector may point beyond
// the frame edge (16 pixels).
const mvBorder = 16 << 2

// macroblockGrid gives the mode pass access to already parsed
// neighbours. Positions outside the frame behave as intra macroblocks
// with zero motion.
type macroblockGrid struct {
	rows, cols int
	mbs        []Macroblock
}

func (g *macroblockGrid) header(r, c int) *MacroblockHeader {
	if r < 0 || c < 0 || r >= g.rows || c >= g.cols {
		return nil
	}
	return &g.mbs[r*g.cols+c].Header
}

// subModeContext returns the modes of the sub-blocks above and left of
// sub-block b of the macroblock at (r, c).
func (g *macroblockGrid) subModeContext(r, c, b int, cur *MacroblockHeader) (above, left SubblockMode) {
	above, left = BDCPred, BDCPred
	if b >= 4 {
		above = cur.SubModes[b-4]
	} else if n := g.header(r-1, c); n != nil {
		above = n.SubModes[b+12]
	}
	if b&3 != 0 {
		left = cur.SubModes[b-1]
	} else if n := g.header(r, c-1); n != nil {
		left = n.SubModes[b+3]
	}
	return above, left
}

// subMVContext returns the motion vectors of the sub-blocks left of and
// above sub-block b.
func (g *macroblockGrid) subMVContext(r, c, b int, cur *MacroblockHeader) (left, above MotionVector) {
	if b&3 != 0 {
		left = cur.SubMVs[b-1]
	} else if n := g.header(r, c-1); n != nil {
		left = n.SubMVs[b+3]
	}
	if b >= 4 {
		above = cur.SubMVs[b-4]
	} else if n := g.header(r-1, c); n != nil {
		above = n.SubMVs[b+12]
	}
	return left, above
}

// subMVRefContext selects the sub-block reference probabilities from the
// left and above sub-block motion vectors.
func subMVRefContext(left, above MotionVector) int {
	var zero MotionVector
	switch {
	case left == above && left == zero:
		return 4
	case left == above:
		return 3
	case above == zero:
		return 2
	case left == zero:
		return 1
	}
	return 0
}

// nearMVs is the result of the neighbour motion vector search.
type nearMVs struct {
	best    MotionVector
	nearest MotionVector
	near    MotionVector
	count   [4]int // zero, nearest, near, split weights
}

// probs returns the mode tree probabilities implied by the counts.
func (n *nearMVs) probs() [4]uint8 {
	var p [4]uint8
	for i := range p {
		p[i] = modeContexts[n.count[i]][i]
	}
	return p
}

// findNearMVs ranks the motion vectors of the above, left and above-left
// neighbours. Above and left weigh 2, above-left weighs 1. Vectors of
// neighbours whose reference has a different sign bias are inverted.
func (g *macroblockGrid) findNearMVs(r, c int, ref RefFrame, signBias *[4]bool) nearMVs {
	type neighbour struct {
		h      *MacroblockHeader
		weight int
	}
	neighbours := [3]neighbour{
		{g.header(r-1, c), 2},
		{g.header(r, c-1), 2},
		{g.header(r-1, c-1), 1},
	}

	var mvs [4]MotionVector
	var cnt [4]int
	idx := 0
	for k, n := range neighbours {
		if n.h == nil || n.h.Ref == IntraFrame {
			continue
		}
		if n.h.MV == (MotionVector{}) {
			cnt[0] += n.weight
			continue
		}
		mv := n.h.MV
		if signBias[n.h.Ref] != signBias[ref] {
			mv = MotionVector{Row: -mv.Row, Col: -mv.Col}
		}
		if k == 0 || mv != mvs[idx] {
			idx++
			mvs[idx] = mv
		}
		cnt[idx] += n.weight
	}

	// Three distinct vectors where the last equals the nearest.
	if cnt[3] > 0 && mvs[idx] == mvs[1] {
		cnt[1]++
	}

	cnt[3] = 0
	for _, n := range neighbours {
		if n.h != nil && n.h.Ref != IntraFrame && n.h.YMode == SplitMV {
			cnt[3] += n.weight
		}
	}

	if cnt[2] > cnt[1] {
		cnt[1], cnt[2] = cnt[2], cnt[1]
		mvs[1], mvs[2] = mvs[2], mvs[1]
	}
	if cnt[1] >= cnt[0] {
		mvs[0] = mvs[1]
	}
	return nearMVs{best: mvs[0], nearest: mvs[1], near: mvs[2], count: cnt}
}

// mvBounds limits motion vectors of one macroblock, in quarter pels.
type mvBounds struct {
	toLeft, toRight, toTop, toBottom int
}

func (g *macroblockGrid) bounds(r, c int) mvBounds {
	return mvBounds{
		toLeft:   -(c << 6) - mvBorder,
		toRight:  ((g.cols - 1 - c) << 6) + mvBorder,
		toTop:    -(r << 6) - mvBorder,
		toBottom: ((g.rows - 1 - r) << 6) + mvBorder,
	}
}

func (b mvBounds) clamp(v MotionVector) MotionVector {
	col, row := int(v.Col), int(v.Row)
	col = min(max(col, b.toLeft), b.toRight)
	row = min(max(row, b.toTop), b.toBottom)
	return MotionVector{Row: int16(row), Col: int16(col)}
}

// readMV reads a motion vector: row first, then column.
func readMV(d *bitio.RangeDecoder, probs *[2][NumMVProbs]uint8) MotionVector {
	row := readMVComponent(d, &probs[0])
	col := readMVComponent(d, &probs[1])
	return MotionVector{Row: row, Col: col}
}

// readMVComponent reads one component (Paragraph 17.2). Short values use
// a tree; long values are sent bit by bit, low bits first, with bit 3
// implied when no higher bit is set.
func readMVComponent(d *bitio.RangeDecoder, p *[NumMVProbs]uint8) int16 {
	var a int
	if d.ReadBool(p[mvpIsShort]) {
		for i := 0; i < 3; i++ {
			if d.ReadBool(p[mvpLong+i]) {
				a += 1 << i
			}
		}
		for i := mvLongBits - 1; i > 3; i-- {
			if d.ReadBool(p[mvpLong+i]) {
				a += 1 << i
			}
		}
		if a&0xfff0 == 0 || d.ReadBool(p[mvpLong+3]) {
			a += 8
		}
	} else {
		a = d.ReadTree(smallMVTree, p[mvpShort:])
	}
	if a != 0 && d.ReadBool(p[mvpSign]) {
		a = -a
	}
	return int16(a)
}

// firstBlockOf returns the first sub-block of partition part.
func firstBlockOf(layout *[16]uint8, part int) int {
	for b, p := range layout {
		if int(p) == part {
			return b
		}
	}
	return 0
}
