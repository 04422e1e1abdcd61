package syntax

import "github.com/deepteams/vp8/internal/bitio"

// Residual block layout.
const (
	firstUBlock = 16
	firstVBlock = 20
	y2Block     = 24
)

// tokenContext holds the "has coefficients" flags of the blocks bordering
// a macroblock edge: four luma, two per chroma plane and the Y2 block.
type tokenContext struct {
	y  [4]bool
	u  [2]bool
	v  [2]bool
	y2 bool
}

// tokenDecoder reads the residual coefficients of macroblocks from one
// token partition.
type tokenDecoder struct {
	tables *EntropyTables
	hdr    *FrameHeader
	levels *filterLevels
	tokens int
}

// decodeMacroblock reads the residual of one macroblock. The metadata is
// the only input from the mode pass; HasContent is written back to it.
func (t *tokenDecoder) decodeMacroblock(d *bitio.RangeDecoder, meta *MacroblockMeta, res *ResidualData, above, left *tokenContext) {
	*res = ResidualData{
		HasY2:       meta.Class.HasY2(),
		Segment:     meta.Segment,
		QuantIndex:  t.hdr.SegmentQuant[meta.Segment],
		FilterLevel: t.levels[meta.Segment][meta.Ref][meta.Class],
	}

	if meta.Skip {
		res.Skipped = true
		meta.HasContent = false
		above.y, left.y = [4]bool{}, [4]bool{}
		above.u, left.u = [2]bool{}, [2]bool{}
		above.v, left.v = [2]bool{}, [2]bool{}
		if res.HasY2 {
			above.y2, left.y2 = false, false
		}
		return
	}

	first, yType := 0, blockTypeYWithDC
	if res.HasY2 {
		ctx := b2i(above.y2) + b2i(left.y2)
		nz := t.decodeBlock(d, blockTypeY2, ctx, 0, &res.Coeffs[y2Block])
		above.y2, left.y2 = nz, nz
		res.setNonZero(y2Block, nz)
		first, yType = 1, blockTypeYAfterY2
	}

	for y := 0; y < 4; y++ {
		l := left.y[y]
		for x := 0; x < 4; x++ {
			b := y*4 + x
			nz := t.decodeBlock(d, yType, b2i(above.y[x])+b2i(l), first, &res.Coeffs[b])
			above.y[x], l = nz, nz
			res.setNonZero(b, nz)
		}
		left.y[y] = l
	}

	t.decodeChroma(d, res, firstUBlock, &above.u, &left.u)
	t.decodeChroma(d, res, firstVBlock, &above.v, &left.v)

	meta.HasContent = res.NonZero != 0
}

func (t *tokenDecoder) decodeChroma(d *bitio.RangeDecoder, res *ResidualData, base int, above, left *[2]bool) {
	for y := 0; y < 2; y++ {
		l := left[y]
		for x := 0; x < 2; x++ {
			b := base + y*2 + x
			nz := t.decodeBlock(d, blockTypeChroma, b2i(above[x])+b2i(l), 0, &res.Coeffs[b])
			above[x], l = nz, nz
			res.setNonZero(b, nz)
		}
		left[y] = l
	}
}

// decodeBlock reads the tokens of one 4x4 block starting at scan position
// first and stores the values in natural order. It reports whether the
// block ended past its first position (Paragraph 13.3).
func (t *tokenDecoder) decodeBlock(d *bitio.RangeDecoder, typ, ctx, first int, out *[16]int16) bool {
	probs := &t.tables.Coeff[typ]
	n := first
	start := 0
	for n < 16 {
		tok := d.ReadTreeFrom(coeffTree, probs[coeffBands[n]][ctx][:], start)
		t.tokens++
		if tok == tokenEOB {
			break
		}
		if tok == tokenZero {
			// EOB cannot follow a zero.
			ctx, start = 0, 2
			n++
			continue
		}
		v := readTokenValue(d, tok)
		ctx = 2
		if v == 1 {
			ctx = 1
		}
		if d.ReadFlag() {
			v = -v
		}
		out[Zigzag[n]] = int16(v)
		start = 0
		n++
	}
	return n > first
}

// readTokenValue returns the magnitude of a non-zero token, reading the
// extra bits of the DCT_CAT tokens most significant first.
func readTokenValue(d *bitio.RangeDecoder, tok int) int {
	if tok <= tokenFour {
		return tok
	}
	cat := tok - tokenCat1
	v := 0
	for _, p := range catProbs[cat] {
		v += v
		if d.ReadBool(p) {
			v++
		}
	}
	return catBases[cat] + v
}

func (res *ResidualData) setNonZero(b int, nz bool) {
	if nz {
		res.NonZero |= 1 << uint(b)
	}
}

// b2i converts bool to int (0 or 1).
func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
