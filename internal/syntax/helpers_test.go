package syntax

import (
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func keyTag(w, h uint16) FrameTag {
	return FrameTag{KeyFrame: true, ShowFrame: true, Width: w, Height: h}
}

func interTag() FrameTag {
	return FrameTag{ShowFrame: true}
}

func baseHeader() FrameHeader {
	return FrameHeader{
		NumPartitions:       1,
		Quant:               QuantIndices{YAC: 40},
		Filter:              FilterHeader{Level: 20, Sharpness: 2},
		RefreshEntropyProbs: true,
		RefreshLast:         true,
		MBNoCoeffSkip:       true,
		ProbSkipFalse:       200,
		ProbIntra:           100,
		ProbLast:            150,
		ProbGolden:          128,
	}
}

// skippedFrame returns rows*cols DC_PRED macroblocks without residual.
func skippedFrame(tag FrameTag, rows, cols int) *FrameSource {
	src := &FrameSource{Tag: tag, Header: baseHeader(), Macroblocks: make([]Macroblock, rows*cols)}
	for i := range src.Macroblocks {
		src.Macroblocks[i].Header.Skip = true
	}
	return src
}

func mustWrite(t require.TestingT, w *FrameWriter, src *FrameSource) []byte {
	data, err := w.WriteFrame(src)
	require.NoError(t, err)
	return data
}

func mustDecode(t require.TestingT, s *State, data []byte, opts DecodeOptions) *Frame {
	f, err := DecodeFrame(s, data, opts)
	require.NoError(t, err)
	return f
}

var coeffMagnitudes = []int{1, 2, 3, 4, 5, 6, 7, 10, 11, 18, 19, 34, 35, 66, 67, 100, 2048, maxCoeffMagnitude}

// drawResidual fills a few scan positions of every block. With hasY2 the
// luma DC positions stay empty since they are carried by the Y2 block.
func drawResidual(t *rapid.T, res *ResidualData, hasY2 bool) {
	for b := 0; b < 25; b++ {
		if b == y2Block && !hasY2 {
			continue
		}
		first := 0
		if b < firstUBlock && hasY2 {
			first = 1
		}
		n := rapid.IntRange(0, 3).Draw(t, "count")
		for i := 0; i < n; i++ {
			pos := rapid.IntRange(first, 15).Draw(t, "pos")
			v := rapid.SampledFrom(coeffMagnitudes).Draw(t, "mag")
			if rapid.Bool().Draw(t, "neg") {
				v = -v
			}
			res.Coeffs[b][Zigzag[pos]] = int16(v)
		}
	}
}

// drawIntraMacroblock draws intra modes and, unless skipped, residual.
func drawIntraMacroblock(t *rapid.T) Macroblock {
	var mb Macroblock
	h := &mb.Header
	h.YMode = PredictionMode(rapid.IntRange(int(DCPred), int(BPred)).Draw(t, "ymode"))
	h.UVMode = PredictionMode(rapid.IntRange(int(DCPred), int(TMPred)).Draw(t, "uvmode"))
	if h.YMode == BPred {
		for b := range h.SubModes {
			h.SubModes[b] = SubblockMode(rapid.IntRange(int(BDCPred), int(BHUPred)).Draw(t, "submode"))
		}
	}
	h.Skip = rapid.Bool().Draw(t, "skip")
	if !h.Skip {
		drawResidual(t, &mb.Residual, classOf(h.YMode).HasY2())
	}
	return mb
}

// expectedSubModes returns the sub-block modes a decoder reports.
func expectedSubModes(h *MacroblockHeader) [16]SubblockMode {
	if h.YMode == BPred {
		return h.SubModes
	}
	var m [16]SubblockMode
	for b := range m {
		m[b] = impliedSubblockModes[h.YMode]
	}
	return m
}
