package syntax

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDecodeFrame_AllSkippedKeyFrame(t *testing.T) {
	w := NewFrameWriter()
	data := mustWrite(t, w, skippedFrame(keyTag(48, 32), 2, 3))

	s := NewState()
	f := mustDecode(t, s, data, DecodeOptions{})
	defer f.Release()

	assert.True(t, f.Tag.KeyFrame)
	assert.Equal(t, 2, f.Rows)
	assert.Equal(t, 3, f.Cols)
	assert.Equal(t, 0, f.Tokens)
	for i := range f.Macroblocks {
		mb := &f.Macroblocks[i]
		assert.True(t, mb.Header.Skip)
		assert.False(t, mb.Header.HasContent)
		assert.True(t, mb.Residual.Skipped)
		assert.Equal(t, DCPred, mb.Header.YMode)
		assert.Equal(t, IntraFrame, mb.Header.Ref)
		assert.Equal(t, ClassWhole, mb.Header.Class)
	}
	width, height := s.Dimensions()
	assert.Equal(t, 48, width)
	assert.Equal(t, 32, height)
}

func TestDecodeFrame_KeyFrameHeaderFields(t *testing.T) {
	src := skippedFrame(keyTag(17, 33), 3, 2)
	src.Tag.Version = 2
	src.Tag.HorizontalScale = 1
	src.Tag.VerticalScale = 3
	src.Header.ColorSpace = 1
	src.Header.ClampingType = 1
	src.Header.Filter = FilterHeader{
		Type:         FilterSimple,
		Level:        63,
		Sharpness:    7,
		DeltaEnabled: true,
		DeltaUpdate:  true,
		RefDelta:     [4]int8{2, 0, -2, -2},
		ModeDelta:    [4]int8{4, -2, 2, 4},
	}
	src.Header.Quant = QuantIndices{YAC: 127, YDCDelta: -15, Y2DCDelta: 15, Y2ACDelta: -1, UVDCDelta: 7, UVACDelta: 0}
	src.Header.NumPartitions = 4
	src.Header.RefreshEntropyProbs = false
	src.Header.ProbSkipFalse = 1

	data := mustWrite(t, NewFrameWriter(), src)
	f := mustDecode(t, NewState(), data, DecodeOptions{})
	defer f.Release()

	assert.Equal(t, uint8(2), f.Tag.Version)
	assert.Equal(t, uint16(17), f.Tag.Width)
	assert.Equal(t, uint16(33), f.Tag.Height)
	assert.Equal(t, uint8(1), f.Tag.HorizontalScale)
	assert.Equal(t, uint8(3), f.Tag.VerticalScale)

	h := f.Header
	assert.Equal(t, uint8(1), h.ColorSpace)
	assert.Equal(t, uint8(1), h.ClampingType)
	assert.Equal(t, src.Header.Filter, h.Filter)
	assert.Equal(t, src.Header.Quant, h.Quant)
	assert.Equal(t, 4, h.NumPartitions)
	assert.False(t, h.RefreshEntropyProbs)
	assert.Equal(t, TemporaryTables, f.Selector)
	assert.True(t, h.RefreshGolden)
	assert.True(t, h.RefreshAltRef)
	assert.True(t, h.RefreshLast)
	assert.Equal(t, uint8(1), h.ProbSkipFalse)
	assert.Equal(t, [4]int{127, 127, 127, 127}, h.SegmentQuant)
}

func TestDecodeFrame_IntraRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := rapid.IntRange(1, 3).Draw(t, "rows")
		cols := rapid.IntRange(1, 3).Draw(t, "cols")
		src := &FrameSource{
			Tag:         keyTag(uint16(cols*16-rapid.IntRange(0, 15).Draw(t, "wcut")), uint16(rows*16)),
			Header:      baseHeader(),
			Macroblocks: make([]Macroblock, rows*cols),
		}
		src.Header.NumPartitions = rapid.SampledFrom([]int{1, 2, 4, 8}).Draw(t, "partitions")
		src.Header.MBNoCoeffSkip = rapid.Bool().Draw(t, "skipflag")
		for i := range src.Macroblocks {
			src.Macroblocks[i] = drawIntraMacroblock(t)
			if !src.Header.MBNoCoeffSkip && src.Macroblocks[i].Header.Skip {
				src.Macroblocks[i].Header.Skip = false
			}
		}

		data := mustWrite(t, NewFrameWriter(), src)
		f := mustDecode(t, NewState(), data, DecodeOptions{})
		defer f.Release()

		require.Len(t, f.Macroblocks, rows*cols)
		for i := range src.Macroblocks {
			want, got := &src.Macroblocks[i], &f.Macroblocks[i]
			require.Equal(t, want.Header.YMode, got.Header.YMode, "macroblock %d", i)
			require.Equal(t, want.Header.UVMode, got.Header.UVMode, "macroblock %d", i)
			require.Equal(t, expectedSubModes(&want.Header), got.Header.SubModes, "macroblock %d", i)
			require.Equal(t, want.Header.Skip, got.Header.Skip, "macroblock %d", i)
			if diff := cmp.Diff(want.Residual.Coeffs, got.Residual.Coeffs); diff != "" {
				t.Fatalf("macroblock %d coefficients (-want +got):\n%s", i, diff)
			}
		}
	})
}

func TestDecodeFrame_MetadataIntegrity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		src := &FrameSource{Tag: keyTag(32, 32), Header: baseHeader(), Macroblocks: make([]Macroblock, 4)}
		src.Header.Segment = SegmentHeader{
			Enabled:       true,
			UpdateMap:     true,
			UpdateData:    true,
			AbsoluteDelta: false,
			Quantizer:     [4]int8{0, -10, 10, 100},
			FilterLevel:   [4]int8{0, 5, -5, 63},
			TreeProbs:     [3]uint8{128, 64, 200},
		}
		for i := range src.Macroblocks {
			src.Macroblocks[i] = drawIntraMacroblock(t)
			src.Macroblocks[i].Header.Segment = uint8(rapid.IntRange(0, 3).Draw(t, "segment"))
		}

		data := mustWrite(t, NewFrameWriter(), src)
		f := mustDecode(t, NewState(), data, DecodeOptions{})
		defer f.Release()

		for i := range f.Macroblocks {
			h, res := &f.Macroblocks[i].Header, &f.Macroblocks[i].Residual
			require.Equal(t, src.Macroblocks[i].Header.Segment, h.Segment)
			require.Equal(t, h.Segment, res.Segment)
			require.Equal(t, h.Skip, res.Skipped)
			require.Equal(t, h.Class.HasY2(), res.HasY2)
			require.Equal(t, f.Header.SegmentQuant[h.Segment], res.QuantIndex)
			require.Equal(t, res.NonZero != 0, h.HasContent)
			if h.Skip {
				require.Zero(t, res.NonZero)
			}
		}
	})
}

func TestDecodeFrame_Segmentation(t *testing.T) {
	w, s := NewFrameWriter(), NewState()

	key := skippedFrame(keyTag(32, 32), 2, 2)
	key.Header.Segment = SegmentHeader{
		Enabled:       true,
		UpdateMap:     true,
		UpdateData:    true,
		AbsoluteDelta: true,
		Quantizer:     [4]int8{10, 20, 30, 40},
		FilterLevel:   [4]int8{1, 2, 3, 4},
		TreeProbs:     [3]uint8{128, 128, 128},
	}
	for i := range key.Macroblocks {
		key.Macroblocks[i].Header.Segment = uint8(i)
	}
	f := mustDecode(t, s, mustWrite(t, w, key), DecodeOptions{})
	assert.Equal(t, [4]int{10, 20, 30, 40}, f.Header.SegmentQuant)
	for i := range f.Macroblocks {
		assert.Equal(t, uint8(i), f.Macroblocks[i].Header.Segment)
		assert.Equal(t, 10*(i+1), f.Macroblocks[i].Residual.QuantIndex)
		assert.Equal(t, uint8(i+1), f.Macroblocks[i].Residual.FilterLevel)
	}
	f.Release()

	// Enabled without a map update: the map persists.
	inter := skippedFrame(interTag(), 2, 2)
	for i := range inter.Macroblocks {
		inter.Macroblocks[i].Header.YMode = ZeroMV
		inter.Macroblocks[i].Header.Ref = LastFrame
	}
	inter.Header.Segment = SegmentHeader{Enabled: true}
	f = mustDecode(t, s, mustWrite(t, w, inter), DecodeOptions{})
	assert.Equal(t, [4]int8{10, 20, 30, 40}, f.Header.Segment.Quantizer)
	assert.True(t, f.Header.Segment.AbsoluteDelta)
	for i := range f.Macroblocks {
		assert.Equal(t, uint8(i), f.Macroblocks[i].Header.Segment)
	}
	f.Release()

	// Disabled: every macroblock uses segment 0 and the base quantizer.
	inter.Header.Segment = SegmentHeader{}
	f = mustDecode(t, s, mustWrite(t, w, inter), DecodeOptions{})
	for i := range f.Macroblocks {
		assert.Equal(t, uint8(0), f.Macroblocks[i].Header.Segment)
		assert.Equal(t, 40, f.Macroblocks[i].Residual.QuantIndex)
	}
	f.Release()

	// Re-enabled: the map was left alone.
	inter.Header.Segment = SegmentHeader{Enabled: true}
	f = mustDecode(t, s, mustWrite(t, w, inter), DecodeOptions{})
	for i := range f.Macroblocks {
		assert.Equal(t, uint8(i), f.Macroblocks[i].Header.Segment)
	}
	f.Release()

	// A key frame clears the map and the segment data.
	key.Header.Segment = SegmentHeader{Enabled: true}
	f = mustDecode(t, s, mustWrite(t, w, key), DecodeOptions{})
	for i := range f.Macroblocks {
		assert.Equal(t, uint8(0), f.Macroblocks[i].Header.Segment)
	}
	assert.Equal(t, [4]int8{}, f.Header.Segment.Quantizer)
	f.Release()
}

func TestDecodeFrame_FilterDeltasPersist(t *testing.T) {
	w, s := NewFrameWriter(), NewState()
	key := skippedFrame(keyTag(16, 16), 1, 1)
	key.Header.Filter.DeltaEnabled = true
	key.Header.Filter.DeltaUpdate = true
	key.Header.Filter.RefDelta = [4]int8{3, -3, 0, 0}
	key.Header.Filter.ModeDelta = [4]int8{0, 0, 5, -5}
	f := mustDecode(t, s, mustWrite(t, w, key), DecodeOptions{})
	// Intra, 16x16 mode: base plus the intra reference delta only.
	assert.Equal(t, uint8(23), f.Macroblocks[0].Residual.FilterLevel)
	f.Release()

	inter := skippedFrame(interTag(), 1, 1)
	inter.Macroblocks[0].Header.YMode = NearestMV
	inter.Macroblocks[0].Header.Ref = LastFrame
	inter.Header.Filter.DeltaEnabled = true
	f = mustDecode(t, s, mustWrite(t, w, inter), DecodeOptions{})
	assert.Equal(t, [4]int8{3, -3, 0, 0}, f.Header.Filter.RefDelta)
	assert.Equal(t, [4]int8{0, 0, 5, -5}, f.Header.Filter.ModeDelta)
	// 20 - 3 (last) + 5 (motion class).
	assert.Equal(t, uint8(22), f.Macroblocks[0].Residual.FilterLevel)
	f.Release()
}

func TestDecodeFrame_InterModes(t *testing.T) {
	w, s := NewFrameWriter(), NewState()
	f := mustDecode(t, s, mustWrite(t, w, skippedFrame(keyTag(64, 48), 3, 4)), DecodeOptions{})
	f.Release()

	src := skippedFrame(interTag(), 3, 4)
	src.Header.SignBiasAltRef = true
	set := func(i int, mode PredictionMode, ref RefFrame, mv MotionVector) *MacroblockHeader {
		h := &src.Macroblocks[i].Header
		h.YMode, h.Ref, h.MV = mode, ref, mv
		return h
	}
	split := func(h *MacroblockHeader, p SplitPartition, refs []SubMVRef, mvs []MotionVector) {
		h.Partition = p
		for b, part := range splitLayouts[p] {
			h.SubRefs[b] = refs[part]
			h.SubMVs[b] = mvs[part]
		}
	}

	set(0, NewMV, LastFrame, MotionVector{Row: 8, Col: -12})
	set(1, NearestMV, LastFrame, MotionVector{})
	set(2, ZeroMV, GoldenFrame, MotionVector{})
	set(3, TMPred, IntraFrame, MotionVector{}).UVMode = VPred
	split(set(4, SplitMV, LastFrame, MotionVector{}), SplitQuarters,
		[]SubMVRef{SubMVNew, SubMVLeft, SubMVAbove, SubMVZero},
		[]MotionVector{{Row: 4, Col: 4}, {}, {}, {}})
	set(5, NearMV, AltRefFrame, MotionVector{})
	set(6, NewMV, GoldenFrame, MotionVector{Row: -40, Col: 36})
	mvs := make([]MotionVector, 16)
	refs := make([]SubMVRef, 16)
	for b := range mvs {
		refs[b] = SubMVNew
		mvs[b] = MotionVector{Row: int16(b - 8), Col: int16(2 * b)}
	}
	split(set(7, SplitMV, LastFrame, MotionVector{}), Split4x4, refs, mvs)
	bp := set(8, BPred, IntraFrame, MotionVector{})
	for b := range bp.SubModes {
		bp.SubModes[b] = SubblockMode(b % 10)
	}
	set(9, NewMV, LastFrame, MotionVector{Row: 100, Col: -100})
	split(set(10, SplitMV, GoldenFrame, MotionVector{}), SplitTopBottom,
		[]SubMVRef{SubMVZero, SubMVNew},
		[]MotionVector{{}, {Row: -6, Col: 2}})
	set(11, ZeroMV, AltRefFrame, MotionVector{})

	data := mustWrite(t, w, src)
	f = mustDecode(t, s, data, DecodeOptions{})
	defer f.Release()

	assert.False(t, f.Tag.KeyFrame)
	assert.Equal(t, uint16(64), f.Tag.Width)
	assert.True(t, f.Header.SignBiasAltRef)
	for i := range src.Macroblocks {
		want, got := &src.Macroblocks[i].Header, &f.Macroblocks[i].Header
		require.Equal(t, want.YMode, got.YMode, "macroblock %d", i)
		require.Equal(t, want.Ref, got.Ref, "macroblock %d", i)
		require.Equal(t, classOf(want.YMode), got.Class, "macroblock %d", i)
		switch want.YMode {
		case NewMV:
			assert.Equal(t, want.MV, got.MV, "macroblock %d", i)
		case ZeroMV:
			assert.Equal(t, MotionVector{}, got.MV, "macroblock %d", i)
		case SplitMV:
			assert.Equal(t, want.Partition, got.Partition, "macroblock %d", i)
			assert.Equal(t, want.SubRefs, got.SubRefs, "macroblock %d", i)
			for b, ref := range want.SubRefs {
				switch ref {
				case SubMVNew, SubMVZero:
					assert.Equal(t, want.SubMVs[b], got.SubMVs[b], "macroblock %d block %d", i, b)
				}
			}
			assert.Equal(t, got.SubMVs[15], got.MV)
		}
		if want.Ref == IntraFrame {
			assert.Equal(t, MotionVector{}, got.MV)
			assert.Equal(t, want.UVMode, got.UVMode)
			assert.Equal(t, expectedSubModes(want), got.SubModes)
		} else {
			for b := range got.SubMVs {
				if want.YMode != SplitMV {
					assert.Equal(t, got.MV, got.SubMVs[b])
				}
			}
		}
	}

	// The left neighbour of macroblock 1 is the only candidate.
	assert.Equal(t, MotionVector{Row: 8, Col: -12}, f.Macroblocks[1].Header.MV)
	// Quarter 1 of macroblock 4 copies its left neighbour, quarter 0.
	assert.Equal(t, MotionVector{Row: 4, Col: 4}, f.Macroblocks[4].Header.SubMVs[2])
}

func TestDecodeFrame_InterRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := rapid.IntRange(1, 3).Draw(t, "rows")
		cols := rapid.IntRange(1, 3).Draw(t, "cols")
		w, s := NewFrameWriter(), NewState()
		key := skippedFrame(keyTag(uint16(cols*16), uint16(rows*16)), rows, cols)
		mustDecode(t, s, mustWrite(t, w, key), DecodeOptions{}).Release()

		src := skippedFrame(interTag(), rows, cols)
		src.Header.SignBiasGolden = rapid.Bool().Draw(t, "biasgolden")
		src.Header.RefreshEntropyProbs = rapid.Bool().Draw(t, "refresh")
		drawMV := func() MotionVector {
			return MotionVector{
				Row: int16(rapid.IntRange(-200, 200).Draw(t, "row")),
				Col: int16(rapid.IntRange(-200, 200).Draw(t, "col")),
			}
		}
		for i := range src.Macroblocks {
			if rapid.IntRange(0, 4).Draw(t, "intra") == 0 {
				src.Macroblocks[i] = drawIntraMacroblock(t)
				continue
			}
			h := &src.Macroblocks[i].Header
			h.Ref = RefFrame(rapid.IntRange(int(LastFrame), int(AltRefFrame)).Draw(t, "ref"))
			h.YMode = PredictionMode(rapid.IntRange(int(NearestMV), int(SplitMV)).Draw(t, "mode"))
			switch h.YMode {
			case NewMV:
				h.MV = drawMV()
			case SplitMV:
				h.Partition = SplitPartition(rapid.IntRange(0, 3).Draw(t, "partition"))
				for b, part := range splitLayouts[h.Partition] {
					if firstBlockOf(&splitLayouts[h.Partition], int(part)) == b {
						h.SubRefs[b] = SubMVRef(rapid.IntRange(0, 3).Draw(t, "subref"))
						h.SubMVs[b] = drawMV()
					} else {
						k := firstBlockOf(&splitLayouts[h.Partition], int(part))
						h.SubRefs[b], h.SubMVs[b] = h.SubRefs[k], h.SubMVs[k]
					}
				}
			}
			h.Skip = rapid.Bool().Draw(t, "skip")
			if !h.Skip {
				drawResidual(t, &src.Macroblocks[i].Residual, classOf(h.YMode).HasY2())
			}
		}

		f := mustDecode(t, s, mustWrite(t, w, src), DecodeOptions{})
		defer f.Release()
		for i := range src.Macroblocks {
			want, got := &src.Macroblocks[i], &f.Macroblocks[i]
			require.Equal(t, want.Header.YMode, got.Header.YMode, "macroblock %d", i)
			require.Equal(t, want.Header.Ref, got.Header.Ref, "macroblock %d", i)
			if want.Header.YMode == NewMV {
				require.Equal(t, want.Header.MV, got.Header.MV, "macroblock %d", i)
			}
			if want.Header.YMode == SplitMV {
				require.Equal(t, want.Header.SubRefs, got.Header.SubRefs, "macroblock %d", i)
				for b, ref := range want.Header.SubRefs {
					if ref == SubMVNew {
						require.Equal(t, want.Header.SubMVs[b], got.Header.SubMVs[b], "macroblock %d block %d", i, b)
					}
				}
			}
			if diff := cmp.Diff(want.Residual.Coeffs, got.Residual.Coeffs); diff != "" {
				t.Fatalf("macroblock %d coefficients (-want +got):\n%s", i, diff)
			}
		}
	})
}

func TestDecodeFrame_ParallelMatchesSequential(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := rapid.IntRange(1, 6).Draw(t, "rows")
		cols := rapid.IntRange(1, 4).Draw(t, "cols")
		src := &FrameSource{
			Tag:         keyTag(uint16(cols*16), uint16(rows*16)),
			Header:      baseHeader(),
			Macroblocks: make([]Macroblock, rows*cols),
		}
		src.Header.NumPartitions = rapid.SampledFrom([]int{2, 4, 8}).Draw(t, "partitions")
		for i := range src.Macroblocks {
			src.Macroblocks[i] = drawIntraMacroblock(t)
		}
		data := mustWrite(t, NewFrameWriter(), src)

		seq := mustDecode(t, NewState(), data, DecodeOptions{})
		defer seq.Release()
		par := mustDecode(t, NewState(), data, DecodeOptions{Parallel: true})
		defer par.Release()

		require.Equal(t, seq.Tokens, par.Tokens)
		if diff := cmp.Diff(seq.Macroblocks, par.Macroblocks); diff != "" {
			t.Fatalf("parallel decode differs (-sequential +parallel):\n%s", diff)
		}
	})
}

func TestDecodeFrame_TokenCount(t *testing.T) {
	src := skippedFrame(keyTag(16, 16), 1, 1)
	mb := &src.Macroblocks[0]
	mb.Header.Skip = false
	mb.Header.YMode = BPred
	// One value then end of block; every other block is a lone end of
	// block. 25 blocks minus the absent Y2 block.
	mb.Residual.Coeffs[0][0] = 3

	f := mustDecode(t, NewState(), mustWrite(t, NewFrameWriter(), src), DecodeOptions{})
	defer f.Release()
	assert.Equal(t, 24+1, f.Tokens)
	assert.True(t, f.Macroblocks[0].Header.HasContent)
	assert.Equal(t, uint32(1), f.Macroblocks[0].Residual.NonZero)
	assert.False(t, f.Macroblocks[0].Residual.HasY2)
}

func TestDecodeFrame_FullBlockHasNoEndOfBlock(t *testing.T) {
	src := skippedFrame(keyTag(16, 16), 1, 1)
	mb := &src.Macroblocks[0]
	mb.Header.Skip = false
	mb.Header.YMode = BPred
	for i := range mb.Residual.Coeffs[0] {
		mb.Residual.Coeffs[0][i] = int16(i + 1)
	}

	f := mustDecode(t, NewState(), mustWrite(t, NewFrameWriter(), src), DecodeOptions{})
	defer f.Release()
	assert.Equal(t, 16+23, f.Tokens)
	assert.Equal(t, mb.Residual.Coeffs[0], f.Macroblocks[0].Residual.Coeffs[0])
}
