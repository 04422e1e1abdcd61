package vp8_test

import (
	"fmt"

	"github.com/deepteams/vp8"
)

func ExampleDecoder_DecodeFrame() {
	src := &vp8.FrameSource{
		Tag: vp8.FrameTag{KeyFrame: true, ShowFrame: true, Width: 48, Height: 32},
		Header: vp8.FrameHeader{
			NumPartitions:       1,
			Quant:               vp8.QuantIndices{YAC: 60},
			RefreshEntropyProbs: true,
		},
		Macroblocks: make([]vp8.Macroblock, 6),
	}
	src.Macroblocks[4].Header.YMode = vp8.TMPred
	src.Macroblocks[4].Residual.Coeffs[24][0] = 5

	data, err := vp8.NewFrameWriter().WriteFrame(src)
	if err != nil {
		fmt.Println(err)
		return
	}

	dec := vp8.NewDecoder(vp8.DefaultOptions())
	f, err := dec.DecodeFrame(data)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer f.Release()

	mb := f.At(1, 1)
	fmt.Println(f.Rows, f.Cols, mb.Header.YMode, mb.Residual.Coeffs[24][0], mb.Residual.QuantIndex)
	// Output: 2 3 TM_PRED 5 60
}
