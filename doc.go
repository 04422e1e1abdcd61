// Package vp8 decodes the bitstream syntax of VP8 video frames.
//
// A Decoder carries the state that persists between the frames of one
// stream: the entropy probabilities, the segmentation map and the loop
// filter deltas. For each frame it returns the frame header, the
// prediction syntax of every macroblock and the dequantization inputs of
// every residual block. Pixel reconstruction is left to the caller.
//
// Basic usage:
//
//	dec := vp8.NewDecoder(vp8.DefaultOptions())
//	for _, data := range frames {
//		f, err := dec.DecodeFrame(data)
//		if err != nil {
//			return err
//		}
//		use(f)
//		f.Release()
//	}
//
// FrameWriter produces frames from the same syntax types, which makes it
// possible to build test streams without an encoder.
package vp8
