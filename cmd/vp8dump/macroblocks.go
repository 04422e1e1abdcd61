package main

import (
	"fmt"
	"io"
	"math/bits"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deepteams/vp8"
	"github.com/deepteams/vp8/internal/container"
)

// macroblockRecord is the JSON form of one macroblock.
type macroblockRecord struct {
	Frame       int       `json:"frame"`
	Row         int       `json:"row"`
	Col         int       `json:"col"`
	Segment     uint8     `json:"segment"`
	Skip        bool      `json:"skip"`
	Ref         string    `json:"ref"`
	YMode       string    `json:"y_mode"`
	UVMode      string    `json:"uv_mode,omitempty"`
	SubModes    []string  `json:"sub_modes,omitempty"`
	MV          []int16   `json:"mv,omitempty"`
	SubMVs      [][]int16 `json:"sub_mvs,omitempty"`
	QuantIndex  int       `json:"quant_index"`
	FilterLevel uint8     `json:"filter_level"`
	NonZero     uint32    `json:"nonzero"`
}

func newMacroblockRecord(frame, r, c int, mb *vp8.Macroblock) macroblockRecord {
	h := &mb.Header
	res := &mb.Residual
	rec := macroblockRecord{
		Frame:       frame,
		Row:         r,
		Col:         c,
		Segment:     h.Segment,
		Skip:        h.Skip,
		Ref:         h.Ref.String(),
		YMode:       h.YMode.String(),
		QuantIndex:  res.QuantIndex,
		FilterLevel: res.FilterLevel,
		NonZero:     res.NonZero,
	}
	if h.Ref == vp8.IntraFrame {
		rec.UVMode = h.UVMode.String()
		if h.YMode == vp8.BPred {
			rec.SubModes = make([]string, 16)
			for i, m := range h.SubModes {
				rec.SubModes[i] = m.String()
			}
		}
		return rec
	}
	rec.MV = []int16{h.MV.Row, h.MV.Col}
	if h.YMode == vp8.SplitMV {
		rec.SubMVs = make([][]int16, 16)
		for i, v := range h.SubMVs {
			rec.SubMVs[i] = []int16{v.Row, v.Col}
		}
	}
	return rec
}

func newMacroblocksCmd(flags *dumpFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "macroblocks <input>",
		Short: "Print the header of every macroblock",
		Long:  "Print the prediction syntax, segment, quantizer index, loop filter level and coded-block mask of every macroblock. Motion vectors are in quarter pixels.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			return walkFrames(cmd, flags, args, func(_ container.Format, res *frameResult) error {
				if res.Err != nil {
					if flags.json {
						return printJSON(w, headerRecord{Index: res.Index, Size: len(res.Data), Error: res.Err.Error()})
					}
					printFailure(w, res)
					return nil
				}
				f := res.Decoded
				if !flags.json {
					fmt.Fprintf(w, "frame %d %s %dx%d MBs\n", res.Index, frameKind(f), f.Cols, f.Rows)
				}
				for r := 0; r < f.Rows; r++ {
					for c := 0; c < f.Cols; c++ {
						mb := f.At(r, c)
						if flags.json {
							if err := printJSON(w, newMacroblockRecord(res.Index, r, c, mb)); err != nil {
								return err
							}
							continue
						}
						printMacroblock(w, r, c, mb)
					}
				}
				return nil
			})
		},
	}
}

func printMacroblock(w io.Writer, r, c int, mb *vp8.Macroblock) {
	h := &mb.Header
	res := &mb.Residual

	fmt.Fprintf(w, "  (%d,%d) seg=%d q=%d lf=%d", r, c, h.Segment, res.QuantIndex, res.FilterLevel)
	if h.Skip {
		fmt.Fprint(w, " skip")
	} else {
		fmt.Fprintf(w, " coded=%d", bits.OnesCount32(res.NonZero))
	}

	if h.Ref == vp8.IntraFrame {
		fmt.Fprintf(w, " %s/%s", h.YMode, h.UVMode)
		if h.YMode == vp8.BPred {
			modes := make([]string, 16)
			for i, m := range h.SubModes {
				modes[i] = m.String()
			}
			fmt.Fprintf(w, " [%s]", strings.Join(modes, " "))
		}
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, " %s %s mv=%s", h.Ref, h.YMode, motion(h.MV))
	if h.YMode == vp8.SplitMV {
		mvs := make([]string, 16)
		for i, v := range h.SubMVs {
			mvs[i] = motion(v)
		}
		fmt.Fprintf(w, " split=%d [%s]", h.Partition, strings.Join(mvs, " "))
	}
	fmt.Fprintln(w)
}
