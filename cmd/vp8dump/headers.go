package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/deepteams/vp8"
	"github.com/deepteams/vp8/internal/container"
)

// headerRecord is the JSON form of one frame header.
type headerRecord struct {
	Index     int              `json:"index"`
	Timestamp uint64           `json:"timestamp"`
	Size      int              `json:"size"`
	Tag       *vp8.FrameTag    `json:"tag,omitempty"`
	Header    *vp8.FrameHeader `json:"header,omitempty"`
	Tables    string           `json:"tables,omitempty"`
	Tokens    int              `json:"tokens"`
	Error     string           `json:"error,omitempty"`
}

func newHeaderRecord(res *frameResult) headerRecord {
	rec := headerRecord{Index: res.Index, Timestamp: res.Timestamp, Size: len(res.Data)}
	if res.Err != nil {
		rec.Error = res.Err.Error()
		return rec
	}
	f := res.Decoded
	rec.Tag = &f.Tag
	rec.Header = f.Header
	rec.Tables = f.Selector.String()
	rec.Tokens = f.Tokens
	return rec
}

func newHeadersCmd(flags *dumpFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "headers <input>",
		Short: "Print the header of every frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			return walkFrames(cmd, flags, args, func(_ container.Format, res *frameResult) error {
				if flags.json {
					return printJSON(w, newHeaderRecord(res))
				}
				if res.Err != nil {
					printFailure(w, res)
					return nil
				}
				printFrameHeader(w, res)
				return nil
			})
		},
	}
}

func printFrameHeader(w io.Writer, res *frameResult) {
	f := res.Decoded
	h := f.Header
	t := f.Tag

	fmt.Fprintf(w, "frame %d %s %dx%d (%dx%d MBs) v%d size=%d part0=%d",
		res.Index, frameKind(f), t.Width, t.Height, f.Cols, f.Rows, t.Version, len(res.Data), t.FirstPartSize)
	if !t.ShowFrame {
		fmt.Fprint(w, " hidden")
	}
	fmt.Fprintln(w)

	if t.KeyFrame {
		fmt.Fprintf(w, "  color_space=%d clamping=%d scale=%d/%d\n", h.ColorSpace, h.ClampingType, t.HorizontalScale, t.VerticalScale)
	}
	fmt.Fprintf(w, "  quant: y_ac=%d y_dc%+d y2_dc%+d y2_ac%+d uv_dc%+d uv_ac%+d\n",
		h.Quant.YAC, h.Quant.YDCDelta, h.Quant.Y2DCDelta, h.Quant.Y2ACDelta, h.Quant.UVDCDelta, h.Quant.UVACDelta)

	sh := &h.Segment
	fmt.Fprintf(w, "  segmentation: %s", onOff(sh.Enabled))
	if sh.Enabled {
		mode := "delta"
		if sh.AbsoluteDelta {
			mode = "absolute"
		}
		fmt.Fprintf(w, " map_update=%s %s quant=%v filter=%v resolved=%v",
			onOff(sh.UpdateMap), mode, sh.Quantizer, sh.FilterLevel, h.SegmentQuant)
		if sh.UpdateMap {
			fmt.Fprintf(w, " tree=%v", sh.TreeProbs)
		}
	}
	fmt.Fprintln(w)

	fh := &h.Filter
	fmt.Fprintf(w, "  filter: %s level=%d sharpness=%d", filterType(fh.Type), fh.Level, fh.Sharpness)
	if fh.DeltaEnabled {
		fmt.Fprintf(w, " ref_delta=%v mode_delta=%v", fh.RefDelta, fh.ModeDelta)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  partitions=%d refresh=%s tables=%s coeff_updates=%d", h.NumPartitions, refreshList(h), f.Selector, h.CoeffProbsUpdated)
	if h.MBNoCoeffSkip {
		fmt.Fprintf(w, " skip_prob=%d", h.ProbSkipFalse)
	}
	fmt.Fprintln(w)

	if !t.KeyFrame {
		fmt.Fprintf(w, "  inter: intra=%d last=%d golden=%d copy_golden=%d copy_altref=%d sign_bias=%t/%t mv_updates=%d ymode_update=%t uvmode_update=%t\n",
			h.ProbIntra, h.ProbLast, h.ProbGolden, h.CopyToGolden, h.CopyToAltRef,
			h.SignBiasGolden, h.SignBiasAltRef, h.MVProbsUpdated, h.YModeProbsUpdated, h.UVModeProbsUpdated)
	}
	fmt.Fprintf(w, "  tokens=%d\n", f.Tokens)
}
