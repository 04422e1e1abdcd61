package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/deepteams/vp8"
)

var (
	keyColor   = color.New(color.FgGreen, color.Bold)
	interColor = color.New(color.FgCyan)
	errColor   = color.New(color.FgRed)
)

// frameKind returns the colored one-letter frame type.
func frameKind(f *vp8.Frame) string {
	if f.Tag.KeyFrame {
		return keyColor.Sprint("K")
	}
	return interColor.Sprint("I")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	return enc.Encode(v)
}

func printFailure(w io.Writer, res *frameResult) {
	errColor.Fprintf(w, "frame %d: %v\n", res.Index, res.Err)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func filterType(t vp8.FilterType) string {
	if t == vp8.FilterSimple {
		return "simple"
	}
	return "normal"
}

func refreshList(h *vp8.FrameHeader) string {
	var r []string
	if h.RefreshEntropyProbs {
		r = append(r, "probs")
	}
	if h.RefreshLast {
		r = append(r, "last")
	}
	if h.RefreshGolden {
		r = append(r, "golden")
	}
	if h.RefreshAltRef {
		r = append(r, "altref")
	}
	if len(r) == 0 {
		return "none"
	}
	return strings.Join(r, ",")
}

func motion(v vp8.MotionVector) string {
	return fmt.Sprintf("(%d,%d)", v.Row, v.Col)
}
