package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/deepteams/vp8/internal/container"
)

// streamInfo summarizes a whole input.
type streamInfo struct {
	Format      string         `json:"format"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Frames      int            `json:"frames"`
	KeyFrames   int            `json:"key_frames"`
	Hidden      int            `json:"hidden_frames"`
	Failed      int            `json:"failed_frames"`
	Bytes       int            `json:"bytes"`
	Macroblocks int            `json:"macroblocks"`
	Skipped     int            `json:"skipped_macroblocks"`
	Tokens      int            `json:"tokens"`
	Modes       map[string]int `json:"modes"`
}

func (s *streamInfo) add(res *frameResult) {
	s.Frames++
	s.Bytes += len(res.Data)
	if res.Err != nil {
		s.Failed++
		return
	}
	f := res.Decoded
	if f.Tag.KeyFrame {
		s.KeyFrames++
		s.Width, s.Height = int(f.Tag.Width), int(f.Tag.Height)
	}
	if !f.Tag.ShowFrame {
		s.Hidden++
	}
	s.Tokens += f.Tokens
	for i := range f.Macroblocks {
		h := &f.Macroblocks[i].Header
		s.Macroblocks++
		if h.Skip {
			s.Skipped++
		}
		s.Modes[h.YMode.String()]++
	}
}

func newInfoCmd(flags *dumpFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info <input>",
		Short: "Summarize a VP8 stream",
		Long:  "Decode every frame of the input and print frame counts, the frame size and a histogram of macroblock prediction modes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info := &streamInfo{Modes: make(map[string]int)}
			err := walkFrames(cmd, flags, args, func(format container.Format, res *frameResult) error {
				info.Format = format.String()
				info.add(res)
				if res.Err != nil && !flags.json {
					printFailure(cmd.OutOrStdout(), res)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if flags.json {
				return printJSON(cmd.OutOrStdout(), info)
			}
			printInfo(cmd, info)
			return nil
		},
	}
}

func printInfo(cmd *cobra.Command, s *streamInfo) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Format:       %s\n", s.Format)
	fmt.Fprintf(w, "Dimensions:   %dx%d\n", s.Width, s.Height)
	fmt.Fprintf(w, "Frames:       %d (%s key, %d hidden)\n", s.Frames, keyColor.Sprint(s.KeyFrames), s.Hidden)
	if s.Failed > 0 {
		errColor.Fprintf(w, "Failed:       %d\n", s.Failed)
	}
	fmt.Fprintf(w, "Bytes:        %d\n", s.Bytes)
	fmt.Fprintf(w, "Macroblocks:  %d (%d skipped)\n", s.Macroblocks, s.Skipped)
	fmt.Fprintf(w, "Tokens:       %d\n", s.Tokens)

	modes := make([]string, 0, len(s.Modes))
	for m := range s.Modes {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool {
		if s.Modes[modes[i]] != s.Modes[modes[j]] {
			return s.Modes[modes[i]] > s.Modes[modes[j]]
		}
		return modes[i] < modes[j]
	})
	for _, m := range modes {
		fmt.Fprintf(w, "  %-10s %d\n", m, s.Modes[m])
	}
}
