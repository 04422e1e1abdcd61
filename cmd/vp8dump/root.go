package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/deepteams/vp8"
	"github.com/deepteams/vp8/internal/container"
)

// dumpFlags holds the flags shared by all sub-commands.
type dumpFlags struct {
	parallel bool
	resync   bool
	verbose  bool
	json     bool
	limit    int
}

func newRootCmd() *cobra.Command {
	flags := &dumpFlags{}
	root := &cobra.Command{
		Use:   "vp8dump",
		Short: "Inspect the bitstream syntax of VP8 frames",
		Long: `Decode the syntax of the VP8 frames in an IVF file, a WebP file or a
raw frame, and print frame and macroblock headers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVar(&flags.parallel, "parallel", false, "Decode token partitions concurrently")
	pf.BoolVar(&flags.resync, "resync", false, "Skip inter frames after a failure until the next key frame")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Log every decoded frame")
	pf.BoolVar(&flags.json, "json", false, "Print JSON records instead of text")
	pf.IntVarP(&flags.limit, "limit", "n", 0, "Stop after this many frames (0 for all)")

	root.AddCommand(newInfoCmd(flags), newHeadersCmd(flags), newMacroblocksCmd(flags))
	return root
}

// options maps the command-line flags onto decoder options. Log output
// goes to w.
func (f *dumpFlags) options(w io.Writer) vp8.Options {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.WarnLevel)
	if f.verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return vp8.Options{
		Logger:         l,
		ParallelTokens: f.parallel,
		ResyncOnError:  f.resync,
	}
}

// openInput returns a reader for path. If path is "-", stdin is returned
// and the caller should not close it.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(path)
}

// frameResult is handed to a sub-command for every frame read.
type frameResult struct {
	container.Frame
	Decoded *vp8.Frame
	Err     error
}

// walkFrames decodes the frames of the input named by args[0] in order
// and calls fn for each of them, failed frames included. Container errors
// stop the walk.
func walkFrames(cmd *cobra.Command, flags *dumpFlags, args []string, fn func(container.Format, *frameResult) error) error {
	in, err := openInput(cmd, args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	fr, format, err := container.NewFrameReader(in)
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	dec := vp8.NewDecoder(flags.options(cmd.ErrOrStderr()))
	for n := 0; flags.limit <= 0 || n < flags.limit; n++ {
		f, err := fr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		res := &frameResult{Frame: f}
		res.Decoded, res.Err = dec.DecodeFrame(f.Data)
		err = fn(format, res)
		res.Decoded.Release()
		if err != nil {
			return err
		}
	}
	return nil
}
