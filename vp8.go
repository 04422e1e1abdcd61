package vp8

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/deepteams/vp8/internal/syntax"
)

// Frame syntax types.
type (
	Frame            = syntax.Frame
	FrameTag         = syntax.FrameTag
	FrameHeader      = syntax.FrameHeader
	SegmentHeader    = syntax.SegmentHeader
	FilterHeader     = syntax.FilterHeader
	QuantIndices     = syntax.QuantIndices
	Macroblock       = syntax.Macroblock
	MacroblockHeader = syntax.MacroblockHeader
	MacroblockMeta   = syntax.MacroblockMeta
	ResidualData     = syntax.ResidualData
	MotionVector     = syntax.MotionVector
	PredictionMode   = syntax.PredictionMode
	SubblockMode     = syntax.SubblockMode
	SplitPartition   = syntax.SplitPartition
	SubMVRef         = syntax.SubMVRef
	RefFrame         = syntax.RefFrame
	ModeClass        = syntax.ModeClass
	FilterType       = syntax.FilterType
	TableSelector    = syntax.TableSelector
	EntropyTables    = syntax.EntropyTables
	FrameWriter      = syntax.FrameWriter
	FrameSource      = syntax.FrameSource
)

// Macroblock prediction modes.
const (
	DCPred    = syntax.DCPred
	VPred     = syntax.VPred
	HPred     = syntax.HPred
	TMPred    = syntax.TMPred
	BPred     = syntax.BPred
	NearestMV = syntax.NearestMV
	NearMV    = syntax.NearMV
	ZeroMV    = syntax.ZeroMV
	NewMV     = syntax.NewMV
	SplitMV   = syntax.SplitMV
)

// Reference frames.
const (
	IntraFrame  = syntax.IntraFrame
	LastFrame   = syntax.LastFrame
	GoldenFrame = syntax.GoldenFrame
	AltRefFrame = syntax.AltRefFrame
)

// Loop filter types.
const (
	FilterNormal = syntax.FilterNormal
	FilterSimple = syntax.FilterSimple
)

// Errors returned by the decoder. Every decoding error wraps one of them.
var (
	ErrTruncatedStream    = syntax.ErrTruncatedStream
	ErrInvalidStartCode   = syntax.ErrInvalidStartCode
	ErrUnsupportedVersion = syntax.ErrUnsupportedVersion
	ErrDimensionMismatch  = syntax.ErrDimensionMismatch
	ErrInvalidDimensions  = syntax.ErrInvalidDimensions

	// ErrAwaitingKeyFrame is returned for inter frames that follow a failed
	// frame when Options.ResyncOnError is set.
	ErrAwaitingKeyFrame = errors.New("vp8: awaiting key frame")
)

// Options configures a Decoder.
type Options struct {
	// Logger receives per-frame debug records and failure warnings.
	Logger logrus.FieldLogger

	// ParallelTokens decodes the token partitions of a frame concurrently.
	// The result is identical to the sequential decode.
	ParallelTokens bool

	// ResyncOnError refuses inter frames after a failed frame until the
	// next key frame decodes. Without it the decoder keeps going with
	// whatever state the last good frame left.
	ResyncOnError bool
}

// DefaultOptions returns sequential decoding with warnings logged to
// stderr.
func DefaultOptions() Options {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	return Options{Logger: l}
}

// Decoder decodes the frames of one VP8 stream in order. It is not safe
// for concurrent use.
type Decoder struct {
	opts  Options
	log   logrus.FieldLogger
	state *syntax.State

	index    int // frames submitted so far
	awaiting bool
}

// NewDecoder returns a decoder for a new stream. A nil Logger discards
// all log output.
func NewDecoder(opts Options) *Decoder {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Decoder{opts: opts, log: log, state: syntax.NewState()}
}

// DecodeFrame decodes one compressed frame. The returned frame may be
// handed back with Release once the caller is done with it.
func (d *Decoder) DecodeFrame(data []byte) (*Frame, error) {
	index := d.index
	d.index++
	entry := d.log.WithField("frame", index)

	if d.awaiting && (len(data) == 0 || data[0]&1 != 0) {
		entry.Warn("skipping inter frame while awaiting a key frame")
		return nil, fmt.Errorf("%w: frame %d", ErrAwaitingKeyFrame, index)
	}

	f, err := syntax.DecodeFrame(d.state, data, syntax.DecodeOptions{Parallel: d.opts.ParallelTokens})
	if err != nil {
		entry.WithError(err).WithField("size", len(data)).Warn("frame decode failed")
		if d.opts.ResyncOnError && !d.awaiting {
			d.awaiting = true
			entry.Warn("resynchronising on next key frame")
		}
		return nil, err
	}
	if d.awaiting {
		entry.Warn("resynchronised")
		d.awaiting = false
	}

	entry.WithFields(logrus.Fields{
		"key":         f.Tag.KeyFrame,
		"size":        len(data),
		"partitions":  f.Header.NumPartitions,
		"macroblocks": len(f.Macroblocks),
		"tokens":      f.Tokens,
	}).Debug("decoded frame")
	return f, nil
}

// Reset forgets all stream state, as if the decoder had just been
// created.
func (d *Decoder) Reset() {
	d.state.Reset()
	d.index = 0
	d.awaiting = false
}

// HasKeyFrame reports whether a key frame has been decoded since the
// decoder was created or reset.
func (d *Decoder) HasKeyFrame() bool {
	return d.state.HasKeyFrame()
}

// Dimensions returns the frame size set by the last key frame.
func (d *Decoder) Dimensions() (width, height int) {
	return d.state.Dimensions()
}

// DecodeFrameTag parses only the uncompressed frame tag at the start of
// data. Inter frame tags carry no dimensions.
func DecodeFrameTag(data []byte) (FrameTag, error) {
	tag, _, err := syntax.ParseFrameTag(data)
	return tag, err
}

// NewFrameWriter returns a writer for a new stream.
func NewFrameWriter() *FrameWriter {
	return syntax.NewFrameWriter()
}
