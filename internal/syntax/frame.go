package syntax

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/deepteams/vp8/internal/bitio"
	"github.com/deepteams/vp8/internal/pool"
)

// macroblockSlab recycles the per-frame macroblock slices.
var macroblockSlab pool.Slab[Macroblock]

// Frame is the decoded syntax of one VP8 frame.
type Frame struct {
	Tag         FrameTag
	Header      *FrameHeader
	Selector    TableSelector // where the frame's probability updates went
	Rows, Cols  int
	Macroblocks []Macroblock // raster order
	Tokens      int          // residual tokens read, end-of-block included
}

// At returns the macroblock at row r, column c.
func (f *Frame) At(r, c int) *Macroblock {
	return &f.Macroblocks[r*f.Cols+c]
}

// Release returns the frame's macroblock storage to the pool. The frame
// must not be used afterwards.
func (f *Frame) Release() {
	if f == nil || f.Macroblocks == nil {
		return
	}
	macroblockSlab.Put(f.Macroblocks)
	f.Macroblocks = nil
}

// DecodeOptions tunes a single frame decode.
type DecodeOptions struct {
	// Parallel decodes the token partitions concurrently.
	Parallel bool
}

// DecodeFrame decodes the syntax of one compressed frame, updating the
// stream state s. On error s is left as it was before the call, so a
// failed key frame does not establish a frame size for later inter
// frames.
func DecodeFrame(s *State, data []byte, opts DecodeOptions) (*Frame, error) {
	var snap stateSnapshot
	s.save(&snap)
	f, err := decodeFrame(s, data, opts)
	if err != nil {
		s.restore(&snap)
		return nil, err
	}
	return f, nil
}

func decodeFrame(s *State, data []byte, opts DecodeOptions) (*Frame, error) {
	tag, n, err := ParseFrameTag(data)
	if err != nil {
		return nil, err
	}
	if tag.KeyFrame {
		s.beginKeyFrame(tag)
	} else {
		if !s.hasKeyFrame {
			return nil, fmt.Errorf("%w: inter frame before any key frame", ErrDimensionMismatch)
		}
		s.inheritDimensions(&tag)
	}

	data = data[n:]
	if int(tag.FirstPartSize) > len(data) {
		return nil, fmt.Errorf("%w: first partition size %d exceeds %d bytes", ErrTruncatedStream, tag.FirstPartSize, len(data))
	}

	d := bitio.NewRangeDecoder(data[:tag.FirstPartSize])
	hdr, err := s.parseFrameHeader(d, tag)
	if err != nil {
		return nil, err
	}
	parts, err := splitPartitions(data[tag.FirstPartSize:], hdr.NumPartitions)
	if err != nil {
		return nil, err
	}

	f := &Frame{
		Tag:      tag,
		Header:   hdr,
		Selector: s.Probs.Active(),
		Rows:     tag.MacroblockRows(),
		Cols:     tag.MacroblockCols(),
	}
	f.Macroblocks = macroblockSlab.Get(f.Rows * f.Cols)

	mp := modeParser{
		d:      d,
		state:  s,
		tag:    tag,
		hdr:    hdr,
		tables: s.Probs.Tables(),
		grid:   macroblockGrid{rows: f.Rows, cols: f.Cols, mbs: f.Macroblocks},
	}
	if err := mp.parseAll(); err != nil {
		f.Release()
		return nil, err
	}

	tp := tokenPass{
		frame:  f,
		tables: s.Probs.Tables(),
		levels: computeFilterLevels(hdr),
		parts:  parts,
	}
	if opts.Parallel && len(parts) > 1 {
		err = tp.runParallel()
	} else {
		err = tp.run()
	}
	if err != nil {
		f.Release()
		return nil, err
	}
	return f, nil
}

// tokenPass reads the residuals of a frame whose modes are known.
type tokenPass struct {
	frame  *Frame
	tables *EntropyTables
	levels *filterLevels
	parts  [][]byte
}

func (tp *tokenPass) newDecoder() *tokenDecoder {
	return &tokenDecoder{tables: tp.tables, hdr: tp.frame.Header, levels: tp.levels}
}

// decodeRow reads row r. wait, when not nil, blocks until the row above
// has finished column c; done reports progress.
func (tp *tokenPass) decodeRow(td *tokenDecoder, d *bitio.RangeDecoder, above []tokenContext, r int, wait func(c int) bool, done func(c int)) error {
	f := tp.frame
	var left tokenContext
	for c := 0; c < f.Cols; c++ {
		if wait != nil && !wait(c) {
			return nil
		}
		mb := f.At(r, c)
		td.decodeMacroblock(d, &mb.Header.MacroblockMeta, &mb.Residual, &above[c], &left)
		if done != nil {
			done(c)
		}
	}
	return checkDecoder(d, fmt.Sprintf("token partition %d row %d", r%len(tp.parts), r))
}

// run decodes all rows in order on the calling goroutine.
func (tp *tokenPass) run() error {
	f := tp.frame
	decs := make([]bitio.RangeDecoder, len(tp.parts))
	for i := range decs {
		decs[i].Init(tp.parts[i])
	}
	above := make([]tokenContext, f.Cols)
	td := tp.newDecoder()
	for r := 0; r < f.Rows; r++ {
		if err := tp.decodeRow(td, &decs[r%len(decs)], above, r, nil, nil); err != nil {
			return err
		}
	}
	f.Tokens = td.tokens
	return nil
}

// runParallel decodes each partition on its own goroutine. Row r may
// decode column c once row r-1 has finished column c, which keeps the
// shared above context in the same state as a sequential decode.
func (tp *tokenPass) runParallel() error {
	f := tp.frame
	above := make([]tokenContext, f.Cols)
	prog := newRowProgress(f.Rows)
	tds := make([]*tokenDecoder, len(tp.parts))

	var g errgroup.Group
	for p := range tp.parts {
		p := p
		td := tp.newDecoder()
		tds[p] = td
		g.Go(func() error {
			d := bitio.NewRangeDecoder(tp.parts[p])
			for r := p; r < f.Rows; r += len(tp.parts) {
				wait := func(c int) bool { return prog.wait(r, c) }
				done := func(c int) { prog.advance(r, c+1) }
				if err := tp.decodeRow(td, d, above, r, wait, done); err != nil {
					prog.fail()
					return err
				}
				if prog.failed() {
					return nil
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, td := range tds {
		f.Tokens += td.tokens
	}
	return nil
}

// rowProgress tracks how many columns each row has finished.
type rowProgress struct {
	mu      sync.Mutex
	cond    *sync.Cond
	done    []int
	aborted bool
}

func newRowProgress(rows int) *rowProgress {
	p := &rowProgress{done: make([]int, rows)}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// wait blocks until row r-1 has finished column c. It returns false when
// the pass was aborted.
func (p *rowProgress) wait(r, c int) bool {
	if r == 0 {
		return !p.failed()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.done[r-1] <= c && !p.aborted {
		p.cond.Wait()
	}
	return !p.aborted
}

func (p *rowProgress) advance(r, cols int) {
	p.mu.Lock()
	p.done[r] = cols
	p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *rowProgress) fail() {
	p.mu.Lock()
	p.aborted = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *rowProgress) failed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aborted
}
