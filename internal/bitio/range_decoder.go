// Package bitio provides the boolean entropy coding primitives of VP8.
//
// RangeDecoder is the decoding side used by every syntax parser of the
// module; BoolWriter is its encoding counterpart. Both operate one
// symbol at a time with an 8-bit probability of the symbol being zero.
package bitio

import "errors"

// ErrTruncated is latched by a RangeDecoder that was asked for more bits
// than its input span holds.
var ErrTruncated = errors.New("bitio: truncated stream")

// lookahead is the number of zero bytes a RangeDecoder may pull past the
// end of its span before the stream counts as truncated. The decoder
// holds one byte more than the current decision needs, so a stream that
// was flushed exactly at its last symbol still decodes.
const lookahead = 1

// Tree is a binary decoding tree in the layout used by the VP8 format:
// entry i+bit is either the index of the next node pair (> 0) or the
// negated leaf value (<= 0). Node pair i is read with probability
// probs[i>>1].
type Tree []int8

// RangeDecoder implements the VP8 boolean (range) decoder.
//
// The state is the classic (value, range, bit count) triple: value holds
// two bytes of the input window, range is kept in [128, 255] by
// renormalisation, and a new input byte is shifted in every eight
// renormalisation shifts.
type RangeDecoder struct {
	value    uint32
	rng      uint32
	bitCount int
	buf      []byte
	pos      int
	overrun  int
	err      error
}

// NewRangeDecoder creates a RangeDecoder over data.
func NewRangeDecoder(data []byte) *RangeDecoder {
	d := &RangeDecoder{}
	d.Init(data)
	return d
}

// Init resets the decoder to the start of data, loading the first two
// bytes into the value register.
func (d *RangeDecoder) Init(data []byte) {
	*d = RangeDecoder{buf: data, rng: 255}
	d.value = uint32(d.next())<<8 | uint32(d.next())
}

func (d *RangeDecoder) next() byte {
	if d.pos < len(d.buf) {
		b := d.buf[d.pos]
		d.pos++
		return b
	}
	d.overrun++
	if d.overrun > lookahead && d.err == nil {
		d.err = ErrTruncated
	}
	return 0
}

// ReadBool decodes one symbol whose probability of being false is
// prob/256. Once the decoder has failed it returns false.
func (d *RangeDecoder) ReadBool(prob uint8) bool {
	if d.err != nil {
		return false
	}
	split := 1 + (((d.rng - 1) * uint32(prob)) >> 8)
	bigSplit := split << 8

	var bit bool
	if d.value >= bigSplit {
		bit = true
		d.rng -= split
		d.value -= bigSplit
	} else {
		d.rng = split
	}

	for d.rng < 128 {
		d.value <<= 1
		d.rng <<= 1
		d.bitCount++
		if d.bitCount == 8 {
			d.bitCount = 0
			d.value |= uint32(d.next())
		}
	}
	return bit
}

// ReadFlag reads one bit at even probability.
func (d *RangeDecoder) ReadFlag() bool {
	return d.ReadBool(0x80)
}

// ReadLiteral reads an n-bit unsigned value, most significant bit first,
// each bit at even probability.
func (d *RangeDecoder) ReadLiteral(n int) uint32 {
	var v uint32
	for i := n - 1; i >= 0; i-- {
		if d.ReadBool(0x80) {
			v |= 1 << uint(i)
		}
	}
	return v
}

// ReadSignedLiteral reads an n-bit magnitude followed by a sign bit.
// Magnitude first, then sign, is the wire order of every signed header
// field in VP8. A set sign bit negates the magnitude.
func (d *RangeDecoder) ReadSignedLiteral(n int) int32 {
	v := int32(d.ReadLiteral(n))
	if d.ReadFlag() {
		return -v
	}
	return v
}

// ReadOptionalSigned reads a presence flag and, when set, a signed
// n-bit literal. An absent value reads as zero.
func (d *RangeDecoder) ReadOptionalSigned(n int) int32 {
	if !d.ReadFlag() {
		return 0
	}
	return d.ReadSignedLiteral(n)
}

// ReadProb8 reads an 8-bit probability.
func (d *RangeDecoder) ReadProb8() uint8 {
	return uint8(d.ReadLiteral(8))
}

// ReadProb7 reads a 7-bit probability as used by the motion vector
// tables. The result is never zero: a coded 0 maps to 1, anything else is
// doubled.
func (d *RangeDecoder) ReadProb7() uint8 {
	v := d.ReadLiteral(7)
	if v == 0 {
		return 1
	}
	return uint8(v << 1)
}

// ReadTree walks t from its root and returns the leaf value reached.
func (d *RangeDecoder) ReadTree(t Tree, probs []uint8) int {
	return d.ReadTreeFrom(t, probs, 0)
}

// ReadTreeFrom walks t starting at node pair start. Coefficient tokens
// use this to skip the end-of-block branch after a zero token.
func (d *RangeDecoder) ReadTreeFrom(t Tree, probs []uint8, start int) int {
	i := start
	for {
		b := 0
		if d.ReadBool(probs[i>>1]) {
			b = 1
		}
		i = int(t[i+b])
		if i <= 0 {
			return -i
		}
	}
}

// Err returns ErrTruncated once the decoder has run out of input.
func (d *RangeDecoder) Err() error {
	return d.err
}

// Len returns the size of the input span.
func (d *RangeDecoder) Len() int {
	return len(d.buf)
}
