package bitio

import "fmt"

// BoolWriter implements the VP8 boolean (arithmetic) encoder.
//
// It is the encoding counterpart of RangeDecoder. Symbols are encoded by
// narrowing a probability-weighted interval and emitting bytes as the
// interval shrinks below the normalisation threshold.
type BoolWriter struct {
	range_ int32 // current range minus one, kept in [127, 254]
	value  int32
	run    int // count of pending 0xff bytes (carry propagation)
	nbBits int // number of pending bits; when > 0, flush emits a byte
	buf    []byte
	err    error
}

// NewBoolWriter creates a BoolWriter with an initial buffer sized for
// expectedSize bytes.
func NewBoolWriter(expectedSize int) *BoolWriter {
	if expectedSize < 64 {
		expectedSize = 64
	}
	return &BoolWriter{
		range_: 255 - 1,
		nbBits: -8,
		buf:    make([]byte, 0, expectedSize),
	}
}

// PutBool encodes bit with prob/256 as the probability of false.
func (bw *BoolWriter) PutBool(bit bool, prob uint8) bool {
	split := (bw.range_ * int32(prob)) >> 8
	if bit {
		bw.value += split + 1
		bw.range_ -= split + 1
	} else {
		bw.range_ = split
	}
	if bw.range_ < 127 {
		shift := kNorm[bw.range_]
		bw.range_ = int32(kNewRange[bw.range_])
		bw.value <<= uint(shift)
		bw.nbBits += int(shift)
		if bw.nbBits > 0 {
			bw.flush()
		}
	}
	return bit
}

// PutFlag encodes one bit at even probability.
func (bw *BoolWriter) PutFlag(bit bool) bool {
	return bw.PutBool(bit, 0x80)
}

// PutLiteral encodes the low n bits of v, most significant first.
func (bw *BoolWriter) PutLiteral(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		bw.PutFlag(v>>uint(i)&1 != 0)
	}
}

// PutSignedLiteral encodes |v| in n bits followed by the sign.
func (bw *BoolWriter) PutSignedLiteral(v int32, n int) {
	if v < 0 {
		bw.PutLiteral(uint32(-v), n)
		bw.PutFlag(true)
		return
	}
	bw.PutLiteral(uint32(v), n)
	bw.PutFlag(false)
}

// PutOptionalSigned encodes a presence flag and, for non-zero v, the
// signed literal. It mirrors RangeDecoder.ReadOptionalSigned.
func (bw *BoolWriter) PutOptionalSigned(v int32, n int) {
	if bw.PutFlag(v != 0) {
		bw.PutSignedLiteral(v, n)
	}
}

// PutTree encodes leaf value of t starting at the root.
func (bw *BoolWriter) PutTree(t Tree, probs []uint8, value int) {
	bw.PutTreeFrom(t, probs, value, 0)
}

// PutTreeFrom encodes leaf value of t starting at node pair start.
func (bw *BoolWriter) PutTreeFrom(t Tree, probs []uint8, value, start int) {
	var path []int
	if !treePath(t, start, value, &path) {
		if bw.err == nil {
			bw.err = fmt.Errorf("bitio: value %d unreachable in tree from node %d", value, start)
		}
		return
	}
	// path holds entry indices leaf-first.
	for k := len(path) - 1; k >= 0; k-- {
		e := path[k]
		bw.PutBool(e&1 == 1, probs[e>>1])
	}
}

// treePath appends the entry indices leading from node i to leaf value,
// deepest entry first.
func treePath(t Tree, i, value int, path *[]int) bool {
	for b := 0; b < 2; b++ {
		next := int(t[i+b])
		if next <= 0 {
			if -next == value {
				*path = append(*path, i+b)
				return true
			}
			continue
		}
		if treePath(t, next, value, path) {
			*path = append(*path, i+b)
			return true
		}
	}
	return false
}

// flush emits one byte from the value register, handling carry propagation
// through any pending 0xff bytes.
func (bw *BoolWriter) flush() {
	s := 8 + bw.nbBits
	bits := bw.value >> uint(s)
	bw.value -= bits << uint(s)
	bw.nbBits -= 8
	if bits&0xff != 0xff {
		if bits&0x100 != 0 && len(bw.buf) > 0 {
			bw.buf[len(bw.buf)-1]++
		}
		if bw.run > 0 {
			val := byte(0xff)
			if bits&0x100 != 0 {
				val = 0x00
			}
			for ; bw.run > 0; bw.run-- {
				bw.buf = append(bw.buf, val)
			}
		}
		bw.buf = append(bw.buf, byte(bits&0xff))
	} else {
		bw.run++
	}
}

// Finish pads and flushes the remaining bits and returns the encoded
// bytes. The padding covers the decoder's look-ahead window.
func (bw *BoolWriter) Finish() []byte {
	bw.PutLiteral(0, 9-bw.nbBits)
	bw.nbBits = 0
	bw.flush()
	return bw.buf
}

// Err returns the first encoding error, if any.
func (bw *BoolWriter) Err() error {
	return bw.err
}

// kNorm maps range values [0..127] to the shift count needed for
// renormalisation: 8 - floor(log2(range+1)).
var kNorm = [128]uint8{
	7, 6, 6, 5, 5, 5, 5, 4, 4, 4, 4, 4, 4, 4, 4, 3, 3, 3, 3, 3, 3, 3,
	3, 3, 3, 3, 3, 3, 3, 3, 3, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2,
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0,
}

// kNewRange maps range values [0..127] to the normalised range after
// shifting: ((range + 1) << kNorm[range]) - 1.
var kNewRange = [128]uint8{
	127, 127, 191, 127, 159, 191, 223, 127, 143, 159, 175, 191, 207, 223, 239,
	127, 135, 143, 151, 159, 167, 175, 183, 191, 199, 207, 215, 223, 231, 239,
	247, 127, 131, 135, 139, 143, 147, 151, 155, 159, 163, 167, 171, 175, 179,
	183, 187, 191, 195, 199, 203, 207, 211, 215, 219, 223, 227, 231, 235, 239,
	243, 247, 251, 127, 129, 131, 133, 135, 137, 139, 141, 143, 145, 147, 149,
	151, 153, 155, 157, 159, 161, 163, 165, 167, 169, 171, 173, 175, 177, 179,
	181, 183, 185, 187, 189, 191, 193, 195, 197, 199, 201, 203, 205, 207, 209,
	211, 213, 215, 217, 219, 221, 223, 225, 227, 229, 231, 233, 235, 237, 239,
	241, 243, 245, 247, 249, 251, 253, 127,
}
