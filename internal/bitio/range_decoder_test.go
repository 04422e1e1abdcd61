package bitio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewRangeDecoder_InitialState(t *testing.T) {
	d := NewRangeDecoder([]byte{0xAB, 0xCD, 0xEF})

	assert.Equal(t, uint32(255), d.rng)
	assert.Equal(t, uint32(0xABCD), d.value)
	assert.Equal(t, 0, d.bitCount)
	assert.NoError(t, d.Err())
}

func TestRangeDecoder_AllZeroData(t *testing.T) {
	d := NewRangeDecoder(make([]byte, 16))
	for i := 0; i < 20; i++ {
		if d.ReadBool(0x80) {
			t.Fatalf("bit %d: got 1, want 0 (all-zero data)", i)
		}
	}
	require.NoError(t, d.Err())
}

func TestRangeDecoder_AllOnesData(t *testing.T) {
	data := make([]byte, 16)
	for i := range data {
		data[i] = 0xff
	}
	d := NewRangeDecoder(data)
	for i := 0; i < 20; i++ {
		if !d.ReadBool(0x80) {
			t.Fatalf("bit %d: got 0, want 1 (all-ones data)", i)
		}
	}
}

func TestRangeDecoder_EmptyInputIsTruncated(t *testing.T) {
	d := NewRangeDecoder(nil)
	require.True(t, errors.Is(d.Err(), ErrTruncated))
	assert.False(t, d.ReadBool(1))
	assert.Equal(t, uint32(0), d.ReadLiteral(8))
}

func TestRangeDecoder_SingleByteUsesLookahead(t *testing.T) {
	d := NewRangeDecoder([]byte{0x00})
	require.NoError(t, d.Err())
}

func TestRangeDecoder_ReadPastEnd(t *testing.T) {
	d := NewRangeDecoder([]byte{0x12, 0x34, 0x56})
	for i := 0; i < 64 && d.Err() == nil; i++ {
		d.ReadLiteral(8)
	}
	require.True(t, errors.Is(d.Err(), ErrTruncated))

	// Sticky: every further read yields zero.
	for i := 0; i < 8; i++ {
		assert.False(t, d.ReadBool(0x80))
	}
	assert.Equal(t, 0, d.ReadTree(Tree{-0, 2, -1, -2}, []uint8{128, 128}))
}

func TestRoundTrip_ProbsAndLiteralWidths(t *testing.T) {
	for _, prob := range []uint8{1, 128, 255} {
		for _, n := range []int{0, 1, 16} {
			bw := NewBoolWriter(0)
			bw.PutBool(true, prob)
			bw.PutBool(false, prob)
			bw.PutLiteral(0xA5A5, n)
			bw.PutBool(true, prob)
			data := bw.Finish()

			d := NewRangeDecoder(data)
			assert.True(t, d.ReadBool(prob), "prob=%d n=%d first", prob, n)
			assert.False(t, d.ReadBool(prob), "prob=%d n=%d second", prob, n)
			want := uint32(0xA5A5) & (1<<uint(n) - 1)
			assert.Equal(t, want, d.ReadLiteral(n), "prob=%d n=%d literal", prob, n)
			assert.True(t, d.ReadBool(prob), "prob=%d n=%d last", prob, n)
			assert.NoError(t, d.Err())
		}
	}
}

type symbol struct {
	bit  bool
	prob uint8
}

func TestRoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gen := rapid.Custom(func(t *rapid.T) symbol {
			return symbol{
				bit:  rapid.Bool().Draw(t, "bit"),
				prob: rapid.Uint8Range(1, 255).Draw(t, "prob"),
			}
		})
		syms := rapid.SliceOfN(gen, 0, 2000).Draw(t, "symbols")

		bw := NewBoolWriter(len(syms) / 4)
		for _, s := range syms {
			bw.PutBool(s.bit, s.prob)
		}
		d := NewRangeDecoder(bw.Finish())
		for i, s := range syms {
			if got := d.ReadBool(s.prob); got != s.bit {
				t.Fatalf("symbol %d (prob=%d): got %v, want %v", i, s.prob, got, s.bit)
			}
		}
		if err := d.Err(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestReadSignedLiteral_MagnitudeThenSign(t *testing.T) {
	bw := NewBoolWriter(0)
	bw.PutLiteral(5, 4)
	bw.PutFlag(true)
	bw.PutSignedLiteral(-63, 6)
	bw.PutSignedLiteral(17, 7)
	bw.PutOptionalSigned(0, 4)
	bw.PutOptionalSigned(-3, 4)
	d := NewRangeDecoder(bw.Finish())

	assert.Equal(t, int32(-5), d.ReadSignedLiteral(4))
	assert.Equal(t, int32(-63), d.ReadSignedLiteral(6))
	assert.Equal(t, int32(17), d.ReadSignedLiteral(7))
	assert.Equal(t, int32(0), d.ReadOptionalSigned(4))
	assert.Equal(t, int32(-3), d.ReadOptionalSigned(4))
}

func TestReadProb7_NeverZero(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint32Range(0, 127).Draw(t, "v")
		bw := NewBoolWriter(0)
		bw.PutLiteral(v, 7)
		got := NewRangeDecoder(bw.Finish()).ReadProb7()
		if got == 0 {
			t.Fatalf("ReadProb7 returned 0 for coded %d", v)
		}
		want := uint8(v << 1)
		if v == 0 {
			want = 1
		}
		if got != want {
			t.Fatalf("ReadProb7 = %d, want %d", got, want)
		}
	})
}

func TestTree_RoundTrip(t *testing.T) {
	// Same shape as the DCT token tree prefix: EOB, ZERO, ONE, {TWO, THREE}.
	tree := Tree{-0, 2, -1, 4, -2, 6, -3, -4}
	probs := []uint8{200, 100, 60, 30}
	values := []int{0, 1, 2, 3, 4, 4, 1, 0}

	bw := NewBoolWriter(0)
	for _, v := range values {
		bw.PutTree(tree, probs, v)
	}
	bw.PutTreeFrom(tree, probs, 3, 2)
	require.NoError(t, bw.Err())
	d := NewRangeDecoder(bw.Finish())

	for i, v := range values {
		assert.Equal(t, v, d.ReadTree(tree, probs), "value %d", i)
	}
	assert.Equal(t, 3, d.ReadTreeFrom(tree, probs, 2))
}

func TestPutTree_UnreachableValue(t *testing.T) {
	bw := NewBoolWriter(0)
	bw.PutTreeFrom(Tree{-0, 2, -1, -2}, []uint8{128, 128}, 0, 2)
	assert.Error(t, bw.Err())
}
