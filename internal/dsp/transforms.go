// Package dsp holds the integer 4x4 transforms of VP8. Blocks are 16
// values in raster order.
package dsp

const (
	c1 = 20091 // cos(pi/8) * 2^16 - 2^16
	c2 = 35468 // sin(pi/8) * 2^16
)

// Block is one 4x4 block in raster order.
type Block = [16]int16

func b2i(cond bool) int {
	if cond {
		return 1
	}
	return 0
}

// mul1 computes (a * C1 >> 16) + a.
func mul1(a int) int {
	return ((a * c1) >> 16) + a
}

// mul2 computes a * C2 >> 16.
func mul2(a int) int {
	return (a * c2) >> 16
}

// IDCT computes the inverse DCT of in. out receives the residual, which
// a reconstructor adds to the prediction.
func IDCT(in, out *Block) {
	var tmp [16]int

	// Vertical pass.
	for i := 0; i < 4; i++ {
		a := int(in[i]) + int(in[8+i])
		b := int(in[i]) - int(in[8+i])
		c := mul2(int(in[4+i])) - mul1(int(in[12+i]))
		d := mul1(int(in[4+i])) + mul2(int(in[12+i]))
		tmp[i] = a + d
		tmp[4+i] = b + c
		tmp[8+i] = b - c
		tmp[12+i] = a - d
	}

	// Horizontal pass.
	for i := 0; i < 4; i++ {
		row := tmp[i*4 : i*4+4]
		dc := row[0] + 4
		a := dc + row[2]
		b := dc - row[2]
		c := mul2(row[1]) - mul1(row[3])
		d := mul1(row[1]) + mul2(row[3])
		out[i*4+0] = int16((a + d) >> 3)
		out[i*4+1] = int16((b + c) >> 3)
		out[i*4+2] = int16((b - c) >> 3)
		out[i*4+3] = int16((a - d) >> 3)
	}
}

// IDCTDC is IDCT for a block whose only coefficient is the DC.
func IDCTDC(in, out *Block) {
	dc := int16((int(in[0]) + 4) >> 3)
	for i := range out {
		out[i] = dc
	}
}

// FDCT computes the forward DCT of the residual in.
func FDCT(in, out *Block) {
	var tmp [16]int

	for i := 0; i < 4; i++ {
		d0 := int(in[i*4+0])
		d1 := int(in[i*4+1])
		d2 := int(in[i*4+2])
		d3 := int(in[i*4+3])
		a0 := d0 + d3
		a1 := d1 + d2
		a2 := d1 - d2
		a3 := d0 - d3
		tmp[i*4+0] = (a0 + a1) * 8
		tmp[i*4+1] = (a2*2217 + a3*5352 + 1812) >> 9
		tmp[i*4+2] = (a0 - a1) * 8
		tmp[i*4+3] = (a3*2217 - a2*5352 + 937) >> 9
	}

	for i := 0; i < 4; i++ {
		a0 := tmp[i] + tmp[12+i]
		a1 := tmp[4+i] + tmp[8+i]
		a2 := tmp[4+i] - tmp[8+i]
		a3 := tmp[i] - tmp[12+i]
		out[i] = int16((a0 + a1 + 7) >> 4)
		out[4+i] = int16((a2*2217+a3*5352+12000)>>16 + b2i(a3 != 0))
		out[8+i] = int16((a0 - a1 + 7) >> 4)
		out[12+i] = int16((a3*2217 - a2*5352 + 51000) >> 16)
	}
}

// IWHT computes the inverse Walsh-Hadamard transform of the Y2 block.
// out[b] is the DC coefficient of luma block b.
func IWHT(in, out *Block) {
	var tmp [16]int

	for i := 0; i < 4; i++ {
		a0 := int(in[i]) + int(in[12+i])
		a1 := int(in[4+i]) + int(in[8+i])
		a2 := int(in[4+i]) - int(in[8+i])
		a3 := int(in[i]) - int(in[12+i])
		tmp[i] = a0 + a1
		tmp[8+i] = a0 - a1
		tmp[4+i] = a3 + a2
		tmp[12+i] = a3 - a2
	}

	for i := 0; i < 4; i++ {
		dc := tmp[i*4+0] + 3
		a0 := dc + tmp[i*4+3]
		a1 := tmp[i*4+1] + tmp[i*4+2]
		a2 := tmp[i*4+1] - tmp[i*4+2]
		a3 := dc - tmp[i*4+3]
		out[i*4+0] = int16((a0 + a1) >> 3)
		out[i*4+1] = int16((a3 + a2) >> 3)
		out[i*4+2] = int16((a0 - a1) >> 3)
		out[i*4+3] = int16((a3 - a2) >> 3)
	}
}

// FWHT computes the forward Walsh-Hadamard transform of the 16 luma DC
// coefficients of a macroblock.
func FWHT(in, out *Block) {
	var tmp [16]int

	for i := 0; i < 4; i++ {
		a0 := int(in[i*4+0]) + int(in[i*4+2])
		a1 := int(in[i*4+1]) + int(in[i*4+3])
		a2 := int(in[i*4+1]) - int(in[i*4+3])
		a3 := int(in[i*4+0]) - int(in[i*4+2])
		tmp[0+i*4] = a0 + a1
		tmp[1+i*4] = a3 + a2
		tmp[2+i*4] = a3 - a2
		tmp[3+i*4] = a0 - a1
	}

	for i := 0; i < 4; i++ {
		a0 := tmp[0+i] + tmp[8+i]
		a1 := tmp[4+i] + tmp[12+i]
		a2 := tmp[4+i] - tmp[12+i]
		a3 := tmp[0+i] - tmp[8+i]
		out[0+i] = int16((a0 + a1) >> 1)
		out[4+i] = int16((a3 + a2) >> 1)
		out[8+i] = int16((a3 - a2) >> 1)
		out[12+i] = int16((a0 - a1) >> 1)
	}
}
