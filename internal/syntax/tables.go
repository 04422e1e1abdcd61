package syntax

import "github.com/deepteams/vp8/internal/bitio"

// VP8 syntax constants.
const (
	NumBlockTypes  = 4  // Y-after-Y2, Y2, chroma, Y-with-DC
	NumBands       = 8  // coefficient position bands
	NumContexts    = 3  // neighbour contexts per band
	NumTokenProbs  = 11 // internal nodes of the token tree
	NumMVProbs     = 19 // per motion vector component
	NumBModes      = 10 // sub-block intra modes
	NumYModeProbs  = 4
	NumUVModeProbs = 3
	NumSegments    = 4
	NumRefDeltas   = 4
	NumModeDeltas  = 4
	MaxPartitions  = 8

	maxMVMagnitude = 1023
)

// Block types used to select a coefficient probability plane.
const (
	blockTypeYAfterY2 = 0
	blockTypeY2       = 1
	blockTypeChroma   = 2
	blockTypeYWithDC  = 3
)

// Coefficient tokens. The values double as the token tree leaves.
const (
	tokenZero = iota
	tokenOne
	tokenTwo
	tokenThree
	tokenFour
	tokenCat1
	tokenCat2
	tokenCat3
	tokenCat4
	tokenCat5
	tokenCat6
	tokenEOB
)

// Motion vector probability layout.
const (
	mvpIsShort = 0
	mvpSign    = 1
	mvpShort   = 2
	mvpLong    = 9
	mvLongBits = 10
	mvShortMax = 7
)

var (
	segmentTree = bitio.Tree{2, 4, -0, -1, -2, -3}

	kfYModeTree = bitio.Tree{
		-int8(BPred), 2,
		4, 6,
		-int8(DCPred), -int8(VPred),
		-int8(HPred), -int8(TMPred),
	}
	yModeTree = bitio.Tree{
		-int8(DCPred), 2,
		4, 6,
		-int8(VPred), -int8(HPred),
		-int8(TMPred), -int8(BPred),
	}
	uvModeTree = bitio.Tree{
		-int8(DCPred), 2,
		-int8(VPred), 4,
		-int8(HPred), -int8(TMPred),
	}
	bModeTree = bitio.Tree{
		-int8(BDCPred), 2,
		-int8(BTMPred), 4,
		-int8(BVEPred), 6,
		8, 12,
		-int8(BHEPred), 10,
		-int8(BRDPred), -int8(BVRPred),
		-int8(BLDPred), 14,
		-int8(BVLPred), 16,
		-int8(BHDPred), -int8(BHUPred),
	}
	mvRefTree = bitio.Tree{
		-int8(ZeroMV), 2,
		-int8(NearestMV), 4,
		-int8(NearMV), 6,
		-int8(NewMV), -int8(SplitMV),
	}
	splitTree = bitio.Tree{
		-int8(Split4x4), 2,
		-int8(SplitQuarters), 4,
		-int8(SplitTopBottom), -int8(SplitLeftRight),
	}
	subMVRefTree = bitio.Tree{
		-int8(SubMVLeft), 2,
		-int8(SubMVAbove), 4,
		-int8(SubMVZero), -int8(SubMVNew),
	}
	smallMVTree = bitio.Tree{
		2, 8,
		4, 6,
		-0, -1,
		-2, -3,
		10, 12,
		-4, -5,
		-6, -7,
	}
	coeffTree = bitio.Tree{
		-tokenEOB, 2,
		-tokenZero, 4,
		-tokenOne, 6,
		8, 12,
		-tokenTwo, 10,
		-tokenThree, -tokenFour,
		14, 16,
		-tokenCat1, -tokenCat2,
		18, 20,
		-tokenCat3, -tokenCat4,
		-tokenCat5, -tokenCat6,
	}
)

var (
	kfYModeProbs  = [NumYModeProbs]uint8{145, 156, 163, 128}
	kfUVModeProbs = [NumUVModeProbs]uint8{142, 114, 183}

	// DefaultYModeProbs and DefaultUVModeProbs seed the inter-frame intra
	// mode probabilities on every key frame.
	DefaultYModeProbs  = [NumYModeProbs]uint8{112, 86, 140, 37}
	DefaultUVModeProbs = [NumUVModeProbs]uint8{162, 101, 204}

	// Fixed sub-block mode probabilities for intra macroblocks of inter frames.
	bModeProbs = [NumBModes - 1]uint8{120, 90, 79, 133, 87, 85, 80, 111, 151}

	// modeContexts[count][i] is the probability of node i of mvRefTree
	// given the weighted count of the matching near candidate.
	modeContexts = [6][4]uint8{
		{7, 1, 1, 143},
		{14, 18, 14, 107},
		{135, 64, 57, 68},
		{60, 56, 128, 65},
		{159, 134, 128, 34},
		{234, 188, 128, 28},
	}

	splitProbs = [3]uint8{110, 111, 150}

	subMVRefProbs = [5][3]uint8{
		{147, 136, 18},
		{106, 145, 1},
		{179, 121, 1},
		{223, 1, 34},
		{208, 1, 1},
	}

	// splitLayouts maps each sub-block to its partition index.
	splitLayouts = [4][16]uint8{
		SplitTopBottom: {0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1},
		SplitLeftRight: {0, 0, 1, 1, 0, 0, 1, 1, 0, 0, 1, 1, 0, 0, 1, 1},
		SplitQuarters:  {0, 0, 1, 1, 0, 0, 1, 1, 2, 2, 3, 3, 2, 2, 3, 3},
		Split4x4:       {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	}
	splitCounts = [4]int{
		SplitTopBottom: 2,
		SplitLeftRight: 2,
		SplitQuarters:  4,
		Split4x4:       16,
	}

	// DefaultMVProbs are installed on every key frame.
	DefaultMVProbs = [2][NumMVProbs]uint8{
		{162, 128, 225, 146, 172, 147, 214, 39, 156, 128, 129, 132, 75, 145, 178, 206, 239, 254, 254},
		{164, 128, 204, 170, 119, 235, 140, 230, 228, 128, 130, 130, 74, 148, 180, 203, 236, 254, 254},
	}
	// MVUpdateProbs guard each entry of the motion vector probability
	// update pass.
	MVUpdateProbs = [2][NumMVProbs]uint8{
		{237, 246, 253, 253, 254, 254, 254, 254, 254, 254, 254, 254, 254, 254, 250, 250, 252, 254, 254},
		{231, 243, 245, 253, 254, 254, 254, 254, 254, 254, 254, 254, 254, 254, 251, 251, 254, 254, 254},
	}

	// coeffBands maps a coefficient position to its probability band. The
	// trailing entry lets the decoder look one past the last position.
	coeffBands = [17]uint8{0, 1, 2, 3, 6, 4, 5, 6, 6, 6, 6, 6, 6, 6, 6, 7, 0}

	// Zigzag maps a scan position to its natural (raster) position.
	Zigzag = [16]uint8{0, 1, 4, 8, 5, 2, 3, 6, 9, 12, 13, 10, 7, 11, 14, 15}

	// Extra-bit probabilities and base values of the DCT_CAT tokens.
	catProbs = [6][]uint8{
		{159},
		{165, 145},
		{173, 148, 140},
		{176, 155, 140, 135},
		{180, 157, 141, 134, 130},
		{254, 254, 243, 230, 196, 177, 153, 140, 133, 130, 129},
	}
	catBases = [6]int{5, 7, 11, 19, 35, 67}
)
