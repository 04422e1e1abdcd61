package syntax

import "fmt"

// PredictionMode is a macroblock-level prediction mode. Intra modes come
// first, inter (motion vector) modes follow.
type PredictionMode uint8

const (
	DCPred PredictionMode = iota
	VPred
	HPred
	TMPred
	BPred
	NearestMV
	NearMV
	ZeroMV
	NewMV
	SplitMV
)

var predictionModeNames = [...]string{
	"DC_PRED", "V_PRED", "H_PRED", "TM_PRED", "B_PRED",
	"NEARESTMV", "NEARMV", "ZEROMV", "NEWMV", "SPLITMV",
}

func (m PredictionMode) String() string {
	if int(m) < len(predictionModeNames) {
		return predictionModeNames[m]
	}
	return fmt.Sprintf("PredictionMode(%d)", uint8(m))
}

// IsInter reports whether m predicts from a reference frame.
func (m PredictionMode) IsInter() bool {
	return m >= NearestMV
}

// SubblockMode is the intra prediction mode of one 4x4 luma block. The
// values index the key-frame context table kfBModeProbs, which is laid
// out RD, VR, LD after the first four modes.
type SubblockMode uint8

const (
	BDCPred SubblockMode = iota
	BTMPred
	BVEPred
	BHEPred
	BRDPred
	BVRPred
	BLDPred
	BVLPred
	BHDPred
	BHUPred
)

var subblockModeNames = [...]string{
	"B_DC", "B_TM", "B_VE", "B_HE", "B_RD", "B_VR", "B_LD", "B_VL", "B_HD", "B_HU",
}

func (m SubblockMode) String() string {
	if int(m) < len(subblockModeNames) {
		return subblockModeNames[m]
	}
	return fmt.Sprintf("SubblockMode(%d)", uint8(m))
}

// impliedSubblockModes gives the sub-block context implied by a 16x16
// intra mode for key-frame neighbours.
var impliedSubblockModes = [...]SubblockMode{
	DCPred: BDCPred,
	VPred:  BVEPred,
	HPred:  BHEPred,
	TMPred: BTMPred,
}

// SubMVRef selects how a split sub-block obtains its motion vector.
type SubMVRef uint8

const (
	SubMVLeft SubMVRef = iota
	SubMVAbove
	SubMVZero
	SubMVNew
)

// SplitPartition is the layout of a SPLITMV macroblock.
type SplitPartition uint8

const (
	SplitTopBottom SplitPartition = iota // two 16x8 halves
	SplitLeftRight                       // two 8x16 halves
	SplitQuarters                        // four 8x8 quarters
	Split4x4                             // sixteen 4x4 blocks
)

// RefFrame identifies the reference buffer an inter macroblock predicts
// from. IntraFrame marks intra macroblocks.
type RefFrame uint8

const (
	IntraFrame RefFrame = iota
	LastFrame
	GoldenFrame
	AltRefFrame
)

var refFrameNames = [...]string{"intra", "last", "golden", "altref"}

func (r RefFrame) String() string {
	if int(r) < len(refFrameNames) {
		return refFrameNames[r]
	}
	return fmt.Sprintf("RefFrame(%d)", uint8(r))
}

// ModeClass groups prediction modes by how they affect the residual
// layout and the loop filter mode deltas.
type ModeClass uint8

const (
	ClassSubblock ModeClass = iota // B_PRED: no Y2 block
	ClassWhole                     // 16x16 intra or ZEROMV
	ClassMotion                    // NEARESTMV, NEARMV, NEWMV
	ClassSplit                     // SPLITMV: no Y2 block
)

func classOf(m PredictionMode) ModeClass {
	switch m {
	case BPred:
		return ClassSubblock
	case SplitMV:
		return ClassSplit
	case NearestMV, NearMV, NewMV:
		return ClassMotion
	}
	return ClassWhole
}

// HasY2 reports whether macroblocks of this class carry a second order
// luma DC block.
func (c ModeClass) HasY2() bool {
	return c == ClassWhole || c == ClassMotion
}

// MotionVector is a displacement in quarter-pel units as coded in the
// stream. The zero vector means no motion.
type MotionVector struct {
	Row, Col int16
}

// EighthPel returns v scaled to 1/8 pel units.
func (v MotionVector) EighthPel() MotionVector {
	return MotionVector{Row: v.Row * 2, Col: v.Col * 2}
}

func (v MotionVector) add(o MotionVector) MotionVector {
	return MotionVector{Row: v.Row + o.Row, Col: v.Col + o.Col}
}

// FilterType selects the loop filter variant.
type FilterType uint8

const (
	FilterNormal FilterType = iota
	FilterSimple
)

// FrameTag is the uncompressed data chunk at the start of every frame.
type FrameTag struct {
	KeyFrame        bool
	Version         uint8
	ShowFrame       bool
	FirstPartSize   uint32
	Width           uint16
	Height          uint16
	HorizontalScale uint8
	VerticalScale   uint8
}

// MacroblockCols returns the frame width in macroblocks.
func (t FrameTag) MacroblockCols() int {
	return (int(t.Width) + 15) >> 4
}

// MacroblockRows returns the frame height in macroblocks.
func (t FrameTag) MacroblockRows() int {
	return (int(t.Height) + 15) >> 4
}

// SegmentHeader holds the segmentation syntax of a frame. Quantizer and
// FilterLevel carry the values in effect for the frame, whether updated
// by it or inherited.
type SegmentHeader struct {
	Enabled       bool
	UpdateMap     bool
	UpdateData    bool
	AbsoluteDelta bool
	Quantizer     [NumSegments]int8
	FilterLevel   [NumSegments]int8
	TreeProbs     [3]uint8
}

// FilterHeader holds the loop filter syntax of a frame. The deltas are
// the values in effect for the frame.
type FilterHeader struct {
	Type         FilterType
	Level        uint8
	Sharpness    uint8
	DeltaEnabled bool
	DeltaUpdate  bool
	RefDelta     [NumRefDeltas]int8
	ModeDelta    [NumModeDeltas]int8
}

// QuantIndices holds the base quantizer index and the five signed
// per-plane deltas.
type QuantIndices struct {
	YAC       int
	YDCDelta  int
	Y2DCDelta int
	Y2ACDelta int
	UVDCDelta int
	UVACDelta int
}

// FrameHeader holds the per-frame syntax elements of the first partition.
type FrameHeader struct {
	ColorSpace   uint8
	ClampingType uint8

	Segment       SegmentHeader
	Filter        FilterHeader
	NumPartitions int
	Quant         QuantIndices
	SegmentQuant  [NumSegments]int // resolved base index per segment

	RefreshGolden       bool
	RefreshAltRef       bool
	CopyToGolden        uint8
	CopyToAltRef        uint8
	SignBiasGolden      bool
	SignBiasAltRef      bool
	RefreshEntropyProbs bool
	RefreshLast         bool

	MBNoCoeffSkip bool
	ProbSkipFalse uint8

	ProbIntra  uint8
	ProbLast   uint8
	ProbGolden uint8

	YModeProbsUpdated  bool
	UVModeProbsUpdated bool
	MVProbsUpdated     int // number of updated entries
	CoeffProbsUpdated  int // number of updated entries
}

// MacroblockMeta is the per-macroblock summary handed from the mode pass
// to the token pass.
type MacroblockMeta struct {
	Segment    uint8
	Skip       bool
	HasContent bool
	Ref        RefFrame
	Class      ModeClass
}

// MacroblockHeader holds the prediction syntax of one macroblock.
type MacroblockHeader struct {
	MacroblockMeta

	YMode     PredictionMode
	UVMode    PredictionMode
	SubModes  [16]SubblockMode
	MV        MotionVector
	Partition SplitPartition
	SubMVs    [16]MotionVector
	SubRefs   [16]SubMVRef
}

// ResidualData holds the quantized coefficients of one macroblock in
// natural order. Blocks 0-15 are luma, 16-19 U, 20-23 V and 24 is Y2.
type ResidualData struct {
	Coeffs      [25][16]int16
	NonZero     uint32 // bit b set when block b coded coefficients
	HasY2       bool
	Skipped     bool
	Segment     uint8
	QuantIndex  int
	FilterLevel uint8
}

// Macroblock is the decoded syntax of one macroblock.
type Macroblock struct {
	Header   MacroblockHeader
	Residual ResidualData
}
