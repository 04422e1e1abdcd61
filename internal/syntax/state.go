package syntax

// segmentData is the segmentation state that persists across frames.
type segmentData struct {
	absoluteDelta bool
	quantizer     [NumSegments]int8
	filterLevel   [NumSegments]int8
}

// State is the cross-frame decoding state of one VP8 stream. It is owned
// by the caller and must not be shared by concurrent frame decodes.
type State struct {
	Probs *ProbabilityContext

	hasKeyFrame bool
	width       uint16
	height      uint16
	hScale      uint8
	vScale      uint8

	segment    segmentData
	segmentMap []uint8
}

// NewState returns the state of a stream that has not seen a key frame.
func NewState() *State {
	return &State{Probs: NewProbabilityContext()}
}

// Reset returns s to the state of a fresh stream.
func (s *State) Reset() {
	*s = State{Probs: NewProbabilityContext(), segmentMap: s.segmentMap[:0]}
}

// HasKeyFrame reports whether a key frame has established the frame size.
func (s *State) HasKeyFrame() bool {
	return s.hasKeyFrame
}

// Dimensions returns the frame size established by the last key frame.
func (s *State) Dimensions() (width, height int) {
	return int(s.width), int(s.height)
}

// beginKeyFrame resets everything a key frame redefines.
func (s *State) beginKeyFrame(tag FrameTag) {
	s.Probs.ResetToDefaults()
	s.segment = segmentData{}
	s.hasKeyFrame = true
	s.width, s.height = tag.Width, tag.Height
	s.hScale, s.vScale = tag.HorizontalScale, tag.VerticalScale

	n := tag.MacroblockCols() * tag.MacroblockRows()
	if cap(s.segmentMap) >= n {
		s.segmentMap = s.segmentMap[:n]
	} else {
		s.segmentMap = make([]uint8, n)
	}
	clear(s.segmentMap)
}

// stateSnapshot holds a copy of everything a frame may change in State
// before it is known to decode.
type stateSnapshot struct {
	state      State
	probs      ProbabilityContext
	segmentMap []uint8
}

func (s *State) save(snap *stateSnapshot) {
	snap.state = *s
	snap.probs = *s.Probs
	snap.segmentMap = append(snap.segmentMap[:0], s.segmentMap...)
}

// restore rolls s back to snap. The ProbabilityContext is restored in
// place since callers may hold on to s.Probs.
func (s *State) restore(snap *stateSnapshot) {
	probs := s.Probs
	*probs = snap.probs
	*s = snap.state
	s.Probs = probs
	s.segmentMap = append(s.segmentMap[:0], snap.segmentMap...)
}

// inheritDimensions fills an inter frame's tag with the established size.
func (s *State) inheritDimensions(tag *FrameTag) {
	tag.Width, tag.Height = s.width, s.height
	tag.HorizontalScale, tag.VerticalScale = s.hScale, s.vScale
}
