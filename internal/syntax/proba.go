package syntax

// EntropyTables holds the probability families that follow the
// refresh_entropy_probs save/restore rule.
type EntropyTables struct {
	Coeff  [NumBlockTypes][NumBands][NumContexts][NumTokenProbs]uint8
	MV     [2][NumMVProbs]uint8
	YMode  [NumYModeProbs]uint8
	UVMode [NumUVModeProbs]uint8
}

// DefaultEntropyTables returns the tables installed on key frames.
func DefaultEntropyTables() EntropyTables {
	return EntropyTables{
		Coeff:  DefaultCoeffProbs,
		MV:     DefaultMVProbs,
		YMode:  DefaultYModeProbs,
		UVMode: DefaultUVModeProbs,
	}
}

// TableSelector records which copy of the entropy tables a frame writes
// to.
type TableSelector uint8

const (
	// PersistentTables: the frame's updates carry over to later frames.
	PersistentTables TableSelector = iota
	// TemporaryTables: the frame's updates are dropped when it ends.
	TemporaryTables
)

func (s TableSelector) String() string {
	if s == TemporaryTables {
		return "temporary"
	}
	return "persistent"
}

// ProbabilityContext is the entropy state that survives from frame to
// frame.
//
// A frame always works on a value copy of the persistent tables. The
// selector chosen by BeginFrame decides whether that copy replaces the
// persistent tables when the next frame begins, or is dropped.
type ProbabilityContext struct {
	persistent EntropyTables
	working    EntropyTables
	active     TableSelector
	pending    bool

	// Plain persistent state, outside the save/restore rule.
	SegmentProbs [3]uint8
	SignBias     [4]bool // indexed by RefFrame
	RefLFDelta   [NumRefDeltas]int8
	ModeLFDelta  [NumModeDeltas]int8
}

// NewProbabilityContext returns a context holding the key-frame defaults.
func NewProbabilityContext() *ProbabilityContext {
	c := &ProbabilityContext{}
	c.ResetToDefaults()
	return c
}

// ResetToDefaults installs the default tables. It runs at the start of
// every key frame and drops any update still pending from the previous
// frame.
func (c *ProbabilityContext) ResetToDefaults() {
	c.persistent = DefaultEntropyTables()
	c.working = c.persistent
	c.active = PersistentTables
	c.pending = false
	c.SegmentProbs = [3]uint8{255, 255, 255}
	c.SignBias = [4]bool{}
	c.RefLFDelta = [NumRefDeltas]int8{}
	c.ModeLFDelta = [NumModeDeltas]int8{}
}

// BeginFrame settles the previous frame's tables and prepares the working
// copy for a new frame. With refresh set the frame's updates persist.
func (c *ProbabilityContext) BeginFrame(refresh bool) TableSelector {
	c.CommitOrDiscard()
	c.working = c.persistent
	c.active = TemporaryTables
	if refresh {
		c.active = PersistentTables
	}
	c.pending = true
	return c.active
}

// CommitOrDiscard ends the current frame: persistent updates are written
// back, temporary ones are dropped. It is idempotent and BeginFrame calls
// it, so decoders never need to.
func (c *ProbabilityContext) CommitOrDiscard() {
	if c.pending && c.active == PersistentTables {
		c.persistent = c.working
	}
	c.pending = false
}

// Abandon drops the working tables of a frame that failed to decode.
func (c *ProbabilityContext) Abandon() {
	c.pending = false
	c.working = c.persistent
}

// Active returns the selector chosen by the last BeginFrame.
func (c *ProbabilityContext) Active() TableSelector {
	return c.active
}

// Tables returns the working tables of the current frame.
func (c *ProbabilityContext) Tables() *EntropyTables {
	return &c.working
}

// Snapshot returns the tables the next frame will start from.
func (c *ProbabilityContext) Snapshot() EntropyTables {
	if c.pending && c.active == PersistentTables {
		return c.working
	}
	return c.persistent
}
