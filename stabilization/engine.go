package stabilization

import (
	"math"

	"github.com/google/uuid"
)

// Engine stabilizes bounding boxes of objects over consecutive frames.
// Engine is not safe for concurrent use, create one per independent stream.
type Engine struct {
	sessionID uuid.UUID
	config    Config
	history   History
	// Frame bounds used for clamping output boxes
	frameWidth  int32
	frameHeight int32
}

// NewEngine creates engine with empty history and zero configuration. Initialize should be called before use.
func NewEngine() *Engine {
	return &Engine{
		sessionID: uuid.New(),
	}
}

// NewEngineWith creates engine and initializes it
func NewEngineWith(cfg *Config, frameWidth, frameHeight int) (*Engine, error) {
	e := NewEngine()
	if err := e.Initialize(cfg, frameWidth, frameHeight); err != nil {
		return nil, err
	}
	return e, nil
}

// SessionID returns identifier of the engine instance. It changes on every Initialize.
func (e *Engine) SessionID() uuid.UUID {
	return e.sessionID
}

// Initialize stores configuration and frame bounds and forgets every tracked object
func (e *Engine) Initialize(cfg *Config, frameWidth, frameHeight int) error {
	if cfg == nil {
		return invalidArgumentf("nil configuration")
	}
	if frameWidth < 0 || frameHeight < 0 || frameWidth > math.MaxInt32 || frameHeight > math.MaxInt32 {
		return invalidArgumentf("frame size %dx%d is out of range", frameWidth, frameHeight)
	}
	e.config = *cfg
	e.frameWidth = int32(frameWidth)
	e.frameHeight = int32(frameHeight)
	e.history.reset()
	e.sessionID = uuid.New()
	return nil
}

// GetConfig returns copy of current configuration
func (e *Engine) GetConfig() Config {
	return e.config
}

// SetConfig replaces configuration. History is kept.
func (e *Engine) SetConfig(cfg *Config) error {
	if cfg == nil {
		return invalidArgumentf("nil configuration")
	}
	e.config = *cfg
	return nil
}

// FrameSize returns frame bounds given to Initialize
func (e *Engine) FrameSize() (int, int) {
	return int(e.frameWidth), int(e.frameHeight)
}

// NumTracked returns number of objects in history
func (e *Engine) NumTracked() int {
	return e.history.NumObjects
}

// ExecuteStabilization stabilizes objects of the frame. Input frame is not modified.
// Output has the same number of objects, sorted in tracking order. On error history is untouched.
func (e *Engine) ExecuteStabilization(frame *Frame) (Frame, error) {
	var output Frame
	if frame == nil {
		return output, invalidArgumentf("nil frame")
	}
	if err := frame.validate(); err != nil {
		Logf("Can't execute stabilization: %v", err)
		return output, err
	}
	if err := e.config.Validate(); err != nil {
		Logf("Can't execute stabilization: %v", err)
		return output, err
	}
	if !e.config.Enable {
		return *frame, nil
	}

	current := *frame
	sortObjects(current.Objects[:current.NumObjects])
	e.matchObjects(&current)

	for i := 0; i < current.NumObjects; i++ {
		tracked := &e.history.Objects[i]
		in := &current.Objects[i]
		out := &output.Objects[i]
		out.ID = tracked.ID
		out.NumAttributes = in.NumAttributes
		out.Payload = tracked.Payload
		out.References = in.References
		for j := 0; j < in.NumAttributes; j++ {
			attr := &tracked.Attributes[j]
			cfg := &e.config.AttributeConfigs[j]
			if cfg.Enable {
				reference := referenceFor(in, j, cfg)
				th := computeThresholds(tracked, in, j, cfg, reference)
				e.trackAttribute(attr, cfg, &tracked.Attributes[SizeIndex], reference, th)
			}
			out.Attributes[j] = Point{
				Valid: in.Attributes[j].Valid,
				Entry: NewEntry(attr.stableEntry.Data0, attr.stableEntry.Data1),
			}
		}
		clampToFrame(out, e.frameWidth, e.frameHeight)
	}
	output.NumObjects = current.NumObjects
	return output, nil
}

// AttributeSnapshot is read-only view of attribute tracking state
type AttributeSnapshot struct {
	State       State
	StateCount  uint32
	StableEntry Entry
	NumEntries  int
}

// ObjectSnapshot is read-only view of a tracked object
type ObjectSnapshot struct {
	ID         uint32
	Payload    any
	Attributes []AttributeSnapshot
}

// Snapshot returns tracking state of every object in history. It allocates and is meant for inspection only.
func (e *Engine) Snapshot() []ObjectSnapshot {
	snapshot := make([]ObjectSnapshot, 0, e.history.NumObjects)
	for i := 0; i < e.history.NumObjects; i++ {
		tracked := &e.history.Objects[i]
		obj := ObjectSnapshot{
			ID:         tracked.ID,
			Payload:    tracked.Payload,
			Attributes: make([]AttributeSnapshot, tracked.NumAttributes),
		}
		for j := 0; j < tracked.NumAttributes; j++ {
			attr := &tracked.Attributes[j]
			obj.Attributes[j] = AttributeSnapshot{
				State:       attr.state,
				StateCount:  attr.stateCount,
				StableEntry: attr.stableEntry,
				NumEntries:  attr.numEntries,
			}
		}
		snapshot = append(snapshot, obj)
	}
	return snapshot
}
