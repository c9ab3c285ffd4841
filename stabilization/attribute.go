package stabilization

import (
	"fmt"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// State is stabilization state of an attribute
type State uint8

const (
	// StateStable means previous stable data is used
	StateStable State = iota
	// StateUnstable means new data is not trusted yet, previous stable data is used
	StateUnstable
	// StateStabilizing means filter output follows new data until it settles
	StateStabilizing
)

func (s State) String() string {
	switch s {
	case StateStable:
		return "stable"
	case StateUnstable:
		return "unstable"
	case StateStabilizing:
		return "stabilizing"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// ParseState returns State for its name
func ParseState(name string) (State, error) {
	for _, s := range []State{StateStable, StateUnstable, StateStabilizing} {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, errors.Errorf("unknown stabilization state %q", name)
}

// Attribute is stabilization data of a single object's attribute
type Attribute struct {
	// Ring buffer of raw samples
	history [MaxHistory]Entry
	// Index of the latest sample
	index int
	// Depth used by the latest push
	depth int
	// Number of valid samples in history
	numEntries int
	// Number of frames in current state
	stateCount uint32
	// For unstable state, max count the state can be active
	maxStateCount uint32
	state         State
	stableEntry   Entry
	// Reference captured when attribute became stable
	referenceEntry Entry
	hasReference   bool
	// Lazily created state of FilterKalman
	kalman *kalman_filter.Kalman2D
}

// State returns current state
func (attr *Attribute) State() State {
	return attr.state
}

// StateCount returns number of frames spent in current state
func (attr *Attribute) StateCount() uint32 {
	return attr.stateCount
}

// StableEntry returns current stable (filtered) entry
func (attr *Attribute) StableEntry() Entry {
	return attr.stableEntry
}

// ReferenceEntry returns captured reference and whether it exists
func (attr *Attribute) ReferenceEntry() (Entry, bool) {
	return attr.referenceEntry, attr.hasReference
}

// NumEntries returns number of samples in history
func (attr *Attribute) NumEntries() int {
	return attr.numEntries
}

// push stores new sample in the ring buffer
func (attr *Attribute) push(entry Entry, depth int) {
	attr.depth = depth
	attr.index = (attr.index + 1) % depth
	attr.history[attr.index] = entry
	if attr.numEntries < depth {
		attr.numEntries++
	} else {
		attr.numEntries = depth
	}
}

// recent returns sample pushed k frames ago, k=0 is the latest one
func (attr *Attribute) recent(k int) *Entry {
	return &attr.history[(attr.index-k%attr.depth+attr.depth)%attr.depth]
}

// latest returns the latest sample
func (attr *Attribute) latest() *Entry {
	return &attr.history[attr.index]
}

// resetFilterState forgets state kept by the filter between frames. Next filtered frame starts
// from the stable entry.
func (attr *Attribute) resetFilterState() {
	attr.kalman = nil
}

// setState switches state and maintains the state counter
func (attr *Attribute) setState(newState State) {
	if newState != attr.state {
		attr.state = newState
		attr.stateCount = 0
		return
	}
	attr.stateCount++
}

// TrackedObject is a stabilized object kept in history
type TrackedObject struct {
	// Object identifier, 0 is unassigned
	ID uint32
	// Caller owned payload, never touched by engine
	Payload       any
	NumAttributes int
	Attributes    [MaxObjectAttributes]Attribute
}

// History is the ordered set of tracked objects
type History struct {
	NumObjects int
	Objects    [MaxObjects]TrackedObject
}

// insertAt makes room for a new object at index j. The last object is dropped when history is full.
func (h *History) insertAt(j int) {
	last := h.NumObjects
	if last >= MaxObjects {
		last = MaxObjects - 1
	} else {
		h.NumObjects++
	}
	for k := last; k > j; k-- {
		h.Objects[k] = h.Objects[k-1]
	}
}

// removeAt drops object at index j
func (h *History) removeAt(j int) {
	for k := j; k < h.NumObjects-1; k++ {
		h.Objects[k] = h.Objects[k+1]
	}
	h.NumObjects--
	h.Objects[h.NumObjects] = TrackedObject{}
}

// truncate forgets objects beyond n
func (h *History) truncate(n int) {
	for k := n; k < h.NumObjects; k++ {
		h.Objects[k] = TrackedObject{}
	}
	if h.NumObjects > n {
		h.NumObjects = n
	}
}

// reset forgets every object
func (h *History) reset() {
	h.truncate(0)
}
