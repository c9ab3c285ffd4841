package stabilization

// ObjectData holds attributes of a single object for one frame
type ObjectData struct {
	// Object identifier, 0 is unassigned
	ID uint32
	// Number of attributes in use
	NumAttributes int
	// Attribute samples, index 0 is position and index 1 is size
	Attributes [MaxObjectAttributes]Point
	// Optional per attribute references (e.g. distance between eyes for size)
	References [MaxObjectAttributes]Point
	// Caller owned payload carried through untouched
	Payload any
}

// NewObjectData creates object with position and size attributes
func NewObjectData(id uint32, centerX, centerY, width, height int32) ObjectData {
	obj := ObjectData{
		ID:            id,
		NumAttributes: 2,
	}
	obj.Attributes[PositionIndex] = NewPoint(centerX, centerY)
	obj.Attributes[SizeIndex] = NewPoint(width, height)
	return obj
}

// Position returns position entry
func (obj *ObjectData) Position() Entry {
	return obj.Attributes[PositionIndex].Entry
}

// Size returns size entry
func (obj *ObjectData) Size() Entry {
	return obj.Attributes[SizeIndex].Entry
}

// Rect returns bounding box of the object
func (obj *ObjectData) Rect() Rectangle {
	return RectFromCenter(obj.Position(), obj.Size())
}

// SetReference sets reference for the attribute
func (obj *ObjectData) SetReference(attributeIdx int, reference Entry) {
	obj.References[attributeIdx] = Point{Valid: true, Entry: reference}
}

// Frame is a set of objects for one frame. It is used both for input and stabilized output.
type Frame struct {
	NumObjects int
	Objects    [MaxObjects]ObjectData
}

// NewFrame creates frame from objects. Objects beyond MaxObjects are ignored, but NumObjects keeps
// the requested count so the engine rejects such frame.
func NewFrame(objects ...ObjectData) Frame {
	frame := Frame{
		NumObjects: len(objects),
	}
	copy(frame.Objects[:], objects)
	return frame
}

// ObjectsSlice returns slice over objects in use
func (frame *Frame) ObjectsSlice() []ObjectData {
	n := frame.NumObjects
	if n > MaxObjects {
		n = MaxObjects
	}
	if n < 0 {
		n = 0
	}
	return frame.Objects[:n]
}

func (frame *Frame) validate() error {
	if frame.NumObjects < 0 || frame.NumObjects > MaxObjects {
		return invalidArgumentf("number of objects %d is out of range [0, %d]", frame.NumObjects, MaxObjects)
	}
	for i := 0; i < frame.NumObjects; i++ {
		numAttributes := frame.Objects[i].NumAttributes
		if numAttributes < 0 || numAttributes > MaxObjectAttributes {
			return invalidArgumentf("object %d: number of attributes %d is out of range [0, %d]", i, numAttributes, MaxObjectAttributes)
		}
	}
	return nil
}
