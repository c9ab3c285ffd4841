// Package faces adapts face detection results to the stabilization engine.
package faces

import (
	"image"
	"math"

	"github.com/LdDl/bbox-stabilization/stabilization"
	"github.com/pkg/errors"
)

// FacialParts are optional landmarks of a face
type FacialParts struct {
	Valid    bool
	LeftEye  image.Point
	RightEye image.Point
}

// Face is a single face detection
type Face struct {
	// Detector assigned identifier, sign is ignored
	ID int32
	// Center of face box
	Center image.Point
	Width  int
	Height int
	// Detector confidence, passed through untouched
	Confidence int
	Parts      FacialParts
}

// Rect returns face box
func (f Face) Rect() image.Rectangle {
	left := f.Center.X - f.Width/2
	top := f.Center.Y - f.Height/2
	return image.Rect(left, top, left+f.Width, top+f.Height)
}

// eyeReferences returns center between eyes and distance between eyes
func (f Face) eyeReferences() (stabilization.Entry, stabilization.Entry) {
	left, right := f.Parts.LeftEye, f.Parts.RightEye
	center := stabilization.NewEntry(int32((left.X+right.X)/2), int32((left.Y+right.Y)/2))
	dx := float64(left.X - right.X)
	dy := float64(left.Y - right.Y)
	distance := int32(math.Sqrt(dx*dx + dy*dy))
	return center, stabilization.NewEntry(distance, distance)
}

// ToFrame converts faces to engine frame. Payload of every object is the index of its face in faces.
// Eye center is the position reference and distance between eyes is the size reference.
func ToFrame(faces []Face) (stabilization.Frame, error) {
	var frame stabilization.Frame
	if len(faces) > stabilization.MaxObjects {
		return frame, errors.Wrapf(stabilization.ErrInvalidArgument, "unsupported number of faces %d (max %d)", len(faces), stabilization.MaxObjects)
	}
	for i, face := range faces {
		id := face.ID
		if id < 0 {
			id = -id
		}
		obj := stabilization.NewObjectData(uint32(id), int32(face.Center.X), int32(face.Center.Y), int32(face.Width), int32(face.Height))
		obj.Payload = i
		if face.Parts.Valid {
			eyeCenter, eyeDistance := face.eyeReferences()
			obj.SetReference(stabilization.PositionIndex, eyeCenter)
			obj.SetReference(stabilization.SizeIndex, eyeDistance)
		}
		frame.Objects[i] = obj
	}
	frame.NumObjects = len(faces)
	return frame, nil
}

// FromFrame builds stabilized faces. Every output face starts as a copy of the source face referenced
// by object payload, then takes identifier and valid attributes from the frame.
func FromFrame(frame *stabilization.Frame, source []Face) ([]Face, error) {
	result := make([]Face, 0, frame.NumObjects)
	for _, obj := range frame.ObjectsSlice() {
		idx, ok := obj.Payload.(int)
		if !ok || idx < 0 || idx >= len(source) {
			return nil, errors.Wrapf(stabilization.ErrInvalidArgument, "object %d has no source face (payload %v)", obj.ID, obj.Payload)
		}
		face := source[idx]
		face.ID = int32(obj.ID)
		if position := obj.Attributes[stabilization.PositionIndex]; position.Valid {
			face.Center = image.Pt(int(position.Entry.Data0), int(position.Entry.Data1))
		}
		if size := obj.Attributes[stabilization.SizeIndex]; size.Valid {
			face.Width = int(size.Entry.Data0)
			face.Height = int(size.Entry.Data1)
		}
		result = append(result, face)
	}
	return result, nil
}
