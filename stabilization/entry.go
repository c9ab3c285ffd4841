package stabilization

import (
	"image"
	"math"
)

// Entry is a single 2-D attribute sample: a center point (x, y) or a size (width, height).
type Entry struct {
	Data0 int32
	Data1 int32
	// Changed is set by movement detection when the sample was classified as moving
	Changed bool
}

// NewEntry creates entry from two values
func NewEntry(data0, data1 int32) Entry {
	return Entry{
		Data0: data0,
		Data1: data1,
	}
}

// NewEntryFrom creates entry from image.Point
func NewEntryFrom(point image.Point) Entry {
	return Entry{
		Data0: int32(point.X),
		Data1: int32(point.Y),
	}
}

// Equal compares data of two entries ignoring Changed flag
func (e Entry) Equal(other Entry) bool {
	return e.Data0 == other.Data0 && e.Data1 == other.Data1
}

// Point is an attribute sample together with its validity flag
type Point struct {
	Valid bool
	Entry Entry
}

// NewPoint creates valid point
func NewPoint(data0, data1 int32) Point {
	return Point{
		Valid: true,
		Entry: NewEntry(data0, data1),
	}
}

// Rectangle is an integer bounding box described by its top-left corner and size
type Rectangle struct {
	Left   int32
	Top    int32
	Width  int32
	Height int32
}

// NewRectFrom creates Rectangle from image.Rectangle
func NewRectFrom(rect image.Rectangle) Rectangle {
	return Rectangle{
		Left:   int32(rect.Min.X),
		Top:    int32(rect.Min.Y),
		Width:  int32(rect.Dx()),
		Height: int32(rect.Dy()),
	}
}

// RectFromCenter builds rectangle from center and size entries
func RectFromCenter(center, size Entry) Rectangle {
	return Rectangle{
		Left:   center.Data0 - size.Data0/2,
		Top:    center.Data1 - size.Data1/2,
		Width:  size.Data0,
		Height: size.Data1,
	}
}

// Center returns rectangle's center entry
func (r Rectangle) Center() Entry {
	return NewEntry(r.Left+r.Width/2, r.Top+r.Height/2)
}

// Size returns rectangle's size entry
func (r Rectangle) Size() Entry {
	return NewEntry(r.Width, r.Height)
}

// ImageRect converts rectangle to image.Rectangle
func (r Rectangle) ImageRect() image.Rectangle {
	return image.Rect(int(r.Left), int(r.Top), int(r.Left+r.Width), int(r.Top+r.Height))
}

func euclideanDistance(p1, p2 Entry) float64 {
	d0 := float64(p1.Data0) - float64(p2.Data0)
	d1 := float64(p1.Data1) - float64(p2.Data1)
	return math.Sqrt(d0*d0 + d1*d1)
}
