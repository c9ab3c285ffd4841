package stabilization

// clampToFrame shrinks object's box so it lies inside [0, frameWidth] x [0, frameHeight]
// and recomputes its center from the clamped box
func clampToFrame(obj *ObjectData, frameWidth, frameHeight int32) {
	if obj.NumAttributes <= SizeIndex {
		return
	}
	center := &obj.Attributes[PositionIndex].Entry
	size := &obj.Attributes[SizeIndex].Entry

	left, width := clampSpan(center.Data0-size.Data0/2, size.Data0, frameWidth)
	top, height := clampSpan(center.Data1-size.Data1/2, size.Data1, frameHeight)

	size.Data0 = width
	size.Data1 = height
	center.Data0 = left + width/2
	center.Data1 = top + height/2
}

// clampSpan clamps 1-D segment [start, start+length] to [0, limit]
func clampSpan(start, length, limit int32) (int32, int32) {
	if start < 0 {
		length += start
		start = 0
	}
	if start > limit {
		start = limit
	}
	if start+length > limit {
		length = limit - start
	}
	if length < 0 {
		length = 0
	}
	return start, length
}
