package stabilization

// objectPosition is relation of a frame object to a tracked object
type objectPosition uint8

const (
	positionSame objectPosition = iota
	positionBefore
	positionAfter
)

func (p objectPosition) String() string {
	switch p {
	case positionSame:
		return "same"
	case positionBefore:
		return "before"
	default:
		return "after"
	}
}

// checkObject classifies frame object against tracked one. Objects without identifier match
// when their centers are closer than the smaller size in both axes. Identified objects are
// ordered by identifier, the rest by position.
func checkObject(tracked *TrackedObject, obj *ObjectData) objectPosition {
	trackedSize := tracked.Attributes[SizeIndex].stableEntry
	currentSize := obj.Attributes[SizeIndex].Entry
	thresholdX := int64(minInt32(trackedSize.Data0, currentSize.Data0))
	thresholdY := int64(minInt32(trackedSize.Data1, currentSize.Data1))

	trackedCenter := tracked.Attributes[PositionIndex].stableEntry
	currentCenter := obj.Attributes[PositionIndex].Entry
	deltaX := absInt64(int64(trackedCenter.Data0) - int64(currentCenter.Data0))
	deltaY := absInt64(int64(trackedCenter.Data1) - int64(currentCenter.Data1))

	switch {
	case (obj.ID == 0 || tracked.ID == 0) && deltaX < thresholdX && deltaY < thresholdY:
		return positionSame
	case obj.ID != 0 && tracked.ID != 0:
		// Same order as the frame sort uses for identified objects
		if obj.ID == tracked.ID {
			return positionSame
		}
		if obj.ID < tracked.ID {
			return positionBefore
		}
		return positionAfter
	case trackedCenter.Data1 > currentCenter.Data1 || (trackedCenter.Data1 == currentCenter.Data1 && trackedCenter.Data0 > currentCenter.Data0):
		return positionBefore
	default:
		return positionAfter
	}
}

// matchObjects aligns history with sorted frame objects, so history.Objects[i] tracks frame.Objects[i]
func (e *Engine) matchObjects(frame *Frame) {
	h := &e.history
	i, j := 0, 0
	for i < frame.NumObjects {
		obj := &frame.Objects[i]
		if j >= h.NumObjects {
			h.NumObjects++
			e.initObjectEntry(&h.Objects[j], obj)
			i++
			j++
			continue
		}
		position := checkObject(&h.Objects[j], obj)
		if debugEnabled {
			debugf("Stabilization match frame object %d (id %d) with tracked %d (id %d): %s", i, obj.ID, j, h.Objects[j].ID, position)
		}
		switch position {
		case positionSame:
			e.addObjectEntry(&h.Objects[j], obj)
			i++
			j++
		case positionBefore:
			h.insertAt(j)
			e.initObjectEntry(&h.Objects[j], obj)
			i++
			j++
		default:
			h.removeAt(j)
		}
	}
	// Objects no longer reported are forgotten
	h.truncate(frame.NumObjects)
}

// initObjectEntry starts tracking of a new object
func (e *Engine) initObjectEntry(tracked *TrackedObject, obj *ObjectData) {
	*tracked = TrackedObject{}
	for j := 0; j < obj.NumAttributes; j++ {
		tracked.Attributes[j].maxStateCount = e.config.AttributeConfigs[j].StateCount
	}
	e.addObjectEntry(tracked, obj)
}

// addObjectEntry appends frame samples to the tracked object. The first sample of an attribute
// becomes its stable entry, disabled attributes follow raw samples.
func (e *Engine) addObjectEntry(tracked *TrackedObject, obj *ObjectData) {
	tracked.ID = obj.ID
	tracked.Payload = obj.Payload
	tracked.NumAttributes = obj.NumAttributes
	for j := 0; j < obj.NumAttributes; j++ {
		attr := &tracked.Attributes[j]
		sample := NewEntry(obj.Attributes[j].Entry.Data0, obj.Attributes[j].Entry.Data1)
		if !e.config.AttributeConfigs[j].Enable {
			attr.stableEntry = sample
			continue
		}
		attr.push(sample, e.config.HistoryDepth)
		if attr.numEntries == 1 {
			attr.stableEntry = sample
		}
	}
}
