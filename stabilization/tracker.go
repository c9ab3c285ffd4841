package stabilization

const (
	// Ratio to divide with while calculating thresholds for ModeWithinThreshold
	withinThresholdRatio = 10
	// Part of object width treated as boundary zone at left and right frame edges
	boundaryScalingFactor = 0.7
	// Threshold cap when no size based cap applies
	maxAllowedThreshold = 0xFFFF
)

// thresholds used by the state machine of a single attribute on a single frame
type thresholds struct {
	data0  int64
	data1  int64
	moving int64
}

// referenceFor returns frame reference of the attribute when configuration asks for it
func referenceFor(obj *ObjectData, attributeIdx int, cfg *AttributeConfig) *Entry {
	if !cfg.UseReference || !obj.References[attributeIdx].Valid {
		return nil
	}
	return &obj.References[attributeIdx].Entry
}

// computeThresholds derives thresholds of attribute j from stable history, current frame or reference
func computeThresholds(tracked *TrackedObject, obj *ObjectData, attributeIdx int, cfg *AttributeConfig, reference *Entry) thresholds {
	var th thresholds
	max0, max1 := int64(maxAllowedThreshold), int64(maxAllowedThreshold)
	own := tracked.Attributes[attributeIdx].stableEntry
	switch {
	case attributeIdx == PositionIndex:
		// Position thresholds are relative to object size and never exceed the object itself
		stableSize := tracked.Attributes[SizeIndex].stableEntry
		rawSize := obj.Attributes[SizeIndex].Entry
		th.data0 = scaleThreshold(stableSize.Data0, cfg.Threshold, 1000)
		th.data1 = scaleThreshold(stableSize.Data1, cfg.Threshold, 1000)
		th.moving = scaleThreshold(stableSize.Data0, cfg.MovingThreshold, 1000)
		max0 = scaleThreshold(rawSize.Data0, cfg.Threshold, 100)
		max1 = scaleThreshold(rawSize.Data1, cfg.Threshold, 100)
	case attributeIdx == SizeIndex && reference != nil:
		th.data0 = scaleThreshold(reference.Data0, cfg.Threshold, 1000)
		th.data1 = scaleThreshold(reference.Data1, cfg.Threshold, 1000)
		th.moving = scaleThreshold(own.Data0, cfg.MovingThreshold, 1000)
	default:
		th.data0 = scaleThreshold(own.Data0, cfg.Threshold, 1000)
		th.data1 = scaleThreshold(own.Data1, cfg.Threshold, 1000)
		th.moving = scaleThreshold(own.Data0, cfg.MovingThreshold, 1000)
	}
	if th.data0 > max0 {
		th.data0 = max0
	}
	if th.data1 > max1 {
		th.data1 = max1
	}
	return th
}

// withinThreshold reports whether both axes of current differ from stable by less than thresholds
func withinThreshold(current, stable Entry, threshold0, threshold1 int64) bool {
	delta0 := int64(current.Data0) - int64(stable.Data0)
	delta1 := int64(current.Data1) - int64(stable.Data1)
	if delta0 < 0 {
		delta0 = -delta0
	}
	if delta1 < 0 {
		delta1 = -delta1
	}
	return delta0 < threshold0 && delta1 < threshold1
}

// checkObjectMovement detects consistent motion over three consecutive samples. The verdict is stored
// in current.Changed. Objects near left or right frame edge need twice the motion to count as moving.
func checkObjectMovement(current *Entry, last, lastLast, stableSize Entry, threshold int64, linkFactor float32, frameWidth int32) bool {
	move1 := euclideanDistance(last, lastLast)
	move2 := euclideanDistance(*current, last)
	move3 := euclideanDistance(*current, lastLast)

	factor := float64(linkFactor)
	movingThreshold := float64(threshold)
	boundary := int32(float64(stableSize.Data0) * boundaryScalingFactor)
	if current.Data0 < boundary || frameWidth-current.Data0 < boundary {
		factor *= 2
		movingThreshold *= 2
	}
	current.Changed = move3 > move1*factor && move1 > movingThreshold && move2 > movingThreshold
	if debugEnabled {
		debugf("Stabilization movement move1=%f move2=%f move3=%f threshold=%f moving=%t", move1, move2, move3, movingThreshold, current.Changed)
	}
	return current.Changed
}

// isStable is the mode specific predicate checked when leaving stabilizing state
func isStable(attr *Attribute, candidate Entry, cfg *AttributeConfig, reference *Entry, sizeAttr *Attribute) bool {
	previous := attr.stableEntry
	switch cfg.Mode {
	case ModeSmaller, ModeContinuousSmaller:
		return previous.Data0 < candidate.Data0 && previous.Data1 < candidate.Data1
	case ModeBigger, ModeContinuousBigger:
		return previous.Data0 > candidate.Data0 && previous.Data1 > candidate.Data1
	case ModeCloserToReference, ModeContinuousCloserToReference:
		if reference == nil && attr.hasReference {
			reference = &attr.referenceEntry
		}
		if reference == nil {
			return true
		}
		return squaredDistance(previous, *reference) < squaredDistance(candidate, *reference)
	case ModeWithinThreshold:
		stableSize := sizeAttr.stableEntry
		threshold0 := int64(cfg.StableThreshold)*int64(isqrt(stableSize.Data0))/withinThresholdRatio + 1
		threshold1 := int64(cfg.StableThreshold)*int64(isqrt(stableSize.Data1))/withinThresholdRatio + 1
		return withinThreshold(*attr.latest(), previous, threshold0, threshold1)
	default:
		return previous.Equal(candidate)
	}
}

func squaredDistance(a, b Entry) int64 {
	d0 := int64(a.Data0) - int64(b.Data0)
	d1 := int64(a.Data1) - int64(b.Data1)
	return d0*d0 + d1*d1
}

// trackAttribute runs one step of the attribute state machine and updates the stable entry
func (e *Engine) trackAttribute(attr *Attribute, cfg *AttributeConfig, sizeAttr *Attribute, reference *Entry, th thresholds) {
	// Movement detection needs three samples
	if attr.numEntries <= 2 {
		return
	}
	current := attr.latest()
	last := *attr.recent(1)
	lastLast := *attr.recent(2)

	// Sample came back to the stable value, nothing to do
	if !current.Equal(last) && current.Equal(attr.stableEntry) {
		return
	}

	moving := func() bool {
		return checkObjectMovement(current, last, lastLast, sizeAttr.stableEntry, th.moving, cfg.MovingLinkFactor, e.frameWidth)
	}

	previousState := attr.state
	switch attr.state {
	case StateUnstable:
		within := withinThreshold(*current, attr.stableEntry, th.data0, th.data1)
		isMoving := moving()
		switch {
		case within:
			attr.setState(StateStable)
		case isMoving:
			attr.resetFilterState()
			attr.stableEntry = filterLatest(attr, cfg, true)
			attr.setState(StateStabilizing)
		case attr.stateCount >= attr.maxStateCount:
			attr.resetFilterState()
			attr.setState(StateStabilizing)
		default:
			attr.setState(StateUnstable)
		}
	case StateStable:
		if withinThreshold(*current, attr.stableEntry, th.data0, th.data1) {
			if cfg.Mode.IsContinuous() {
				attr.stableEntry = filterLatest(attr, cfg, false)
			}
			attr.setState(StateStable)
			break
		}
		e.leaveStable(attr, cfg, moving())
	case StateStabilizing:
		isMoving := moving()
		var candidate Entry
		if cfg.Mode.IsContinuous() {
			candidate = NewEntry(current.Data0, current.Data1)
		} else {
			candidate = filterLatest(attr, cfg, isMoving)
		}
		newState := StateStabilizing
		if isMoving {
			attr.stateCount = cfg.MovingInitStateCount
		} else if attr.stateCount >= cfg.MinStableState && isStable(attr, candidate, cfg, reference, sizeAttr) {
			if reference != nil {
				attr.referenceEntry = *reference
				attr.hasReference = true
			}
			newState = StateStable
		}
		attr.stableEntry = candidate
		attr.setState(newState)
	}
	if debugEnabled && previousState != attr.state {
		debugf("Stabilization state %s -> %s, stable %d %d", previousState, attr.state, attr.stableEntry.Data0, attr.stableEntry.Data1)
	}
}

// leaveStable handles a sample outside of threshold in stable state.
// Moving object goes straight to stabilizing with filtered output, otherwise data is not trusted yet.
func (e *Engine) leaveStable(attr *Attribute, cfg *AttributeConfig, moving bool) {
	if moving {
		attr.resetFilterState()
		attr.stableEntry = filterLatest(attr, cfg, true)
		attr.setState(StateStabilizing)
		return
	}
	attr.setState(StateUnstable)
}
