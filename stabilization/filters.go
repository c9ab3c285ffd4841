package stabilization

import "slices"

// filterLatest computes filtered value of the latest sample. Stable entry of the attribute is not changed,
// the caller decides whether to commit the result. Kalman filter advances its own state on every call,
// that state is dropped whenever the attribute enters stabilizing.
func filterLatest(attr *Attribute, cfg *AttributeConfig, moving bool) Entry {
	latest := *attr.latest()
	switch params := cfg.Filter.(type) {
	case HysteresisParams:
		return NewEntry(
			hysteresis(attr.stableEntry.Data0, latest.Data0, params),
			hysteresis(attr.stableEntry.Data1, latest.Data1, params),
		)
	case TemporalParams:
		return NewEntry(
			temporal(attr.stableEntry.Data0, params.OldWeight, latest.Data0, params.NewWeight),
			temporal(attr.stableEntry.Data1, params.OldWeight, latest.Data1, params.NewWeight),
		)
	case AverageParams:
		return average(attr, params, moving)
	case MedianParams:
		return median(attr, params)
	case KalmanParams:
		return kalmanSmooth(attr, params)
	default:
		return NewEntry(latest.Data0, latest.Data1)
	}
}

// hysteresis applies dead zones (startA, endA] and (startB, endB] to one axis
func hysteresis(current, sample int32, params HysteresisParams) int32 {
	if sample > current {
		switch {
		case sample > params.EndB:
			return sample
		case sample > params.StartB:
			return params.StartB
		case sample > params.EndA:
			return sample
		case sample > params.StartA:
			return params.StartA
		default:
			return sample
		}
	}
	switch {
	case sample < params.StartA:
		return sample
	case sample < params.EndA:
		return params.EndA
	case sample < params.StartB:
		return sample
	case sample < params.EndB:
		return params.EndB
	default:
		return sample
	}
}

// temporal blends two values by weights. Zero weights give zero.
func temporal(old int32, oldWeight uint32, sample int32, newWeight uint32) int32 {
	weights := int64(oldWeight) + int64(newWeight)
	if weights == 0 {
		return 0
	}
	return int32((int64(sample)*int64(newWeight) + int64(old)*int64(oldWeight)) / weights)
}

// average is arithmetic mean over the most recent samples
func average(attr *Attribute, params AverageParams, moving bool) Entry {
	historyLength := params.HistoryLength
	if moving {
		historyLength = params.MovingHistoryLength
	}
	if historyLength < 2 {
		latest := attr.latest()
		return NewEntry(latest.Data0, latest.Data1)
	}
	historyLength = minInt(historyLength, attr.numEntries)
	var sumData0, sumData1 int64
	for k := 0; k < historyLength; k++ {
		entry := attr.recent(k)
		sumData0 += int64(entry.Data0)
		sumData1 += int64(entry.Data1)
	}
	return NewEntry(int32(sumData0/int64(historyLength)), int32(sumData1/int64(historyLength)))
}

// median is per-axis median over the most recent samples. Middle index is length/2 for any length.
func median(attr *Attribute, params MedianParams) Entry {
	historyLength := minInt(params.HistoryLength, attr.numEntries)
	if historyLength < 1 {
		latest := attr.latest()
		return NewEntry(latest.Data0, latest.Data1)
	}
	var data0, data1 [MaxHistory]int32
	for k := 0; k < historyLength; k++ {
		entry := attr.recent(k)
		data0[k] = entry.Data0
		data1[k] = entry.Data1
	}
	slices.Sort(data0[:historyLength])
	slices.Sort(data1[:historyLength])
	middle := historyLength / 2
	return NewEntry(data0[middle], data1[middle])
}
