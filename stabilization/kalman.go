package stabilization

import (
	"math"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// newAttributeKalman creates 2D Kalman filter seeded with the entry
func newAttributeKalman(seed Entry, params KalmanParams) *kalman_filter.Kalman2D {
	// Kalman filter props
	dt := 1.0
	ux := 0.0
	uy := 0.0
	return kalman_filter.NewKalman2D(
		dt, ux, uy,
		params.StdDevA, params.StdDevM, params.StdDevM,
		kalman_filter.WithState2D(float64(seed.Data0), float64(seed.Data1)),
	)
}

// kalmanSmooth executes predict and update steps with the latest sample.
// The filter is created on first use, starting from the current stable entry. Every call moves
// the filter state even when the result is not committed.
func kalmanSmooth(attr *Attribute, params KalmanParams) Entry {
	latest := attr.latest()
	if attr.kalman == nil {
		attr.kalman = newAttributeKalman(attr.stableEntry, params)
	}
	attr.kalman.Predict()
	err := attr.kalman.Update(float64(latest.Data0), float64(latest.Data1))
	if err != nil {
		Logf("%v", errors.Wrap(err, "Can't update attribute tracker, falling back to raw sample"))
		attr.kalman = nil
		return NewEntry(latest.Data0, latest.Data1)
	}
	stateX, stateY := attr.kalman.GetState()
	return NewEntry(int32(math.Round(stateX)), int32(math.Round(stateY)))
}
