package stabilization

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	// MaxHistory is max number of samples kept per attribute
	MaxHistory = 10
	// MaxObjectAttributes is max number of attributes per object
	MaxObjectAttributes = 10
	// MaxObjects is max number of objects per frame and in history
	MaxObjects = 10
)

const (
	// PositionIndex is reserved for object's center position
	PositionIndex = iota
	// SizeIndex is reserved for object's size
	SizeIndex
	// UnreservedIndex is the first index free for extra attributes
	UnreservedIndex
)

// Mode defines when an attribute in Stabilizing state is considered stable again
type Mode uint16

const (
	// ModeEqual marks values stable when two consecutive values are equal
	ModeEqual Mode = iota
	// ModeSmaller marks values stable when new values are bigger than the stable ones
	ModeSmaller
	// ModeBigger marks values stable when new values are smaller than the stable ones
	ModeBigger
	// ModeCloserToReference marks values stable when the stable value is closer to the reference
	ModeCloserToReference
	// ModeContinuousEqual is ModeEqual working in continuous mode
	ModeContinuousEqual
	// ModeContinuousSmaller is ModeSmaller working in continuous mode
	ModeContinuousSmaller
	// ModeContinuousBigger is ModeBigger working in continuous mode
	ModeContinuousBigger
	// ModeContinuousCloserToReference is ModeCloserToReference working in continuous mode
	ModeContinuousCloserToReference
	// ModeWithinThreshold marks values stable when they are within threshold
	ModeWithinThreshold
)

var modeNames = [...]string{
	ModeEqual:                       "equal",
	ModeSmaller:                     "smaller",
	ModeBigger:                      "bigger",
	ModeCloserToReference:           "closer_to_reference",
	ModeContinuousEqual:             "continuous_equal",
	ModeContinuousSmaller:           "continuous_smaller",
	ModeContinuousBigger:            "continuous_bigger",
	ModeContinuousCloserToReference: "continuous_closer_to_reference",
	ModeWithinThreshold:             "within_threshold",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uint16(m))
}

// IsContinuous returns true when filter re-applies every frame for the mode
func (m Mode) IsContinuous() bool {
	switch m {
	case ModeContinuousEqual, ModeContinuousSmaller, ModeContinuousBigger, ModeContinuousCloserToReference:
		return true
	default:
		return false
	}
}

// ParseMode returns Mode for its name
func ParseMode(name string) (Mode, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for i, modeName := range modeNames {
		if modeName == normalized {
			return Mode(i), nil
		}
	}
	return 0, errors.Errorf("unknown stabilization mode %q", name)
}

// FilterType is for selecting the smoothing filter
type FilterType uint16

const (
	// FilterNone takes the latest sample as is
	FilterNone FilterType = iota
	// FilterTemporal blends stable value and latest sample with weights
	FilterTemporal
	// FilterHysteresis applies two dead zones per axis
	FilterHysteresis
	// FilterAverage is arithmetic mean over recent samples
	FilterAverage
	// FilterMedian is per-axis median over recent samples
	FilterMedian
	// FilterKalman smooths samples with constant velocity Kalman filter
	FilterKalman
)

var filterNames = [...]string{
	FilterNone:       "none",
	FilterTemporal:   "temporal",
	FilterHysteresis: "hysteresis",
	FilterAverage:    "average",
	FilterMedian:     "median",
	FilterKalman:     "kalman",
}

func (f FilterType) String() string {
	if int(f) < len(filterNames) {
		return filterNames[f]
	}
	return fmt.Sprintf("filter(%d)", uint16(f))
}

// ParseFilterType returns FilterType for its name
func ParseFilterType(name string) (FilterType, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for i, filterName := range filterNames {
		if filterName == normalized {
			return FilterType(i), nil
		}
	}
	return 0, errors.Errorf("unknown stabilization filter %q", name)
}

// FilterParams is parameter block of a filter. Concrete type selects the filter.
type FilterParams interface {
	FilterType() FilterType
}

// NoFilterParams selects FilterNone
type NoFilterParams struct{}

// FilterType implements FilterParams
func (NoFilterParams) FilterType() FilterType { return FilterNone }

// TemporalParams are weights of temporal filter
type TemporalParams struct {
	// Weight of the current stable value
	OldWeight uint32
	// Weight of the latest sample
	NewWeight uint32
}

// FilterType implements FilterParams
func (TemporalParams) FilterType() FilterType { return FilterTemporal }

// HysteresisParams are zone breakpoints, StartA < EndA < StartB < EndB
type HysteresisParams struct {
	StartA int32
	EndA   int32
	StartB int32
	EndB   int32
}

// FilterType implements FilterParams
func (HysteresisParams) FilterType() FilterType { return FilterHysteresis }

// AverageParams are window lengths of average filter
type AverageParams struct {
	// History length of the filter
	HistoryLength int
	// History length of the filter when object is moving
	MovingHistoryLength int
}

// FilterType implements FilterParams
func (AverageParams) FilterType() FilterType { return FilterAverage }

// MedianParams is window length of median filter
type MedianParams struct {
	HistoryLength int
}

// FilterType implements FilterParams
func (MedianParams) FilterType() FilterType { return FilterMedian }

// KalmanParams are noise parameters of Kalman filter
type KalmanParams struct {
	// Standard deviation of acceleration (process noise)
	StdDevA float64
	// Standard deviation of measurement
	StdDevM float64
}

// FilterType implements FilterParams
func (KalmanParams) FilterType() FilterType { return FilterKalman }

// DefaultKalmanParams returns noise parameters trusting measurements much more than motion model
func DefaultKalmanParams() KalmanParams {
	return KalmanParams{
		StdDevA: 2.0,
		StdDevM: 0.1,
	}
}

// AttributeConfig holds tuning parameters of a single attribute
type AttributeConfig struct {
	// Enable stabilization for the attribute
	Enable bool
	// Mode of stabilization
	Mode Mode
	// Minimum state count needed to go to stable state
	MinStableState uint32
	// Threshold used by ModeWithinThreshold to go into stable state
	StableThreshold uint32
	// Within threshold new values will not be accepted (per mille of size)
	Threshold uint32
	// Number of frames allowed in unstable state before stabilizing
	StateCount uint32
	// Derive thresholds from the frame reference instead of history
	UseReference bool
	// Filter parameters, concrete type selects the filter. Nil means FilterNone
	Filter FilterParams
	// Within threshold object is not moving (per mille of size)
	MovingThreshold uint32
	// State count for moving object during stabilizing state
	MovingInitStateCount uint32
	// Factor to determine moving object with previous 2 samples
	MovingLinkFactor float32
}

// FilterType returns type of the configured filter
func (cfg AttributeConfig) FilterType() FilterType {
	if cfg.Filter == nil {
		return FilterNone
	}
	return cfg.Filter.FilterType()
}

// Config is stabilization configuration
type Config struct {
	// Enable stabilization. Disabled engine passes frames through
	Enable bool
	// Depth of historical data, 1..MaxHistory
	HistoryDepth int
	// Per attribute configuration
	AttributeConfigs [MaxObjectAttributes]AttributeConfig
}

// Validate checks capacity limits of configuration
func (cfg *Config) Validate() error {
	if cfg.HistoryDepth < 1 || cfg.HistoryDepth > MaxHistory {
		return invalidArgumentf("history depth %d is out of range [1, %d]", cfg.HistoryDepth, MaxHistory)
	}
	return nil
}
