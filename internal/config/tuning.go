package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/LdDl/bbox-stabilization/stabilization"
	"github.com/pkg/errors"
)

// Max size of tuning file
const maxFileSize = 1 * 1024 * 1024

// FilterTuning selects a filter by name and holds parameters of every filter kind.
// Only parameters of the selected filter are used.
type FilterTuning struct {
	Type string `json:"type"`

	// Temporal filter
	OldWeight uint32 `json:"old_weight,omitempty"`
	NewWeight uint32 `json:"new_weight,omitempty"`

	// Hysteresis filter
	StartA int32 `json:"start_a,omitempty"`
	EndA   int32 `json:"end_a,omitempty"`
	StartB int32 `json:"start_b,omitempty"`
	EndB   int32 `json:"end_b,omitempty"`

	// Average and median filters
	HistoryLength       int `json:"history_length,omitempty"`
	MovingHistoryLength int `json:"moving_history_length,omitempty"`

	// Kalman filter
	StdDevA float64 `json:"std_dev_a,omitempty"`
	StdDevM float64 `json:"std_dev_m,omitempty"`
}

// AttributeTuning is tuning of a single attribute
type AttributeTuning struct {
	Enable               bool         `json:"enable"`
	Mode                 string       `json:"mode"`
	MinStableState       uint32       `json:"min_stable_state"`
	StableThreshold      uint32       `json:"stable_threshold"`
	Threshold            uint32       `json:"threshold"`
	StateCount           uint32       `json:"state_count"`
	UseReference         bool         `json:"use_reference"`
	Filter               FilterTuning `json:"filter"`
	MovingThreshold      uint32       `json:"moving_threshold"`
	MovingInitStateCount uint32       `json:"moving_init_state_count"`
	MovingLinkFactor     float32      `json:"moving_link_factor"`
}

// Tuning is the root of stabilization tuning file
type Tuning struct {
	Enable       bool            `json:"enable"`
	HistoryDepth int             `json:"history_depth"`
	Position     AttributeTuning `json:"position"`
	Size         AttributeTuning `json:"size"`
}

// DefaultTuning returns tuning used for face boxes at 30 fps
func DefaultTuning() *Tuning {
	return &Tuning{
		Enable:       true,
		HistoryDepth: 8,
		Position: AttributeTuning{
			Enable:         true,
			Mode:           stabilization.ModeEqual.String(),
			MinStableState: 3,
			Threshold:      40,
			StateCount:     6,
			UseReference:   false,
			Filter: FilterTuning{
				Type:                stabilization.FilterAverage.String(),
				HistoryLength:       4,
				MovingHistoryLength: 2,
			},
			MovingThreshold:      30,
			MovingInitStateCount: 2,
			MovingLinkFactor:     1.5,
		},
		Size: AttributeTuning{
			Enable:          true,
			Mode:            stabilization.ModeWithinThreshold.String(),
			MinStableState:  3,
			StableThreshold: 6,
			Threshold:       100,
			StateCount:      6,
			UseReference:    false,
			Filter: FilterTuning{
				Type:          stabilization.FilterMedian.String(),
				HistoryLength: 5,
			},
			MovingThreshold:      30,
			MovingInitStateCount: 2,
			MovingLinkFactor:     1.5,
		},
	}
}

// LoadTuning loads tuning from a JSON file.
// The file must have .json extension and be under 1MB. Fields omitted from the file retain default values.
func LoadTuning(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, errors.Errorf("tuning file must have .json extension, got %q", ext)
	}
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "Can't stat tuning file")
	}
	if fileInfo.Size() > maxFileSize {
		return nil, errors.Errorf("tuning file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read tuning file")
	}
	return ParseTuning(data)
}

// ParseTuning parses JSON tuning on top of defaults and validates it
func ParseTuning(data []byte) (*Tuning, error) {
	tuning := DefaultTuning()
	if err := json.Unmarshal(data, tuning); err != nil {
		return nil, errors.Wrap(err, "Can't parse tuning JSON")
	}
	if err := tuning.Validate(); err != nil {
		return nil, errors.Wrap(err, "Invalid tuning")
	}
	return tuning, nil
}

// Validate checks that the tuning can be converted to engine configuration
func (t *Tuning) Validate() error {
	if t.HistoryDepth < 1 || t.HistoryDepth > stabilization.MaxHistory {
		return errors.Errorf("history_depth must be between 1 and %d, got %d", stabilization.MaxHistory, t.HistoryDepth)
	}
	if err := t.Position.validate(); err != nil {
		return errors.Wrap(err, "position")
	}
	if err := t.Size.validate(); err != nil {
		return errors.Wrap(err, "size")
	}
	return nil
}

func (a *AttributeTuning) validate() error {
	if _, err := stabilization.ParseMode(a.Mode); err != nil {
		return err
	}
	if a.MovingLinkFactor < 0 {
		return errors.Errorf("moving_link_factor must be non-negative, got %f", a.MovingLinkFactor)
	}
	_, err := a.Filter.Params()
	return err
}

// Params converts filter tuning to engine filter parameters
func (f *FilterTuning) Params() (stabilization.FilterParams, error) {
	filterType, err := stabilization.ParseFilterType(f.Type)
	if err != nil {
		return nil, err
	}
	switch filterType {
	case stabilization.FilterTemporal:
		return stabilization.TemporalParams{OldWeight: f.OldWeight, NewWeight: f.NewWeight}, nil
	case stabilization.FilterHysteresis:
		if !(f.StartA < f.EndA && f.EndA < f.StartB && f.StartB < f.EndB) {
			return nil, errors.Errorf("hysteresis breakpoints must be increasing, got %d %d %d %d", f.StartA, f.EndA, f.StartB, f.EndB)
		}
		return stabilization.HysteresisParams{StartA: f.StartA, EndA: f.EndA, StartB: f.StartB, EndB: f.EndB}, nil
	case stabilization.FilterAverage:
		if err := checkHistoryLength("history_length", f.HistoryLength); err != nil {
			return nil, err
		}
		if err := checkHistoryLength("moving_history_length", f.MovingHistoryLength); err != nil {
			return nil, err
		}
		return stabilization.AverageParams{HistoryLength: f.HistoryLength, MovingHistoryLength: f.MovingHistoryLength}, nil
	case stabilization.FilterMedian:
		if err := checkHistoryLength("history_length", f.HistoryLength); err != nil {
			return nil, err
		}
		return stabilization.MedianParams{HistoryLength: f.HistoryLength}, nil
	case stabilization.FilterKalman:
		params := stabilization.DefaultKalmanParams()
		if f.StdDevA != 0 {
			params.StdDevA = f.StdDevA
		}
		if f.StdDevM != 0 {
			params.StdDevM = f.StdDevM
		}
		if params.StdDevA < 0 || params.StdDevM < 0 {
			return nil, errors.Errorf("kalman deviations must be positive, got %f %f", params.StdDevA, params.StdDevM)
		}
		return params, nil
	default:
		return stabilization.NoFilterParams{}, nil
	}
}

func checkHistoryLength(name string, value int) error {
	if value < 0 || value > stabilization.MaxHistory {
		return errors.Errorf("%s must be between 0 and %d, got %d", name, stabilization.MaxHistory, value)
	}
	return nil
}

// ToStabilization converts tuning to engine configuration
func (t *Tuning) ToStabilization() (stabilization.Config, error) {
	cfg := stabilization.Config{
		Enable:       t.Enable,
		HistoryDepth: t.HistoryDepth,
	}
	if err := t.Validate(); err != nil {
		return cfg, err
	}
	var err error
	cfg.AttributeConfigs[stabilization.PositionIndex], err = t.Position.toStabilization()
	if err != nil {
		return cfg, errors.Wrap(err, "position")
	}
	cfg.AttributeConfigs[stabilization.SizeIndex], err = t.Size.toStabilization()
	if err != nil {
		return cfg, errors.Wrap(err, "size")
	}
	return cfg, nil
}

func (a *AttributeTuning) toStabilization() (stabilization.AttributeConfig, error) {
	mode, err := stabilization.ParseMode(a.Mode)
	if err != nil {
		return stabilization.AttributeConfig{}, err
	}
	filter, err := a.Filter.Params()
	if err != nil {
		return stabilization.AttributeConfig{}, err
	}
	return stabilization.AttributeConfig{
		Enable:               a.Enable,
		Mode:                 mode,
		MinStableState:       a.MinStableState,
		StableThreshold:      a.StableThreshold,
		Threshold:            a.Threshold,
		StateCount:           a.StateCount,
		UseReference:         a.UseReference,
		Filter:               filter,
		MovingThreshold:      a.MovingThreshold,
		MovingInitStateCount: a.MovingInitStateCount,
		MovingLinkFactor:     a.MovingLinkFactor,
	}, nil
}
