package faces

import (
	"log"

	"github.com/LdDl/bbox-stabilization/stabilization"
	"github.com/pkg/errors"
)

// Stabilizer stabilizes face results frame by frame.
// When stabilization fails or is disabled the faces are returned as is.
type Stabilizer struct {
	engine *stabilization.Engine
	// Configuration to apply before the next frame
	pending *stabilization.Config
}

// NewStabilizer creates stabilizer for frames of the given size
func NewStabilizer(cfg *stabilization.Config, frameWidth, frameHeight int) (*Stabilizer, error) {
	engine, err := stabilization.NewEngineWith(cfg, frameWidth, frameHeight)
	if err != nil {
		return nil, errors.Wrap(err, "Can't create stabilization engine")
	}
	return &Stabilizer{
		engine: engine,
	}, nil
}

// UpdateConfig schedules configuration update. It is applied on the next Stabilize call, history is kept.
func (s *Stabilizer) UpdateConfig(cfg stabilization.Config) {
	s.pending = &cfg
}

// Engine returns underlying engine
func (s *Stabilizer) Engine() *stabilization.Engine {
	return s.engine
}

// Stabilize returns stabilized faces. On failure it returns a copy of input faces together with the error.
func (s *Stabilizer) Stabilize(faces []Face) ([]Face, error) {
	if s.pending != nil {
		if err := s.engine.SetConfig(s.pending); err != nil {
			return passthrough(faces), errors.Wrap(err, "Can't apply stabilization config")
		}
		s.pending = nil
	}
	cfg := s.engine.GetConfig()
	if !cfg.Enable {
		return passthrough(faces), nil
	}
	frame, err := ToFrame(faces)
	if err != nil {
		log.Printf("Not applying stabilization: %v", err)
		return passthrough(faces), err
	}
	stabilized, err := s.engine.ExecuteStabilization(&frame)
	if err != nil {
		log.Printf("Failed in ExecuteStabilization: %v", err)
		return passthrough(faces), errors.Wrap(err, "Can't stabilize faces")
	}
	result, err := FromFrame(&stabilized, faces)
	if err != nil {
		log.Printf("Failed to convert stabilized faces: %v", err)
		return passthrough(faces), err
	}
	return result, nil
}

func passthrough(faces []Face) []Face {
	result := make([]Face, len(faces))
	copy(result, faces)
	return result
}
