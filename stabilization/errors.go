package stabilization

import (
	"github.com/pkg/errors"
)

// ErrInvalidArgument is returned for nil configuration and counts exceeding fixed capacities
var ErrInvalidArgument = errors.New("invalid argument")

func invalidArgumentf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}
