package physics

import (
	"errors"
	"fmt"
)

// ErrInvalidShape is matched by every *InvalidShapeError.
var ErrInvalidShape = errors.New("invalid shape")

// InvalidShapeError reports a body spec the engine cannot build.
type InvalidShapeError struct {
	Shape  ShapeKind
	Reason string
}

func (e *InvalidShapeError) Error() string {
	return fmt.Sprintf("invalid %q shape: %s", string(e.Shape), e.Reason)
}

func (e *InvalidShapeError) Is(target error) bool {
	return target == ErrInvalidShape
}

func invalidShape(kind ShapeKind, format string, args ...any) error {
	return &InvalidShapeError{Shape: kind, Reason: fmt.Sprintf(format, args...)}
}
