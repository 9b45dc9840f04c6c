package raster

import (
	"fmt"
	"strings"
)

// ShapeMismatchError is returned when an operation needs equal extents (or
// a usable extent) and its inputs do not have one.
type ShapeMismatchError struct {
	Op     string
	Want   Shape
	Got    Shape
	Reason string
}

func (e *ShapeMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: shape mismatch: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: shape mismatch: want %s, got %s", e.Op, e.Want, e.Got)
}

// MissingInputError is returned when a referenced band or grid is absent.
// Callers skip the unit it belongs to.
type MissingInputError struct {
	Unit  string
	Paths []string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s: missing inputs: %s", e.Unit, strings.Join(e.Paths, ", "))
}

// CheckSameShape returns a ShapeMismatchError naming op when a and b differ.
func CheckSameShape(op string, a, b *Grid) error {
	if a.SameShape(b) {
		return nil
	}
	return &ShapeMismatchError{Op: op, Want: a.Shape(), Got: b.Shape()}
}
