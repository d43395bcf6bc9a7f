// seehuhn.de/go/darkroom - raw development and mask rendering
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package darkroom

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below match these through errors.Is.
var (
	ErrAllocationFailed   = errors.New("allocation failed")
	ErrCyclicReference    = errors.New("mask group would contain itself")
	ErrMalformedShape     = errors.New("malformed shape")
	ErrUnsupportedCFA     = errors.New("unsupported CFA layout")
	ErrGeometryDegenerate = errors.New("degenerate geometry")
)

// AllocationError reports a scratch buffer that could not be acquired.
// Size is the number of float32 elements requested.
type AllocationError struct {
	Size int
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation of %d floats failed", e.Size)
}

// Is makes AllocationError match ErrAllocationFailed.
func (e *AllocationError) Is(target error) bool {
	return target == ErrAllocationFailed
}

// MalformedShapeError reports a shape that cannot be rasterized, for
// example a polygon with fewer than three nodes.
type MalformedShapeError struct {
	ID     int
	Reason string
}

func (e *MalformedShapeError) Error() string {
	return fmt.Sprintf("shape %d: %s", e.ID, e.Reason)
}

// Is makes MalformedShapeError match ErrMalformedShape.
func (e *MalformedShapeError) Is(target error) bool {
	return target == ErrMalformedShape
}

// GeometryDegenerateError reports a Bézier segment whose subdivision
// produced no valid points.
type GeometryDegenerateError struct {
	ID      int
	Segment int
}

func (e *GeometryDegenerateError) Error() string {
	return fmt.Sprintf("shape %d: segment %d has no valid points", e.ID, e.Segment)
}

// Is makes GeometryDegenerateError match ErrGeometryDegenerate.
func (e *GeometryDegenerateError) Is(target error) bool {
	return target == ErrGeometryDegenerate
}
