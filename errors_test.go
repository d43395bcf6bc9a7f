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
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err    error
		target error
	}{
		{&AllocationError{Size: 100}, ErrAllocationFailed},
		{&MalformedShapeError{ID: 3, Reason: "too few nodes"}, ErrMalformedShape},
		{&GeometryDegenerateError{ID: 4, Segment: 1}, ErrGeometryDegenerate},
		{fmt.Errorf("kernel: %w", &AllocationError{Size: 1}), ErrAllocationFailed},
	}
	for _, c := range cases {
		if !errors.Is(c.err, c.target) {
			t.Errorf("%v does not match %v", c.err, c.target)
		}
		if errors.Is(c.err, ErrCyclicReference) {
			t.Errorf("%v unexpectedly matches ErrCyclicReference", c.err)
		}
	}

	var ae *AllocationError
	if !errors.As(fmt.Errorf("x: %w", &AllocationError{Size: 7}), &ae) || ae.Size != 7 {
		t.Errorf("errors.As failed, got %v", ae)
	}
}

func TestLogger(t *testing.T) {
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger should be silent")
	}

	buf := &bytes.Buffer{}
	SetLogger(slog.New(slog.NewTextHandler(buf, nil)))
	defer SetLogger(nil)

	Logger().Info("hello", "n", 1)
	if !bytes.Contains(buf.Bytes(), []byte("hello")) {
		t.Errorf("message not logged: %q", buf.String())
	}

	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should restore the silent logger")
	}
}

func TestROI(t *testing.T) {
	r := Full(10, 20)
	if r.Size() != 200 || r.Empty() || r.Scale != 1 {
		t.Errorf("unexpected ROI %+v", r)
	}
	if !(ROI{Width: 0, Height: 5}).Empty() {
		t.Error("zero width ROI should be empty")
	}
}
