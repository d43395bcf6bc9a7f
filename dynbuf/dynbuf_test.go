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

package dynbuf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAppend(t *testing.T) {
	b := New("test", 2)
	for i := range 10 {
		if !b.Add2(float32(i), float32(-i)) {
			t.Fatal("Add2 failed")
		}
	}
	if b.Pos() != 20 {
		t.Fatalf("Pos() = %d, want 20", b.Pos())
	}
	if b.Cap() < 20 {
		t.Errorf("Cap() = %d, too small", b.Cap())
	}
	if got := b.Get(-2); got != 9 {
		t.Errorf("Get(-2) = %g, want 9", got)
	}
	if got := b.Get(-1); got != -9 {
		t.Errorf("Get(-1) = %g, want -9", got)
	}
	b.Set(-1, 42)
	if got := b.Get(-1); got != 42 {
		t.Errorf("Get(-1) after Set = %g", got)
	}
}

func TestReserve(t *testing.T) {
	b := New("test", 0)
	w := b.Reserve(3)
	if len(w) != 3 {
		t.Fatalf("len(Reserve(3)) = %d", len(w))
	}
	w[0], w[1], w[2] = 1, 2, 3
	b.AddZeros(2)
	b.Add(7)

	want := []float32{1, 2, 3, 0, 0, 7}
	if d := cmp.Diff(want, b.Values()); d != "" {
		t.Errorf("contents (-want +got):\n%s", d)
	}
}

func TestHarvest(t *testing.T) {
	b := New("test", 4)
	b.Add2(1, 2)
	b.Add2(3, 4)
	got := b.Harvest()
	if d := cmp.Diff([]float32{1, 2, 3, 4}, got); d != "" {
		t.Errorf("harvest (-want +got):\n%s", d)
	}
	if b.Pos() != 0 || b.Cap() != 0 {
		t.Errorf("buffer not empty after harvest: pos=%d cap=%d", b.Pos(), b.Cap())
	}

	// the buffer stays usable
	b.Add2(5, 6)
	if d := cmp.Diff([]float32{5, 6}, b.Values()); d != "" {
		t.Errorf("reuse (-want +got):\n%s", d)
	}
	// and the harvested values are not affected
	if got[0] != 1 {
		t.Errorf("harvested slice modified: %v", got)
	}
}

func TestLimit(t *testing.T) {
	b := New("test", 4)
	b.SetLimit(8)
	if b.Reserve(6) == nil {
		t.Fatal("Reserve(6) failed below the limit")
	}
	if w := b.Reserve(4); w != nil {
		t.Errorf("Reserve beyond the limit returned %d values", len(w))
	}
	if b.Pos() != 6 {
		t.Errorf("failed reserve changed Pos() to %d", b.Pos())
	}
	if b.Add2(1, 2) != true {
		t.Error("Add2 within the limit failed")
	}
}

func TestReset(t *testing.T) {
	b := New("test", 4)
	b.Add2(1, 2)
	c := b.Cap()
	b.Reset()
	if b.Pos() != 0 || b.Cap() != c {
		t.Errorf("Reset: pos=%d cap=%d (was %d)", b.Pos(), b.Cap(), c)
	}
}
