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

package masks

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/darkroom"
)

func ids(entries []GroupEntry) []int {
	var res []int
	for _, e := range entries {
		res = append(res, e.FormID)
	}
	return res
}

func TestAppendStates(t *testing.T) {
	r := NewRegistry()
	grp := r.Create("group", &Group{})
	a := r.Create("a", &Circle{Center: vec.Vec2{X: 0.5, Y: 0.5}, Radius: 0.1})
	b := r.Create("b", &Circle{Center: vec.Vec2{X: 0.2, Y: 0.5}, Radius: 0.1})
	b.Opacity = 0.25

	e, err := r.Append(grp, a)
	if err != nil {
		t.Fatal(err)
	}
	if e.State != StateUse|StateShow {
		t.Errorf("first entry: state %d", e.State)
	}
	if e.Opacity != 1 || e.ParentID != grp.ID {
		t.Errorf("first entry: %+v", *e)
	}

	e, err = r.Append(grp, b)
	if err != nil {
		t.Fatal(err)
	}
	if e.State != StateUse|StateShow|StateUnion {
		t.Errorf("second entry: state %d", e.State)
	}
	if e.Opacity != 0.25 {
		t.Errorf("second entry: opacity %g", e.Opacity)
	}

	if _, err := r.Append(a, b); !errors.Is(err, darkroom.ErrMalformedShape) {
		t.Errorf("append to circle: got %v", err)
	}
}

func TestAppendCycle(t *testing.T) {
	r := NewRegistry()
	g1 := r.Create("outer", &Group{})
	g2 := r.Create("inner", &Group{})
	g3 := r.Create("innermost", &Group{})

	if _, err := r.Append(g1, g1); !errors.Is(err, darkroom.ErrCyclicReference) {
		t.Errorf("self reference: got %v", err)
	}
	if _, err := r.Append(g1, g2); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Append(g2, g3); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Append(g3, g1); !errors.Is(err, darkroom.ErrCyclicReference) {
		t.Errorf("transitive reference: got %v", err)
	}
	if n := len(g3.Shape.(*Group).Children); n != 0 {
		t.Errorf("rejected entry was stored, %d children", n)
	}
}

func TestUngroup(t *testing.T) {
	r := NewRegistry()
	circle := func(name string) *Form {
		return r.Create(name, &Circle{Radius: 0.1})
	}
	a, b, c, d := circle("a"), circle("b"), circle("c"), circle("d")
	outer := r.Create("outer", &Group{})
	inner := r.Create("inner", &Group{})

	for _, f := range []*Form{b, c} {
		if _, err := r.Append(inner, f); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range []*Form{a, inner, d} {
		if _, err := r.Append(outer, f); err != nil {
			t.Fatal(err)
		}
	}
	// entries for unknown forms are dropped
	g := outer.Shape.(*Group)
	g.Children = append(g.Children, GroupEntry{FormID: -7, State: StateUse})

	got := ids(r.Ungroup(outer))
	want := []int{a.ID, b.ID, c.ID, d.ID}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("ungroup (-want +got):\n%s", d)
	}
}

func TestRemoveMove(t *testing.T) {
	r := NewRegistry()
	grp := r.Create("group", &Group{})
	var forms []*Form
	for range 3 {
		f := r.Create("", &Circle{Radius: 0.1})
		if _, err := r.Append(grp, f); err != nil {
			t.Fatal(err)
		}
		forms = append(forms, f)
	}
	g := grp.Shape.(*Group)

	r.Move(grp, forms[0].ID, true)
	want := []int{forms[1].ID, forms[0].ID, forms[2].ID}
	if d := cmp.Diff(want, ids(g.Children)); d != "" {
		t.Errorf("move up (-want +got):\n%s", d)
	}
	r.Move(grp, forms[1].ID, false) // already first
	if d := cmp.Diff(want, ids(g.Children)); d != "" {
		t.Errorf("move past start (-want +got):\n%s", d)
	}

	if !r.Remove(grp, forms[0].ID) {
		t.Error("entry not found")
	}
	if r.Remove(grp, forms[0].ID) {
		t.Error("entry removed twice")
	}
	want = []int{forms[1].ID, forms[2].ID}
	if d := cmp.Diff(want, ids(g.Children)); d != "" {
		t.Errorf("remove (-want +got):\n%s", d)
	}
}

func TestCollectGarbage(t *testing.T) {
	r := NewRegistry()
	grp := r.Create("group", &Group{})
	a := r.Create("a", &Circle{Radius: 0.1})
	r.Create("orphan", &Circle{Radius: 0.1})
	if _, err := r.Append(grp, a); err != nil {
		t.Fatal(err)
	}

	if n := r.CollectGarbage(grp.ID); n != 1 {
		t.Errorf("removed %d forms, want 1", n)
	}
	if r.Len() != 2 || r.Get(a.ID) == nil {
		t.Errorf("wrong forms kept: %d", r.Len())
	}
	if n := r.CollectGarbage(grp.ID); n != 0 {
		t.Errorf("second pass removed %d forms", n)
	}
}

func TestDuplicate(t *testing.T) {
	f := &Form{ID: 1, Shape: &Polygon{Nodes: []PolygonNode{
		NewPolygonNode(0.1, 0.1, 0.01),
		NewPolygonNode(0.9, 0.1, 0.01),
		NewPolygonNode(0.5, 0.9, 0.01),
	}}}
	g := f.Duplicate()
	if g.ID == f.ID {
		t.Error("duplicate kept the id")
	}
	g.Shape.(*Polygon).Nodes[0].Node.X = 0.5
	if f.Shape.(*Polygon).Nodes[0].Node.X != 0.1 {
		t.Error("duplicate shares nodes with the original")
	}

	s := ClonePoints(f.Shape)
	if d := cmp.Diff(f.Shape, s); d != "" {
		t.Errorf("clone differs (-orig +clone):\n%s", d)
	}
}
