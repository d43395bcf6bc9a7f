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

package testcases

import (
	"context"

	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/darkroom"
	"seehuhn.de/go/darkroom/masks"
)

// TestCase defines a single mask rendering test.
type TestCase struct {
	Name   string                          // lowercase a-z and _ only
	Width  int                             // reference image width in pixels
	Height int                             // reference image height in pixels
	Fill   masks.FillMode                  // polygon fill algorithm
	Build  func(p *masks.Pipe) *masks.Form // creates the forms, returns the one to render
}

// Setup returns a fresh pipe for the test case and the form to render.
// Every call builds new forms, so test cases can be used concurrently.
func (tc *TestCase) Setup() (*masks.Pipe, *masks.Form) {
	p := masks.NewPipe(tc.Width, tc.Height)
	p.Fill = tc.Fill
	return p, tc.Build(p)
}

// Render computes the mask of the test case over the full image.
// Degenerate geometry is reported in err together with a complete mask.
func (tc *TestCase) Render(ctx context.Context) ([]float32, error) {
	p, f := tc.Setup()
	roi := darkroom.Full(tc.Width, tc.Height)
	out := make([]float32, roi.Size())
	err := masks.Mask(ctx, f, p, roi, out)
	return out, err
}

// group creates a group form holding members, combined with the given
// operators. ops[i] applies to members[i+1]; the first member has no
// operator.
func group(p *masks.Pipe, members []*masks.Form, ops ...masks.GroupState) *masks.Form {
	grp := p.Forms.Create("group", &masks.Group{})
	for i, f := range members {
		e, err := p.Forms.Append(grp, f)
		if err != nil {
			panic(err)
		}
		if i > 0 && i-1 < len(ops) {
			e.State = masks.StateUse | masks.StateShow | ops[i-1]
		}
	}
	return grp
}

// pt is a helper to create a vec.Vec2 from x, y coordinates.
func pt(x, y float64) vec.Vec2 {
	return vec.Vec2{X: x, Y: y}
}

// Outlines returns the boundary geometry of f, or of every leaf member
// if f is a group, in pixel coordinates.
func Outlines(p *masks.Pipe, f *masks.Form) ([]*masks.Geometry, error) {
	leaves := []*masks.Form{f}
	if f.Kind() == masks.KindGroup {
		leaves = leaves[:0]
		for _, e := range p.Forms.Ungroup(f) {
			leaves = append(leaves, p.Forms.Get(e.FormID))
		}
	}

	var res []*masks.Geometry
	for _, leaf := range leaves {
		g, err := leaf.PointsBorder(p, masks.DirAll, false)
		if g == nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, nil
}
