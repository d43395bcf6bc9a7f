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
	"errors"
	"maps"
	"regexp"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/darkroom"
)

var validName = regexp.MustCompile(`^[a-z_]+$`)

func TestNames(t *testing.T) {
	seen := map[string]bool{}
	for _, category := range slices.Sorted(maps.Keys(All)) {
		if !validName.MatchString(category) {
			t.Errorf("invalid category name %q", category)
		}
		for _, tc := range All[category] {
			name := category + "_" + tc.Name
			if !validName.MatchString(tc.Name) {
				t.Errorf("invalid test case name %q", name)
			}
			if seen[name] {
				t.Errorf("duplicate test case %q", name)
			}
			seen[name] = true
		}
	}
}

// TestRange renders every case and checks that the mask is in [0, 1],
// that something is covered, and that rendering is deterministic.
func TestRange(t *testing.T) {
	ctx := context.Background()
	for _, category := range slices.Sorted(maps.Keys(All)) {
		for _, tc := range All[category] {
			t.Run(category+"_"+tc.Name, func(t *testing.T) {
				out, err := tc.Render(ctx)
				var degenerate *darkroom.GeometryDegenerateError
				if err != nil && !errors.As(err, &degenerate) {
					t.Fatal(err)
				}

				var total float64
				for i, v := range out {
					if !(v >= 0 && v <= 1) {
						t.Fatalf("pixel (%d,%d) = %g, outside [0, 1]",
							i%tc.Width, i/tc.Width, v)
					}
					total += float64(v)
				}
				if total == 0 {
					t.Error("empty mask")
				}
				if total == float64(len(out)) {
					t.Error("mask covers the whole image")
				}

				again, _ := tc.Render(ctx)
				if d := cmp.Diff(out, again); d != "" {
					t.Errorf("rendering is not deterministic (-first +second):\n%s", d)
				}
			})
		}
	}
}

func TestSetupIndependent(t *testing.T) {
	tc := groupCases[0]
	p1, f1 := tc.Setup()
	p2, f2 := tc.Setup()
	if p1.Forms == p2.Forms {
		t.Fatal("pipes share a registry")
	}
	if f1.ID == f2.ID {
		t.Errorf("forms share id %d", f1.ID)
	}
}

func TestOutlines(t *testing.T) {
	for _, category := range slices.Sorted(maps.Keys(All)) {
		for _, tc := range All[category] {
			p, f := tc.Setup()
			geoms, err := Outlines(p, f)
			if err != nil {
				t.Errorf("%s_%s: %v", category, tc.Name, err)
				continue
			}
			if len(geoms) == 0 {
				t.Errorf("%s_%s: no outlines", category, tc.Name)
			}
			for _, g := range geoms {
				if g.NumPoints() < 2 {
					t.Errorf("%s_%s: outline with %d points", category, tc.Name, g.NumPoints())
				}
			}
		}
	}
}
