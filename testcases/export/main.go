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

// Command export renders all mask test cases to 16-bit greyscale PNG
// files and writes the case definitions, with their outlines, to JSON.
// Run from the module root directory.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"

	"seehuhn.de/go/geom/path"

	"seehuhn.de/go/darkroom"
	"seehuhn.de/go/darkroom/masks"
	"seehuhn.de/go/darkroom/testcases"
)

const outDir = "testdata/masks"

func main() {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		panic(err)
	}

	var out struct {
		TestCases []jsonTestCase `json:"testcases"`
	}

	ctx := context.Background()
	for _, category := range slices.Sorted(maps.Keys(testcases.All)) {
		for _, tc := range testcases.All[category] {
			name := category + "_" + tc.Name
			jtc, err := export(ctx, name, &tc)
			if err != nil {
				panic(fmt.Errorf("%s: %w", name, err))
			}
			out.TestCases = append(out.TestCases, jtc)
		}
	}

	f, err := os.Create(filepath.Join(outDir, "testcases.json"))
	if err != nil {
		panic(err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		panic(err)
	}
}

type jsonTestCase struct {
	Name     string          `json:"name"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Fill     string          `json:"fill"`
	Mean     float64         `json:"mean"`
	Warning  string          `json:"warning,omitempty"`
	Outlines [][]jsonSegment `json:"outlines"`
}

type jsonSegment struct {
	Cmd string      `json:"cmd"`
	Pts [][]float64 `json:"pts"`
}

func export(ctx context.Context, name string, tc *testcases.TestCase) (jsonTestCase, error) {
	jtc := jsonTestCase{
		Name:   name,
		Width:  tc.Width,
		Height: tc.Height,
		Fill:   "edgeflag",
	}
	if tc.Fill == masks.FillCoverage {
		jtc.Fill = "coverage"
	}

	mask, err := tc.Render(ctx)
	var degenerate *darkroom.GeometryDegenerateError
	if errors.As(err, &degenerate) {
		jtc.Warning = err.Error()
	} else if err != nil {
		return jtc, err
	}

	img := image.NewGray16(image.Rect(0, 0, tc.Width, tc.Height))
	var sum float64
	for i, v := range mask {
		sum += float64(v)
		img.SetGray16(i%tc.Width, i/tc.Width, color.Gray16{Y: uint16(math.Round(float64(v) * 65535))})
	}
	jtc.Mean = sum / float64(len(mask))

	if err := writePNG(filepath.Join(outDir, name+".png"), img); err != nil {
		return jtc, err
	}

	p, f := tc.Setup()
	geoms, err := testcases.Outlines(p, f)
	if err != nil {
		return jtc, err
	}
	for _, g := range geoms {
		jtc.Outlines = append(jtc.Outlines, pathToJSON(g.Path(false)))
	}
	return jtc, nil
}

func writePNG(fname string, img image.Image) error {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func pathToJSON(p *path.Data) []jsonSegment {
	var segs []jsonSegment
	k := 0
	for _, cmd := range p.Cmds {
		var seg jsonSegment
		n := 0
		switch cmd {
		case path.CmdMoveTo:
			seg.Cmd, n = "M", 1
		case path.CmdLineTo:
			seg.Cmd, n = "L", 1
		case path.CmdQuadTo:
			seg.Cmd, n = "Q", 2
		case path.CmdCubeTo:
			seg.Cmd, n = "C", 3
		case path.CmdClose:
			seg.Cmd = "Z"
		}
		seg.Pts = make([][]float64, n)
		for i := range n {
			pt := p.Coords[k+i]
			seg.Pts[i] = []float64{pt.X, pt.Y}
		}
		k += n
		segs = append(segs, seg)
	}
	return segs
}
