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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"maps"
	"math"
	"os"
	"slices"
	"strings"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/pdf/graphics"

	"seehuhn.de/go/darkroom"
	"seehuhn.de/go/darkroom/masks"
	"seehuhn.de/go/darkroom/raster"
	"seehuhn.de/go/darkroom/testcases"
)

func runMask(args []string) error {
	fs := flag.NewFlagSet("mask", flag.ExitOnError)
	out := fs.String("o", "", "output PNG file (required)")
	overlay := fs.Bool("overlay", false, "draw the shape outlines on top of the mask")
	coverage := fs.Bool("coverage", false, "fill polygons with anti-aliased coverage")
	list := fs.Bool("list", false, "list the available cases and exit")
	verbose := fs.Bool("v", false, "verbose output")
	fs.Parse(args)

	if *list {
		for _, name := range caseNames() {
			fmt.Println(name)
		}
		return nil
	}
	if *out == "" || fs.NArg() != 1 {
		fs.Usage()
		return errors.New("need one case name and -o")
	}
	setupLogging(*verbose)

	tc, ok := findCase(fs.Arg(0))
	if !ok {
		return fmt.Errorf("unknown case %q, use -list to see all cases", fs.Arg(0))
	}
	if *coverage {
		tc.Fill = masks.FillCoverage
	}

	p, f := tc.Setup()
	roi := darkroom.Full(tc.Width, tc.Height)
	canvas := raster.NewCanvas(tc.Width, tc.Height)
	err := masks.Mask(context.Background(), f, p, roi, canvas.Pix)
	var degenerate *darkroom.GeometryDegenerateError
	if errors.As(err, &degenerate) {
		darkroom.Logger().Warn("mask rendered with degenerate geometry", "error", err)
	} else if err != nil {
		return err
	}

	if *overlay {
		if err := drawOutlines(canvas, p, f); err != nil {
			return err
		}
	}
	return writeGrey(*out, canvas)
}

// drawOutlines strokes the boundary of every shape in white and the outer
// edge of its feather in mid grey.
func drawOutlines(c *raster.Canvas, p *masks.Pipe, f *masks.Form) error {
	geoms, err := testcases.Outlines(p, f)
	if err != nil {
		return err
	}

	r := raster.NewRasteriser(rect.Rect{URx: float64(c.Width), URy: float64(c.Height)})
	r.Width = 1
	r.Join = graphics.LineJoinRound
	for _, g := range geoms {
		for _, ring := range splitNaN(g.Border) {
			r.StrokeXY(ring, !g.Open, c.Over(0.5))
		}
		for _, ring := range splitNaN(g.Points) {
			r.StrokeXY(ring, !g.Open, c.Over(1))
		}
	}
	return nil
}

// splitNaN cuts interleaved coordinates at NaN pairs.
func splitNaN(xy []float32) [][]float32 {
	var res [][]float32
	start := 0
	for i := 0; i+1 < len(xy); i += 2 {
		if math.IsNaN(float64(xy[i])) || math.IsNaN(float64(xy[i+1])) {
			if i > start {
				res = append(res, xy[start:i])
			}
			start = i + 2
		}
	}
	if start < len(xy) {
		res = append(res, xy[start:])
	}
	return res
}

func writeGrey(fname string, c *raster.Canvas) error {
	img := image.NewGray16(image.Rect(0, 0, c.Width, c.Height))
	for y := range c.Height {
		for x := range c.Width {
			img.SetGray16(x, y, color.Gray16{Y: to16(c.Pix[y*c.Width+x])})
		}
	}

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

func caseNames() []string {
	var names []string
	for _, category := range slices.Sorted(maps.Keys(testcases.All)) {
		for _, tc := range testcases.All[category] {
			names = append(names, category+"_"+tc.Name)
		}
	}
	return names
}

func findCase(name string) (testcases.TestCase, bool) {
	for category, cases := range testcases.All {
		rest, ok := strings.CutPrefix(name, category+"_")
		if !ok {
			continue
		}
		for _, tc := range cases {
			if tc.Name == rest {
				return tc, true
			}
		}
	}
	return testcases.TestCase{}, false
}
