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

// Command genpdf generates outline reference images for the mask test
// cases. It draws the shape boundaries and feather rings of each case
// into a PDF and renders it to PNG using Ghostscript.
package main

import (
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/graphics/color"

	"seehuhn.de/go/darkroom/testcases"
)

const refDir = "testdata/outlines"

func main() {
	if err := os.MkdirAll(refDir, 0755); err != nil {
		panic(err)
	}

	for _, category := range slices.Sorted(maps.Keys(testcases.All)) {
		for _, tc := range testcases.All[category] {
			name := category + "_" + tc.Name
			pdfPath := filepath.Join(refDir, name+".pdf")
			pngPath := filepath.Join(refDir, name+".png")

			if err := generatePDF(&tc, pdfPath); err != nil {
				panic(fmt.Errorf("%s: %w", name, err))
			}
			if err := renderPNG(pdfPath, pngPath); err != nil {
				panic(fmt.Errorf("%s: %w", name, err))
			}
		}
	}
}

func generatePDF(tc *testcases.TestCase, pdfPath string) error {
	p, f := tc.Setup()
	geoms, err := testcases.Outlines(p, f)
	if err != nil {
		return err
	}

	// Page size in points (1 point = 1 pixel at 72 DPI)
	paper := &pdf.Rectangle{
		URx: float64(tc.Width),
		URy: float64(tc.Height),
	}
	page, err := document.CreateSinglePage(pdfPath, paper, pdf.V1_7, nil)
	if err != nil {
		return err
	}

	page.SetFillColor(color.DeviceGray(0))
	page.Rectangle(0, 0, float64(tc.Width), float64(tc.Height))
	page.Fill()

	// PDF origin is bottom-left, mask coordinates are top-left.
	page.Transform(matrix.Matrix{1, 0, 0, -1, 0, float64(tc.Height)})

	drawPath := func(d *path.Data) {
		k := 0
		for _, cmd := range d.Cmds {
			switch cmd {
			case path.CmdMoveTo:
				page.MoveTo(d.Coords[k].X, d.Coords[k].Y)
				k++
			case path.CmdLineTo:
				page.LineTo(d.Coords[k].X, d.Coords[k].Y)
				k++
			case path.CmdQuadTo:
				k += 2 // not produced by Geometry.Path
			case path.CmdCubeTo:
				c := d.Coords[k : k+3]
				page.CurveTo(c[0].X, c[0].Y, c[1].X, c[1].Y, c[2].X, c[2].Y)
				k += 3
			case path.CmdClose:
				page.ClosePath()
			}
		}
	}

	// Shape interiors are white. Feather rings get a dashed grey line.
	for _, g := range geoms {
		if !g.Open {
			page.SetFillColor(color.DeviceGray(1))
			drawPath(g.Path(false))
			page.Fill()
		} else {
			page.SetStrokeColor(color.DeviceGray(1))
			page.SetLineWidth(1)
			drawPath(g.Path(false))
			page.Stroke()
		}
		if len(g.Border) > 0 {
			page.SetStrokeColor(color.DeviceGray(0.5))
			page.SetLineWidth(1)
			page.SetLineDash([]float64{2, 2}, 0)
			drawPath(g.Path(true))
			page.Stroke()
			page.SetLineDash(nil, 0)
		}
	}

	return page.Close()
}

func renderPNG(pdfPath, pngPath string) error {
	// -sDEVICE=pnggray: 8-bit grayscale
	// -r72: 72 DPI (1 point = 1 pixel)
	// -dGraphicsAlphaBits=4: 4x supersampling for anti-aliasing
	cmd := exec.Command(
		"gs", "-q",
		"-sDEVICE=pnggray",
		"-r72",
		"-dGraphicsAlphaBits=4",
		"-o", pngPath,
		pdfPath,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
