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
	"math"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/image/tiff"

	"seehuhn.de/go/darkroom"
	"seehuhn.de/go/darkroom/cfa"
	"seehuhn.de/go/darkroom/demosaic"
)

var greenEqNames = map[string]demosaic.GreenEq{
	"no":    demosaic.GreenEqNo,
	"local": demosaic.GreenEqLocal,
	"full":  demosaic.GreenEqFull,
	"both":  demosaic.GreenEqBoth,
}

var refineNames = map[string]demosaic.Refine{
	"basic":         demosaic.RefineBasic,
	"median":        demosaic.RefineMedian,
	"triple-median": demosaic.RefineTripleMedian,
	"refine":        demosaic.RefineRefine,
	"double-refine": demosaic.RefineDoubleRefine,
}

func runDemosaic(args []string) error {
	fs := flag.NewFlagSet("demosaic", flag.ExitOnError)
	out := fs.String("o", "", "output TIFF file (required)")
	method := fs.String("method", "rcd", "demosaic method, e.g. ppg, amaze, vng4, rcd, lmmse, rcd-vng, markesteijn, fdc")
	pattern := fs.String("cfa", "RGGB", "colour filter array: a Bayer pattern like RGGB, or xtrans")
	greenEq := fs.String("greeneq", "no", "green equalization: no, local, full, both")
	refine := fs.String("refine", "median", "LMMSE refinement: basic, median, triple-median, refine, double-refine")
	median := fs.Float64("median", 0, "PPG pre-median threshold")
	dual := fs.Float64("dual", 0.2, "detail threshold of the dual methods")
	showMask := fs.Bool("showmask", false, "write the dual blend mask instead of the image")
	smoothing := fs.Int("smooth", 0, "number of colour smoothing passes (0-5)")
	iso := fs.Float64("iso", 100, "ISO of the exposure, for local green equalization")
	verbose := fs.Bool("v", false, "verbose output")
	fs.Parse(args)

	if *out == "" || fs.NArg() != 1 {
		fs.Usage()
		return errors.New("need one input file and -o")
	}
	setupLogging(*verbose)

	d, err := parseCFA(*pattern)
	if err != nil {
		return err
	}
	p := demosaic.DefaultParams()
	if p.Method, err = demosaic.ParseMethod(*method); err != nil {
		return err
	}
	var ok bool
	if p.GreenEq, ok = greenEqNames[strings.ToLower(*greenEq)]; !ok {
		return fmt.Errorf("unknown green equalization %q", *greenEq)
	}
	if p.Refine, ok = refineNames[strings.ToLower(*refine)]; !ok {
		return fmt.Errorf("unknown LMMSE refinement %q", *refine)
	}
	p.MedianThreshold = *median
	p.DualThreshold = *dual
	p.ShowMask = *showMask
	p.Smoothing = *smoothing
	p.ISO = *iso
	p.Normalize(d)

	raw, w, h, err := readMosaic(fs.Arg(0))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	roi := darkroom.Full(w, h)
	rgb := make([]float32, 4*w*h)
	start := time.Now()
	res, err := demosaic.Process(ctx, raw, rgb, roi, roi, d, p)
	if err != nil {
		return err
	}
	darkroom.Logger().Info("demosaiced",
		"method", res.Method,
		"fallback", res.Fallback,
		"tile", res.TileSize,
		"size", fmt.Sprintf("%dx%d", w, h),
		"elapsed", time.Since(start))

	return writeTIFF(*out, rgb, w, h)
}

func parseCFA(name string) (cfa.Descriptor, error) {
	if strings.EqualFold(name, "xtrans") {
		return cfa.NewXTrans(cfa.DefaultXTrans), nil
	}
	filters, err := cfa.FromPattern(name)
	if err != nil {
		return cfa.Descriptor{}, err
	}
	return cfa.NewBayer(filters), nil
}

// writeTIFF stores the first three channels of the four-channel image
// rgb as a 16-bit TIFF, clipping to [0, 1].
func writeTIFF(fname string, rgb []float32, w, h int) error {
	img := image.NewRGBA64(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			px := rgb[4*(y*w+x):]
			img.SetRGBA64(x, y, color.RGBA64{
				R: to16(px[0]),
				G: to16(px[1]),
				B: to16(px[2]),
				A: 0xffff,
			})
		}
	}

	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func to16(v float32) uint16 {
	return uint16(math.Round(float64(min(max(v, 0), 1)) * 0xffff))
}
