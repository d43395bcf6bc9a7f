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

package demosaic

import (
	"context"
	"errors"
	"fmt"

	"seehuhn.de/go/darkroom"
	"seehuhn.de/go/darkroom/cfa"
)

// Result describes how an image was demosaiced.
type Result struct {
	// Method is the kernel which produced the output. It differs from the
	// requested method after a fallback.
	Method Method

	// Monochrome is set when all three channels carry the raw value.
	Monochrome bool

	// Fallback is set when the requested kernel ran out of scratch
	// memory and a simpler one was used.
	Fallback bool

	// TileSize is the internal tile size of the final run.
	TileSize int

	// ScratchPeak is the largest number of float32 values a single work
	// item allocated.
	ScratchPeak int
}

// Process demosaics the mosaic in, covering roiIn, into the four-channel
// image out, covering roiOut. The pipeline is green equalization, the
// kernel selected by p.Method, the dual blend for dual methods, and
// finally colour smoothing.
//
// If a kernel cannot allocate its scratch buffers, it is retried with half
// the tile size and then replaced by VNG4 (Bayer) or VNG (X-Trans). If
// ctx is cancelled, the output of unfinished tiles is zero and ctx.Err()
// is returned.
func Process(ctx context.Context, in, out []float32, roiIn, roiOut darkroom.ROI, d cfa.Descriptor, p *Params) (Result, error) {
	if p == nil {
		p = DefaultParams()
	}
	res := Result{Method: p.Method}

	w, h, err := checkBuffers(in, out, roiIn, roiOut)
	if err != nil {
		return res, err
	}
	if err := d.Validate(); err != nil {
		return res, fmt.Errorf("demosaic: %w: %v", darkroom.ErrUnsupportedCFA, err)
	}
	info, err := Lookup(p.Method)
	if err != nil {
		return res, err
	}
	if !info.Supports(d) {
		return res, fmt.Errorf("demosaic: %s on %s sensor: %w",
			p.Method, sensorName(d), darkroom.ErrUnsupportedCFA)
	}
	d = d.Shift(roiIn.X, roiIn.Y)
	out = out[:4*w*h]

	base := p.Method.Base()
	passthrough := base == PassthroughMono || base == PassthroughColor ||
		base == PassthroughMonoX || base == PassthroughColorX

	src := in[:w*h]
	if p.GreenEq != GreenEqNo && !d.IsXTrans() && !passthrough {
		src, err = greenEqualize(ctx, src, w, h, d, p)
		if err != nil {
			return res, err
		}
	}

	st, used, err := runWithFallback(ctx, info, src, out, w, h, d, p)
	res.TileSize = st.tileSize
	res.ScratchPeak = st.peak
	if err != nil {
		return res, err
	}
	if used != info.Method.Base() {
		res.Method = used
		res.Fallback = true
	}
	res.Monochrome = base == PassthroughMono || base == PassthroughMonoX

	if p.Method.IsDual() && !res.Fallback {
		dst, err := dualBlend(ctx, src, out, w, h, d, p)
		res.ScratchPeak = max(res.ScratchPeak, dst.peak)
		if err != nil {
			return res, err
		}
	}

	if passes := min(p.Smoothing, MaxSmoothing); passes > 0 && !passthrough {
		if err := smoothColor(ctx, out, w, h, passes); err != nil {
			return res, err
		}
	}
	return res, nil
}

// runWithFallback runs the kernel, retrying with smaller tiles and then
// with VNG when scratch memory runs out. On failure the output is zero.
func runWithFallback(ctx context.Context, info KernelInfo, in, out []float32, w, h int, d cfa.Descriptor, p *Params) (stats, Method, error) {
	log := darkroom.Logger()
	method := info.Method.Base()

	tile := info.TileSize
	if p.TileSize > 0 {
		tile = p.TileSize
	}
	if tile <= 0 {
		tile = max(w, h)
	}

	st, err := info.run(ctx, in, out, w, h, d, p, tile)
	if !errors.Is(err, darkroom.ErrAllocationFailed) {
		return st, method, err
	}

	log.Warn("demosaic: scratch allocation failed, halving tile size",
		"method", method, "tile", tile, "error", err)
	tile = max(tile/2, 1)
	st, err = info.run(ctx, in, out, w, h, d, p, tile)
	if !errors.Is(err, darkroom.ErrAllocationFailed) {
		return st, method, err
	}

	fb := VNG4
	if d.IsXTrans() {
		fb = VNG
	}
	log.Warn("demosaic: falling back to a simpler kernel",
		"method", method, "fallback", fb, "tile", tile)
	st, err = kernels[fb].run(ctx, in, out, w, h, d, p, tile)
	if err != nil {
		clear(out)
		return st, fb, err
	}
	return st, fb, nil
}

// SnapROI moves the origin of an input ROI to the nearest position with
// the CFA phase required by method m. Monochrome passthrough needs no
// alignment.
func SnapROI(roi darkroom.ROI, d cfa.Descriptor, m Method) darkroom.ROI {
	if b := m.Base(); b == PassthroughMono || b == PassthroughMonoX {
		return roi
	}
	aligner := 2
	if d.IsXTrans() {
		aligner = 3
	}
	roi.X = max(0, snapNearest(roi.X, aligner))
	roi.Y = max(0, snapNearest(roi.Y, aligner))
	return roi
}

func snapNearest(v, aligner int) int {
	dv := mod(v, aligner)
	if dv > aligner/2 {
		return v + aligner - dv
	}
	return v - dv
}
