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
	"fmt"

	"seehuhn.de/go/darkroom"
	"seehuhn.de/go/darkroom/cfa"
	"seehuhn.de/go/darkroom/detail"
)

// Kernel demosaics the single channel mosaic in, covering roiIn, into the
// four-channel image out, covering roiOut. Both ROIs must have the same
// size. The descriptor d gives the CFA of the full image; it is shifted to
// roiIn by the kernel.
type Kernel func(ctx context.Context, in, out []float32, roiIn, roiOut darkroom.ROI, d cfa.Descriptor, p *Params) error

// KernelInfo describes one demosaicing algorithm.
type KernelInfo struct {
	Method Method
	Kernel Kernel

	// Overlap is the number of input pixels an outer scheduler must add
	// on every side of a tile so that the tile interior is exact. Full
	// green equalization and colour smoothing are not covered.
	Overlap int

	// Align is the step to which tile origins must be snapped to keep the
	// CFA phase.
	Align int

	// TileSize is the edge length of the internal tiles, without the
	// halo. Zero means the kernel runs on the whole image.
	TileSize int

	// Halo is the margin read around each internal tile.
	Halo int

	// Factor estimates the memory use of the kernel, in multiples of the
	// input size.
	Factor float64

	Bayer, XTrans bool

	run runFunc
}

// runFunc is the internal form of a kernel. The descriptor is already
// shifted to the input and tile is the internal tile size to use.
type runFunc func(ctx context.Context, in, out []float32, w, h int, d cfa.Descriptor, p *Params, tile int) (stats, error)

// Supports reports whether the kernel can process images with CFA d.
func (k KernelInfo) Supports(d cfa.Descriptor) bool {
	if d.IsXTrans() {
		return k.XTrans
	}
	return k.Bayer
}

// windowed turns a tile function into a runFunc.
func windowed(halo int, fn tileFunc) runFunc {
	return func(ctx context.Context, in, out []float32, w, h int, d cfa.Descriptor, p *Params, tile int) (stats, error) {
		return tiled(ctx, in, out, w, h, d, p, tile, halo, fn)
	}
}

var kernels = map[Method]*KernelInfo{}

func register(k KernelInfo) {
	info := k
	info.Kernel = info.surface
	kernels[k.Method] = &info
}

func init() {
	register(KernelInfo{
		Method: PPG, Overlap: 5, Align: 2, Halo: 5, Factor: 3,
		Bayer: true, run: windowed(5, ppgTile),
	})
	register(KernelInfo{
		Method: AMaZE, Overlap: 5, Align: 2, Halo: 5, Factor: 3,
		Bayer: true, run: windowed(5, amazeTile),
	})
	register(KernelInfo{
		Method: VNG4, Overlap: 6, Align: 6, Halo: 6, Factor: 3,
		Bayer: true, run: windowed(6, vngTile(true)),
	})
	register(KernelInfo{
		Method: PassthroughMono, Overlap: 5, Align: 2, Factor: 3,
		Bayer: true, XTrans: true, run: passthroughMono,
	})
	register(KernelInfo{
		Method: PassthroughColor, Overlap: 5, Align: 2, Factor: 3,
		Bayer: true, XTrans: true, run: passthroughColor,
	})
	register(KernelInfo{
		Method: RCD, Overlap: 10, Align: 2, TileSize: 112, Halo: 10, Factor: 3,
		Bayer: true, run: windowed(10, rcdTile),
	})
	// LMMSE: 8 for the basic stage, plus 1 for each of up to three median
	// and two refine passes.
	register(KernelInfo{
		Method: LMMSE, Overlap: 13, Align: 2, TileSize: 120, Halo: 8, Factor: 3,
		Bayer: true, run: lmmse,
	})
	register(KernelInfo{
		Method: VNG, Overlap: 6, Align: 6, Halo: 6, Factor: 3,
		XTrans: true, run: windowed(6, vngTile(false)),
	})
	register(KernelInfo{
		Method: Markesteijn, Overlap: 12, Align: 3, TileSize: 256, Halo: 12, Factor: 9.5,
		XTrans: true, run: windowed(12, markesteijnTile(1)),
	})
	register(KernelInfo{
		Method: Markesteijn3, Overlap: 18, Align: 3, TileSize: 256, Halo: 18, Factor: 15,
		XTrans: true, run: windowed(18, markesteijnTile(3)),
	})
	register(KernelInfo{
		Method: FDC, Overlap: 12, Align: 3, TileSize: 256, Halo: 12, Factor: 9.5,
		XTrans: true, run: windowed(12, fdcTile),
	})
}

// Lookup returns the kernel for a method. Dual methods return their base
// kernel with the overlap, alignment and memory factor of the blend. The
// blend overlap adds the reach of the detail mask to the larger of the
// two kernel overlaps.
func Lookup(m Method) (KernelInfo, error) {
	k, ok := kernels[m.Base()]
	if !ok {
		switch m {
		case PassthroughMonoX:
			k = kernels[PassthroughMono]
		case PassthroughColorX:
			k = kernels[PassthroughColor]
		default:
			return KernelInfo{}, fmt.Errorf("unknown demosaic method %d", int(m))
		}
	}
	info := *k
	if m.IsDual() {
		info.Method = m
		info.Overlap = max(info.Overlap, 6) + detail.Margin
		info.Align = max(info.Align, 6)
		info.Factor++
	}
	return info, nil
}

// surface implements the Kernel signature on top of run.
func (k *KernelInfo) surface(ctx context.Context, in, out []float32, roiIn, roiOut darkroom.ROI, d cfa.Descriptor, p *Params) error {
	w, h, err := checkBuffers(in, out, roiIn, roiOut)
	if err != nil {
		return err
	}
	if !k.Supports(d) {
		return fmt.Errorf("%s on %s sensor: %w", k.Method, sensorName(d), darkroom.ErrUnsupportedCFA)
	}
	tile := k.TileSize
	if p.TileSize > 0 {
		tile = p.TileSize
	}
	_, err = k.run(ctx, in, out, w, h, d.Shift(roiIn.X, roiIn.Y), p, tile)
	return err
}

func checkBuffers(in, out []float32, roiIn, roiOut darkroom.ROI) (int, int, error) {
	w, h := roiIn.Width, roiIn.Height
	if roiOut.Width != w || roiOut.Height != h {
		return 0, 0, fmt.Errorf("demosaic: output %dx%d does not match input %dx%d",
			roiOut.Width, roiOut.Height, w, h)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("demosaic: empty input %dx%d", w, h)
	}
	if len(in) < w*h {
		return 0, 0, fmt.Errorf("demosaic: need %d input values, got %d", w*h, len(in))
	}
	if len(out) < 4*w*h {
		return 0, 0, fmt.Errorf("demosaic: need %d output values, got %d", 4*w*h, len(out))
	}
	return w, h, nil
}

func sensorName(d cfa.Descriptor) string {
	if d.IsXTrans() {
		return "X-Trans"
	}
	return "Bayer"
}
