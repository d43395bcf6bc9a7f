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

	"seehuhn.de/go/darkroom/cfa"
	"seehuhn.de/go/darkroom/detail"
	"seehuhn.de/go/darkroom/internal/parallel"
)

// dualBlend mixes the sharp reconstruction hi with a VNG reconstruction
// of the mosaic in. Detailed regions keep hi, flat regions take the
// low-noise VNG result. With p.ShowMask set, the detail mask is written
// to the colour channels instead.
func dualBlend(ctx context.Context, in, hi []float32, w, h int, d cfa.Descriptor, p *Params) (stats, error) {
	var st stats
	if p.DualThreshold <= 0 && !p.ShowMask {
		return st, nil
	}

	mask := make([]float32, w*h)
	if err := detail.Compute(ctx, hi, w, h, p.WB, p.detailParams(), mask); err != nil {
		return st, err
	}
	if p.ShowMask {
		err := parallel.Rows(ctx, h, func(y0, y1 int) error {
			for i := y0 * w; i < y1*w; i++ {
				m := mask[i]
				hi[4*i], hi[4*i+1], hi[4*i+2] = m, m, m
			}
			return nil
		})
		return st, err
	}

	lowMethod := VNG4
	if d.IsXTrans() {
		lowMethod = VNG
	}
	k := kernels[lowMethod]
	lo := make([]float32, 4*w*h)
	tile := k.TileSize
	if p.TileSize > 0 {
		tile = p.TileSize
	}
	st, err := k.run(ctx, in, lo, w, h, d, p, tile)
	if err != nil {
		return st, err
	}

	err = parallel.Rows(ctx, h, func(y0, y1 int) error {
		for i := y0 * w; i < y1*w; i++ {
			m := mask[i]
			for c := range 3 {
				j := 4*i + c
				hi[j] = hi[j]*m + lo[j]*(1-m)
			}
		}
		return nil
	})
	return st, err
}
