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
	"seehuhn.de/go/darkroom/internal/parallel"
)

// passthroughMono copies every photosite value to all three channels.
func passthroughMono(ctx context.Context, in, out []float32, w, h int, _ cfa.Descriptor, _ *Params, _ int) (stats, error) {
	err := parallel.Rows(ctx, h, func(y0, y1 int) error {
		for i := y0 * w; i < y1*w; i++ {
			v := in[i]
			px := out[4*i : 4*i+4]
			px[0], px[1], px[2], px[3] = v, v, v, 0
		}
		return nil
	})
	return stats{}, err
}

// passthroughColor writes every photosite value to its own channel and
// sets the two other channels to zero.
func passthroughColor(ctx context.Context, in, out []float32, w, h int, d cfa.Descriptor, _ *Params, _ int) (stats, error) {
	err := parallel.Rows(ctx, h, func(y0, y1 int) error {
		for y := y0; y < y1; y++ {
			for x := range w {
				i := y*w + x
				px := out[4*i : 4*i+4]
				clear(px)
				px[d.Color(y, x)] = in[i]
			}
		}
		return nil
	})
	return stats{}, err
}
