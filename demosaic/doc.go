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

// Package demosaic reconstructs full colour images from the single
// channel mosaic of a Bayer or X-Trans sensor.
//
// [Process] runs the whole pipeline: optional green equalization, one of
// the interpolation kernels, the dual blend and colour smoothing. The
// Bayer kernels are PPG, VNG4, RCD, LMMSE and an AMaZE-compatible
// directional kernel, which blends Hamilton-Adams estimates by gradient
// energy and publishes the AMaZE overlap and alignment; it is not a port
// of the reference AMaZE code. The X-Trans kernels are VNG, Markesteijn
// (one and three passes) and FDC. [Lookup] reports the tiling properties
// of each kernel.
package demosaic
