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

// Package darkroom holds the types shared by the raw development packages:
// the region of interest, the error kinds reported by the demosaic and mask
// engines, and the process-wide logger.
//
// The engines themselves live in sub-packages:
//
//   - [seehuhn.de/go/darkroom/demosaic] reconstructs RGB images from Bayer
//     and X-Trans sensor mosaics.
//   - [seehuhn.de/go/darkroom/masks] rasterizes parametric shapes into
//     opacity masks.
//   - [seehuhn.de/go/darkroom/detail] computes the detail mask used by the
//     dual demosaicers.
package darkroom

// ROI is a rectangle in output pixel space.
//
// Scale is the ratio from the reference full image to the ROI's pixel
// pitch. ROI pixel (i, j) samples the module coordinates
// ((X+i)/Scale, (Y+j)/Scale), so that pixel centres sit on integer
// coordinates.
type ROI struct {
	X, Y          int
	Width, Height int
	Scale         float64
}

// Size returns the number of pixels covered by the ROI.
func (r ROI) Size() int {
	return r.Width * r.Height
}

// Empty reports whether the ROI contains no pixels.
func (r ROI) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Full returns a unit-scale ROI covering a w×h image.
func Full(w, h int) ROI {
	return ROI{Width: w, Height: h, Scale: 1}
}
