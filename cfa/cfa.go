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

// Package cfa describes the colour filter array of a raw sensor.
//
// Bayer layouts are packed into a 32-bit filter mask in the dcraw
// convention: sixteen 2-bit fields give the colour for rows 0-7 and
// columns 0-1. The special value [XTransFilters] selects a Fuji X-Trans
// sensor, whose 6×6 pattern is stored separately.
package cfa

import (
	"errors"
	"fmt"
	"strings"
)

// Colour channel indices returned by [Descriptor.Color].
const (
	Red   = 0
	Green = 1
	Blue  = 2
	// Green2 is the index FourColor gives to greens on blue rows.
	Green2 = 3
)

// XTransFilters is the filter value that selects an X-Trans sensor.
const XTransFilters uint32 = 9

// Common Bayer filter masks.
const (
	RGGB uint32 = 0x94949494
	BGGR uint32 = 0x16161616
	GRBG uint32 = 0x61616161
	GBRG uint32 = 0x49494949
)

// Descriptor is the colour filter layout of an image.
type Descriptor struct {
	Filters uint32
	XTrans  [6][6]uint8

	// CropX and CropY are added to every photosite position, so that
	// cropping a raw never changes the logical pattern.
	CropX, CropY int
}

// DefaultXTrans is the X-Trans layout of most Fuji sensors.
var DefaultXTrans = [6][6]uint8{
	{1, 1, 0, 1, 1, 2},
	{1, 1, 2, 1, 1, 0},
	{2, 0, 1, 0, 2, 1},
	{1, 1, 2, 1, 1, 0},
	{1, 1, 0, 1, 1, 2},
	{0, 2, 1, 2, 0, 1},
}

// NewBayer returns the descriptor for a Bayer filter mask.
func NewBayer(filters uint32) Descriptor {
	return Descriptor{Filters: filters}
}

// NewXTrans returns the descriptor for an X-Trans pattern.
func NewXTrans(pattern [6][6]uint8) Descriptor {
	return Descriptor{Filters: XTransFilters, XTrans: pattern}
}

// FromPattern builds a Bayer filter mask from a 2×2 pattern name such as
// "RGGB".
func FromPattern(name string) (uint32, error) {
	name = strings.ToUpper(name)
	if len(name) != 4 {
		return 0, fmt.Errorf("invalid Bayer pattern %q", name)
	}
	var idx [4]uint32
	for i, c := range name {
		switch c {
		case 'R':
			idx[i] = Red
		case 'G':
			idx[i] = Green
		case 'B':
			idx[i] = Blue
		default:
			return 0, fmt.Errorf("invalid Bayer pattern %q", name)
		}
	}
	var filters uint32
	for row := range 8 {
		for col := range 2 {
			c := idx[(row%2)*2+col]
			filters |= c << (2 * uint(row*2+col))
		}
	}
	return filters, nil
}

// IsXTrans reports whether d describes an X-Trans sensor.
func (d Descriptor) IsXTrans() bool {
	return d.Filters == XTransFilters
}

// Color returns the colour index of the photosite at (row, col).
func (d Descriptor) Color(row, col int) int {
	row += d.CropY
	col += d.CropX
	if d.IsXTrans() {
		return int(d.XTrans[mod6(row)][mod6(col)])
	}
	return fc(row, col, d.Filters)
}

func fc(row, col int, filters uint32) int {
	return int(filters>>(uint(((row<<1)&14)+(col&1))<<1)) & 3
}

func mod6(x int) int {
	x %= 6
	if x < 0 {
		x += 6
	}
	return x
}

// Shift returns the descriptor for the sub-window starting at (x, y).
func (d Descriptor) Shift(x, y int) Descriptor {
	d.CropX += x
	d.CropY += y
	return d
}

// Period returns the size of the repeating tile: 2 for Bayer, 6 for
// X-Trans.
func (d Descriptor) Period() int {
	if d.IsXTrans() {
		return 6
	}
	return 2
}

// FourColor returns the colour index at (row, col), with greens that
// share a row with blue photosites reported as [Green2].
func (d Descriptor) FourColor(row, col int) int {
	c := d.Color(row, col)
	if c != Green || d.IsXTrans() {
		return c
	}
	if d.Color(row, col+1) == Blue {
		return Green2
	}
	return c
}

// Validate checks that the descriptor contains all three colours.
func (d Descriptor) Validate() error {
	var seen [4]int
	n := d.Period()
	for row := range n {
		for col := range n {
			seen[d.Color(row, col)]++
		}
	}
	if d.IsXTrans() {
		if seen[Red] == 0 || seen[Green] == 0 || seen[Blue] == 0 {
			return errors.New("X-Trans pattern lacks a colour")
		}
		return nil
	}
	if seen[Red] != 1 || seen[Green] != 2 || seen[Blue] != 1 {
		return fmt.Errorf("filters 0x%08x is not a Bayer layout", d.Filters)
	}
	return nil
}

// Snap rounds a window offset down to a multiple of the pattern snapper
// (2 for Bayer, 3 for X-Trans) so that sub-windows keep the CFA phase of
// their tiles.
func (d Descriptor) Snap(v int) int {
	s := 2
	if d.IsXTrans() {
		s = 3
	}
	return v - ((v%s)+s)%s
}

// Mosaic samples an RGB image (four floats per pixel) through the filter
// pattern and returns the single channel mosaic.
func (d Descriptor) Mosaic(rgba []float32, w, h int) []float32 {
	out := make([]float32, w*h)
	for row := range h {
		for col := range w {
			c := d.Color(row, col)
			out[row*w+col] = rgba[4*(row*w+col)+c]
		}
	}
	return out
}
