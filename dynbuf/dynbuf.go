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

// Package dynbuf implements a growable float32 arena used while generating
// shape geometry.
//
// Values are appended at the end of the buffer; the capacity doubles
// whenever a request does not fit. Harvest moves the collected values out
// and leaves the buffer empty, so that a single Buf can be reused for many
// shapes.
package dynbuf

import (
	"seehuhn.de/go/darkroom"
)

// Buf is an append-only float32 buffer.
//
// A Buf is not safe for concurrent use.
type Buf struct {
	name  string
	data  []float32
	pos   int
	limit int // maximum capacity in elements, 0 means unlimited
}

// New returns an empty buffer with room for size values. The name is used
// in log messages only.
func New(name string, size int) *Buf {
	return &Buf{
		name: name,
		data: make([]float32, max(size, 0)),
	}
}

// SetLimit restricts the capacity the buffer may grow to. Requests beyond
// the limit fail. A limit of 0 removes the restriction.
func (b *Buf) SetLimit(n int) {
	b.limit = n
}

// grow makes sure that n more values fit into the buffer.
func (b *Buf) grow(n int) bool {
	if b.pos+n < len(b.data) {
		return true
	}
	size := len(b.data)
	for b.pos+n >= size {
		size = 2*size + 1
	}
	if b.limit > 0 && size > b.limit {
		if b.pos+n > b.limit {
			darkroom.Logger().Warn("dynbuf: allocation failed",
				"buffer", b.name, "requested", b.pos+n, "limit", b.limit)
			return false
		}
		size = b.limit
	}
	newData := make([]float32, size)
	copy(newData, b.data[:b.pos])
	b.data = newData
	return true
}

// Reserve appends n values to the buffer and returns the window holding
// them, so that the caller can fill it in. The window is only valid until
// the next call which grows the buffer. If the buffer cannot grow, Reserve
// returns nil and leaves the buffer unchanged.
func (b *Buf) Reserve(n int) []float32 {
	if n < 0 || !b.grow(n) {
		return nil
	}
	w := b.data[b.pos : b.pos+n : b.pos+n]
	b.pos += n
	return w
}

// Add appends a single value.
func (b *Buf) Add(v float32) bool {
	if !b.grow(1) {
		return false
	}
	b.data[b.pos] = v
	b.pos++
	return true
}

// Add2 appends a pair of values, typically an (x, y) coordinate.
func (b *Buf) Add2(x, y float32) bool {
	if !b.grow(2) {
		return false
	}
	b.data[b.pos] = x
	b.data[b.pos+1] = y
	b.pos += 2
	return true
}

// AddZeros appends n zero values.
func (b *Buf) AddZeros(n int) bool {
	w := b.Reserve(n)
	if w == nil {
		return n == 0
	}
	clear(w)
	return true
}

// Get returns the value at the given offset from the end of the buffer.
// Offset -1 is the last value.
func (b *Buf) Get(offset int) float32 {
	return b.data[b.pos+offset]
}

// Set overwrites the value at the given offset from the end of the buffer.
func (b *Buf) Set(offset int, v float32) {
	b.data[b.pos+offset] = v
}

// Pos returns the number of values in the buffer.
func (b *Buf) Pos() int {
	return b.pos
}

// Cap returns the number of values the buffer can hold without growing.
func (b *Buf) Cap() int {
	return len(b.data)
}

// Values returns the current contents. The slice aliases the buffer.
func (b *Buf) Values() []float32 {
	return b.data[:b.pos]
}

// Reset empties the buffer but keeps its storage.
func (b *Buf) Reset() {
	b.pos = 0
}

// Harvest returns the contents of the buffer and transfers ownership to
// the caller. The buffer is left empty, without storage.
func (b *Buf) Harvest() []float32 {
	res := b.data[:b.pos:b.pos]
	b.data = nil
	b.pos = 0
	return res
}
