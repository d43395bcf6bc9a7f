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

// Package parallel runs pixel loops on a team of goroutines.
//
// Work is split into independent items (row bands or tiles). Every item
// owns its scratch memory, so no locking is needed inside the loops.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Workers returns the team size used by Rows and Tiles.
func Workers() int {
	return runtime.GOMAXPROCS(0)
}

// Rows calls fn for consecutive bands of rows covering [0, height).
// Each call receives a half-open range [y0, y1). The first error cancels
// the remaining bands and is returned.
func Rows(ctx context.Context, height int, fn func(y0, y1 int) error) error {
	if height <= 0 {
		return nil
	}
	n := min(Workers(), height)
	band := (height + n - 1) / n

	g, ctx := errgroup.WithContext(ctx)
	for y0 := 0; y0 < height; y0 += band {
		y1 := min(y0+band, height)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(y0, y1)
		})
	}
	return g.Wait()
}

// Tile is a rectangular work item. X0, Y0, X1, Y1 bound the area the item
// writes; the item may read a halo around it.
type Tile struct {
	X0, Y0, X1, Y1 int
}

// Width returns the width of the tile.
func (t Tile) Width() int { return t.X1 - t.X0 }

// Height returns the height of the tile.
func (t Tile) Height() int { return t.Y1 - t.Y0 }

// Split divides a w×h image into tiles of at most size×size output pixels.
func Split(w, h, size int) []Tile {
	if size <= 0 {
		size = max(w, h)
	}
	var tiles []Tile
	for y := 0; y < h; y += size {
		for x := 0; x < w; x += size {
			tiles = append(tiles, Tile{X0: x, Y0: y, X1: min(x+size, w), Y1: min(y+size, h)})
		}
	}
	return tiles
}

// Tiles runs fn for every tile, at most Workers() at a time. Cancellation
// of ctx is checked once before each tile starts. If a tile is skipped
// because of cancellation, skipped is called for it so that the caller
// can clear its output.
func Tiles(ctx context.Context, tiles []Tile, fn func(Tile) error, skipped func(Tile)) error {
	g := &errgroup.Group{}
	g.SetLimit(Workers())
	for _, t := range tiles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				if skipped != nil {
					skipped(t)
				}
				return err
			}
			return fn(t)
		})
	}
	return g.Wait()
}
