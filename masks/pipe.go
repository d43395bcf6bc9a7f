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

package masks

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// Direction selects which distortion stages of a pipe are applied.
//
// Stages "before" the masking module are the ones with a smaller order,
// they act on the image before the mask is applied.
type Direction int

const (
	// DirAll applies the whole chain.
	DirAll Direction = iota
	// DirForwIncl applies the stages at or after the module.
	DirForwIncl
	// DirForwExcl applies the stages after the module.
	DirForwExcl
	// DirBackIncl applies the stages at or before the module.
	DirBackIncl
	// DirBackExcl applies the stages before the module.
	DirBackExcl
)

// Stage is a geometric distortion step of the processing pipeline, for
// example lens correction, perspective correction or cropping.
//
// Forward maps interleaved (x, y) coordinates from the stage input to its
// output, in place. Backward is the inverse. Coordinates which cannot be
// mapped are set to NaN.
type Stage interface {
	Order() float64
	Forward(xy []float32) error
	Backward(xy []float32) error
}

// FillMode selects the interior fill algorithm of polygons.
type FillMode int

const (
	// FillEdgeFlag toggles pixels at boundary crossings and propagates
	// the state along scanlines.
	FillEdgeFlag FillMode = iota
	// FillCoverage computes anti-aliased coverage of the boundary.
	FillCoverage
)

// Pipe describes the image a mask is rendered for: the size of the
// reference image, the position of the masking module in the pipeline,
// and the distortion stages around it.
type Pipe struct {
	// Width and Height give the size of the reference image in pixels.
	Width, Height int

	// Order is the position of the masking module in the pipeline.
	Order float64

	// Stages are the distortion steps of the pipeline.
	Stages []Stage

	// PixelThreshold is the spacing, in pixels, below which Bézier
	// subdivision stops.
	PixelThreshold int

	// Fill selects the polygon fill algorithm.
	Fill FillMode

	// Forms resolves the members of groups.
	Forms *Registry
}

// NewPipe returns a pipe without distortions for a w×h reference image.
func NewPipe(w, h int) *Pipe {
	return &Pipe{
		Width:          w,
		Height:         h,
		PixelThreshold: 2,
		Fill:           FillEdgeFlag,
		Forms:          NewRegistry(),
	}
}

// AddStage inserts s, keeping the stages sorted by order.
func (p *Pipe) AddStage(s Stage) {
	i, _ := slices.BinarySearchFunc(p.Stages, s.Order(), func(a Stage, o float64) int {
		switch {
		case a.Order() < o:
			return -1
		case a.Order() > o:
			return 1
		}
		return 0
	})
	p.Stages = slices.Insert(p.Stages, i, s)
}

// minDim returns the smaller dimension of the reference image.
func (p *Pipe) minDim() float64 {
	return float64(min(p.Width, p.Height))
}

func (p *Pipe) selected(dir Direction) []Stage {
	var res []Stage
	for _, s := range p.Stages {
		o := s.Order()
		var use bool
		switch dir {
		case DirAll:
			use = true
		case DirForwIncl:
			use = o >= p.Order
		case DirForwExcl:
			use = o > p.Order
		case DirBackIncl:
			use = o <= p.Order
		case DirBackExcl:
			use = o < p.Order
		}
		if use {
			res = append(res, s)
		}
	}
	return res
}

// Transform maps reference image coordinates through the selected stages,
// in pipeline order.
func (p *Pipe) Transform(dir Direction, xy []float32) error {
	for _, s := range p.selected(dir) {
		if err := s.Forward(xy); err != nil {
			return fmt.Errorf("distortion stage %g: %w", s.Order(), err)
		}
	}
	return nil
}

// Backtransform is the inverse of Transform: it applies the inverse of
// the selected stages in reverse order.
func (p *Pipe) Backtransform(dir Direction, xy []float32) error {
	st := p.selected(dir)
	for i := len(st) - 1; i >= 0; i-- {
		if err := st[i].Backward(xy); err != nil {
			return fmt.Errorf("distortion stage %g: %w", st[i].Order(), err)
		}
	}
	return nil
}

// errSingular is returned by stages which cannot be inverted.
var errSingular = errors.New("singular transformation")

// AffineStage is a distortion given by an affine map, for example a crop
// with rotation or a flip.
type AffineStage struct {
	Pos float64
	M   matrix.Matrix
}

// Order implements the Stage interface.
func (a *AffineStage) Order() float64 { return a.Pos }

// Forward implements the Stage interface.
func (a *AffineStage) Forward(xy []float32) error {
	applyMatrix(a.M, xy)
	return nil
}

// Backward implements the Stage interface.
func (a *AffineStage) Backward(xy []float32) error {
	inv, ok := invert(a.M)
	if !ok {
		return errSingular
	}
	applyMatrix(inv, xy)
	return nil
}

func applyMatrix(m matrix.Matrix, xy []float32) {
	for i := 0; i+1 < len(xy); i += 2 {
		x, y := float64(xy[i]), float64(xy[i+1])
		xy[i] = float32(m[0]*x + m[2]*y + m[4])
		xy[i+1] = float32(m[1]*x + m[3]*y + m[5])
	}
}

func invert(m matrix.Matrix) (matrix.Matrix, bool) {
	det := m[0]*m[3] - m[1]*m[2]
	if det == 0 || math.IsNaN(det) {
		return matrix.Matrix{}, false
	}
	a := m[3] / det
	b := -m[1] / det
	c := -m[2] / det
	d := m[0] / det
	return matrix.Matrix{a, b, c, d, -(a*m[4] + c*m[5]), -(b*m[4] + d*m[5])}, true
}

// RadialStage is a one-parameter radial lens distortion around Center,
// r' = r·(1 + K·r²), with r measured in units of Norm pixels.
type RadialStage struct {
	Pos    float64
	Center vec.Vec2
	Norm   float64
	K      float64
}

// Order implements the Stage interface.
func (r *RadialStage) Order() float64 { return r.Pos }

// Forward implements the Stage interface.
func (r *RadialStage) Forward(xy []float32) error {
	for i := 0; i+1 < len(xy); i += 2 {
		dx := (float64(xy[i]) - r.Center.X) / r.Norm
		dy := (float64(xy[i+1]) - r.Center.Y) / r.Norm
		f := 1 + r.K*(dx*dx+dy*dy)
		xy[i] = float32(r.Center.X + dx*f*r.Norm)
		xy[i+1] = float32(r.Center.Y + dy*f*r.Norm)
	}
	return nil
}

// Backward implements the Stage interface. The radius is found by Newton
// iteration.
func (r *RadialStage) Backward(xy []float32) error {
	for i := 0; i+1 < len(xy); i += 2 {
		dx := (float64(xy[i]) - r.Center.X) / r.Norm
		dy := (float64(xy[i+1]) - r.Center.Y) / r.Norm
		rd := math.Hypot(dx, dy)
		if rd == 0 {
			continue
		}
		ru := rd
		for range 8 {
			g := ru*(1+r.K*ru*ru) - rd
			dg := 1 + 3*r.K*ru*ru
			if dg == 0 {
				break
			}
			ru -= g / dg
		}
		s := ru / rd
		xy[i] = float32(r.Center.X + dx*s*r.Norm)
		xy[i+1] = float32(r.Center.Y + dy*s*r.Norm)
	}
	return nil
}
