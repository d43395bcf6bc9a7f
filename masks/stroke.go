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
	"fmt"

	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/darkroom"
)

// Limits for brush parameters.
const (
	HardnessMin = 0.0005
	BorderMin   = 0.00005
	BorderMax   = 0.5
)

// PressureMode selects which brush parameter follows the pen pressure.
type PressureMode int

// These are the supported pressure modes.
const (
	PressureOff PressureMode = iota
	PressureHardnessRel
	PressureHardnessAbs
	PressureOpacityRel
	PressureOpacityAbs
	PressureBrushSizeRel
)

// Smoothing controls how aggressively captured strokes are simplified.
type Smoothing int

// Smoothing levels.
const (
	SmoothingMedium Smoothing = iota
	SmoothingLow
	SmoothingHigh
)

// factor returns the RDP tolerance relative to the squared brush size.
func (s Smoothing) factor() float64 {
	switch s {
	case SmoothingLow:
		return 0.0025
	case SmoothingHigh:
		return 0.04
	default:
		return 0.01
	}
}

// StrokeSample is a captured position of an input device, in pixels of
// the final image.
type StrokeSample struct {
	Pos      vec.Vec2
	Pressure float64
}

// StrokeOptions are the brush settings in effect while a stroke is
// captured.
type StrokeOptions struct {
	// Border is the half-width of the brush, as a fraction of the
	// smaller image dimension.
	Border   float64
	Hardness float64

	Pressure  PressureMode
	Smoothing Smoothing
}

// strokePoint is a captured sample in normalized coordinates with its
// brush payload.
type strokePoint struct {
	pos      vec.Vec2
	border   float64
	hardness float64
	density  float64
	pressure float64
}

// NewBrushStroke converts the captured samples of a pen stroke into a
// brush. The samples are mapped back through all distortion stages,
// pressure is folded into the brush parameters and the path is
// simplified with the Ramer-Douglas-Peucker algorithm.
func NewBrushStroke(p *Pipe, samples []StrokeSample, opt StrokeOptions) (*Brush, error) {
	if len(samples) == 0 {
		return nil, &darkroom.MalformedShapeError{Reason: "empty brush stroke"}
	}
	if len(samples) == 1 {
		// a single click gets a second sample very close by
		s := samples[0]
		s.Pos = s.Pos.Add(vec.Vec2{X: 0.01, Y: -0.01})
		samples = []StrokeSample{samples[0], s}
	}

	border := min(max(opt.Border, BorderMin), BorderMax)
	hardness := min(max(opt.Hardness, HardnessMin), 1)

	xy := make([]float32, 2*len(samples))
	for i, s := range samples {
		xy[2*i] = float32(s.Pos.X)
		xy[2*i+1] = float32(s.Pos.Y)
	}
	if err := p.Backtransform(DirAll, xy); err != nil {
		return nil, fmt.Errorf("brush stroke: %w", err)
	}

	pts := make([]strokePoint, 0, len(samples))
	for i, s := range samples {
		x, y := xy[2*i], xy[2*i+1]
		if isNaN32(x) || isNaN32(y) {
			continue
		}
		pts = append(pts, strokePoint{
			pos:      vec.Vec2{X: float64(x) / float64(p.Width), Y: float64(y) / float64(p.Height)},
			border:   border,
			hardness: hardness,
			// strokes always start at full opacity
			density:  1,
			pressure: s.Pressure,
		})
	}
	if len(pts) < 2 {
		return nil, &darkroom.MalformedShapeError{Reason: "brush stroke outside the image"}
	}
	applyPressure(pts, opt.Pressure)

	eps2 := opt.Smoothing.factor() * max(HardnessMin, border) * max(HardnessMin, border)
	b := &Brush{Nodes: simplify(pts, eps2)}
	b.ResolveControlPoints()
	return b, nil
}

// applyPressure folds the pressure readings into the brush payload.
func applyPressure(pts []strokePoint, mode PressureMode) {
	for i := range pts {
		q := &pts[i]
		pressure := q.pressure
		q.pressure = 1
		switch mode {
		case PressureBrushSizeRel:
			q.border = max(HardnessMin, q.border*pressure)
		case PressureHardnessAbs:
			q.hardness = max(HardnessMin, pressure)
		case PressureHardnessRel:
			q.hardness = max(HardnessMin, q.hardness*pressure)
		case PressureOpacityAbs:
			q.density = max(0.05, pressure)
		case PressureOpacityRel:
			q.density = max(0.05, q.density*pressure)
		}
	}
}

// segmentDist2 returns the squared distance of q from the segment a-b in
// the combined space of position and payload. Brush size counts fully,
// hardness and density with weight 0.01.
func segmentDist2(q, a, b strokePoint) float64 {
	r := q.pos.Sub(a.pos).Dot(b.pos.Sub(a.pos))
	l := b.pos.Sub(a.pos).Dot(b.pos.Sub(a.pos))

	var ref strokePoint
	switch t := r / l; {
	case l == 0 || t < 0:
		ref = a
	case t > 1:
		ref = b
	default:
		ref = strokePoint{
			pos:      a.pos.Add(b.pos.Sub(a.pos).Mul(t)),
			border:   a.border + t*(b.border-a.border),
			hardness: a.hardness + t*(b.hardness-a.hardness),
			density:  a.density + t*(b.density-a.density),
		}
	}
	d := q.pos.Sub(ref.pos)
	db := q.border - ref.border
	dh := q.hardness - ref.hardness
	dd := q.density - ref.density
	return d.X*d.X + d.Y*d.Y + db*db + 0.01*dh*dh + 0.01*dd*dd
}

// simplify reduces the samples to brush nodes using the
// Ramer-Douglas-Peucker algorithm with tolerance eps2 on the squared
// distance.
func simplify(pts []strokePoint, eps2 float64) []BrushNode {
	first, last := pts[0], pts[len(pts)-1]
	dmax2 := 0.0
	index := 0
	for i := 1; i < len(pts)-1; i++ {
		if d2 := segmentDist2(pts[i], first, last); d2 > dmax2 {
			index, dmax2 = i, d2
		}
	}

	if index > 0 && dmax2 >= eps2 {
		a := simplify(pts[:index+1], eps2)
		b := simplify(pts[index:], eps2)
		return append(a[:len(a)-1], b...)
	}

	node := func(q strokePoint) BrushNode {
		return NewBrushNode(q.pos.X, q.pos.Y, q.border, q.hardness, q.density)
	}
	return []BrushNode{node(first), node(last)}
}
