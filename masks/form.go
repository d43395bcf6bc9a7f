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

// Package masks rasterizes parametric shapes into opacity masks.
//
// A [Form] wraps one [Shape]: a circle, ellipse, gradient, polygon, brush
// stroke or group. Node coordinates are normalized to [0, 1] of the
// reference image; radii and feather widths are fractions of the smaller
// image dimension. Geometry is generated in reference image pixels and
// passed through the distortion stages of a [Pipe] before it is sampled
// on a caller-supplied region of interest.
//
// Groups refer to other forms by id through a [Registry], and are folded
// in order with per-child opacity and a boolean combine operator.
package masks

import (
	"seehuhn.de/go/geom/vec"
)

// Kind identifies the type of a shape.
type Kind int

// These are the shape kinds.
const (
	KindCircle Kind = iota + 1
	KindEllipse
	KindGradient
	KindPolygon
	KindBrush
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindCircle:
		return "circle"
	case KindEllipse:
		return "ellipse"
	case KindGradient:
		return "gradient"
	case KindPolygon:
		return "polygon"
	case KindBrush:
		return "brush"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Shape is the geometry of a form. It is one of *Circle, *Ellipse,
// *Gradient, *Polygon, *Brush or *Group.
type Shape interface {
	Kind() Kind

	// clone returns a deep copy of the shape's nodes.
	clone() Shape
}

// Form is a shape together with its identity and clone settings.
type Form struct {
	ID   int
	Name string

	// Clone marks forms used by the retouch tools. Source is the position
	// the form copies from, in normalized coordinates.
	Clone  bool
	Source vec.Vec2

	// Opacity is the default opacity used when the form is added to a
	// group.
	Opacity float64

	Shape Shape
}

// Kind returns the kind of the form's shape.
func (f *Form) Kind() Kind {
	if f == nil || f.Shape == nil {
		return 0
	}
	return f.Shape.Kind()
}

// Duplicate returns a deep copy of f with a new id.
func (f *Form) Duplicate() *Form {
	g := *f
	g.ID = nextID()
	if f.Shape != nil {
		g.Shape = f.Shape.clone()
	}
	return &g
}

// ClonePoints returns a deep copy of the node list of s.
func ClonePoints(s Shape) Shape {
	if s == nil {
		return nil
	}
	return s.clone()
}

// NodeState tells whether the control points of a node are derived
// automatically or were set by the user.
type NodeState int

const (
	// NodeNormal nodes get control points from the Catmull-Rom resolver.
	NodeNormal NodeState = 1
	// NodeUser nodes keep their control points.
	NodeUser NodeState = 2
)

// unset marks control points that the resolver should compute.
var unset = vec.Vec2{X: -1, Y: -1}

// Circle is a disc with a feathered rim.
type Circle struct {
	Center vec.Vec2
	Radius float64
	Border float64
}

// Kind implements the Shape interface.
func (*Circle) Kind() Kind { return KindCircle }

func (c *Circle) clone() Shape {
	d := *c
	return &d
}

// EllipseFlags select how the feather of an ellipse grows.
type EllipseFlags int

const (
	// EllipseEquidistant keeps the feather width constant around the
	// ellipse.
	EllipseEquidistant EllipseFlags = 0
	// EllipseProportional scales the feather with the local radius.
	EllipseProportional EllipseFlags = 1
)

// Ellipse is a rotated ellipse with a feathered rim. Radius holds the two
// half-axes. Rotation is in degrees.
type Ellipse struct {
	Center   vec.Vec2
	Radius   [2]float64
	Rotation float64
	Border   float64
	Flags    EllipseFlags
}

// Kind implements the Shape interface.
func (*Ellipse) Kind() Kind { return KindEllipse }

func (e *Ellipse) clone() Shape {
	d := *e
	return &d
}

// GradientState selects the transition profile of a gradient.
type GradientState int

const (
	GradientLinear    GradientState = 1
	GradientSigmoidal GradientState = 2
)

// Gradient is a smooth transition from 0 to 1 across a line through
// Anchor. Rotation is in degrees, Compression is the half-width of the
// transition as a fraction of the smaller image dimension, and Curvature
// bends the line into a parabola.
//
// Steepness is stored and cloned with the shape so that edit histories
// keep it, but it does not affect rendering.
type Gradient struct {
	Anchor      vec.Vec2
	Rotation    float64
	Compression float64
	Curvature   float64
	Steepness   float64
	State       GradientState
}

// Kind implements the Shape interface.
func (*Gradient) Kind() Kind { return KindGradient }

func (g *Gradient) clone() Shape {
	d := *g
	return &d
}

// PolygonNode is a vertex of a polygon. Ctrl1 is the incoming and Ctrl2
// the outgoing Bézier control point. Border holds the feather width on
// both sides of the node.
type PolygonNode struct {
	Node   vec.Vec2
	Ctrl1  vec.Vec2
	Ctrl2  vec.Vec2
	Border [2]float64
	State  NodeState
}

// Cusp reports whether both control points coincide with the node.
func (n *PolygonNode) Cusp() bool {
	return n.Ctrl1 == n.Node && n.Ctrl2 == n.Node
}

// Polygon is a closed path of cubic Bézier segments.
type Polygon struct {
	Nodes []PolygonNode
}

// Kind implements the Shape interface.
func (*Polygon) Kind() Kind { return KindPolygon }

func (p *Polygon) clone() Shape {
	return &Polygon{Nodes: append([]PolygonNode(nil), p.Nodes...)}
}

// BrushNode is a node of a brush stroke. Border is the half-width of the
// stroke, Hardness the solid fraction of the falloff, and Density the
// opacity.
type BrushNode struct {
	Node     vec.Vec2
	Ctrl1    vec.Vec2
	Ctrl2    vec.Vec2
	Border   [2]float64
	Density  float64
	Hardness float64
	State    NodeState
}

// Brush is an open stroke of variable width.
type Brush struct {
	Nodes []BrushNode
}

// Kind implements the Shape interface.
func (*Brush) Kind() Kind { return KindBrush }

func (b *Brush) clone() Shape {
	return &Brush{Nodes: append([]BrushNode(nil), b.Nodes...)}
}

// GroupState holds the flags of a group entry.
type GroupState int

// Flags of a group entry. Exactly one of the combine operators is used;
// the first enabled entry of a group ignores it.
const (
	StateUse          GroupState = 1
	StateShow         GroupState = 2
	StateInverse      GroupState = 4
	StateUnion        GroupState = 8
	StateIntersection GroupState = 16
	StateDifference   GroupState = 32
	StateExclusion    GroupState = 64

	stateOps = StateUnion | StateIntersection | StateDifference | StateExclusion
)

// GroupEntry refers to a member of a group.
type GroupEntry struct {
	FormID   int
	ParentID int
	State    GroupState
	Opacity  float64
}

// Group is an ordered list of references to other forms.
type Group struct {
	Children []GroupEntry
}

// Kind implements the Shape interface.
func (*Group) Kind() Kind { return KindGroup }

func (g *Group) clone() Shape {
	return &Group{Children: append([]GroupEntry(nil), g.Children...)}
}
