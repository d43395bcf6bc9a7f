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
	"fmt"

	"seehuhn.de/go/darkroom/cfa"
	"seehuhn.de/go/darkroom/detail"
)

// Method selects a demosaicing algorithm. The numeric values are stable
// and may be stored in edit histories.
type Method int

// Method flags.
const (
	FlagXTrans Method = 1024
	FlagDual   Method = 2048
)

// Bayer methods.
const (
	PPG              Method = 0
	AMaZE            Method = 1 // AMaZE-compatible directional kernel
	VNG4             Method = 2
	PassthroughMono  Method = 3
	PassthroughColor Method = 4
	RCD              Method = 5
	LMMSE            Method = 6
)

// X-Trans methods.
const (
	VNG               Method = FlagXTrans | 0
	Markesteijn       Method = FlagXTrans | 1
	Markesteijn3      Method = FlagXTrans | 2
	PassthroughMonoX  Method = FlagXTrans | 3
	FDC               Method = FlagXTrans | 4
	PassthroughColorX Method = FlagXTrans | 5
)

// Dual methods blend the first method with VNG.
const (
	RCDVNG          Method = FlagDual | RCD
	AMaZEVNG        Method = FlagDual | AMaZE
	Markesteijn3VNG Method = FlagDual | Markesteijn3
)

var methodNames = map[Method]string{
	PPG:               "PPG",
	AMaZE:             "AMaZE",
	VNG4:              "VNG4",
	PassthroughMono:   "passthrough (monochrome)",
	PassthroughColor:  "photosite color",
	RCD:               "RCD",
	LMMSE:             "LMMSE",
	VNG:               "VNG",
	Markesteijn:       "Markesteijn 1-pass",
	Markesteijn3:      "Markesteijn 3-pass",
	PassthroughMonoX:  "passthrough (monochrome)",
	FDC:               "frequency domain chroma",
	PassthroughColorX: "photosite color",
	RCDVNG:            "RCD + VNG4",
	AMaZEVNG:          "AMaZE + VNG4",
	Markesteijn3VNG:   "Markesteijn 3-pass + VNG",
}

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Base returns the method without the dual flag.
func (m Method) Base() Method {
	return m &^ FlagDual
}

// IsDual reports whether m blends its output with VNG.
func (m Method) IsDual() bool {
	return m&FlagDual != 0
}

// IsXTrans reports whether m is an X-Trans method.
func (m Method) IsXTrans() bool {
	return m&FlagXTrans != 0
}

// ParseMethod looks up a method by name, for example "rcd" or
// "markesteijn3-vng".
func ParseMethod(name string) (Method, error) {
	m, ok := methodKeys[name]
	if !ok {
		return 0, fmt.Errorf("unknown demosaic method %q", name)
	}
	return m, nil
}

var methodKeys = map[string]Method{
	"ppg":              PPG,
	"amaze":            AMaZE,
	"vng4":             VNG4,
	"passthrough":      PassthroughMono,
	"photosite":        PassthroughColor,
	"rcd":              RCD,
	"lmmse":            LMMSE,
	"vng":              VNG,
	"markesteijn":      Markesteijn,
	"markesteijn3":     Markesteijn3,
	"passthrough-x":    PassthroughMonoX,
	"fdc":              FDC,
	"photosite-x":      PassthroughColorX,
	"rcd-vng":          RCDVNG,
	"amaze-vng":        AMaZEVNG,
	"markesteijn3-vng": Markesteijn3VNG,
}

// GreenEq selects the green equalization pre-filter.
type GreenEq int

// Green equalization modes.
const (
	GreenEqNo GreenEq = iota
	GreenEqLocal
	GreenEqFull
	GreenEqBoth
)

// Refine selects the post-processing passes of LMMSE.
type Refine int

// LMMSE refinement modes.
const (
	RefineBasic Refine = iota
	RefineMedian
	RefineTripleMedian
	RefineRefine
	RefineDoubleRefine
)

// MaxSmoothing is the largest number of colour smoothing passes.
const MaxSmoothing = 5

// Params are the settings of the demosaic stage.
type Params struct {
	Method Method

	// MedianThreshold enables the PPG pre-median for values > 0. At 1,
	// edges are ignored.
	MedianThreshold float64

	// Refine selects the LMMSE post passes.
	Refine Refine

	// DualThreshold sets the detail threshold of the dual methods. The
	// dual blend is skipped for values <= 0.
	DualThreshold float64

	// ShowMask makes the dual methods write the detail mask to all
	// colour channels instead of the blended image.
	ShowMask bool

	GreenEq GreenEq

	// ISO is the sensitivity of the exposure. It sets the threshold of
	// the local green equalization.
	ISO float64

	// Smoothing is the number of colour smoothing passes, 0 to 5.
	Smoothing int

	// WB holds the white balance coefficients used for the detail mask.
	WB [3]float32

	// TileSize overrides the tile size of tiled kernels. Zero selects the
	// kernel default.
	TileSize int

	// ScratchLimit is the maximum number of float32 values one work item
	// may allocate. Zero means no limit.
	ScratchLimit int

	// Tiled must be set when the input is only a part of the image, for
	// example when an outer scheduler splits the frame.
	Tiled bool
}

// DefaultParams returns the default settings.
func DefaultParams() *Params {
	return &Params{
		Method:        RCD,
		Refine:        RefineMedian,
		DualThreshold: 0.20,
		GreenEq:       GreenEqNo,
		ISO:           100,
		WB:            [3]float32{1, 1, 1},
	}
}

// Normalize adapts the settings to the sensor d: methods of the wrong
// sensor family are replaced by the family default, and options which do
// not apply to the chosen method are cleared.
func (p *Params) Normalize(d cfa.Descriptor) {
	m := p.Method
	switch {
	case !d.IsXTrans() && m.IsXTrans():
		m = RCD
	case d.IsXTrans() && !m.IsXTrans():
		m = Markesteijn
	}
	switch m {
	case PassthroughMonoX:
		m = PassthroughMono
	case PassthroughColorX:
		m = PassthroughColor
	}
	p.Method = m

	if m != PPG {
		p.MedianThreshold = 0
	}
	if m == PassthroughMono || m == PassthroughColor {
		p.GreenEq = GreenEqNo
		p.Smoothing = 0
	}
	if m.IsDual() {
		p.Smoothing = 0
	}
	p.Smoothing = min(max(p.Smoothing, 0), MaxSmoothing)
}

// detailParams returns the detail mask settings for the dual blend.
func (p *Params) detailParams() detail.Params {
	dp := detail.DefaultParams()
	dp.Threshold = detail.Threshold(p.DualThreshold)
	return dp
}
