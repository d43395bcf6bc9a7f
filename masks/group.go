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
	"context"
	"errors"

	"seehuhn.de/go/darkroom"
	"seehuhn.de/go/darkroom/internal/parallel"
)

// combine folds the child mask c into out according to the combine
// operator in state.
func combine(ctx context.Context, out, c []float32, width int, state GroupState) error {
	height := len(out) / width
	return parallel.Rows(ctx, height, func(y0, y1 int) error {
		o := out[y0*width : y1*width]
		v := c[y0*width : y1*width]
		switch {
		case state&StateIntersection != 0:
			for i := range o {
				o[i] *= v[i]
			}
		case state&StateDifference != 0:
			for i := range o {
				o[i] *= 1 - v[i]
			}
		case state&StateExclusion != 0:
			for i := range o {
				o[i] = o[i] + v[i] - 2*o[i]*v[i]
			}
		default:
			for i := range o {
				o[i] = max(o[i], v[i])
			}
		}
		return nil
	})
}

// renderGroup folds the flattened entries of grp into out. Members which
// can not be rendered are skipped; the problems are returned together
// after the whole output has been written.
func renderGroup(ctx context.Context, grp *Form, p *Pipe, roi darkroom.ROI, out []float32) error {
	if p.Forms == nil {
		return &darkroom.MalformedShapeError{ID: grp.ID, Reason: "no registry for group members"}
	}
	n := roi.Size()
	out = out[:n]
	buf := make([]float32, n)

	var problems []error
	first := true
	for _, e := range p.Forms.Ungroup(grp) {
		if e.State&StateUse == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		child := p.Forms.Get(e.FormID)
		clear(buf)
		err := render(ctx, child, p, roi, buf)
		switch {
		case err == nil:
		case errors.Is(err, darkroom.ErrMalformedShape):
			darkroom.Logger().Warn("masks: skipping group member",
				"group", grp.ID, "form", e.FormID, "error", err)
			problems = append(problems, err)
			continue
		case errors.Is(err, darkroom.ErrGeometryDegenerate):
			darkroom.Logger().Warn("masks: degenerate group member",
				"group", grp.ID, "form", e.FormID, "error", err)
			problems = append(problems, err)
		default:
			return err
		}

		op := float32(min(max(e.Opacity, 0), 1))
		inverse := e.State&StateInverse != 0
		err = parallel.Rows(ctx, roi.Height, func(y0, y1 int) error {
			for i := y0 * roi.Width; i < y1*roi.Width; i++ {
				v := buf[i]
				if inverse {
					v = 1 - v
				}
				buf[i] = v * op
			}
			return nil
		})
		if err != nil {
			return err
		}

		if first {
			copy(out, buf)
			first = false
			continue
		}
		if err := combine(ctx, out, buf, roi.Width, e.State); err != nil {
			return err
		}
	}
	return errors.Join(problems...)
}
