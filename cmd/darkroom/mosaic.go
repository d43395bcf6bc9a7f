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

package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"os"
	"strconv"
)

// readMosaic loads a single channel raw image and scales it to [0, 1].
// Binary PGM files are read directly. Other formats go through
// image.Decode, using the luminance of each pixel.
func readMosaic(fname string) ([]float32, int, int, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	magic, err := r.Peek(2)
	if err == nil && bytes.Equal(magic, []byte("P5")) {
		return readPGM(r)
	}

	img, _, err := image.Decode(r)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: %w", fname, err)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	buf := make([]float32, w*h)
	for y := range h {
		for x := range w {
			v, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			buf[y*w+x] = float32(v) / 0xffff
		}
	}
	return buf, w, h, nil
}

var errPGM = errors.New("malformed PGM header")

// maxPixels bounds the size of PGM images, so that a corrupt header
// cannot trigger a huge allocation.
const maxPixels = 1 << 28

// readPGM reads a binary (P5) greymap with 8 or 16 bits per sample.
func readPGM(r *bufio.Reader) ([]float32, int, int, error) {
	var fields [4]int
	magic, err := pgmToken(r)
	if err != nil || magic != "P5" {
		return nil, 0, 0, errPGM
	}
	for i := 1; i < 4; i++ {
		tok, err := pgmToken(r)
		if err != nil {
			return nil, 0, 0, errPGM
		}
		fields[i], err = strconv.Atoi(tok)
		if err != nil || fields[i] <= 0 {
			return nil, 0, 0, errPGM
		}
	}
	w, h, maxVal := fields[1], fields[2], fields[3]
	if maxVal > 0xffff {
		return nil, 0, 0, fmt.Errorf("PGM maximum value %d out of range", maxVal)
	}
	if w > maxPixels/h {
		return nil, 0, 0, fmt.Errorf("PGM size %dx%d too large", w, h)
	}

	bps := 1
	if maxVal > 0xff {
		bps = 2
	}
	data := make([]byte, w*h*bps)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, 0, 0, fmt.Errorf("PGM data: %w", err)
	}

	buf := make([]float32, w*h)
	scale := 1 / float32(maxVal)
	for i := range buf {
		var v int
		if bps == 2 {
			v = int(data[2*i])<<8 | int(data[2*i+1])
		} else {
			v = int(data[i])
		}
		buf[i] = float32(v) * scale
	}
	return buf, w, h, nil
}

// pgmToken returns the next whitespace separated header field, skipping
// comments. Exactly one whitespace byte after the token is consumed.
func pgmToken(r *bufio.Reader) (string, error) {
	var tok []byte
	for {
		c, err := r.ReadByte()
		if err != nil {
			if len(tok) > 0 && err == io.EOF {
				return string(tok), nil
			}
			return "", err
		}
		switch {
		case c == '#' && len(tok) == 0:
			if _, err := r.ReadBytes('\n'); err != nil {
				return "", err
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, c)
		}
	}
}
