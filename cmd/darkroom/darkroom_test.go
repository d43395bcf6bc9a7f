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
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/tiff"

	"seehuhn.de/go/darkroom/raster"
)

func TestReadPGM(t *testing.T) {
	data := []byte("P5\n# comment\n3 2\n65535\n" +
		"\x00\x00\xff\xff\x80\x00" +
		"\x00\x01\x40\x00\xff\xff")
	buf, w, h, err := readPGM(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatal(err)
	}
	if w != 3 || h != 2 {
		t.Fatalf("size %dx%d, want 3x2", w, h)
	}
	want := []float32{0, 1, 32768.0 / 65535, 1.0 / 65535, 16384.0 / 65535, 1}
	for i := range want {
		if math.Abs(float64(buf[i]-want[i])) > 1e-7 {
			t.Errorf("sample %d: got %g, want %g", i, buf[i], want[i])
		}
	}
}

func TestReadPGM8(t *testing.T) {
	data := []byte("P5 2 1 255 \x00\xff")
	buf, w, h, err := readPGM(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatal(err)
	}
	if w != 2 || h != 1 || buf[0] != 0 || buf[1] != 1 {
		t.Errorf("got %dx%d %v", w, h, buf)
	}
}

func TestReadPGMMalformed(t *testing.T) {
	for _, s := range []string{"P6 1 1 255 x", "P5 -1 1 255 x", "P5 1 1 70000 xx", "P5 2 2 255 x"} {
		if _, _, _, err := readPGM(bufio.NewReader(bytes.NewReader([]byte(s)))); err == nil {
			t.Errorf("%q: expected an error", s)
		}
	}
}

func TestReadPGMTooLarge(t *testing.T) {
	for _, s := range []string{
		"P5 100000 100000 255 x",
		"P5 9223372036854775807 2 65535 x",
	} {
		_, _, _, err := readPGM(bufio.NewReader(strings.NewReader(s)))
		if err == nil || !strings.Contains(err.Error(), "too large") {
			t.Errorf("%q: got %v", s, err)
		}
	}
}

func TestWriteTIFF(t *testing.T) {
	const w, h = 4, 3
	rgb := make([]float32, 4*w*h)
	for i := range w * h {
		rgb[4*i] = 1
		rgb[4*i+1] = 0.5
		rgb[4*i+2] = -0.1
	}
	fname := filepath.Join(t.TempDir(), "out.tiff")
	if err := writeTIFF(fname, rgb, w, h); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := tiff.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b != image.Rect(0, 0, w, h) {
		t.Fatalf("bounds %v", b)
	}
	r, g, b, _ := img.At(1, 1).RGBA()
	if r != 0xffff || g != 0x8000 || b != 0 {
		t.Errorf("pixel (%d, %d, %d), want (65535, 32768, 0)", r, g, b)
	}
}

func TestFindCase(t *testing.T) {
	names := caseNames()
	if len(names) == 0 {
		t.Fatal("no cases")
	}
	for _, name := range names {
		if _, ok := findCase(name); !ok {
			t.Errorf("case %q not found", name)
		}
	}
	if _, ok := findCase("circle_nonexistent"); ok {
		t.Error("found nonexistent case")
	}
}

func TestSplitNaN(t *testing.T) {
	nan := float32(math.NaN())
	xy := []float32{0, 0, 1, 1, nan, nan, 2, 2, 3, 3, 4, 4}
	parts := splitNaN(xy)
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 6 {
		t.Errorf("got %v", parts)
	}
}

func TestDrawOutlines(t *testing.T) {
	tc, ok := findCase("circle_centered")
	if !ok {
		t.Fatal("missing case")
	}
	p, f := tc.Setup()
	c := raster.NewCanvas(tc.Width, tc.Height)
	if err := drawOutlines(c, p, f); err != nil {
		t.Fatal(err)
	}
	// The circle has radius 16 around (32, 32).
	if v := c.Pix[32*tc.Width+48]; v < 0.3 {
		t.Errorf("outline missing at (48, 32): %g", v)
	}
	if v := c.Pix[32*tc.Width+32]; v != 0 {
		t.Errorf("centre painted: %g", v)
	}
}

func TestRunDemosaic(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pgm")
	out := filepath.Join(dir, "out.tiff")

	const w, h = 16, 12
	var pgm bytes.Buffer
	pgm.WriteString("P5\n16 12\n255\n")
	for range w * h {
		pgm.WriteByte(128)
	}
	if err := os.WriteFile(in, pgm.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	err := runDemosaic([]string{"-method", "ppg", "-o", out, in})
	if err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := tiff.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	want := uint32(math.Round(128.0 / 255 * 65535))
	r, g, b, _ := img.At(w/2, h/2).RGBA()
	for _, v := range []uint32{r, g, b} {
		if v+1 < want || v > want+1 {
			t.Errorf("pixel (%d, %d, %d), want %d", r, g, b, want)
			break
		}
	}
}
