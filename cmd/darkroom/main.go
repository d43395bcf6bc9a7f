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

// Command darkroom demosaics raw mosaics and renders drawn masks.
//
// Usage:
//
//	darkroom demosaic [options] -o out.tiff in.pgm
//	darkroom mask [options] -o out.png case
//
// The demosaic input is a single channel PGM or 16-bit greyscale PNG
// holding the raw photosite values. The mask command renders one of the
// built-in test scenarios, optionally with the shape outlines drawn on
// top.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"seehuhn.de/go/darkroom"
)

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "demosaic":
		err = runDemosaic(args)
	case "mask":
		err = runMask(args)
	default:
		fmt.Fprintf(os.Stderr, "darkroom: unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "darkroom: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: darkroom <command> [options] <input>\n\n")
	fmt.Fprintf(os.Stderr, "commands:\n")
	fmt.Fprintf(os.Stderr, "  demosaic   convert a raw mosaic to a 16-bit RGB TIFF\n")
	fmt.Fprintf(os.Stderr, "  mask       render a mask test scenario to PNG\n")
	fmt.Fprintf(os.Stderr, "\nRun 'darkroom <command> -h' for the options of a command.\n")
}

// setupLogging installs a text logger on stderr for the darkroom
// packages.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	darkroom.SetLogger(slog.New(h))
}
