// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diag

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// ColorMode selects when output is colored.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode parses auto, always or never. The empty string is auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(s)); m {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	}
	return "", fmt.Errorf("unknown color mode %q (want auto, always or never)", s)
}

var isTerminalFn = term.IsTerminal

// Enabled reports whether output to f should be colored. Auto mode colors
// only a terminal, and never when NO_COLOR is set or TERM is dumb.
func (m ColorMode) Enabled(f *os.File) bool {
	switch m {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if t := os.Getenv("TERM"); t == "" || t == "dumb" {
		return false
	}
	return f != nil && isTerminalFn(int(f.Fd()))
}

// palette holds the colors used by a Printer.
type palette struct {
	err      *color.Color
	primary  *color.Color
	previous *color.Color
	hint     *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:      color.New(color.FgRed, color.Bold),
		primary:  color.New(color.FgRed),
		previous: color.New(color.FgYellow),
		hint:     color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{p.err, p.primary, p.previous, p.hint} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}
