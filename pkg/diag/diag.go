// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diag renders parse failures and control signals for people.
//
// A rendered failure is the message, the command line echoed back with
// the offending tokens underlined, and a hint naming the help command:
//
//	error: unknown option '--bogus'
//	  build --bogus pkg
//	        ^^^^^^^
//	Run 'tool build --help' for usage.
package diag

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/command"
	"github.com/yeetrun/argtree/pkg/origin"
	"github.com/yeetrun/argtree/pkg/parseerr"
)

const (
	primaryMark  = '^'
	previousMark = '~'
)

// Printer renders errors for one command line.
type Printer struct {
	// Argv is the command line that was parsed, without the program name.
	Argv []string
	// Conv is used when the error does not carry its own convention.
	Conv  argname.Convention
	Color bool
}

// Render writes the rendering of err to w.
func (p Printer) Render(w io.Writer, err error) error {
	_, werr := io.WriteString(w, p.String(err))
	return werr
}

// String returns the rendering of err.
func (p Printer) String(err error) string {
	if err == nil {
		return ""
	}
	pal := newPalette(p.Color)
	var b strings.Builder

	primary, previous := origins(err)
	if command.IsControl(err) {
		fmt.Fprintln(&b, err.Error())
	} else {
		fmt.Fprintf(&b, "%s %s\n", pal.err.Sprint("error:"), err.Error())
	}
	if line, under, ok := echo(p.Argv, p.conv(err), primary, previous); ok {
		fmt.Fprintf(&b, "  %s\n  %s\n", line, colorMarks(under, pal))
	}
	if hint := p.hint(err); hint != "" {
		fmt.Fprintln(&b, pal.hint.Sprint(hint))
	}
	return b.String()
}

func (p Printer) conv(err error) argname.Convention {
	if pe, ok := parseerr.As(err); ok && pe.Conv != (argname.Convention{}) {
		return pe.Conv
	}
	return p.Conv
}

// hint names the help flag of the command the failure happened in.
func (p Printer) hint(err error) string {
	pe, ok := parseerr.As(err)
	if !ok || pe.Kind == parseerr.InvalidDeclaration || len(pe.Path) == 0 {
		return ""
	}
	return fmt.Sprintf("Run '%s %shelp' for usage.", strings.Join(pe.Path, " "), p.conv(err).LongPrefix())
}

// origins returns the positions err points at, and for a conflicting
// value the positions of the earlier binding.
func origins(err error) (primary, previous origin.Origin) {
	if pe, ok := parseerr.As(err); ok {
		return pe.Origin, pe.Previous
	}
	var (
		help *command.HelpRequest
		ver  *command.VersionRequest
		comp *command.CompletionRequest
		dump *command.DumpHelpRequest
	)
	switch {
	case errors.As(err, &help):
		return help.Origin, origin.Origin{}
	case errors.As(err, &ver):
		return ver.Origin, origin.Origin{}
	case errors.As(err, &comp):
		return comp.Origin, origin.Origin{}
	case errors.As(err, &dump):
		return dump.Origin, origin.Origin{}
	}
	return origin.Origin{}, origin.Origin{}
}

// display is how an argument is echoed: quoted when it would not read
// back as one word.
func display(arg string) string {
	if arg == "" || strings.ContainsAny(arg, " \t\n\"'\\") {
		return strconv.Quote(arg)
	}
	return arg
}

// echo lays out argv on one line and returns a second line marking the
// tokens in primary and previous. A cluster piece is marked at its own
// character. It reports false when there is nothing to mark.
func echo(argv []string, conv argname.Convention, primary, previous origin.Origin) (line, under string, ok bool) {
	if primary.IsEmpty() && previous.IsEmpty() {
		return "", "", false
	}
	shown := make([]string, len(argv))
	cols := make([]int, len(argv))
	col := 0
	for i, arg := range argv {
		if i > 0 {
			col++
		}
		shown[i] = display(arg)
		cols[i] = col
		col += utf8.RuneCountInString(shown[i])
	}
	marks := []rune(strings.Repeat(" ", col))
	marked := false
	mark := func(o origin.Origin, c rune) {
		for _, pos := range o.Positions() {
			if pos.Input < 0 || pos.Input >= len(argv) {
				continue
			}
			start, width := cols[pos.Input], utf8.RuneCountInString(shown[pos.Input])
			if !pos.IsComplete() && shown[pos.Input] == argv[pos.Input] {
				if off := utf8.RuneCountInString(conv.ShortPrefix()) + pos.Sub; off < width {
					start, width = start+off, 1
				}
			}
			for j := start; j < start+width; j++ {
				marks[j] = c
			}
			marked = true
		}
	}
	mark(previous, previousMark)
	mark(primary, primaryMark)
	if !marked {
		return "", "", false
	}
	return strings.Join(shown, " "), strings.TrimRight(string(marks), " "), true
}

// colorMarks colors each run of marks.
func colorMarks(under string, pal palette) string {
	var b strings.Builder
	runes := []rune(under)
	for i := 0; i < len(runes); {
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		run := string(runes[i:j])
		switch runes[i] {
		case primaryMark:
			b.WriteString(pal.primary.Sprint(run))
		case previousMark:
			b.WriteString(pal.previous.Sprint(run))
		default:
			b.WriteString(run)
		}
		i = j
	}
	return b.String()
}
