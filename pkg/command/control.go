// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package command

import (
	"errors"
	"strings"

	"github.com/yeetrun/argtree/pkg/argdef"
	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/origin"
	"github.com/yeetrun/argtree/pkg/split"
)

// Sentinels matched by the control signals, for use with errors.Is.
var (
	// ErrHelp is matched by a *HelpRequest (--help, -h, -help, --help-hidden
	// or the "help" pseudo-subcommand).
	ErrHelp = errors.New("help requested")

	// ErrVersion is matched by a *VersionRequest.
	ErrVersion = errors.New("version requested")

	// ErrCompletion is matched by a *CompletionRequest.
	ErrCompletion = errors.New("completion script requested")

	// ErrDumpHelp is matched by a *DumpHelpRequest.
	ErrDumpHelp = errors.New("help dump requested")
)

// HelpRequest asks for help on the command at Path.
type HelpRequest struct {
	Path       []string
	Visibility argdef.Visibility
	Origin     origin.Origin
}

func (r *HelpRequest) Error() string { return "help requested for " + strings.Join(r.Path, " ") }

func (r *HelpRequest) Is(target error) bool { return target == ErrHelp }

// VersionRequest asks for the version of the command at Path.
type VersionRequest struct {
	Path    []string
	Version string
	Origin  origin.Origin
}

func (r *VersionRequest) Error() string { return "version requested: " + r.Version }

func (r *VersionRequest) Is(target error) bool { return target == ErrVersion }

// CompletionRequest asks for a shell completion script. Shell is empty when
// none was named.
type CompletionRequest struct {
	Path   []string
	Shell  string
	Origin origin.Origin
}

func (r *CompletionRequest) Error() string {
	if r.Shell == "" {
		return "completion script requested"
	}
	return "completion script requested for " + r.Shell
}

func (r *CompletionRequest) Is(target error) bool { return target == ErrCompletion }

// DumpHelpRequest asks for a machine-readable dump of the command tree
// below Path.
type DumpHelpRequest struct {
	Path   []string
	Origin origin.Origin
}

func (r *DumpHelpRequest) Error() string { return "help dump requested for " + strings.Join(r.Path, " ") }

func (r *DumpHelpRequest) Is(target error) bool { return target == ErrDumpHelp }

// IsControl reports whether err is a control signal rather than a parse
// failure.
func IsControl(err error) bool {
	return errors.Is(err, ErrHelp) ||
		errors.Is(err, ErrVersion) ||
		errors.Is(err, ErrCompletion) ||
		errors.Is(err, ErrDumpHelp)
}

type builtin uint8

const (
	noBuiltin builtin = iota
	builtinHelp
	builtinHelpHidden
	builtinVersion
	builtinDumpHelp
	builtinCompletion
)

func builtinFor(n argname.Name) builtin {
	switch n.Kind() {
	case argname.KindShort:
		if n.Rune() == 'h' {
			return builtinHelp
		}
	case argname.KindLongWithSingleDash:
		if n.Base() == "help" {
			return builtinHelp
		}
	case argname.KindLong:
		switch n.Base() {
		case "help":
			return builtinHelp
		case "help-hidden":
			return builtinHelpHidden
		case "version":
			return builtinVersion
		case "experimental-dump-help":
			return builtinDumpHelp
		case "generate-completion-script":
			return builtinCompletion
		}
	}
	return noBuiltin
}

// checkBuiltins looks through the live options for a built-in request
// that no command from the root to n declares itself. Options after a
// terminator are values and never count.
func checkBuiltins(n *node, args *split.Arguments) error {
	for i, ok := args.Next(-1); ok; i, ok = args.Next(i) {
		e := args.At(i)
		if e.IsTerminator() {
			return nil
		}
		if !e.IsOption() {
			continue
		}
		b := builtinFor(e.Option.Name)
		if b == noBuiltin || n.declares(e.Option.Name) {
			continue
		}
		at := origin.New(e.Pos)
		switch b {
		case builtinHelp:
			return &HelpRequest{Path: n.path(), Visibility: argdef.Visible, Origin: at}
		case builtinHelpHidden:
			return &HelpRequest{Path: n.path(), Visibility: argdef.Hidden, Origin: at}
		case builtinVersion:
			if v := n.version(); v != "" {
				return &VersionRequest{Path: n.path(), Version: v, Origin: at}
			}
		case builtinDumpHelp:
			return &DumpHelpRequest{Path: n.path(), Origin: at}
		case builtinCompletion:
			shell := e.Option.Value
			if !e.Option.HasValue {
				if j, ok := args.Next(i); ok && args.At(j).IsValue() {
					shell = args.At(j).Value
					at.Insert(args.At(j).Pos)
				}
			}
			return &CompletionRequest{Path: n.path(), Shell: shell, Origin: at}
		}
	}
	return nil
}

// helpCommandRequest resolves "help a b" at the root to a help request
// for the deepest command named by the values following "help".
func helpCommandRequest(root *node, args *split.Arguments, at split.Element) *HelpRequest {
	o := origin.New(at.Pos)
	n := root
	i, _ := args.IndexOf(at.Pos)
	for j, ok := args.Next(i); ok; j, ok = args.Next(j) {
		e := args.At(j)
		if !e.IsValue() {
			continue
		}
		c, found := n.child(e.Value)
		if !found {
			break
		}
		o.Insert(e.Pos)
		n = c
	}
	return &HelpRequest{Path: n.path(), Visibility: argdef.Visible, Origin: o}
}
