// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/cli"
	"github.com/yeetrun/argtree/pkg/command"
	"github.com/yeetrun/argtree/pkg/diag"
	"github.com/yeetrun/argtree/pkg/parseerr"
	"github.com/yeetrun/argtree/pkg/split"
	"github.com/yeetrun/argtree/pkg/treespec"
	"go.uber.org/zap"
)

var errNoSpec = errors.New("no tree spec: pass --spec or set ARGTRACE_SPEC")

// loadParser loads the tree spec named by cfg. Declaration errors are
// printed and turned into an exit status.
func (a *app) loadParser(cfg cli.Config) (*command.Parser, argname.Convention, error) {
	if cfg.Spec == "" {
		return nil, argname.Convention{}, errNoSpec
	}
	conv, err := argname.ParseConvention(cfg.Convention)
	if err != nil {
		return nil, argname.Convention{}, err
	}
	spec, err := treespec.LoadSpec(cfg.Spec, conv)
	if err == nil {
		var p *command.Parser
		p, err = command.New(spec, command.WithConvention(conv), command.WithLogger(a.log))
		if err == nil {
			a.log.Debug("loaded tree spec", zap.String("path", cfg.Spec), zap.Stringer("convention", conv))
			return p, conv, nil
		}
	}
	if parseerr.KindOf(err) == parseerr.InvalidDeclaration {
		fmt.Fprintf(a.stderr, "%s: ", cfg.Spec)
		diag.Printer{Conv: conv, Color: a.colorFor(a.stderr)}.Render(a.stderr, err)
		return nil, conv, &exitError{code: 1}
	}
	return nil, conv, err
}

// commandLine rebuilds the inspected command line from the words after
// argtrace's own flags and the words after the first "--".
func (a *app) commandLine(rest []string) []string {
	argv := append([]string{}, rest...)
	if a.hasTarget && len(rest) > 0 {
		argv = append(argv, "--")
	}
	return append(argv, a.target...)
}

func (a *app) handleParse(ctx context.Context, args []string) error {
	flags, rest, err := cli.ParseParse(cli.StripCommand(cli.CommandParse, args))
	if err != nil {
		return err
	}
	cfg := a.cfg.Override(flags.Spec, flags.Format, flags.Convention, 0)
	parser, conv, err := a.loadParser(cfg)
	if err != nil {
		return err
	}
	argv := a.commandLine(rest)
	res, perr := parser.Parse(argv)
	r := newReport(argv, res, perr)
	if err := writeReport(a.stdout, cfg.Format, r); err != nil {
		return err
	}
	if r.failed() {
		if cfg.Format == formatText || cfg.Format == "" {
			diag.Printer{Argv: argv, Conv: conv, Color: a.colorFor(a.stderr)}.Render(a.stderr, perr)
		}
		return &exitError{code: 1}
	}
	if r.Control != nil && (cfg.Format == formatText || cfg.Format == "") {
		// Echo the command line with the token that asked for it.
		if line := (diag.Printer{Argv: argv, Conv: conv}).String(perr); line != "" {
			io.WriteString(a.stdout, dropFirstLine(line))
		}
	}
	return nil
}

func dropFirstLine(s string) string {
	_, rest, _ := strings.Cut(s, "\n")
	return rest
}

// tokenReport is one token of a split command line.
type tokenReport struct {
	Pos      string `json:"pos" yaml:"pos"`
	Kind     string `json:"kind" yaml:"kind"`
	Spelling string `json:"spelling" yaml:"spelling"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
	Joined   bool   `json:"joined,omitempty" yaml:"joined,omitempty"`
}

func tokenReports(args *split.Arguments) []tokenReport {
	var out []tokenReport
	for _, e := range args.Elements() {
		t := tokenReport{
			Pos:      e.Pos.String(),
			Kind:     e.Kind.String(),
			Spelling: args.Spelling(e),
		}
		switch {
		case e.IsOption():
			t.Name = e.Option.Name.Synopsis(args.Convention())
			if e.Option.HasValue {
				t.Value = e.Option.Value
			} else if v, ok := args.JoinedValue(e); ok {
				t.Value, t.Joined = v, true
			}
		case e.IsValue():
			t.Value = e.Value
		}
		out = append(out, t)
	}
	return out
}

func (a *app) handleTokens(ctx context.Context, args []string) error {
	flags, rest, err := cli.ParseTokens(cli.StripCommand(cli.CommandTokens, args))
	if err != nil {
		return err
	}
	cfg := a.cfg.Override("", flags.Format, flags.Convention, 0)
	conv, err := argname.ParseConvention(cfg.Convention)
	if err != nil {
		return err
	}
	argv := a.commandLine(rest)
	toks, err := split.Split(argv, conv)
	if err != nil {
		diag.Printer{Argv: argv, Conv: conv, Color: a.colorFor(a.stderr)}.Render(a.stderr, err)
		return &exitError{code: 1}
	}
	tokens := tokenReports(toks)
	switch cfg.Format {
	case formatJSON, formatYAML:
		return writeValue(a.stdout, cfg.Format, tokens)
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tKIND\tTOKEN\tNAME\tVALUE")
	for _, t := range tokens {
		value := t.Value
		if t.Joined {
			value += " (joined)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Pos, t.Kind, t.Spelling, t.Name, value)
	}
	return tw.Flush()
}

func (a *app) handleCheck(ctx context.Context, args []string) error {
	flags, rest, err := cli.ParseCheck(cli.StripCommand(cli.CommandCheck, args))
	if err != nil {
		return err
	}
	cfg := a.cfg.Override(flags.Spec, "", flags.Convention, 0)
	paths := rest
	if len(paths) == 0 {
		if cfg.Spec == "" {
			return errNoSpec
		}
		paths = []string{cfg.Spec}
	}
	failed := 0
	for _, path := range paths {
		c := cfg
		c.Spec = path
		if _, _, err := a.loadParser(c); err != nil {
			var exit *exitError
			if !errors.As(err, &exit) {
				printCLIError(a.stderr, err)
			}
			failed++
			continue
		}
		fmt.Fprintf(a.stdout, "ok  %s\n", path)
	}
	if failed > 0 {
		return &exitError{code: 1}
	}
	return nil
}
