// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command argtrace shows how a declared command tree parses a command line.
//
// The tree is loaded from a TOML or YAML spec file. Arguments after the
// first "--" are the command line under inspection:
//
//	argtrace parse --spec tool.toml -- build -vv --tag a,b pkg
//	argtrace tokens -- -vDfoo --name=x
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shayne/yargs"
	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/cli"
	"github.com/yeetrun/argtree/pkg/diag"
	"go.uber.org/zap"
)

// app carries what every subcommand handler needs.
type app struct {
	cfg    cli.Config
	color  diag.ColorMode
	log    *zap.Logger
	stdout io.Writer
	stderr io.Writer
	// target is everything after the first "--" on argtrace's own
	// command line.
	target    []string
	hasTarget bool
}

// exitError reports a failure that has already been printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	own, target := cli.SplitTarget(args)
	hasTarget := len(own) < len(args)

	globals, remaining, err := cli.ParseGlobalFlags(own)
	if err != nil {
		printCLIError(stderr, err)
		return 2
	}
	cfg, err := cli.LoadConfig(cli.LoadOptions{ExplicitFilePath: globals.Config})
	if err != nil {
		printCLIError(stderr, err)
		return 2
	}
	if globals.Color != "" {
		cfg.Color = globals.Color
	}
	color, err := diag.ParseColorMode(cfg.Color)
	if err != nil {
		printCLIError(stderr, err)
		return 2
	}
	logger, err := cli.NewLogger(globals.Debug)
	if err != nil {
		printCLIError(stderr, err)
		return 2
	}
	defer logger.Sync()

	a := &app{
		cfg:       cfg,
		color:     color,
		log:       logger,
		stdout:    stdout,
		stderr:    stderr,
		target:    target,
		hasTarget: hasTarget,
	}
	handlers := map[string]yargs.SubcommandHandler{
		cli.CommandParse:  a.handleParse,
		cli.CommandTokens: a.handleTokens,
		cli.CommandCheck:  a.handleCheck,
		cli.CommandBatch:  a.handleBatch,
	}
	err = yargs.RunSubcommands(ctx, remaining, cli.HelpConfig(), cli.GlobalFlags{}, handlers)
	var exit *exitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exit):
		return exit.code
	default:
		printCLIError(stderr, err)
		return 2
	}
}

func printCLIError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "argtrace: %v\n", err)
}

func (a *app) convention(flag string) (argname.Convention, error) {
	name := a.cfg.Convention
	if flag != "" {
		name = flag
	}
	return argname.ParseConvention(name)
}

// colorFor reports whether output to w is colored.
func (a *app) colorFor(w io.Writer) bool {
	f, _ := w.(*os.File)
	return a.color.Enabled(f)
}
