// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yeetrun/argtree/pkg/cli"
	"github.com/yeetrun/argtree/pkg/command"
	"github.com/yeetrun/argtree/pkg/diag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// batchLine is one command line read from a batch file.
type batchLine struct {
	Line int
	Argv []string
}

// batchEntry is the structured output for one batch line.
type batchEntry struct {
	Line   int     `json:"line" yaml:"line"`
	Report *report `json:"report" yaml:"report"`
}

// readBatch reads one command line per line of r. Blank lines and lines
// starting with '#' are skipped.
func readBatch(r io.Reader) ([]batchLine, error) {
	var lines []batchLine
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		argv, err := splitWords(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		lines = append(lines, batchLine{Line: n, Argv: argv})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// splitWords splits s at unquoted whitespace. Single and double quotes
// group words; a backslash escapes the next character outside single
// quotes. Quotes make an empty word possible.
func splitWords(s string) ([]string, error) {
	var (
		words   []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, c := range s {
		switch {
		case escaped:
			cur.WriteRune(c)
			escaped = false
		case c == '\\' && quote != '\'':
			escaped, inWord = true, true
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteRune(c)
			}
		case c == '\'' || c == '"':
			quote, inWord = c, true
		case c == ' ' || c == '\t':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(c)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}

// parseBatch parses every line with p, at most jobs at a time. Reports are
// returned in input order.
func parseBatch(ctx context.Context, p *command.Parser, lines []batchLine, jobs int, log *zap.Logger) ([]*report, error) {
	reports := make([]*report, len(lines))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, l := range lines {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := p.Parse(l.Argv)
			reports[i] = newReport(l.Argv, res, err)
			if reports[i].failed() {
				log.Debug("line failed", zap.Int("line", l.Line), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (a *app) handleBatch(ctx context.Context, args []string) error {
	flags, rest, err := cli.ParseBatch(cli.StripCommand(cli.CommandBatch, args))
	if err != nil {
		return err
	}
	if err := cli.RequireArgsAtLeast(cli.CommandBatch, rest, 1); err != nil {
		return err
	}
	cfg := a.cfg.Override(flags.Spec, flags.Format, flags.Convention, flags.Jobs)
	parser, conv, err := a.loadParser(cfg)
	if err != nil {
		return err
	}

	f, err := os.Open(rest[0])
	if err != nil {
		return err
	}
	lines, err := readBatch(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", rest[0], err)
	}
	reports, err := parseBatch(ctx, parser, lines, cfg.Jobs, a.log)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if r.failed() {
			failed++
		}
	}
	switch cfg.Format {
	case formatJSON, formatYAML:
		entries := make([]batchEntry, len(reports))
		for i, r := range reports {
			entries[i] = batchEntry{Line: lines[i].Line, Report: r}
		}
		if err := writeValue(a.stdout, cfg.Format, entries); err != nil {
			return err
		}
	default:
		color := a.colorFor(a.stdout)
		for i, r := range reports {
			fmt.Fprintf(a.stdout, "== line %d: %s\n", lines[i].Line, strings.Join(r.Argv, " "))
			if r.failed() {
				diag.Printer{Argv: r.Argv, Conv: conv, Color: color}.Render(a.stdout, r.err)
				continue
			}
			if err := writeText(a.stdout, r); err != nil {
				return err
			}
		}
		fmt.Fprintf(a.stdout, "%d lines, %d failed\n", len(reports), failed)
	}
	if failed > 0 {
		return &exitError{code: 1}
	}
	return nil
}
