// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package command parses a command line against a tree of subcommands.
//
// Each node of the tree declares its arguments through a Binder. Parsing
// walks the tree from the root: at every node the node's arguments are
// matched leniently against the remaining tokens, the bound values are
// decoded, and the next value token selects the child to descend into.
// Tokens nobody claimed are reported only once the walk ends.
//
// Help, version, completion and help-dump requests are not errors. They are
// returned as control signals (see HelpRequest) that win over any parse
// error at the node where they are found.
package command

import (
	"github.com/yeetrun/argtree/pkg/argdef"
	"github.com/yeetrun/argtree/pkg/argname"
	"go.uber.org/zap"
)

// Binder declares a command's arguments and decodes bound values into the
// command's value.
type Binder interface {
	Arguments() (*argdef.Set, error)
	Decode(set *argdef.Set, values *argdef.Values) (any, error)
}

// Validator is implemented by decoded command values that check themselves
// after decoding.
type Validator interface {
	Validate() error
}

// Spec declares one command and its subcommands.
type Spec struct {
	Name     string
	Aliases  []string
	Abstract string
	// Version is reported by --version for this command and its
	// descendants.
	Version string
	// Binder may be nil for a command without arguments.
	Binder      Binder
	Subcommands []*Spec
	// Default names the subcommand used when no subcommand is given.
	Default string
	Hidden  bool
}

// Static is a Binder over a fixed argument set. Its decoded value is the
// bound *argdef.Values.
type Static struct {
	Set *argdef.Set
}

func (s Static) Arguments() (*argdef.Set, error) { return s.Set, nil }

func (s Static) Decode(_ *argdef.Set, v *argdef.Values) (any, error) { return v, nil }

// Decoded is the outcome at one node of the parsed path.
type Decoded struct {
	Name   string
	Value  any
	Values *argdef.Values
}

// Result is a successful parse.
type Result struct {
	// Path lists command names from the root to the selected command.
	Path []string
	// Command is the decoded value of the selected command.
	Command any
	// Commands holds the decoded value of every command on Path.
	Commands []Decoded
}

// Parser parses command lines for one command tree.
type Parser struct {
	root *Spec
	conv argname.Convention
	log  *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithConvention sets the prefix convention. The default is POSIX.
func WithConvention(c argname.Convention) Option {
	return func(p *Parser) { p.conv = c }
}

// WithLogger sets the logger used for debug tracing of the descent.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.log = l
		}
	}
}

// New returns a Parser for the tree rooted at root, after checking the
// tree's declarations.
func New(root *Spec, opts ...Option) (*Parser, error) {
	p := &Parser{root: root, conv: argname.POSIX, log: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	if _, err := buildTree(root); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse parses argv, which excludes the program name.
func Parse(root *Spec, argv []string, opts ...Option) (*Result, error) {
	p, err := New(root, opts...)
	if err != nil {
		return nil, err
	}
	return p.Parse(argv)
}

// Root returns the root declaration.
func (p *Parser) Root() *Spec { return p.root }

// Convention returns the prefix convention p splits with.
func (p *Parser) Convention() argname.Convention { return p.conv }
