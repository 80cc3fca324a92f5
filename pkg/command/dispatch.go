// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package command

import (
	"errors"

	"github.com/yeetrun/argtree/pkg/argdef"
	"github.com/yeetrun/argtree/pkg/match"
	"github.com/yeetrun/argtree/pkg/origin"
	"github.com/yeetrun/argtree/pkg/parseerr"
	"github.com/yeetrun/argtree/pkg/split"
	"go.uber.org/zap"
)

// frame is a command visited during descent.
type frame struct {
	node    *node
	set     *argdef.Set
	values  *argdef.Values
	decoded any
}

type dispatcher struct {
	log  *zap.Logger
	args *split.Arguments
}

// Parse parses argv, which excludes the program name. On failure the error
// is either a control signal (see IsControl) or a *parseerr.Error carrying
// the command path reached.
func (p *Parser) Parse(argv []string) (*Result, error) {
	root, err := buildTree(p.root)
	if err != nil {
		return nil, err
	}
	args, err := split.Split(argv, p.conv)
	if err != nil {
		return nil, parseerr.WithPath(err, root.path())
	}
	d := &dispatcher{log: p.log, args: args}
	return d.run(root)
}

func (d *dispatcher) run(root *node) (*Result, error) {
	var stack []*frame
	n := root
	for {
		f, err := d.visit(n, stack)
		if err != nil {
			return nil, err
		}
		stack = append(stack, f)

		if e, ok := d.args.FirstValue(); ok && n.isSubcommand(e.Value) {
			if c, found := n.child(e.Value); found {
				d.args.Remove(e.Pos)
				d.log.Debug("descending", zap.Strings("path", n.path()), zap.String("subcommand", c.name()))
				n = c
				continue
			}
			if e.Value == helpCommand && n.hasHelpCommand() {
				return nil, d.control(helpCommandRequest(n, d.args, e))
			}
		}

		if err := checkBuiltins(n, d.args); err != nil {
			return nil, d.control(err)
		}

		if c := n.defaultChild(); c != nil {
			d.log.Debug("using default subcommand", zap.Strings("path", n.path()), zap.String("subcommand", c.name()))
			n = c
			continue
		}
		break
	}

	if err := d.claimForAncestors(stack); err != nil {
		return nil, err
	}
	if err := d.leftovers(); err != nil {
		return nil, parseerr.WithPath(err, n.path())
	}

	res := &Result{Path: n.path()}
	for _, f := range stack {
		res.Commands = append(res.Commands, Decoded{Name: f.node.name(), Value: f.decoded, Values: f.values})
	}
	res.Command = stack[len(stack)-1].decoded
	d.log.Debug("parsed", zap.Strings("path", res.Path))
	return res, nil
}

// visit matches and decodes n. The commands already on stack may claim
// their options before n's positionals are bound. A failure is reported
// as a built-in request instead when the remaining input holds one.
func (d *dispatcher) visit(n *node, stack []*frame) (*frame, error) {
	set, err := n.arguments()
	if err != nil {
		return nil, parseerr.WithPath(err, n.path())
	}
	values, err := match.Parse(set, d.args, match.Options{
		IsSubcommand: n.isSubcommand,
		CapturesAll:  n.defaultCapturesAll(),
		Ancestors:    d.ancestors(stack),
	})
	if err != nil {
		return nil, d.fail(n, err)
	}
	f := &frame{node: n, set: set, values: values}
	if err := f.decode(); err != nil {
		return nil, d.fail(n, err)
	}
	d.log.Debug("matched command",
		zap.Strings("path", n.path()),
		zap.Strings("keys", keyStrings(values)),
		zap.Int("remaining", d.args.Len()))
	return f, nil
}

// ancestors offers the frames on stack to the matcher, nearest first.
func (d *dispatcher) ancestors(stack []*frame) []match.Ancestor {
	out := make([]match.Ancestor, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		f := stack[i]
		out = append(out, match.Ancestor{
			Set:    f.set,
			Values: f.values,
			Path:   f.node.path(),
			Claimed: func() error {
				d.log.Debug("ancestor claimed input", zap.Strings("path", f.node.path()))
				return f.decode()
			},
		})
	}
	return out
}

func (d *dispatcher) fail(n *node, err error) error {
	if ctl := checkBuiltins(n, d.args); ctl != nil {
		return d.control(ctl)
	}
	return parseerr.WithPath(err, n.path())
}

func (d *dispatcher) control(err error) error {
	d.log.Debug("control signal", zap.Error(err))
	return err
}

func (f *frame) decode() error {
	if f.node.spec.Binder == nil {
		f.decoded = nil
		return nil
	}
	v, err := f.node.spec.Binder.Decode(f.set, f.values)
	if err != nil {
		return err
	}
	if val, ok := v.(Validator); ok {
		if err := val.Validate(); err != nil {
			var pe *parseerr.Error
			if errors.As(err, &pe) {
				return err
			}
			return &parseerr.Error{Kind: parseerr.UserValidation, Err: err}
		}
	}
	f.decoded = v
	return nil
}

// claimForAncestors offers the remaining tokens to each command above the
// selected one, nearest first. An ancestor that claims anything is decoded
// again. Errors carry the path of the ancestor that failed.
func (d *dispatcher) claimForAncestors(stack []*frame) error {
	for i := len(stack) - 2; i >= 0; i-- {
		if d.args.Len() == 0 {
			return nil
		}
		f := stack[i]
		claimed, err := match.ClaimNamed(f.set, d.args, f.values)
		if err != nil {
			return parseerr.WithPath(err, f.node.path())
		}
		if !claimed {
			continue
		}
		d.log.Debug("ancestor claimed input", zap.Strings("path", f.node.path()))
		if err := f.decode(); err != nil {
			return parseerr.WithPath(err, f.node.path())
		}
	}
	return nil
}

// leftovers reports the first unclaimed option, or else every unclaimed
// value.
func (d *dispatcher) leftovers() error {
	left := d.args.Leftovers()
	if len(left) == 0 {
		return nil
	}
	conv := d.args.Convention()
	for _, e := range left {
		if e.IsOption() {
			return &parseerr.Error{
				Kind:   parseerr.UnknownOption,
				Origin: origin.New(e.Pos),
				Name:   e.Option.Name,
				Conv:   conv,
				Value:  d.args.Spelling(e),
			}
		}
	}
	pe := &parseerr.Error{Kind: parseerr.UnexpectedExtraValues, Conv: conv}
	for _, e := range left {
		o := origin.New(e.Pos)
		pe.Origin = pe.Origin.Union(o)
		pe.Extra = append(pe.Extra, parseerr.ExtraValue{Origin: o, Value: e.Value})
	}
	return pe
}

func keyStrings(v *argdef.Values) []string {
	keys := v.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
