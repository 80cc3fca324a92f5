// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package match binds tokens to the arguments of a single command.
//
// Matching is lenient: tokens no definition claims are left in place so a
// parent or child command can claim them later. Only the dispatcher in
// package command decides when a leftover is an error.
package match

import (
	"errors"

	"github.com/yeetrun/argtree/pkg/argdef"
	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/origin"
	"github.com/yeetrun/argtree/pkg/parseerr"
	"github.com/yeetrun/argtree/pkg/split"
)

// Options tunes a match.
type Options struct {
	// IsSubcommand reports whether a value names a subcommand that should
	// be descended into. The named pass stops at such a value and the
	// positional pass does not look past it.
	IsSubcommand func(value string) bool

	// CapturesAll forces pass-through mode, as when the command's default
	// subcommand captures all remaining input.
	CapturesAll bool

	// Ancestors are the commands above this one, nearest first. They may
	// claim their named arguments after this command's named pass and
	// before its positionals are bound.
	Ancestors []Ancestor
}

// Ancestor is a command above the one being matched.
type Ancestor struct {
	Set    *argdef.Set
	Values *argdef.Values
	// Path names the ancestor in errors.
	Path []string
	// Claimed is called after the ancestor claimed at least one token.
	Claimed func() error
}

func (o Options) isSubcommand(v string) bool {
	return o.IsSubcommand != nil && o.IsSubcommand(v)
}

// Parse seeds values from set's initial functions, then claims named
// arguments and positionals from args. Claimed tokens are removed from
// args; everything else is left for the caller.
func Parse(set *argdef.Set, args *split.Arguments, opts Options) (*argdef.Values, error) {
	values := argdef.NewValues(args.Original())
	if err := set.Initialize(values); err != nil {
		return nil, err
	}
	m := &matcher{
		set:     set,
		args:    args,
		values:  values,
		capture: opts.CapturesAll || set.CapturesAll(),
		isSub:   opts.isSubcommand,
	}
	stop, err := m.named()
	if err != nil {
		return nil, err
	}
	if err := m.ancestors(opts.Ancestors, stop); err != nil {
		return nil, err
	}
	if err := m.positionals(stop); err != nil {
		return nil, err
	}
	return values, nil
}

// ClaimNamed runs only the named pass of set over args, updating values in
// place. It never stops early, and reports whether any token was claimed.
// The dispatcher uses it to let ancestors claim options that appeared after
// a subcommand name.
func ClaimNamed(set *argdef.Set, args *split.Arguments, values *argdef.Values) (bool, error) {
	before := args.Len()
	m := &matcher{set: set, args: args, values: values}
	if _, err := m.named(); err != nil {
		return false, err
	}
	return args.Len() != before, nil
}

// ancestors lets each ancestor claim its named arguments from the tokens
// this command's positionals would see. When the named pass stopped
// early, only tokens before the stop are offered, and an option whose
// value lies past it is left for a later claim.
func (m *matcher) ancestors(list []Ancestor, stop stopPoint) error {
	if len(list) == 0 || stop.index == 0 {
		return nil
	}
	limit := max(stop.index, 0)
	for _, a := range list {
		before := m.args.Len()
		am := &matcher{set: a.Set, args: m.args, values: a.Values, limit: limit}
		if _, err := am.named(); err != nil {
			return parseerr.WithPath(err, a.Path)
		}
		if m.args.Len() == before || a.Claimed == nil {
			continue
		}
		if err := a.Claimed(); err != nil {
			return parseerr.WithPath(err, a.Path)
		}
	}
	return nil
}

type matcher struct {
	set     *argdef.Set
	args    *split.Arguments
	values  *argdef.Values
	capture bool
	isSub   func(string) bool
	// limit, when positive, hides every token at or after that index.
	limit int
}

// errDeferred marks an option whose value is not visible below limit.
var errDeferred = errors.New("value beyond limit")

// next is args.Next bounded by limit.
func (m *matcher) next(i int) (int, bool) {
	j, ok := m.args.Next(i)
	if ok && m.limit > 0 && j >= m.limit {
		return -1, false
	}
	return j, ok
}

// stopPoint is where the named pass stopped. index is -1 when it ran to
// the end of input.
type stopPoint struct {
	index        int
	bySubcommand bool
}

func (m *matcher) named() (stopPoint, error) {
	for i, ok := m.next(-1); ok; i, ok = m.next(i) {
		e := m.args.At(i)
		switch e.Kind {
		case split.KindTerminator:
			continue
		case split.KindValue:
			if m.isSub != nil && m.isSub(e.Value) {
				return stopPoint{index: i, bySubcommand: true}, nil
			}
			if m.capture {
				return stopPoint{index: i}, nil
			}
			continue
		}

		def, found := m.set.Lookup(e.Option.Name)
		if !found {
			if m.capture && e.Pos.IsComplete() && !m.args.Exploded(e.Pos.Input) {
				return stopPoint{index: i}, nil
			}
			continue
		}
		if err := m.claim(i, e, def); errors.Is(err, errDeferred) {
			continue
		} else if err != nil {
			return stopPoint{}, m.decorate(err, e, def)
		}
	}
	return stopPoint{index: -1}, nil
}

func (m *matcher) claim(i int, e split.Element, def *argdef.Definition) error {
	name := e.Option.Name
	here := origin.New(e.Pos)

	if def.IsNullary() {
		if e.Option.HasValue {
			return &parseerr.Error{
				Kind:   parseerr.UnexpectedValueForOption,
				Origin: here,
				Name:   name,
				Value:  e.Option.Value,
			}
		}
		if err := def.Update.ApplyNullary(here, name, m.values); err != nil {
			return err
		}
		m.args.Remove(e.Pos)
		return nil
	}

	if e.Option.HasValue {
		if err := m.unary(def, here, name, e.Option.Value); err != nil {
			return err
		}
		m.args.Remove(e.Pos)
		return nil
	}

	if declared, ok := def.DeclaredName(name); ok && declared.AllowsJoinedValue() {
		if joined, ok := m.args.JoinedValue(e); ok && joined != "" {
			if err := m.unary(def, origin.New(e.Pos, e.Pos.Whole()), name, joined); err != nil {
				return err
			}
			m.args.Remove(e.Pos.Whole())
			return nil
		}
	}

	switch def.Strategy {
	case argdef.ScanningForValue:
		for j, ok := m.next(i); ok; j, ok = m.next(j) {
			next := m.args.At(j)
			if next.IsValue() && !m.sameInput(e, next) {
				return m.claimValue(def, e, next)
			}
		}
		return m.missing(e)

	case argdef.Unconditional:
		j, ok := m.nextInput(i, e)
		if !ok {
			return m.missing(e)
		}
		next := m.args.At(j)
		raw, _ := m.args.OriginalInput(next.Pos)
		if err := m.unary(def, origin.New(e.Pos, next.Pos.Whole()), name, raw); err != nil {
			return err
		}
		m.args.Remove(e.Pos)
		m.args.RemoveInput(next.Pos.Input)
		return nil

	case argdef.UpToNextOption:
		j, ok := m.following(i, e)
		if !ok || !m.args.At(j).IsValue() {
			return m.missing(e)
		}
		for ; ok; j, ok = m.next(j) {
			next := m.args.At(j)
			if !next.IsValue() {
				break
			}
			if err := m.unary(def, origin.New(e.Pos, next.Pos), name, next.Value); err != nil {
				return err
			}
			m.args.Remove(next.Pos)
		}
		m.args.Remove(e.Pos)
		return nil

	case argdef.AllRemainingInput:
		if m.limit > 0 {
			return errDeferred
		}
		if err := m.reset(def); err != nil {
			return err
		}
		m.args.Remove(e.Pos)
		for j, ok := m.nextInput(i, e); ok; j, ok = m.nextInput(j, m.args.At(j)) {
			next := m.args.At(j)
			raw, _ := m.args.OriginalInput(next.Pos)
			if err := m.unary(def, origin.New(e.Pos, next.Pos.Whole()), name, raw); err != nil {
				return err
			}
			m.args.RemoveInput(next.Pos.Input)
		}
		return nil

	default:
		j, ok := m.following(i, e)
		if !ok || !m.args.At(j).IsValue() {
			return m.missing(e)
		}
		return m.claimValue(def, e, m.args.At(j))
	}
}

// claimValue binds value token v to the option at e and consumes both.
func (m *matcher) claimValue(def *argdef.Definition, e, v split.Element) error {
	if err := m.unary(def, origin.New(e.Pos, v.Pos), e.Option.Name, v.Value); err != nil {
		return err
	}
	m.args.Remove(e.Pos)
	m.args.Remove(v.Pos)
	return nil
}

func (m *matcher) unary(def *argdef.Definition, o origin.Origin, name argname.Name, value string) error {
	err := def.Update.ApplyUnary(o, name, value, m.values)
	if err == nil {
		return nil
	}
	if _, ok := parseerr.As(err); ok {
		return err
	}
	return &parseerr.Error{
		Kind:   parseerr.UnableToParseValue,
		Origin: o,
		Name:   name,
		Key:    string(def.Key),
		Value:  value,
		Err:    err,
	}
}

// reset puts def's key back to its initial state before an
// AllRemainingInput option starts collecting.
func (m *matcher) reset(def *argdef.Definition) error {
	m.values.Delete(def.Key)
	if def.Initial != nil {
		return def.Initial(origin.Origin{}, m.values)
	}
	return nil
}

func (m *matcher) sameInput(opt, e split.Element) bool {
	return opt.Pos.IsComplete() && e.Pos.Input == opt.Pos.Input
}

// following returns the first live token after i that is not a piece of
// the cluster e stands for as a whole.
func (m *matcher) following(i int, e split.Element) (int, bool) {
	for j, ok := m.next(i); ok; j, ok = m.next(j) {
		if !m.sameInput(e, m.args.At(j)) {
			return j, true
		}
	}
	return -1, false
}

// nextInput returns the first live token after i that belongs to a later
// input than e.
func (m *matcher) nextInput(i int, e split.Element) (int, bool) {
	for j, ok := m.next(i); ok; j, ok = m.next(j) {
		if m.args.At(j).Pos.Input > e.Pos.Input {
			return j, true
		}
	}
	return -1, false
}

func (m *matcher) missing(e split.Element) error {
	if m.limit > 0 {
		return errDeferred
	}
	return &parseerr.Error{
		Kind:   parseerr.MissingValueForOption,
		Origin: origin.New(e.Pos),
		Name:   e.Option.Name,
	}
}

// decorate fills the fields of a parse error that the update could not
// know.
func (m *matcher) decorate(err error, e split.Element, def *argdef.Definition) error {
	pe, ok := parseerr.As(err)
	if !ok {
		return err
	}
	if pe.Conv == (argname.Convention{}) {
		pe.Conv = m.args.Convention()
	}
	if pe.Origin.IsEmpty() {
		pe.Origin = origin.New(e.Pos)
	}
	if pe.Name.IsZero() && pe.Key == "" {
		pe.Name = e.Option.Name
	}
	if pe.Key == "" {
		pe.Key = string(def.Key)
	}
	return err
}
