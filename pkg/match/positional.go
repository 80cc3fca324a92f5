// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package match

import (
	"github.com/yeetrun/argtree/pkg/argdef"
	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/origin"
	"github.com/yeetrun/argtree/pkg/parseerr"
	"github.com/yeetrun/argtree/pkg/split"
)

// pool returns the whole tokens available to positionals. When the named
// pass stopped at a subcommand name, nothing from that name on is offered.
func (m *matcher) pool(stop stopPoint) []split.Element {
	whole := m.args.WholeElements()
	if !stop.bySubcommand {
		return whole
	}
	out := whole[:0:0]
	for _, e := range whole {
		if i, _ := m.args.IndexOf(e.Pos); i < stop.index {
			out = append(out, e)
		}
	}
	return out
}

func (m *matcher) positionals(stop stopPoint) error {
	pool := m.pool(stop)
	k := 0
	for _, def := range m.set.Positionals() {
		if k >= len(pool) {
			break
		}
		if def.Strategy == argdef.AllRemainingInput {
			if err := m.captureRemaining(def, pool[k:]); err != nil {
				return err
			}
			k = len(pool)
			continue
		}
		for k < len(pool) {
			e := pool[k]
			k++
			if !e.IsValue() {
				continue
			}
			if err := m.bindPositional(def, e.Pos, e.Value); err != nil {
				return err
			}
			if !def.IsRepeatingPositional() {
				break
			}
		}
	}
	return nil
}

// captureRemaining binds every token of rest to def as raw text. A
// terminator that leads the capture only ends option parsing and is
// dropped; later terminators are kept.
func (m *matcher) captureRemaining(def *argdef.Definition, rest []split.Element) error {
	if err := m.reset(def); err != nil {
		return err
	}
	for i, e := range rest {
		var raw string
		switch e.Kind {
		case split.KindTerminator:
			m.args.Remove(e.Pos)
			if i == 0 {
				continue
			}
			raw = m.args.Convention().Terminator()
		case split.KindValue:
			raw = e.Value
		default:
			raw = m.args.Spelling(e)
		}
		if err := m.bindPositional(def, e.Pos, raw); err != nil {
			return err
		}
	}
	return nil
}

func (m *matcher) bindPositional(def *argdef.Definition, p origin.Position, value string) error {
	if err := m.unary(def, origin.New(p), argname.Name{}, value); err != nil {
		if pe, ok := parseerr.As(err); ok {
			if pe.Conv == (argname.Convention{}) {
				pe.Conv = m.args.Convention()
			}
			if pe.Key == "" {
				pe.Key = string(def.Key)
			}
			if pe.Origin.IsEmpty() {
				pe.Origin = origin.New(p)
			}
		}
		return err
	}
	m.args.Remove(p)
	return nil
}
