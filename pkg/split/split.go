// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package split turns raw command-line arguments into a stream of typed
// tokens, each tagged with the position of the input that produced it.
//
// Tokens live in an arena addressed by stable index. Consuming a token flips
// a tombstone instead of shifting the slice, so indexes and ordering never
// change during a parse.
package split

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/origin"
	"github.com/yeetrun/argtree/pkg/parseerr"
)

// Kind is the type of a token.
type Kind uint8

const (
	// KindValue is a bare token.
	KindValue Kind = iota + 1
	// KindOption is a reference to a named argument.
	KindOption
	// KindTerminator is the marker that ends option parsing.
	KindTerminator
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindOption:
		return "option"
	case KindTerminator:
		return "terminator"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Option is a parsed option reference, with the value attached via "="
// when HasValue is set.
type Option struct {
	Name     argname.Name
	Value    string
	HasValue bool
}

// Element is one token.
type Element struct {
	Kind   Kind
	Value  string
	Option Option
	Pos    origin.Position
}

// IsValue reports whether e is a bare value.
func (e Element) IsValue() bool { return e.Kind == KindValue }

// IsOption reports whether e is an option reference.
func (e Element) IsOption() bool { return e.Kind == KindOption }

// IsTerminator reports whether e is the terminator.
func (e Element) IsTerminator() bool { return e.Kind == KindTerminator }

func (e Element) String() string {
	switch e.Kind {
	case KindValue:
		return fmt.Sprintf("%v:value(%q)", e.Pos, e.Value)
	case KindOption:
		if e.Option.HasValue {
			return fmt.Sprintf("%v:option(%v=%q)", e.Pos, e.Option.Name, e.Option.Value)
		}
		return fmt.Sprintf("%v:option(%v)", e.Pos, e.Option.Name)
	case KindTerminator:
		return fmt.Sprintf("%v:terminator", e.Pos)
	}
	return fmt.Sprintf("%v:?", e.Pos)
}

// Arguments is a tokenized command line.
type Arguments struct {
	conv     argname.Convention
	original []string
	elements []Element
	live     []bool
	index    map[origin.Position]int
	exploded map[int]bool
}

// Split tokenizes args, which should not include the program name.
func Split(args []string, conv argname.Convention) (*Arguments, error) {
	a := &Arguments{
		conv:     conv,
		original: append([]string(nil), args...),
		index:    make(map[origin.Position]int, len(args)),
		exploded: make(map[int]bool),
	}
	long, short, term := conv.LongPrefix(), conv.ShortPrefix(), conv.Terminator()

	afterTerminator := false
	for i, arg := range args {
		at := origin.At(i)
		if afterTerminator {
			a.push(Element{Kind: KindValue, Value: arg, Pos: at})
			continue
		}
		if arg == term {
			a.push(Element{Kind: KindTerminator, Pos: at})
			afterTerminator = true
			continue
		}

		switch {
		case long != short && strings.HasPrefix(arg, long):
			rest := arg[len(long):]
			if rest == "" {
				a.push(Element{Kind: KindValue, Value: arg, Pos: at})
				continue
			}
			if strings.HasPrefix(rest, short) || strings.HasPrefix(rest, long) {
				return nil, &parseerr.Error{Kind: parseerr.InvalidOption, Value: arg, Origin: origin.New(at), Conv: conv}
			}
			name, value, hasValue := strings.Cut(rest, "=")
			if name == "" {
				return nil, &parseerr.Error{Kind: parseerr.InvalidOption, Value: arg, Origin: origin.New(at), Conv: conv}
			}
			a.push(Element{Kind: KindOption, Pos: at, Option: Option{
				Name:     argname.Long(name),
				Value:    value,
				HasValue: hasValue,
			}})

		case strings.HasPrefix(arg, short):
			rest := arg[len(short):]
			if rest == "" {
				a.push(Element{Kind: KindValue, Value: arg, Pos: at})
				continue
			}
			if strings.HasPrefix(rest, short) || strings.HasPrefix(rest, long) {
				return nil, &parseerr.Error{Kind: parseerr.InvalidOption, Value: arg, Origin: origin.New(at), Conv: conv}
			}
			if err := a.pushSingleDash(i, arg, rest); err != nil {
				return nil, err
			}

		default:
			a.push(Element{Kind: KindValue, Value: arg, Pos: at})
		}
	}
	return a, nil
}

// pushSingleDash handles an argument with a single short prefix and a
// non-empty remainder.
func (a *Arguments) pushSingleDash(i int, arg, rest string) error {
	at := origin.At(i)
	if utf8.RuneCountInString(rest) == 1 {
		c, _ := utf8.DecodeRuneInString(rest)
		a.push(Element{Kind: KindOption, Pos: at, Option: Option{Name: argname.Short(c)}})
		return nil
	}

	if name, value, ok := strings.Cut(rest, "="); ok {
		var n argname.Name
		switch utf8.RuneCountInString(name) {
		case 0:
			return &parseerr.Error{Kind: parseerr.InvalidOption, Value: arg, Origin: origin.New(at), Conv: a.conv}
		case 1:
			c, _ := utf8.DecodeRuneInString(name)
			n = argname.Short(c)
		default:
			n = argname.LongWithSingleDash(name)
		}
		a.push(Element{Kind: KindOption, Pos: at, Option: Option{Name: n, Value: value, HasValue: true}})
		return nil
	}

	// A cluster is both one single-dash long name and a run of short names;
	// the matcher decides which reading wins.
	a.push(Element{Kind: KindOption, Pos: at, Option: Option{Name: argname.LongWithSingleDash(rest)}})
	sub := 0
	for _, c := range rest {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) {
			return &parseerr.Error{
				Kind:   parseerr.NonAlphanumericShortOption,
				Value:  arg,
				Char:   c,
				Origin: origin.New(at),
				Conv:   a.conv,
			}
		}
		a.push(Element{Kind: KindOption, Pos: origin.SubAt(i, sub), Option: Option{Name: argname.Short(c)}})
		sub++
	}
	a.exploded[i] = true
	return nil
}

func (a *Arguments) push(e Element) {
	a.index[e.Pos] = len(a.elements)
	a.elements = append(a.elements, e)
	a.live = append(a.live, true)
}

// Convention returns the convention the arguments were split with.
func (a *Arguments) Convention() argname.Convention { return a.conv }

// Original returns a copy of the raw arguments.
func (a *Arguments) Original() []string {
	return append([]string(nil), a.original...)
}

// OriginalInput returns the raw argument at p's input index.
func (a *Arguments) OriginalInput(p origin.Position) (string, bool) {
	if p.Input < 0 || p.Input >= len(a.original) {
		return "", false
	}
	return a.original[p.Input], true
}

// Spelling returns the text of e as it would be typed: the raw argument for
// complete tokens, or the prefixed character for a cluster piece.
func (a *Arguments) Spelling(e Element) string {
	if !e.Pos.IsComplete() && e.IsOption() {
		return e.Option.Name.Synopsis(a.conv)
	}
	s, _ := a.OriginalInput(e.Pos)
	return s
}

// Exploded reports whether the argument at input was split into a cluster
// of short options.
func (a *Arguments) Exploded(input int) bool {
	return a.exploded[input]
}

// JoinedValue returns the text that follows the first short name of a
// cluster, e.g. "foo" for "-Dfoo". It reports false when e is not the first
// piece of a cluster.
func (a *Arguments) JoinedValue(e Element) (string, bool) {
	if e.Pos.Sub != 0 || !e.IsOption() {
		return "", false
	}
	raw, ok := a.OriginalInput(e.Pos)
	if !ok {
		return "", false
	}
	rest := strings.TrimPrefix(raw, a.conv.ShortPrefix())
	_, size := utf8.DecodeRuneInString(rest)
	if size >= len(rest) {
		return "", false
	}
	return rest[size:], true
}

// Count returns the size of the arena, live or not.
func (a *Arguments) Count() int { return len(a.elements) }

// Len returns the number of live tokens.
func (a *Arguments) Len() int {
	n := 0
	for _, l := range a.live {
		if l {
			n++
		}
	}
	return n
}

// At returns the token at arena index i.
func (a *Arguments) At(i int) Element { return a.elements[i] }

// IsLive reports whether the token at arena index i is still unconsumed.
func (a *Arguments) IsLive(i int) bool {
	return i >= 0 && i < len(a.live) && a.live[i]
}

// Next returns the first live arena index after after. Pass -1 to start.
func (a *Arguments) Next(after int) (int, bool) {
	for i := after + 1; i < len(a.elements); i++ {
		if a.live[i] {
			return i, true
		}
	}
	return -1, false
}

// IndexOf returns the arena index of the token at p.
func (a *Arguments) IndexOf(p origin.Position) (int, bool) {
	i, ok := a.index[p]
	return i, ok
}

// Elements returns the live tokens in order.
func (a *Arguments) Elements() []Element {
	out := make([]Element, 0, len(a.elements))
	for i, e := range a.elements {
		if a.live[i] {
			out = append(out, e)
		}
	}
	return out
}

// WholeElements returns the live tokens that stand for an entire input:
// cluster pieces are dropped while their complete token is still live.
func (a *Arguments) WholeElements() []Element {
	out := make([]Element, 0, len(a.elements))
	for i, e := range a.elements {
		if !a.live[i] {
			continue
		}
		if !e.Pos.IsComplete() {
			if j, ok := a.index[e.Pos.Whole()]; ok && a.live[j] {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// Remove consumes the token at p. Removing a complete token also removes
// every piece of its cluster; removing a piece also removes the complete
// token at the same input. Removing a consumed position is a no-op.
func (a *Arguments) Remove(p origin.Position) {
	i, ok := a.index[p]
	if !ok {
		return
	}
	a.live[i] = false
	if p.IsComplete() {
		for j := i + 1; j < len(a.elements) && a.elements[j].Pos.Input == p.Input; j++ {
			a.live[j] = false
		}
		return
	}
	if j, ok := a.index[p.Whole()]; ok {
		a.live[j] = false
	}
}

// RemoveInput consumes every token produced by input.
func (a *Arguments) RemoveInput(input int) {
	a.Remove(origin.At(input))
}

// RemoveOrigin consumes every position in o.
func (a *Arguments) RemoveOrigin(o origin.Origin) {
	for _, p := range o.Positions() {
		a.Remove(p)
	}
}

// FirstValue returns the first live value that precedes any live
// terminator.
func (a *Arguments) FirstValue() (Element, bool) {
	for i, e := range a.elements {
		if !a.live[i] {
			continue
		}
		switch e.Kind {
		case KindTerminator:
			return Element{}, false
		case KindValue:
			return e, true
		}
	}
	return Element{}, false
}

// Leftovers returns the live whole tokens other than terminators.
func (a *Arguments) Leftovers() []Element {
	var out []Element
	for _, e := range a.WholeElements() {
		if !e.IsTerminator() {
			out = append(out, e)
		}
	}
	return out
}

// Clone returns an independent copy of a.
func (a *Arguments) Clone() *Arguments {
	c := &Arguments{
		conv:     a.conv,
		original: a.original,
		elements: a.elements,
		live:     append([]bool(nil), a.live...),
		index:    a.index,
		exploded: a.exploded,
	}
	return c
}
