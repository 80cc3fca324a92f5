// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package argdef is the data model of declared arguments: what a command
// accepts, how each argument locates its value, and how a bound value is
// written into the parse result.
//
// Definitions are produced by a binder (see package bind) and consumed by
// the matcher; nothing here reads the command line.
package argdef

import (
	"fmt"
	"strings"

	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/origin"
	"github.com/yeetrun/argtree/pkg/parseerr"
)

// Key identifies the value an argument binds.
type Key string

// Kind says how a definition is referenced on the command line.
type Kind uint8

const (
	// Named arguments are referenced by one or more names.
	Named Kind = iota + 1
	// Positional arguments are bound from values by declaration order.
	Positional
	// PseudoDefault definitions never match input; they only seed values.
	PseudoDefault
)

func (k Kind) String() string {
	switch k {
	case Named:
		return "named"
	case Positional:
		return "positional"
	case PseudoDefault:
		return "default"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Strategy governs where a unary argument finds its value when none is
// attached to the option reference.
type Strategy uint8

const (
	// Default claims the next token only if it is a plain value.
	Default Strategy = iota
	// ScanningForValue claims the next value anywhere after the option,
	// skipping intervening options.
	ScanningForValue
	// Unconditional claims the next input whatever it looks like.
	Unconditional
	// UpToNextOption claims the run of values up to the next option.
	UpToNextOption
	// AllRemainingInput resets the value and claims every remaining input.
	AllRemainingInput
)

var strategyNames = []string{
	Default:           "default",
	ScanningForValue:  "scanningForValue",
	Unconditional:     "unconditional",
	UpToNextOption:    "upToNextOption",
	AllRemainingInput: "allRemainingInput",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("Strategy(%d)", uint8(s))
}

// ParseStrategy parses a strategy name, case-insensitively. A few short
// aliases ("scanning", "remaining", "passthrough") are accepted.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return Default, nil
	case "scanningforvalue", "scanning":
		return ScanningForValue, nil
	case "unconditional":
		return Unconditional, nil
	case "uptonextoption":
		return UpToNextOption, nil
	case "allremaininginput", "remaining", "passthrough":
		return AllRemainingInput, nil
	}
	return Default, fmt.Errorf("unknown parsing strategy %q", s)
}

// NullaryFunc updates values for an argument that takes no value.
type NullaryFunc func(o origin.Origin, name argname.Name, v *Values) error

// UnaryFunc updates values from one string. name is the zero Name for
// positional arguments.
type UnaryFunc func(o origin.Origin, name argname.Name, value string, v *Values) error

// InitialFunc seeds values before any input is read.
type InitialFunc func(o origin.Origin, v *Values) error

// Update is either nullary or unary. The zero Update is neither.
type Update struct {
	nullary NullaryFunc
	unary   UnaryFunc
}

// Nullary returns an Update that takes no value.
func Nullary(f NullaryFunc) Update { return Update{nullary: f} }

// Unary returns an Update that consumes one string.
func Unary(f UnaryFunc) Update { return Update{unary: f} }

// IsNullary reports whether u takes no value.
func (u Update) IsNullary() bool { return u.nullary != nil }

// IsUnary reports whether u consumes a string.
func (u Update) IsUnary() bool { return u.unary != nil }

// ApplyNullary runs a nullary update.
func (u Update) ApplyNullary(o origin.Origin, name argname.Name, v *Values) error {
	if u.nullary == nil {
		return fmt.Errorf("update is not nullary")
	}
	return u.nullary(o, name, v)
}

// ApplyUnary runs a unary update.
func (u Update) ApplyUnary(o origin.Origin, name argname.Name, value string, v *Values) error {
	if u.unary == nil {
		return fmt.Errorf("update is not unary")
	}
	return u.unary(o, name, value, v)
}

// Visibility controls whether help output lists an argument.
type Visibility uint8

const (
	Visible Visibility = iota
	Hidden
	Private
)

func (v Visibility) String() string {
	switch v {
	case Visible:
		return "visible"
	case Hidden:
		return "hidden"
	case Private:
		return "private"
	}
	return fmt.Sprintf("Visibility(%d)", uint8(v))
}

// Help is descriptive metadata. Only Repeating affects parsing.
type Help struct {
	Abstract     string
	Discussion   string
	ValueName    string
	DefaultValue string
	Optional     bool
	Repeating    bool
	Visibility   Visibility
}

// Definition is one declared argument.
type Definition struct {
	Kind     Kind
	Names    []argname.Name
	Key      Key
	Strategy Strategy
	Update   Update
	Initial  InitialFunc
	Help     Help
}

// Flag declares a named argument that takes no value.
func Flag(key Key, names []argname.Name, f NullaryFunc) Definition {
	return Definition{Kind: Named, Names: names, Key: key, Update: Nullary(f)}
}

// Option declares a named argument that takes a value.
func Option(key Key, names []argname.Name, strategy Strategy, f UnaryFunc) Definition {
	return Definition{Kind: Named, Names: names, Key: key, Strategy: strategy, Update: Unary(f)}
}

// PositionalArg declares a positional argument. Positionals are always unary.
func PositionalArg(key Key, f UnaryFunc) Definition {
	return Definition{Kind: Positional, Key: key, Update: Unary(f)}
}

// IsPositional reports whether d is bound by position.
func (d *Definition) IsPositional() bool { return d.Kind == Positional }

// IsRepeatingPositional reports whether d is a positional that takes every
// remaining value.
func (d *Definition) IsRepeatingPositional() bool {
	return d.Kind == Positional && d.Help.Repeating
}

// IsNullary reports whether d takes no value.
func (d *Definition) IsNullary() bool { return d.Update.IsNullary() }

// PreferredName returns the first long name of d, or its first name.
func (d *Definition) PreferredName() (argname.Name, bool) {
	for _, n := range d.Names {
		if n.Kind() == argname.KindLong {
			return n, true
		}
	}
	if len(d.Names) > 0 {
		return d.Names[0], true
	}
	return argname.Name{}, false
}

// DeclaredName returns the name of d that matches n, as declared, so
// callers can see flags like AllowsJoinedValue that n itself lacks.
func (d *Definition) DeclaredName(n argname.Name) (argname.Name, bool) {
	for _, dn := range d.Names {
		if dn.Equal(n) {
			return dn, true
		}
	}
	return argname.Name{}, false
}

// Validate checks the invariants of d.
func (d *Definition) Validate() error {
	if d.Key == "" {
		return parseerr.Declaration("argument has no key")
	}
	switch d.Kind {
	case Named:
		if len(d.Names) == 0 {
			return parseerr.Declaration("named argument %q has no names", d.Key)
		}
		for _, n := range d.Names {
			if n.IsZero() {
				return parseerr.Declaration("named argument %q has an empty name", d.Key)
			}
		}
		if !d.Update.IsNullary() && !d.Update.IsUnary() {
			return parseerr.Declaration("argument %q has no update", d.Key)
		}
	case Positional:
		if !d.Update.IsUnary() {
			return parseerr.Declaration("positional argument %q must take a value", d.Key)
		}
		if len(d.Names) > 0 {
			return parseerr.Declaration("positional argument %q cannot have names", d.Key)
		}
	case PseudoDefault:
		if d.Initial == nil {
			return parseerr.Declaration("default-only argument %q has no initial value", d.Key)
		}
	default:
		return parseerr.Declaration("argument %q has unknown kind %v", d.Key, d.Kind)
	}
	return nil
}
