// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package parseerr defines the structured error returned for malformed
// command lines. Errors carry the command path reached and the origin of the
// offending input so a formatter can point at exact tokens; they never
// format themselves beyond a one-line message.
package parseerr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/origin"
)

// Kind classifies an Error.
type Kind int

const (
	// InvalidOption is malformed option syntax, e.g. three leading dashes.
	InvalidOption Kind = iota + 1
	// NonAlphanumericShortOption is a combined short-option cluster holding a
	// character that is neither a letter nor a digit.
	NonAlphanumericShortOption
	// UnknownOption is an option reference that no command claimed.
	UnknownOption
	// MissingValueForOption is an option that needed a value and found none.
	MissingValueForOption
	// UnexpectedValueForOption is a value attached to a flag.
	UnexpectedValueForOption
	// UnexpectedExtraValues are values left over after positional binding.
	UnexpectedExtraValues
	// DuplicateExclusiveValues is an exclusive flag group bound twice with
	// conflicting values.
	DuplicateExclusiveValues
	// UnableToParseValue is a claimed string that failed conversion.
	UnableToParseValue
	// MissingExpectedArgument is a required argument with no value.
	MissingExpectedArgument
	// UserValidation is a failure returned by a command's validation hook.
	UserValidation
	// InvalidDeclaration is a malformed argument or command declaration.
	InvalidDeclaration
)

var kindNames = map[Kind]string{
	InvalidOption:              "invalid option",
	NonAlphanumericShortOption: "non-alphanumeric short option",
	UnknownOption:              "unknown option",
	MissingValueForOption:      "missing value for option",
	UnexpectedValueForOption:   "unexpected value for option",
	UnexpectedExtraValues:      "unexpected extra values",
	DuplicateExclusiveValues:   "duplicate exclusive values",
	UnableToParseValue:         "unable to parse value",
	MissingExpectedArgument:    "missing expected argument",
	UserValidation:             "validation failed",
	InvalidDeclaration:         "invalid declaration",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ExtraValue is one leftover value and where it came from.
type ExtraValue struct {
	Origin origin.Origin
	Value  string
}

// Error is a parse failure.
type Error struct {
	Kind Kind
	// Path is the command path reached before the failure, root first.
	Path []string
	// Origin holds the input positions the failure refers to.
	Origin origin.Origin
	// Name is the option name involved, if any.
	Name argname.Name
	// Conv spells Name in messages.
	Conv argname.Convention
	// Key identifies the argument definition involved, if any.
	Key string
	// Value is the raw input involved, if any.
	Value string
	// Char is the offending character of a NonAlphanumericShortOption.
	Char rune
	// Extra lists leftover values for UnexpectedExtraValues.
	Extra []ExtraValue
	// Previous is the origin of the earlier binding for
	// DuplicateExclusiveValues.
	Previous origin.Origin
	// Err is the underlying cause for UnableToParseValue and UserValidation.
	Err error
}

func (e *Error) subject() string {
	if !e.Name.IsZero() {
		return e.Name.Synopsis(e.Conv)
	}
	if e.Key != "" {
		return "<" + e.Key + ">"
	}
	return e.Value
}

func (e *Error) Error() string {
	switch e.Kind {
	case InvalidOption:
		return fmt.Sprintf("invalid option %q", e.Value)
	case NonAlphanumericShortOption:
		return fmt.Sprintf("invalid character %q in short option cluster %q", e.Char, e.Value)
	case UnknownOption:
		if e.Value != "" {
			return fmt.Sprintf("unknown option '%s'", e.Value)
		}
		return fmt.Sprintf("unknown option '%s'", e.subject())
	case MissingValueForOption:
		return fmt.Sprintf("missing value for '%s'", e.subject())
	case UnexpectedValueForOption:
		return fmt.Sprintf("'%s' does not take a value, got %q", e.subject(), e.Value)
	case UnexpectedExtraValues:
		vals := make([]string, len(e.Extra))
		for i, v := range e.Extra {
			vals[i] = "'" + v.Value + "'"
		}
		if len(vals) == 1 {
			return "unexpected argument " + vals[0]
		}
		return "unexpected arguments " + strings.Join(vals, ", ")
	case DuplicateExclusiveValues:
		return fmt.Sprintf("'%s' cannot be combined with an earlier value for %s", e.subject(), e.Key)
	case UnableToParseValue:
		if e.Err != nil {
			return fmt.Sprintf("invalid value %q for '%s': %v", e.Value, e.subject(), e.Err)
		}
		return fmt.Sprintf("invalid value %q for '%s'", e.Value, e.subject())
	case MissingExpectedArgument:
		return fmt.Sprintf("missing expected argument '%s'", e.subject())
	case UserValidation:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "validation failed"
	case InvalidDeclaration:
		if e.Err != nil {
			return "invalid declaration: " + e.Err.Error()
		}
		return "invalid declaration"
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind, so that
// errors.Is(err, &parseerr.Error{Kind: parseerr.UnknownOption}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// KindOf returns the Kind of the *Error in err's chain, or 0.
func KindOf(err error) Kind {
	if pe, ok := As(err); ok {
		return pe.Kind
	}
	return 0
}

// WithPath sets the command path of the *Error in err's chain if it has
// none yet, and returns err. Errors that are not *Error are wrapped as
// UserValidation so every failure carries a path.
func WithPath(err error, path []string) error {
	if err == nil {
		return nil
	}
	pe, ok := As(err)
	if !ok {
		return &Error{Kind: UserValidation, Path: path, Err: err}
	}
	if len(pe.Path) == 0 {
		pe.Path = append([]string(nil), path...)
	}
	return err
}

// Declaration returns an InvalidDeclaration error.
func Declaration(format string, args ...any) *Error {
	return &Error{Kind: InvalidDeclaration, Err: fmt.Errorf(format, args...)}
}
