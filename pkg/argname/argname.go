// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package argname defines the names a declared argument can be referenced by
// on the command line, and the prefix conventions used to spell them.
package argname

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind is the spelling variant of a Name.
type Kind uint8

const (
	// KindLong is a multi-character name with the long prefix (--foo).
	KindLong Kind = iota + 1
	// KindShort is a single-character name with the short prefix (-f).
	KindShort
	// KindLongWithSingleDash is a multi-character name with the short
	// prefix (-foo).
	KindLongWithSingleDash
)

func (k Kind) String() string {
	switch k {
	case KindLong:
		return "long"
	case KindShort:
		return "short"
	case KindLongWithSingleDash:
		return "long-with-single-dash"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Name is a declared argument name. The zero Name is invalid.
//
// Names are comparable and may be used as map keys, but lookups should go
// through ToMatch so that the joined-value flag of short names is ignored.
type Name struct {
	kind   Kind
	long   string
	short  rune
	joined bool
}

// Long returns a name spelled with the long prefix, e.g. --verbose.
func Long(name string) Name {
	return Name{kind: KindLong, long: name}
}

// Short returns a single-character name, e.g. -v.
func Short(c rune) Name {
	return Name{kind: KindShort, short: c}
}

// ShortJoined returns a single-character name that accepts a value joined
// directly to it, e.g. -Dfoo.
func ShortJoined(c rune) Name {
	return Name{kind: KindShort, short: c, joined: true}
}

// LongWithSingleDash returns a multi-character name spelled with the short
// prefix, e.g. -verbose.
func LongWithSingleDash(name string) Name {
	return Name{kind: KindLongWithSingleDash, long: name}
}

// Kind reports the spelling variant of n.
func (n Name) Kind() Kind { return n.kind }

// IsZero reports whether n is the zero Name.
func (n Name) IsZero() bool { return n.kind == 0 }

// Rune returns the character of a short name, or utf8.RuneError.
func (n Name) Rune() rune {
	if n.kind != KindShort {
		return utf8.RuneError
	}
	return n.short
}

// Base returns the name without any prefix.
func (n Name) Base() string {
	if n.kind == KindShort {
		return string(n.short)
	}
	return n.long
}

// AllowsJoinedValue reports whether a value may be joined directly to this
// short name.
func (n Name) AllowsJoinedValue() bool {
	return n.kind == KindShort && n.joined
}

// ToMatch returns the normalized form of n used for lookups.
func (n Name) ToMatch() Name {
	n.joined = false
	return n
}

// Equal reports whether n and o refer to the same name, ignoring whether a
// short name allows joined values.
func (n Name) Equal(o Name) bool {
	return n.ToMatch() == o.ToMatch()
}

// Synopsis spells n with the prefixes of conv.
func (n Name) Synopsis(conv Convention) string {
	conv = conv.orDefault()
	switch n.kind {
	case KindLong:
		return conv.long + n.long
	case KindShort:
		return conv.short + string(n.short)
	case KindLongWithSingleDash:
		return conv.short + n.long
	}
	return ""
}

// String spells n using the POSIX convention.
func (n Name) String() string {
	return n.Synopsis(POSIX)
}

// Parse parses a declared name such as "--verbose", "-v" or "-verbose" using
// the prefixes of conv. A short name written with a trailing "+" (e.g. "-D+")
// allows joined values.
func Parse(s string, conv Convention) (Name, error) {
	conv = conv.orDefault()
	switch {
	case conv.long != conv.short && strings.HasPrefix(s, conv.long):
		rest := s[len(conv.long):]
		if rest == "" || strings.ContainsAny(rest, "= ") {
			return Name{}, fmt.Errorf("invalid long name %q", s)
		}
		return Long(rest), nil
	case strings.HasPrefix(s, conv.short):
		rest := s[len(conv.short):]
		joined := false
		if strings.HasSuffix(rest, "+") && utf8.RuneCountInString(rest) == 2 {
			rest = strings.TrimSuffix(rest, "+")
			joined = true
		}
		switch utf8.RuneCountInString(rest) {
		case 0:
			return Name{}, fmt.Errorf("invalid name %q", s)
		case 1:
			c, _ := utf8.DecodeRuneInString(rest)
			if joined {
				return ShortJoined(c), nil
			}
			return Short(c), nil
		}
		if strings.ContainsAny(rest, "= ") || strings.HasPrefix(rest, conv.short) {
			return Name{}, fmt.Errorf("invalid name %q", s)
		}
		return LongWithSingleDash(rest), nil
	}
	return Name{}, fmt.Errorf("name %q does not start with %q or %q", s, conv.long, conv.short)
}

// Convention is the set of prefixes that mark option references on the
// command line. It is passed explicitly to everything that spells or reads
// names; there is no process-wide convention.
type Convention struct {
	name       string
	long       string
	short      string
	terminator string
}

var (
	// POSIX spells names as --long, -s and -long, with "--" as terminator.
	POSIX = Convention{name: "posix", long: "--", short: "-", terminator: "--"}
	// DOS spells names as /long, +s and +long, with "//" as terminator.
	DOS = Convention{name: "dos", long: "/", short: "+", terminator: "//"}
)

// ParseConvention returns the convention with the given name.
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(s) {
	case "", "posix":
		return POSIX, nil
	case "dos":
		return DOS, nil
	}
	return Convention{}, fmt.Errorf("unknown convention %q (want posix or dos)", s)
}

func (c Convention) orDefault() Convention {
	if c.long == "" {
		return POSIX
	}
	return c
}

// LongPrefix returns the prefix of long names.
func (c Convention) LongPrefix() string { return c.orDefault().long }

// ShortPrefix returns the prefix of short and single-dash long names.
func (c Convention) ShortPrefix() string { return c.orDefault().short }

// Terminator returns the marker that ends option parsing.
func (c Convention) Terminator() string { return c.orDefault().terminator }

func (c Convention) String() string { return c.orDefault().name }
