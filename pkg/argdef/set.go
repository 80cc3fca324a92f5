// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argdef

import (
	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/origin"
	"github.com/yeetrun/argtree/pkg/parseerr"
	"tailscale.com/util/mak"
)

// Set is the ordered collection of definitions a command accepts.
type Set struct {
	defs  []*Definition
	names map[argname.Name]int
}

// NewSet validates defs and indexes their names. When two definitions share
// a name, the first one declared wins lookups.
func NewSet(defs ...Definition) (*Set, error) {
	s := &Set{}
	if err := s.add(defs); err != nil {
		return nil, err
	}
	return s, nil
}

// MustNewSet is like NewSet but panics on an invalid declaration.
func MustNewSet(defs ...Definition) *Set {
	s, err := NewSet(defs...)
	if err != nil {
		panic(err)
	}
	return s
}

// Merge returns a set holding the definitions of every set in order.
func Merge(sets ...*Set) (*Set, error) {
	out := &Set{}
	for _, s := range sets {
		if s == nil {
			continue
		}
		if err := out.add(s.Definitions()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Set) add(defs []Definition) error {
	for i := range defs {
		d := defs[i]
		if err := d.Validate(); err != nil {
			return err
		}
		idx := len(s.defs)
		s.defs = append(s.defs, &d)
		for _, n := range d.Names {
			k := n.ToMatch()
			if _, dup := s.names[k]; dup {
				continue
			}
			mak.Set(&s.names, k, idx)
		}
	}
	return nil
}

// Len returns the number of definitions.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.defs)
}

// At returns the i'th definition.
func (s *Set) At(i int) *Definition { return s.defs[i] }

// Definitions returns a copy of every definition in declaration order.
func (s *Set) Definitions() []Definition {
	if s == nil {
		return nil
	}
	out := make([]Definition, len(s.defs))
	for i, d := range s.defs {
		out[i] = *d
	}
	return out
}

// Lookup finds the named definition matching n. The joined flag of n is
// ignored.
func (s *Set) Lookup(n argname.Name) (*Definition, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.names[n.ToMatch()]
	if !ok {
		return nil, false
	}
	return s.defs[i], true
}

// ByKey returns the first definition bound to key.
func (s *Set) ByKey(key Key) (*Definition, bool) {
	if s == nil {
		return nil, false
	}
	for _, d := range s.defs {
		if d.Key == key {
			return d, true
		}
	}
	return nil, false
}

// Positionals returns the positional definitions in declaration order.
func (s *Set) Positionals() []*Definition {
	if s == nil {
		return nil
	}
	var out []*Definition
	for _, d := range s.defs {
		if d.IsPositional() {
			out = append(out, d)
		}
	}
	return out
}

// CapturesAll reports whether s has a positional that takes all remaining
// input. Such a command stops the named pass at its first value or unknown
// option.
func (s *Set) CapturesAll() bool {
	for _, d := range s.Positionals() {
		if d.Strategy == AllRemainingInput {
			return true
		}
	}
	return false
}

// Initialize seeds v with every definition's initial value.
func (s *Set) Initialize(v *Values) error {
	if s == nil {
		return nil
	}
	for _, d := range s.defs {
		if d.Initial == nil {
			continue
		}
		if err := d.Initial(origin.Origin{}, v); err != nil {
			return err
		}
	}
	return nil
}

// CheckUnique reports a declaration error when two definitions of s share
// a name. NewSet tolerates that; strict binders call this.
func (s *Set) CheckUnique() error {
	seen := map[argname.Name]Key{}
	for _, d := range s.defs {
		for _, n := range d.Names {
			k := n.ToMatch()
			if prev, ok := seen[k]; ok && prev != d.Key {
				return &parseerr.Error{
					Kind: parseerr.InvalidDeclaration,
					Name: n,
					Err:  errDuplicateName{name: n, first: prev, second: d.Key},
				}
			}
			seen[k] = d.Key
		}
	}
	return nil
}

type errDuplicateName struct {
	name          argname.Name
	first, second Key
}

func (e errDuplicateName) Error() string {
	return "name " + e.name.String() + " declared by both " + string(e.first) + " and " + string(e.second)
}
