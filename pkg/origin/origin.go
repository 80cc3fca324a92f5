// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package origin records which command-line tokens produced a value.
package origin

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"tailscale.com/util/set"
)

// Complete is the sub-index of a token taken as a whole. Exploded pieces of
// a combined short-option cluster have sub-indexes 0, 1, ...
const Complete = -1

// Position addresses one token: the argv slot it came from and, for pieces
// of a combined short-option cluster, which piece.
type Position struct {
	Input int
	Sub   int
}

// At returns the complete position of argv slot input.
func At(input int) Position {
	return Position{Input: input, Sub: Complete}
}

// SubAt returns the position of piece sub of argv slot input.
func SubAt(input, sub int) Position {
	return Position{Input: input, Sub: sub}
}

// IsComplete reports whether p addresses a whole argv slot.
func (p Position) IsComplete() bool { return p.Sub == Complete }

// Whole returns the complete position sharing p's argv slot.
func (p Position) Whole() Position { return At(p.Input) }

// Compare orders positions by input index, then sub-index, with Complete
// before every piece.
func (p Position) Compare(q Position) int {
	if c := cmp.Compare(p.Input, q.Input); c != 0 {
		return c
	}
	return cmp.Compare(p.Sub, q.Sub)
}

// Less reports whether p sorts before q.
func (p Position) Less(q Position) bool { return p.Compare(q) < 0 }

func (p Position) String() string {
	if p.IsComplete() {
		return fmt.Sprintf("%d", p.Input)
	}
	return fmt.Sprintf("%d.%d", p.Input, p.Sub)
}

// Origin is a set of positions. The zero Origin is empty and ready to use;
// an empty Origin means the value came from a default rather than input.
type Origin struct {
	s set.Set[Position]
}

// New returns an Origin holding ps.
func New(ps ...Position) Origin {
	var o Origin
	for _, p := range ps {
		o.Insert(p)
	}
	return o
}

// Insert adds p to o.
func (o *Origin) Insert(p Position) {
	if o.s == nil {
		o.s = make(set.Set[Position])
	}
	o.s.Add(p)
}

// Union returns a new Origin holding the positions of o and other.
func (o Origin) Union(other Origin) Origin {
	var out Origin
	for p := range o.s {
		out.Insert(p)
	}
	for p := range other.s {
		out.Insert(p)
	}
	return out
}

// Contains reports whether p is in o.
func (o Origin) Contains(p Position) bool {
	return o.s.Contains(p)
}

// Len returns the number of positions in o.
func (o Origin) Len() int { return o.s.Len() }

// IsEmpty reports whether o has no positions.
func (o Origin) IsEmpty() bool { return o.s.Len() == 0 }

// Positions returns the positions of o in ascending order.
func (o Origin) Positions() []Position {
	ps := o.s.Slice()
	slices.SortFunc(ps, Position.Compare)
	return ps
}

// Inputs returns the distinct argv indexes referenced by o, ascending.
func (o Origin) Inputs() []int {
	var idx []int
	for _, p := range o.Positions() {
		if n := len(idx); n == 0 || idx[n-1] != p.Input {
			idx = append(idx, p.Input)
		}
	}
	return idx
}

// First returns the smallest position in o.
func (o Origin) First() (Position, bool) {
	ps := o.Positions()
	if len(ps) == 0 {
		return Position{}, false
	}
	return ps[0], true
}

// Equal reports whether o and other hold the same positions.
func (o Origin) Equal(other Origin) bool {
	if o.Len() != other.Len() {
		return false
	}
	for p := range o.s {
		if !other.s.Contains(p) {
			return false
		}
	}
	return true
}

func (o Origin) String() string {
	ps := o.Positions()
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}
