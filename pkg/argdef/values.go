// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argdef

import (
	"fmt"
	"maps"
	"slices"

	"github.com/yeetrun/argtree/pkg/origin"
	"tailscale.com/util/mak"
)

// Element is one bound value and the input that produced it.
type Element struct {
	Key    Key
	Value  any
	Origin origin.Origin

	// clearOnUpdate is set for defaults so the first update from input
	// replaces a defaulted list instead of extending it.
	clearOnUpdate bool
}

// FromInput reports whether any command-line input contributed to e.
func (e Element) FromInput() bool { return !e.Origin.IsEmpty() }

// Values is the mutable result of matching: key to value, with origin.
type Values struct {
	elements map[Key]*Element
	order    []Key
	original []string
}

// NewValues returns empty Values for the given raw arguments.
func NewValues(original []string) *Values {
	return &Values{original: original}
}

// OriginalInput returns the raw argument at input index i.
func (v *Values) OriginalInput(i int) (string, bool) {
	if i < 0 || i >= len(v.original) {
		return "", false
	}
	return v.original[i], true
}

func (v *Values) put(e *Element) {
	if _, ok := v.elements[e.Key]; !ok {
		v.order = append(v.order, e.Key)
	}
	mak.Set(&v.elements, e.Key, e)
}

// Set stores value under key, merging o into the provenance already there.
func (v *Values) Set(key Key, value any, o origin.Origin) {
	if e, ok := v.elements[key]; ok {
		e.Value = value
		e.Origin = e.Origin.Union(o)
		e.clearOnUpdate = false
		return
	}
	v.put(&Element{Key: key, Value: value, Origin: o})
}

// SetDefault stores a default value with the given (usually empty) origin.
// A following UpdateValue starts from its initial value rather than the default.
func (v *Values) SetDefault(key Key, value any, o origin.Origin) {
	v.put(&Element{Key: key, Value: value, Origin: o, clearOnUpdate: true})
}

// UpdateValue applies fn to the value under key, starting from initial when the
// key is absent, holds a default, or holds a value of another type.
func UpdateValue[T any](v *Values, key Key, o origin.Origin, initial T, fn func(T) (T, error)) error {
	cur := initial
	e, ok := v.elements[key]
	if ok && !e.clearOnUpdate {
		if t, isT := e.Value.(T); isT {
			cur = t
		}
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	if !ok {
		v.put(&Element{Key: key, Value: next, Origin: o})
		return nil
	}
	e.Value = next
	e.Origin = e.Origin.Union(o)
	e.clearOnUpdate = false
	return nil
}

// Append adds items to the list under key.
func Append[T any](v *Values, key Key, o origin.Origin, items ...T) error {
	return UpdateValue(v, key, o, []T(nil), func(cur []T) ([]T, error) {
		return append(cur, items...), nil
	})
}

// Get returns the element under key.
func (v *Values) Get(key Key) (Element, bool) {
	e, ok := v.elements[key]
	if !ok {
		return Element{}, false
	}
	return *e, true
}

// Value returns the value under key.
func (v *Values) Value(key Key) (any, bool) {
	e, ok := v.elements[key]
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// Lookup returns the value under key as a T.
func Lookup[T any](v *Values, key Key) (T, error) {
	var zero T
	raw, ok := v.Value(key)
	if !ok {
		return zero, fmt.Errorf("no value for %q", key)
	}
	t, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("value for %q is %T, not %T", key, raw, zero)
	}
	return t, nil
}

// Origin returns the provenance of the value under key; empty if the key
// is absent or defaulted.
func (v *Values) Origin(key Key) origin.Origin {
	if e, ok := v.elements[key]; ok {
		return e.Origin
	}
	return origin.Origin{}
}

// Delete removes key from v.
func (v *Values) Delete(key Key) {
	if _, ok := v.elements[key]; !ok {
		return
	}
	delete(v.elements, key)
	for i, k := range v.order {
		if k == key {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
}

// Has reports whether key holds a value.
func (v *Values) Has(key Key) bool {
	_, ok := v.elements[key]
	return ok
}

// Keys returns the keys in first-set order.
func (v *Values) Keys() []Key { return slices.Clone(v.order) }

// Len returns the number of keys.
func (v *Values) Len() int { return len(v.elements) }

// Elements returns every element in first-set order.
func (v *Values) Elements() []Element {
	out := make([]Element, 0, len(v.order))
	for _, k := range v.order {
		out = append(out, *v.elements[k])
	}
	return out
}

// Consumed returns the union of every element's origin.
func (v *Values) Consumed() origin.Origin {
	var o origin.Origin
	for _, e := range v.elements {
		o = o.Union(e.Origin)
	}
	return o
}

// Clone returns a copy of v. Values themselves are shared.
func (v *Values) Clone() *Values {
	c := &Values{
		order:    slices.Clone(v.order),
		original: v.original,
	}
	if v.elements != nil {
		c.elements = make(map[Key]*Element, len(v.elements))
		for k, e := range maps.All(v.elements) {
			cp := *e
			c.elements[k] = &cp
		}
	}
	return c
}
