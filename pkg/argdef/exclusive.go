// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argdef

import (
	"reflect"

	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/origin"
	"github.com/yeetrun/argtree/pkg/parseerr"
)

// Exclusivity decides what happens when more than one flag of a group is
// given.
type Exclusivity uint8

const (
	// Exclusive rejects a second flag that selects a different value.
	Exclusive Exclusivity = iota
	// ChooseFirst keeps the first flag given.
	ChooseFirst
	// ChooseLast keeps the last flag given.
	ChooseLast
)

// FlagCase is one member of a flag group: the names that select it and the
// value it stores.
type FlagCase struct {
	Names []argname.Name
	Value any
	Help  Help
}

// ExclusiveFlags declares a group of flags that all store into key.
// When initial is non-nil it is stored as a default before parsing.
func ExclusiveFlags(key Key, exclusivity Exclusivity, initial any, cases ...FlagCase) []Definition {
	defs := make([]Definition, 0, len(cases))
	for i, c := range cases {
		value := c.Value
		d := Flag(key, c.Names, func(o origin.Origin, name argname.Name, v *Values) error {
			prev, ok := v.Get(key)
			if !ok || !prev.FromInput() {
				v.Set(key, value, o)
				return nil
			}
			switch exclusivity {
			case ChooseFirst:
				v.Set(key, prev.Value, o)
			case ChooseLast:
				v.Set(key, value, o)
			default:
				if !reflect.DeepEqual(prev.Value, value) {
					return &parseerr.Error{
						Kind:     parseerr.DuplicateExclusiveValues,
						Origin:   o,
						Previous: prev.Origin,
						Name:     name,
						Key:      string(key),
					}
				}
				v.Set(key, value, o)
			}
			return nil
		})
		d.Help = c.Help
		if i == 0 && initial != nil {
			d.Initial = func(o origin.Origin, v *Values) error {
				v.SetDefault(key, initial, o)
				return nil
			}
		}
		defs = append(defs, d)
	}
	return defs
}
