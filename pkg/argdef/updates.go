// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argdef

import (
	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/origin"
)

// StoreTrue sets key to true.
func StoreTrue(key Key) NullaryFunc {
	return func(o origin.Origin, _ argname.Name, v *Values) error {
		v.Set(key, true, o)
		return nil
	}
}

// Count increments the int under key.
func Count(key Key) NullaryFunc {
	return func(o origin.Origin, _ argname.Name, v *Values) error {
		return UpdateValue(v, key, o, 0, func(n int) (int, error) { return n + 1, nil })
	}
}

// StoreString sets key to the raw value.
func StoreString(key Key) UnaryFunc {
	return func(o origin.Origin, _ argname.Name, s string, v *Values) error {
		v.Set(key, s, o)
		return nil
	}
}

// AppendString appends the raw value to the []string under key.
func AppendString(key Key) UnaryFunc {
	return func(o origin.Origin, _ argname.Name, s string, v *Values) error {
		return Append(v, key, o, s)
	}
}

// DefaultValue returns an InitialFunc storing value as a default for key.
func DefaultValue(key Key, value any) InitialFunc {
	return func(o origin.Origin, v *Values) error {
		v.SetDefault(key, value, o)
		return nil
	}
}
