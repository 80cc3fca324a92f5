// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bind declares command arguments from struct tags and decodes
// matched values back into the struct.
//
//	type BuildFlags struct {
//	    Verbose int      `flag:"verbose" short:"v" count:"true" help:"More output"`
//	    Jobs    int      `flag:"jobs" short:"j" default:"4"`
//	    Tags    []string `flag:"tag" help:"Build tag, repeatable or comma separated"`
//	    Mode    string   `cases:"debug,release" default:"debug"`
//	    Target  string   `pos:"0" help:"Package to build"`
//	    Extra   []string `pos:"1*" parsing:"remaining"`
//	}
//
//	spec := &command.Spec{Name: "build", Binder: bind.For[BuildFlags]()}
//
// Supported tags:
//
//   - flag: long name, defaults to the lower-cased field name; "-" skips the field
//   - short: single-character name; joined:"true" allows -Dvalue
//   - single: "true" spells the long name with one dash (-name)
//   - help, value, hidden: help text, value placeholder, hidden from help
//   - default: default value in string form
//   - required: "true" for an option that must be given
//   - parsing: value strategy (default, scanning, unconditional, upToNextOption, remaining)
//   - pos: positional index with optional ?, * or + suffix
//   - count: "true" on an integer field counts occurrences
//   - cases, exclusivity: a group of flags selecting one value (exclusive, first, last)
//   - port: "min-max" range for Port fields
//
// Decode returns a *T, so a Validate method on *T runs after decoding.
package bind

import (
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/yeetrun/argtree/pkg/argdef"
	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/origin"
	"github.com/yeetrun/argtree/pkg/parseerr"
)

// Binder declares and decodes the arguments of struct type T. It
// implements command.Binder and is safe for concurrent use.
type Binder[T any] struct {
	once   sync.Once
	fields []fieldInfo
	set    *argdef.Set
	err    error
}

// For returns a Binder for T, which must be a struct type.
func For[T any]() *Binder[T] {
	return &Binder[T]{}
}

// Arguments returns the definitions declared by the tags of T. The set is
// built once.
func (b *Binder[T]) Arguments() (*argdef.Set, error) {
	b.once.Do(func() {
		b.fields, b.set, b.err = build(reflect.TypeFor[T]())
	})
	return b.set, b.err
}

// Decode builds a *T from values.
func (b *Binder[T]) Decode(_ *argdef.Set, values *argdef.Values) (any, error) {
	if _, err := b.Arguments(); err != nil {
		return nil, err
	}
	out := new(T)
	rv := reflect.ValueOf(out).Elem()
	for i := range b.fields {
		f := &b.fields[i]
		if err := checkRequired(f, values); err != nil {
			return nil, err
		}
		v, ok := values.Value(f.key)
		if !ok {
			continue
		}
		if err := assign(rv.FieldByIndex(f.index), v); err != nil {
			return nil, &parseerr.Error{
				Kind:   parseerr.UserValidation,
				Origin: values.Origin(f.key),
				Key:    string(f.key),
				Err:    err,
			}
		}
	}
	return out, nil
}

func checkRequired(f *fieldInfo, values *argdef.Values) error {
	switch f.kind {
	case kindPositional:
		missing := f.required && !values.Has(f.key)
		if f.minCount > 0 {
			v, ok := values.Value(f.key)
			missing = !ok || reflect.ValueOf(v).Len() < f.minCount
		}
		if missing {
			return &parseerr.Error{Kind: parseerr.MissingExpectedArgument, Key: f.displayName()}
		}
	case kindOption:
		if f.required && !values.Has(f.key) {
			return &parseerr.Error{Kind: parseerr.MissingExpectedArgument, Name: f.names[0], Key: f.displayName()}
		}
	}
	return nil
}

func build(t reflect.Type) ([]fieldInfo, *argdef.Set, error) {
	if t.Kind() != reflect.Struct {
		return nil, nil, parseerr.Declaration("bind: %s is not a struct", t)
	}
	fields, err := extractFields(t, nil, "")
	if err != nil {
		return nil, nil, err
	}
	positionals, err := orderPositionals(fields)
	if err != nil {
		return nil, nil, err
	}

	var defs []argdef.Definition
	for i := range fields {
		f := &fields[i]
		if f.kind == kindPositional {
			continue
		}
		d, err := definitionsFor(f)
		if err != nil {
			return nil, nil, err
		}
		defs = append(defs, d...)
	}
	for i := range positionals {
		d, err := definitionsFor(&positionals[i])
		if err != nil {
			return nil, nil, err
		}
		defs = append(defs, d...)
	}

	set, err := argdef.NewSet(defs...)
	if err != nil {
		return nil, nil, err
	}
	if err := set.CheckUnique(); err != nil {
		return nil, nil, err
	}
	return fields, set, nil
}

func definitionsFor(f *fieldInfo) ([]argdef.Definition, error) {
	initial, err := f.initial()
	if err != nil {
		return nil, err
	}
	if f.kind == kindCases {
		return f.caseDefinitions(initial)
	}

	var d argdef.Definition
	switch f.kind {
	case kindFlag:
		d = argdef.Flag(f.key, f.names, flagUpdate(f))
	case kindCount:
		d = argdef.Flag(f.key, f.names, argdef.Count(f.key))
	case kindOption:
		d = argdef.Option(f.key, f.names, f.strategy, f.unary(true))
	case kindPositional:
		d = argdef.PositionalArg(f.key, f.unary(false))
		d.Strategy = f.strategy
	}
	d.Help = f.help
	if initial != nil {
		d.Initial = argdef.DefaultValue(f.key, initial)
	}
	return []argdef.Definition{d}, nil
}

// flagUpdate stores true, allocating for *bool fields.
func flagUpdate(f *fieldInfo) argdef.NullaryFunc {
	if f.typ.Kind() == reflect.Ptr {
		return func(o origin.Origin, _ argname.Name, v *argdef.Values) error {
			t := true
			v.Set(f.key, &t, o)
			return nil
		}
	}
	return argdef.StoreTrue(f.key)
}

// unary converts each value to the field type. Lists append; options split
// comma-separated values first.
func (f *fieldInfo) unary(splitCommas bool) argdef.UnaryFunc {
	if !f.list {
		return func(o origin.Origin, _ argname.Name, s string, v *argdef.Values) error {
			rv, err := convert(f.typ, s, f.portRange)
			if err != nil {
				return err
			}
			v.Set(f.key, rv.Interface(), o)
			return nil
		}
	}
	return func(o origin.Origin, _ argname.Name, s string, v *argdef.Values) error {
		parts := []string{s}
		if splitCommas {
			parts = splitList(s)
		}
		items, err := f.convertList(parts)
		if err != nil {
			return err
		}
		empty := reflect.MakeSlice(f.typ, 0, 0).Interface()
		return argdef.UpdateValue(v, f.key, o, empty, func(cur any) (any, error) {
			return reflect.AppendSlice(reflect.ValueOf(cur), items).Interface(), nil
		})
	}
}

func (f *fieldInfo) convertList(parts []string) (reflect.Value, error) {
	out := reflect.MakeSlice(f.typ, 0, len(parts))
	for _, p := range parts {
		rv, err := convert(f.typ.Elem(), p, f.portRange)
		if err != nil {
			return reflect.Value{}, err
		}
		out = reflect.Append(out, rv)
	}
	return out, nil
}

// initial converts the default tag, if any, to the stored value type.
func (f *fieldInfo) initial() (any, error) {
	if !f.hasDefault {
		return nil, nil
	}
	var (
		v   any
		err error
	)
	switch {
	case f.kind == kindCount:
		v, err = strconv.Atoi(f.defaultVal)
	case f.list:
		var rv reflect.Value
		rv, err = f.convertList(splitList(f.defaultVal))
		if err == nil {
			v = rv.Interface()
		}
	default:
		var rv reflect.Value
		rv, err = convert(f.typ, f.defaultVal, f.portRange)
		if err == nil {
			v = rv.Interface()
		}
	}
	if err != nil {
		return nil, parseerr.Declaration("field %s: bad default %q: %v", f.key, f.defaultVal, err)
	}
	return v, nil
}

// caseDefinitions declares one flag per case; each stores the case name
// converted to the field type.
func (f *fieldInfo) caseDefinitions(initial any) ([]argdef.Definition, error) {
	cases := make([]argdef.FlagCase, 0, len(f.cases))
	for _, c := range f.cases {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, parseerr.Declaration("field %s: empty case", f.key)
		}
		rv, err := convert(f.typ, c, f.portRange)
		if err != nil {
			return nil, parseerr.Declaration("field %s: case %q: %v", f.key, c, err)
		}
		cases = append(cases, argdef.FlagCase{
			Names: []argname.Name{argname.Long(c)},
			Value: rv.Interface(),
			Help:  argdef.Help{Abstract: f.help.Abstract, Optional: true, Visibility: f.help.Visibility},
		})
	}
	return argdef.ExclusiveFlags(f.key, f.exclusivity, initial, cases...), nil
}
