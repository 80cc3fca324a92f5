// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package treespec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/yeetrun/argtree/pkg/argdef"
	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/origin"
	"github.com/yeetrun/argtree/pkg/parseerr"
)

// Values is what a declared command decodes to: argument key to value.
// Repeating arguments hold []any.
type Values map[string]any

type converter func(string) (any, error)

func converterFor(typ string) (converter, error) {
	switch strings.ToLower(typ) {
	case "", "string":
		return func(s string) (any, error) { return s, nil }, nil
	case "int":
		return func(s string) (any, error) { return strconv.Atoi(s) }, nil
	case "float":
		return func(s string) (any, error) { return strconv.ParseFloat(s, 64) }, nil
	case "bool":
		return func(s string) (any, error) { return strconv.ParseBool(s) }, nil
	case "duration":
		return func(s string) (any, error) { return time.ParseDuration(s) }, nil
	case "version":
		return func(s string) (any, error) { return semver.NewVersion(s) }, nil
	}
	return nil, fmt.Errorf("unknown value type %q", typ)
}

// binder declares the arguments of one command and decodes them into
// Values.
type binder struct {
	set      *argdef.Set
	required []*Argument
	names    map[string]argname.Name
}

func newBinder(command string, args []Argument, conv argname.Convention) (*binder, error) {
	b := &binder{names: make(map[string]argname.Name)}
	var defs []argdef.Definition
	for i := range args {
		a := &args[i]
		d, err := b.definitions(a, conv)
		if err != nil {
			return nil, parseerr.Declaration("command %q: argument %q: %v", command, a.Key, unwrapDeclaration(err))
		}
		defs = append(defs, d...)
		if a.Required {
			b.required = append(b.required, a)
		}
	}
	set, err := argdef.NewSet(defs...)
	if err != nil {
		return nil, err
	}
	if err := set.CheckUnique(); err != nil {
		return nil, err
	}
	b.set = set
	return b, nil
}

// unwrapDeclaration avoids repeating "invalid declaration" when wrapping.
func unwrapDeclaration(err error) error {
	if pe, ok := parseerr.As(err); ok && pe.Kind == parseerr.InvalidDeclaration && pe.Err != nil {
		return pe.Err
	}
	return err
}

func (b *binder) Arguments() (*argdef.Set, error) { return b.set, nil }

func (b *binder) Decode(_ *argdef.Set, values *argdef.Values) (any, error) {
	for _, a := range b.required {
		if values.Has(argdef.Key(a.Key)) {
			continue
		}
		return nil, &parseerr.Error{
			Kind: parseerr.MissingExpectedArgument,
			Name: b.names[a.Key],
			Key:  a.valueName(),
		}
	}
	out := make(Values, values.Len())
	for _, e := range values.Elements() {
		out[string(e.Key)] = e.Value
	}
	return out, nil
}

func (a *Argument) valueName() string {
	if a.ValueName != "" {
		return a.ValueName
	}
	return a.Key
}

func (a *Argument) help() (argdef.Help, error) {
	h := argdef.Help{
		Abstract:     a.Help,
		Discussion:   a.Discussion,
		ValueName:    a.valueName(),
		DefaultValue: a.Default,
		Optional:     !a.Required,
		Repeating:    a.Repeating,
	}
	switch strings.ToLower(a.Visibility) {
	case "", "visible":
	case "hidden":
		h.Visibility = argdef.Hidden
	case "private":
		h.Visibility = argdef.Private
	default:
		return h, fmt.Errorf("unknown visibility %q", a.Visibility)
	}
	return h, nil
}

func parseNames(spellings []string, conv argname.Convention) ([]argname.Name, error) {
	names := make([]argname.Name, 0, len(spellings))
	for _, s := range spellings {
		n, err := argname.Parse(s, conv)
		if err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, nil
}

func (b *binder) definitions(a *Argument, conv argname.Convention) ([]argdef.Definition, error) {
	if a.Key == "" {
		return nil, fmt.Errorf("missing key")
	}
	key := argdef.Key(a.Key)
	help, err := a.help()
	if err != nil {
		return nil, err
	}
	convert, err := converterFor(a.Type)
	if err != nil {
		return nil, err
	}
	strategy, err := argdef.ParseStrategy(a.Strategy)
	if err != nil {
		return nil, err
	}

	if a.Kind == "cases" {
		return b.cases(a, key, convert, conv)
	}

	names, err := parseNames(a.Names, conv)
	if err != nil {
		return nil, err
	}
	if len(names) > 0 {
		b.names[a.Key] = names[0]
	}

	var d argdef.Definition
	var initial any
	switch a.Kind {
	case "flag":
		d = argdef.Flag(key, names, argdef.StoreTrue(key))
		if a.Default != "" {
			initial, err = strconv.ParseBool(a.Default)
		}
	case "count":
		d = argdef.Flag(key, names, argdef.Count(key))
		if a.Default != "" {
			initial, err = strconv.Atoi(a.Default)
		}
	case "option", "":
		d = argdef.Option(key, names, strategy, store(key, convert, a.Repeating))
		initial, err = a.initial(convert)
	case "positional":
		if len(names) > 0 {
			return nil, fmt.Errorf("positional arguments take no names")
		}
		if strategy == argdef.AllRemainingInput {
			help.Repeating = true
		}
		d = argdef.PositionalArg(key, store(key, convert, help.Repeating))
		d.Strategy = strategy
		initial, err = a.initial(convert)
	default:
		return nil, fmt.Errorf("unknown kind %q", a.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("bad default %q: %w", a.Default, err)
	}
	d.Help = help
	if initial != nil {
		d.Initial = argdef.DefaultValue(key, initial)
	}
	return []argdef.Definition{d}, nil
}

func (a *Argument) initial(conv converter) (any, error) {
	if a.Default == "" {
		return nil, nil
	}
	if !a.Repeating {
		return conv(a.Default)
	}
	var out []any
	for _, part := range strings.Split(a.Default, ",") {
		v, err := conv(part)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// store converts the value and stores it, appending for repeating
// arguments.
func store(key argdef.Key, conv converter, repeating bool) argdef.UnaryFunc {
	return func(o origin.Origin, _ argname.Name, s string, v *argdef.Values) error {
		val, err := conv(s)
		if err != nil {
			return err
		}
		if repeating {
			return argdef.Append(v, key, o, val)
		}
		v.Set(key, val, o)
		return nil
	}
}

func (b *binder) cases(a *Argument, key argdef.Key, conv converter, nameConv argname.Convention) ([]argdef.Definition, error) {
	if len(a.Cases) == 0 {
		return nil, fmt.Errorf("cases argument declares no cases")
	}
	var exclusivity argdef.Exclusivity
	switch strings.ToLower(a.Exclusivity) {
	case "", "exclusive":
		exclusivity = argdef.Exclusive
	case "first":
		exclusivity = argdef.ChooseFirst
	case "last":
		exclusivity = argdef.ChooseLast
	default:
		return nil, fmt.Errorf("unknown exclusivity %q", a.Exclusivity)
	}
	var initial any
	if a.Default != "" {
		v, err := conv(a.Default)
		if err != nil {
			return nil, fmt.Errorf("bad default %q: %w", a.Default, err)
		}
		initial = v
	}
	cases := make([]argdef.FlagCase, 0, len(a.Cases))
	for _, c := range a.Cases {
		names, err := parseNames(c.Names, nameConv)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("case %q has no names", c.Value)
		}
		v, err := conv(c.Value)
		if err != nil {
			return nil, fmt.Errorf("case %q: %w", c.Value, err)
		}
		cases = append(cases, argdef.FlagCase{
			Names: names,
			Value: v,
			Help:  argdef.Help{Abstract: c.Help, Optional: true},
		})
	}
	if a.Required {
		b.names[a.Key] = cases[0].Names[0]
	}
	return argdef.ExclusiveFlags(key, exclusivity, initial, cases...), nil
}
