// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bind

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yeetrun/argtree/pkg/argdef"
	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/parseerr"
)

type fieldKind uint8

const (
	kindFlag fieldKind = iota + 1
	kindCount
	kindOption
	kindPositional
	kindCases
)

// fieldInfo is what the tags of one struct field declare.
type fieldInfo struct {
	key   argdef.Key
	index []int
	typ   reflect.Type
	kind  fieldKind

	names    []argname.Name
	strategy argdef.Strategy
	help     argdef.Help

	portRange  string
	required   bool
	list       bool
	position   int
	variadic   bool
	minCount   int
	defaultVal string
	hasDefault bool

	cases       []string
	exclusivity argdef.Exclusivity
}

// displayName is how errors refer to a field without a name.
func (f *fieldInfo) displayName() string {
	return f.help.ValueName
}

// extractFields walks the exported fields of structType, descending into
// untagged embedded structs.
func extractFields(structType reflect.Type, index []int, prefix string) ([]fieldInfo, error) {
	var out []fieldInfo
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() {
			continue
		}
		idx := append(slices.Clone(index), i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct && field.Tag == "" {
			sub, err := extractFields(field.Type, idx, prefix+field.Name+".")
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		if field.Tag.Get("flag") == "-" {
			continue
		}
		info, err := fieldFor(field, idx, prefix)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func fieldFor(field reflect.StructField, index []int, prefix string) (fieldInfo, error) {
	tag := field.Tag
	info := fieldInfo{
		key:       argdef.Key(prefix + field.Name),
		index:     index,
		typ:       field.Type,
		portRange: tag.Get("port"),
		required:  tag.Get("required") == "true",
		help: argdef.Help{
			Abstract:     tag.Get("help"),
			ValueName:    tag.Get("value"),
			DefaultValue: tag.Get("default"),
		},
	}
	if info.help.ValueName == "" {
		info.help.ValueName = strings.ToLower(field.Name)
	}
	if tag.Get("hidden") == "true" {
		info.help.Visibility = argdef.Hidden
	}
	info.defaultVal, info.hasDefault = tag.Lookup("default")

	strategy, err := argdef.ParseStrategy(tag.Get("parsing"))
	if err != nil {
		return info, parseerr.Declaration("field %s: %v", field.Name, err)
	}
	info.strategy = strategy

	if posTag := tag.Get("pos"); posTag != "" {
		return positionalField(info, posTag)
	}

	if cases := tag.Get("cases"); cases != "" {
		info.kind = kindCases
		info.cases = strings.Split(cases, ",")
		switch tag.Get("exclusivity") {
		case "", "exclusive":
			info.exclusivity = argdef.Exclusive
		case "first":
			info.exclusivity = argdef.ChooseFirst
		case "last":
			info.exclusivity = argdef.ChooseLast
		default:
			return info, parseerr.Declaration("field %s: unknown exclusivity %q", field.Name, tag.Get("exclusivity"))
		}
		return info, nil
	}

	names, err := namesFor(field)
	if err != nil {
		return info, err
	}
	info.names = names
	info.help.Optional = !info.required

	elem := field.Type
	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	switch {
	case elem.Kind() == reflect.Bool:
		info.kind = kindFlag
	case tag.Get("count") == "true":
		if !isInt(elem) {
			return info, parseerr.Declaration("field %s: count requires an integer type", field.Name)
		}
		info.kind = kindCount
	case field.Type.Kind() == reflect.Slice:
		info.kind = kindOption
		info.list = true
		info.help.Repeating = true
	default:
		info.kind = kindOption
	}
	return info, nil
}

// positionalField applies a pos tag: "0" required, "0?" optional, "0*"
// zero or more, "0+" one or more.
func positionalField(info fieldInfo, posTag string) (fieldInfo, error) {
	info.kind = kindPositional
	posStr := posTag
	switch {
	case strings.HasSuffix(posTag, "?"):
		posStr = strings.TrimSuffix(posTag, "?")
	case strings.HasSuffix(posTag, "*"):
		info.variadic = true
		posStr = strings.TrimSuffix(posTag, "*")
	case strings.HasSuffix(posTag, "+"):
		info.variadic = true
		info.minCount = 1
		posStr = strings.TrimSuffix(posTag, "+")
	default:
		info.required = true
	}
	pos, err := strconv.Atoi(posStr)
	if err != nil {
		return info, parseerr.Declaration("field %s: invalid pos tag %q", info.key, posTag)
	}
	info.position = pos
	if info.variadic && info.typ.Kind() != reflect.Slice {
		return info, parseerr.Declaration("field %s: variadic positional must be a slice", info.key)
	}
	if info.strategy == argdef.AllRemainingInput && !info.variadic {
		return info, parseerr.Declaration("field %s: only a variadic positional can take all remaining input", info.key)
	}
	info.list = info.variadic
	info.help.Repeating = info.variadic
	info.help.Optional = !info.required && info.minCount == 0
	return info, nil
}

func namesFor(field reflect.StructField) ([]argname.Name, error) {
	tag := field.Tag
	flagName := tag.Get("flag")
	if flagName == "" {
		flagName = strings.ToLower(field.Name)
	}
	var names []argname.Name
	if tag.Get("single") == "true" {
		names = append(names, argname.LongWithSingleDash(flagName))
	} else {
		names = append(names, argname.Long(flagName))
	}
	if short := tag.Get("short"); short != "" {
		if utf8.RuneCountInString(short) != 1 {
			return nil, parseerr.Declaration("field %s: short name %q must be one character", field.Name, short)
		}
		c, _ := utf8.DecodeRuneInString(short)
		if tag.Get("joined") == "true" {
			names = append(names, argname.ShortJoined(c))
		} else {
			names = append(names, argname.Short(c))
		}
	}
	return names, nil
}

func isInt(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// orderPositionals sorts positional fields by position and checks that
// only the last one is variadic.
func orderPositionals(fields []fieldInfo) ([]fieldInfo, error) {
	var pos []fieldInfo
	for _, f := range fields {
		if f.kind == kindPositional {
			pos = append(pos, f)
		}
	}
	slices.SortStableFunc(pos, func(a, b fieldInfo) int { return a.position - b.position })
	for i, f := range pos {
		if f.variadic && i != len(pos)-1 {
			return nil, parseerr.Declaration("variadic positional %s must be last", f.key)
		}
		if i > 0 && pos[i-1].position == f.position {
			return nil, parseerr.Declaration("positionals %s and %s share position %d", pos[i-1].key, f.key, f.position)
		}
	}
	return pos, nil
}

func (f *fieldInfo) String() string {
	return fmt.Sprintf("%s(%v)", f.key, f.typ)
}
