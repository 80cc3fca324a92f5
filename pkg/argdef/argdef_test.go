// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argdef

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/origin"
	"github.com/yeetrun/argtree/pkg/parseerr"
)

func TestNewSetRejectsBadDeclarations(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
	}{
		{"named without names", Definition{Kind: Named, Key: "x", Update: Nullary(StoreTrue("x"))}},
		{"nullary positional", Definition{Kind: Positional, Key: "x", Update: Nullary(StoreTrue("x"))}},
		{"no key", Flag("", []argname.Name{argname.Long("v")}, StoreTrue("v"))},
		{"default without initial", Definition{Kind: PseudoDefault, Key: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSet(tt.def)
			if !errors.Is(err, &parseerr.Error{Kind: parseerr.InvalidDeclaration}) {
				t.Fatalf("NewSet error = %v, want invalid declaration", err)
			}
		})
	}
}

func TestLookupIgnoresJoined(t *testing.T) {
	s := MustNewSet(
		Option("define", []argname.Name{argname.ShortJoined('D')}, Default, AppendString("define")),
		Flag("verbose", []argname.Name{argname.Long("verbose"), argname.Short('v')}, StoreTrue("verbose")),
	)
	d, ok := s.Lookup(argname.Short('D'))
	if !ok || d.Key != "define" {
		t.Fatalf("Lookup(-D) = %v, %v", d, ok)
	}
	if d, ok := s.Lookup(argname.Short('v')); !ok || d.Key != "verbose" {
		t.Fatalf("Lookup(-v) = %v, %v", d, ok)
	}
	if _, ok := s.Lookup(argname.Long("nope")); ok {
		t.Fatal("Lookup(--nope) matched")
	}
}

func TestFirstDeclarationWins(t *testing.T) {
	s := MustNewSet(
		Flag("a", []argname.Name{argname.Long("x")}, StoreTrue("a")),
		Flag("b", []argname.Name{argname.Long("x")}, StoreTrue("b")),
	)
	if d, _ := s.Lookup(argname.Long("x")); d.Key != "a" {
		t.Fatalf("Lookup(--x).Key = %q, want a", d.Key)
	}
	if err := s.CheckUnique(); err == nil {
		t.Fatal("CheckUnique should report the shared name")
	}
}

func TestCapturesAll(t *testing.T) {
	pos := PositionalArg("rest", AppendString("rest"))
	pos.Strategy = AllRemainingInput
	pos.Help.Repeating = true
	if !MustNewSet(pos).CapturesAll() {
		t.Error("set with an all-remaining positional should capture all")
	}
	if MustNewSet(PositionalArg("file", StoreString("file"))).CapturesAll() {
		t.Error("plain positional should not capture all")
	}
}

func TestDefaultListIsReplaced(t *testing.T) {
	v := NewValues(nil)
	v.SetDefault("tags", []string{"a", "b"}, origin.Origin{})
	if err := Append(v, "tags", origin.New(origin.At(3)), "c"); err != nil {
		t.Fatal(err)
	}
	if err := Append(v, "tags", origin.New(origin.At(5)), "d"); err != nil {
		t.Fatal(err)
	}
	got, err := Lookup[[]string](v, "tags")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"c", "d"}, got); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if o := v.Origin("tags"); !o.Equal(origin.New(origin.At(3), origin.At(5))) {
		t.Errorf("Origin = %v, want {3 5}", o)
	}
}

func TestCountOverridesDefault(t *testing.T) {
	s := MustNewSet(Definition{
		Kind:    Named,
		Names:   []argname.Name{argname.Long("count")},
		Key:     "count",
		Update:  Unary(StoreString("count")),
		Initial: DefaultValue("count", "1"),
	})
	v := NewValues([]string{"--count", "2"})
	if err := s.Initialize(v); err != nil {
		t.Fatal(err)
	}
	if e, _ := v.Get("count"); e.FromInput() || e.Value != "1" {
		t.Fatalf("after Initialize: %+v", e)
	}
	d, _ := s.Lookup(argname.Long("count"))
	if err := d.Update.ApplyUnary(origin.New(origin.At(1)), argname.Long("count"), "2", v); err != nil {
		t.Fatal(err)
	}
	e, _ := v.Get("count")
	if e.Value != "2" || !e.Origin.Equal(origin.New(origin.At(1))) {
		t.Errorf("after update: value=%v origin=%v", e.Value, e.Origin)
	}
}

func TestExclusiveFlags(t *testing.T) {
	cases := []FlagCase{
		{Names: []argname.Name{argname.Long("fast")}, Value: "fast"},
		{Names: []argname.Name{argname.Long("slow")}, Value: "slow"},
	}
	apply := func(t *testing.T, s *Set, v *Values, pos int, name string) error {
		t.Helper()
		d, ok := s.Lookup(argname.Long(name))
		if !ok {
			t.Fatalf("no definition for --%s", name)
		}
		return d.Update.ApplyNullary(origin.New(origin.At(pos)), argname.Long(name), v)
	}

	t.Run("exclusive conflict", func(t *testing.T) {
		s := MustNewSet(ExclusiveFlags("speed", Exclusive, "medium", cases...)...)
		v := NewValues(nil)
		if err := s.Initialize(v); err != nil {
			t.Fatal(err)
		}
		if err := apply(t, s, v, 0, "fast"); err != nil {
			t.Fatal(err)
		}
		if err := apply(t, s, v, 1, "fast"); err != nil {
			t.Fatalf("repeating the same flag: %v", err)
		}
		err := apply(t, s, v, 2, "slow")
		pe, ok := parseerr.As(err)
		if !ok || pe.Kind != parseerr.DuplicateExclusiveValues {
			t.Fatalf("err = %v, want duplicate exclusive values", err)
		}
		if !pe.Previous.Equal(origin.New(origin.At(0), origin.At(1))) {
			t.Errorf("Previous = %v", pe.Previous)
		}
	})

	t.Run("choose first", func(t *testing.T) {
		s := MustNewSet(ExclusiveFlags("speed", ChooseFirst, nil, cases...)...)
		v := NewValues(nil)
		apply(t, s, v, 0, "slow")
		apply(t, s, v, 1, "fast")
		if got, _ := v.Value("speed"); got != "slow" {
			t.Errorf("speed = %v, want slow", got)
		}
	})

	t.Run("choose last", func(t *testing.T) {
		s := MustNewSet(ExclusiveFlags("speed", ChooseLast, nil, cases...)...)
		v := NewValues(nil)
		apply(t, s, v, 0, "slow")
		apply(t, s, v, 1, "fast")
		if got, _ := v.Value("speed"); got != "fast" {
			t.Errorf("speed = %v, want fast", got)
		}
		if o := v.Origin("speed"); o.Len() != 2 {
			t.Errorf("origin = %v, want both flags", o)
		}
	})
}

func TestParseStrategy(t *testing.T) {
	for s, want := range map[string]Strategy{
		"":                  Default,
		"scanningForValue":  ScanningForValue,
		"UNCONDITIONAL":     Unconditional,
		"upToNextOption":    UpToNextOption,
		"passthrough":       AllRemainingInput,
		"allRemainingInput": AllRemainingInput,
	} {
		got, err := ParseStrategy(s)
		if err != nil || got != want {
			t.Errorf("ParseStrategy(%q) = %v, %v; want %v", s, got, err, want)
		}
	}
	if _, err := ParseStrategy("greedy"); err == nil {
		t.Error("ParseStrategy(greedy) should fail")
	}
}
