// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package command

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yeetrun/argtree/pkg/argdef"
	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/origin"
	"github.com/yeetrun/argtree/pkg/parseerr"
	"go.uber.org/zap/zaptest"
)

func flag(key string, names ...argname.Name) argdef.Definition {
	return argdef.Flag(argdef.Key(key), names, argdef.StoreTrue(argdef.Key(key)))
}

func option(key string, strategy argdef.Strategy, names ...argname.Name) argdef.Definition {
	return argdef.Option(argdef.Key(key), names, strategy, argdef.StoreString(argdef.Key(key)))
}

func positional(key string) argdef.Definition {
	return argdef.PositionalArg(argdef.Key(key), argdef.StoreString(argdef.Key(key)))
}

func passthrough(key string) argdef.Definition {
	d := argdef.PositionalArg(argdef.Key(key), argdef.AppendString(argdef.Key(key)))
	d.Strategy = argdef.AllRemainingInput
	d.Help.Repeating = true
	return d
}

func static(defs ...argdef.Definition) Binder {
	return Static{Set: argdef.MustNewSet(defs...)}
}

// funcBinder decodes with a test-supplied function.
type funcBinder struct {
	set    *argdef.Set
	decode func(*argdef.Values) (any, error)
}

func (b funcBinder) Arguments() (*argdef.Set, error) { return b.set, nil }

func (b funcBinder) Decode(_ *argdef.Set, v *argdef.Values) (any, error) { return b.decode(v) }

type checked struct{ err error }

func (c checked) Validate() error { return c.err }

func valuesAt(t *testing.T, res *Result, i int) *argdef.Values {
	t.Helper()
	if i >= len(res.Commands) {
		t.Fatalf("result has %d commands, want index %d", len(res.Commands), i)
	}
	return res.Commands[i].Values
}

func parse(t *testing.T, root *Spec, argv ...string) (*Result, error) {
	t.Helper()
	p, err := New(root, WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p.Parse(argv)
}

// tree returns root -> {build, test -> {unit}}.
func tree(rootDefs, testDefs, unitDefs []argdef.Definition) *Spec {
	return &Spec{
		Name:   "root",
		Binder: static(rootDefs...),
		Subcommands: []*Spec{
			{Name: "build"},
			{
				Name:    "test",
				Aliases: []string{"t"},
				Binder:  static(testDefs...),
				Subcommands: []*Spec{
					{Name: "unit", Binder: static(unitDefs...)},
				},
			},
		},
	}
}

func TestSubcommandDescent(t *testing.T) {
	verbose := []argdef.Definition{flag("verbose", argname.Long("verbose"))}

	for _, tt := range []struct {
		name  string
		root  *Spec
		level int
	}{
		{"declared on leaf", tree(nil, nil, verbose), 2},
		{"declared on parent", tree(nil, verbose, nil), 1},
		{"declared on root", tree(verbose, nil, nil), 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parse(t, tt.root, "test", "unit", "--verbose")
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff([]string{"root", "test", "unit"}, res.Path); diff != "" {
				t.Errorf("path mismatch (-want +got):\n%s", diff)
			}
			v := valuesAt(t, res, tt.level)
			e, ok := v.Get("verbose")
			if !ok || e.Value != true || !e.Origin.Equal(origin.New(origin.At(2))) {
				t.Errorf("verbose at level %d = %+v, want true from input 2", tt.level, e)
			}
		})
	}
}

func TestAliasResolvesToName(t *testing.T) {
	res, err := parse(t, tree(nil, nil, nil), "t", "unit")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"root", "test", "unit"}, res.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestHelpShortCircuit(t *testing.T) {
	root := &Spec{Name: "root", Subcommands: []*Spec{{Name: "sub"}}}
	_, err := parse(t, root, "sub", "--bogus-flag", "--help")
	var help *HelpRequest
	if !errors.As(err, &help) {
		t.Fatalf("err = %v, want help request", err)
	}
	if diff := cmp.Diff([]string{"root", "sub"}, help.Path); diff != "" {
		t.Errorf("help path mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(err, ErrHelp) || !IsControl(err) {
		t.Errorf("help request should match ErrHelp and be a control signal")
	}
	if !help.Origin.Equal(origin.New(origin.At(2))) {
		t.Errorf("help origin = %v, want {2}", help.Origin)
	}
}

func TestHelpWinsOverDecodeError(t *testing.T) {
	required := funcBinder{
		set: argdef.MustNewSet(positional("file")),
		decode: func(v *argdef.Values) (any, error) {
			if !v.Has("file") {
				return nil, &parseerr.Error{Kind: parseerr.MissingExpectedArgument, Key: "file"}
			}
			return v, nil
		},
	}
	root := &Spec{Name: "root", Subcommands: []*Spec{{Name: "cat", Binder: required}}}

	_, err := parse(t, root, "cat", "-h")
	if !errors.Is(err, ErrHelp) {
		t.Fatalf("cat -h: err = %v, want help", err)
	}

	_, err = parse(t, root, "cat")
	pe, ok := parseerr.As(err)
	if !ok || pe.Kind != parseerr.MissingExpectedArgument {
		t.Fatalf("cat: err = %v, want missing expected argument", err)
	}
	if diff := cmp.Diff([]string{"root", "cat"}, pe.Path); diff != "" {
		t.Errorf("error path mismatch (-want +got):\n%s", diff)
	}
}

func TestLeniency(t *testing.T) {
	root := &Spec{
		Name:        "root",
		Binder:      static(flag("parent", argname.Long("parent-only-flag"))),
		Subcommands: []*Spec{{Name: "sub", Binder: static(flag("child", argname.Long("child-flag")))}},
	}
	res, err := parse(t, root, "sub", "--parent-only-flag", "--child-flag")
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := valuesAt(t, res, 0).Value("parent"); got != true {
		t.Errorf("root parent flag = %v, want true", got)
	}
	if got, _ := valuesAt(t, res, 1).Value("child"); got != true {
		t.Errorf("sub child flag = %v, want true", got)
	}
}

func TestAncestorOptionValueBeforePositionals(t *testing.T) {
	root := &Spec{
		Name: "root",
		Binder: static(
			option("out", argdef.Default, argname.Long("out")),
			option("level", argdef.ScanningForValue, argname.Long("level")),
			option("pattern", argdef.Unconditional, argname.Long("pattern")),
		),
		Subcommands: []*Spec{{
			Name:   "sub",
			Binder: static(flag("child", argname.Long("child-flag")), positional("name")),
		}},
	}
	tests := []struct {
		name     string
		argv     []string
		key      string
		want     string
		from     origin.Origin
		wantName any
	}{
		{
			name: "value only",
			argv: []string{"sub", "--out", "file.txt"},
			key:  "out",
			want: "file.txt",
			from: origin.New(origin.At(1), origin.At(2)),
		},
		{
			name:     "value then positional",
			argv:     []string{"sub", "--out", "file.txt", "input.txt"},
			key:      "out",
			want:     "file.txt",
			from:     origin.New(origin.At(1), origin.At(2)),
			wantName: "input.txt",
		},
		{
			name:     "scanning past a child flag",
			argv:     []string{"sub", "--level", "--child-flag", "3", "input.txt"},
			key:      "level",
			want:     "3",
			from:     origin.New(origin.At(1), origin.At(3)),
			wantName: "input.txt",
		},
		{
			name:     "unconditional takes an option-like word",
			argv:     []string{"sub", "--pattern", "-x", "input.txt"},
			key:      "pattern",
			want:     "-x",
			from:     origin.New(origin.At(1), origin.At(2)),
			wantName: "input.txt",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parse(t, root, tt.argv...)
			if err != nil {
				t.Fatal(err)
			}
			e, ok := valuesAt(t, res, 0).Get(argdef.Key(tt.key))
			if !ok || e.Value != tt.want {
				t.Fatalf("root %s = %+v, want %q", tt.key, e, tt.want)
			}
			if !e.Origin.Equal(tt.from) {
				t.Errorf("root %s origin = %v, want %v", tt.key, e.Origin, tt.from)
			}
			name, _ := valuesAt(t, res, 1).Value("name")
			if name != tt.wantName {
				t.Errorf("sub name = %v, want %v", name, tt.wantName)
			}
		})
	}
}

func TestAncestorOptionBetweenSubcommands(t *testing.T) {
	root := tree(
		[]argdef.Definition{option("out", argdef.Default, argname.Long("out"))},
		[]argdef.Definition{positional("target")},
		nil,
	)
	res, err := parse(t, root, "test", "--out", "o.txt", "a", "unit")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"root", "test", "unit"}, res.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	if got, _ := valuesAt(t, res, 0).Value("out"); got != "o.txt" {
		t.Errorf("root out = %v, want o.txt", got)
	}
	if got, _ := valuesAt(t, res, 1).Value("target"); got != "a" {
		t.Errorf("test target = %v, want a", got)
	}
}

func TestAncestorErrorCarriesAncestorPath(t *testing.T) {
	strict := funcBinder{
		set: argdef.MustNewSet(option("out", argdef.Default, argname.Long("out"))),
		decode: func(v *argdef.Values) (any, error) {
			if out, _ := v.Value("out"); out == "bad" {
				return checked{err: errors.New("out must not be bad")}, nil
			}
			return checked{}, nil
		},
	}
	root := &Spec{Name: "root", Binder: strict, Subcommands: []*Spec{{Name: "sub"}}}

	_, err := parse(t, root, "sub", "--out", "bad")
	pe, ok := parseerr.As(err)
	if !ok || pe.Kind != parseerr.UserValidation {
		t.Fatalf("err = %v, want user validation", err)
	}
	if diff := cmp.Diff([]string{"root"}, pe.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}

	_, err = parse(t, root, "sub", "--out")
	pe, ok = parseerr.As(err)
	if !ok || pe.Kind != parseerr.MissingValueForOption {
		t.Fatalf("err = %v, want missing value", err)
	}
	if diff := cmp.Diff([]string{"root"}, pe.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownOption(t *testing.T) {
	root := &Spec{Name: "root", Subcommands: []*Spec{{Name: "sub"}}}
	_, err := parse(t, root, "sub", "x", "--bogus")
	pe, ok := parseerr.As(err)
	if !ok || pe.Kind != parseerr.UnknownOption {
		t.Fatalf("err = %v, want unknown option", err)
	}
	if pe.Value != "--bogus" || !pe.Origin.Equal(origin.New(origin.At(2))) {
		t.Errorf("unknown option = %q at %v", pe.Value, pe.Origin)
	}
	if diff := cmp.Diff([]string{"root", "sub"}, pe.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	if got := pe.Error(); got != "unknown option '--bogus'" {
		t.Errorf("Error() = %q", got)
	}
}

func TestUnexpectedExtraValues(t *testing.T) {
	root := &Spec{Name: "root", Binder: static(positional("A"), positional("B"))}
	_, err := parse(t, root, "x", "y", "z")
	pe, ok := parseerr.As(err)
	if !ok || pe.Kind != parseerr.UnexpectedExtraValues {
		t.Fatalf("err = %v, want unexpected extra values", err)
	}
	want := []parseerr.ExtraValue{{Origin: origin.New(origin.At(2)), Value: "z"}}
	if diff := cmp.Diff(want, pe.Extra, cmp.Comparer(origin.Origin.Equal)); diff != "" {
		t.Errorf("extra mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"root"}, pe.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestLexErrorCarriesRootPath(t *testing.T) {
	_, err := parse(t, &Spec{Name: "root"}, "---x")
	pe, ok := parseerr.As(err)
	if !ok || pe.Kind != parseerr.InvalidOption {
		t.Fatalf("err = %v, want invalid option", err)
	}
	if diff := cmp.Diff([]string{"root"}, pe.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestTerminatorHidesHelp(t *testing.T) {
	root := &Spec{Name: "root", Binder: static(passthrough("rest"))}
	res, err := parse(t, root, "--", "--help")
	if err != nil {
		t.Fatal(err)
	}
	got, _ := valuesAt(t, res, 0).Value("rest")
	if diff := cmp.Diff([]string{"--help"}, got); diff != "" {
		t.Errorf("rest mismatch (-want +got):\n%s", diff)
	}
}

func TestVersion(t *testing.T) {
	root := &Spec{Name: "root", Version: "1.2.3", Subcommands: []*Spec{{Name: "sub"}}}
	_, err := parse(t, root, "sub", "--version")
	var vr *VersionRequest
	if !errors.As(err, &vr) || vr.Version != "1.2.3" {
		t.Fatalf("err = %v, want version request for 1.2.3", err)
	}
	if diff := cmp.Diff([]string{"root", "sub"}, vr.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}

	root.Version = ""
	_, err = parse(t, root, "--version")
	if parseerr.KindOf(err) != parseerr.UnknownOption {
		t.Fatalf("without a version: err = %v, want unknown option", err)
	}
}

func TestDeclaredNameShadowsBuiltin(t *testing.T) {
	root := &Spec{Name: "root", Binder: static(flag("host", argname.Short('h')))}
	res, err := parse(t, root, "-h")
	if err != nil {
		t.Fatalf("err = %v, want -h bound to host", err)
	}
	if got, _ := valuesAt(t, res, 0).Value("host"); got != true {
		t.Errorf("host = %v, want true", got)
	}
}

func TestHelpVariants(t *testing.T) {
	root := tree(nil, nil, nil)
	tests := []struct {
		argv       []string
		path       []string
		visibility argdef.Visibility
	}{
		{[]string{"-help"}, []string{"root"}, argdef.Visible},
		{[]string{"test", "--help-hidden"}, []string{"root", "test"}, argdef.Hidden},
		{[]string{"help"}, []string{"root"}, argdef.Visible},
		{[]string{"help", "test", "unit"}, []string{"root", "test", "unit"}, argdef.Visible},
		{[]string{"help", "test", "nope"}, []string{"root", "test"}, argdef.Visible},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.argv), func(t *testing.T) {
			_, err := parse(t, root, tt.argv...)
			var help *HelpRequest
			if !errors.As(err, &help) {
				t.Fatalf("err = %v, want help request", err)
			}
			if diff := cmp.Diff(tt.path, help.Path); diff != "" {
				t.Errorf("path mismatch (-want +got):\n%s", diff)
			}
			if help.Visibility != tt.visibility {
				t.Errorf("visibility = %v, want %v", help.Visibility, tt.visibility)
			}
		})
	}
}

func TestCompletionAndDump(t *testing.T) {
	root := tree(nil, nil, nil)
	for want, argv := range map[string][]string{
		"zsh":  {"--generate-completion-script", "zsh"},
		"bash": {"--generate-completion-script=bash"},
		"":     {"--generate-completion-script"},
	} {
		_, err := parse(t, root, argv...)
		var cr *CompletionRequest
		if !errors.As(err, &cr) || cr.Shell != want {
			t.Errorf("%q: err = %v, want completion request for %q", argv, err, want)
		}
	}

	_, err := parse(t, root, "test", "--experimental-dump-help")
	var dr *DumpHelpRequest
	if !errors.As(err, &dr) || !errors.Is(err, ErrDumpHelp) {
		t.Fatalf("err = %v, want dump help request", err)
	}
	if diff := cmp.Diff([]string{"root", "test"}, dr.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultSubcommand(t *testing.T) {
	root := &Spec{
		Name:    "root",
		Default: "run",
		Binder:  static(flag("verbose", argname.Long("verbose"))),
		Subcommands: []*Spec{
			{Name: "run", Binder: static(flag("fast", argname.Long("fast")))},
			{Name: "stop"},
		},
	}
	res, err := parse(t, root, "--verbose", "--fast")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"root", "run"}, res.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	if got, _ := valuesAt(t, res, 1).Value("fast"); got != true {
		t.Errorf("fast = %v, want true", got)
	}

	res, err = parse(t, root, "stop")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"root", "stop"}, res.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultSubcommandCapturesAll(t *testing.T) {
	root := &Spec{
		Name:    "root",
		Default: "exec",
		Binder:  static(flag("verbose", argname.Long("verbose"))),
		Subcommands: []*Spec{
			{Name: "exec", Binder: static(passthrough("argv"))},
			{Name: "list"},
		},
	}
	res, err := parse(t, root, "--verbose", "ls", "-la", "--verbose")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"root", "exec"}, res.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	got, _ := valuesAt(t, res, 1).Value("argv")
	if diff := cmp.Diff([]string{"ls", "-la", "--verbose"}, got); diff != "" {
		t.Errorf("argv mismatch (-want +got):\n%s", diff)
	}
	if e, _ := valuesAt(t, res, 0).Get("verbose"); !e.Origin.Equal(origin.New(origin.At(0))) {
		t.Errorf("root verbose origin = %v, want {0}", e.Origin)
	}

	res, err = parse(t, root, "list")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"root", "list"}, res.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestCaptureAllVersusSubcommand(t *testing.T) {
	newRoot := func(childCaptures bool) *Spec {
		child := &Spec{Name: "run"}
		if childCaptures {
			child.Binder = static(passthrough("args"))
		}
		return &Spec{Name: "root", Binder: static(passthrough("argv")), Subcommands: []*Spec{child}}
	}

	res, err := parse(t, newRoot(false), "run")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"root", "run"}, res.Path); diff != "" {
		t.Errorf("ordinary child: path mismatch (-want +got):\n%s", diff)
	}

	res, err = parse(t, newRoot(true), "run", "x")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"root"}, res.Path); diff != "" {
		t.Errorf("capturing child: path mismatch (-want +got):\n%s", diff)
	}
	got, _ := valuesAt(t, res, 0).Value("argv")
	if diff := cmp.Diff([]string{"run", "x"}, got); diff != "" {
		t.Errorf("argv mismatch (-want +got):\n%s", diff)
	}
}

func TestValidation(t *testing.T) {
	bad := funcBinder{
		set: argdef.MustNewSet(),
		decode: func(*argdef.Values) (any, error) {
			return checked{err: errors.New("port must be even")}, nil
		},
	}
	root := &Spec{Name: "root", Subcommands: []*Spec{{Name: "serve", Binder: bad}}}
	_, err := parse(t, root, "serve")
	pe, ok := parseerr.As(err)
	if !ok || pe.Kind != parseerr.UserValidation {
		t.Fatalf("err = %v, want user validation", err)
	}
	if diff := cmp.Diff([]string{"root", "serve"}, pe.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	if pe.Error() != "port must be even" {
		t.Errorf("Error() = %q", pe.Error())
	}

	res, err := parse(t, &Spec{Name: "root", Binder: funcBinder{
		set:    argdef.MustNewSet(),
		decode: func(*argdef.Values) (any, error) { return checked{}, nil },
	}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Command.(checked); !ok {
		t.Errorf("Command = %#v, want checked", res.Command)
	}
}

func TestDeclarationErrors(t *testing.T) {
	self := &Spec{Name: "loop"}
	self.Subcommands = []*Spec{self}

	tests := []struct {
		name string
		root *Spec
	}{
		{"nil root", nil},
		{"unnamed", &Spec{}},
		{"duplicate child", &Spec{Name: "r", Subcommands: []*Spec{{Name: "a"}, {Name: "b", Aliases: []string{"a"}}}}},
		{"missing default", &Spec{Name: "r", Default: "x", Subcommands: []*Spec{{Name: "a"}}}},
		{"cycle", self},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.root)
			if parseerr.KindOf(err) != parseerr.InvalidDeclaration {
				t.Fatalf("New error = %v, want invalid declaration", err)
			}
		})
	}
}

func TestConvention(t *testing.T) {
	root := &Spec{Name: "root", Binder: static(flag("verbose", argname.Long("verbose")), positional("file"))}
	p, err := New(root, WithConvention(argname.DOS))
	if err != nil {
		t.Fatal(err)
	}
	res, err := p.Parse([]string{"/verbose", "//", "/etc/hosts"})
	if err != nil {
		t.Fatal(err)
	}
	v := valuesAt(t, res, 0)
	if got, _ := v.Value("verbose"); got != true {
		t.Errorf("verbose = %v, want true", got)
	}
	if got, _ := v.Value("file"); got != "/etc/hosts" {
		t.Errorf("file = %v, want /etc/hosts", got)
	}
}
