// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package treespec

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/command"
	"github.com/yeetrun/argtree/pkg/parseerr"
	"go.uber.org/zap/zaptest"
)

const toolTOML = `
name = "tool"
version = "1.4.0"
default = "build"

[[arguments]]
key = "verbose"
kind = "count"
names = ["--verbose", "-v"]

[[subcommands]]
name = "build"
aliases = ["b"]

  [[subcommands.arguments]]
  key = "tag"
  names = ["--tag"]
  repeating = true

  [[subcommands.arguments]]
  key = "mode"
  kind = "cases"
  default = "debug"
  cases = [
    { names = ["--debug"], value = "debug" },
    { names = ["--release"], value = "release" },
  ]

  [[subcommands.arguments]]
  key = "jobs"
  names = ["--jobs", "-j"]
  type = "int"
  default = "2"

  [[subcommands.arguments]]
  key = "target"
  kind = "positional"
  required = true
`

const toolYAML = `
name: tool
version: 1.4.0
default: build
arguments:
  - key: verbose
    kind: count
    names: ["--verbose", "-v"]
subcommands:
  - name: build
    aliases: [b]
    arguments:
      - key: tag
        names: ["--tag"]
        repeating: true
      - key: mode
        kind: cases
        default: debug
        cases:
          - names: ["--debug"]
            value: debug
          - names: ["--release"]
            value: release
      - key: jobs
        names: ["--jobs", "-j"]
        type: int
        default: "2"
      - key: target
        kind: positional
        required: true
`

func mustBuild(t *testing.T, data string, format Format) *command.Spec {
	t.Helper()
	doc, err := Decode([]byte(data), format)
	if err != nil {
		t.Fatalf("Decode(%s) error = %v", format, err)
	}
	spec, err := Build(doc, argname.POSIX)
	if err != nil {
		t.Fatalf("Build(%s) error = %v", format, err)
	}
	return spec
}

func parse(t *testing.T, spec *command.Spec, argv ...string) (*command.Result, error) {
	t.Helper()
	return command.Parse(spec, argv, command.WithLogger(zaptest.NewLogger(t)))
}

func TestParseDeclaredTree(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		wantPath []string
		want     []Values
	}{
		{
			name:     "leaf with ancestor flag",
			argv:     []string{"build", "-v", "--tag", "a", "--release", "--tag", "b", "pkg"},
			wantPath: []string{"tool", "build"},
			want: []Values{
				{"verbose": 1},
				{"tag": []any{"a", "b"}, "mode": "release", "jobs": 2, "target": "pkg"},
			},
		},
		{
			name:     "default subcommand",
			argv:     []string{"-j", "8", "pkg"},
			wantPath: []string{"tool", "build"},
			want: []Values{
				{},
				{"mode": "debug", "jobs": 8, "target": "pkg"},
			},
		},
		{
			name:     "alias",
			argv:     []string{"b", "pkg"},
			wantPath: []string{"tool", "build"},
			want: []Values{
				{},
				{"mode": "debug", "jobs": 2, "target": "pkg"},
			},
		},
	}
	for _, format := range []Format{TOML, YAML} {
		data := toolTOML
		if format == YAML {
			data = toolYAML
		}
		spec := mustBuild(t, data, format)
		for _, tt := range tests {
			t.Run(string(format)+"/"+tt.name, func(t *testing.T) {
				res, err := parse(t, spec, tt.argv...)
				if err != nil {
					t.Fatalf("Parse(%q) error = %v", tt.argv, err)
				}
				if diff := cmp.Diff(tt.wantPath, res.Path); diff != "" {
					t.Errorf("Path mismatch (-want +got):\n%s", diff)
				}
				var got []Values
				for _, c := range res.Commands {
					got = append(got, c.Value.(Values))
				}
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Errorf("Values mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestDeclaredTreeErrors(t *testing.T) {
	spec := mustBuild(t, toolTOML, TOML)

	_, err := parse(t, spec, "build")
	if got := parseerr.KindOf(err); got != parseerr.MissingExpectedArgument {
		t.Fatalf("KindOf(%v) = %v, want MissingExpectedArgument", err, got)
	}
	if want := "missing expected argument '<target>'"; err.Error() != want {
		t.Errorf("error = %q, want %q", err, want)
	}

	_, err = parse(t, spec, "build", "--debug", "--release", "pkg")
	if got := parseerr.KindOf(err); got != parseerr.DuplicateExclusiveValues {
		t.Errorf("KindOf(%v) = %v, want DuplicateExclusiveValues", err, got)
	}

	_, err = parse(t, spec, "build", "-j", "lots", "pkg")
	if got := parseerr.KindOf(err); got != parseerr.UnableToParseValue {
		t.Errorf("KindOf(%v) = %v, want UnableToParseValue", err, got)
	}

	_, err = parse(t, spec, "--version")
	var vr *command.VersionRequest
	if !errors.As(err, &vr) || vr.Version != "1.4.0" {
		t.Errorf("Parse(--version) = %v, want version 1.4.0", err)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
	}{
		{"bad version", Document{Name: "tool", Version: "one point oh"}},
		{"unknown kind", Document{Name: "tool", Arguments: []Argument{{Key: "a", Kind: "weird", Names: []string{"--a"}}}}},
		{"unknown type", Document{Name: "tool", Arguments: []Argument{{Key: "a", Type: "complex", Names: []string{"--a"}}}}},
		{"bad name", Document{Name: "tool", Arguments: []Argument{{Key: "a", Names: []string{"a"}}}}},
		{"named positional", Document{Name: "tool", Arguments: []Argument{{Key: "a", Kind: "positional", Names: []string{"--a"}}}}},
		{"bad default", Document{Name: "tool", Arguments: []Argument{{Key: "n", Type: "int", Default: "x", Names: []string{"--n"}}}}},
		{"duplicate name", Document{Name: "tool", Arguments: []Argument{
			{Key: "a", Kind: "flag", Names: []string{"--x"}},
			{Key: "b", Kind: "flag", Names: []string{"--x"}},
		}}},
		{"empty cases", Document{Name: "tool", Arguments: []Argument{{Key: "m", Kind: "cases"}}}},
		{"bad subcommand", Document{Name: "tool", Subcommands: []Document{{Name: "sub", Version: "v?"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(&tt.doc, argname.POSIX)
			if got := parseerr.KindOf(err); got != parseerr.InvalidDeclaration {
				t.Fatalf("KindOf(%v) = %v, want InvalidDeclaration", err, got)
			}
		})
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	if _, err := Decode([]byte("name = \"tool\"\nbogus = 1\n"), TOML); err == nil {
		t.Error("Decode(toml) succeeded with an unknown key")
	}
	if _, err := Decode([]byte("name: tool\nbogus: 1\n"), YAML); err == nil {
		t.Error("Decode(yaml) succeeded with an unknown key")
	}
	if _, err := Decode([]byte("name: tool"), Format("ini")); err == nil {
		t.Error("Decode(ini) succeeded")
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"tool.toml", TOML, true},
		{"tool.yaml", YAML, true},
		{"TOOL.YML", YAML, true},
		{"tool.json", "", false},
	}
	for _, tt := range tests {
		got, err := FormatFor(tt.path)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("FormatFor(%q) = %q, %v; want %q, ok=%v", tt.path, got, err, tt.want, tt.ok)
		}
	}
}

func TestLoadSpec(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tool.yaml")
	if err := os.WriteFile(path, []byte(toolYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	spec, err := LoadSpec(path, argname.POSIX)
	if err != nil {
		t.Fatalf("LoadSpec error = %v", err)
	}
	if spec.Name != "tool" || len(spec.Subcommands) != 1 || spec.Subcommands[0].Name != "build" {
		t.Errorf("LoadSpec = %+v, want tool with build", spec)
	}
	if _, err := LoadSpec(filepath.Join(dir, "missing.toml"), argname.POSIX); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadSpec(missing) error = %v, want not exist", err)
	}
}
