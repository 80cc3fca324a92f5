// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package treespec loads command trees declared in TOML or YAML.
//
// A declaration names a command, its arguments and its subcommands:
//
//	name = "tool"
//	version = "1.4.0"
//
//	[[arguments]]
//	key = "verbose"
//	kind = "count"
//	names = ["--verbose", "-v"]
//
//	[[subcommands]]
//	name = "build"
//	aliases = ["b"]
//
//	  [[subcommands.arguments]]
//	  key = "target"
//	  kind = "positional"
//	  required = true
//
// Commands built from a declaration decode to a Values map.
package treespec

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/command"
	"github.com/yeetrun/argtree/pkg/parseerr"
	"gopkg.in/yaml.v3"
)

// Format is a declaration file format.
type Format string

const (
	TOML Format = "toml"
	YAML Format = "yaml"
)

// FormatFor picks a format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unknown tree spec format for %q (want .toml, .yaml or .yml)", path)
}

// Document declares one command.
type Document struct {
	Name        string     `toml:"name" yaml:"name"`
	Aliases     []string   `toml:"aliases,omitempty" yaml:"aliases,omitempty"`
	Abstract    string     `toml:"abstract,omitempty" yaml:"abstract,omitempty"`
	Version     string     `toml:"version,omitempty" yaml:"version,omitempty"`
	Default     string     `toml:"default,omitempty" yaml:"default,omitempty"`
	Hidden      bool       `toml:"hidden,omitempty" yaml:"hidden,omitempty"`
	Arguments   []Argument `toml:"arguments,omitempty" yaml:"arguments,omitempty"`
	Subcommands []Document `toml:"subcommands,omitempty" yaml:"subcommands,omitempty"`
}

// Argument declares one argument of a command.
type Argument struct {
	Key string `toml:"key" yaml:"key"`
	// Kind is flag, count, option, positional or cases.
	Kind  string   `toml:"kind" yaml:"kind"`
	Names []string `toml:"names,omitempty" yaml:"names,omitempty"`
	// Type is the value type: string (default), int, float, bool,
	// duration or version.
	Type      string `toml:"type,omitempty" yaml:"type,omitempty"`
	Strategy  string `toml:"strategy,omitempty" yaml:"strategy,omitempty"`
	Repeating bool   `toml:"repeating,omitempty" yaml:"repeating,omitempty"`
	Required  bool   `toml:"required,omitempty" yaml:"required,omitempty"`
	Default   string `toml:"default,omitempty" yaml:"default,omitempty"`

	Help       string `toml:"help,omitempty" yaml:"help,omitempty"`
	ValueName  string `toml:"value_name,omitempty" yaml:"value_name,omitempty"`
	Discussion string `toml:"discussion,omitempty" yaml:"discussion,omitempty"`
	// Visibility is visible (default), hidden or private.
	Visibility string `toml:"visibility,omitempty" yaml:"visibility,omitempty"`

	Cases       []Case `toml:"cases,omitempty" yaml:"cases,omitempty"`
	Exclusivity string `toml:"exclusivity,omitempty" yaml:"exclusivity,omitempty"`
}

// Case is one flag of a cases argument.
type Case struct {
	Names []string `toml:"names" yaml:"names"`
	Value string   `toml:"value" yaml:"value"`
	Help  string   `toml:"help,omitempty" yaml:"help,omitempty"`
}

// Decode parses a declaration in the given format.
func Decode(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case TOML:
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&doc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown toml keys: %v", undecoded)
		}
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown tree spec format %q", format)
	}
	return &doc, nil
}

// Load reads and decodes the declaration at path, picking the format from
// its extension.
func Load(path string) (*Document, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Build turns doc into a command tree. Option names are read with conv.
func Build(doc *Document, conv argname.Convention) (*command.Spec, error) {
	if doc == nil {
		return nil, parseerr.Declaration("empty tree spec")
	}
	if doc.Version != "" {
		if _, err := semver.NewVersion(doc.Version); err != nil {
			return nil, parseerr.Declaration("command %q: invalid version %q: %v", doc.Name, doc.Version, err)
		}
	}
	b, err := newBinder(doc.Name, doc.Arguments, conv)
	if err != nil {
		return nil, err
	}
	spec := &command.Spec{
		Name:     doc.Name,
		Aliases:  doc.Aliases,
		Abstract: doc.Abstract,
		Version:  doc.Version,
		Default:  doc.Default,
		Hidden:   doc.Hidden,
		Binder:   b,
	}
	for i := range doc.Subcommands {
		sub, err := Build(&doc.Subcommands[i], conv)
		if err != nil {
			return nil, err
		}
		spec.Subcommands = append(spec.Subcommands, sub)
	}
	return spec, nil
}

// LoadSpec loads the declaration at path and builds it.
func LoadSpec(path string, conv argname.Convention) (*command.Spec, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Build(doc, conv)
}
