// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/yeetrun/argtree/pkg/command"
	"github.com/yeetrun/argtree/pkg/origin"
	"github.com/yeetrun/argtree/pkg/parseerr"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// report is the outcome of parsing one command line.
type report struct {
	Argv     []string        `json:"argv" yaml:"argv"`
	Path     []string        `json:"path,omitempty" yaml:"path,omitempty"`
	Commands []commandReport `json:"commands,omitempty" yaml:"commands,omitempty"`
	Control  *controlReport  `json:"control,omitempty" yaml:"control,omitempty"`
	Error    *errorReport    `json:"error,omitempty" yaml:"error,omitempty"`

	err error
}

type commandReport struct {
	Name   string        `json:"name" yaml:"name"`
	Values []valueReport `json:"values,omitempty" yaml:"values,omitempty"`
}

type valueReport struct {
	Key     string   `json:"key" yaml:"key"`
	Value   any      `json:"value" yaml:"value"`
	Origin  []string `json:"origin,omitempty" yaml:"origin,omitempty"`
	Default bool     `json:"default,omitempty" yaml:"default,omitempty"`
}

type controlReport struct {
	Kind   string   `json:"kind" yaml:"kind"`
	Path   []string `json:"path" yaml:"path"`
	Detail string   `json:"detail,omitempty" yaml:"detail,omitempty"`
	Origin []string `json:"origin,omitempty" yaml:"origin,omitempty"`
}

type errorReport struct {
	Kind    string   `json:"kind" yaml:"kind"`
	Message string   `json:"message" yaml:"message"`
	Path    []string `json:"path,omitempty" yaml:"path,omitempty"`
	Origin  []string `json:"origin,omitempty" yaml:"origin,omitempty"`
}

// newReport describes the outcome of parsing argv.
func newReport(argv []string, res *command.Result, err error) *report {
	r := &report{Argv: argv, err: err}
	if argv == nil {
		r.Argv = []string{}
	}
	if err != nil {
		if c := controlOf(err); c != nil {
			r.Control = c
			r.Path = c.Path
			return r
		}
		e := &errorReport{Kind: "error", Message: err.Error()}
		if pe, ok := parseerr.As(err); ok {
			e.Kind = pe.Kind.String()
			e.Path = pe.Path
			e.Origin = positions(pe.Origin)
			r.Path = pe.Path
		}
		r.Error = e
		return r
	}
	r.Path = res.Path
	for _, d := range res.Commands {
		c := commandReport{Name: d.Name}
		if d.Values != nil {
			for _, el := range d.Values.Elements() {
				c.Values = append(c.Values, valueReport{
					Key:     string(el.Key),
					Value:   plain(el.Value),
					Origin:  positions(el.Origin),
					Default: !el.FromInput(),
				})
			}
		}
		r.Commands = append(r.Commands, c)
	}
	return r
}

// failed reports whether the command line did not parse. Control requests
// are successful outcomes.
func (r *report) failed() bool { return r.Error != nil }

func controlOf(err error) *controlReport {
	var (
		help *command.HelpRequest
		ver  *command.VersionRequest
		comp *command.CompletionRequest
		dump *command.DumpHelpRequest
	)
	switch {
	case errors.As(err, &help):
		return &controlReport{Kind: "help", Path: help.Path, Detail: help.Visibility.String(), Origin: positions(help.Origin)}
	case errors.As(err, &ver):
		return &controlReport{Kind: "version", Path: ver.Path, Detail: ver.Version, Origin: positions(ver.Origin)}
	case errors.As(err, &comp):
		return &controlReport{Kind: "completion", Path: comp.Path, Detail: comp.Shell, Origin: positions(comp.Origin)}
	case errors.As(err, &dump):
		return &controlReport{Kind: "dump-help", Path: dump.Path, Origin: positions(dump.Origin)}
	}
	return nil
}

func positions(o origin.Origin) []string {
	if o.IsEmpty() {
		return nil
	}
	ps := o.Positions()
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}

// plain converts a bound value into something both encoders print
// readably: Stringers become strings and slices are converted element by
// element.
func plain(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case string, bool, int, int64, float64:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return string(rv.Bytes())
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = plain(rv.Index(i).Interface())
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return plain(rv.Elem().Interface())
	}
	return v
}

func writeReport(w io.Writer, format string, r *report) error {
	if format == formatText || format == "" {
		return writeText(w, r)
	}
	return writeValue(w, format, r)
}

// writeValue encodes v as JSON or YAML.
func writeValue(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
}

// writeText prints one block per command on the path:
//
//	tool
//	  verbose  1        {1}
//	build
//	  jobs     2        (default)
func writeText(w io.Writer, r *report) error {
	if r.Control != nil {
		_, err := fmt.Fprintf(w, "%s requested for %s%s\n", r.Control.Kind, strings.Join(r.Control.Path, " "), detail(r.Control.Detail))
		return err
	}
	if r.Error != nil {
		// Errors are rendered to stderr by the caller.
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range r.Commands {
		fmt.Fprintln(tw, c.Name)
		for _, v := range c.Values {
			where := "(default)"
			if !v.Default {
				where = "{" + strings.Join(v.Origin, " ") + "}"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", v.Key, textValue(v.Value), where)
		}
	}
	return tw.Flush()
}

func detail(s string) string {
	if s == "" {
		return ""
	}
	return " (" + s + ")"
}

func textValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "<nil>"
	case string:
		if v == "" || strings.ContainsAny(v, " \t\n\"") {
			return fmt.Sprintf("%q", v)
		}
		return v
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = textValue(e)
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	return fmt.Sprint(v)
}
