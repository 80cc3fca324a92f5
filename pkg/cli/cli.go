// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/shayne/yargs"
)

const ToolName = "argtrace"

const (
	CommandParse  = "parse"
	CommandTokens = "tokens"
	CommandCheck  = "check"
	CommandBatch  = "batch"
)

type FlagSpec struct {
	ConsumesValue bool
}

type CommandInfo struct {
	Name        string
	Description string
	Usage       string
	Examples    []string
	Hidden      bool
	Aliases     []string
	// ArgsSchema optionally defines positional args via `pos` tags.
	ArgsSchema any
}

// GlobalFlags are accepted before or after any subcommand.
type GlobalFlags struct {
	Config string `flag:"config" help:"Config file (default $XDG_CONFIG_HOME/argtrace/config.yaml)"`
	Debug  bool   `flag:"debug" help:"Trace the parser to stderr"`
	Color  string `flag:"color" help:"Color output: auto, always or never (ARGTRACE_COLOR)"`
}

type ParseFlags struct {
	Spec       string
	Format     string
	Convention string
}

type TokensFlags struct {
	Convention string
	Format     string
}

type CheckFlags struct {
	Spec       string
	Convention string
}

type BatchFlags struct {
	Spec       string
	Format     string
	Convention string
	Jobs       int
}

type parseFlagsParsed struct {
	Spec       string `flag:"spec" short:"s"`
	Format     string `flag:"format" short:"f"`
	Convention string `flag:"convention"`
}

type tokensFlagsParsed struct {
	Convention string `flag:"convention"`
	Format     string `flag:"format" short:"f"`
}

type checkFlagsParsed struct {
	Spec       string `flag:"spec" short:"s"`
	Convention string `flag:"convention"`
}

type batchFlagsParsed struct {
	Spec       string `flag:"spec" short:"s"`
	Format     string `flag:"format" short:"f"`
	Convention string `flag:"convention"`
	Jobs       int    `flag:"jobs" short:"j"`
}

type BatchArgs struct {
	File string `pos:"0" help:"File with one command line per line"`
}

type CheckArgs struct {
	Specs []string `pos:"0*" help:"Tree spec files to check"`
}

var commandInfos = map[string]CommandInfo{
	CommandParse: {Name: CommandParse, Description: "Parse a command line against a tree spec and show what bound where", Usage: "[--spec FILE] [--format text|json|yaml] -- ARGS...", Examples: []string{
		"argtrace parse --spec tool.toml -- build -vv --tag a,b pkg",
		"argtrace parse -s tool.yaml -f yaml -- help build",
	}, Aliases: []string{"p"}},
	CommandTokens: {Name: CommandTokens, Description: "Show how a command line splits into tokens", Usage: "[--convention posix|dos] -- ARGS...", Examples: []string{
		"argtrace tokens -- -vDfoo --name=x -- rest",
		"argtrace tokens --convention dos -- /name +v //",
	}},
	CommandCheck: {Name: CommandCheck, Description: "Load tree specs and report declaration errors", Usage: "[SPEC...]", Examples: []string{
		"argtrace check tool.toml other.yaml",
	}, ArgsSchema: CheckArgs{}},
	CommandBatch: {Name: CommandBatch, Description: "Parse every line of a file against a tree spec", Usage: "[--spec FILE] [--jobs N] FILE", Examples: []string{
		"argtrace batch --spec tool.toml --jobs 8 cases.txt",
	}, ArgsSchema: BatchArgs{}},
}

var commandFlagSpecs = map[string]map[string]FlagSpec{
	CommandParse:  flagSpecsFromStruct(parseFlagsParsed{}),
	CommandTokens: flagSpecsFromStruct(tokensFlagsParsed{}),
	CommandCheck:  flagSpecsFromStruct(checkFlagsParsed{}),
	CommandBatch:  flagSpecsFromStruct(batchFlagsParsed{}),
}

func CommandNames() []string {
	names := make([]string, 0, len(commandInfos))
	for name := range commandInfos {
		names = append(names, name)
	}
	return names
}

func CommandInfos() map[string]CommandInfo {
	return commandInfos
}

func CommandFlagSpecs() map[string]map[string]FlagSpec {
	return commandFlagSpecs
}

func CommandRegistry() yargs.Registry {
	infos := CommandInfos()
	subcommands := make(map[string]yargs.CommandSpec, len(infos))
	for name, info := range infos {
		subcommands[name] = yargs.CommandSpec{
			Info:       toSubCommandInfo(name, info),
			ArgsSchema: info.ArgsSchema,
		}
	}
	return yargs.Registry{
		Command: yargs.CommandInfo{
			Name:        ToolName,
			Description: "Inspect how a declared command tree parses a command line, token by token.",
			Examples: []string{
				"argtrace parse --spec tool.toml -- build -v pkg",
				"argtrace tokens -- -abc --name=value",
			},
		},
		SubCommands: subcommands,
	}
}

// HelpConfig returns the help metadata for the argtrace command.
func HelpConfig() yargs.HelpConfig {
	return CommandRegistry().HelpConfig()
}

func toSubCommandInfo(name string, info CommandInfo) yargs.SubCommandInfo {
	return yargs.SubCommandInfo{
		Name:            name,
		Description:     info.Description,
		Usage:           info.Usage,
		Examples:        info.Examples,
		Hidden:          info.Hidden,
		Aliases:         info.Aliases,
		LLMInstructions: "",
	}
}

// ParseGlobalFlags removes the global flags from args.
func ParseGlobalFlags(args []string) (GlobalFlags, []string, error) {
	result, err := yargs.ParseKnownFlags[GlobalFlags](args, yargs.KnownFlagsOptions{})
	if err != nil {
		return GlobalFlags{}, nil, err
	}
	return result.Flags, result.RemainingArgs, nil
}

// SplitTarget separates argtrace's own arguments from the command line
// under inspection at the first "--".
func SplitTarget(args []string) (own, target []string) {
	return splitArgsAtDoubleDash(args)
}

// StripCommand removes the first occurrence of the subcommand name (or
// one of its aliases) from the arguments a handler receives.
func StripCommand(name string, args []string) []string {
	names := append([]string{name}, commandInfos[name].Aliases...)
	for i, arg := range args {
		for _, n := range names {
			if arg == n {
				out := append([]string{}, args[:i]...)
				return append(out, args[i+1:]...)
			}
		}
	}
	return args
}

// ParseParse parses the flags of the parse command. Arguments after the
// first unknown option are part of the command line under inspection.
func ParseParse(args []string) (ParseFlags, []string, error) {
	specs := commandFlagSpecs[CommandParse]
	parseArgs, extraArgs := splitArgsForParsing(args, specs)
	parsed, err := parseFlags[parseFlagsParsed](parseArgs)
	if err != nil {
		return ParseFlags{}, nil, err
	}
	flags := ParseFlags{
		Spec:       parsed.Flags.Spec,
		Format:     parsed.Flags.Format,
		Convention: parsed.Flags.Convention,
	}
	argsOut := append(parsed.Args, extraArgs...)
	return flags, argsOut, nil
}

func ParseTokens(args []string) (TokensFlags, []string, error) {
	specs := commandFlagSpecs[CommandTokens]
	parseArgs, extraArgs := splitArgsForParsing(args, specs)
	parsed, err := parseFlags[tokensFlagsParsed](parseArgs)
	if err != nil {
		return TokensFlags{}, nil, err
	}
	flags := TokensFlags{
		Convention: parsed.Flags.Convention,
		Format:     parsed.Flags.Format,
	}
	argsOut := append(parsed.Args, extraArgs...)
	return flags, argsOut, nil
}

func ParseCheck(args []string) (CheckFlags, []string, error) {
	parseArgs, extraArgs := splitArgsAtDoubleDash(args)
	parsed, err := parseFlags[checkFlagsParsed](parseArgs)
	if err != nil {
		return CheckFlags{}, nil, err
	}
	flags := CheckFlags{
		Spec:       parsed.Flags.Spec,
		Convention: parsed.Flags.Convention,
	}
	argsOut := append(parsed.Args, extraArgs...)
	return flags, argsOut, nil
}

func ParseBatch(args []string) (BatchFlags, []string, error) {
	parseArgs, extraArgs := splitArgsAtDoubleDash(args)
	parsed, err := parseFlags[batchFlagsParsed](parseArgs)
	if err != nil {
		return BatchFlags{}, nil, err
	}
	flags := BatchFlags{
		Spec:       parsed.Flags.Spec,
		Format:     parsed.Flags.Format,
		Convention: parsed.Flags.Convention,
		Jobs:       parsed.Flags.Jobs,
	}
	argsOut := append(parsed.Args, extraArgs...)
	return flags, argsOut, nil
}

type parsedFlags[T any] struct {
	Flags  T
	Args   []string
	Parser *yargs.Parser
}

func parseFlags[T any](args []string) (parsedFlags[T], error) {
	result, err := yargs.ParseFlags[T](args)
	if err != nil {
		return parsedFlags[T]{}, err
	}
	argsOut := append([]string{}, result.Args...)
	if len(result.RemainingArgs) > 0 {
		argsOut = append(argsOut, result.RemainingArgs...)
	}
	return parsedFlags[T]{Flags: result.Flags, Args: argsOut, Parser: result.Parser}, nil
}

func splitArgsAtDoubleDash(args []string) ([]string, []string) {
	for i, arg := range args {
		if arg == "--" {
			if i+1 < len(args) {
				return args[:i], args[i+1:]
			}
			return args[:i], nil
		}
	}
	return args, nil
}

func splitArgsForParsing(args []string, specs map[string]FlagSpec) ([]string, []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			if i+1 < len(args) {
				return args[:i], args[i+1:]
			}
			return args[:i], nil
		}
		if strings.HasPrefix(arg, "--") && len(arg) > 2 {
			name := arg
			if idx := strings.Index(name, "="); idx != -1 {
				name = name[:idx]
			}
			spec, ok := specs[name]
			if !ok {
				return args[:i], args[i:]
			}
			if spec.ConsumesValue && !strings.Contains(arg, "=") {
				i++
			}
			continue
		}
		if strings.HasPrefix(arg, "-") && arg != "-" {
			if strings.Contains(arg, "=") {
				name := arg[:strings.Index(arg, "=")]
				if _, ok := specs[name]; ok {
					continue
				}
				return args[:i], args[i:]
			}
			if len(arg) == 2 {
				spec, ok := specs[arg]
				if !ok {
					return args[:i], args[i:]
				}
				if spec.ConsumesValue {
					i++
				}
				continue
			}
			// A cluster or single-dash word belongs to the inspected
			// command line.
			return args[:i], args[i:]
		}
		// The first plain word starts the inspected command line.
		return args[:i], args[i:]
	}
	return args, nil
}

func flagSpecsFromStruct(v any) map[string]FlagSpec {
	specs := make(map[string]FlagSpec)
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return specs
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Tag.Get("flag")
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		spec := FlagSpec{ConsumesValue: consumesValue(field.Type)}
		specs["--"+name] = spec
		if short := field.Tag.Get("short"); short != "" {
			specs["-"+short] = spec
		}
	}
	return specs
}

func consumesValue(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return false
	default:
		return true
	}
}

func RequireArgsAtLeast(subcmd string, args []string, count int) error {
	if len(args) < count {
		return fmt.Errorf("'%s' requires at least %d argument(s), got %d", subcmd, count, len(args))
	}
	return nil
}
