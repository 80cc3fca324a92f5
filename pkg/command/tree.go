// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package command

import (
	"github.com/yeetrun/argtree/pkg/argdef"
	"github.com/yeetrun/argtree/pkg/argname"
	"github.com/yeetrun/argtree/pkg/parseerr"
	"tailscale.com/util/mak"
	"tailscale.com/util/set"
)

// helpCommand is the pseudo-subcommand of the root that asks for help on
// the commands named after it.
const helpCommand = "help"

// node is a command in the per-parse tree.
type node struct {
	spec     *Spec
	parent   *node
	children []*node
	byName   map[string]*node

	set    *argdef.Set
	setErr error
	loaded bool
}

func buildTree(root *Spec) (*node, error) {
	if root == nil {
		return nil, parseerr.Declaration("nil root command")
	}
	return build(root, nil, set.Set[*Spec]{})
}

func build(s *Spec, parent *node, active set.Set[*Spec]) (*node, error) {
	if s.Name == "" {
		return nil, parseerr.Declaration("command without a name")
	}
	if active.Contains(s) {
		return nil, parseerr.Declaration("command %q contains itself", s.Name)
	}
	active.Add(s)
	defer active.Delete(s)

	n := &node{spec: s, parent: parent}
	for _, cs := range s.Subcommands {
		if cs == nil {
			continue
		}
		c, err := build(cs, n, active)
		if err != nil {
			return nil, err
		}
		for _, name := range append([]string{cs.Name}, cs.Aliases...) {
			if _, dup := n.byName[name]; dup {
				return nil, parseerr.Declaration("command %q has two subcommands named %q", s.Name, name)
			}
			mak.Set(&n.byName, name, c)
		}
		n.children = append(n.children, c)
	}
	if s.Default != "" {
		if _, ok := n.byName[s.Default]; !ok {
			return nil, parseerr.Declaration("default subcommand %q of %q does not exist", s.Default, s.Name)
		}
	}
	return n, nil
}

func (n *node) name() string { return n.spec.Name }

func (n *node) isRoot() bool { return n.parent == nil }

// path returns the command names from the root to n.
func (n *node) path() []string {
	var rev []string
	for c := n; c != nil; c = c.parent {
		rev = append(rev, c.name())
	}
	out := make([]string, len(rev))
	for i, s := range rev {
		out[len(rev)-1-i] = s
	}
	return out
}

// arguments returns n's argument set, computing it on first use.
func (n *node) arguments() (*argdef.Set, error) {
	if !n.loaded {
		n.loaded = true
		if n.spec.Binder == nil {
			n.set, n.setErr = argdef.NewSet()
		} else {
			n.set, n.setErr = n.spec.Binder.Arguments()
			if n.setErr == nil && n.set == nil {
				n.set, n.setErr = argdef.NewSet()
			}
		}
	}
	return n.set, n.setErr
}

func (n *node) child(name string) (*node, bool) {
	c, ok := n.byName[name]
	return c, ok
}

func (n *node) defaultChild() *node {
	if n.spec.Default == "" {
		return nil
	}
	return n.byName[n.spec.Default]
}

func (n *node) capturesAll() bool {
	s, err := n.arguments()
	return err == nil && s.CapturesAll()
}

// defaultCapturesAll reports whether n's default subcommand takes all
// remaining input, in which case n stops matching at its first value.
func (n *node) defaultCapturesAll() bool {
	c := n.defaultChild()
	return c != nil && c.capturesAll()
}

// hasHelpCommand reports whether the root pseudo-subcommand "help" is
// available at n.
func (n *node) hasHelpCommand() bool {
	if !n.isRoot() || len(n.children) == 0 {
		return false
	}
	_, taken := n.byName[helpCommand]
	return !taken
}

// isSubcommand decides whether value selects a child of n. A value naming
// a child is a subcommand unless both n and the child capture all input,
// in which case it starts n's capture.
func (n *node) isSubcommand(value string) bool {
	if value == helpCommand && n.hasHelpCommand() {
		return true
	}
	c, ok := n.child(value)
	if !ok {
		return false
	}
	return !(n.capturesAll() && c.capturesAll())
}

// declares reports whether any command from the root to n declares name.
func (n *node) declares(name argname.Name) bool {
	for c := n; c != nil; c = c.parent {
		s, err := c.arguments()
		if err != nil {
			continue
		}
		if _, ok := s.Lookup(name); ok {
			return true
		}
	}
	return false
}

// version returns the nearest non-empty version from n up to the root.
func (n *node) version() string {
	for c := n; c != nil; c = c.parent {
		if c.spec.Version != "" {
			return c.spec.Version
		}
	}
	return ""
}
