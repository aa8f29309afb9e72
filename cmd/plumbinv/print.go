package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eniac111/plumbinv/internal/types"
)

// groupView is the serializable form of a group. HostGroup itself holds a
// parent pointer and cannot be encoded directly.
type groupView struct {
	Name     string       `json:"name" yaml:"name"`
	Path     string       `json:"path" yaml:"path"`
	Hosts    []types.Host `json:"hosts,omitempty" yaml:"hosts,omitempty"`
	Children []groupView  `json:"children,omitempty" yaml:"children,omitempty"`
}

type inventoryView struct {
	Environment types.Environment `json:"environment" yaml:"environment"`
	Groups      []groupView       `json:"groups" yaml:"groups"`
}

// newGroupView expands g. A group shared by several parents is expanded
// once; later occurrences carry only its name and path.
func newGroupView(g *types.HostGroup, seen map[*types.HostGroup]bool) groupView {
	v := groupView{Name: g.Name, Path: g.Path()}
	if seen[g] {
		return v
	}
	seen[g] = true
	v.Hosts = g.Hosts
	for _, c := range g.Children {
		v.Children = append(v.Children, newGroupView(c, seen))
	}
	return v
}

func encode(w io.Writer, v any, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return usageError("invalid output %q: must be 'text', 'json' or 'yaml'", output)
	}
}

func writeInventory(w io.Writer, inv *types.Inventory, output string) error {
	if output != "text" {
		view := inventoryView{Environment: inv.Environment, Groups: []groupView{}}
		seen := make(map[*types.HostGroup]bool)
		for _, g := range inv.Groups {
			view.Groups = append(view.Groups, newGroupView(g, seen))
		}
		return encode(w, view, output)
	}

	fmt.Fprintf(w, "# environment: %s\n", inv.Environment)
	inv.Walk(func(g *types.HostGroup) bool {
		indent := strings.Repeat("  ", len(g.Ancestors()))
		fmt.Fprintf(w, "%s[%s]\n", indent, g.Name)
		for _, h := range g.Hosts {
			fmt.Fprintf(w, "%s  %s%s\n", indent, h.Name, formatVars(h.Variables))
		}
		return true
	})
	return nil
}

// formatVars renders variables as " k=v" pairs sorted by key.
func formatVars(vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, vars[k])
	}
	return b.String()
}

func writePlaybooks(w io.Writer, plays []*types.Playbook, output string) error {
	if output != "text" {
		return encode(w, plays, output)
	}
	for i, pb := range plays {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "PLAY [%s]\n", pb.Name)
		fmt.Fprintf(w, "  hosts: %s\n", pb.Hosts)
		for _, t := range pb.Tasks {
			fmt.Fprintf(w, "  TASK [%s] %s%s\n", t.Name, t.Module, formatVars(t.Args))
		}
	}
	return nil
}

func writeGroupPaths(w io.Writer, groups []*types.HostGroup) error {
	for _, g := range groups {
		if _, err := fmt.Fprintln(w, g.Path()); err != nil {
			return err
		}
	}
	return nil
}

// writeHostNames prints each host of the groups and their descendants once,
// in first-seen order.
func writeHostNames(w io.Writer, groups []*types.HostGroup) error {
	seen := make(map[string]bool)
	for _, g := range groups {
		for _, h := range g.AllHosts() {
			if seen[h.Name] {
				continue
			}
			seen[h.Name] = true
			if _, err := fmt.Fprintln(w, h.Name); err != nil {
				return err
			}
		}
	}
	return nil
}
