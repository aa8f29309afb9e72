package types

// Inventory is the resolved forest of host groups for one environment.
// Groups holds forest roots only; nested groups are reached through
// HostGroup.Children.
type Inventory struct {
	Environment Environment
	Groups      []*HostGroup
}

// FindGroup returns the root group with the given name, or nil.
func (inv *Inventory) FindGroup(name string) *HostGroup {
	for _, g := range inv.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Merge returns a new inventory holding the roots of inv followed by the
// roots of other. Names are not deduplicated and the environment of inv is
// kept.
func (inv *Inventory) Merge(other *Inventory) *Inventory {
	groups := make([]*HostGroup, 0, len(inv.Groups)+len(other.Groups))
	groups = append(groups, inv.Groups...)
	groups = append(groups, other.Groups...)
	return &Inventory{
		Environment: inv.Environment,
		Groups:      groups,
	}
}

// Walk visits every group depth first, parents before children. A group
// listed under several parents is visited once, under the first. Returning
// false from fn stops the walk.
func (inv *Inventory) Walk(fn func(*HostGroup) bool) {
	seen := make(map[*HostGroup]bool)
	for _, g := range inv.Groups {
		if !walk(g, fn, seen) {
			return
		}
	}
}

func walk(g *HostGroup, fn func(*HostGroup) bool, seen map[*HostGroup]bool) bool {
	if seen[g] {
		return true
	}
	seen[g] = true
	if !fn(g) {
		return false
	}
	for _, child := range g.Children {
		if !walk(child, fn, seen) {
			return false
		}
	}
	return true
}

// Equal compares environments and root subtrees in order.
func (inv *Inventory) Equal(other *Inventory) bool {
	if inv.Environment != other.Environment || len(inv.Groups) != len(other.Groups) {
		return false
	}
	for i := range inv.Groups {
		if !inv.Groups[i].Equal(other.Groups[i]) {
			return false
		}
	}
	return true
}
