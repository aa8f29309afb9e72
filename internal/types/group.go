package types

// HostGroup is a node of the inventory tree.
//
// A group owns its Children. Parent is a navigational back-pointer that is
// set while the tree is built and never changed afterwards; it is nil for
// forest roots. Hosts only lists direct members, not hosts of children.
type HostGroup struct {
	Name     string
	Hosts    []Host
	Children []*HostGroup
	Parent   *HostGroup
}

// Path returns the colon-joined names from the root down to g.
func (g *HostGroup) Path() string {
	if g.Parent == nil {
		return g.Name
	}
	return g.Parent.Path() + ":" + g.Name
}

// AllHosts returns the direct hosts of g followed by the hosts of every
// descendant, depth first. A group shared by several parents contributes
// its hosts once.
func (g *HostGroup) AllHosts() []Host {
	var hosts []Host
	seen := make(map[*HostGroup]bool)
	var collect func(*HostGroup)
	collect = func(n *HostGroup) {
		if seen[n] {
			return
		}
		seen[n] = true
		hosts = append(hosts, n.Hosts...)
		for _, child := range n.Children {
			collect(child)
		}
	}
	collect(g)
	return hosts
}

// FindChild returns the direct child with the given name, or nil.
func (g *HostGroup) FindChild(name string) *HostGroup {
	for _, child := range g.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// Ancestors returns the parent chain of g, nearest first.
func (g *HostGroup) Ancestors() []*HostGroup {
	var chain []*HostGroup
	for p := g.Parent; p != nil; p = p.Parent {
		chain = append(chain, p)
	}
	return chain
}

// Equal compares two subtrees by name, hosts and children. Parent pointers
// are not followed.
func (g *HostGroup) Equal(other *HostGroup) bool {
	if g == nil || other == nil {
		return g == other
	}
	if g.Name != other.Name || len(g.Hosts) != len(other.Hosts) || len(g.Children) != len(other.Children) {
		return false
	}
	for i := range g.Hosts {
		if !g.Hosts[i].Equal(other.Hosts[i]) {
			return false
		}
	}
	for i := range g.Children {
		if !g.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}
