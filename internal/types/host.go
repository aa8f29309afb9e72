package types

import "maps"

// Host represents one machine in the inventory.
type Host struct {
	Name      string            `json:"name" yaml:"name"`
	Variables map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// Equal reports whether two hosts have the same name and variables.
func (h Host) Equal(other Host) bool {
	return h.Name == other.Name && maps.Equal(h.Variables, other.Variables)
}
