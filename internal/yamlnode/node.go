// Package yamlnode holds the helpers shared by the inventory and playbook
// parsers for walking gopkg.in/yaml.v3 node trees.
package yamlnode

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode parses content into a node tree and returns the document's root,
// with aliases resolved. An empty document yields a zero node.
func Decode(content []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root = doc.Content[0]
	}
	return Resolve(root), nil
}

// EachPair calls fn for every entry of a mapping whose key is a scalar, in
// document order. Values are passed with aliases resolved.
func EachPair(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		k := Resolve(node.Content[i])
		if k.Kind != yaml.ScalarNode {
			continue
		}
		if err := fn(k.Value, Resolve(node.Content[i+1])); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the resolved value stored under key in a mapping, or nil.
func Lookup(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if k := Resolve(node.Content[i]); k.Kind == yaml.ScalarNode && k.Value == key {
			return Resolve(node.Content[i+1])
		}
	}
	return nil
}

// Resolve follows alias nodes to their anchors.
func Resolve(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

// IsNull reports whether node is absent, empty or an explicit null.
func IsNull(node *yaml.Node) bool {
	return node == nil || node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null")
}

// IsMap reports whether node is a mapping.
func IsMap(node *yaml.Node) bool {
	return node != nil && node.Kind == yaml.MappingNode
}

// String projects a node onto a flat string. Null yields false; scalars
// yield their text; anything else is rendered as flow YAML.
func String(node *yaml.Node) (string, bool) {
	switch {
	case IsNull(node):
		return "", false
	case node.Kind == yaml.ScalarNode:
		return node.Value, true
	default:
		return Render(node), true
	}
}

// Render encodes node as single-line flow YAML.
func Render(node *yaml.Node) string {
	flow := *node
	flow.Style |= yaml.FlowStyle
	out, err := yaml.Marshal(&flow)
	if err != nil {
		return node.Value
	}
	return strings.TrimSpace(string(out))
}

// KindName describes the kind of node for error messages.
func KindName(node *yaml.Node) string {
	if node == nil {
		return "an empty node"
	}
	switch node.Kind {
	case yaml.DocumentNode:
		return "a document"
	case yaml.SequenceNode:
		return "a list"
	case yaml.MappingNode:
		return "a map"
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	default:
		return "an empty node"
	}
}
