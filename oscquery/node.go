// Package oscquery discovers the consumer's parameter schema: an mDNS
// browse finds the consumer's OSCQuery HTTP endpoint, and the /avatar
// document describes which parameter addresses the current avatar accepts.
package oscquery

import (
	"strings"
)

// Node is one entry in the OSCQuery tree. Containers carry Contents;
// leaves carry a type tag.
type Node struct {
	FullPath string           `json:"FULL_PATH"`
	Access   int              `json:"ACCESS"`
	Type     string           `json:"TYPE,omitempty"`
	Contents map[string]*Node `json:"CONTENTS,omitempty"`
}

// Get walks a slash-separated path through Contents. Returns nil when
// any segment is missing.
func (n *Node) Get(path string) *Node {
	node := n
	for _, part := range strings.Split(path, "/") {
		if node == nil || node.Contents == nil {
			return nil
		}
		node = node.Contents[part]
	}
	return node
}

// IsLeaf reports whether the node is a parameter rather than a container.
func (n *Node) IsLeaf() bool {
	return n.Contents == nil
}

// HasParameter reports whether the avatar exposes the named parameter.
// The gateway uses this to probe for the heartbeat parameter that
// enables externally-driven ticking.
func (n *Node) HasParameter(name string) bool {
	return n.Get("parameters/"+name) != nil
}
