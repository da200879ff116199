// Package uitree normalizes platform accessibility dumps into a canonical
// element model. Each platform contributes a parser and vocabulary tables
// through the Adapter interface; filtering, classification, ref assignment
// and snapshot diffing are shared and platform-agnostic.
package uitree

import "fmt"

// RawNode is one UI node as reported by the device, before filtering.
// Kind carries the platform-specific tag/class/role string; Attrs carries
// every attribute the dump reported, including ones this package does not
// understand. Unknown attributes are preserved, never rejected.
type RawNode struct {
	Kind     string
	Attrs    map[string]string
	Children []*RawNode
}

// Attr returns the named attribute or "" when absent.
func (n *RawNode) Attr(name string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[name]
}

// SetAttr records an attribute, allocating the map on first use.
func (n *RawNode) SetAttr(name, value string) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[name] = value
}

// Count returns the number of nodes in the tree rooted at n, including n.
// Traversal is iterative; dumps from real applications nest deep.
func (n *RawNode) Count() int {
	if n == nil {
		return 0
	}
	count := 0
	stack := []*RawNode{n}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}
	}
	return count
}

// Bounds is an element rectangle in screen pixels.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the center point of the bounds.
func (b Bounds) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Contains reports whether the point (x, y) falls within the bounds.
func (b Bounds) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// Empty reports whether the rectangle has no visible area.
func (b Bounds) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

func (b Bounds) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", b.X, b.Y, b.Width, b.Height)
}
