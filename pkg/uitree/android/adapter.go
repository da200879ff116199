// Package android adapts uiautomator accessibility dumps to the shared
// normalization pipeline.
package android

import (
	"strings"

	"github.com/devicelab-dev/tether/pkg/uitree"
)

// Adapter implements uitree.Adapter for uiautomator XML dumps.
type Adapter struct{}

// New returns the Android adapter. It is stateless and safe for
// concurrent use.
func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Platform() string {
	return "android"
}

func (a *Adapter) Parse(raw string) (*uitree.RawNode, error) {
	return ParseHierarchy(raw)
}

func (a *Adapter) Noise() *uitree.NoiseTables {
	return noiseTables
}

func (a *Adapter) Role(kind string) uitree.Role {
	return roleFor(kind)
}

// Label resolves text in the documented priority order: text content,
// then content-desc, then the fragment of the resource-id after the
// slash.
func (a *Adapter) Label(n *uitree.RawNode) string {
	if text := n.Attr("text"); text != "" {
		return text
	}
	if desc := n.Attr("content-desc"); desc != "" {
		return desc
	}
	if id := n.Attr("resource-id"); id != "" {
		if i := strings.LastIndex(id, "/"); i >= 0 {
			return id[i+1:]
		}
		return id
	}
	return ""
}

func (a *Adapter) Identifier(n *uitree.RawNode) string {
	return n.Attr("resource-id")
}

func (a *Adapter) Flags(n *uitree.RawNode) map[uitree.Flag]bool {
	return uitree.FlagsFromMappings(n, flagMappings)
}

func (a *Adapter) Bounds(n *uitree.RawNode) *uitree.Bounds {
	if s := n.Attr("bounds"); s != "" {
		return parseBounds(s)
	}
	return nil
}
