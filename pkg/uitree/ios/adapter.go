// Package ios adapts simulator accessibility JSON dumps to the shared
// normalization pipeline.
package ios

import (
	"strconv"

	"github.com/devicelab-dev/tether/pkg/uitree"
)

// Adapter implements uitree.Adapter for the accessibility JSON emitted by
// the simulator inspection tool.
type Adapter struct{}

// New returns the iOS adapter. It is stateless and safe for concurrent
// use.
func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Platform() string {
	return "ios"
}

func (a *Adapter) Parse(raw string) (*uitree.RawNode, error) {
	return ParseDump(raw)
}

func (a *Adapter) Noise() *uitree.NoiseTables {
	return noiseTables
}

func (a *Adapter) Role(kind string) uitree.Role {
	return roleFor(kind)
}

// Label resolves text in the documented priority order: accessibility
// label, then value, then the accessibility identifier. Both AXValue and
// the plain value spelling occur in the wild, label first.
func (a *Adapter) Label(n *uitree.RawNode) string {
	if label := n.Attr("AXLabel"); label != "" {
		return label
	}
	if value := n.Attr("AXValue"); value != "" {
		return value
	}
	if value := n.Attr("value"); value != "" {
		return value
	}
	return n.Attr("AXUniqueId")
}

func (a *Adapter) Identifier(n *uitree.RawNode) string {
	return n.Attr("AXUniqueId")
}

func (a *Adapter) Flags(n *uitree.RawNode) map[uitree.Flag]bool {
	return uitree.FlagsFromMappings(n, flagMappings)
}

func (a *Adapter) Bounds(n *uitree.RawNode) *uitree.Bounds {
	x, okX := dimension(n, "x")
	y, okY := dimension(n, "y")
	w, okW := dimension(n, "width")
	h, okH := dimension(n, "height")
	if !okX || !okY || !okW || !okH {
		return nil
	}
	return &uitree.Bounds{X: x, Y: y, Width: w, Height: h}
}

func dimension(n *uitree.RawNode, name string) (int, bool) {
	s := n.Attr(name)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}
