package uitree

import "github.com/gobwas/glob"

// Adapter supplies everything platform-specific about one dump format:
// the parser, the noise vocabulary, the role mapping, the label priority
// and the flag extraction. The shared pipeline never inspects platform
// attributes directly; a new platform is a new Adapter, not new pipeline
// code.
type Adapter interface {
	// Platform returns the platform name, e.g. "android".
	Platform() string

	// Parse converts one raw dump into a RawNode tree. Empty or blank
	// input yields a root with no children; input that cannot be decoded
	// at all yields a *MalformedTreeError.
	Parse(raw string) (*RawNode, error)

	// Noise returns the platform's noise classification tables.
	Noise() *NoiseTables

	// Role maps a node kind onto the normalized vocabulary. Unknown
	// kinds map to RoleOther, never an error.
	Role(kind string) Role

	// Label resolves the best human-readable text for a node following
	// the platform's documented priority order.
	Label(n *RawNode) string

	// Identifier returns the node's stable resource/accessibility id,
	// or "" when the dump reported none.
	Identifier(n *RawNode) string

	// Flags extracts the normalized flag set from a node's attributes.
	Flags(n *RawNode) map[Flag]bool

	// Bounds extracts the node's geometry, or nil when the dump carried
	// none.
	Bounds(n *RawNode) *Bounds
}

// NoiseTables classifies structural noise for one platform. The tables are
// data, not behavior: extending a platform means adding entries here, not
// touching the pipeline.
type NoiseTables struct {
	// noiseKinds holds container kinds that are always transparent:
	// the node is removed and its children take its place.
	noiseKinds map[string]bool

	// chrome holds identifier patterns that mark opaque system chrome:
	// the node and its whole subtree are dropped.
	chrome []glob.Glob
}

// NewNoiseTables compiles the two tables. Chrome patterns use glob syntax
// ("com.android.systemui:id/*"); an invalid pattern panics, as the tables
// are static per-platform declarations.
func NewNoiseTables(noiseKinds []string, chromePatterns []string) *NoiseTables {
	t := &NoiseTables{
		noiseKinds: make(map[string]bool, len(noiseKinds)),
		chrome:     make([]glob.Glob, 0, len(chromePatterns)),
	}
	for _, kind := range noiseKinds {
		t.noiseKinds[kind] = true
	}
	for _, pattern := range chromePatterns {
		t.chrome = append(t.chrome, glob.MustCompile(pattern))
	}
	return t
}

// IsNoiseKind reports whether the kind is a transparent structural
// container.
func (t *NoiseTables) IsNoiseKind(kind string) bool {
	return t.noiseKinds[kind]
}

// IsSystemChrome reports whether the identifier belongs to system chrome.
// An empty identifier never matches.
func (t *NoiseTables) IsSystemChrome(identifier string) bool {
	if identifier == "" {
		return false
	}
	for _, g := range t.chrome {
		if g.Match(identifier) {
			return true
		}
	}
	return false
}

// FlagMapping declares how one source attribute feeds the normalized flag
// vocabulary: When is set while the attribute value is "true", Otherwise
// (if non-zero) while it is "false". Attributes absent from the node set
// nothing.
type FlagMapping struct {
	Attr      string
	When      Flag
	Otherwise Flag
}

// FlagsFromMappings evaluates a platform's flag-name table against one
// node. Adapters build their Flags method on this so the mapping stays
// declarative.
func FlagsFromMappings(n *RawNode, mappings []FlagMapping) map[Flag]bool {
	set := make(map[Flag]bool)
	for _, m := range mappings {
		switch n.Attr(m.Attr) {
		case "true":
			if m.When != "" {
				set[m.When] = true
			}
		case "false":
			if m.Otherwise != "" {
				set[m.Otherwise] = true
			}
		}
	}
	return set
}
