package uitree

import (
	"fmt"
	"reflect"
	"testing"
)

// testAdapter is a minimal synthetic platform: kinds are plain words,
// labels live in a "label" attribute, identifiers in "id". It exists so
// the pipeline is tested without any real platform package, which also
// exercises the claim that a new platform plugs in without pipeline
// changes.
type testAdapter struct{}

var testNoise = NewNoiseTables(
	[]string{"box", "pane"},
	[]string{"sys:*"},
)

var testFlagMappings = []FlagMapping{
	{Attr: "clickable", When: FlagClickable},
	{Attr: "checked", When: FlagChecked},
	{Attr: "enabled", When: FlagEnabled, Otherwise: FlagDisabled},
	{Attr: "focused", When: FlagFocused},
	{Attr: "selected", When: FlagSelected},
}

func (testAdapter) Platform() string { return "test" }

func (testAdapter) Parse(raw string) (*RawNode, error) {
	return &RawNode{}, nil
}

func (testAdapter) Noise() *NoiseTables { return testNoise }

func (testAdapter) Role(kind string) Role {
	switch kind {
	case "button":
		return RoleButton
	case "text":
		return RoleText
	default:
		return RoleOther
	}
}

func (testAdapter) Label(n *RawNode) string      { return n.Attr("label") }
func (testAdapter) Identifier(n *RawNode) string { return n.Attr("id") }

func (testAdapter) Flags(n *RawNode) map[Flag]bool {
	return FlagsFromMappings(n, testFlagMappings)
}

func (testAdapter) Bounds(n *RawNode) *Bounds { return nil }

func node(kind string, attrs map[string]string, children ...*RawNode) *RawNode {
	return &RawNode{Kind: kind, Attrs: attrs, Children: children}
}

func labels(elements []*Element) []string {
	out := make([]string, len(elements))
	for i, e := range elements {
		out[i] = e.Label
	}
	return out
}

func TestFilterNoiseContainerTransparent(t *testing.T) {
	root := node("root", nil,
		node("box", nil,
			node("text", map[string]string{"label": "Welcome"}),
			node("button", map[string]string{"label": "Login", "clickable": "true"}),
		),
	)

	elements := Classify(Filter(root, testAdapter{}), testAdapter{})

	want := []string{"Welcome", "Login"}
	if got := labels(elements); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected labels %v, got %v", want, got)
	}
}

func TestFilterPromotesInRelativeOrder(t *testing.T) {
	root := node("root", nil,
		node("text", map[string]string{"label": "before"}),
		node("box", nil,
			node("text", map[string]string{"label": "inner1"}),
			node("box", nil,
				node("text", map[string]string{"label": "inner2"}),
			),
			node("text", map[string]string{"label": "inner3"}),
		),
		node("text", map[string]string{"label": "after"}),
	)

	elements := Classify(Filter(root, testAdapter{}), testAdapter{})

	want := []string{"before", "inner1", "inner2", "inner3", "after"}
	if got := labels(elements); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
}

func TestFilterSystemChromeOpaque(t *testing.T) {
	root := node("root", nil,
		node("pane", map[string]string{"id": "sys:statusbar"},
			node("text", map[string]string{"label": "one"}),
			node("text", map[string]string{"label": "two"}),
			node("button", map[string]string{"label": "three", "clickable": "true"}),
		),
	)

	elements := Classify(Filter(root, testAdapter{}), testAdapter{})

	if len(elements) != 0 {
		t.Fatalf("expected no elements under system chrome, got %d: %v",
			len(elements), labels(elements))
	}
}

func TestFilterChromeWinsOverNoiseKind(t *testing.T) {
	// A node can be both a noise kind and a chrome match; chrome is
	// opaque and must win, or its children would leak through.
	root := node("root", nil,
		node("box", map[string]string{"id": "sys:nav"},
			node("text", map[string]string{"label": "leak"}),
		),
	)

	elements := Classify(Filter(root, testAdapter{}), testAdapter{})
	if len(elements) != 0 {
		t.Fatalf("expected chrome subtree dropped, got %v", labels(elements))
	}
}

func TestFilterDropsBareContainers(t *testing.T) {
	root := node("root", nil,
		node("card", nil),
		node("card", nil,
			node("card", nil),
		),
		node("text", map[string]string{"label": "kept"}),
	)

	filtered := Filter(root, testAdapter{})

	if len(filtered.Children) != 1 {
		t.Fatalf("expected 1 surviving child, got %d", len(filtered.Children))
	}
	if filtered.Children[0].Kind != "text" {
		t.Errorf("expected text node to survive, got %s", filtered.Children[0].Kind)
	}
}

func TestFilterKeepsContainerWithSurvivingChild(t *testing.T) {
	root := node("root", nil,
		node("card", nil,
			node("text", map[string]string{"label": "inside"}),
		),
	)

	filtered := Filter(root, testAdapter{})

	if len(filtered.Children) != 1 || filtered.Children[0].Kind != "card" {
		t.Fatalf("expected card container kept, got %+v", filtered.Children)
	}
	if len(filtered.Children[0].Children) != 1 {
		t.Fatalf("expected card to keep its child")
	}
}

func TestFilterIdempotent(t *testing.T) {
	root := node("root", nil,
		node("box", map[string]string{},
			node("text", map[string]string{"label": "a"}),
			node("pane", map[string]string{"id": "sys:bar"},
				node("text", map[string]string{"label": "chrome"}),
			),
			node("card", nil),
		),
		node("button", map[string]string{"label": "b", "clickable": "true"}),
	)

	once := Filter(root, testAdapter{})
	twice := Filter(once, testAdapter{})

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("filter not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestClassifyPassThroughContainer(t *testing.T) {
	// A surviving container that is not itself reportable contributes no
	// element, but its children still do.
	root := node("root", nil,
		node("card", nil,
			node("text", map[string]string{"label": "child"}),
		),
	)

	elements := Classify(Filter(root, testAdapter{}), testAdapter{})

	if len(elements) != 1 {
		t.Fatalf("expected 1 element, got %d", len(elements))
	}
	if elements[0].Label != "child" {
		t.Errorf("expected child element, got %q", elements[0].Label)
	}
}

func TestClassifyRefsStrictlyIncreasing(t *testing.T) {
	var children []*RawNode
	for _, l := range []string{"a", "b", "c", "d", "e"} {
		children = append(children, node("text", map[string]string{"label": l}))
	}
	root := node("root", nil, children...)

	elements := Classify(Filter(root, testAdapter{}), testAdapter{})

	if len(elements) != 5 {
		t.Fatalf("expected 5 elements, got %d", len(elements))
	}
	for i, e := range elements {
		want := fmt.Sprintf("@%d", i+1)
		if e.Ref != want {
			t.Errorf("element %d: expected ref %s, got %s", i, want, e.Ref)
		}
	}
}

func TestClassifyReportableConditions(t *testing.T) {
	tests := []struct {
		name       string
		attrs      map[string]string
		reportable bool
	}{
		{"label only", map[string]string{"label": "x"}, true},
		{"identifier only", map[string]string{"id": "app:id/x"}, true},
		{"clickable only", map[string]string{"clickable": "true"}, true},
		{"checked only", map[string]string{"checked": "true"}, true},
		{"selected only", map[string]string{"selected": "true"}, true},
		{"enabled only", map[string]string{"enabled": "true"}, false},
		{"focused only", map[string]string{"focused": "true"}, false},
		{"nothing", map[string]string{}, false},
		{"clickable false", map[string]string{"clickable": "false"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := node("root", nil, node("widget", tt.attrs))
			elements := Classify(Filter(root, testAdapter{}), testAdapter{})
			got := len(elements) == 1
			if got != tt.reportable {
				t.Errorf("reportable = %v, want %v", got, tt.reportable)
			}
		})
	}
}

func TestClassifyFlagsCanonicalOrder(t *testing.T) {
	root := node("root", nil,
		node("button", map[string]string{
			"label":     "go",
			"selected":  "true",
			"clickable": "true",
			"enabled":   "true",
		}),
	)

	elements := Classify(Filter(root, testAdapter{}), testAdapter{})
	if len(elements) != 1 {
		t.Fatalf("expected 1 element, got %d", len(elements))
	}

	want := []Flag{FlagClickable, FlagEnabled, FlagSelected}
	if !reflect.DeepEqual(elements[0].Flags, want) {
		t.Errorf("expected flags %v, got %v", want, elements[0].Flags)
	}
}

func TestClassifyEmptyTree(t *testing.T) {
	elements := Classify(Filter(&RawNode{Kind: "root"}, testAdapter{}), testAdapter{})
	if len(elements) != 0 {
		t.Fatalf("expected empty list, got %d elements", len(elements))
	}
}

func TestClassifyDeterministic(t *testing.T) {
	build := func() *RawNode {
		return node("root", nil,
			node("box", nil,
				node("text", map[string]string{"label": "a"}),
				node("button", map[string]string{"label": "b", "clickable": "true", "enabled": "true"}),
			),
			node("card", map[string]string{"id": "app:id/card"},
				node("text", map[string]string{"label": "c"}),
			),
		)
	}

	first := Classify(Filter(build(), testAdapter{}), testAdapter{})
	second := Classify(Filter(build(), testAdapter{}), testAdapter{})

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated classification differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestDeepTreeDoesNotOverflow(t *testing.T) {
	// A pathological 50k-deep chain; recursive traversal would blow the
	// stack long before this.
	leaf := node("text", map[string]string{"label": "bottom"})
	current := leaf
	for i := 0; i < 50000; i++ {
		current = node("card", nil, current)
	}
	root := node("root", nil, current)

	elements := Classify(Filter(root, testAdapter{}), testAdapter{})

	if len(elements) != 1 || elements[0].Label != "bottom" {
		t.Fatalf("expected the deep leaf to survive, got %+v", labels(elements))
	}
}

func TestRawNodeCount(t *testing.T) {
	root := node("root", nil,
		node("a", nil, node("b", nil)),
		node("c", nil),
	)
	if got := root.Count(); got != 4 {
		t.Errorf("expected count 4, got %d", got)
	}
	var nilNode *RawNode
	if got := nilNode.Count(); got != 0 {
		t.Errorf("expected count 0 for nil node, got %d", got)
	}
}
