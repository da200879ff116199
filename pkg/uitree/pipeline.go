package uitree

import "fmt"

// Normalize runs one raw dump through the full shared pipeline:
// parse, filter noise, classify and assign refs. The returned list is in
// pre-order document order with refs @1, @2, ... restarting at 1 for this
// call. The call is pure in-memory computation: no I/O, no retained state,
// safe to run concurrently on different dumps.
func Normalize(a Adapter, raw string) ([]*Element, error) {
	root, err := a.Parse(raw)
	if err != nil {
		return nil, err
	}
	return Classify(Filter(root, a), a), nil
}

// filterFrame is one pending node on the explicit filter work stack.
type filterFrame struct {
	node *RawNode
	next int        // index of the next child to visit
	kept []*RawNode // filtered children accumulated so far
}

// Filter produces a filtered copy of the tree with the platform's noise
// removed:
//
//   - nodes whose kind is in the always-noise table are transparent:
//     removed, with their filtered children promoted in place among the
//     former siblings, relative order preserved;
//   - nodes whose identifier matches a system-chrome pattern are opaque:
//     dropped together with their entire subtree;
//   - bare containers (nothing reportable, no surviving children) are
//     dropped.
//
// The input tree is not modified. Filtering an already-filtered tree
// returns an equal tree. The walk uses an explicit stack; dumps from real
// applications nest too deep to trust recursion.
func Filter(root *RawNode, a Adapter) *RawNode {
	out := &RawNode{}
	if root == nil {
		return out
	}
	out.Kind = root.Kind
	out.Attrs = root.Attrs

	noise := a.Noise()
	stack := []*filterFrame{{node: root}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]

		if frame.next < len(frame.node.Children) {
			child := frame.node.Children[frame.next]
			frame.next++
			if noise.IsSystemChrome(a.Identifier(child)) {
				continue // opaque: neither chrome nor its descendants survive
			}
			stack = append(stack, &filterFrame{node: child})
			continue
		}

		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			// Root is structural by construction; it only carries the
			// surviving children.
			out.Children = frame.kept
			break
		}

		parent := stack[len(stack)-1]
		switch {
		case noise.IsNoiseKind(frame.node.Kind):
			parent.kept = append(parent.kept, frame.kept...)
		case !reportable(frame.node, a) && len(frame.kept) == 0:
			// bare container, nothing underneath survived
		default:
			parent.kept = append(parent.kept, &RawNode{
				Kind:     frame.node.Kind,
				Attrs:    frame.node.Attrs,
				Children: frame.kept,
			})
		}
	}

	return out
}

// Classify walks the filtered tree in pre-order and emits one Element per
// reportable node, assigning refs in a strictly increasing sequence
// starting at 1. Non-reportable nodes are pass-through containers: not
// emitted, children still visited.
func Classify(root *RawNode, a Adapter) []*Element {
	elements := make([]*Element, 0, 16)
	if root == nil {
		return elements
	}

	ref := 0
	stack := make([]*RawNode, 0, len(root.Children))
	for i := len(root.Children) - 1; i >= 0; i-- {
		stack = append(stack, root.Children[i])
	}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if reportable(node, a) {
			ref++
			elements = append(elements, &Element{
				Ref:        fmt.Sprintf("@%d", ref),
				Label:      a.Label(node),
				Identifier: a.Identifier(node),
				Role:       a.Role(node.Kind),
				Flags:      sortFlags(a.Flags(node)),
				Bounds:     a.Bounds(node),
			})
		}

		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}
	}

	return elements
}

// reportable decides whether a node belongs in the output: it carries a
// non-empty label, an identifier, or at least one of the interaction
// flags. Everything else is container plumbing.
func reportable(n *RawNode, a Adapter) bool {
	if a.Label(n) != "" || a.Identifier(n) != "" {
		return true
	}
	flags := a.Flags(n)
	return flags[FlagClickable] || flags[FlagChecked] || flags[FlagSelected]
}
