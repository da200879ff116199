package ios

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/devicelab-dev/tether/pkg/uitree"
)

// ParseDump parses the accessibility JSON the simulator inspection tool
// emits: either a single root object or an array of roots, each node a
// dict with type, frame, AXLabel, AXUniqueId, children and whatever else
// the tool version adds. Scalar attributes are preserved stringified;
// the frame rectangle is flattened to x/y/width/height attributes.
//
// Blank input returns a childless root. Input that does not decode as
// JSON returns a *uitree.MalformedTreeError with the decoder's byte
// offset.
func ParseDump(raw string) (*uitree.RawNode, error) {
	root := &uitree.RawNode{Kind: "root"}
	if strings.TrimSpace(raw) == "" {
		return root, nil
	}

	var data interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, malformed(err)
	}

	var tops []interface{}
	switch v := data.(type) {
	case []interface{}:
		tops = v
	case map[string]interface{}:
		tops = []interface{}{v}
	default:
		return nil, &uitree.MalformedTreeError{
			Platform: "ios",
			Reason:   "dump is not a json object or array",
		}
	}

	// Convert iteratively; accessibility trees nest deep.
	type frame struct {
		src    map[string]interface{}
		parent *uitree.RawNode
	}
	stack := make([]frame, 0, len(tops))
	for i := len(tops) - 1; i >= 0; i-- {
		if m, ok := tops[i].(map[string]interface{}); ok {
			stack = append(stack, frame{src: m, parent: root})
		}
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := convertNode(f.src)
		f.parent.Children = append(f.parent.Children, node)

		children, _ := f.src["children"].([]interface{})
		for i := len(children) - 1; i >= 0; i-- {
			if m, ok := children[i].(map[string]interface{}); ok {
				stack = append(stack, frame{src: m, parent: node})
			}
		}
	}

	return root, nil
}

// convertNode maps one JSON dict onto a RawNode. The kind comes from
// type, falling back to role/role_description for older tool versions.
func convertNode(src map[string]interface{}) *uitree.RawNode {
	node := &uitree.RawNode{}

	for key, value := range src {
		switch key {
		case "children":
			continue
		case "frame":
			if rect, ok := value.(map[string]interface{}); ok {
				for _, dim := range []string{"x", "y", "width", "height"} {
					if v, ok := rect[dim]; ok {
						node.SetAttr(dim, scalarString(v))
					}
				}
			}
			continue
		}
		if s, ok := scalar(value); ok {
			node.SetAttr(key, s)
		}
	}

	node.Kind = node.Attr("type")
	if node.Kind == "" {
		node.Kind = node.Attr("role")
	}
	if node.Kind == "" {
		node.Kind = node.Attr("role_description")
	}
	return node
}

// scalar stringifies JSON scalars; objects and arrays are not
// representable as attributes and report ok=false.
func scalar(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case nil:
		return "", false
	default:
		return "", false
	}
}

func scalarString(v interface{}) string {
	s, _ := scalar(v)
	return s
}

// malformed wraps a JSON decoder error, carrying the offset when the
// decoder reported one.
func malformed(err error) *uitree.MalformedTreeError {
	e := &uitree.MalformedTreeError{
		Platform: "ios",
		Reason:   err.Error(),
		Cause:    err,
	}
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		e.Offset = syntax.Offset
	}
	return e
}
