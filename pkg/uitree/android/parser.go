package android

import (
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/devicelab-dev/tether/pkg/uitree"
)

// ParseHierarchy parses a uiautomator dump into a RawNode tree. Supports
// both dump styles: class names as element tags
// (<android.widget.FrameLayout .../>) and the <node class="..."> form,
// where the class attribute overrides the tag. All attributes, known or
// not, are preserved on the node.
//
// Blank input is a valid empty observation and returns a childless root.
// Input that does not decode as XML returns a *uitree.MalformedTreeError
// with the decoder's line position.
func ParseHierarchy(raw string) (*uitree.RawNode, error) {
	root := &uitree.RawNode{Kind: "hierarchy"}
	if strings.TrimSpace(raw) == "" {
		return root, nil
	}

	decoder := xml.NewDecoder(strings.NewReader(raw))
	stack := []*uitree.RawNode{root}
	sawElement := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed(err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			sawElement = true
			node := &uitree.RawNode{Kind: t.Name.Local}
			for _, attr := range t.Attr {
				node.SetAttr(attr.Name.Local, attr.Value)
				if attr.Name.Local == "class" && attr.Value != "" {
					node.Kind = attr.Value
				}
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
			stack = append(stack, node)

		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		}
		// Character data and processing instructions carry nothing in a
		// uiautomator dump; skip them.
	}

	if !sawElement {
		return nil, &uitree.MalformedTreeError{
			Platform: "android",
			Reason:   "no xml elements in dump",
		}
	}

	// uiautomator wraps everything in a single <hierarchy> element; use
	// it as the root so its rotation attribute survives.
	if len(root.Children) == 1 && root.Children[0].Kind == "hierarchy" {
		root = root.Children[0]
	}

	return root, nil
}

// malformed wraps an XML decoder error, carrying the line when the
// decoder reported one.
func malformed(err error) *uitree.MalformedTreeError {
	e := &uitree.MalformedTreeError{
		Platform: "android",
		Reason:   err.Error(),
		Cause:    err,
	}
	var syntax *xml.SyntaxError
	if errors.As(err, &syntax) {
		e.Line = syntax.Line
		e.Reason = syntax.Msg
	}
	return e
}

// parseBounds parses the uiautomator bounds string "[x1,y1][x2,y2]".
// Anything that does not match returns nil.
func parseBounds(s string) *uitree.Bounds {
	s = strings.ReplaceAll(s, "][", ",")
	s = strings.Trim(s, "[]")
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil
	}

	x1, err1 := strconv.Atoi(parts[0])
	y1, err2 := strconv.Atoi(parts[1])
	x2, err3 := strconv.Atoi(parts[2])
	y2, err4 := strconv.Atoi(parts[3])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return nil
	}

	return &uitree.Bounds{
		X:      x1,
		Y:      y1,
		Width:  x2 - x1,
		Height: y2 - y1,
	}
}
