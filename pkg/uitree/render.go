package uitree

import (
	"fmt"
	"strings"
)

// FormatElement renders one element in the canonical listing form:
//
//	@1 "Welcome" text []
//	@2 "Login" button [clickable]
//
// Exactly the four fields ref, label, role, flags, in that order.
func FormatElement(e *Element) string {
	flags := make([]string, len(e.Flags))
	for i, f := range e.Flags {
		flags[i] = string(f)
	}
	return fmt.Sprintf("%s %q %s [%s]", e.Ref, e.Label, e.Role, strings.Join(flags, ", "))
}

// RenderList renders the whole element list, one element per line. An
// empty list renders as an empty string.
func RenderList(elements []*Element) string {
	if len(elements) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, e := range elements {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(FormatElement(e))
	}
	return sb.String()
}
