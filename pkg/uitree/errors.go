package uitree

import (
	"fmt"
	"strings"
)

// MalformedTreeError reports raw dump text that could not be parsed as a UI
// tree at all. It carries whatever position information the underlying
// decoder produced: XML decoders report a line, JSON decoders a byte
// offset. A zero value for either means the decoder did not say.
type MalformedTreeError struct {
	Platform string
	Line     int
	Offset   int64
	Reason   string
	Cause    error
}

func (e *MalformedTreeError) Error() string {
	var sb strings.Builder
	sb.WriteString("malformed ")
	if e.Platform != "" {
		sb.WriteString(e.Platform)
		sb.WriteString(" ")
	}
	sb.WriteString("ui dump")
	if e.Line > 0 {
		fmt.Fprintf(&sb, " at line %d", e.Line)
	} else if e.Offset > 0 {
		fmt.Fprintf(&sb, " at offset %d", e.Offset)
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	return sb.String()
}

func (e *MalformedTreeError) Unwrap() error {
	return e.Cause
}

// UnsupportedPlatformError reports a request for a platform no adapter
// is registered for.
type UnsupportedPlatformError struct {
	Platform string
	Known    []string
}

func (e *UnsupportedPlatformError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unsupported platform %q", e.Platform)
	}
	return fmt.Sprintf("unsupported platform %q (supported: %s)",
		e.Platform, strings.Join(e.Known, ", "))
}
