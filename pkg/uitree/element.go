package uitree

// Role is the normalized coarse category of an element. Platform kinds map
// onto this vocabulary through the adapter's role table; kinds the table
// does not know become RoleOther rather than failing.
type Role string

const (
	RoleButton   Role = "button"
	RoleText     Role = "text"
	RoleInput    Role = "input"
	RoleCheckbox Role = "checkbox"
	RoleSwitch   Role = "switch"
	RoleImage    Role = "image"
	RoleLink     Role = "link"
	RoleList     Role = "list"
	RoleCell     Role = "cell"
	RoleOther    Role = "other"
)

// Flag is a normalized boolean capability/state tag. Platform attributes
// outside this vocabulary are dropped during classification.
type Flag string

const (
	FlagClickable Flag = "clickable"
	FlagChecked   Flag = "checked"
	FlagEnabled   Flag = "enabled"
	FlagDisabled  Flag = "disabled"
	FlagFocused   Flag = "focused"
	FlagSelected  Flag = "selected"
)

// flagOrder fixes the emission order of flags so repeated parses of the
// same dump render identically.
var flagOrder = []Flag{
	FlagClickable,
	FlagChecked,
	FlagEnabled,
	FlagDisabled,
	FlagFocused,
	FlagSelected,
}

// Element is one reportable UI node. Elements are created fresh on every
// parse call and never mutated afterwards; Ref is only meaningful within
// the element list it was returned in.
type Element struct {
	Ref        string  `json:"ref"`
	Label      string  `json:"label"`
	Identifier string  `json:"identifier,omitempty"`
	Role       Role    `json:"role"`
	Flags      []Flag  `json:"flags"`
	Bounds     *Bounds `json:"bounds,omitempty"`
}

// HasFlag reports whether the element carries the given flag.
func (e *Element) HasFlag(f Flag) bool {
	for _, have := range e.Flags {
		if have == f {
			return true
		}
	}
	return false
}

// sortFlags returns the flags present in set, in canonical order.
func sortFlags(set map[Flag]bool) []Flag {
	flags := make([]Flag, 0, len(set))
	for _, f := range flagOrder {
		if set[f] {
			flags = append(flags, f)
		}
	}
	return flags
}

// flagsEqual compares two flag slices already in canonical order.
func flagsEqual(a, b []Flag) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
