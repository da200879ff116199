package ios

import (
	"strings"

	"github.com/devicelab-dev/tether/pkg/uitree"
)

// noiseRoles are the purely structural accessibility containers: windows,
// groups and scroll areas that exist for layout only. Content-bearing
// collection roles (cells, rows, lists) are NOT here; they classify as
// real elements instead.
var noiseRoles = []string{
	"AXWindow",
	"AXGroup",
	"AXScrollArea",
	"AXLayoutArea",
	"AXSplitGroup",
}

// chromePatterns match accessibility identifiers owned by the simulator
// shell rather than the application under test.
var chromePatterns = []string{
	"SBSystemStatusBar*",
	"SystemStatusBar*",
	"com.apple.springboard*",
}

var noiseTables = uitree.NewNoiseTables(noiseRoles, chromePatterns)

// roleByType maps accessibility element types onto the normalized
// vocabulary.
var roleByType = map[string]uitree.Role{
	"AXButton":          uitree.RoleButton,
	"AXMenuButton":      uitree.RoleButton,
	"AXPopUpButton":     uitree.RoleButton,
	"AXStaticText":      uitree.RoleText,
	"AXHeading":         uitree.RoleText,
	"AXTextField":       uitree.RoleInput,
	"AXSecureTextField": uitree.RoleInput,
	"AXTextArea":        uitree.RoleInput,
	"AXSearchField":     uitree.RoleInput,
	"AXCheckBox":        uitree.RoleCheckbox,
	"AXRadioButton":     uitree.RoleCheckbox,
	"AXSwitch":          uitree.RoleSwitch,
	"AXToggle":          uitree.RoleSwitch,
	"AXImage":           uitree.RoleImage,
	"AXLink":            uitree.RoleLink,
	"AXList":            uitree.RoleList,
	"AXTable":           uitree.RoleList,
	"AXOutline":         uitree.RoleList,
	"AXCell":            uitree.RoleCell,
	"AXRow":             uitree.RoleCell,
}

// roleFor is total over arbitrary type strings; XCUIElementType* spellings
// land on the same roles through the suffix checks.
func roleFor(elType string) uitree.Role {
	if role, ok := roleByType[elType]; ok {
		return role
	}
	switch {
	case strings.HasSuffix(elType, "Button"):
		return uitree.RoleButton
	case strings.HasSuffix(elType, "StaticText"), strings.HasSuffix(elType, "Text"):
		return uitree.RoleText
	case strings.HasSuffix(elType, "TextField"), strings.HasSuffix(elType, "TextView"):
		return uitree.RoleInput
	case strings.HasSuffix(elType, "Switch"):
		return uitree.RoleSwitch
	case strings.HasSuffix(elType, "Image"):
		return uitree.RoleImage
	case strings.HasSuffix(elType, "Link"):
		return uitree.RoleLink
	case strings.HasSuffix(elType, "Cell"):
		return uitree.RoleCell
	case strings.HasSuffix(elType, "Table"), strings.HasSuffix(elType, "CollectionView"):
		return uitree.RoleList
	default:
		return uitree.RoleOther
	}
}

// flagMappings is the attribute-to-flag table for the simulator dump.
// The tool reports enabled/focused/selected as booleans; there is no
// clickable attribute on iOS.
var flagMappings = []uitree.FlagMapping{
	{Attr: "enabled", When: uitree.FlagEnabled, Otherwise: uitree.FlagDisabled},
	{Attr: "focused", When: uitree.FlagFocused},
	{Attr: "selected", When: uitree.FlagSelected},
}
