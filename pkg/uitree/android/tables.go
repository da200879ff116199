package android

import (
	"strings"

	"github.com/devicelab-dev/tether/pkg/uitree"
)

// noiseClasses are layout containers the accessibility dump wraps around
// everything. They are transparent: their children matter, they do not.
var noiseClasses = []string{
	"android.view.View",
	"android.view.ViewGroup",
	"android.widget.FrameLayout",
	"android.widget.LinearLayout",
	"android.widget.RelativeLayout",
	"androidx.compose.ui.platform.ComposeView",
	"android.widget.ScrollView",
	"android.widget.HorizontalScrollView",
	"androidx.recyclerview.widget.RecyclerView",
	"androidx.viewpager2.widget.ViewPager2",
	"androidx.constraintlayout.widget.ConstraintLayout",
	"androidx.coordinatorlayout.widget.CoordinatorLayout",
	"androidx.appcompat.widget.ActionBarOverlayLayout",
	"androidx.appcompat.widget.ActionBarContainer",
	"androidx.appcompat.widget.ContentFrameLayout",
	"androidx.appcompat.widget.FitWindowsLinearLayout",
	"androidx.appcompat.widget.Toolbar",
	"android.widget.ContentFrameLayout",
}

// chromePatterns match resource-ids that belong to the system shell, not
// the application under test. A match drops the whole subtree, so the
// list must never contain ids that hold app content (android:id/content
// is handled as a transparent FrameLayout instead).
var chromePatterns = []string{
	"android:id/statusBarBackground",
	"android:id/navigationBarBackground",
	"com.android.systemui:id/*",
}

var noiseTables = uitree.NewNoiseTables(noiseClasses, chromePatterns)

// roleByClass maps widget classes onto the normalized role vocabulary.
// Classes not listed fall through to the suffix heuristics in roleFor.
var roleByClass = map[string]uitree.Role{
	"android.widget.Button":                    uitree.RoleButton,
	"android.widget.ImageButton":               uitree.RoleButton,
	"com.google.android.material.button.MaterialButton": uitree.RoleButton,
	"android.widget.TextView":                  uitree.RoleText,
	"android.widget.EditText":                  uitree.RoleInput,
	"android.widget.AutoCompleteTextView":      uitree.RoleInput,
	"android.widget.MultiAutoCompleteTextView": uitree.RoleInput,
	"android.widget.SearchView":                uitree.RoleInput,
	"android.widget.CheckBox":                  uitree.RoleCheckbox,
	"android.widget.CheckedTextView":           uitree.RoleCheckbox,
	"android.widget.RadioButton":               uitree.RoleCheckbox,
	"android.widget.Switch":                    uitree.RoleSwitch,
	"android.widget.ToggleButton":              uitree.RoleSwitch,
	"androidx.appcompat.widget.SwitchCompat":   uitree.RoleSwitch,
	"android.widget.ImageView":                 uitree.RoleImage,
	"android.widget.ListView":                  uitree.RoleList,
	"android.widget.ExpandableListView":        uitree.RoleList,
	"android.widget.GridView":                  uitree.RoleList,
	"android.widget.Spinner":                   uitree.RoleList,
}

// roleFor is total: classes missing from the table are guessed by suffix,
// and anything unrecognized is RoleOther.
func roleFor(class string) uitree.Role {
	if role, ok := roleByClass[class]; ok {
		return role
	}
	switch {
	case strings.HasSuffix(class, "Button"):
		return uitree.RoleButton
	case strings.HasSuffix(class, "EditText"):
		return uitree.RoleInput
	case strings.HasSuffix(class, "TextView"):
		return uitree.RoleText
	case strings.HasSuffix(class, "CheckBox"):
		return uitree.RoleCheckbox
	case strings.HasSuffix(class, "Switch"):
		return uitree.RoleSwitch
	case strings.HasSuffix(class, "ImageView"):
		return uitree.RoleImage
	default:
		return uitree.RoleOther
	}
}

// flagMappings is the attribute-to-flag table for uiautomator dumps.
var flagMappings = []uitree.FlagMapping{
	{Attr: "clickable", When: uitree.FlagClickable},
	{Attr: "checked", When: uitree.FlagChecked},
	{Attr: "enabled", When: uitree.FlagEnabled, Otherwise: uitree.FlagDisabled},
	{Attr: "focused", When: uitree.FlagFocused},
	{Attr: "selected", When: uitree.FlagSelected},
}
