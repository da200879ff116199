package uitree

import "testing"

func TestBoundsCenter(t *testing.T) {
	b := Bounds{X: 100, Y: 200, Width: 200, Height: 80}
	x, y := b.Center()
	if x != 200 || y != 240 {
		t.Errorf("expected center (200,240), got (%d,%d)", x, y)
	}
}

func TestBoundsContains(t *testing.T) {
	b := Bounds{X: 10, Y: 10, Width: 100, Height: 50}

	tests := []struct {
		x, y int
		want bool
	}{
		{10, 10, true},
		{50, 30, true},
		{109, 59, true},
		{110, 30, false},
		{50, 60, false},
		{0, 0, false},
	}

	for _, tt := range tests {
		if got := b.Contains(tt.x, tt.y); got != tt.want {
			t.Errorf("Contains(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestBoundsEmpty(t *testing.T) {
	if !(Bounds{Width: 0, Height: 10}).Empty() {
		t.Error("zero width must be empty")
	}
	if !(Bounds{Width: 10, Height: -1}).Empty() {
		t.Error("negative height must be empty")
	}
	if (Bounds{Width: 1, Height: 1}).Empty() {
		t.Error("1x1 must not be empty")
	}
}

func TestRawNodeAttr(t *testing.T) {
	n := &RawNode{}
	if got := n.Attr("text"); got != "" {
		t.Errorf("expected empty attr on fresh node, got %q", got)
	}
	n.SetAttr("text", "hello")
	if got := n.Attr("text"); got != "hello" {
		t.Errorf("expected 'hello', got %q", got)
	}
}

func TestMalformedTreeErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *MalformedTreeError
		want string
	}{
		{
			"with line",
			&MalformedTreeError{Platform: "android", Line: 3, Reason: "unexpected EOF"},
			"malformed android ui dump at line 3: unexpected EOF",
		},
		{
			"with offset",
			&MalformedTreeError{Platform: "ios", Offset: 17, Reason: "invalid character"},
			"malformed ios ui dump at offset 17: invalid character",
		},
		{
			"no position",
			&MalformedTreeError{Platform: "ios", Reason: "dump is not a json object or array"},
			"malformed ios ui dump: dump is not a json object or array",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnsupportedPlatformErrorMessage(t *testing.T) {
	err := &UnsupportedPlatformError{Platform: "windows", Known: []string{"android", "ios"}}
	want := `unsupported platform "windows" (supported: android, ios)`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	bare := &UnsupportedPlatformError{Platform: "windows"}
	if got := bare.Error(); got != `unsupported platform "windows"` {
		t.Errorf("Error() = %q", got)
	}
}
