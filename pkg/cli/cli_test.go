package cli

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/tether/pkg/config"
	"github.com/devicelab-dev/tether/pkg/uitree"
)

func TestColor_Disabled(t *testing.T) {
	old := colorsEnabled
	defer func() { colorsEnabled = old }()

	colorsEnabled = false
	if got := color(colorRed); got != "" {
		t.Errorf("expected empty string with colors disabled, got %q", got)
	}

	colorsEnabled = true
	if got := color(colorRed); got != colorRed {
		t.Errorf("expected %q, got %q", colorRed, got)
	}
}

func TestGlobalFlags(t *testing.T) {
	names := make(map[string]bool)
	for _, f := range GlobalFlags {
		for _, n := range f.Names() {
			names[n] = true
		}
	}
	for _, want := range []string{"platform", "p", "config", "verbose", "no-ansi"} {
		if !names[want] {
			t.Errorf("expected global flag %q", want)
		}
	}
}

func TestCommands_Registered(t *testing.T) {
	commands := []*cli.Command{
		doctorCommand, statusCommand, bootCommand, screenCommand,
		elementsCommand, inspectCommand, watchCommand, flowCommand,
		smokeCommand, progressCommand, logcatCommand, lastErrorCommand,
		mcpCommand,
	}
	want := []string{
		"doctor", "status", "boot", "screen", "elements", "inspect",
		"watch", "flow", "smoke", "progress", "logcat", "last-error", "mcp",
	}
	for i, cmd := range commands {
		if cmd.Name != want[i] {
			t.Errorf("command %d: got %q, want %q", i, cmd.Name, want[i])
		}
		if cmd.Action == nil {
			t.Errorf("command %q has no action", cmd.Name)
		}
	}
}

// runProbe executes resolveConfig through a real cli.App so the flag
// parsing path is the one production uses.
func runProbe(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var cfg *config.Config
	var resolveErr error
	app := &cli.App{
		Name:  "tether",
		Flags: GlobalFlags,
		Commands: []*cli.Command{{
			Name: "probe",
			Action: func(c *cli.Context) error {
				cfg, resolveErr = resolveConfig(c)
				return nil
			},
		}},
	}
	argv := append([]string{"tether"}, args...)
	argv = append(argv, "probe")
	if err := app.Run(argv); err != nil {
		t.Fatalf("app run: %v", err)
	}
	return cfg, resolveErr
}

func TestResolveConfig_PlatformFlagWins(t *testing.T) {
	t.Setenv("TETHER_PLATFORM", "android")
	t.Chdir(t.TempDir())

	cfg, err := runProbe(t, "-p", "mock")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Platform != "mock" {
		t.Errorf("expected platform mock, got %s", cfg.Platform)
	}
}

func TestResolveConfig_InvalidPlatform(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := runProbe(t, "-p", "windows")
	if err == nil {
		t.Fatal("expected error for unknown platform")
	}
	if !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected invalid config error, got: %v", err)
	}
}

func TestResolveConfig_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/tether.yaml"
	if err := os.WriteFile(path, []byte("platform: ios\nsimulator: iPhone 15\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := runProbe(t, "--config", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Platform != "ios" {
		t.Errorf("expected platform ios, got %s", cfg.Platform)
	}
	if cfg.Simulator != "iPhone 15" {
		t.Errorf("expected simulator from file, got %s", cfg.Simulator)
	}
}

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// what it wrote.
func captureStdout(t *testing.T, fn func() error) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	if err := fn(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w.Close()
	out, _ := io.ReadAll(r)
	return string(out)
}

func TestPrintElements_Text(t *testing.T) {
	elements := []*uitree.Element{
		{Ref: "@1", Label: "Welcome", Role: uitree.RoleText, Flags: []uitree.Flag{}},
		{Ref: "@2", Label: "Login", Role: uitree.RoleButton, Flags: []uitree.Flag{uitree.FlagClickable}},
	}
	out := captureStdout(t, func() error {
		return printElements(elements, false)
	})
	want := "@1 \"Welcome\" text []\n@2 \"Login\" button [clickable]\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestPrintElements_JSON(t *testing.T) {
	elements := []*uitree.Element{
		{Ref: "@1", Label: "Welcome", Role: uitree.RoleText, Flags: []uitree.Flag{}},
	}
	out := captureStdout(t, func() error {
		return printElements(elements, true)
	})

	var decoded []*uitree.Element
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Ref != "@1" {
		t.Errorf("unexpected round-trip: %+v", decoded)
	}
}

func TestPrintElements_EmptyIsNotAnError(t *testing.T) {
	out := captureStdout(t, func() error {
		return printElements(nil, false)
	})
	// The empty note goes to stderr so stdout stays machine-parseable.
	if out != "" {
		t.Errorf("expected empty stdout for empty list, got %q", out)
	}
}

func TestLogcat_SeverityValidation(t *testing.T) {
	app := &cli.App{
		Name:     "tether",
		Flags:    GlobalFlags,
		Commands: []*cli.Command{logcatCommand},
	}
	err := app.Run([]string{"tether", "logcat", "--severity", "bogus"})
	if err == nil {
		t.Fatal("expected error for unknown severity")
	}
	if !strings.Contains(err.Error(), "unknown severity") {
		t.Errorf("expected severity error, got: %v", err)
	}
}
