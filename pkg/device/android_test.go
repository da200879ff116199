package device

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// skipIfNoDevice skips the test if no device is connected.
func skipIfNoDevice(t *testing.T) {
	t.Helper()
	cmd := exec.Command("adb", "devices")
	out, err := cmd.Output()
	if err != nil {
		t.Skip("adb not available")
	}
	lines := strings.Split(string(out), "\n")
	deviceCount := 0
	for _, line := range lines {
		if strings.Contains(line, "\tdevice") {
			deviceCount++
		}
	}
	if deviceCount == 0 {
		t.Skip("no device connected")
	}
}

func TestParseDeviceList(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want []ListedDevice
	}{
		{
			name: "single device",
			out:  "List of devices attached\nemulator-5554\tdevice\n\n",
			want: []ListedDevice{{Serial: "emulator-5554", State: "device"}},
		},
		{
			name: "multiple devices",
			out:  "List of devices attached\nemulator-5554\tdevice\nR5CT30XXXX\tunauthorized\n",
			want: []ListedDevice{
				{Serial: "emulator-5554", State: "device"},
				{Serial: "R5CT30XXXX", State: "unauthorized"},
			},
		},
		{
			name: "offline device",
			out:  "List of devices attached\nemulator-5554\toffline\n",
			want: []ListedDevice{{Serial: "emulator-5554", State: "offline"}},
		},
		{
			name: "daemon banner",
			out:  "* daemon not running; starting now\n* daemon started successfully\nList of devices attached\nemulator-5554\tdevice\n",
			want: []ListedDevice{{Serial: "emulator-5554", State: "device"}},
		},
		{
			name: "no devices",
			out:  "List of devices attached\n\n",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseDeviceList(tt.out)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d devices, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("device %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestNoDevicesError(t *testing.T) {
	err := &NoDevicesError{
		Message:       "No Android devices or emulators found",
		AvailableAVDs: []string{"Pixel_7_API_33", "Pixel_XL_API_29"},
		Suggestions: []string{
			"Connect a physical device via USB",
			"Boot the configured AVD: tether boot",
		},
	}

	errMsg := err.Error()

	if !strings.Contains(errMsg, "No Android devices or emulators found") {
		t.Error("Error message should contain main message")
	}
	if !strings.Contains(errMsg, "Pixel_7_API_33") {
		t.Error("Error message should list AVDs")
	}
	if !strings.Contains(errMsg, "Connect a physical device") {
		t.Error("Error message should contain suggestions")
	}
	if !strings.Contains(errMsg, "Options:") {
		t.Error("Error message should have Options header")
	}
}

func TestNoDevicesError_NoAVDs(t *testing.T) {
	err := &NoDevicesError{
		Message:     "No Android devices or emulators found",
		Suggestions: []string{"Connect a physical device via USB"},
	}

	errMsg := err.Error()

	if strings.Contains(errMsg, "Available AVDs:") {
		t.Error("Error message should omit AVD section when empty")
	}
	if !strings.Contains(errMsg, "Options:") {
		t.Error("Error message should have Options header")
	}
}

func TestListDevices_Real(t *testing.T) {
	skipIfNoDevice(t)

	devices, err := ListDevices()
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}

	if len(devices) == 0 {
		t.Fatal("expected at least one device")
	}

	d := devices[0]
	if d.Serial == "" {
		t.Error("device serial is empty")
	}
}

func TestFirstAvailable_Real(t *testing.T) {
	skipIfNoDevice(t)

	device, err := FirstAvailable()
	if err != nil {
		t.Fatalf("FirstAvailable failed: %v", err)
	}

	if device.Serial() == "" {
		t.Error("device serial is empty")
	}
}

func TestAndroidDevice_Shell(t *testing.T) {
	skipIfNoDevice(t)

	device, err := FirstAvailable()
	if err != nil {
		t.Fatalf("FirstAvailable failed: %v", err)
	}

	out, err := device.Shell("echo hello")
	if err != nil {
		t.Fatalf("Shell failed: %v", err)
	}

	if !strings.Contains(out, "hello") {
		t.Errorf("expected 'hello' in output, got: %s", out)
	}
}

func TestAndroidDevice_Info(t *testing.T) {
	skipIfNoDevice(t)

	device, err := FirstAvailable()
	if err != nil {
		t.Fatalf("FirstAvailable failed: %v", err)
	}

	info, err := device.Info()
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}

	if info.Serial == "" {
		t.Error("info.Serial is empty")
	}
	if info.Model == "" {
		t.Error("info.Model is empty")
	}

	t.Logf("Device: %s %s (SDK %s)", info.Brand, info.Model, info.SDK)
}

func TestAndroidDevice_DumpUI(t *testing.T) {
	skipIfNoDevice(t)

	device, err := FirstAvailable()
	if err != nil {
		t.Fatalf("FirstAvailable failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	xml, err := device.DumpUI(ctx)
	if err != nil {
		t.Fatalf("DumpUI failed: %v", err)
	}

	if !strings.Contains(xml, "<hierarchy") {
		t.Errorf("expected hierarchy element in dump, got: %.100s", xml)
	}
}

func TestAndroidDevice_Screenshot(t *testing.T) {
	skipIfNoDevice(t)

	device, err := FirstAvailable()
	if err != nil {
		t.Fatalf("FirstAvailable failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	png, err := device.Screenshot(ctx)
	if err != nil {
		t.Fatalf("Screenshot failed: %v", err)
	}

	// PNG magic bytes
	if len(png) < 8 || png[0] != 0x89 || png[1] != 'P' || png[2] != 'N' || png[3] != 'G' {
		t.Errorf("expected PNG output, got %d bytes starting %x", len(png), png[:min(8, len(png))])
	}
}

func TestAndroidDevice_BootCompleted(t *testing.T) {
	skipIfNoDevice(t)

	device, err := FirstAvailable()
	if err != nil {
		t.Fatalf("FirstAvailable failed: %v", err)
	}

	// A connected device in "device" state has finished booting
	if !device.BootCompleted() {
		t.Error("expected BootCompleted true for connected device")
	}
}

func TestAndroidDevice_New_InvalidSerial(t *testing.T) {
	skipIfNoDevice(t)

	_, err := New("invalid-device-serial-xyz")
	if err == nil {
		t.Error("expected error for invalid serial")
	}
}

func TestAndroidDevice_Command(t *testing.T) {
	d := &AndroidDevice{serial: "emulator-5554", adbPath: "/usr/bin/adb"}

	cmd := d.Command(context.Background(), "logcat", "-v", "time")

	want := []string{"/usr/bin/adb", "-s", "emulator-5554", "logcat", "-v", "time"}
	if len(cmd.Args) != len(want) {
		t.Fatalf("expected %d args, got %d: %v", len(want), len(cmd.Args), cmd.Args)
	}
	for i, arg := range want {
		if cmd.Args[i] != arg {
			t.Errorf("arg %d: expected %s, got %s", i, arg, cmd.Args[i])
		}
	}
}

// scriptedShell fakes the device shell: each uiautomator dump invocation
// consumes the next scripted response, cat always returns the xml.
type scriptedShell struct {
	calls [][]string
	dumps []struct {
		out string
		err error
	}
	xml string
}

func (s *scriptedShell) run(ctx context.Context, args ...string) (string, error) {
	s.calls = append(s.calls, args)
	if args[0] == "cat" {
		return s.xml, nil
	}
	if len(s.dumps) == 0 {
		return "", nil
	}
	next := s.dumps[0]
	s.dumps = s.dumps[1:]
	return next.out, next.err
}

func (s *scriptedShell) script(out string, err error) {
	s.dumps = append(s.dumps, struct {
		out string
		err error
	}{out, err})
}

func TestDumpUI_FirstAttemptSucceeds(t *testing.T) {
	shell := &scriptedShell{xml: "<hierarchy/>"}
	shell.script("UI hierchary dumped to: /sdcard/ui.xml", nil)

	xml, err := dumpUI(context.Background(), shell.run)
	if err != nil {
		t.Fatalf("dumpUI failed: %v", err)
	}
	if xml != "<hierarchy/>" {
		t.Errorf("expected dump xml, got %q", xml)
	}

	if len(shell.calls) != 2 {
		t.Fatalf("expected dump + cat, got %d calls: %v", len(shell.calls), shell.calls)
	}
	for _, arg := range shell.calls[0] {
		if arg == "--compressed" {
			t.Error("compressed fallback must not run when the full dump succeeds")
		}
	}
}

func TestDumpUI_FallsBackToCompressed(t *testing.T) {
	shell := &scriptedShell{xml: "<hierarchy/>"}
	shell.script("ERROR: could not get idle state.", nil)
	shell.script("UI hierchary dumped to: /sdcard/ui.xml", nil)

	xml, err := dumpUI(context.Background(), shell.run)
	if err != nil {
		t.Fatalf("dumpUI failed: %v", err)
	}
	if xml != "<hierarchy/>" {
		t.Errorf("expected dump xml, got %q", xml)
	}

	if len(shell.calls) != 3 {
		t.Fatalf("expected dump + retry + cat, got %d calls: %v", len(shell.calls), shell.calls)
	}
	retry := shell.calls[1]
	found := false
	for _, arg := range retry {
		if arg == "--compressed" {
			found = true
		}
	}
	if !found {
		t.Errorf("retry must use --compressed, got %v", retry)
	}
}

func TestDumpUI_BothAttemptsFail(t *testing.T) {
	shell := &scriptedShell{}
	shell.script("ERROR: could not get idle state.", nil)
	shell.script("ERROR: could not get idle state.", nil)

	_, err := dumpUI(context.Background(), shell.run)
	if err == nil {
		t.Fatal("expected error when both dump attempts fail")
	}
	if !strings.Contains(err.Error(), "uiautomator dump") {
		t.Errorf("expected uiautomator dump error, got: %v", err)
	}
	// No cat after a failed dump.
	for _, call := range shell.calls {
		if call[0] == "cat" {
			t.Errorf("must not read the dump file after failure, calls: %v", shell.calls)
		}
	}
}

func TestDumpUI_ShellErrorTriggersFallback(t *testing.T) {
	shell := &scriptedShell{xml: "<hierarchy/>"}
	shell.script("", context.DeadlineExceeded)
	shell.script("UI hierchary dumped to: /sdcard/ui.xml", nil)

	xml, err := dumpUI(context.Background(), shell.run)
	if err != nil {
		t.Fatalf("dumpUI failed: %v", err)
	}
	if xml != "<hierarchy/>" {
		t.Errorf("expected dump xml, got %q", xml)
	}
}
