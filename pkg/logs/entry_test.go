package logs

import (
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		level   Level
		tag     string
		pid     int
		message string
	}{
		{
			name:    "error line",
			line:    "08-21 14:03:55.123 E/AndroidRuntime( 1234): FATAL EXCEPTION: main",
			level:   LevelError,
			tag:     "AndroidRuntime",
			pid:     1234,
			message: "FATAL EXCEPTION: main",
		},
		{
			name:    "info line",
			line:    "08-21 14:03:55.124 I/ActivityManager(  512): Displayed com.example/.MainActivity",
			level:   LevelInfo,
			tag:     "ActivityManager",
			pid:     512,
			message: "Displayed com.example/.MainActivity",
		},
		{
			name:    "fatal line",
			line:    "08-21 14:03:56.000 F/libc( 9876): Fatal signal 11 (SIGSEGV)",
			level:   LevelFatal,
			tag:     "libc",
			pid:     9876,
			message: "Fatal signal 11 (SIGSEGV)",
		},
		{
			name:    "warning with empty message",
			line:    "08-21 14:03:57.500 W/InputReader(  400): ",
			level:   LevelWarn,
			tag:     "InputReader",
			pid:     400,
			message: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ParseLine(tt.line)
			if e.Level != tt.level {
				t.Errorf("Level = %v, want %v", e.Level, tt.level)
			}
			if e.Tag != tt.tag {
				t.Errorf("Tag = %q, want %q", e.Tag, tt.tag)
			}
			if e.PID != tt.pid {
				t.Errorf("PID = %d, want %d", e.PID, tt.pid)
			}
			if e.Message != tt.message {
				t.Errorf("Message = %q, want %q", e.Message, tt.message)
			}
			if e.Raw != tt.line {
				t.Errorf("Raw = %q, want original line", e.Raw)
			}
		})
	}
}

func TestParseLine_Unparseable(t *testing.T) {
	for _, line := range []string{
		"--------- beginning of main",
		"garbage",
		"",
	} {
		e := ParseLine(line)
		if e.Level != LevelUnknown {
			t.Errorf("ParseLine(%q).Level = %v, want LevelUnknown", line, e.Level)
		}
		if e.Raw != line {
			t.Errorf("ParseLine(%q).Raw = %q", line, e.Raw)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"V", LevelVerbose},
		{"D", LevelDebug},
		{"I", LevelInfo},
		{"W", LevelWarn},
		{"E", LevelError},
		{"F", LevelFatal},
		{"A", LevelFatal},
		{"X", LevelUnknown},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEntry_IsCrash(t *testing.T) {
	tests := []struct {
		name string
		line string
		want bool
	}{
		{"fatal exception", "08-21 14:03:55.123 E/AndroidRuntime( 1234): FATAL EXCEPTION: main", true},
		{"fatal signal", "08-21 14:03:56.000 F/libc( 9876): Fatal signal 11 (SIGSEGV)", true},
		{"plain error", "08-21 14:03:55.123 E/NetworkClient( 1234): connection refused", false},
		{"info", "08-21 14:03:55.124 I/ActivityManager( 512): Displayed activity", false},
		{"simulator abort", "2026-03-01 12:00:01.000 Df MyApp[4242:deadbeef] Terminating with SIGABRT", true},
		{"simulator bad access", "2026-03-01 12:00:01.000 Df MyApp[4242] EXC_BAD_ACCESS (code=1)", true},
		{"simulator info", "2026-03-01 12:00:01.000 Df MyApp[4242] view did appear", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLine(tt.line).IsCrash(); got != tt.want {
				t.Errorf("IsCrash() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLastCrashBlock(t *testing.T) {
	entries := []Entry{
		ParseLine("08-21 14:03:50.000 I/ActivityManager( 512): starting activity"),
		ParseLine("08-21 14:03:55.123 E/AndroidRuntime( 1234): FATAL EXCEPTION: main"),
		ParseLine("08-21 14:03:55.124 E/AndroidRuntime( 1234): java.lang.NullPointerException"),
		ParseLine("08-21 14:03:55.125 E/AndroidRuntime( 1234): \tat com.example.MainActivity.onCreate"),
		ParseLine("08-21 14:03:56.000 I/Zygote(  100): Process 1234 exited"),
	}

	block := LastCrashBlock(entries)
	if len(block) != 3 {
		t.Fatalf("expected 3-line crash block, got %d", len(block))
	}
	if block[0].Message != "FATAL EXCEPTION: main" {
		t.Errorf("block starts with %q", block[0].Message)
	}
	// Block stops at the first entry from another process
	if block[2].Message != "\tat com.example.MainActivity.onCreate" {
		t.Errorf("block ends with %q", block[2].Message)
	}
}

func TestLastCrashBlock_PicksLatest(t *testing.T) {
	entries := []Entry{
		ParseLine("08-21 14:00:00.000 E/AndroidRuntime( 1111): FATAL EXCEPTION: old"),
		ParseLine("08-21 14:05:00.000 I/ActivityManager( 512): restarted"),
		ParseLine("08-21 14:10:00.000 E/AndroidRuntime( 2222): FATAL EXCEPTION: new"),
		ParseLine("08-21 14:10:00.001 E/AndroidRuntime( 2222): java.lang.IllegalStateException"),
	}

	block := LastCrashBlock(entries)
	if len(block) != 2 {
		t.Fatalf("expected 2-line block, got %d", len(block))
	}
	if block[0].Message != "FATAL EXCEPTION: new" {
		t.Errorf("expected latest crash, got %q", block[0].Message)
	}
}

func TestLastCrashBlock_NoCrash(t *testing.T) {
	entries := []Entry{
		ParseLine("08-21 14:03:50.000 I/ActivityManager( 512): all quiet"),
	}
	if block := LastCrashBlock(entries); block != nil {
		t.Errorf("expected nil, got %d entries", len(block))
	}
}
