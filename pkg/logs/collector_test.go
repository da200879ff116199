package logs

import (
	"strings"
	"testing"
)

const sampleLog = `08-21 14:03:50.000 I/ActivityManager( 512): starting com.example
08-21 14:03:51.000 D/Gralloc4(  512): allocated buffer
08-21 14:03:52.000 W/InputReader(  400): slow event
08-21 14:03:53.000 E/NetworkClient( 1234): connection refused
08-21 14:03:55.123 E/AndroidRuntime( 1234): FATAL EXCEPTION: main
08-21 14:03:55.124 E/AndroidRuntime( 1234): java.lang.NullPointerException
08-21 14:03:56.000 I/Zygote(  100): Process 1234 exited
`

func TestCollector_Consume(t *testing.T) {
	c := NewCollector(100)
	c.consume(strings.NewReader(sampleLog))

	recent := c.Recent(0)
	if len(recent) != 7 {
		t.Fatalf("expected 7 entries, got %d", len(recent))
	}

	// Oldest first
	if recent[0].Tag != "ActivityManager" {
		t.Errorf("first entry tag = %s", recent[0].Tag)
	}
	if recent[6].Tag != "Zygote" {
		t.Errorf("last entry tag = %s", recent[6].Tag)
	}
}

func TestCollector_Recent_Limit(t *testing.T) {
	c := NewCollector(100)
	c.consume(strings.NewReader(sampleLog))

	recent := c.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[1].Tag != "Zygote" {
		t.Errorf("expected the latest entries, last tag = %s", recent[1].Tag)
	}
}

func TestCollector_CapacityWindow(t *testing.T) {
	c := NewCollector(3)
	c.consume(strings.NewReader(sampleLog))

	recent := c.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("expected capacity-bounded 3 entries, got %d", len(recent))
	}
	// Only the newest survive
	if recent[0].Message != "FATAL EXCEPTION: main" {
		t.Errorf("oldest retained entry = %q", recent[0].Message)
	}
}

func TestCollector_Errors(t *testing.T) {
	c := NewCollector(100)
	c.consume(strings.NewReader(sampleLog))

	errs := c.Errors()
	if len(errs) != 3 {
		t.Fatalf("expected 3 error entries, got %d", len(errs))
	}
	for _, e := range errs {
		if !e.IsError() {
			t.Errorf("non-error entry in Errors(): %q", e.Raw)
		}
	}
}

func TestCollector_LastCrash(t *testing.T) {
	c := NewCollector(100)
	c.consume(strings.NewReader(sampleLog))

	block := c.LastCrash()
	if len(block) != 2 {
		t.Fatalf("expected 2-line crash block, got %d", len(block))
	}
	if block[0].Message != "FATAL EXCEPTION: main" {
		t.Errorf("crash block starts with %q", block[0].Message)
	}
}

func TestCollector_Drain(t *testing.T) {
	c := NewCollector(100)
	c.consume(strings.NewReader(sampleLog))

	drained := c.Drain()
	if len(drained) != 7 {
		t.Fatalf("expected 7 drained entries, got %d", len(drained))
	}
	if len(c.Recent(0)) != 0 {
		t.Error("expected empty window after Drain")
	}
	if len(c.Errors()) != 0 {
		t.Error("expected no errors after Drain")
	}
}

func TestCollector_FilterApp(t *testing.T) {
	c := NewCollector(100)
	c.FilterApp("com.example")
	c.consume(strings.NewReader(sampleLog))

	recent := c.Recent(0)
	if len(recent) != 1 {
		t.Fatalf("expected 1 matching entry, got %d", len(recent))
	}
	if !strings.Contains(recent[0].Message, "com.example") {
		t.Errorf("unexpected entry: %q", recent[0].Raw)
	}
}

func TestScanReader(t *testing.T) {
	entries := ScanReader(strings.NewReader(sampleLog))
	if len(entries) != 7 {
		t.Fatalf("expected 7 entries, got %d", len(entries))
	}

	block := LastCrashBlock(entries)
	if len(block) != 2 {
		t.Errorf("expected crash block in scanned dump, got %d entries", len(block))
	}
}
