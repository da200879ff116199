// Package logs collects and classifies device log output.
package logs

import (
	"regexp"
	"strconv"
	"strings"
)

// Level is a logcat priority.
type Level int

const (
	LevelUnknown Level = iota
	LevelVerbose
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the single-letter logcat priority.
func (l Level) String() string {
	switch l {
	case LevelVerbose:
		return "V"
	case LevelDebug:
		return "D"
	case LevelInfo:
		return "I"
	case LevelWarn:
		return "W"
	case LevelError:
		return "E"
	case LevelFatal:
		return "F"
	default:
		return "?"
	}
}

// ParseLevel maps a logcat priority letter to a Level.
func ParseLevel(s string) Level {
	switch s {
	case "V":
		return LevelVerbose
	case "D":
		return LevelDebug
	case "I":
		return LevelInfo
	case "W":
		return LevelWarn
	case "E":
		return LevelError
	case "F", "A":
		return LevelFatal
	default:
		return LevelUnknown
	}
}

// Entry is one parsed logcat line.
type Entry struct {
	Time    string // "08-21 14:03:55.123"
	Level   Level
	Tag     string
	PID     int
	Message string
	Raw     string // original line, always set
}

// logcat -v time format:
//
//	08-21 14:03:55.123 E/AndroidRuntime( 1234): FATAL EXCEPTION: main
var lineRe = regexp.MustCompile(`^(\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3})\s+([VDIWEFA])/(.*?)\(\s*(\d+)\):\s?(.*)$`)

// ParseLine parses a logcat "time" format line. Lines that do not
// match the format come back with only Raw set.
func ParseLine(line string) Entry {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return Entry{Raw: line}
	}
	pid, _ := strconv.Atoi(m[4])
	return Entry{
		Time:    m[1],
		Level:   ParseLevel(m[2]),
		Tag:     strings.TrimSpace(m[3]),
		PID:     pid,
		Message: m[5],
		Raw:     line,
	}
}

// crashMarkers covers Android runtime crashes plus the signals that
// simulator log streams report for native aborts.
var crashMarkers = []string{"FATAL EXCEPTION", "Fatal signal", "SIGABRT", "EXC_BAD_ACCESS"}

// IsCrash reports whether the entry marks an application crash.
func (e Entry) IsCrash() bool {
	if e.Level == LevelFatal {
		return true
	}
	for _, marker := range crashMarkers {
		if strings.Contains(e.Raw, marker) {
			return true
		}
	}
	return false
}

// IsError reports whether the entry is error-level or worse.
func (e Entry) IsError() bool {
	return e.Level >= LevelError
}

// LastCrashBlock returns the contiguous entries belonging to the most
// recent crash: the crash line plus the following lines from the same
// process. Returns nil when no crash is present.
func LastCrashBlock(entries []Entry) []Entry {
	start := -1
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].IsCrash() {
			start = i
			break
		}
	}
	if start == -1 {
		return nil
	}

	block := []Entry{entries[start]}
	pid := entries[start].PID
	for _, e := range entries[start+1:] {
		if e.PID != pid {
			break
		}
		block = append(block, e)
	}
	return block
}
