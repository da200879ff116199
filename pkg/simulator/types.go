package simulator

import (
	"sync"
	"time"
)

// Device represents an available iOS simulator from simctl list.
type Device struct {
	Name        string // e.g., "iPhone 15 Pro"
	UDID        string // e.g., "A1B2C3D4-E5F6-..."
	Runtime     string // e.g., "com.apple.CoreSimulator.SimRuntime.iOS-17-2"
	OSVersion   string // e.g., "17.2" (extracted from Runtime)
	State       string // "Shutdown", "Booted", etc.
	IsAvailable bool
}

// Instance tracks a simulator booted by tether.
type Instance struct {
	UDID         string        // Simulator UDID
	Name         string        // Simulator name (e.g., "iPhone 15 Pro")
	StartedBy    string        // "tether"
	BootStart    time.Time     // When boot was initiated
	BootDuration time.Duration // Total boot duration
}

// BootStatus represents simulator boot state.
type BootStatus struct {
	Booted bool // state == "Booted" from simctl list
}

// IsReady returns true if the simulator is fully booted.
func (bs *BootStatus) IsReady() bool {
	return bs.Booted
}

// Manager manages iOS simulator lifecycle and tracks started simulators.
type Manager struct {
	started sync.Map // UDID -> *Instance (thread-safe)
}
