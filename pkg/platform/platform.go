// Package platform selects and drives the device backend for a target
// platform. Each backend produces raw UI dumps and screenshots; the
// normalization pipeline in pkg/uitree is shared across all of them.
package platform

import (
	"context"
	"os/exec"

	"github.com/devicelab-dev/tether/pkg/config"
	"github.com/devicelab-dev/tether/pkg/logs"
	"github.com/devicelab-dev/tether/pkg/uitree"
	"github.com/devicelab-dev/tether/pkg/uitree/android"
	"github.com/devicelab-dev/tether/pkg/uitree/ios"
)

// Platform is a device backend: a source of raw UI dumps, screenshots
// and lifecycle operations for one target platform.
type Platform interface {
	// Name returns the platform identifier ("android", "ios", "mock").
	Name() string

	// Adapter returns the normalization adapter for this platform's
	// dump format.
	Adapter() uitree.Adapter

	// DumpRaw captures the current UI hierarchy in the platform's
	// native format.
	DumpRaw(ctx context.Context) (string, error)

	// Screenshot captures the screen as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// Status reports whether a device is up and what it is.
	Status(ctx context.Context) (*Status, error)

	// Boot starts the configured device and waits until it is usable.
	Boot(ctx context.Context) error

	// Logs returns a started log collector, or nil when the platform
	// has no log source.
	Logs(ctx context.Context) (*logs.Collector, error)
}

// EventsCommander is implemented by backends that can stream UI change
// events. Backends without one fall back to polling in watch mode.
type EventsCommander interface {
	EventsCommand(ctx context.Context) (*exec.Cmd, error)
}

// Status describes the current device state.
type Status struct {
	Platform  string `json:"platform"`
	Device    string `json:"device,omitempty"`    // serial or UDID
	Model     string `json:"model,omitempty"`     // human-readable name
	OSVersion string `json:"osVersion,omitempty"` // SDK level or iOS version
	Running   bool   `json:"running"`
	Booted    bool   `json:"booted"`
}

// Known lists the platform names New accepts.
var Known = []string{"android", "ios", "mock"}

// New returns the backend for the configured platform.
func New(cfg *config.Config) (Platform, error) {
	switch cfg.Platform {
	case "android":
		return NewAndroid(cfg), nil
	case "ios":
		return NewIOS(cfg), nil
	case "mock":
		return NewMock(cfg), nil
	default:
		return nil, &uitree.UnsupportedPlatformError{Platform: cfg.Platform, Known: Known}
	}
}

// AdapterFor returns the normalization adapter for a platform name.
// Used when parsing dumps from files rather than live devices.
func AdapterFor(name string) (uitree.Adapter, error) {
	switch name {
	case "android", "mock":
		return android.New(), nil
	case "ios":
		return ios.New(), nil
	default:
		return nil, &uitree.UnsupportedPlatformError{Platform: name, Known: []string{"android", "ios"}}
	}
}

// Elements captures a dump from the platform and runs it through the
// normalization pipeline. This is the one place dump acquisition and
// normalization meet; backends never normalize themselves.
func Elements(ctx context.Context, p Platform) ([]*uitree.Element, error) {
	raw, err := p.DumpRaw(ctx)
	if err != nil {
		return nil, err
	}
	return uitree.Normalize(p.Adapter(), raw)
}
