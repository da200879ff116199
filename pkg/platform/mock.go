package platform

import (
	"context"
	"sync"

	"github.com/devicelab-dev/tether/pkg/config"
	"github.com/devicelab-dev/tether/pkg/core"
	"github.com/devicelab-dev/tether/pkg/logs"
	"github.com/devicelab-dev/tether/pkg/uitree"
	"github.com/devicelab-dev/tether/pkg/uitree/android"
)

// Canned dumps the mock cycles through, so diff-driven commands have
// something to observe without a device.
var mockDumps = []string{
	`<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node class="android.widget.FrameLayout" bounds="[0,0][1080,2400]">
    <node class="android.widget.TextView" text="Welcome" bounds="[40,300][1040,400]"/>
    <node class="android.widget.Button" text="Login" clickable="true" bounds="[40,500][1040,620]"/>
  </node>
</hierarchy>`,
	`<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node class="android.widget.FrameLayout" bounds="[0,0][1080,2400]">
    <node class="android.widget.TextView" text="Welcome" bounds="[40,300][1040,400]"/>
    <node class="android.widget.Button" text="Login" clickable="true" bounds="[40,500][1040,620]"/>
    <node class="android.widget.TextView" text="Invalid credentials" bounds="[40,660][1040,720]"/>
  </node>
</hierarchy>`,
}

// Minimal valid PNG (1x1 transparent pixel).
var mockPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
	0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
	0x42, 0x60, 0x82,
}

// MockPlatform fakes a device for testing and offline demos. Dumps are
// served in Android format and cycle between two screens so snapshot
// diffs have changes to report.
type MockPlatform struct {
	cfg     *config.Config
	adapter uitree.Adapter

	// FailDump makes DumpRaw return an error (for error-path tests).
	FailDump bool

	mu    sync.Mutex
	calls int
}

// NewMock creates the mock backend.
func NewMock(cfg *config.Config) *MockPlatform {
	return &MockPlatform{
		cfg:     cfg,
		adapter: android.New(),
	}
}

func (p *MockPlatform) Name() string { return "mock" }

func (p *MockPlatform) Adapter() uitree.Adapter { return p.adapter }

func (p *MockPlatform) DumpRaw(ctx context.Context) (string, error) {
	if p.FailDump {
		return "", core.ErrDumpFailed.WithMessage("mock dump failure")
	}

	p.mu.Lock()
	dump := mockDumps[p.calls%len(mockDumps)]
	p.calls++
	p.mu.Unlock()

	return dump, nil
}

func (p *MockPlatform) Screenshot(ctx context.Context) ([]byte, error) {
	return mockPNG, nil
}

func (p *MockPlatform) Status(ctx context.Context) (*Status, error) {
	return &Status{
		Platform:  "mock",
		Device:    "mock-device",
		Model:     "Mock Device",
		OSVersion: "1.0",
		Running:   true,
		Booted:    true,
	}, nil
}

func (p *MockPlatform) Boot(ctx context.Context) error {
	return nil
}

// Logs returns nil; the mock has no log source.
func (p *MockPlatform) Logs(ctx context.Context) (*logs.Collector, error) {
	return nil, nil
}
