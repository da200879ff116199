package platform

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/devicelab-dev/tether/pkg/config"
	"github.com/devicelab-dev/tether/pkg/core"
	"github.com/devicelab-dev/tether/pkg/device"
	"github.com/devicelab-dev/tether/pkg/emulator"
	"github.com/devicelab-dev/tether/pkg/logger"
	"github.com/devicelab-dev/tether/pkg/logs"
	"github.com/devicelab-dev/tether/pkg/uitree"
	"github.com/devicelab-dev/tether/pkg/uitree/android"
)

// AndroidPlatform drives an Android device or emulator over ADB.
type AndroidPlatform struct {
	cfg     *config.Config
	adapter uitree.Adapter
	manager *emulator.Manager

	mu  sync.Mutex
	dev *device.AndroidDevice
}

// NewAndroid creates the Android backend.
func NewAndroid(cfg *config.Config) *AndroidPlatform {
	return &AndroidPlatform{
		cfg:     cfg,
		adapter: android.New(),
		manager: emulator.NewManager(),
	}
}

func (p *AndroidPlatform) Name() string { return "android" }

func (p *AndroidPlatform) Adapter() uitree.Adapter { return p.adapter }

// connect returns the cached device connection, establishing it on
// first use.
func (p *AndroidPlatform) connect() (*device.AndroidDevice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dev != nil {
		return p.dev, nil
	}

	dev, err := device.FirstAvailable()
	if err != nil {
		return nil, core.ErrDeviceNotRunning.WithCause(err)
	}
	p.dev = dev
	return dev, nil
}

// Device returns the underlying ADB connection, connecting on demand.
// Log streaming and watch need it directly.
func (p *AndroidPlatform) Device() (*device.AndroidDevice, error) {
	return p.connect()
}

func (p *AndroidPlatform) DumpRaw(ctx context.Context) (string, error) {
	dev, err := p.connect()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.ScreenshotTimeout())
	defer cancel()

	raw, err := dev.DumpUI(ctx)
	if err != nil {
		return "", core.ErrDumpFailed.WithCause(err)
	}
	return raw, nil
}

func (p *AndroidPlatform) Screenshot(ctx context.Context) ([]byte, error) {
	dev, err := p.connect()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.ScreenshotTimeout())
	defer cancel()

	png, err := dev.Screenshot(ctx)
	if err != nil {
		return nil, core.ErrScreenshotFailed.WithCause(err)
	}
	return png, nil
}

func (p *AndroidPlatform) Status(ctx context.Context) (*Status, error) {
	st := &Status{Platform: "android"}

	devices, err := device.ListDevices()
	if err != nil {
		return nil, core.ErrToolNotFound.WithMessage(fmt.Sprintf("adb unavailable: %v", err))
	}

	for _, d := range devices {
		if d.State == "device" {
			st.Device = d.Serial
			st.Running = true
			break
		}
	}
	if !st.Running {
		return st, nil
	}

	dev, err := device.New(st.Device)
	if err != nil {
		return st, nil
	}
	st.Booted = dev.BootCompleted()

	if info, err := dev.Info(); err == nil {
		st.Model = strings.TrimSpace(info.Brand + " " + info.Model)
		st.OSVersion = info.SDK
	}

	return st, nil
}

// EventsCommand returns the uiautomator event stream used by watch
// mode. The stream holds the uiautomator service, so callers must kill
// it before dumping the hierarchy.
func (p *AndroidPlatform) EventsCommand(ctx context.Context) (*exec.Cmd, error) {
	dev, err := p.connect()
	if err != nil {
		return nil, err
	}
	return dev.Command(ctx, "shell", "uiautomator", "events"), nil
}

// Logs starts a logcat collector filtered to the configured app.
func (p *AndroidPlatform) Logs(ctx context.Context) (*logs.Collector, error) {
	dev, err := p.connect()
	if err != nil {
		return nil, err
	}

	collector := logs.NewCollector(logs.DefaultCapacity)
	collector.FilterApp(p.cfg.AppID)
	if err := collector.Start(dev.Command(ctx, "logcat", "-v", "time")); err != nil {
		return nil, core.ErrToolFailed.WithMessage("logcat start failed").WithCause(err)
	}
	return collector, nil
}

// Boot starts the configured AVD unless a device is already up.
func (p *AndroidPlatform) Boot(ctx context.Context) error {
	if st, err := p.Status(ctx); err == nil && st.Booted {
		logger.Info("Device already booted: %s", st.Device)
		return nil
	}

	if p.cfg.AVD == "" {
		return core.ErrInvalidConfig.WithMessage("no AVD configured; set avd in tether.yaml or TETHER_AVD")
	}
	if !emulator.HasAVD(p.cfg.AVD) {
		return core.ErrDeviceNotRunning.WithMessage(fmt.Sprintf("AVD %q not found; create it in Android Studio or check tether.yaml", p.cfg.AVD))
	}

	serial, err := p.manager.Start(p.cfg.AVD, p.cfg.BootTimeout())
	if err != nil {
		return core.ErrBootTimeout.WithCause(err)
	}

	logger.Info("Emulator ready: %s", serial)
	return nil
}
