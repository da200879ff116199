package platform

import (
	"context"

	"github.com/devicelab-dev/tether/pkg/config"
	"github.com/devicelab-dev/tether/pkg/core"
	"github.com/devicelab-dev/tether/pkg/logger"
	"github.com/devicelab-dev/tether/pkg/logs"
	"github.com/devicelab-dev/tether/pkg/simulator"
	"github.com/devicelab-dev/tether/pkg/uitree"
	"github.com/devicelab-dev/tether/pkg/uitree/ios"
)

// IOSPlatform drives an iOS simulator via simctl and axe.
type IOSPlatform struct {
	cfg     *config.Config
	adapter uitree.Adapter
	manager *simulator.Manager
}

// NewIOS creates the iOS backend.
func NewIOS(cfg *config.Config) *IOSPlatform {
	return &IOSPlatform{
		cfg:     cfg,
		adapter: ios.New(),
		manager: simulator.NewManager(),
	}
}

func (p *IOSPlatform) Name() string { return "ios" }

func (p *IOSPlatform) Adapter() uitree.Adapter { return p.adapter }

func (p *IOSPlatform) DumpRaw(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ScreenshotTimeout())
	defer cancel()

	raw, err := simulator.DescribeUI(ctx, p.cfg.SimulatorOrBooted())
	if err != nil {
		return "", core.ErrDumpFailed.WithCause(err)
	}
	return raw, nil
}

func (p *IOSPlatform) Screenshot(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ScreenshotTimeout())
	defer cancel()

	png, err := simulator.Screenshot(ctx, p.cfg.SimulatorOrBooted())
	if err != nil {
		return nil, core.ErrScreenshotFailed.WithCause(err)
	}
	return png, nil
}

func (p *IOSPlatform) Status(ctx context.Context) (*Status, error) {
	st := &Status{Platform: "ios"}

	sim, err := simulator.Booted()
	if err != nil {
		return nil, core.ErrToolNotFound.WithMessage("simctl unavailable: " + err.Error())
	}
	if sim == nil {
		return st, nil
	}

	st.Device = sim.UDID
	st.Model = sim.Name
	st.OSVersion = sim.OSVersion
	st.Running = true
	st.Booted = true
	return st, nil
}

// Logs starts a log stream collector for the booted simulator.
func (p *IOSPlatform) Logs(ctx context.Context) (*logs.Collector, error) {
	cmd, err := simulator.LogStreamCommand(ctx, p.cfg.SimulatorOrBooted(), p.cfg.AppID)
	if err != nil {
		return nil, core.ErrToolFailed.WithMessage("log stream unavailable").WithCause(err)
	}

	collector := logs.NewCollector(logs.DefaultCapacity)
	if err := collector.Start(cmd); err != nil {
		return nil, core.ErrToolFailed.WithMessage("log stream start failed").WithCause(err)
	}
	return collector, nil
}

// Boot starts the configured simulator unless one is already up.
func (p *IOSPlatform) Boot(ctx context.Context) error {
	if st, err := p.Status(ctx); err == nil && st.Booted {
		logger.Info("Simulator already booted: %s", st.Model)
		return nil
	}

	if p.cfg.Simulator == "" {
		return core.ErrInvalidConfig.WithMessage("no simulator configured; set simulator in tether.yaml or TETHER_SIMULATOR")
	}

	udid, err := p.manager.StartByName(p.cfg.Simulator, p.cfg.BootTimeout())
	if err != nil {
		return core.ErrBootTimeout.WithCause(err)
	}

	logger.Info("Simulator ready: %s", udid)
	return nil
}
