package invoke

import (
	"context"
	"fmt"

	"github.com/anoideaopen/reflectcall/core/host"
	"github.com/anoideaopen/reflectcall/core/logger"
	"github.com/anoideaopen/reflectcall/core/resolve"
	"github.com/anoideaopen/reflectcall/core/telemetry"
	"github.com/anoideaopen/reflectcall/internal/config"
	"github.com/anoideaopen/reflectcall/version"
)

// Setup is an engine built from configuration together with its registry.
type Setup struct {
	Engine   *Engine
	Registry *host.Registry
	// Shutdown flushes the trace provider.
	Shutdown func(context.Context) error
}

// NewFromConfig loads the YAML configuration at path (which may be empty),
// applies environment overrides and builds a registry and an engine from it.
// It also installs the global trace provider.
func NewFromConfig(ctx context.Context, path string) (*Setup, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	order, err := resolve.ParseOrder(cfg.Resolver.CandidateOrder)
	if err != nil {
		return nil, err
	}

	var regOpts []host.RegistryOption
	if !cfg.Resolver.AllowHidden {
		regOpts = append(regOpts, host.WithAccessPolicy(host.DenyHidden))
	}
	reg := host.NewRegistry(regOpts...)

	shutdown, err := telemetry.InstallTraceProvider(ctx, &telemetry.CollectorEndpoint{
		Endpoint: cfg.Tracing.Endpoint,
		CACerts:  cfg.Tracing.CACerts,
	}, cfg.Tracing.ServiceName, version.Version())
	if err != nil {
		return nil, fmt.Errorf("installing trace provider: %w", err)
	}

	engine := New(reg,
		WithLogger(logger.New(cfg.Logging.Level, cfg.Logging.Format)),
		WithOrder(order),
	)

	return &Setup{
		Engine:   engine,
		Registry: reg,
		Shutdown: shutdown,
	}, nil
}
