package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/visualscripts/loader/internal/config"
	apperrors "github.com/visualscripts/loader/internal/errors"
	"github.com/visualscripts/loader/internal/infrastructure"
	"github.com/visualscripts/loader/internal/license"
	"github.com/visualscripts/loader/internal/payload"
	"github.com/visualscripts/loader/internal/security"
)

const (
	Version = "3.1.0"
	AppName = "VisualScripts Loader"
)

// Application is the loader's dependency container.
type Application struct {
	Config       *config.Config
	Logger       *slog.Logger
	Licenses     *license.Client
	Fingerprints *security.FingerprintManager
	Payloads     *payload.Fetcher
	Runner       payload.Runner
	OTel         *infrastructure.OTelProviders

	// Stdout carries the single user-facing status line; diagnostics go
	// through the logger.
	Stdout io.Writer
}

// NewApplication loads configuration and wires the loader. A failure here
// is the environment-unsupported condition: the loader cannot read the
// configuration the operator was supposed to inject.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindEnvironmentUnsupported,
			"cannot read loader configuration", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindEnvironmentUnsupported,
			"cannot initialize logging", err)
	}

	logger.Info("loader starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("api", cfg.API.BaseURL),
	)

	providers, err := infrastructure.InitializeOTel(context.Background(), cfg.Logging.Development, logger)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindEnvironmentUnsupported,
			"cannot initialize telemetry", err)
	}

	return newApplication(cfg, logger, providers), nil
}

// newApplication wires dependencies from a loaded configuration. Tests
// construct through here with a config pointing at a local server.
func newApplication(cfg *config.Config, logger *slog.Logger, providers *infrastructure.OTelProviders) *Application {
	clientOpts := []license.Option{license.WithLogger(logger)}
	var fetcherOpts []payload.FetcherOption
	if providers != nil {
		if metrics, err := license.NewMetrics(providers.Meter); err == nil {
			clientOpts = append(clientOpts, license.WithMetrics(metrics))
		} else {
			logger.Warn("license metrics unavailable", slog.String("error", err.Error()))
		}
		if metrics, err := payload.NewMetrics(providers.Meter); err == nil {
			fetcherOpts = append(fetcherOpts, payload.WithMetrics(metrics))
		} else {
			logger.Warn("payload metrics unavailable", slog.String("error", err.Error()))
		}
	}

	return &Application{
		Config:       cfg,
		Logger:       logger,
		Licenses:     license.NewClient(cfg.API.BaseURL, clientOpts...),
		Fingerprints: security.NewFingerprintManager(),
		Payloads:     payload.NewFetcher(cfg.API.BaseURL, cfg.API.PayloadPath, fetcherOpts...),
		Runner:       payload.NewExecRunner(cfg.Runner.Command, cfg.Runner.WorkDir),
		OTel:         providers,
		Stdout:       os.Stdout,
	}
}

// Run performs the gated load sequence, strictly in order:
//
//  1. key presence check (no network I/O before this passes)
//  2. hardware fingerprint acquisition
//  3. optional service health probe (warn only)
//  4. verify-key, branching on the decoded result
//  5. register-hwid, best effort, outcome discarded
//  6. payload fetch and execution, exactly once
//
// Every fatal condition returns an *errors.ExitError; nothing after a
// failed step runs, and no step ever loops back.
func (a *Application) Run(ctx context.Context) error {
	ctx = infrastructure.EnsureTraceID(ctx)
	logger := infrastructure.LoggerWithContext(ctx)

	key := strings.TrimSpace(a.Config.ScriptKey)
	if key == "" {
		return apperrors.New(apperrors.KindMissingCredential,
			"no script key supplied. Set LOADER_SCRIPT_KEY in the environment, "+
				"or put LOADER_SCRIPT_KEY=<your key> in a .env file next to the loader")
	}

	fingerprint, err := a.Fingerprints.GenerateFingerprint()
	if err != nil {
		return apperrors.Wrap(apperrors.KindEnvironmentUnsupported,
			"cannot determine hardware identifier", err)
	}
	logger.Debug("hardware identifier acquired",
		slog.String("hwid", license.MaskHWID(fingerprint.Fingerprint)),
	)

	if a.Config.API.HealthCheck {
		a.probeHealth(ctx)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, a.Config.API.VerifyTimeout)
	result, err := a.Licenses.VerifyKey(verifyCtx, key, fingerprint.Fingerprint)
	cancel()
	if err != nil {
		var denied *license.BlacklistedError
		switch {
		case errors.As(err, &denied):
			return apperrors.Newf(apperrors.KindBlacklisted,
				"hardware id blacklisted. Reason: %s", denied.Reason)
		case errors.Is(err, license.ErrInvalidKey):
			return apperrors.New(apperrors.KindInvalidKey,
				"invalid script key. Get a valid key from the support server")
		default:
			return apperrors.Wrap(apperrors.KindNetwork,
				"failed to verify script key", err)
		}
	}

	fmt.Fprintf(a.Stdout, "Key verified. Loading %s v%s\n", result.ScriptName, result.Version)
	logger.Info("verification succeeded",
		slog.String("script_name", result.ScriptName),
		slog.String("version", result.Version),
	)

	a.registerHWID(ctx, fingerprint.Fingerprint, key)

	fetchCtx, cancel := context.WithTimeout(ctx, a.Config.API.FetchTimeout)
	script, err := a.Payloads.Fetch(fetchCtx)
	cancel()
	if err != nil {
		return apperrors.Wrap(apperrors.KindPayload, "failed to load payload", err)
	}

	// No timeout: the payload runs for as long as the session lasts.
	if err := a.Runner.Run(ctx, script); err != nil {
		return apperrors.Wrap(apperrors.KindPayload, "payload execution failed", err)
	}

	return nil
}

// probeHealth checks service liveness before verification. Purely
// advisory; a failed probe only warns, the verify call decides.
func (a *Application) probeHealth(ctx context.Context) {
	healthCtx, cancel := context.WithTimeout(ctx, a.Config.API.RegisterTimeout)
	defer cancel()

	if err := a.Licenses.Health(healthCtx); err != nil {
		infrastructure.LoggerWithContext(ctx).Warn("licensing service health probe failed",
			slog.String("error", err.Error()),
		)
	}
}

// registerHWID is deliberately best effort: issued only after verification
// succeeded, its outcome is discarded and never changes the run.
func (a *Application) registerHWID(ctx context.Context, hwid, key string) {
	registerCtx, cancel := context.WithTimeout(ctx, a.Config.API.RegisterTimeout)
	defer cancel()

	if err := a.Licenses.RegisterHWID(registerCtx, hwid, key); err != nil {
		infrastructure.LoggerWithContext(ctx).Debug("hwid registration failed",
			slog.String("error", err.Error()),
		)
	}
}

// Shutdown flushes telemetry and releases logging resources.
func (a *Application) Shutdown(ctx context.Context) {
	if a.OTel != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.OTel.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}
	_ = infrastructure.CloseLogFile()
}
