package host

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/artefact-host/application/chat"
	"github.com/reglet-dev/artefact-host/config"
	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/hostfuncs"
	"github.com/reglet-dev/artefact-host/infrastructure/inference"
	"github.com/reglet-dev/artefact-host/infrastructure/inference/descriptor"
	"github.com/reglet-dev/artefact-host/infrastructure/sqlite"
	"github.com/reglet-dev/artefact-host/infrastructure/sysmem"
)

// Services are the shared capabilities both guest conventions are served from.
// Inference and Chat are nil when neither onnx nor chat is granted.
type Services struct {
	Store     *sqlite.Store
	Inference *inference.Registry
	Chat      *chat.Orchestrator
	Registry  *hostfuncs.HandlerRegistry
	Checker   *hostfuncs.CapabilityChecker
}

// Assemble opens the store, loads the inference registry when a model-backed
// capability is granted, and builds the handler registry with panic recovery,
// logging and capability middleware. Only granted families are registered.
func Assemble(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	grants, err := cfg.CapabilitySet()
	if err != nil {
		return nil, err
	}

	store, err := sqlite.Open(ctx, cfg.DBPath,
		sqlite.WithBusyTimeout(cfg.BusyTimeout),
		sqlite.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	svc := &Services{Store: store}

	if grants.Has(entities.CapabilityONNX) || grants.Has(entities.CapabilityChat) {
		backend := descriptor.NewBackend(
			descriptor.WithOpenAI(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey),
			descriptor.WithLogger(logger))
		svc.Inference, err = inference.New(ctx, cfg.ModelDir, backend,
			sysmem.Probe{Override: cfg.MemoryBytes},
			inference.WithLogger(logger))
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("load inference registry: %w", err)
		}
	}
	if grants.Has(entities.CapabilityChat) {
		svc.Chat, err = chat.New(ctx, store, svc.Inference, chat.WithLogger(logger))
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("create conversation: %w", err)
		}
	}

	bundles := hostfuncs.Services{}
	if grants.Has(entities.CapabilityDB) {
		bundles.Store = store
	}
	if grants.Has(entities.CapabilityONNX) {
		bundles.Engine = svc.Inference
	}
	if svc.Chat != nil {
		bundles.Conversation = svc.Chat
	}

	svc.Checker = hostfuncs.NewCapabilityChecker(grants)
	svc.Registry, err = hostfuncs.NewRegistry(
		hostfuncs.WithMiddleware(
			hostfuncs.PanicRecoveryMiddleware(),
			hostfuncs.LoggingMiddleware(logger),
			hostfuncs.CapabilityMiddleware(svc.Checker, logger),
		),
		hostfuncs.WithBundle(hostfuncs.AllBundles(bundles)),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build host function registry: %w", err)
	}
	return svc, nil
}

// Close closes the store.
func (s *Services) Close() error {
	var errs []error
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	return stdErrors.Join(errs...)
}
