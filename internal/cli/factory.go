package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/stepview"
	"github.com/aretw0/stepview/internal/adapters/file"
	redisstore "github.com/aretw0/stepview/internal/adapters/redis"
	"github.com/aretw0/stepview/internal/config"
	"github.com/aretw0/stepview/pkg/adapters/memory"
	"github.com/aretw0/stepview/pkg/client"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/aretw0/stepview/pkg/observability"
	"github.com/aretw0/stepview/pkg/ports"
	"github.com/aretw0/stepview/pkg/session"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// LockPrefix namespaces session locks in redis.
const LockPrefix = "stepview:lock:"

// Stores bundles the trace store selected by the configuration with the
// distributed locker that goes with it (nil unless the store is redis).
type Stores struct {
	Traces ports.TraceStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases the store connections.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores opens the trace store selected by cfg.
func OpenStores(cfg *config.Config) (*Stores, error) {
	switch cfg.Store.Kind {
	case config.StoreMemory:
		return &Stores{Traces: memory.NewStore()}, nil
	case config.StoreFile:
		return &Stores{Traces: file.New(cfg.Store.Path)}, nil
	case config.StoreRedis:
		s := redisstore.New(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB,
			redisstore.WithTTL(cfg.Store.TTL))
		return &Stores{
			Traces: s,
			Locker: redisstore.NewLocker(s.Client(), LockPrefix),
			close:  s.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
}

// GatewayOptions controls how executions reach the backend.
type GatewayOptions struct {
	// NoCache sends every request to the backend.
	NoCache bool
	// Record saves every completed trace under a fresh ID.
	Record bool
}

// NewGateway builds the backend client, optionally fronted by the trace cache.
func NewGateway(cfg *config.Config, store ports.TraceStore, opts GatewayOptions, logger *slog.Logger) (ports.ExecutionGateway, error) {
	c, err := client.New(cfg.Server,
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	var gw ports.ExecutionGateway = c
	if store == nil {
		return gw, nil
	}
	if !opts.NoCache {
		gw = client.NewCached(gw, store, logger)
	}
	if opts.Record {
		gw = recordTo(gw, store, logger)
	}
	return gw, nil
}

// recordTo saves every trace returned by next as a new recording.
func recordTo(next ports.ExecutionGateway, store ports.TraceStore, logger *slog.Logger) ports.GatewayFunc {
	return func(ctx context.Context, req domain.ExecutionRequest) (*domain.ExecutionState, error) {
		trace, err := next.Execute(ctx, req)
		if err != nil {
			return nil, err
		}
		rec := domain.NewRecording(uuid.NewString(), trace)
		if err := store.Save(context.WithoutCancel(ctx), rec); err != nil {
			logger.Warn("Failed to record trace", "err", err)
		} else {
			logger.Info("Trace recorded", "id", rec.ID, "steps", trace.TotalSteps)
		}
		return trace, nil
	}
}

// NewWorkbench creates a workbench configured from cfg.
func NewWorkbench(cfg *config.Config, gw ports.ExecutionGateway, logger *slog.Logger, extra ...stepview.Option) *stepview.Workbench {
	opts := []stepview.Option{
		stepview.WithLogger(logger),
		stepview.WithInterval(cfg.Interval),
		stepview.WithRequestTimeout(int(cfg.Timeout / time.Second)),
	}
	if gw != nil {
		opts = append(opts, stepview.WithGateway(gw))
	}
	if cfg.Debug {
		opts = append(opts, stepview.WithLifecycleHooks(observability.LogHooks(logger)))
	}
	return stepview.New(append(opts, extra...)...)
}

// NewSessionManager builds the session manager used by the long-running
// services. Metrics are registered on reg when it is not nil.
func NewSessionManager(cfg *config.Config, stores *Stores, gw ports.ExecutionGateway, logger *slog.Logger, reg prometheus.Registerer) *session.Manager {
	hooks := observability.LogHooks(logger)
	opts := []session.Option{session.WithLogger(logger)}
	if reg != nil {
		m := observability.NewMetrics(reg)
		hooks = hooks.Merge(m.Hooks())
		opts = append(opts, session.WithActiveGauge(m.ActiveSessions))
	}
	if stores.Locker != nil {
		opts = append(opts, session.WithLocker(stores.Locker))
	}
	opts = append(opts, session.WithWorkbenchOptions(
		stepview.WithGateway(gw),
		stepview.WithLogger(logger),
		stepview.WithInterval(cfg.Interval),
		stepview.WithRequestTimeout(int(cfg.Timeout/time.Second)),
		stepview.WithLifecycleHooks(hooks),
	))
	return session.NewManager(stores.Traces, opts...)
}
