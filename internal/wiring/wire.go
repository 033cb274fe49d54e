// Package wiring constructs the application object graph from configuration:
// the persistence backend, the cipher, the repositories, and the components
// composed over them.
package wiring

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/clock"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/audit"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/client"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/credentials"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
	app_errors "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/errors"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/infra/config"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/infra/persistence"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/infra/persistence/memory"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/kms"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/notify"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/rotation"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/schedule"
)

// Repositories groups the storage interfaces provided by one backend.
type Repositories struct {
	Credentials domain.CredentialRepository
	Schedules   domain.ScheduleRepository
	RotationLog domain.RotationLogRepository
	Spend       domain.SpendRepository
}

// Dependencies is the constructed object graph for the operator command.
type Dependencies struct {
	Store    *credentials.Store
	Registry *schedule.Registry
	Engine   *rotation.Engine
	Recorder *audit.Recorder
	Adapter  *client.Adapter
	Repos    Repositories

	pool *pgxpool.Pool
}

// ProvideDependencies builds the full graph from config. The caller owns
// Close.
func ProvideDependencies(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *slog.Logger) (*Dependencies, error) {
	cipher, err := kms.FromConfig(ctx, cfg.Encryption)
	if err != nil {
		return nil, err
	}

	repos, pool, err := provideRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	recorder := audit.NewRecorder(repos.RotationLog, clk, logger)
	store := credentials.NewStore(repos.Credentials, cipher, clk, logger)
	registry := schedule.NewRegistry(repos.Schedules, logger)
	notifier := provideNotifier(cfg, logger)
	engine := rotation.NewEngine(repos.Credentials, repos.Schedules, recorder, notifier, clk, logger)
	adapter := client.NewAdapter(store, repos.Spend, providerSpecs(cfg), clk, logger)

	return &Dependencies{
		Store:    store,
		Registry: registry,
		Engine:   engine,
		Recorder: recorder,
		Adapter:  adapter,
		Repos:    repos,
		pool:     pool,
	}, nil
}

// Close releases the storage backend.
func (d *Dependencies) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

func provideRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Repositories, *pgxpool.Pool, error) {
	switch cfg.Persistence.Backend {
	case config.BackendMemory:
		store := memory.NewStore()
		return Repositories{
			Credentials: store.Credentials(),
			Schedules:   store.Schedules(),
			RotationLog: store.RotationLog(),
			Spend:       store.Spend(),
		}, nil, nil

	case config.BackendPostgres:
		pool, err := persistence.NewConnectionPool(ctx, cfg.Persistence.Postgres)
		if err != nil {
			return Repositories{}, nil, err
		}
		return Repositories{
			Credentials: persistence.NewCredentialRepository(pool, logger),
			Schedules:   persistence.NewScheduleRepository(pool, logger),
			RotationLog: persistence.NewRotationLogRepository(pool, logger),
			Spend:       persistence.NewSpendRepository(pool, logger),
		}, pool, nil

	default:
		return Repositories{}, nil, fmt.Errorf("%w: unknown persistence backend %q",
			app_errors.ErrConfiguration, cfg.Persistence.Backend)
	}
}

// provideNotifier picks webhook delivery for the real backend and log output
// for the dev in-memory backend.
func provideNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	if cfg.Persistence.Backend == config.BackendMemory {
		return &notify.LogNotifier{Logger: logger}
	}
	return notify.NewWebhookNotifier(cfg.Rotation.WebhookTimeout)
}

func providerSpecs(cfg *config.Config) map[string]client.ProviderSpec {
	specs := make(map[string]client.ProviderSpec, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		spec := client.ProviderSpec{
			Models:         make(map[domain.Tier]string, len(pc.Models)),
			EnvCredentials: make(map[domain.Tier]string, len(pc.EnvCredentials)),
		}
		for tier, model := range pc.Models {
			spec.Models[domain.Tier(tier)] = model
		}
		for tier, envVar := range pc.EnvCredentials {
			spec.EnvCredentials[domain.Tier(tier)] = envVar
		}
		specs[name] = spec
	}
	return specs
}
