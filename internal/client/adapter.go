// Package client is the single entry point the rest of the application uses
// to obtain a working credential and model pair for an outbound provider
// call. It combines the budget tier decision, the credential pool, and the
// configured environment fallbacks.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/juju/clock"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/budget"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/credentials"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
	apperrors "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/errors"
)

// Source tells the caller where the resolved key came from.
type Source string

const (
	SourcePool        Source = "pool"
	SourceEnvironment Source = "environment"
)

// ProviderSpec is the static per-provider configuration the adapter needs:
// which model serves each tier and which environment variable, if any, holds
// the fallback key for a tier.
type ProviderSpec struct {
	Models         map[domain.Tier]string
	EnvCredentials map[domain.Tier]string
}

// Resolution is one resolved credential+model pair.
type Resolution struct {
	Provider string
	Tier     domain.Tier
	APIKey   string
	Model    string
	Source   Source
	Masked   string
	Decision budget.Decision
}

// Option adjusts one Resolve call.
type Option func(*resolveOptions)

type resolveOptions struct {
	forceTier *domain.Tier
}

// WithTier pins the resolution to a tier, bypassing the budget decision.
func WithTier(tier domain.Tier) Option {
	return func(o *resolveOptions) {
		t := tier
		o.forceTier = &t
	}
}

// Adapter resolves credentials for outbound calls. Safe for concurrent use.
type Adapter struct {
	store     *credentials.Store
	spend     domain.SpendRepository
	providers map[string]ProviderSpec
	cache     *credentialCache
	clock     clock.Clock
	logger    *slog.Logger
}

func NewAdapter(store *credentials.Store, spend domain.SpendRepository, providers map[string]ProviderSpec, clk clock.Clock, logger *slog.Logger) *Adapter {
	return &Adapter{
		store:     store,
		spend:     spend,
		providers: providers,
		cache:     newCredentialCache(),
		clock:     clk,
		logger:    logger,
	}
}

// Resolve picks the tier for the current spend, loads and decrypts the
// active pool credential for it, and falls back to the configured
// environment key when the pool cannot serve. The returned plaintext must
// not be retained beyond the outbound call being made.
func (a *Adapter) Resolve(ctx context.Context, provider string, opts ...Option) (*Resolution, error) {
	var o resolveOptions
	for _, opt := range opts {
		opt(&o)
	}

	spec, ok := a.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", apperrors.ErrConfiguration, provider)
	}

	decision, err := a.decide(ctx, provider, o.forceTier)
	if err != nil {
		return nil, err
	}
	tier := decision.Tier

	model, err := a.ModelFor(provider, tier)
	if err != nil {
		return nil, err
	}

	res := &Resolution{
		Provider: provider,
		Tier:     tier,
		Model:    model,
		Decision: decision,
	}
	key := cacheKey{provider: provider, tier: tier}

	active, err := a.store.GetActive(ctx, provider, tier)
	switch {
	case err == nil:
		plaintext, err := a.fromPool(ctx, key, active)
		if err == nil {
			res.APIKey = plaintext
			res.Source = SourcePool
			res.Masked = active.Masked()
			a.logResolved(ctx, res)
			return res, nil
		}
		if !errors.Is(err, apperrors.ErrDecryptionFailure) {
			return nil, err
		}
		a.logger.WarnContext(ctx, "active credential undecryptable, trying environment fallback",
			slog.String("provider", provider),
			slog.String("tier", tier.String()),
			slog.String("credential", active.Masked()),
		)
	case errors.Is(err, apperrors.ErrNoActiveCredential):
		a.cache.drop(key)
	default:
		return nil, fmt.Errorf("reading active credential: %w", err)
	}

	if plaintext, ok := a.fromEnvironment(spec, tier); ok {
		res.APIKey = plaintext
		res.Source = SourceEnvironment
		res.Masked = domain.MaskPrefix(keyPrefix(plaintext))
		a.logResolved(ctx, res)
		return res, nil
	}

	return nil, fmt.Errorf("%w: provider %s tier %s has no usable pool credential and no environment fallback",
		apperrors.ErrNoCredentialAvailable, provider, tier)
}

// decide computes the budget tier decision for the call.
func (a *Adapter) decide(ctx context.Context, provider string, force *domain.Tier) (budget.Decision, error) {
	if force != nil {
		return budget.Decision{Tier: *force, Reason: "tier forced by caller"}, nil
	}

	spend, err := a.spend.CurrentMonthSpend(ctx, provider, a.clock.Now().UTC())
	if err != nil {
		return budget.Decision{}, fmt.Errorf("reading month spend: %w", err)
	}
	cap, err := a.spend.ActiveCap(ctx)
	if err != nil {
		return budget.Decision{}, fmt.Errorf("reading spending cap: %w", err)
	}
	return budget.Explain(spend, cap), nil
}

// fromPool marks the credential used and returns its plaintext, decrypting
// only when the pool identity changed since the last resolve.
func (a *Adapter) fromPool(ctx context.Context, key cacheKey, active *domain.Credential) (string, error) {
	if err := a.store.MarkUsed(ctx, active.ID); err != nil {
		return "", fmt.Errorf("recording credential use: %w", err)
	}

	if plaintext, ok := a.cache.lookup(key, active.ID); ok {
		return plaintext, nil
	}

	plaintext, err := a.store.Decrypt(ctx, active)
	if err != nil {
		a.cache.drop(key)
		return "", err
	}
	a.cache.put(key, active.ID, plaintext)
	return plaintext, nil
}

func (a *Adapter) fromEnvironment(spec ProviderSpec, tier domain.Tier) (string, bool) {
	envVar, ok := spec.EnvCredentials[tier]
	if !ok || envVar == "" {
		return "", false
	}
	value, ok := os.LookupEnv(envVar)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// ModelFor returns the configured model for a provider tier.
func (a *Adapter) ModelFor(provider string, tier domain.Tier) (string, error) {
	spec, ok := a.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: unknown provider %q", apperrors.ErrConfiguration, provider)
	}
	model, ok := spec.Models[tier]
	if !ok || model == "" {
		return "", fmt.Errorf("%w: provider %s has no model for tier %s", apperrors.ErrConfiguration, provider, tier)
	}
	return model, nil
}

func (a *Adapter) logResolved(ctx context.Context, res *Resolution) {
	a.logger.DebugContext(ctx, "credential resolved",
		slog.String("provider", res.Provider),
		slog.String("tier", res.Tier.String()),
		slog.String("source", string(res.Source)),
		slog.String("credential", res.Masked),
		slog.String("model", res.Model),
	)
}

func keyPrefix(plaintext string) string {
	const n = 8
	if len(plaintext) > n {
		return plaintext[:n]
	}
	return plaintext
}
