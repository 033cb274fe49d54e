package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/juju/clock"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/budget"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/client"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
	app_errors "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/errors"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/infra/config"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/rotation"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/schedule"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/wiring"
)

const shutdownTimeout = 10 * time.Second

type options struct {
	configPath string
	provider   string
	tier       string

	force       bool
	dryRun      bool
	notes       string
	performedBy string

	statusOnly bool
	history    int
	resolve    bool

	add      bool
	name     string
	revoke   string
	reenable string

	setSchedule     bool
	frequency       string
	notifyTarget    string
	disableSchedule bool

	daemon bool
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts options
	flag.StringVar(&opts.configPath, "config", os.Getenv("ROTATEKEYS_CONFIG_PATH"), "path to the YAML config file")
	flag.StringVar(&opts.provider, "provider", "", "provider to operate on (default: rotation.default_provider)")
	flag.StringVar(&opts.tier, "tier", "", "tier to operate on: premium, standard or fallback (default: all tiers)")
	flag.BoolVar(&opts.force, "force", false, "rotate even when the schedule is not due or disabled")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "report what a rotation would do without changing anything")
	flag.StringVar(&opts.notes, "notes", "", "free-form note recorded on the rotation log entry")
	flag.StringVar(&opts.performedBy, "performed-by", "", "operator name recorded on manual rotations")
	flag.BoolVar(&opts.statusOnly, "status-only", false, "print pool status and the budget decision, then exit")
	flag.IntVar(&opts.history, "history", 0, "print the last N rotation log entries, then exit")
	flag.BoolVar(&opts.resolve, "resolve", false, "resolve the credential a request would use right now, then exit")
	flag.BoolVar(&opts.add, "add", false, "add a credential to the pool; the key is read from stdin, never argv")
	flag.StringVar(&opts.name, "name", "", "label for the credential added with --add")
	flag.StringVar(&opts.revoke, "revoke", "", "credential id to revoke (terminal)")
	flag.StringVar(&opts.reenable, "reenable", "", "inactive credential id to return to the pending queue")
	flag.BoolVar(&opts.setSchedule, "set-schedule", false, "create or update the rotation schedule for the pool")
	flag.StringVar(&opts.frequency, "frequency", "", "cadence for --set-schedule: daily, weekly, monthly or quarterly (default: rotation.default_frequency)")
	flag.StringVar(&opts.notifyTarget, "notify-target", "", "webhook URL notified after successful rotations (with --set-schedule)")
	flag.BoolVar(&opts.disableSchedule, "disable-schedule", false, "disable the rotation schedule without discarding it")
	flag.BoolVar(&opts.daemon, "daemon", false, "run the in-process rotation scheduler until interrupted")
	flag.Parse()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return app_errors.ExitCode(err)
	}

	logger := newLogger(cfg.Logging)
	logger.Info("rotatekeys starting",
		slog.String("version", cfg.ServiceVersion),
		slog.String("commit", cfg.BuildCommit),
		slog.String("backend", cfg.Persistence.Backend),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := wiring.ProvideDependencies(ctx, cfg, clock.WallClock, logger)
	if err != nil {
		logger.Error("failed to build dependencies", "error", err)
		return app_errors.ExitCode(err)
	}
	defer deps.Close()

	app := &cli{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		stdout: os.Stdout,
		stdin:  os.Stdin,
	}

	provider := strings.TrimSpace(opts.provider)
	if provider == "" {
		provider = cfg.Rotation.DefaultProvider
	}

	tiers, err := resolveTiers(opts.tier)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return app_errors.ExitCode(err)
	}

	switch {
	case opts.daemon:
		return app.runDaemon(ctx)
	case opts.add:
		return app.runAdd(ctx, provider, opts)
	case opts.revoke != "":
		return app.runRevoke(ctx, opts.revoke)
	case opts.reenable != "":
		return app.runReenable(ctx, opts.reenable)
	case opts.setSchedule:
		return app.runSetSchedule(ctx, provider, tiers, opts)
	case opts.disableSchedule:
		return app.runDisableSchedule(ctx, provider, tiers)
	case opts.history > 0:
		return app.runHistory(ctx, provider, opts.tier, opts.history)
	case opts.resolve:
		return app.runResolve(ctx, provider, opts.tier)
	case opts.statusOnly:
		return app.runStatus(ctx, provider, tiers)
	case cfg.Rotation.Runner.Enabled:
		// A bare invocation with the runner enabled acts as the service
		// entrypoint. Explicit operations above still run one-shot.
		return app.runDaemon(ctx)
	default:
		return app.runRotate(ctx, provider, tiers, opts)
	}
}

type cli struct {
	cfg    *config.Config
	deps   *wiring.Dependencies
	logger *slog.Logger
	stdout io.Writer
	stdin  io.Reader
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	return slog.New(handler)
}

// resolveTiers maps the --tier flag to the tiers to operate on; empty means
// every tier, each handled independently.
func resolveTiers(raw string) ([]domain.Tier, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Tiers(), nil
	}
	tier, err := domain.ParseTier(raw)
	if err != nil {
		return nil, err
	}
	return []domain.Tier{tier}, nil
}

// runRotate rotates each requested tier independently, then prints the pool
// table and the budget decision. The exit code is the worst outcome.
func (a *cli) runRotate(ctx context.Context, provider string, tiers []domain.Tier, opts options) int {
	worst := app_errors.ExitOK
	for _, tier := range tiers {
		out, err := a.deps.Engine.Rotate(ctx, rotation.RotateParams{
			Provider:    provider,
			Tier:        tier,
			Force:       opts.force,
			DryRun:      opts.dryRun,
			PerformedBy: opts.performedBy,
			Notes:       opts.notes,
		})
		if out != nil {
			a.printOutcome(out)
		} else if err != nil {
			fmt.Fprintf(os.Stderr, "%s/%s: %s\n", provider, tier, app_errors.UserMessage(err))
		}
		if code := app_errors.ExitCode(err); code > worst {
			worst = code
		}
	}

	fmt.Fprintln(a.stdout)
	if code := a.printStatus(ctx, provider, tiers); code > worst {
		worst = code
	}
	return worst
}

func (a *cli) printOutcome(out *rotation.Outcome) {
	var b strings.Builder
	if out.DryRun {
		b.WriteString("[dry-run] ")
	}
	fmt.Fprintf(&b, "%s/%s: %s", out.Provider, out.Tier, out.Status)
	if out.Reason != "" {
		fmt.Fprintf(&b, " (%s)", out.Reason)
	}
	if out.OldMasked != "" {
		fmt.Fprintf(&b, " old=%s", out.OldMasked)
	}
	if out.NewMasked != "" {
		fmt.Fprintf(&b, " new=%s", out.NewMasked)
	}
	fmt.Fprintln(a.stdout, b.String())
}

// runStatus prints the credential pool for each tier plus the current
// budget decision.
func (a *cli) runStatus(ctx context.Context, provider string, tiers []domain.Tier) int {
	return a.printStatus(ctx, provider, tiers)
}

func (a *cli) printStatus(ctx context.Context, provider string, tiers []domain.Tier) int {
	creds, err := a.deps.Store.List(ctx, provider)
	if err != nil {
		a.logger.Error("failed to list credentials", "provider", provider, "error", err)
		return app_errors.ExitCode(err)
	}

	w := tabwriter.NewWriter(a.stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "TIER\tSTATUS\tKEY\tNAME\tUSAGE\tLAST USED\n")
	for _, tier := range tiers {
		for _, c := range creds {
			if c.Tier != tier {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				c.Tier, c.Status, c.Masked(), c.Name, c.UsageCount, formatTimePtr(c.LastUsedAt))
		}
	}
	if err := w.Flush(); err != nil {
		a.logger.Error("failed to render status table", "error", err)
	}

	decision, err := a.budgetDecision(ctx, provider)
	if err != nil {
		a.logger.Error("failed to compute budget decision", "provider", provider, "error", err)
		return app_errors.ExitCode(err)
	}
	fmt.Fprintf(a.stdout, "\nbudget: %s\n", decision.Reason)
	return app_errors.ExitOK
}

func (a *cli) budgetDecision(ctx context.Context, provider string) (budget.Decision, error) {
	now := time.Now().UTC()
	spend, err := a.deps.Repos.Spend.CurrentMonthSpend(ctx, provider, now)
	if err != nil {
		return budget.Decision{}, err
	}
	cap, err := a.deps.Repos.Spend.ActiveCap(ctx)
	if err != nil {
		return budget.Decision{}, err
	}
	return budget.Explain(spend, cap), nil
}

// runAdd reads the key from stdin and stores it as a pending credential.
// --tier is required; a key belongs to exactly one pool.
func (a *cli) runAdd(ctx context.Context, provider string, opts options) int {
	tierRaw := strings.TrimSpace(opts.tier)
	if tierRaw == "" {
		fmt.Fprintln(os.Stderr, "--add requires --tier")
		return app_errors.ExitConfig
	}
	tier, err := domain.ParseTier(tierRaw)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return app_errors.ExitCode(err)
	}

	fmt.Fprintln(os.Stderr, "Reading API key from stdin...")
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		fmt.Fprintf(os.Stderr, "failed to read key from stdin: %v\n", err)
		return app_errors.ExitFailure
	}
	plaintext := strings.TrimSpace(line)

	cred, err := a.deps.Store.Add(ctx, provider, tier, opts.name, plaintext)
	if err != nil {
		fmt.Fprintln(os.Stderr, app_errors.UserMessage(err))
		return app_errors.ExitCode(err)
	}

	fmt.Fprintf(a.stdout, "added %s as pending for %s/%s (id %s)\n",
		cred.Masked(), cred.Provider, cred.Tier, cred.ID)
	return app_errors.ExitOK
}

func (a *cli) runRevoke(ctx context.Context, rawID string) int {
	id, err := domain.CredentialIDFromString(rawID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return app_errors.ExitConfig
	}
	if err := a.deps.Store.Revoke(ctx, id); err != nil {
		fmt.Fprintln(os.Stderr, app_errors.UserMessage(err))
		return app_errors.ExitCode(err)
	}
	fmt.Fprintf(a.stdout, "revoked %s\n", id)
	return app_errors.ExitOK
}

func (a *cli) runReenable(ctx context.Context, rawID string) int {
	id, err := domain.CredentialIDFromString(rawID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return app_errors.ExitConfig
	}
	if err := a.deps.Store.Reenable(ctx, id); err != nil {
		fmt.Fprintln(os.Stderr, app_errors.UserMessage(err))
		return app_errors.ExitCode(err)
	}
	fmt.Fprintf(a.stdout, "re-enabled %s, back in the pending queue\n", id)
	return app_errors.ExitOK
}

func (a *cli) runSetSchedule(ctx context.Context, provider string, tiers []domain.Tier, opts options) int {
	freqRaw := strings.TrimSpace(opts.frequency)
	if freqRaw == "" {
		freqRaw = a.cfg.Rotation.DefaultFrequency
	}
	freq, err := domain.ParseFrequency(freqRaw)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return app_errors.ExitCode(err)
	}

	for _, tier := range tiers {
		sched, err := a.deps.Registry.Set(ctx, schedule.SetParams{
			Provider:           provider,
			Tier:               tier,
			Frequency:          freq,
			NotifyOnRotation:   opts.notifyTarget != "",
			NotificationTarget: opts.notifyTarget,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, app_errors.UserMessage(err))
			return app_errors.ExitCode(err)
		}
		fmt.Fprintf(a.stdout, "%s/%s: %s rotation, next due %s\n",
			sched.Provider, sched.Tier, sched.Frequency, formatTimePtr(sched.NextRotationAt))
	}
	return app_errors.ExitOK
}

func (a *cli) runDisableSchedule(ctx context.Context, provider string, tiers []domain.Tier) int {
	for _, tier := range tiers {
		if err := a.deps.Registry.Disable(ctx, provider, tier); err != nil {
			if errors.Is(err, app_errors.ErrScheduleNotFound) {
				fmt.Fprintf(a.stdout, "%s/%s: no schedule\n", provider, tier)
				continue
			}
			fmt.Fprintln(os.Stderr, app_errors.UserMessage(err))
			return app_errors.ExitCode(err)
		}
		fmt.Fprintf(a.stdout, "%s/%s: schedule disabled\n", provider, tier)
	}
	return app_errors.ExitOK
}

func (a *cli) runHistory(ctx context.Context, provider, tierRaw string, limit int) int {
	var tier domain.Tier
	if t := strings.TrimSpace(tierRaw); t != "" {
		parsed, err := domain.ParseTier(t)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return app_errors.ExitCode(err)
		}
		tier = parsed
	}

	entries, err := a.deps.Recorder.History(ctx, provider, tier, limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, app_errors.UserMessage(err))
		return app_errors.ExitCode(err)
	}

	w := tabwriter.NewWriter(a.stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "OCCURRED\tTIER\tSTATUS\tTRIGGER\tOLD\tNEW\tBY\tDETAIL\n")
	for _, e := range entries {
		detail := e.ErrorMessage
		if detail == "" {
			detail = e.Notes
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.OccurredAt.Format(time.RFC3339), e.Tier, e.Status, e.Trigger,
			e.OldCredentialMasked, e.NewCredentialMasked, e.PerformedBy, detail)
	}
	if err := w.Flush(); err != nil {
		a.logger.Error("failed to render history table", "error", err)
	}
	return app_errors.ExitOK
}

// runResolve reports which credential and model a request would use right
// now. The key itself is never printed, only its masked form.
func (a *cli) runResolve(ctx context.Context, provider, tierRaw string) int {
	var resolveOpts []client.Option
	if t := strings.TrimSpace(tierRaw); t != "" {
		tier, err := domain.ParseTier(t)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return app_errors.ExitCode(err)
		}
		resolveOpts = append(resolveOpts, client.WithTier(tier))
	}

	res, err := a.deps.Adapter.Resolve(ctx, provider, resolveOpts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, app_errors.UserMessage(err))
		return app_errors.ExitCode(err)
	}

	fmt.Fprintf(a.stdout, "provider: %s\ntier:     %s\nmodel:    %s\nsource:   %s\nkey:      %s\nreason:   %s\n",
		res.Provider, res.Tier, res.Model, res.Source, res.Masked, res.Decision.Reason)
	return app_errors.ExitOK
}

// runDaemon runs the scheduler loop until SIGINT or SIGTERM.
func (a *cli) runDaemon(ctx context.Context) int {
	runner := rotation.NewRunner(
		a.deps.Engine,
		a.deps.Repos.Schedules,
		a.cfg.Rotation.Runner.Interval,
		clock.WallClock,
		a.logger,
	)

	if err := runner.Start(ctx); err != nil {
		a.logger.Error("failed to start rotation runner", "error", err)
		return app_errors.ExitFailure
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-signalChan:
		a.logger.Info("received shutdown signal", "signal", s.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled, initiating shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := runner.Stop(shutdownCtx); err != nil {
		a.logger.Error("error stopping rotation runner", "error", err)
		return app_errors.ExitFailure
	}
	a.logger.Info("shutdown complete")
	return app_errors.ExitOK
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(time.RFC3339)
}
