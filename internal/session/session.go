package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"polarsync/internal/backend"
	"polarsync/internal/backend/remote"
	"polarsync/internal/backend/sqlstore"
	"polarsync/internal/config"
	"polarsync/internal/lookup"
	"polarsync/internal/reconcile"
	"polarsync/internal/retry"
	"polarsync/internal/runner"
	"polarsync/internal/selection"
	"polarsync/internal/testid"
	"polarsync/pkg/logging"

	"github.com/google/uuid"
)

// Session is the per-run state shared by selection and reconciliation.
type Session struct {
	// ID identifies this invocation in logs.
	ID string

	cfg        config.Config
	querier    backend.Querier
	run        *backend.Run
	cache      *lookup.Cache
	engine     *selection.Engine
	reconciler *reconcile.Reconciler

	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

var _ runner.Reporter = (*Session)(nil)

type options struct {
	lookupPolicy  retry.Policy
	writePolicy   retry.Policy
	hooks         runner.Hooks
	clientVersion string
	now           func() time.Time
}

// Option configures Open.
type Option func(*options)

// WithRetryPolicies overrides the lookup and write retry policies.
func WithRetryPolicies(lookupPolicy, writePolicy retry.Policy) Option {
	return func(o *options) {
		o.lookupPolicy = lookupPolicy
		o.writePolicy = writePolicy
	}
}

// WithHooks sets the collection hooks notified of deselected items.
func WithHooks(h runner.Hooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

// WithClientVersion sets the version reported to the query service.
func WithClientVersion(v string) Option {
	return func(o *options) {
		o.clientVersion = v
	}
}

// WithClock stamps recorded execution times.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Open connects to the configured backend and prepares selection and
// reconciliation. Configuration problems are returned as
// config.ConfigurationError before any connection is made. Resources
// acquired before a failure are released.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (_ *Session, err error) {
	o := options{
		lookupPolicy: retry.Lookup,
		writePolicy:  retry.Write,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Project == "" || cfg.Run == "" {
		return nil, config.NewConfigurationErrorWithDetails("", "", config.ErrorTypeValidation,
			"project and run names are required", "",
			[]string{"Set project and run in polarsync.yaml or pass --project and --run"})
	}
	policy, err := recordPolicy(cfg.Record, o.now)
	if err != nil {
		return nil, err
	}

	s := &Session{ID: uuid.NewString(), cfg: cfg}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	var writer reconcile.Writer
	switch cfg.Backend {
	case config.BackendRemote:
		writer, err = s.openRemote(ctx, o)
	case config.BackendLocal:
		writer, err = s.openLocal(ctx)
	default:
		err = config.NewConfigurationError("", "", config.ErrorTypeValidation,
			fmt.Sprintf("unknown backend %q", cfg.Backend))
	}
	if err != nil {
		return nil, err
	}

	s.cache = lookup.New(s.querier, lookup.WithPolicy(o.lookupPolicy))

	selOpts := selection.Options{
		Normalizer:     testid.Normalizer{BaseNamespace: cfg.Selection.BaseNamespace},
		Level:          cfg.Selection.BreadthLevel,
		AssigneeScoped: cfg.AssigneeScoped(),
		Hooks:          o.hooks,
	}
	if s.run != nil {
		selOpts.Run = s.run
		selOpts.RequireRunMembership = cfg.RunMembershipRequired()
		selOpts.SkipExecuted = cfg.Selection.SkipAlreadyExecuted
	} else if cfg.Selection.RequireRunMembership != nil && *cfg.Selection.RequireRunMembership {
		logging.Warn("Session", "require_run_membership has no effect without a test run")
	}
	s.engine = selection.NewEngine(s.cache, selOpts)

	s.reconciler = reconcile.New(policy, s.engine, writer, reconcile.WithRetryPolicy(o.writePolicy))

	logging.Info("Session", "Session %s opened for %s/%s (%s backend)", s.ID, cfg.Project, cfg.Run, cfg.Backend)
	return s, nil
}

func (s *Session) openRemote(ctx context.Context, o options) (reconcile.Writer, error) {
	cfg := s.cfg
	c, err := remote.Dial(ctx, remote.Config{
		Endpoint: cfg.Remote.Endpoint,
		Token:    cfg.Remote.BearerToken(),
		Timeout:  cfg.Remote.Timeout,
		Query: remote.QueryOptions{
			Project:        cfg.Project,
			Run:            cfg.Run,
			Assignee:       cfg.Selection.Assignee,
			Importance:     cfg.Selection.Importance,
			CollectBlocked: cfg.Selection.CollectBlocked,
			CollectFailed:  cfg.Selection.CollectFailed,
		},
		ClientVersion: o.clientVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Remote.Endpoint, err)
	}
	s.closers = append(s.closers, c.Close)
	s.querier = c

	err = o.lookupPolicy.Do(ctx, func(ctx context.Context, _ int) error {
		run, err := c.FetchRun(ctx, cfg.Project, cfg.Run)
		if err != nil {
			return err
		}
		s.run = run
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch test run %s: %w", cfg.Run, err)
	}
	logging.Debug("Session", "Test run %s has %d records", cfg.Run, len(s.run.Records))

	return reconcile.NewRemoteWriter(c, cfg.Project, cfg.Run, s.run), nil
}

func (s *Session) openLocal(ctx context.Context) (reconcile.Writer, error) {
	store, err := sqlstore.Open(ctx, s.cfg.Local.Path, sqlstore.Options{
		SkipExecuted: s.cfg.Selection.SkipAlreadyExecuted,
	})
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, store.Close)
	s.querier = store
	return reconcile.NewLocalWriter(store), nil
}

func recordPolicy(rc config.RecordConfig, now func() time.Time) (reconcile.Policy, error) {
	blockers, err := reconcile.CompilePatterns(rc.BlockerPatterns)
	if err != nil {
		return reconcile.Policy{}, config.NewConfigurationError("", "", config.ErrorTypeValidation,
			fmt.Sprintf("record.blocker_patterns: %v", err))
	}
	markers, err := reconcile.CompilePatterns(rc.SkipReasonMarkers)
	if err != nil {
		return reconcile.Policy{}, config.NewConfigurationError("", "", config.ErrorTypeValidation,
			fmt.Sprintf("record.skip_reason_markers: %v", err))
	}
	return reconcile.Policy{
		RecordNone:    rc.None,
		RecordSkipped: rc.Skipped,
		RecordAll:     rc.All,
		Blockers:      blockers,
		SkipReasons:   markers,
		Now:           now,
	}, nil
}

// Run returns the active test run snapshot, nil for the local backend.
func (s *Session) Run() *backend.Run {
	return s.run
}

// Select resolves the discovered items and returns the selection.
func (s *Session) Select(ctx context.Context, items []runner.Item) (selection.Result, error) {
	return s.engine.SelectAndFilter(ctx, items)
}

// Report records one phase report. It implements runner.Reporter.
func (s *Session) Report(ctx context.Context, item runner.Item, rep runner.Report) {
	s.reconciler.Report(ctx, item, rep)
}

// Metrics returns the reconciliation counters.
func (s *Session) Metrics() reconcile.MetricsSummary {
	return s.reconciler.Metrics().Summary()
}

// CacheStats returns the lookup cache counters.
func (s *Session) CacheStats() lookup.Stats {
	return s.cache.Stats()
}

// Close releases every backend resource. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		for i := len(s.closers) - 1; i >= 0; i-- {
			if err := s.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		s.closeErr = errors.Join(errs...)
		if s.closeErr != nil {
			logging.Warn("Session", "Session %s closed with errors: %v", s.ID, s.closeErr)
		} else {
			logging.Debug("Session", "Session %s closed", s.ID)
		}
	})
	return s.closeErr
}
