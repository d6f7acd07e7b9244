package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aquasecurity/cloudaudit/pkg/apis/aquasecurity/v1alpha1"
	"github.com/aquasecurity/cloudaudit/pkg/cache"
	"github.com/aquasecurity/cloudaudit/pkg/config"
	"github.com/aquasecurity/cloudaudit/pkg/fanout"
	"github.com/aquasecurity/cloudaudit/pkg/plugin"
	"github.com/aquasecurity/cloudaudit/pkg/result"
	"github.com/aquasecurity/cloudaudit/pkg/runner"
	"github.com/go-logr/logr"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Result is the outcome of evaluating one check against one snapshot.
type Result struct {
	ID       string
	Findings []v1alpha1.Finding
	// Source lists the snapshot keys the check consulted, ordered.
	Source []cache.Key
}

// Driver evaluates single checks. It holds no per-run state and may be used
// for any number of concurrent runs.
type Driver struct {
	registry    plugin.Registry
	log         logr.Logger
	concurrency int
	timeout     time.Duration
}

type Option func(*Driver)

func WithLogger(log logr.Logger) Option {
	return func(d *Driver) {
		d.log = log
	}
}

// WithConcurrency bounds the branches of every fan-out layer. It overrides
// Settings.Concurrency.
func WithConcurrency(n int) Option {
	return func(d *Driver) {
		d.concurrency = n
	}
}

// WithTimeout limits the time a single check may run. It overrides
// Settings.Timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Driver) {
		d.timeout = timeout
	}
}

// NewDriver constructs a Driver validating check metadata against registry.
func NewDriver(registry plugin.Registry, opts ...Option) *Driver {
	d := &Driver{
		registry: registry,
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) concurrencyFor(settings config.Settings) int {
	switch {
	case d.concurrency > 0:
		return d.concurrency
	case settings.Concurrency > 0:
		return settings.Concurrency
	}
	return config.DefaultConcurrency
}

func (d *Driver) timeoutFor(settings config.Settings) time.Duration {
	if d.timeout > 0 {
		return d.timeout
	}
	return settings.Timeout
}

// Run evaluates p exactly once against snapshot and returns after every
// branch the check started has finished.
//
// A check whose metadata is invalid is not run. A check running longer than
// the configured timeout is cancelled and reported as one UNKNOWN finding.
// Failures of the check itself, such as panics, failed branches or findings
// with an invalid severity, are returned as an error together with the
// findings collected so far.
func (d *Driver) Run(ctx context.Context, p plugin.Plugin, snapshot *cache.Snapshot, settings config.Settings) (Result, error) {
	md := p.Metadata()
	if err := md.Validate(d.registry); err != nil {
		return Result{ID: md.ID}, err
	}

	log := d.log.WithValues("check", md.ID)
	accessor := cache.NewAccessor(snapshot)
	sink := result.NewSink()
	env := plugin.Env{
		Cache:    accessor,
		Settings: settings,
		Results:  sink,
		Fanout:   fanout.New(d.concurrencyFor(settings), fanout.WithLogger(log)),
	}

	timeout := d.timeoutFor(settings)
	task := runner.RunnableFunc(func(ctx context.Context) error {
		return p.Run(ctx, env)
	})

	log.V(3).Info("Running check", "timeout", timeout)
	started := time.Now()
	err := runner.NewWithTimeout(timeout).Run(ctx, task)
	log.V(3).Info("Check finished", "duration", time.Since(started), "findings", sink.Len())

	res := Result{
		ID:     md.ID,
		Source: accessor.Source().Keys(),
	}
	if errors.Is(err, runner.ErrTimeout) {
		res.Findings = []v1alpha1.Finding{{
			Severity: v1alpha1.SeverityUnknown,
			Message:  fmt.Sprintf("Check timed out after %s", timeout),
		}}
		return res, nil
	}
	res.Findings = sink.Findings()

	var errs []error
	if err != nil {
		errs = append(errs, fmt.Errorf("running check %s: %w", md.ID, err))
	}
	if err := sink.Err(); err != nil {
		errs = append(errs, fmt.Errorf("check %s: %w", md.ID, err))
	}
	return res, utilerrors.NewAggregate(errs)
}
