// Package fanout runs independent branches of a check evaluation
// concurrently and joins them before returning.
//
// Every call to Each is one fan-out layer with its own concurrency bound, so
// layers can be nested (regions, then resources, then sub-resources) without
// a branch of an outer layer waiting on a slot it holds itself.
package fanout

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// ErrBranchPanic wraps the value recovered from a panicking branch.
var ErrBranchPanic = errors.New("branch panicked")

// Coordinator holds the settings shared by all fan-out layers of one
// evaluation. A nil *Coordinator runs branches without a bound.
type Coordinator struct {
	limit int
	log   logr.Logger
}

type Option func(*Coordinator)

func WithLogger(log logr.Logger) Option {
	return func(c *Coordinator) {
		c.log = log
	}
}

// New constructs a Coordinator running at most limit branches of a layer at
// the same time. A limit of zero or less means no bound.
func New(limit int, opts ...Option) *Coordinator {
	c := &Coordinator{
		limit: limit,
		log:   logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Limit returns the per-layer concurrency bound, zero if unbounded.
func (c *Coordinator) Limit() int {
	if c == nil || c.limit < 0 {
		return 0
	}
	return c.limit
}

func (c *Coordinator) logger() logr.Logger {
	if c == nil {
		return logr.Discard()
	}
	return c.log
}

// Each calls fn once for every item and returns after all calls have
// returned. A branch that returns an error or panics does not stop its
// siblings; all failures are returned together as an aggregate. Branches
// that have not started when ctx is done are skipped and reported with the
// context error.
func Each[T any](ctx context.Context, c *Coordinator, items []T, fn func(ctx context.Context, item T) error) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	if limit := c.Limit(); limit > 0 {
		g.SetLimit(limit)
	}
	log := c.logger()

	record := func(index int, err error) {
		log.V(4).Info("Branch failed", "branch", index, "error", err.Error())
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, fmt.Errorf("branch %d: %w", index, err))
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			record(i, err)
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				record(i, err)
				return nil
			}
			if err := invoke(ctx, item, fn); err != nil {
				record(i, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return utilerrors.NewAggregate(errs)
}

func invoke[T any](ctx context.Context, item T, fn func(ctx context.Context, item T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrBranchPanic, r)
		}
	}()
	return fn(ctx, item)
}

// Keys returns the keys of m in ascending order, used to iterate resource
// maps deterministically.
func Keys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}
