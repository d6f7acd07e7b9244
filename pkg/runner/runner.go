package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/klog/v2"
)

// ErrTimeout is returned when Runner's Run method fails due to a timeout event.
var ErrTimeout = errors.New("runner received timeout")

// ErrPanic wraps the value recovered from a panicking task.
var ErrPanic = errors.New("task panicked")

// Runnable is the interface that wraps the basic Run method.
//
// Run should be implemented by any task intended to be executed by the Runner.
type Runnable interface {
	Run(ctx context.Context) error
}

// The RunnableFunc type is an adapter to allow the use of ordinary functions as Runnable tasks.
type RunnableFunc func(ctx context.Context) error

func (f RunnableFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Runner executes submitted Runnable tasks.
//
// Run returns only after the task returned, also on timeout: the context
// passed to the task is cancelled and the runner waits for it to drain, so
// nothing the task started is still running when Run returns.
type Runner interface {
	Run(ctx context.Context, task Runnable) error
}

// New constructs a new ready-to-use Runner that waits for the task forever.
func New() Runner {
	return &runner{}
}

// NewWithTimeout constructs a new ready-to-use Runner with the specified
// timeout. A non-positive duration means no timeout.
func NewWithTimeout(d time.Duration) Runner {
	return &runner{timeout: d}
}

type runner struct {
	timeout time.Duration
}

func (r *runner) Run(ctx context.Context, task Runnable) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	complete := make(chan error, 1)
	go func() {
		complete <- invoke(ctx, task)
	}()

	if r.timeout <= 0 {
		klog.V(3).Info("Running task and waiting forever")
		err := <-complete
		klog.V(3).Infof("Stopping runner on task completion with error: %v", err)
		return err
	}

	klog.V(3).Infof("Running task with timeout: %v", r.timeout)
	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-complete:
		klog.V(3).Infof("Stopping runner on task completion with error: %v", err)
		return err
	case <-timer.C:
		klog.V(3).Info("Stopping runner on timeout")
		cancel()
		err := <-complete
		klog.V(3).Infof("Task drained after timeout with error: %v", err)
		return ErrTimeout
	}
}

func invoke(ctx context.Context, task Runnable) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return task.Run(ctx)
}
