package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/confgraph/confgraph/graph"
	"github.com/confgraph/confgraph/resolver"
)

// DefaultConcurrency is the default maximum number of concurrent
// resolution attempts.
//
// In practice, resolution is likely bound by the i/o the evaluation
// functions perform.
var DefaultConcurrency = 10

// A Scheduler resolves a configuration graph until convergence.
//
// See package doc for details.
type Scheduler struct {
	Graph *graph.Graph
	Cache resolver.Cache

	// Concurrency sets the maximum allowed concurrency to use.
	// If not set, DefaultConcurrency is used.
	Concurrency uint

	// Logger logs resolution updates. If not set, logs are discarded.
	Logger *zap.Logger

	// Backoff algorithm used for pacing passes while nodes wait on
	// dependencies. If not set, exponential backoff is used.
	Backoff func() backoff.BackOff

	// Timeout bounds a single resolution attempt. Zero means no
	// deadline. An expired attempt surfaces as a non-retryable
	// resolution error. The deadline is delivered through the attempt
	// context; an evaluation function that ignores its context is not
	// bounded by it.
	Timeout time.Duration
}

// A ConvergenceError reports the nodes that remained unresolved when a
// full pass made no progress, typically indicating a dependency cycle
// or an externally blocked dependency.
type ConvergenceError struct {
	// Unresolved lists the full paths of the nodes that still fail
	// retryably.
	Unresolved []string

	// Cycles lists the dependency cycles found among the unresolved
	// nodes. Empty when the stall has another cause.
	Cycles [][]string
}

func (e *ConvergenceError) Error() string {
	msg := fmt.Sprintf("resolution stalled with %d unresolved nodes: %s",
		len(e.Unresolved), strings.Join(e.Unresolved, ", "))
	for _, c := range e.Cycles {
		msg += fmt.Sprintf("; cycle %s", strings.Join(c, " -> "))
	}
	return msg
}

// Run resolves every node in the graph, re-attempting nodes that wait
// on dependencies, until all nodes settle or a pass makes no progress.
//
// The returned error aggregates all terminal resolution failures, and
// includes a ConvergenceError if the graph did not converge.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("run", ksuid.New().String()))

	algo := s.Backoff
	if algo == nil {
		algo = func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		}
	}
	bo := algo()

	var pending []*graph.Node
	for _, n := range s.Graph.Nodes() {
		if !n.Resolver().IsFullyResolved() {
			pending = append(pending, n)
		}
	}

	logger.Info("Resolve", zap.Int("nodes", len(pending)))

	var terminal error
	pass := 0
	for len(pending) > 0 {
		pass++
		resolved, retry, failed, err := s.pass(ctx, logger.With(zap.Int("pass", pass)), pending)
		if err != nil {
			return err
		}
		for _, re := range failed {
			terminal = multierr.Append(terminal, re)
		}

		if len(retry) == 0 {
			pending = nil
			break
		}
		if len(resolved) == 0 && len(failed) == 0 {
			// Full pass without progress; remaining nodes cannot settle.
			pending = retry
			break
		}
		pending = retry

		bo.Reset()
		if err := s.wait(ctx, bo); err != nil {
			return err
		}
	}

	if len(pending) > 0 {
		paths := make([]string, len(pending))
		for i, n := range pending {
			paths[i] = n.FullPath()
		}
		terminal = multierr.Append(terminal, &ConvergenceError{
			Unresolved: paths,
			Cycles:     findCycles(pending),
		})
	}

	if terminal != nil {
		return terminal
	}

	logger.Info("Done", zap.Int("passes", pass))
	return nil
}

// pass attempts resolution of all given nodes concurrently and
// classifies the outcomes.
func (s *Scheduler) pass(ctx context.Context, logger *zap.Logger, nodes []*graph.Node) (resolved, retry []*graph.Node, terminal []*resolver.ResolutionError, err error) {
	c := s.Concurrency
	if c == 0 {
		c = uint(DefaultConcurrency)
	}
	sem := semaphore.NewWeighted(int64(c))

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for _, n := range nodes {
		n := n
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return errors.Wrap(err, "acquire semaphore")
			}
			defer sem.Release(1)

			actx := gctx
			if s.Timeout > 0 {
				var cancel context.CancelFunc
				actx, cancel = context.WithTimeout(gctx, s.Timeout)
				defer cancel()
			}

			rc := resolver.NewResolverContext(n.Resolver(), s.Cache)
			_ = n.Resolver().Resolve(actx, rc)

			mu.Lock()
			defer mu.Unlock()
			if n.Resolver().IsFullyResolved() {
				resolved = append(resolved, n)
				logger.Debug("Resolved",
					zap.String("node", n.FullPath()),
					zap.Bool("cache", n.Resolver().IsUsingCache()),
				)
				return nil
			}
			re := n.Resolver().DeepErr()
			if re == nil {
				re = resolver.NewResolutionError(n.Resolver().FullPath(),
					errors.New("resolver did not produce a value"))
			}
			if re.Retryable {
				retry = append(retry, n)
				logger.Debug("Deferred",
					zap.String("node", n.FullPath()),
					zap.String("dependency", re.Target),
				)
				return nil
			}
			terminal = append(terminal, re)
			logger.Debug("Failed", zap.String("node", n.FullPath()), zap.Error(re))
			return nil
		})
	}

	if werr := g.Wait(); werr != nil {
		return nil, nil, nil, werr
	}
	return resolved, retry, terminal, nil
}

// wait sleeps for the next backoff interval, or returns early when the
// context is cancelled.
func (s *Scheduler) wait(ctx context.Context, bo backoff.BackOff) error {
	d := bo.NextBackOff()
	if d == backoff.Stop {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
