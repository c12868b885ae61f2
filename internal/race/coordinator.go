// Package race runs launch watchers concurrently and returns the first match.
package race

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"launch-sniper/internal/domain"
	"launch-sniper/internal/observability"
)

// DefaultGracePeriod bounds how long losing watchers get to shut down.
const DefaultGracePeriod = 5 * time.Second

// Watcher observes one channel for a launch matching target.
//
// Watch publishes a match with cell.TrySet and returns nil. It returns nil
// when its channel is exhausted and an error when it cannot continue.
// It must return promptly once ctx is cancelled.
type Watcher interface {
	Source() domain.Source
	Watch(ctx context.Context, target domain.Target, cell *Cell) error
}

// Coordinator races watchers against each other.
type Coordinator struct {
	watchers    []Watcher
	gracePeriod time.Duration
}

// NewCoordinator creates a coordinator over watchers.
func NewCoordinator(watchers ...Watcher) *Coordinator {
	return &Coordinator{
		watchers:    watchers,
		gracePeriod: DefaultGracePeriod,
	}
}

// WithGracePeriod sets the shutdown grace period for losing watchers.
func (c *Coordinator) WithGracePeriod(d time.Duration) *Coordinator {
	c.gracePeriod = d
	return c
}

type outcome struct {
	source domain.Source
	err    error
}

// Race starts every watcher and blocks until one matches, all finish,
// or ctx ends.
func (c *Coordinator) Race(ctx context.Context, target domain.Target) (domain.LaunchEvent, error) {
	if len(c.watchers) == 0 {
		return domain.LaunchEvent{}, ErrNoWatchers
	}

	raceID := newRaceID()
	start := time.Now()
	log.Printf("[race] %s: watching for %s with %d watchers", raceID, target, len(c.watchers))

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cell := NewCell()
	outcomes := make(chan outcome, len(c.watchers))

	for _, w := range c.watchers {
		go func(w Watcher) {
			err := w.Watch(watchCtx, target, cell)
			outcomes <- outcome{source: w.Source(), err: err}
		}(w)
	}

	var errs []error
	pending := len(c.watchers)

	for pending > 0 {
		select {
		case <-cell.Done():
			cancel()
			ev, _ := cell.Load()
			log.Printf("[race] %s: %s won with %s (%s)", raceID, ev.Source, ev.AssetID, time.Since(start))
			observability.RecordWinner(ev.Source.String())
			observability.RecordRace("match", time.Since(start).Seconds())
			c.awaitShutdown(raceID, outcomes, pending)
			return ev, nil

		case o := <-outcomes:
			pending--
			if o.err != nil {
				log.Printf("[race] %s: %s watcher failed: %v", raceID, o.source, o.err)
				observability.RecordWatcherError(o.source.String())
				errs = append(errs, fmt.Errorf("%s: %w", o.source, o.err))
			} else {
				log.Printf("[race] %s: %s watcher exhausted", raceID, o.source)
			}

		case <-ctx.Done():
			cancel()
			log.Printf("[race] %s: cancelled: %v", raceID, ctx.Err())
			observability.RecordRace("cancelled", time.Since(start).Seconds())
			c.awaitShutdown(raceID, outcomes, pending)
			return domain.LaunchEvent{}, ctx.Err()
		}
	}

	// A watcher may publish and return before its Done signal is observed.
	if ev, ok := cell.Load(); ok {
		observability.RecordWinner(ev.Source.String())
		observability.RecordRace("match", time.Since(start).Seconds())
		return ev, nil
	}

	if err := ctx.Err(); err != nil {
		observability.RecordRace("cancelled", time.Since(start).Seconds())
		return domain.LaunchEvent{}, err
	}

	if len(errs) == len(c.watchers) {
		observability.RecordRace("failed", time.Since(start).Seconds())
		return domain.LaunchEvent{}, errors.Join(append([]error{ErrBothFailed}, errs...)...)
	}

	observability.RecordRace("no_match", time.Since(start).Seconds())
	return domain.LaunchEvent{}, errors.Join(append([]error{ErrNoMatch}, errs...)...)
}

// awaitShutdown waits up to the grace period for pending watchers.
func (c *Coordinator) awaitShutdown(raceID string, outcomes <-chan outcome, pending int) {
	timer := time.NewTimer(c.gracePeriod)
	defer timer.Stop()

	for pending > 0 {
		select {
		case o := <-outcomes:
			pending--
			if o.err != nil && !errors.Is(o.err, context.Canceled) {
				log.Printf("[race] %s: %s watcher stopped with error: %v", raceID, o.source, o.err)
			}
		case <-timer.C:
			log.Printf("[race] %s: abandoning %d watchers after %s", raceID, pending, c.gracePeriod)
			return
		}
	}
}

func newRaceID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
