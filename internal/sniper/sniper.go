// Package sniper wires the race, the pair derivation and the handoff.
package sniper

import (
	"context"
	"fmt"
	"log"

	"launch-sniper/internal/domain"
	"launch-sniper/internal/handoff"
	"launch-sniper/internal/launchpad"
)

// Racer runs a race for target.
type Racer interface {
	Race(ctx context.Context, target domain.Target) (domain.LaunchEvent, error)
}

// Result is the outcome of a successful snipe.
type Result struct {
	Event domain.LaunchEvent
	Pair  launchpad.DependentAddress
}

// Sniper finds a launch and hands it off.
type Sniper struct {
	racer   Racer
	handoff handoff.Handoff
}

// New creates a Sniper. handoff may be nil.
func New(racer Racer, h handoff.Handoff) *Sniper {
	return &Sniper{racer: racer, handoff: h}
}

// Run races for target, derives the bonding curve of the winner and
// delivers both to the handoff.
func (s *Sniper) Run(ctx context.Context, target domain.Target) (*Result, error) {
	ev, err := s.racer.Race(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("race: %w", err)
	}

	pair, err := launchpad.DeriveBondingCurve(ev.AssetID)
	if err != nil {
		return nil, fmt.Errorf("derive pair for %s: %w", ev.AssetID, err)
	}
	log.Printf("[sniper] %s mint %s pair %s (via %s)", target, ev.AssetID, pair, ev.Source)

	res := &Result{Event: ev, Pair: pair}

	if s.handoff != nil {
		if err := s.handoff.Deliver(ctx, ev.AssetID, pair.String()); err != nil {
			return res, fmt.Errorf("handoff: %w", err)
		}
	}
	return res, nil
}
