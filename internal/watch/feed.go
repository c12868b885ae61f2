package watch

import (
	"context"
	"fmt"
	"log"
	"time"

	"launch-sniper/internal/domain"
	"launch-sniper/internal/feed"
	"launch-sniper/internal/observability"
	"launch-sniper/internal/race"
)

// FeedStream is a connected feed session.
type FeedStream interface {
	Events() <-chan feed.Event
	Err() error
	Close() error
}

// FeedDialer opens a feed session.
type FeedDialer func(ctx context.Context) (FeedStream, error)

// DialFeed returns a FeedDialer for endpoint.
func DialFeed(endpoint string, params feed.Params, config *feed.Config) FeedDialer {
	return func(ctx context.Context) (FeedStream, error) {
		return feed.Dial(ctx, endpoint, params, config)
	}
}

// FeedWatcher detects launches from the frontend's newCoinCreated events.
type FeedWatcher struct {
	dial    FeedDialer
	verbose bool
}

// NewFeedWatcher creates a feed watcher.
func NewFeedWatcher(dial FeedDialer, verbose bool) *FeedWatcher {
	return &FeedWatcher{dial: dial, verbose: verbose}
}

// Source implements race.Watcher.
func (w *FeedWatcher) Source() domain.Source {
	return domain.SourceFeed
}

// Watch implements race.Watcher. The feed is not redialled.
func (w *FeedWatcher) Watch(ctx context.Context, target domain.Target, cell *race.Cell) error {
	stream, err := w.dial(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}
	defer stream.Close()

	log.Printf("[feed] Connected, waiting for %s", feed.EventNewCoinCreated)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-stream.Events():
			if !ok {
				if err := stream.Err(); err != nil {
					return fmt.Errorf("%w: %w", ErrConnectionLost, err)
				}
				log.Printf("[feed] Disconnected by server")
				return nil
			}

			observability.RecordFeedEvent(ev.Name)
			if ev.Name != feed.EventNewCoinCreated {
				continue
			}

			coin, err := feed.DecodeCoinCreated(ev)
			if err != nil {
				log.Printf("[feed] Skipping event: %v", err)
				continue
			}

			ticker := coin.Ticker()
			if w.verbose {
				log.Printf("[feed] Checking %s ($%s)", coin.Name, ticker)
			}
			if !target.Matches(coin.Name, ticker) {
				continue
			}

			ts := coin.CreatedTimestamp
			if ts == 0 {
				ts = time.Now().UnixMilli()
			}

			won := cell.TrySet(domain.LaunchEvent{
				Source:         domain.SourceFeed,
				AssetID:        coin.Mint,
				ObservedName:   coin.Name,
				ObservedTicker: ticker,
				Timestamp:      ts,
			})
			if won {
				log.Printf("[feed] Found %s: mint %s", target, coin.Mint)
			} else {
				log.Printf("[feed] Found %s: mint %s, result already set", target, coin.Mint)
			}
			return nil
		}
	}
}
