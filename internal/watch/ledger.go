package watch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"launch-sniper/internal/domain"
	"launch-sniper/internal/launchpad"
	"launch-sniper/internal/metadata"
	"launch-sniper/internal/observability"
	"launch-sniper/internal/race"
	"launch-sniper/internal/solana"
)

// LedgerState is the lifecycle state of a LedgerWatcher.
type LedgerState int32

const (
	StateIdle LedgerState = iota
	StateConnecting
	StateSubscribed
	StateObserving
	StateResolvingTransaction
	StateTerminated
)

func (s LedgerState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateSubscribed:
		return "SUBSCRIBED"
	case StateObserving:
		return "OBSERVING"
	case StateResolvingTransaction:
		return "RESOLVING_TRANSACTION"
	case StateTerminated:
		return "TERMINATED"
	default:
		return fmt.Sprintf("LedgerState(%d)", int32(s))
	}
}

// LogDialer opens a logs websocket connection.
type LogDialer func(ctx context.Context) (solana.WSClient, error)

// DialLogs returns a LogDialer for a websocket endpoint.
func DialLogs(endpoint string, config *solana.WSClientConfig) LogDialer {
	return func(ctx context.Context) (solana.WSClient, error) {
		return solana.NewWSClient(ctx, endpoint, config)
	}
}

// LedgerConfig configures a LedgerWatcher.
type LedgerConfig struct {
	ProgramID         string
	MetadataProgramID string
	Commitment        string

	// ConnectAttempts is the total number of dial+subscribe attempts.
	ConnectAttempts   int
	ConnectRetryDelay time.Duration

	// FetchRetryDelay is the wait between not-found getTransaction attempts.
	FetchRetryDelay time.Duration
	// FetchMaxAttempts caps getTransaction attempts per signature; 0 means unlimited.
	FetchMaxAttempts int
	// InitialFetchDelay is waited once before the first getTransaction.
	InitialFetchDelay time.Duration

	// UnsubscribeTimeout bounds the teardown logsUnsubscribe call.
	UnsubscribeTimeout time.Duration

	// Verbose logs every examined candidate.
	Verbose bool
}

// DefaultLedgerConfig returns the default ledger watcher configuration.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		ProgramID:          launchpad.ProgramID,
		MetadataProgramID:  launchpad.MetadataProgramID,
		Commitment:         "confirmed",
		ConnectAttempts:    5,
		ConnectRetryDelay:  1 * time.Second,
		FetchRetryDelay:    500 * time.Millisecond,
		UnsubscribeTimeout: 2 * time.Second,
	}
}

// LedgerWatcher detects launches from the launch program's logs and
// resolves each candidate transaction to its metadata.
type LedgerWatcher struct {
	dial   LogDialer
	rpc    solana.RPCClient
	config LedgerConfig
	state  atomic.Int32
}

// NewLedgerWatcher creates a ledger watcher.
func NewLedgerWatcher(dial LogDialer, rpc solana.RPCClient, config LedgerConfig) *LedgerWatcher {
	return &LedgerWatcher{
		dial:   dial,
		rpc:    rpc,
		config: config,
	}
}

// Source implements race.Watcher.
func (w *LedgerWatcher) Source() domain.Source {
	return domain.SourceLedger
}

// State returns the current lifecycle state.
func (w *LedgerWatcher) State() LedgerState {
	return LedgerState(w.state.Load())
}

func (w *LedgerWatcher) setState(s LedgerState) {
	w.state.Store(int32(s))
}

// Watch implements race.Watcher.
func (w *LedgerWatcher) Watch(ctx context.Context, target domain.Target, cell *race.Cell) error {
	defer w.setState(StateTerminated)

	client, sub, err := w.connect(ctx)
	if err != nil {
		return err
	}
	defer w.teardown(ctx, client, sub.ID)

	w.setState(StateSubscribed)
	log.Printf("[ledger] Subscribed to %s logs (subscription %d)", w.config.ProgramID, sub.ID)

	w.setState(StateObserving)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case n, ok := <-sub.Notifications:
			if !ok {
				if err := client.Err(); err != nil {
					return fmt.Errorf("%w: %w", ErrConnectionLost, err)
				}
				log.Printf("[ledger] Log stream closed")
				return nil
			}

			matched, err := w.handleNotification(ctx, target, cell, n)
			if err != nil {
				return err
			}
			if matched {
				return nil
			}
		}
	}
}

// connect dials and subscribes, retrying with a constant backoff.
func (w *LedgerWatcher) connect(ctx context.Context) (solana.WSClient, *solana.Subscription, error) {
	w.setState(StateConnecting)

	var (
		client solana.WSClient
		sub    *solana.Subscription
	)

	attempts := w.config.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(w.config.ConnectRetryDelay), uint64(attempts-1)),
		ctx,
	)

	op := func() error {
		c, err := w.dial(ctx)
		if err != nil {
			return err
		}
		s, err := c.SubscribeLogs(ctx, solana.LogsFilter{
			Mentions:   []string{w.config.ProgramID},
			Commitment: w.config.Commitment,
		})
		if err != nil {
			c.Close()
			return fmt.Errorf("subscribe: %w", err)
		}
		client, sub = c, s
		return nil
	}

	notify := func(err error, next time.Duration) {
		log.Printf("[ledger] Connect failed: %v (retrying in %s)", err, next)
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return client, sub, nil
}

// teardown releases the subscription and closes the connection.
func (w *LedgerWatcher) teardown(ctx context.Context, client solana.WSClient, subID int64) {
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.config.UnsubscribeTimeout)
	defer cancel()

	if err := client.UnsubscribeLogs(uctx, subID); err != nil {
		log.Printf("[ledger] Unsubscribe %d failed: %v", subID, err)
	}
	if err := client.Close(); err != nil {
		log.Printf("[ledger] Close failed: %v", err)
	}
}

// handleNotification examines one log notification. It returns true when
// the target was found; the only error it returns is cancellation.
func (w *LedgerWatcher) handleNotification(ctx context.Context, target domain.Target, cell *race.Cell, n solana.LogNotification) (bool, error) {
	observability.RecordLogReceived()

	if n.Err != nil || n.Signature == launchpad.NullSignature || !hasLogLine(n.Logs, launchpad.CreateInstructionLog) {
		return false, nil
	}
	observability.RecordCreateLog()

	w.setState(StateResolvingTransaction)
	defer w.setState(StateObserving)

	tx, err := w.fetchTransaction(ctx, n.Signature)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		log.Printf("[ledger] Discarding %s: %v", n.Signature, err)
		return false, nil
	}

	ix, ok := tx.FindInnerInstruction(w.config.MetadataProgramID)
	if !ok {
		if w.config.Verbose {
			log.Printf("[ledger] %s: no metadata instruction", n.Signature)
		}
		return false, nil
	}

	md, err := metadata.DecodeBase58(ix.Data)
	if err != nil {
		observability.RecordMetadataDecodeError()
		log.Printf("[ledger] %s: metadata decode: %v", n.Signature, err)
		return false, nil
	}

	name := strings.TrimRight(md.Name, "\x00")
	symbol := strings.TrimRight(md.Symbol, "\x00")
	if w.config.Verbose {
		log.Printf("[ledger] Checking %s ($%s) from %s", name, symbol, n.Signature)
	}

	if !target.Matches(md.Name, md.Symbol) {
		return false, nil
	}

	mint, ok := tx.AccountKeyAt(launchpad.MintAccountIndex)
	if !ok {
		log.Printf("[ledger] %s matched but has no account at index %d", n.Signature, launchpad.MintAccountIndex)
		return false, nil
	}

	ts := time.Now().UnixMilli()
	if tx.BlockTime > 0 {
		ts = tx.BlockTime * 1000
	}

	won := cell.TrySet(domain.LaunchEvent{
		Source:         domain.SourceLedger,
		AssetID:        mint,
		ObservedName:   name,
		ObservedTicker: symbol,
		Signature:      n.Signature,
		Slot:           n.Slot,
		Timestamp:      ts,
	})
	if won {
		log.Printf("[ledger] Found %s: mint %s (slot %d)", target, mint, n.Slot)
	} else {
		log.Printf("[ledger] Found %s: mint %s, result already set", target, mint)
	}
	return true, nil
}

// fetchTransaction resolves signature, retrying while the node reports
// it as not found.
func (w *LedgerWatcher) fetchTransaction(ctx context.Context, signature string) (*solana.ParsedTransaction, error) {
	if d := w.config.InitialFetchDelay; d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(w.config.FetchRetryDelay)
	if w.config.FetchMaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(w.config.FetchMaxAttempts-1))
	}
	b = backoff.WithContext(b, ctx)

	var tx *solana.ParsedTransaction
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		t, err := w.rpc.GetParsedTransaction(ctx, signature)
		switch {
		case err == nil:
			observability.RecordTxFetch("found")
			tx = t
			return nil
		case errors.Is(err, solana.ErrTransactionNotFound):
			observability.RecordTxFetch("not_found")
			return err
		default:
			observability.RecordTxFetch("error")
			return backoff.Permanent(err)
		}
	}

	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return tx, nil
}

func hasLogLine(logs []string, line string) bool {
	for _, l := range logs {
		if l == line {
			return true
		}
	}
	return false
}
