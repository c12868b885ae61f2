package watch

import (
	"context"
	"sync"
	"time"

	"github.com/mr-tron/base58"

	"launch-sniper/internal/launchpad"
	"launch-sniper/internal/metadata"
	"launch-sniper/internal/solana"
)

// fakeWS is an in-memory solana.WSClient.
type fakeWS struct {
	mu            sync.Mutex
	notifications chan solana.LogNotification
	subID         int64
	subscribeErr  error
	filters       []solana.LogsFilter
	unsubscribed  []int64
	closed        bool
	err           error
}

func newFakeWS(buffer int) *fakeWS {
	return &fakeWS{notifications: make(chan solana.LogNotification, buffer), subID: 42}
}

func (f *fakeWS) SubscribeLogs(_ context.Context, filter solana.LogsFilter) (*solana.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	return &solana.Subscription{ID: f.subID, Filter: filter, Notifications: f.notifications}, nil
}

func (f *fakeWS) UnsubscribeLogs(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, id)
	return nil
}

func (f *fakeWS) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeWS) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// fail ends the stream abnormally.
func (f *fakeWS) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	close(f.notifications)
}

func (f *fakeWS) snapshot() (unsubscribed []int64, closed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.unsubscribed...), f.closed
}

func (f *fakeWS) dialer() LogDialer {
	return func(context.Context) (solana.WSClient, error) { return f, nil }
}

// createNotification is a qualifying log notification for signature.
func createNotification(signature string, slot int64) solana.LogNotification {
	return solana.LogNotification{
		Signature: signature,
		Slot:      slot,
		Logs: []string{
			"Program " + launchpad.ProgramID + " invoke [1]",
			launchpad.CreateInstructionLog,
		},
	}
}

// createTx is a resolved create transaction carrying the given metadata.
func createTx(signature, mint string, md metadata.Metadata) *solana.ParsedTransaction {
	return &solana.ParsedTransaction{
		Slot:      100,
		Signature: signature,
		BlockTime: 1717000000,
		AccountKeys: []solana.AccountKey{
			{Pubkey: "Creator1111111111111111111111111111111111", Signer: true, Writable: true},
			{Pubkey: mint, Signer: true, Writable: true},
		},
		InnerInstructions: []solana.InnerInstructionSet{{
			Index: 0,
			Instructions: []solana.Instruction{
				{ProgramID: "11111111111111111111111111111111", Program: "system", Parsed: []byte(`{"type":"createAccount"}`)},
				{ProgramID: launchpad.MetadataProgramID, Accounts: []string{"a"}, Data: base58.Encode(metadata.Encode(md))},
			},
		}},
	}
}

func testLedgerConfig() LedgerConfig {
	cfg := DefaultLedgerConfig()
	cfg.ConnectRetryDelay = time.Millisecond
	cfg.FetchRetryDelay = time.Millisecond
	cfg.UnsubscribeTimeout = 100 * time.Millisecond
	return cfg
}
