package solana

import "context"

// WSClient defines the Solana WebSocket logs subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to program logs matching the filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (*Subscription, error)

	// UnsubscribeLogs cancels a subscription. The subscription receives no
	// further notifications once this returns.
	UnsubscribeLogs(ctx context.Context, subscriptionID int64) error

	// Err returns the terminal connection error once notifications stop.
	// Nil means the server closed the connection normally or Close was called.
	Err() error

	// Close closes the WebSocket connection.
	Close() error
}

// LogsFilter defines subscription filter for logs.
type LogsFilter struct {
	// Mentions filters logs that mention any of these program IDs.
	Mentions []string
	// Commitment is the requested commitment level; defaults to confirmed.
	Commitment string
}

// Subscription is a live logsSubscribe registration.
type Subscription struct {
	ID     int64
	Filter LogsFilter

	// Notifications is closed when the connection ends.
	Notifications <-chan LogNotification
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
