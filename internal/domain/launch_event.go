package domain

// LaunchEvent is a confirmed observation of the target asset being created.
// Produced by a watcher, consumed only by the race coordinator.
type LaunchEvent struct {
	Source         Source
	AssetID        string // mint address
	ObservedName   string
	ObservedTicker string
	Signature      string // creating transaction (ledger only)
	Slot           int64  // ledger only
	Timestamp      int64  // unix ms; block time for ledger, created_timestamp for feed
}
