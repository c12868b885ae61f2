package solana

import "context"

// RPCClient defines the Solana RPC HTTP calls used by the watchers.
type RPCClient interface {
	// GetParsedTransaction retrieves a confirmed transaction by signature.
	// Returns ErrTransactionNotFound while the transaction is not yet indexed.
	GetParsedTransaction(ctx context.Context, signature string) (*ParsedTransaction, error)
}
