package stub

import (
	"context"
	"sync"

	"launch-sniper/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
// Transactions can be made to report not-found a number of times
// before becoming visible, to mimic indexing lag.
type RPCClient struct {
	mu           sync.Mutex
	transactions map[string]*solana.ParsedTransaction
	notFound     map[string]int
	errs         map[string]error
	calls        map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		transactions: make(map[string]*solana.ParsedTransaction),
		notFound:     make(map[string]int),
		errs:         make(map[string]error),
		calls:        make(map[string]int),
	}
}

// GetParsedTransaction returns the stored transaction for signature.
func (c *RPCClient) GetParsedTransaction(ctx context.Context, signature string) (*solana.ParsedTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls[signature]++

	if err, ok := c.errs[signature]; ok {
		return nil, err
	}
	if c.notFound[signature] > 0 {
		c.notFound[signature]--
		return nil, solana.ErrTransactionNotFound
	}

	tx, ok := c.transactions[signature]
	if !ok {
		return nil, solana.ErrTransactionNotFound
	}
	return tx, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.ParsedTransaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[tx.Signature] = tx
}

// SetNotFound makes the next n fetches of signature report not-found.
func (c *RPCClient) SetNotFound(signature string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notFound[signature] = n
}

// SetError makes every fetch of signature fail with err.
func (c *RPCClient) SetError(signature string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[signature] = err
}

// Calls returns how many times signature was fetched.
func (c *RPCClient) Calls(signature string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[signature]
}
