package solana

import "errors"

var (
	// ErrTransactionNotFound is returned when getTransaction yields a null result.
	// Indexing lags log emission, so callers treat it as transient.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrClientClosed is returned for requests on a closed websocket client.
	ErrClientClosed = errors.New("client closed")

	// ErrInvalidPublicKey is returned for strings that are not 32-byte base58 keys.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrNoViableBump is returned when no bump seed yields an off-curve address.
	ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

	// ErrMaxSeedLength is returned when a PDA seed is longer than MaxSeedLength.
	ErrMaxSeedLength = errors.New("max seed length exceeded")
)
