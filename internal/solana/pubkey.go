package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	// PublicKeyLength is the size of an ed25519 public key in bytes.
	PublicKeyLength = 32
	// MaxSeedLength is the maximum length of a single PDA seed.
	MaxSeedLength = 32

	pdaMarker = "ProgramDerivedAddress"
)

// DecodePublicKey decodes a base58 public key and checks its length.
func DecodePublicKey(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPublicKey, s, err)
	}
	if len(b) != PublicKeyLength {
		return nil, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidPublicKey, s, len(b))
	}
	return b, nil
}

// CreateProgramAddress hashes seeds with programID and returns the
// resulting address if it lies off the ed25519 curve.
func CreateProgramAddress(seeds [][]byte, programID []byte) ([]byte, bool, error) {
	data := make([]byte, 0, 128)
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return nil, false, fmt.Errorf("%w: %d bytes", ErrMaxSeedLength, len(seed))
		}
		data = append(data, seed...)
	}
	data = append(data, programID...)
	data = append(data, pdaMarker...)

	hash := sha256.Sum256(data)
	if IsOnCurve(hash[:]) {
		return nil, false, nil
	}
	return hash[:], true, nil
}

// FindProgramAddress searches bumps from 255 down to 1 and returns the
// first off-curve address with its bump.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	programBytes, err := DecodePublicKey(programID)
	if err != nil {
		return "", 0, err
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump > 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, ok, err := CreateProgramAddress(withBump, programBytes)
		if err != nil {
			return "", 0, err
		}
		if ok {
			return base58.Encode(addr), uint8(bump), nil
		}
	}

	return "", 0, ErrNoViableBump
}

// IsOnCurve reports whether b is a valid compressed ed25519 point.
func IsOnCurve(b []byte) bool {
	if len(b) != PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
