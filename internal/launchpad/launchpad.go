// Package launchpad holds the pump.fun program constants and the
// derivation of addresses that depend on a launched mint.
package launchpad

import (
	"errors"
	"fmt"

	"launch-sniper/internal/solana"
)

const (
	// ProgramID is the launch program whose logs announce new tokens.
	ProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

	// MetadataProgramID is the Metaplex token metadata program.
	MetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

	// CreateInstructionLog is the log line emitted by a create instruction.
	CreateInstructionLog = "Program log: Instruction: Create"

	// NullSignature is reported by the node for simulated or failed sends.
	NullSignature = "1111111111111111111111111111111111111111111111111111111111111111"

	// BondingCurveSeed is the domain separation seed of the bonding curve PDA.
	BondingCurveSeed = "bonding-curve"

	// MintAccountIndex is the position of the new mint in a create transaction's
	// account list. This follows the current instruction layout and breaks if
	// the program reorders its accounts.
	MintAccountIndex = 1
)

// ErrInvalidIdentifier is returned when a mint is not a 32-byte base58 key.
var ErrInvalidIdentifier = errors.New("invalid asset identifier")

// DependentAddress is a program derived address and its bump seed.
type DependentAddress struct {
	Value string
	Bump  uint8
}

func (a DependentAddress) String() string {
	return a.Value
}

// DeriveBondingCurve derives the bonding curve account of mint.
func DeriveBondingCurve(mint string) (DependentAddress, error) {
	return DeriveDependentAddress(ProgramID, BondingCurveSeed, mint)
}

// DeriveDependentAddress derives the PDA for [seed, mint] under programID.
func DeriveDependentAddress(programID, seed, mint string) (DependentAddress, error) {
	mintBytes, err := solana.DecodePublicKey(mint)
	if err != nil {
		return DependentAddress{}, fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}

	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(seed), mintBytes}, programID)
	if err != nil {
		return DependentAddress{}, fmt.Errorf("derive %s: %w", seed, err)
	}

	return DependentAddress{Value: addr, Bump: bump}, nil
}
