package solana

import (
	"encoding/json"
	"fmt"
)

// ParsedTransaction is a confirmed transaction fetched with jsonParsed encoding.
type ParsedTransaction struct {
	Slot              int64
	Signature         string
	BlockTime         int64 // Unix timestamp (seconds)
	Err               interface{}
	LogMessages       []string
	AccountKeys       []AccountKey
	InnerInstructions []InnerInstructionSet
}

// AccountKey is an entry of a transaction's account list.
// The RPC returns either a raw base58 string or a parsed-account object;
// both forms decode to the same Pubkey.
type AccountKey struct {
	Pubkey   string
	Signer   bool
	Writable bool
}

// UnmarshalJSON accepts both "pubkey" and {"pubkey": "...", ...}.
func (k *AccountKey) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		*k = AccountKey{}
		return json.Unmarshal(data, &k.Pubkey)
	}

	var parsed struct {
		Pubkey   string `json:"pubkey"`
		Signer   bool   `json:"signer"`
		Writable bool   `json:"writable"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("account key: %w", err)
	}
	*k = AccountKey{Pubkey: parsed.Pubkey, Signer: parsed.Signer, Writable: parsed.Writable}
	return nil
}

// InnerInstructionSet groups the inner instructions emitted by one top-level instruction.
type InnerInstructionSet struct {
	Index        int           `json:"index"`
	Instructions []Instruction `json:"instructions"`
}

// Instruction is either fully parsed (Parsed set) or partially decoded
// (raw base58 Data with account list).
type Instruction struct {
	ProgramID   string          `json:"programId"`
	Program     string          `json:"program,omitempty"`
	Accounts    []string        `json:"accounts,omitempty"`
	Data        string          `json:"data,omitempty"`
	Parsed      json.RawMessage `json:"parsed,omitempty"`
	StackHeight *int            `json:"stackHeight,omitempty"`
}

// IsPartiallyDecoded reports whether the instruction carries raw data.
func (i Instruction) IsPartiallyDecoded() bool {
	return len(i.Parsed) == 0 && i.Data != ""
}

// AccountKeyAt returns the pubkey at position idx of the account list.
func (tx *ParsedTransaction) AccountKeyAt(idx int) (string, bool) {
	if idx < 0 || idx >= len(tx.AccountKeys) || tx.AccountKeys[idx].Pubkey == "" {
		return "", false
	}
	return tx.AccountKeys[idx].Pubkey, true
}

// FindInnerInstruction returns the first partially decoded inner instruction
// issued by programID, in execution order.
func (tx *ParsedTransaction) FindInnerInstruction(programID string) (Instruction, bool) {
	for _, set := range tx.InnerInstructions {
		for _, ix := range set.Instructions {
			if ix.ProgramID == programID && ix.IsPartiallyDecoded() {
				return ix, true
			}
		}
	}
	return Instruction{}, false
}
