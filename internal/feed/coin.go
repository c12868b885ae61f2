package feed

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventNewCoinCreated is emitted by the launchpad frontend for every new token.
const EventNewCoinCreated = "newCoinCreated"

// CoinCreated is the payload of a newCoinCreated event.
type CoinCreated struct {
	Mint             string `json:"mint"`
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	CreatedTimestamp int64  `json:"created_timestamp"` // unix ms
	BondingCurve     string `json:"bonding_curve"`
	Creator          string `json:"creator"`
}

// DecodeCoinCreated decodes a newCoinCreated event payload.
func DecodeCoinCreated(ev Event) (CoinCreated, error) {
	if ev.Name != EventNewCoinCreated {
		return CoinCreated{}, fmt.Errorf("unexpected event %q", ev.Name)
	}
	var c CoinCreated
	if err := json.Unmarshal(ev.Payload, &c); err != nil {
		return CoinCreated{}, fmt.Errorf("decode %s: %w", ev.Name, err)
	}
	if c.Mint == "" {
		return CoinCreated{}, fmt.Errorf("decode %s: missing mint", ev.Name)
	}
	return c, nil
}

// Ticker returns the symbol with one leading "$" removed.
func (c CoinCreated) Ticker() string {
	return strings.TrimPrefix(c.Symbol, "$")
}
