package domain

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptyTarget is returned when a target is missing its name or ticker.
var ErrEmptyTarget = errors.New("target name and ticker are required")

// Target describes the asset a race is looking for.
// It is set once at startup and never mutated.
type Target struct {
	name         string
	ticker       string
	foldedName   string
	foldedTicker string
}

// NewTarget creates a Target. Surrounding whitespace is ignored.
func NewTarget(name, ticker string) (Target, error) {
	name = strings.TrimSpace(name)
	ticker = strings.TrimSpace(ticker)
	if name == "" || ticker == "" {
		return Target{}, ErrEmptyTarget
	}
	return Target{
		name:         name,
		ticker:       ticker,
		foldedName:   Fold(name),
		foldedTicker: Fold(ticker),
	}, nil
}

// Name returns the target asset name.
func (t Target) Name() string { return t.name }

// Ticker returns the target ticker symbol.
func (t Target) Ticker() string { return t.ticker }

// Matches reports whether an observed name and symbol identify the target.
// Both fields must be equal after per-rune lowercasing. This is not full
// case folding: "straße" does not match "STRASSE".
func (t Target) Matches(name, symbol string) bool {
	if t.name == "" {
		return false
	}
	return Fold(name) == t.foldedName && Fold(symbol) == t.foldedTicker
}

func (t Target) String() string {
	return fmt.Sprintf("%s ($%s)", t.name, t.ticker)
}

// Fold normalizes a name or symbol for comparison: NUL padding trimmed,
// NFC, lowercased.
func Fold(s string) string {
	s = strings.TrimRight(s, "\x00")
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}
