// Package types contains common types used across the application
package types

import (
	"errors"
	"strings"
)

// ErrBadWallet reports a wallet address that is not 0x-prefixed 40-digit hex.
var ErrBadWallet = errors.New("malformed wallet address")

// Wallet is a blockchain account address identifying a player. It is treated
// as an opaque, case-insensitive string; NormalizeWallet must be applied at
// every boundary before comparisons or storage.
type Wallet = string

// NormalizeWallet lowercases and trims a wallet address.
func NormalizeWallet(w string) Wallet {
	return strings.ToLower(strings.TrimSpace(w))
}

// ValidWallet reports whether w looks like an EVM address (0x + 40 hex digits).
func ValidWallet(w string) bool {
	w = strings.TrimSpace(w)
	if len(w) != 42 {
		return false
	}
	if w[0] != '0' || (w[1] != 'x' && w[1] != 'X') {
		return false
	}
	for _, c := range w[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// RunRecord is one completed play attempt as appended to the run ledger.
// Records are immutable once appended.
type RunRecord struct {
	Wallet      Wallet `json:"wallet"`
	Score       int64  `json:"score"`
	UnixMs      int64  `json:"ts"`
	TxReference string `json:"txHash"`
	Username    string `json:"username,omitempty"`
}

// WalletTotal pairs a wallet with its lifetime total score.
type WalletTotal struct {
	Wallet Wallet
	Total  int64
}

// Entry represents a leaderboard row derived from the run ledger.
type Entry struct {
	Rank       int    `json:"rank"`
	Wallet     Wallet `json:"wallet"`
	Username   string `json:"username,omitempty"`
	TotalScore int64  `json:"totalScore"`
}

// HistoryEntry is the client-facing shape of one run in a wallet's history.
type HistoryEntry struct {
	UnixMs      int64  `json:"ts"`
	Score       int64  `json:"score"`
	TxReference string `json:"txHash"`
}
