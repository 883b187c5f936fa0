// Package economy holds the clients for the platform services the tournament
// engine depends on: the currency ledger, the item inventory, the badge
// service and the realtime notifier. The engine only consumes these
// interfaces; their state lives elsewhere.
package economy

import (
	"context"
	"errors"
)

// ErrInsufficientFunds is returned by Debit when the user's balance cannot
// cover the amount. It is an expected condition, not a system failure.
var ErrInsufficientFunds = errors.New("insufficient funds")

type Currency string

const (
	CurrencyCoins Currency = "coins"
	CurrencyGems  Currency = "gems"
)

// Ledger moves currency in and out of user wallets. The idempotency key lets
// the ledger collapse at-least-once retries into a single transfer.
type Ledger interface {
	Debit(ctx context.Context, userID int, amount int64, currency Currency, idempotencyKey string) error
	Credit(ctx context.Context, userID int, amount int64, currency Currency, idempotencyKey string) error
}

// Inventory grants non-currency rewards.
type Inventory interface {
	GrantItem(ctx context.Context, userID int, itemID string, qty int) error
	GrantCrateKey(ctx context.Context, userID int, crateID string, qty int) error
}

// BadgeService awards profile badges.
type BadgeService interface {
	GrantBadge(ctx context.Context, userID int, badgeID string) error
}

// Notifier is fire-and-forget; delivery failures never surface to callers.
type Notifier interface {
	NotifyUser(userID int, message string)
	NotifyGlobal(event string, payload interface{})
	NotifyTournament(tournamentID int, event string, payload interface{})
}
