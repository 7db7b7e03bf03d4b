// Package models provides data structures and state management for wheel
// strategy tracking: options positions, stock holdings, and wheel chains.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "wheeltracker/internal/errors"
)

// SharesPerContract is the share count of a standard equity option contract.
const SharesPerContract = 100

// OptionType identifies the option side of a position.
type OptionType string

const (
	// OptionPut is a put option.
	OptionPut OptionType = "PUT"
	// OptionCall is a call option.
	OptionCall OptionType = "CALL"
)

// Valid returns true if the OptionType is one of the defined constants.
func (t OptionType) Valid() bool {
	switch t {
	case OptionPut, OptionCall:
		return true
	default:
		return false
	}
}

// PositionStatus is the lifecycle status of an options position.
type PositionStatus string

const (
	// StatusOpen means the position is still open; its premium is not yet realized.
	StatusOpen PositionStatus = "OPEN"
	// StatusClosed means the position was bought back or expired worthless by close.
	StatusClosed PositionStatus = "CLOSED"
	// StatusAssigned means the short option was exercised against the seller.
	StatusAssigned PositionStatus = "ASSIGNED"
	// StatusExpired means the option expired.
	StatusExpired PositionStatus = "EXPIRED"
	// StatusRolled means the position was closed and reopened at a new strike or expiry.
	StatusRolled PositionStatus = "ROLLED"
)

// Valid returns true if the PositionStatus is one of the defined constants.
func (s PositionStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusClosed, StatusAssigned, StatusExpired, StatusRolled:
		return true
	default:
		return false
	}
}

// Position represents one options contract series event in the ledger.
// Positions are immutable once closed; the engine only reads them.
type Position struct {
	ID               string           `json:"id"`
	Underlying       string           `json:"underlying"`
	OptionType       OptionType       `json:"option_type"`
	Strike           decimal.Decimal  `json:"strike"`
	Expiry           time.Time        `json:"expiry"`
	Quantity         int              `json:"quantity"` // signed; short positions are negative
	PremiumCollected decimal.Decimal  `json:"premium_collected"`
	Status           PositionStatus   `json:"status"`
	ClosePrice       *decimal.Decimal `json:"close_price,omitempty"`
	OpenDate         time.Time        `json:"open_date"`
	CloseDate        *time.Time       `json:"close_date,omitempty"`
	ChainID          string           `json:"chain_id,omitempty"` // wheel chain back-reference
}

// Contracts returns the absolute contract count.
func (p *Position) Contracts() int {
	if p.Quantity < 0 {
		return -p.Quantity
	}
	return p.Quantity
}

// DollarPremium returns the dollar premium of the position:
// premium per share multiplied by |quantity| x 100.
func (p *Position) DollarPremium() decimal.Decimal {
	return p.PremiumCollected.Mul(decimal.NewFromInt(int64(p.Contracts() * SharesPerContract)))
}

// IsOpen returns true while the position's premium is still pending.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// IsAssigned returns true if the position ended in assignment.
func (p *Position) IsAssigned() bool {
	return p.Status == StatusAssigned
}

// Validate checks the position's field invariants.
func (p *Position) Validate() error {
	if strings.TrimSpace(p.Underlying) == "" {
		return apperrors.NewValidationError("underlying", p.Underlying, "must not be empty")
	}
	if !p.OptionType.Valid() {
		return apperrors.NewValidationError("option_type", p.OptionType, "must be PUT or CALL")
	}
	if !p.Strike.IsPositive() {
		return apperrors.NewValidationError("strike", p.Strike, "must be positive")
	}
	if p.PremiumCollected.IsNegative() {
		return apperrors.NewValidationError("premium_collected", p.PremiumCollected, "must not be negative")
	}
	if !p.Status.Valid() {
		return apperrors.NewValidationError("status", p.Status, "unknown status")
	}
	if p.Status != StatusOpen && p.ClosePrice == nil {
		return apperrors.NewValidationError("close_price", nil,
			fmt.Sprintf("must be set once position %s leaves OPEN", p.ID))
	}
	return nil
}

// StockHolding is the current stock lot state for one underlying, supplied by
// the holdings collaborator.
type StockHolding struct {
	Symbol   string           `json:"symbol"`
	Quantity int              `json:"quantity"`
	AvgCost  *decimal.Decimal `json:"avg_cost,omitempty"`
}
