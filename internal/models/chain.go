package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "wheeltracker/internal/errors"
)

// ChainStatus represents the lifecycle state of a wheel chain.
type ChainStatus string

const (
	// StatusCollectingPremium is the initial state: selling puts, no shares held.
	StatusCollectingPremium ChainStatus = "COLLECTING_PREMIUM"
	// StatusHoldingShares means a put was assigned and shares are held.
	StatusHoldingShares ChainStatus = "HOLDING_SHARES"
	// StatusChainClosed is terminal: the shares were called away or sold.
	StatusChainClosed ChainStatus = "CLOSED"
)

// ExitType describes how a chain's shares were disposed of.
type ExitType string

const (
	// ExitCalledAway means a short call was exercised against the holder.
	ExitCalledAway ExitType = "CALLED_AWAY"
	// ExitSold means the shares were sold outright.
	ExitSold ExitType = "SOLD"
)

// Valid returns true if the ExitType is one of the defined constants.
func (t ExitType) Valid() bool {
	switch t {
	case ExitCalledAway, ExitSold:
		return true
	default:
		return false
	}
}

// ChainTransition defines a valid chain state transition.
type ChainTransition struct {
	From        ChainStatus
	To          ChainStatus
	Condition   string
	Description string
}

// ValidChainTransitions enumerates every legal transition. The wheel lifecycle
// is strictly forward: no transition skips a state and none goes backward.
var ValidChainTransitions = []ChainTransition{
	{StatusCollectingPremium, StatusHoldingShares, "assignment_recorded", "Put assigned, shares acquired at strike"},
	{StatusHoldingShares, StatusChainClosed, "exit_recorded", "Shares called away or sold"},
}

// Assignment holds the fields populated exactly once, on the
// COLLECTING_PREMIUM -> HOLDING_SHARES transition.
type Assignment struct {
	Strike decimal.Decimal `json:"strike"`
	Shares int             `json:"shares"`
	Date   time.Time       `json:"date"`
}

// Exit holds the fields populated exactly once, on the
// HOLDING_SHARES -> CLOSED transition.
type Exit struct {
	Price decimal.Decimal `json:"price"`
	Type  ExitType        `json:"type"`
	Date  time.Time       `json:"date"`
}

// WheelChain is a user-declared grouping of options positions against one
// underlying. Assignment and Exit are nil until their transitions occur, so a
// chain cannot carry exit data without having been assigned first.
type WheelChain struct {
	ID          string      `json:"id"`
	Underlying  string      `json:"underlying"`
	Status      ChainStatus `json:"status"`
	PositionIDs []string    `json:"position_ids"`
	Assignment  *Assignment `json:"assignment,omitempty"`
	Exit        *Exit       `json:"exit,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewWheelChain creates an empty chain in COLLECTING_PREMIUM.
func NewWheelChain(id, underlying string, now time.Time) (*WheelChain, error) {
	if strings.TrimSpace(underlying) == "" {
		return nil, apperrors.NewValidationError("underlying", underlying, "must not be empty")
	}
	return &WheelChain{
		ID:          id,
		Underlying:  strings.ToUpper(strings.TrimSpace(underlying)),
		Status:      StatusCollectingPremium,
		PositionIDs: make([]string, 0),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// canTransition checks the transition table for a legal move.
func (c *WheelChain) canTransition(to ChainStatus, condition string) bool {
	for _, tr := range ValidChainTransitions {
		if tr.From == c.Status && tr.To == to && tr.Condition == condition {
			return true
		}
	}
	return false
}

// LinkPosition appends a position reference. Allowed in any state: a chain may
// keep selling calls after assignment, or further puts before one.
func (c *WheelChain) LinkPosition(positionID string, now time.Time) error {
	if strings.TrimSpace(positionID) == "" {
		return apperrors.NewValidationError("position_id", positionID, "must not be empty")
	}
	for _, id := range c.PositionIDs {
		if id == positionID {
			return apperrors.NewValidationError("position_id", positionID, "already linked to this chain")
		}
	}
	c.PositionIDs = append(c.PositionIDs, positionID)
	c.UpdatedAt = now
	return nil
}

// RecordAssignment transitions the chain to HOLDING_SHARES and fixes the
// assignment block. Valid only once, from COLLECTING_PREMIUM.
func (c *WheelChain) RecordAssignment(strike decimal.Decimal, shares int, now time.Time) error {
	if !strike.IsPositive() {
		return apperrors.NewValidationError("strike", strike, "must be positive")
	}
	if shares <= 0 {
		return apperrors.NewValidationError("shares", shares, "must be positive")
	}
	if !c.canTransition(StatusHoldingShares, "assignment_recorded") {
		return apperrors.NewInvalidStateError(c.ID, "record assignment", string(c.Status))
	}
	c.Assignment = &Assignment{Strike: strike, Shares: shares, Date: now}
	c.Status = StatusHoldingShares
	c.UpdatedAt = now
	return nil
}

// RecordExit transitions the chain to CLOSED and fixes the exit block.
// Valid only once, from HOLDING_SHARES.
func (c *WheelChain) RecordExit(price decimal.Decimal, exitType ExitType, now time.Time) error {
	if !price.IsPositive() {
		return apperrors.NewValidationError("exit_price", price, "must be positive")
	}
	if !exitType.Valid() {
		return apperrors.NewValidationError("exit_type", exitType, "must be CALLED_AWAY or SOLD")
	}
	if !c.canTransition(StatusChainClosed, "exit_recorded") {
		return apperrors.NewInvalidStateError(c.ID, "record exit", string(c.Status))
	}
	c.Exit = &Exit{Price: price, Type: exitType, Date: now}
	c.Status = StatusChainClosed
	c.UpdatedAt = now
	return nil
}

// Validate ensures the chain's data is consistent with its status.
func (c *WheelChain) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("chain has no id")
	}
	if strings.TrimSpace(c.Underlying) == "" {
		return fmt.Errorf("chain %s has no underlying", c.ID)
	}
	switch c.Status {
	case StatusCollectingPremium:
		if c.Assignment != nil {
			return fmt.Errorf("chain %s in state %s: assignment must be unset", c.ID, c.Status)
		}
		if c.Exit != nil {
			return fmt.Errorf("chain %s in state %s: exit must be unset", c.ID, c.Status)
		}
	case StatusHoldingShares:
		if c.Assignment == nil {
			return fmt.Errorf("chain %s in state %s: assignment must be set", c.ID, c.Status)
		}
		if c.Exit != nil {
			return fmt.Errorf("chain %s in state %s: exit must be unset", c.ID, c.Status)
		}
	case StatusChainClosed:
		if c.Assignment == nil {
			return fmt.Errorf("chain %s in state %s: assignment must be set", c.ID, c.Status)
		}
		if c.Exit == nil {
			return fmt.Errorf("chain %s in state %s: exit must be set", c.ID, c.Status)
		}
	default:
		return fmt.Errorf("chain %s has unknown status %q", c.ID, c.Status)
	}
	return nil
}

// Copy creates a deep copy of the chain.
func (c *WheelChain) Copy() *WheelChain {
	if c == nil {
		return nil
	}
	cp := *c
	cp.PositionIDs = make([]string, len(c.PositionIDs))
	copy(cp.PositionIDs, c.PositionIDs)
	if c.Assignment != nil {
		a := *c.Assignment
		cp.Assignment = &a
	}
	if c.Exit != nil {
		e := *c.Exit
		cp.Exit = &e
	}
	return &cp
}
