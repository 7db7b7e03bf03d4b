// Package costbasis computes premium totals, effective cost basis, break-even
// price, and P&L for a set of wheel positions. Compute is a pure function:
// no I/O, no hidden state, and decimal arithmetic throughout so repeated calls
// on the same input always produce identical output.
package costbasis

import (
	"github.com/shopspring/decimal"

	apperrors "wheeltracker/internal/errors"
	"wheeltracker/internal/models"
)

// breakEvenPlaces is the scale break-even prices are rounded to.
const breakEvenPlaces = 4

// Exit describes a completed share disposal.
type Exit struct {
	Price decimal.Decimal
	Type  models.ExitType
}

// Input bundles the calculator arguments. Optional inputs are pointers;
// a nil pointer means the figure depending on it comes back absent.
type Input struct {
	Positions        []models.Position
	SharesAcquired   int
	AssignmentStrike *decimal.Decimal
	// AssignmentCost, when set, takes precedence over strike x shares. The
	// inferred analyzer uses it to sum cost across multiple assignment lots.
	AssignmentCost *decimal.Decimal
	CurrentPrice   *decimal.Decimal
	Exit           *Exit
}

// Result carries the computed figures. Pointer fields are absent (nil), never
// zero, when a prerequisite input was missing.
type Result struct {
	TotalPutPremium  decimal.Decimal `json:"total_put_premium"`
	TotalCallPremium decimal.Decimal `json:"total_call_premium"`
	TotalPremium     decimal.Decimal `json:"total_premium"`
	// PendingPremium is the share of TotalPremium from still-OPEN positions,
	// collected but not yet realized.
	PendingPremium     decimal.Decimal  `json:"pending_premium"`
	AssignmentCost     *decimal.Decimal `json:"assignment_cost,omitempty"`
	NetCostBasis       *decimal.Decimal `json:"net_cost_basis,omitempty"`
	EffectiveCostBasis *decimal.Decimal `json:"effective_cost_basis,omitempty"`
	BreakEvenPrice     *decimal.Decimal `json:"break_even_price,omitempty"`
	UnrealizedPnL      *decimal.Decimal `json:"unrealized_pnl,omitempty"`
	RealizedPnL        *decimal.Decimal `json:"realized_pnl,omitempty"`
}

// Compute aggregates premium and derives cost basis figures from the inputs.
// Summation order is irrelevant; missing prerequisites degrade to absent
// fields rather than errors since the calculator also runs before assignment.
func Compute(in Input) Result {
	var res Result

	putPremium := decimal.Zero
	callPremium := decimal.Zero
	pending := decimal.Zero
	for i := range in.Positions {
		p := &in.Positions[i]
		dollar := p.DollarPremium()
		switch p.OptionType {
		case models.OptionPut:
			putPremium = putPremium.Add(dollar)
		case models.OptionCall:
			callPremium = callPremium.Add(dollar)
		default:
			continue
		}
		if p.IsOpen() {
			pending = pending.Add(dollar)
		}
	}
	res.TotalPutPremium = putPremium
	res.TotalCallPremium = callPremium
	res.TotalPremium = putPremium.Add(callPremium)
	res.PendingPremium = pending

	cost := assignmentCost(in)
	if cost == nil || in.SharesAcquired <= 0 {
		return res
	}
	res.AssignmentCost = cost

	net := cost.Sub(putPremium)
	res.NetCostBasis = &net

	effective := net.Sub(callPremium)
	res.EffectiveCostBasis = &effective

	shares := decimal.NewFromInt(int64(in.SharesAcquired))
	breakEven := effective.DivRound(shares, breakEvenPlaces)
	res.BreakEvenPrice = &breakEven

	if in.Exit != nil {
		realized := in.Exit.Price.Mul(shares).Sub(effective)
		res.RealizedPnL = &realized
	} else if in.CurrentPrice != nil {
		unrealized := in.CurrentPrice.Mul(shares).Sub(effective)
		res.UnrealizedPnL = &unrealized
	}

	return res
}

// assignmentCost resolves the acquisition cost: an explicit cost wins,
// otherwise strike x shares when both are present.
func assignmentCost(in Input) *decimal.Decimal {
	if in.AssignmentCost != nil {
		c := *in.AssignmentCost
		return &c
	}
	if in.AssignmentStrike != nil && in.SharesAcquired > 0 {
		c := in.AssignmentStrike.Mul(decimal.NewFromInt(int64(in.SharesAcquired)))
		return &c
	}
	return nil
}

// Effective returns the effective cost basis or a DataUnavailableError when
// the chain has not been assigned.
func (r Result) Effective() (decimal.Decimal, error) {
	if r.EffectiveCostBasis == nil {
		return decimal.Zero, apperrors.NewDataUnavailableError("effective_cost_basis", "no assignment cost supplied")
	}
	return *r.EffectiveCostBasis, nil
}

// BreakEven returns the break-even price or a DataUnavailableError when the
// chain has not been assigned.
func (r Result) BreakEven() (decimal.Decimal, error) {
	if r.BreakEvenPrice == nil {
		return decimal.Zero, apperrors.NewDataUnavailableError("break_even_price", "no assignment cost supplied")
	}
	return *r.BreakEvenPrice, nil
}

// Unrealized returns the unrealized P&L or a DataUnavailableError when the
// chain is not holding shares with a supplied current price.
func (r Result) Unrealized() (decimal.Decimal, error) {
	if r.UnrealizedPnL == nil {
		return decimal.Zero, apperrors.NewDataUnavailableError("unrealized_pnl", "requires holding shares and a current price")
	}
	return *r.UnrealizedPnL, nil
}

// Realized returns the realized P&L or a DataUnavailableError when the chain
// has not exited.
func (r Result) Realized() (decimal.Decimal, error) {
	if r.RealizedPnL == nil {
		return decimal.Zero, apperrors.NewDataUnavailableError("realized_pnl", "requires a recorded exit")
	}
	return *r.RealizedPnL, nil
}
