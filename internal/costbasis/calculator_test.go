package costbasis

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	apperrors "wheeltracker/internal/errors"
	"wheeltracker/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func closedPosition(id string, optType models.OptionType, strike, premium string, quantity int) models.Position {
	closePrice := dec("0.05")
	closeDate := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	return models.Position{
		ID:               id,
		Underlying:       "TEST",
		OptionType:       optType,
		Strike:           dec(strike),
		Expiry:           closeDate,
		Quantity:         quantity,
		PremiumCollected: dec(premium),
		Status:           models.StatusClosed,
		ClosePrice:       &closePrice,
		OpenDate:         closeDate.AddDate(0, -1, 0),
		CloseDate:        &closeDate,
	}
}

// wheelPositions builds the reference chain: 850 in put premium, 320 in call
// premium against a 440 strike assignment of 100 shares.
func wheelPositions() []models.Position {
	return []models.Position{
		closedPosition("put-1", models.OptionPut, "445", "5.00", -1),  // 500
		closedPosition("put-2", models.OptionPut, "440", "3.50", -1),  // 350
		closedPosition("call-1", models.OptionCall, "450", "2.00", -1), // 200
		closedPosition("call-2", models.OptionCall, "455", "1.20", -1), // 120
	}
}

func TestCompute_PremiumTotals(t *testing.T) {
	res := Compute(Input{Positions: wheelPositions()})

	if !res.TotalPutPremium.Equal(dec("850")) {
		t.Errorf("TotalPutPremium = %s, want 850", res.TotalPutPremium)
	}
	if !res.TotalCallPremium.Equal(dec("320")) {
		t.Errorf("TotalCallPremium = %s, want 320", res.TotalCallPremium)
	}
	if !res.TotalPremium.Equal(dec("1170")) {
		t.Errorf("TotalPremium = %s, want 1170", res.TotalPremium)
	}
	if !res.PendingPremium.IsZero() {
		t.Errorf("PendingPremium = %s, want 0 for all-closed positions", res.PendingPremium)
	}
}

func TestCompute_CostBasisIdentity(t *testing.T) {
	strike := dec("440")
	res := Compute(Input{
		Positions:        wheelPositions(),
		SharesAcquired:   100,
		AssignmentStrike: &strike,
	})

	checks := []struct {
		name string
		got  *decimal.Decimal
		want string
	}{
		{"assignment_cost", res.AssignmentCost, "44000"},
		{"net_cost_basis", res.NetCostBasis, "43150"},
		{"effective_cost_basis", res.EffectiveCostBasis, "42830"},
		{"break_even_price", res.BreakEvenPrice, "428.30"},
	}
	for _, c := range checks {
		if c.got == nil {
			t.Fatalf("%s is absent, want %s", c.name, c.want)
		}
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}

	if res.UnrealizedPnL != nil {
		t.Error("UnrealizedPnL must be absent without a current price")
	}
	if res.RealizedPnL != nil {
		t.Error("RealizedPnL must be absent without an exit")
	}
}

func TestCompute_UnrealizedPnL(t *testing.T) {
	strike := dec("440")
	price := dec("450.00")
	res := Compute(Input{
		Positions:        wheelPositions(),
		SharesAcquired:   100,
		AssignmentStrike: &strike,
		CurrentPrice:     &price,
	})

	if res.UnrealizedPnL == nil {
		t.Fatal("UnrealizedPnL is absent")
	}
	if !res.UnrealizedPnL.Equal(dec("2170")) {
		t.Errorf("UnrealizedPnL = %s, want 2170", res.UnrealizedPnL)
	}
}

func TestCompute_RealizedPnL(t *testing.T) {
	strike := dec("440")
	price := dec("450.00")
	res := Compute(Input{
		Positions:        wheelPositions(),
		SharesAcquired:   100,
		AssignmentStrike: &strike,
		CurrentPrice:     &price,
		Exit:             &Exit{Price: dec("460.00"), Type: models.ExitCalledAway},
	})

	if res.RealizedPnL == nil {
		t.Fatal("RealizedPnL is absent")
	}
	if !res.RealizedPnL.Equal(dec("3170")) {
		t.Errorf("RealizedPnL = %s, want 3170", res.RealizedPnL)
	}
	if res.UnrealizedPnL != nil {
		t.Error("UnrealizedPnL must be absent once the chain exited")
	}
}

func TestCompute_DegradesGracefully(t *testing.T) {
	res := Compute(Input{Positions: wheelPositions()})

	for name, field := range map[string]*decimal.Decimal{
		"assignment_cost":      res.AssignmentCost,
		"net_cost_basis":       res.NetCostBasis,
		"effective_cost_basis": res.EffectiveCostBasis,
		"break_even_price":     res.BreakEvenPrice,
		"unrealized_pnl":       res.UnrealizedPnL,
		"realized_pnl":         res.RealizedPnL,
	} {
		if field != nil {
			t.Errorf("%s should be absent before assignment, got %s", name, field)
		}
	}

	if _, err := res.Effective(); !apperrors.IsDataUnavailable(err) {
		t.Errorf("Effective() should return DataUnavailableError, got %v", err)
	}
	if _, err := res.BreakEven(); !apperrors.IsDataUnavailable(err) {
		t.Errorf("BreakEven() should return DataUnavailableError, got %v", err)
	}
	if _, err := res.Unrealized(); !apperrors.IsDataUnavailable(err) {
		t.Errorf("Unrealized() should return DataUnavailableError, got %v", err)
	}
	if _, err := res.Realized(); !apperrors.IsDataUnavailable(err) {
		t.Errorf("Realized() should return DataUnavailableError, got %v", err)
	}
}

func TestCompute_PendingPremium(t *testing.T) {
	positions := wheelPositions()
	open := models.Position{
		ID:               "call-open",
		Underlying:       "TEST",
		OptionType:       models.OptionCall,
		Strike:           dec("460"),
		Quantity:         -1,
		PremiumCollected: dec("1.50"),
		Status:           models.StatusOpen,
		OpenDate:         time.Now().UTC(),
	}
	positions = append(positions, open)

	res := Compute(Input{Positions: positions})
	if !res.PendingPremium.Equal(dec("150")) {
		t.Errorf("PendingPremium = %s, want 150", res.PendingPremium)
	}
	if !res.TotalCallPremium.Equal(dec("470")) {
		t.Errorf("TotalCallPremium = %s, want 470 (open premium still counts toward totals)", res.TotalCallPremium)
	}
}

func TestCompute_ExplicitAssignmentCostWins(t *testing.T) {
	// Two assignment lots summed by the analyzer: 100 @ 440 + 100 @ 430.
	cost := dec("87000")
	res := Compute(Input{
		Positions:      wheelPositions(),
		SharesAcquired: 200,
		AssignmentCost: &cost,
	})

	if res.AssignmentCost == nil || !res.AssignmentCost.Equal(cost) {
		t.Fatalf("AssignmentCost = %v, want 87000", res.AssignmentCost)
	}
	// 87000 - 850 - 320 = 85830; per share over 200 = 429.15
	if res.BreakEvenPrice == nil || !res.BreakEvenPrice.Equal(dec("429.15")) {
		t.Errorf("BreakEvenPrice = %v, want 429.15", res.BreakEvenPrice)
	}
}

func TestCompute_NoSharesNoFigures(t *testing.T) {
	strike := dec("440")
	res := Compute(Input{
		Positions:        wheelPositions(),
		SharesAcquired:   0,
		AssignmentStrike: &strike,
	})
	if res.AssignmentCost != nil {
		t.Error("A strike without a share count must not produce an assignment cost")
	}
}
