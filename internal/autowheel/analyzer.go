// Package autowheel derives wheel state per underlying directly from the
// position ledger, with no stored chain object. Every analysis is recomputed
// from scratch: the output is a pure function of the ledger and holdings data.
package autowheel

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"wheeltracker/internal/costbasis"
	"wheeltracker/internal/ledger"
	"wheeltracker/internal/models"
)

// analyzeConcurrency bounds the fan-out of whole-ledger scans.
const analyzeConcurrency = 8

// RoundTripRule decides, for an underlying with zero held shares, whether the
// position history shows a completed round trip (assignment followed by
// liquidation). The exact rule is not observable from display-only data, so it
// is injectable; the default treats any ASSIGNED put as evidence.
type RoundTripRule func(positions []models.Position) bool

// DefaultRoundTrip reports a round trip when any option position was ever
// assigned. An assigned put acquired shares; an assigned call disposed of
// shares that must have been held.
func DefaultRoundTrip(positions []models.Position) bool {
	for i := range positions {
		if positions[i].IsAssigned() {
			return true
		}
	}
	return false
}

// Analysis is the read-only, recomputed-on-demand wheel view for one
// underlying.
type Analysis struct {
	Underlying string             `json:"underlying"`
	Status     models.ChainStatus `json:"status"`
	SharesHeld int                `json:"shares_held"`

	PutCount    int `json:"put_count"`
	CallCount   int `json:"call_count"`
	OpenPuts    int `json:"open_puts"`
	ClosedPuts  int `json:"closed_puts"`
	OpenCalls   int `json:"open_calls"`
	ClosedCalls int `json:"closed_calls"`

	// SharesAcquired and the cost basis figures are reconstructed from the
	// ASSIGNED put positions; multiple assignment lots are summed into a
	// weighted-average basis.
	SharesAcquired int `json:"shares_acquired,omitempty"`

	// PremiumAdjustedCost is the per-share effective cost of the held stock,
	// absent when no assignment cost could be reconstructed.
	PremiumAdjustedCost *decimal.Decimal `json:"premium_adjusted_cost,omitempty"`

	CostBasis costbasis.Result `json:"cost_basis"`
}

// Analyzer classifies per-underlying wheel state and delegates arithmetic to
// the same calculator used by the explicit chain manager.
type Analyzer struct {
	ledger    ledger.Interface
	roundTrip RoundTripRule
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRoundTripRule replaces the rule used to infer CLOSED for underlyings
// with no held shares.
func WithRoundTripRule(rule RoundTripRule) Option {
	return func(a *Analyzer) {
		if rule != nil {
			a.roundTrip = rule
		}
	}
}

// New creates an Analyzer over the given ledger.
func New(led ledger.Interface, opts ...Option) *Analyzer {
	a := &Analyzer{
		ledger:    led,
		roundTrip: DefaultRoundTrip,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze produces the wheel analysis for one underlying. currentPrice may be
// nil; unrealized P&L is then absent.
func (a *Analyzer) Analyze(underlying string, currentPrice *decimal.Decimal) (*Analysis, error) {
	positions, err := a.ledger.Positions(underlying)
	if err != nil {
		return nil, err
	}
	shares, err := a.ledger.SharesHeld(underlying)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		Underlying: underlying,
		SharesHeld: shares,
	}

	assignedShares := 0
	assignmentCost := decimal.Zero
	for i := range positions {
		p := &positions[i]
		switch p.OptionType {
		case models.OptionPut:
			analysis.PutCount++
			if p.IsOpen() {
				analysis.OpenPuts++
			} else {
				analysis.ClosedPuts++
			}
			if p.IsAssigned() {
				lot := p.Contracts() * models.SharesPerContract
				assignedShares += lot
				assignmentCost = assignmentCost.Add(p.Strike.Mul(decimal.NewFromInt(int64(lot))))
			}
		case models.OptionCall:
			analysis.CallCount++
			if p.IsOpen() {
				analysis.OpenCalls++
			} else {
				analysis.ClosedCalls++
			}
		}
	}

	analysis.Status = a.classify(positions, shares)

	in := costbasis.Input{Positions: positions}
	if analysis.Status != models.StatusCollectingPremium && assignedShares > 0 {
		// Reconstructed acquisition: sum of strike x quantity x 100 over the
		// assigned puts. Shares bought outright leave these absent.
		in.SharesAcquired = assignedShares
		in.AssignmentCost = &assignmentCost
		analysis.SharesAcquired = assignedShares
	}
	if analysis.Status == models.StatusHoldingShares {
		in.CurrentPrice = currentPrice
	}
	if analysis.Status == models.StatusChainClosed {
		if exit := inferExit(positions); exit != nil {
			in.Exit = exit
		}
	}

	analysis.CostBasis = costbasis.Compute(in)
	analysis.PremiumAdjustedCost = analysis.CostBasis.BreakEvenPrice
	return analysis, nil
}

// classify applies the status rules: holding while shares exist, closed after
// a full round trip, collecting otherwise. An underlying whose history never
// produced shares stays COLLECTING_PREMIUM regardless of closed positions.
func (a *Analyzer) classify(positions []models.Position, shares int) models.ChainStatus {
	if shares > 0 {
		return models.StatusHoldingShares
	}
	if a.roundTrip(positions) {
		return models.StatusChainClosed
	}
	return models.StatusCollectingPremium
}

// inferExit reconstructs the share disposal for a closed round trip. An
// assigned call pins the exit at its strike (called away); an outright sale
// leaves no trace in the options ledger, so realized P&L stays absent.
func inferExit(positions []models.Position) *costbasis.Exit {
	for i := range positions {
		p := &positions[i]
		if p.OptionType == models.OptionCall && p.IsAssigned() {
			return &costbasis.Exit{Price: p.Strike, Type: models.ExitCalledAway}
		}
	}
	return nil
}

// AnalyzeAll scans every underlying in the ledger. prices supplies optional
// current prices keyed by symbol. Results are sorted by underlying so
// repeated runs on unchanged input are byte-identical.
func (a *Analyzer) AnalyzeAll(ctx context.Context, prices map[string]decimal.Decimal) ([]Analysis, error) {
	symbols, err := a.ledger.Underlyings()
	if err != nil {
		return nil, err
	}

	results := make([]*Analysis, len(symbols))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(analyzeConcurrency)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			var price *decimal.Decimal
			if p, ok := prices[symbol]; ok {
				price = &p
			}
			analysis, err := a.Analyze(symbol, price)
			if err != nil {
				return err
			}
			results[i] = analysis
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Analysis, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Underlying < out[j].Underlying })
	return out, nil
}
