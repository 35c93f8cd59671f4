package market

import "math/big"

// InterestRateModel maps supply and borrow volumes to scaled per-block rates.
// Both rate functions are pure and deterministic: utilisation is the ratio of
// borrows to supplied volume, the supply rate grows linearly with utilisation
// and the borrow rate adds a base rate plus a steeper slope, so the borrow
// rate stays above the supply rate at every utilisation and the spread is
// retained as protocol income.
type InterestRateModel struct {
	// SupplyRateSlopeBPS is the annual supply rate at 100% utilisation.
	SupplyRateSlopeBPS uint64
	// BorrowRateBaseBPS is the minimum annual borrow rate at zero
	// utilisation.
	BorrowRateBaseBPS uint64
	// BorrowRateSlopeBPS is the annual borrow rate increase per unit of
	// utilisation.
	BorrowRateSlopeBPS uint64
}

// NewInterestRateModel constructs a model from annual rates in basis points.
func NewInterestRateModel(supplySlopeBPS, borrowBaseBPS, borrowSlopeBPS uint64) *InterestRateModel {
	return &InterestRateModel{
		SupplyRateSlopeBPS: supplySlopeBPS,
		BorrowRateBaseBPS:  borrowBaseBPS,
		BorrowRateSlopeBPS: borrowSlopeBPS,
	}
}

// Clone returns a copy of the model.
func (m *InterestRateModel) Clone() *InterestRateModel {
	if m == nil {
		return nil
	}
	out := *m
	return &out
}

// ScaledSupplyRatePerBlock returns the per-block supply rate at
// interestRateScale for the given supply and borrow volumes.
func (m *InterestRateModel) ScaledSupplyRatePerBlock(supply, borrows *big.Int) *big.Int {
	annual := m.scaledAnnualRate(0, m.SupplyRateSlopeBPS, supply, borrows)
	return annual.Quo(annual, big.NewInt(blocksPerYear))
}

// ScaledBorrowRatePerBlock returns the per-block borrow rate at
// interestRateScale for the given supply and borrow volumes.
func (m *InterestRateModel) ScaledBorrowRatePerBlock(supply, borrows *big.Int) *big.Int {
	annual := m.scaledAnnualRate(m.BorrowRateBaseBPS, m.BorrowRateSlopeBPS, supply, borrows)
	return annual.Quo(annual, big.NewInt(blocksPerYear))
}

// scaledAnnualRate computes base + slope*utilisation at interestRateScale.
// Utilisation is borrows/supply; a market with borrows but no recorded supply
// uses a denominator of one, so the rate keeps scaling with the outstanding
// volume instead of clamping. Zero borrows means zero utilisation.
func (m *InterestRateModel) scaledAnnualRate(baseBPS, slopeBPS uint64, supply, borrows *big.Int) *big.Int {
	rate := bpsOf(interestRateScale, baseBPS)
	if m == nil || borrows == nil || borrows.Sign() == 0 {
		return rate
	}
	denom := supply
	if denom == nil || denom.Sign() == 0 {
		denom = bigOne
	}
	slope := bpsOf(interestRateScale, slopeBPS)
	return rate.Add(rate, mulDiv(slope, borrows, denom))
}

// DefaultInterestRateModel carries the standard market curve: supply yield of
// 10% per unit of utilisation, borrow rate of 10% plus 30% per unit of
// utilisation.
var DefaultInterestRateModel = NewInterestRateModel(1000, 1000, 3000)
