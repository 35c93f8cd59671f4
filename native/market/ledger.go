package market

import (
	"math/big"

	"moneymarket/core/events"
	"moneymarket/crypto"
)

// pendingAccrual is the staged settlement of one customer asset account at
// the current block unit: the rate snapshot to commit, the interest earned or
// owed since the checkpoint and the resulting balance. Preparing an accrual
// touches nothing; an operation commits its accruals only after every
// graceful check has passed.
type pendingAccrual struct {
	customer crypto.Address
	asset    crypto.Address
	account  LedgerAccount
	unit     uint64
	rateBPS  uint64
	balance  *big.Int
	interest *big.Int
	snapshot *PendingSnapshot
}

func (m *MoneyMarket) blockUnit() uint64 {
	return m.blockNumber / m.rates.BlockScale()
}

func (m *MoneyMarket) sideRatePerBlock(asset crypto.Address, account LedgerAccount) *big.Int {
	supply := m.sheet.Balance(asset, AccountSupply)
	borrows := m.sheet.Balance(asset, AccountBorrow)
	if account == AccountBorrow {
		return m.model.ScaledBorrowRatePerBlock(supply, borrows)
	}
	return m.model.ScaledSupplyRatePerBlock(supply, borrows)
}

// annualRateBPS folds a scaled per-block rate back into annual basis points
// for ledger entry reporting.
func annualRateBPS(scaledRatePerBlock *big.Int) uint64 {
	annual := new(big.Int).Mul(scaledRatePerBlock, big.NewInt(blocksPerYear))
	annual.Mul(annual, basisPoints)
	annual.Quo(annual, interestRateScale)
	return annual.Uint64()
}

// prepareAccrual computes the interest-adjusted balance of the customer asset
// account at the current block unit without writing anything.
func (m *MoneyMarket) prepareAccrual(customer, asset crypto.Address, account LedgerAccount) *pendingAccrual {
	rate := m.sideRatePerBlock(asset, account)
	unit := m.blockUnit()
	pending := m.rates.Prepare(asset, account, unit, rate)

	balance, checkpointUnit := m.ledger.Balance(customer, asset, account)
	interest := big.NewInt(0)
	if balance.Sign() > 0 {
		if old := m.rates.Stored(asset, account, checkpointUnit); old != nil {
			delta := new(big.Int).Sub(pending.Snapshot().TotalAccruedInterest, old.TotalAccruedInterest)
			if delta.Sign() > 0 {
				interest = mulDiv(balance, delta, interestRateScale)
			}
		}
	}
	return &pendingAccrual{
		customer: customer,
		asset:    asset,
		account:  account,
		unit:     unit,
		rateBPS:  annualRateBPS(rate),
		balance:  new(big.Int).Add(balance, interest),
		interest: interest,
		snapshot: pending,
	}
}

// commitAccrual writes the staged rate snapshot, realizes the interest as a
// balanced entry pair and checkpoints the accrued balance.
func (m *MoneyMarket) commitAccrual(pa *pendingAccrual) error {
	if err := m.rates.Commit(m.self, pa.snapshot); err != nil {
		return err
	}
	if pa.interest.Sign() > 0 {
		switch pa.account {
		case AccountSupply:
			if err := m.sheet.Increment(m.self, pa.asset, AccountInterestExpense, pa.interest); err != nil {
				return err
			}
			if err := m.sheet.Increment(m.self, pa.asset, AccountSupply, pa.interest); err != nil {
				return err
			}
			m.postEntry(ReasonInterest, TypeDebit, AccountInterestExpense, pa.customer, pa.asset, pa.interest, nil, pa.rateBPS)
			m.postEntry(ReasonInterest, TypeCredit, AccountSupply, pa.customer, pa.asset, pa.interest, pa.balance, pa.rateBPS)
		case AccountBorrow:
			if err := m.sheet.Increment(m.self, pa.asset, AccountBorrow, pa.interest); err != nil {
				return err
			}
			if err := m.sheet.Increment(m.self, pa.asset, AccountInterestIncome, pa.interest); err != nil {
				return err
			}
			m.postEntry(ReasonInterest, TypeDebit, AccountBorrow, pa.customer, pa.asset, pa.interest, pa.balance, pa.rateBPS)
			m.postEntry(ReasonInterest, TypeCredit, AccountInterestIncome, pa.customer, pa.asset, pa.interest, nil, pa.rateBPS)
		}
	}
	return m.ledger.Save(m.self, pa.customer, pa.asset, pa.account, pa.balance, pa.unit)
}

// settle moves the staged balance by delta (positive or negative) and writes
// the final checkpoint.
func (m *MoneyMarket) settle(pa *pendingAccrual, delta *big.Int) (*big.Int, error) {
	final := new(big.Int).Add(pa.balance, delta)
	if err := m.ledger.Save(m.self, pa.customer, pa.asset, pa.account, final, pa.unit); err != nil {
		return nil, err
	}
	return final, nil
}

// postEntry posts one ledger entry leg to the event stream. The aggregate-only
// Cash and interest accounts report a zero resulting balance.
func (m *MoneyMarket) postEntry(reason LedgerReason, entryType LedgerType, account LedgerAccount, customer, asset crypto.Address, amount, resulting *big.Int, rateBPS uint64) {
	balance := big.NewInt(0)
	if resulting != nil && account != AccountCash {
		balance = clone(resulting)
	}
	entry := LedgerEntry{
		Reason:           reason,
		Type:             entryType,
		Account:          account,
		Customer:         customer,
		Asset:            asset,
		Amount:           clone(amount),
		ResultingBalance: balance,
		InterestRateBPS:  rateBPS,
	}
	m.emitter.Emit(events.LedgerEntryPosted{
		Reason:          entry.Reason.String(),
		EntryType:       entry.Type.String(),
		Account:         entry.Account.String(),
		Customer:        entry.Customer,
		Asset:           entry.Asset,
		Amount:          entry.Amount,
		Balance:         entry.ResultingBalance,
		InterestRateBPS: entry.InterestRateBPS,
		NextPaymentDate: entry.NextPaymentDate,
	})
}

// AccruedBalance implements the BalanceSource interface: the checkpoint
// balance plus interest up to the current block unit, computed without
// mutation.
func (m *MoneyMarket) AccruedBalance(customer, asset crypto.Address, account LedgerAccount) (*big.Int, error) {
	if m == nil || m.rates == nil {
		return nil, errNilEngine
	}
	return m.prepareAccrual(customer, asset, account).balance, nil
}

// AssetsOf implements the BalanceSource interface.
func (m *MoneyMarket) AssetsOf(customer crypto.Address, account LedgerAccount) []crypto.Address {
	if m == nil {
		return nil
	}
	return m.ledger.AssetsOf(customer, account)
}
