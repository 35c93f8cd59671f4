package market

import (
	"math/big"

	"moneymarket/crypto"
	"moneymarket/native/common"
)

// BalanceSheet tracks the protocol-wide totals per asset and ledger account.
// The Cash account carries the custody float, Supply and Borrow carry the
// aggregate customer positions, the interest accounts carry the lifetime
// accrued amounts. Writers must be on the allow-list.
type BalanceSheet struct {
	common.Allowed

	totals map[string]map[LedgerAccount]*big.Int
	assets map[string]crypto.Address
}

// NewBalanceSheet constructs an empty balance sheet owned by owner.
func NewBalanceSheet(owner crypto.Address) *BalanceSheet {
	return &BalanceSheet{
		Allowed: common.NewAllowed(owner),
		totals:  make(map[string]map[LedgerAccount]*big.Int),
		assets:  make(map[string]crypto.Address),
	}
}

// Balance returns the current total for the asset account. Untouched accounts
// report zero.
func (b *BalanceSheet) Balance(asset crypto.Address, account LedgerAccount) *big.Int {
	if b == nil {
		return big.NewInt(0)
	}
	accounts, ok := b.totals[asset.Key()]
	if !ok {
		return big.NewInt(0)
	}
	return clone(accounts[account])
}

// Increment adds amount to the asset account total.
func (b *BalanceSheet) Increment(caller, asset crypto.Address, account LedgerAccount, amount *big.Int) error {
	if b == nil {
		return errNilEngine
	}
	if err := b.RequireAllowed(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return errInvalidAmount
	}
	accounts, ok := b.totals[asset.Key()]
	if !ok {
		accounts = make(map[LedgerAccount]*big.Int)
		b.totals[asset.Key()] = accounts
		b.assets[asset.Key()] = asset
	}
	current := accounts[account]
	if current == nil {
		current = big.NewInt(0)
	}
	accounts[account] = new(big.Int).Add(current, amount)
	return nil
}

// Decrement subtracts amount from the asset account total. It reports false
// without mutating when the total would go negative.
func (b *BalanceSheet) Decrement(caller, asset crypto.Address, account LedgerAccount, amount *big.Int) (bool, error) {
	if b == nil {
		return false, errNilEngine
	}
	if err := b.RequireAllowed(caller); err != nil {
		return false, err
	}
	if amount == nil || amount.Sign() < 0 {
		return false, errInvalidAmount
	}
	accounts, ok := b.totals[asset.Key()]
	if !ok {
		return amount.Sign() == 0, nil
	}
	current := accounts[account]
	if current == nil || current.Cmp(amount) < 0 {
		return false, nil
	}
	accounts[account] = new(big.Int).Sub(current, amount)
	return true, nil
}
