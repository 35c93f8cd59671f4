package market

import (
	"math/big"

	"moneymarket/crypto"
)

// CustomerSupply moves amount of the asset from the customer wallet into the
// protocol and credits the customer supply balance. A wallet shortfall is a
// graceful decline; an unregistered asset is a fatal error.
func (m *MoneyMarket) CustomerSupply(customer, asset crypto.Address, amount *big.Int) (*Failure, error) {
	if err := m.guardOperation(amount); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.custody.Registered(asset) {
		return nil, errUnknownAsset
	}

	pa := m.prepareAccrual(customer, asset, AccountSupply)

	ok, err := m.custody.TransferIn(m.self, asset, customer, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return m.fail(CodeSupplierTransferFromFail, amount, m.custody.WalletBalance(asset, customer))
	}

	if err := m.commitAccrual(pa); err != nil {
		return nil, err
	}
	newBalance, err := m.settle(pa, amount)
	if err != nil {
		return nil, err
	}
	if err := m.sheet.Increment(m.self, asset, AccountCash, amount); err != nil {
		return nil, err
	}
	if err := m.sheet.Increment(m.self, asset, AccountSupply, amount); err != nil {
		return nil, err
	}
	m.postEntry(ReasonCustomerSupply, TypeDebit, AccountCash, customer, asset, amount, nil, 0)
	m.postEntry(ReasonCustomerSupply, TypeCredit, AccountSupply, customer, asset, amount, newBalance, pa.rateBPS)
	return nil, nil
}

// CustomerWithdraw debits the customer supply balance and releases the asset
// from the vault back to the customer wallet. The withdrawal must leave the
// customer position collateralized; a balance, collateral or vault shortfall
// is a graceful decline.
func (m *MoneyMarket) CustomerWithdraw(customer, asset crypto.Address, amount *big.Int) (*Failure, error) {
	if err := m.guardOperation(amount); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.custody.Registered(asset) {
		return nil, errUnknownAsset
	}

	pa := m.prepareAccrual(customer, asset, AccountSupply)
	if pa.balance.Cmp(amount) < 0 {
		return m.fail(CodeSupplierInsufficientBalance, amount, pa.balance)
	}

	withdrawable, err := m.maxWithdrawUnits(customer, asset, pa.balance)
	if err != nil {
		return nil, err
	}
	if withdrawable.Cmp(amount) < 0 {
		return m.fail(CodeSupplierInsufficientBalance, amount, withdrawable)
	}

	if m.custody.VaultBalance(asset).Cmp(amount) < 0 {
		return m.fail(CodeTokenTransferToFail, amount, m.custody.VaultBalance(asset))
	}

	if err := m.commitAccrual(pa); err != nil {
		return nil, err
	}
	newBalance, err := m.settle(pa, new(big.Int).Neg(amount))
	if err != nil {
		return nil, err
	}
	if ok, err := m.sheet.Decrement(m.self, asset, AccountSupply, amount); err != nil || !ok {
		if err == nil {
			err = errInvalidAmount
		}
		return nil, err
	}
	if ok, err := m.sheet.Decrement(m.self, asset, AccountCash, amount); err != nil || !ok {
		if err == nil {
			err = errInvalidAmount
		}
		return nil, err
	}
	ok, err := m.custody.TransferOut(m.self, asset, customer, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errCustodyInconsistent
	}
	m.postEntry(ReasonCustomerWithdrawal, TypeDebit, AccountSupply, customer, asset, amount, newBalance, pa.rateBPS)
	m.postEntry(ReasonCustomerWithdrawal, TypeCredit, AccountCash, customer, asset, amount, nil, 0)
	return nil, nil
}

// maxWithdrawUnits returns how many units of the asset the customer can
// withdraw without dropping below the required collateral, capped by the
// accrued balance.
func (m *MoneyMarket) maxWithdrawUnits(customer, asset crypto.Address, accruedBalance *big.Int) (*big.Int, error) {
	borrowValue, err := m.collateral.BorrowValue(customer)
	if err != nil {
		return nil, err
	}
	if borrowValue.Sign() == 0 {
		return clone(accruedBalance), nil
	}
	supplyValue, err := m.collateral.SupplyValue(customer)
	if err != nil {
		return nil, err
	}
	required := m.collateral.RequiredCollateral(borrowValue)
	if supplyValue.Cmp(required) <= 0 {
		return big.NewInt(0), nil
	}
	free := new(big.Int).Sub(supplyValue, required)
	units, err := m.collateral.AssetUnits(asset, free)
	if err != nil {
		return nil, err
	}
	if units.Cmp(accruedBalance) > 0 {
		return clone(accruedBalance), nil
	}
	return units, nil
}
