package market

import (
	"math/big"

	"moneymarket/crypto"
)

// CustomerBorrow draws amount of the asset against the customer's supplied
// collateral. The borrowed amount is credited to the customer supply balance;
// no custody movement happens until the customer withdraws. Declines: asset
// not borrowable, protocol cash shortfall, insufficient collateral.
func (m *MoneyMarket) CustomerBorrow(customer, asset crypto.Address, amount *big.Int) (*Failure, error) {
	if err := m.guardOperation(amount); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.custody.Registered(asset) {
		return nil, errUnknownAsset
	}
	if _, ok := m.borrowable[asset.Key()]; !ok {
		return m.fail(CodeBorrowerAssetNotBorrowable, amount)
	}
	cash := m.sheet.Balance(asset, AccountCash)
	if cash.Cmp(amount) < 0 {
		return m.fail(CodeBorrowerInsufficientCash, amount, cash)
	}

	paBorrow := m.prepareAccrual(customer, asset, AccountBorrow)
	paSupply := m.prepareAccrual(customer, asset, AccountSupply)

	borrowValue, err := m.collateral.BorrowValue(customer)
	if err != nil {
		return nil, err
	}
	requestValue, err := m.collateral.AssetValue(asset, amount)
	if err != nil {
		return nil, err
	}
	postBorrowValue := new(big.Int).Add(borrowValue, requestValue)
	supplyValue, err := m.collateral.SupplyValue(customer)
	if err != nil {
		return nil, err
	}
	if m.collateral.RequiredCollateral(postBorrowValue).Cmp(supplyValue) > 0 {
		maxBorrow, err := m.collateral.MaxBorrowValue(customer)
		if err != nil {
			return nil, err
		}
		return m.fail(CodeBorrowerInvalidRatio, amount, postBorrowValue, maxBorrow)
	}

	if err := m.commitAccrual(paBorrow); err != nil {
		return nil, err
	}
	if err := m.commitAccrual(paSupply); err != nil {
		return nil, err
	}
	borrowBalance, err := m.settle(paBorrow, amount)
	if err != nil {
		return nil, err
	}
	supplyBalance, err := m.settle(paSupply, amount)
	if err != nil {
		return nil, err
	}
	if err := m.sheet.Increment(m.self, asset, AccountBorrow, amount); err != nil {
		return nil, err
	}
	if err := m.sheet.Increment(m.self, asset, AccountSupply, amount); err != nil {
		return nil, err
	}
	m.postEntry(ReasonCustomerBorrow, TypeDebit, AccountBorrow, customer, asset, amount, borrowBalance, paBorrow.rateBPS)
	m.postEntry(ReasonCustomerBorrow, TypeCredit, AccountSupply, customer, asset, amount, supplyBalance, paSupply.rateBPS)
	return nil, nil
}

// CustomerPayBorrow repays the customer's borrow balance out of the customer
// supply balance, capped at the outstanding accrued debt. Interest on both
// sides is realized first.
func (m *MoneyMarket) CustomerPayBorrow(customer, asset crypto.Address, amount *big.Int) (*Failure, error) {
	if err := m.guardOperation(amount); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.custody.Registered(asset) {
		return nil, errUnknownAsset
	}

	paBorrow := m.prepareAccrual(customer, asset, AccountBorrow)
	paSupply := m.prepareAccrual(customer, asset, AccountSupply)

	repay := clone(amount)
	if repay.Cmp(paBorrow.balance) > 0 {
		repay = clone(paBorrow.balance)
	}
	if repay.Sign() == 0 {
		return m.fail(CodeSupplierInsufficientBalance, amount, paBorrow.balance)
	}
	if paSupply.balance.Cmp(repay) < 0 {
		return m.fail(CodeSupplierInsufficientBalance, repay, paSupply.balance)
	}

	if err := m.commitAccrual(paBorrow); err != nil {
		return nil, err
	}
	if err := m.commitAccrual(paSupply); err != nil {
		return nil, err
	}
	supplyBalance, err := m.settle(paSupply, new(big.Int).Neg(repay))
	if err != nil {
		return nil, err
	}
	borrowBalance, err := m.settle(paBorrow, new(big.Int).Neg(repay))
	if err != nil {
		return nil, err
	}
	if ok, err := m.sheet.Decrement(m.self, asset, AccountSupply, repay); err != nil || !ok {
		if err == nil {
			err = errInvalidAmount
		}
		return nil, err
	}
	if ok, err := m.sheet.Decrement(m.self, asset, AccountBorrow, repay); err != nil || !ok {
		if err == nil {
			err = errInvalidAmount
		}
		return nil, err
	}
	m.postEntry(ReasonCustomerPayBorrow, TypeDebit, AccountSupply, customer, asset, repay, supplyBalance, paSupply.rateBPS)
	m.postEntry(ReasonCustomerPayBorrow, TypeCredit, AccountBorrow, customer, asset, repay, borrowBalance, paBorrow.rateBPS)
	return nil, nil
}

// LiquidateCollateral lets the liquidator repay part of an undercollateralized
// borrower's debt out of the liquidator's own supply balance of the borrow
// asset, receiving the borrower's supplied collateral at the liquidation
// discount in exchange. The seized amount is returned on success.
func (m *MoneyMarket) LiquidateCollateral(liquidator, borrower, borrowAsset, collateralAsset crypto.Address, amountToCover *big.Int) (*big.Int, *Failure, error) {
	if err := m.guardOperation(amountToCover); err != nil {
		return nil, nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.custody.Registered(borrowAsset) || !m.custody.Registered(collateralAsset) {
		return nil, nil, errUnknownAsset
	}

	shortfall, err := m.collateral.Shortfall(borrower)
	if err != nil {
		return nil, nil, err
	}
	if shortfall.Sign() == 0 {
		f, err := m.fail(CodeNotEligibleForLiquidation, amountToCover)
		return nil, f, err
	}

	paDebt := m.prepareAccrual(borrower, borrowAsset, AccountBorrow)
	paFunds := m.prepareAccrual(liquidator, borrowAsset, AccountSupply)
	paCollateral := m.prepareAccrual(borrower, collateralAsset, AccountSupply)
	paSeized := m.prepareAccrual(liquidator, collateralAsset, AccountSupply)

	pay := clone(amountToCover)
	if pay.Cmp(paDebt.balance) > 0 {
		pay = clone(paDebt.balance)
	}
	if pay.Sign() == 0 {
		f, err := m.fail(CodeNotEligibleForLiquidation, amountToCover)
		return nil, f, err
	}
	if paFunds.balance.Cmp(pay) < 0 {
		f, err := m.fail(CodeLiquidateInsufficientFunds, pay, paFunds.balance)
		return nil, f, err
	}
	seized, err := m.convertWithDiscount(borrowAsset, collateralAsset, pay, m.liquidationDiscountBPS)
	if err != nil {
		return nil, nil, err
	}
	if paCollateral.balance.Cmp(seized) < 0 {
		f, err := m.fail(CodeLiquidateInsufficientSeize, seized, paCollateral.balance)
		return nil, f, err
	}

	for _, pa := range []*pendingAccrual{paDebt, paFunds, paCollateral, paSeized} {
		if err := m.commitAccrual(pa); err != nil {
			return nil, nil, err
		}
	}
	fundsBalance, err := m.settle(paFunds, new(big.Int).Neg(pay))
	if err != nil {
		return nil, nil, err
	}
	debtBalance, err := m.settle(paDebt, new(big.Int).Neg(pay))
	if err != nil {
		return nil, nil, err
	}
	collateralBalance, err := m.settle(paCollateral, new(big.Int).Neg(seized))
	if err != nil {
		return nil, nil, err
	}
	seizedBalance, err := m.settle(paSeized, seized)
	if err != nil {
		return nil, nil, err
	}
	if ok, err := m.sheet.Decrement(m.self, borrowAsset, AccountSupply, pay); err != nil || !ok {
		if err == nil {
			err = errInvalidAmount
		}
		return nil, nil, err
	}
	if ok, err := m.sheet.Decrement(m.self, borrowAsset, AccountBorrow, pay); err != nil || !ok {
		if err == nil {
			err = errInvalidAmount
		}
		return nil, nil, err
	}
	m.postEntry(ReasonCollateralPayBorrow, TypeDebit, AccountSupply, liquidator, borrowAsset, pay, fundsBalance, paFunds.rateBPS)
	m.postEntry(ReasonCollateralPayBorrow, TypeCredit, AccountBorrow, borrower, borrowAsset, pay, debtBalance, paDebt.rateBPS)
	m.postEntry(ReasonCollateralPayBorrow, TypeDebit, AccountSupply, borrower, collateralAsset, seized, collateralBalance, paCollateral.rateBPS)
	m.postEntry(ReasonCollateralPayBorrow, TypeCredit, AccountSupply, liquidator, collateralAsset, seized, seizedBalance, paSeized.rateBPS)
	return seized, nil, nil
}
