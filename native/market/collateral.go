package market

import (
	"math/big"

	"moneymarket/core/events"
	"moneymarket/crypto"
	"moneymarket/native/common"
)

// BalanceSource exposes interest-adjusted customer balances to the collateral
// calculator. The market engine implements it; tests can substitute fixtures.
type BalanceSource interface {
	AccruedBalance(customer, asset crypto.Address, account LedgerAccount) (*big.Int, error)
	AssetsOf(customer crypto.Address, account LedgerAccount) []crypto.Address
}

// CollateralCalculator values customer positions through the price oracle and
// enforces the minimum collateral ratio. All values are expressed in the
// oracle's common unit; the ratio is scaled by basisPoints.
type CollateralCalculator struct {
	common.Owned

	scaledMinRatio uint64
	oracle         PriceOracle
	balances       BalanceSource
	emitter        events.Emitter
}

// DefaultScaledMinCollateralRatio requires two units of supply value per unit
// of borrow value.
const DefaultScaledMinCollateralRatio = 20_000

// NewCollateralCalculator constructs a calculator with the default minimum
// ratio.
func NewCollateralCalculator(owner crypto.Address) *CollateralCalculator {
	return &CollateralCalculator{
		Owned:          common.NewOwned(owner),
		scaledMinRatio: DefaultScaledMinCollateralRatio,
		emitter:        events.NoopEmitter{},
	}
}

// SetOracle wires the price oracle.
func (c *CollateralCalculator) SetOracle(oracle PriceOracle) {
	if c == nil {
		return
	}
	c.oracle = oracle
}

// SetBalanceSource wires the interest-adjusted balance reader.
func (c *CollateralCalculator) SetBalanceSource(balances BalanceSource) {
	if c == nil {
		return
	}
	c.balances = balances
}

// SetEmitter wires the event sink for configuration changes.
func (c *CollateralCalculator) SetEmitter(emitter events.Emitter) {
	if c == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	c.emitter = emitter
}

// ScaledMinimumRatio returns the active scaled minimum collateral ratio.
func (c *CollateralCalculator) ScaledMinimumRatio() uint64 {
	if c == nil {
		return DefaultScaledMinCollateralRatio
	}
	return c.scaledMinRatio
}

// SetScaledMinimumRatio replaces the minimum collateral ratio. Owner only. A
// ratio at or below basisPoints would let borrow value exceed supply value, so
// it is declined gracefully and the prior ratio stays in force.
func (c *CollateralCalculator) SetScaledMinimumRatio(caller crypto.Address, ratio uint64) (*Failure, error) {
	if c == nil {
		return nil, errNilEngine
	}
	if err := c.RequireOwner(caller); err != nil {
		return nil, err
	}
	if ratio <= basisPoints.Uint64() {
		fail := failure(CodeCollateralRatioTooLow, new(big.Int).SetUint64(ratio), new(big.Int).SetUint64(c.scaledMinRatio))
		c.emitter.Emit(events.GracefulFailure{Code: fail.Code, Args: fail.Args})
		return fail, nil
	}
	c.scaledMinRatio = ratio
	c.emitter.Emit(events.MinimumCollateralRatioChanged{NewScaledRatio: ratio})
	return nil, nil
}

// AssetValue converts asset units into the oracle's common value unit.
func (c *CollateralCalculator) AssetValue(asset crypto.Address, amount *big.Int) (*big.Int, error) {
	price, err := c.oracle.ScaledPrice(asset)
	if err != nil {
		return nil, err
	}
	return mulDiv(amount, price, priceScale), nil
}

// AssetUnits converts a common unit value back into asset units.
func (c *CollateralCalculator) AssetUnits(asset crypto.Address, value *big.Int) (*big.Int, error) {
	price, err := c.oracle.ScaledPrice(asset)
	if err != nil {
		return nil, err
	}
	return mulDiv(value, priceScale, price), nil
}

// SupplyValue sums the customer's interest-adjusted supply balances in the
// common unit.
func (c *CollateralCalculator) SupplyValue(customer crypto.Address) (*big.Int, error) {
	return c.accountValue(customer, AccountSupply)
}

// BorrowValue sums the customer's interest-adjusted borrow balances in the
// common unit.
func (c *CollateralCalculator) BorrowValue(customer crypto.Address) (*big.Int, error) {
	return c.accountValue(customer, AccountBorrow)
}

func (c *CollateralCalculator) accountValue(customer crypto.Address, account LedgerAccount) (*big.Int, error) {
	if c == nil || c.balances == nil || c.oracle == nil {
		return nil, errNilEngine
	}
	total := big.NewInt(0)
	for _, asset := range c.balances.AssetsOf(customer, account) {
		balance, err := c.balances.AccruedBalance(customer, asset, account)
		if err != nil {
			return nil, err
		}
		if balance.Sign() == 0 {
			continue
		}
		value, err := c.AssetValue(asset, balance)
		if err != nil {
			return nil, err
		}
		total.Add(total, value)
	}
	return total, nil
}

// RequiredCollateral returns the supply value required to carry the given
// borrow value.
func (c *CollateralCalculator) RequiredCollateral(borrowValue *big.Int) *big.Int {
	return bpsOf(borrowValue, c.ScaledMinimumRatio())
}

// Shortfall returns how far the customer's supply value falls below the
// required collateral, or zero when the position is healthy.
func (c *CollateralCalculator) Shortfall(customer crypto.Address) (*big.Int, error) {
	supplyValue, err := c.SupplyValue(customer)
	if err != nil {
		return nil, err
	}
	borrowValue, err := c.BorrowValue(customer)
	if err != nil {
		return nil, err
	}
	required := c.RequiredCollateral(borrowValue)
	if required.Cmp(supplyValue) <= 0 {
		return big.NewInt(0), nil
	}
	return required.Sub(required, supplyValue), nil
}

// MaxBorrowValue returns the additional borrow value the customer's free
// collateral can carry.
func (c *CollateralCalculator) MaxBorrowValue(customer crypto.Address) (*big.Int, error) {
	supplyValue, err := c.SupplyValue(customer)
	if err != nil {
		return nil, err
	}
	borrowValue, err := c.BorrowValue(customer)
	if err != nil {
		return nil, err
	}
	required := c.RequiredCollateral(borrowValue)
	if supplyValue.Cmp(required) <= 0 {
		return big.NewInt(0), nil
	}
	free := new(big.Int).Sub(supplyValue, required)
	return mulDiv(free, basisPoints, new(big.Int).SetUint64(c.ScaledMinimumRatio())), nil
}

// MaxBorrowAvailable converts the customer's free borrow value into units of
// the given asset.
func (c *CollateralCalculator) MaxBorrowAvailable(customer, asset crypto.Address) (*big.Int, error) {
	value, err := c.MaxBorrowValue(customer)
	if err != nil {
		return nil, err
	}
	return c.AssetUnits(asset, value)
}
