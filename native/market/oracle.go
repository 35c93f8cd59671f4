package market

import (
	"errors"
	"math/big"

	"moneymarket/crypto"
	"moneymarket/native/common"
)

var errNoPrice = errors.New("money market: no oracle price for asset")

// PriceOracle reports asset prices scaled by priceScale in a common value
// unit. Implementations must return a positive price or an error.
type PriceOracle interface {
	ScaledPrice(asset crypto.Address) (*big.Int, error)
}

// OracleStore is the reference PriceOracle: an owner-maintained table of
// scaled prices.
type OracleStore struct {
	common.Owned

	prices map[string]*big.Int
}

// NewOracleStore constructs an empty price table owned by owner.
func NewOracleStore(owner crypto.Address) *OracleStore {
	return &OracleStore{
		Owned:  common.NewOwned(owner),
		prices: make(map[string]*big.Int),
	}
}

// SetScaledPrice writes the price for the asset. Owner only.
func (o *OracleStore) SetScaledPrice(caller, asset crypto.Address, price *big.Int) error {
	if o == nil {
		return errNilEngine
	}
	if err := o.RequireOwner(caller); err != nil {
		return err
	}
	if price == nil || price.Sign() <= 0 {
		return errInvalidAmount
	}
	o.prices[asset.Key()] = clone(price)
	return nil
}

// ScaledPrice implements the PriceOracle interface.
func (o *OracleStore) ScaledPrice(asset crypto.Address) (*big.Int, error) {
	if o == nil {
		return nil, errNoPrice
	}
	price, ok := o.prices[asset.Key()]
	if !ok {
		return nil, errNoPrice
	}
	return clone(price), nil
}
