package market

import (
	"math/big"
	"sort"

	"moneymarket/crypto"
	"moneymarket/native/common"
)

// Checkpoint is a customer balance in one asset account together with the
// block unit at which it was last settled. Accrual between the checkpoint
// unit and the current unit is derived from the rate history, never stored.
type Checkpoint struct {
	Balance   *big.Int
	BlockUnit uint64
}

func (c *Checkpoint) clone() *Checkpoint {
	if c == nil {
		return nil
	}
	return &Checkpoint{Balance: clone(c.Balance), BlockUnit: c.BlockUnit}
}

// LedgerStorage keeps the per customer, per asset, per account balance
// checkpoints and an asset index per customer account. Checkpoints are
// created lazily and never deleted; a zero balance is an ordinary terminal
// value. Writers must be on the allow-list.
type LedgerStorage struct {
	common.Allowed

	checkpoints map[string]map[string]map[LedgerAccount]*Checkpoint
	assets      map[string]map[LedgerAccount]map[string]crypto.Address
	customers   map[string]crypto.Address
}

// NewLedgerStorage constructs an empty checkpoint store owned by owner.
func NewLedgerStorage(owner crypto.Address) *LedgerStorage {
	return &LedgerStorage{
		Allowed:     common.NewAllowed(owner),
		checkpoints: make(map[string]map[string]map[LedgerAccount]*Checkpoint),
		assets:      make(map[string]map[LedgerAccount]map[string]crypto.Address),
		customers:   make(map[string]crypto.Address),
	}
}

// Balance returns the checkpoint for the customer asset account. Customers
// without a checkpoint report a zero balance at unit zero.
func (l *LedgerStorage) Balance(customer, asset crypto.Address, account LedgerAccount) (*big.Int, uint64) {
	if l == nil {
		return big.NewInt(0), 0
	}
	byAsset, ok := l.checkpoints[customer.Key()]
	if !ok {
		return big.NewInt(0), 0
	}
	byAccount, ok := byAsset[asset.Key()]
	if !ok {
		return big.NewInt(0), 0
	}
	cp, ok := byAccount[account]
	if !ok {
		return big.NewInt(0), 0
	}
	return clone(cp.Balance), cp.BlockUnit
}

// HasCheckpoint reports whether the customer asset account was ever settled.
func (l *LedgerStorage) HasCheckpoint(customer, asset crypto.Address, account LedgerAccount) bool {
	if l == nil {
		return false
	}
	byAsset, ok := l.checkpoints[customer.Key()]
	if !ok {
		return false
	}
	byAccount, ok := byAsset[asset.Key()]
	if !ok {
		return false
	}
	_, ok = byAccount[account]
	return ok
}

// Save writes the checkpoint for the customer asset account and maintains the
// customer asset index.
func (l *LedgerStorage) Save(caller, customer, asset crypto.Address, account LedgerAccount, balance *big.Int, blockUnit uint64) error {
	if l == nil {
		return errNilEngine
	}
	if err := l.RequireAllowed(caller); err != nil {
		return err
	}
	if balance == nil || balance.Sign() < 0 {
		return errInvalidAmount
	}
	customerKey := customer.Key()
	byAsset, ok := l.checkpoints[customerKey]
	if !ok {
		byAsset = make(map[string]map[LedgerAccount]*Checkpoint)
		l.checkpoints[customerKey] = byAsset
		l.customers[customerKey] = customer
	}
	byAccount, ok := byAsset[asset.Key()]
	if !ok {
		byAccount = make(map[LedgerAccount]*Checkpoint)
		byAsset[asset.Key()] = byAccount
	}
	byAccount[account] = &Checkpoint{Balance: clone(balance), BlockUnit: blockUnit}

	index, ok := l.assets[customerKey]
	if !ok {
		index = make(map[LedgerAccount]map[string]crypto.Address)
		l.assets[customerKey] = index
	}
	perAccount, ok := index[account]
	if !ok {
		perAccount = make(map[string]crypto.Address)
		index[account] = perAccount
	}
	perAccount[asset.Key()] = asset
	return nil
}

// AssetsOf returns every asset the customer ever checkpointed in the account,
// in a stable order.
func (l *LedgerStorage) AssetsOf(customer crypto.Address, account LedgerAccount) []crypto.Address {
	if l == nil {
		return nil
	}
	index, ok := l.assets[customer.Key()]
	if !ok {
		return nil
	}
	perAccount, ok := index[account]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(perAccount))
	for key := range perAccount {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]crypto.Address, 0, len(keys))
	for _, key := range keys {
		out = append(out, perAccount[key])
	}
	return out
}
