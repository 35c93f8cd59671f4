package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"moneymarket/crypto"
	"moneymarket/storage"
)

// stateKey is the storage key holding the serialized market state.
var stateKey = []byte("market/state")

// State is the serializable snapshot of the whole market: balance sheet
// totals, customer checkpoints, the rate history and the module
// configuration. It captures everything needed to resume the market on a
// fresh process.
type State struct {
	BlockNumber            uint64             `json:"blockNumber"`
	ScaledMinRatio         uint64             `json:"scaledMinRatio"`
	LiquidationDiscountBPS uint64             `json:"liquidationDiscountBps"`
	Borrowable             []crypto.Address   `json:"borrowable,omitempty"`
	Sheet                  []SheetRecord      `json:"sheet,omitempty"`
	Checkpoints            []CheckpointRecord `json:"checkpoints,omitempty"`
	Rates                  []RateRecord       `json:"rates,omitempty"`
}

// SheetRecord is one balance sheet total.
type SheetRecord struct {
	Asset   crypto.Address `json:"asset"`
	Account string         `json:"account"`
	Balance *big.Int       `json:"balance"`
}

// CheckpointRecord is one customer balance checkpoint.
type CheckpointRecord struct {
	Customer  crypto.Address `json:"customer"`
	Asset     crypto.Address `json:"asset"`
	Account   string         `json:"account"`
	Balance   *big.Int       `json:"balance"`
	BlockUnit uint64         `json:"blockUnit"`
}

// RateRecord is one committed rate snapshot.
type RateRecord struct {
	Asset                crypto.Address `json:"asset"`
	Account              string         `json:"account"`
	BlockUnit            uint64         `json:"blockUnit"`
	ScaledRatePerUnit    *big.Int       `json:"scaledRatePerUnit"`
	TotalAccruedInterest *big.Int       `json:"totalAccruedInterest"`
	Latest               bool           `json:"latest,omitempty"`
}

func accountFromName(name string) (LedgerAccount, error) {
	for _, account := range []LedgerAccount{
		AccountCash, AccountBorrow, AccountSupply,
		AccountInterestExpense, AccountInterestIncome, AccountTrading,
	} {
		if account.String() == name {
			return account, nil
		}
	}
	return 0, fmt.Errorf("money market: unknown ledger account %q", name)
}

// ExportState captures the current market state.
func (m *MoneyMarket) ExportState() *State {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	state := &State{
		BlockNumber:            m.blockNumber,
		ScaledMinRatio:         m.collateral.ScaledMinimumRatio(),
		LiquidationDiscountBPS: m.liquidationDiscountBPS,
	}
	for _, asset := range m.borrowable {
		state.Borrowable = append(state.Borrowable, asset)
	}
	for assetKey, accounts := range m.sheet.totals {
		asset := m.sheet.assets[assetKey]
		for account, balance := range accounts {
			state.Sheet = append(state.Sheet, SheetRecord{
				Asset:   asset,
				Account: account.String(),
				Balance: clone(balance),
			})
		}
	}
	for customerKey, byAsset := range m.ledger.checkpoints {
		customer := m.ledger.customers[customerKey]
		for assetKey, byAccount := range byAsset {
			for account, cp := range byAccount {
				state.Checkpoints = append(state.Checkpoints, CheckpointRecord{
					Customer:  customer,
					Asset:     m.ledger.assets[customerKey][account][assetKey],
					Account:   account.String(),
					Balance:   clone(cp.Balance),
					BlockUnit: cp.BlockUnit,
				})
			}
		}
	}
	for key, units := range m.rates.history {
		asset := m.rates.assets[key.asset]
		latestUnit := m.rates.latest[key]
		for unit, snapshot := range units {
			state.Rates = append(state.Rates, RateRecord{
				Asset:                asset,
				Account:              key.account.String(),
				BlockUnit:            unit,
				ScaledRatePerUnit:    clone(snapshot.ScaledRatePerUnit),
				TotalAccruedInterest: clone(snapshot.TotalAccruedInterest),
				Latest:               unit == latestUnit,
			})
		}
	}
	return state
}

// RestoreState replaces the market state with the snapshot. It is meant for
// startup, before the market serves operations.
func (m *MoneyMarket) RestoreState(state *State) error {
	if m == nil {
		return errNilEngine
	}
	if state == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blockNumber = state.BlockNumber
	if state.LiquidationDiscountBPS > 0 {
		m.liquidationDiscountBPS = state.LiquidationDiscountBPS
	}
	if state.ScaledMinRatio > basisPoints.Uint64() {
		m.collateral.scaledMinRatio = state.ScaledMinRatio
	}
	m.borrowable = make(map[string]crypto.Address, len(state.Borrowable))
	for _, asset := range state.Borrowable {
		m.borrowable[asset.Key()] = asset
	}

	for _, record := range state.Sheet {
		account, err := accountFromName(record.Account)
		if err != nil {
			return err
		}
		if err := m.sheet.Increment(m.self, record.Asset, account, record.Balance); err != nil {
			return err
		}
	}
	for _, record := range state.Checkpoints {
		account, err := accountFromName(record.Account)
		if err != nil {
			return err
		}
		if err := m.ledger.Save(m.self, record.Customer, record.Asset, account, record.Balance, record.BlockUnit); err != nil {
			return err
		}
	}
	for _, record := range state.Rates {
		account, err := accountFromName(record.Account)
		if err != nil {
			return err
		}
		key := keyFor(record.Asset, account)
		units, ok := m.rates.history[key]
		if !ok {
			units = make(map[uint64]*RateSnapshot)
			m.rates.history[key] = units
			m.rates.assets[key.asset] = record.Asset
		}
		units[record.BlockUnit] = &RateSnapshot{
			BlockUnit:            record.BlockUnit,
			ScaledRatePerUnit:    clone(record.ScaledRatePerUnit),
			TotalAccruedInterest: clone(record.TotalAccruedInterest),
		}
		if record.Latest {
			m.rates.latest[key] = record.BlockUnit
		}
	}
	return nil
}

// Persist writes the current state snapshot to the database.
func (m *MoneyMarket) Persist(db storage.Database) error {
	state := m.ExportState()
	if state == nil {
		return errNilEngine
	}
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode market state: %w", err)
	}
	return db.Put(stateKey, encoded)
}

// LoadState restores the market from the database. A missing snapshot leaves
// the market empty.
func (m *MoneyMarket) LoadState(db storage.Database) error {
	encoded, err := db.Get(stateKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	state := &State{}
	if err := json.Unmarshal(encoded, state); err != nil {
		return fmt.Errorf("decode market state: %w", err)
	}
	return m.RestoreState(state)
}
