package market

import (
	"math/big"
	"testing"

	"moneymarket/crypto"
)

func TestBalanceSheetIncrementDecrement(t *testing.T) {
	owner := marketAddr(crypto.AccountPrefix, 0x01)
	asset := marketAddr(crypto.AssetPrefix, 0xa0)
	sheet := NewBalanceSheet(owner)
	if err := sheet.Allow(owner, owner); err != nil {
		t.Fatalf("allow: %v", err)
	}

	if err := sheet.Increment(owner, asset, AccountCash, big.NewInt(100)); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if got := sheet.Balance(asset, AccountCash); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("cash = %s, want 100", got)
	}

	ok, err := sheet.Decrement(owner, asset, AccountCash, big.NewInt(40))
	if err != nil || !ok {
		t.Fatalf("decrement: %v ok=%v", err, ok)
	}
	if got := sheet.Balance(asset, AccountCash); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("cash = %s, want 60", got)
	}
}

func TestBalanceSheetDecrementNeverUnderflows(t *testing.T) {
	owner := marketAddr(crypto.AccountPrefix, 0x01)
	asset := marketAddr(crypto.AssetPrefix, 0xa0)
	sheet := NewBalanceSheet(owner)
	if err := sheet.Allow(owner, owner); err != nil {
		t.Fatalf("allow: %v", err)
	}
	if err := sheet.Increment(owner, asset, AccountSupply, big.NewInt(10)); err != nil {
		t.Fatalf("increment: %v", err)
	}

	ok, err := sheet.Decrement(owner, asset, AccountSupply, big.NewInt(11))
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if ok {
		t.Fatalf("decrement past zero must report false")
	}
	if got := sheet.Balance(asset, AccountSupply); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("failed decrement mutated the total: %s", got)
	}
}

func TestBalanceSheetRequiresAllowedCaller(t *testing.T) {
	owner := marketAddr(crypto.AccountPrefix, 0x01)
	stranger := marketAddr(crypto.AccountPrefix, 0x02)
	asset := marketAddr(crypto.AssetPrefix, 0xa0)
	sheet := NewBalanceSheet(owner)

	if err := sheet.Increment(stranger, asset, AccountCash, big.NewInt(1)); err == nil {
		t.Fatalf("expected error for caller off the allow-list")
	}
	if _, err := sheet.Decrement(stranger, asset, AccountCash, big.NewInt(1)); err == nil {
		t.Fatalf("expected error for caller off the allow-list")
	}
}

func TestLedgerStorageCheckpointsAndAssetIndex(t *testing.T) {
	owner := marketAddr(crypto.AccountPrefix, 0x01)
	customer := marketAddr(crypto.AccountPrefix, 0x10)
	assetA := marketAddr(crypto.AssetPrefix, 0xa0)
	assetB := marketAddr(crypto.AssetPrefix, 0xa1)
	ledger := NewLedgerStorage(owner)
	if err := ledger.Allow(owner, owner); err != nil {
		t.Fatalf("allow: %v", err)
	}

	balance, unit := ledger.Balance(customer, assetA, AccountSupply)
	if balance.Sign() != 0 || unit != 0 {
		t.Fatalf("fresh checkpoint = %s@%d, want 0@0", balance, unit)
	}
	if ledger.HasCheckpoint(customer, assetA, AccountSupply) {
		t.Fatalf("checkpoint must not exist before the first save")
	}

	if err := ledger.Save(owner, customer, assetA, AccountSupply, big.NewInt(500), 7); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := ledger.Save(owner, customer, assetB, AccountSupply, big.NewInt(200), 7); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := ledger.Save(owner, customer, assetA, AccountBorrow, big.NewInt(50), 9); err != nil {
		t.Fatalf("save: %v", err)
	}

	balance, unit = ledger.Balance(customer, assetA, AccountSupply)
	if balance.Cmp(big.NewInt(500)) != 0 || unit != 7 {
		t.Fatalf("checkpoint = %s@%d, want 500@7", balance, unit)
	}
	if got := ledger.AssetsOf(customer, AccountSupply); len(got) != 2 {
		t.Fatalf("supply assets = %d, want 2", len(got))
	}
	if got := ledger.AssetsOf(customer, AccountBorrow); len(got) != 1 || !got[0].Equal(assetA) {
		t.Fatalf("unexpected borrow assets %v", got)
	}

	// Zero is an ordinary terminal value, not a deletion.
	if err := ledger.Save(owner, customer, assetA, AccountBorrow, big.NewInt(0), 12); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !ledger.HasCheckpoint(customer, assetA, AccountBorrow) {
		t.Fatalf("zero balance checkpoint must survive")
	}
	if got := ledger.AssetsOf(customer, AccountBorrow); len(got) != 1 {
		t.Fatalf("borrow asset index shrank on zero balance")
	}
}

func TestLedgerStorageRejectsNegativeBalances(t *testing.T) {
	owner := marketAddr(crypto.AccountPrefix, 0x01)
	customer := marketAddr(crypto.AccountPrefix, 0x10)
	asset := marketAddr(crypto.AssetPrefix, 0xa0)
	ledger := NewLedgerStorage(owner)
	if err := ledger.Allow(owner, owner); err != nil {
		t.Fatalf("allow: %v", err)
	}

	if err := ledger.Save(owner, customer, asset, AccountSupply, big.NewInt(-1), 0); err == nil {
		t.Fatalf("expected error for negative balance")
	}
}
