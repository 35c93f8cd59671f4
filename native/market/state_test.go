package market

import (
	"math/big"
	"testing"

	"moneymarket/crypto"
	"moneymarket/storage"
)

func TestStatePersistRoundTrip(t *testing.T) {
	tm := newTestMarket(t)
	asset := tm.registerAsset(t, 0xa0, 1_000_000_000)
	alice := marketAddr(crypto.AccountPrefix, 0x10)
	tm.fund(t, asset, alice, 1000)

	if err := tm.market.AddBorrowableAsset(tm.owner, asset); err != nil {
		t.Fatalf("add borrowable: %v", err)
	}
	tm.supply(t, alice, asset, 600)
	if err := tm.market.SetBlockNumber(tm.owner, 42); err != nil {
		t.Fatalf("set block: %v", err)
	}
	tm.borrow(t, alice, asset, 50)
	if fail, err := tm.market.SetScaledMinimumCollateralRatio(tm.owner, 25_000); err != nil || fail != nil {
		t.Fatalf("set ratio: %v %s", err, fail)
	}

	db := storage.NewMemDB()
	defer db.Close()
	if err := tm.market.Persist(db); err != nil {
		t.Fatalf("persist: %v", err)
	}

	// A fresh market restored from the snapshot reports the same positions
	// and configuration.
	restored := NewMoneyMarket(tm.owner, tm.market.ModuleAddress(), 1)
	if err := restored.SetCustody(tm.owner, tm.custody); err != nil {
		t.Fatalf("set custody: %v", err)
	}
	if err := restored.SetOracle(tm.owner, tm.oracle); err != nil {
		t.Fatalf("set oracle: %v", err)
	}
	if err := restored.LoadState(db); err != nil {
		t.Fatalf("load state: %v", err)
	}

	if restored.BlockNumber() != 42 {
		t.Fatalf("block = %d, want 42", restored.BlockNumber())
	}
	if restored.ScaledMinimumCollateralRatio() != 25_000 {
		t.Fatalf("ratio = %d, want 25000", restored.ScaledMinimumCollateralRatio())
	}
	if !restored.Borrowable(asset) {
		t.Fatalf("borrowable set lost")
	}
	supply, err := restored.SupplyBalance(alice, asset)
	requireBalance(t, supply, err, 650)
	borrow, err := restored.BorrowBalance(alice, asset)
	requireBalance(t, borrow, err, 50)
	if got := restored.CashBalance(asset); got.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("cash = %s, want 600", got)
	}
	if got := restored.SheetBalance(asset, AccountBorrow); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("sheet borrow = %s, want 50", got)
	}
}

func TestLoadStateMissingSnapshotIsEmpty(t *testing.T) {
	tm := newTestMarket(t)
	db := storage.NewMemDB()
	defer db.Close()

	if err := tm.market.LoadState(db); err != nil {
		t.Fatalf("load state: %v", err)
	}
	if tm.market.BlockNumber() != 0 {
		t.Fatalf("fresh market has nonzero block")
	}
}
