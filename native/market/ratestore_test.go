package market

import (
	"math/big"
	"testing"

	"moneymarket/crypto"
)

func TestRateSnapshotsAreMemoizedPerUnit(t *testing.T) {
	owner := marketAddr(crypto.AccountPrefix, 0x01)
	asset := marketAddr(crypto.AssetPrefix, 0xa0)
	store := NewInterestRateStorage(owner, 1)
	if err := store.Allow(owner, owner); err != nil {
		t.Fatalf("allow: %v", err)
	}

	first := store.Prepare(asset, AccountBorrow, 10, big.NewInt(100))
	if err := store.Commit(owner, first); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// A second prepare at the same unit returns the committed snapshot even
	// when the rate input changed.
	again := store.Prepare(asset, AccountBorrow, 10, big.NewInt(999))
	if again.Snapshot().ScaledRatePerUnit.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("memoized rate = %s, want 100", again.Snapshot().ScaledRatePerUnit)
	}
	if err := store.Commit(owner, again); err != nil {
		t.Fatalf("commit cached: %v", err)
	}
	if got := store.Stored(asset, AccountBorrow, 10); got.ScaledRatePerUnit.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("stored rate = %s, want 100", got.ScaledRatePerUnit)
	}
}

func TestRateSnapshotExtendsCumulativeTotal(t *testing.T) {
	owner := marketAddr(crypto.AccountPrefix, 0x01)
	asset := marketAddr(crypto.AssetPrefix, 0xa0)
	store := NewInterestRateStorage(owner, 1)
	if err := store.Allow(owner, owner); err != nil {
		t.Fatalf("allow: %v", err)
	}

	if err := store.Commit(owner, store.Prepare(asset, AccountBorrow, 5, big.NewInt(100))); err != nil {
		t.Fatalf("commit: %v", err)
	}
	// 21 units at the prior rate of 100, then the rate changes to 250.
	pending := store.Prepare(asset, AccountBorrow, 26, big.NewInt(250))
	snap := pending.Snapshot()
	if snap.TotalAccruedInterest.Cmp(big.NewInt(2100)) != 0 {
		t.Fatalf("total = %s, want 2100", snap.TotalAccruedInterest)
	}
	if snap.ScaledRatePerUnit.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("rate = %s, want 250", snap.ScaledRatePerUnit)
	}
	if err := store.Commit(owner, pending); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// The next interval accrues at the new rate.
	next := store.Prepare(asset, AccountBorrow, 30, big.NewInt(0)).Snapshot()
	if next.TotalAccruedInterest.Cmp(big.NewInt(2100+4*250)) != 0 {
		t.Fatalf("total = %s, want 3100", next.TotalAccruedInterest)
	}
}

func TestRateSnapshotBlockScaleMultipliesRate(t *testing.T) {
	owner := marketAddr(crypto.AccountPrefix, 0x01)
	asset := marketAddr(crypto.AssetPrefix, 0xa0)
	store := NewInterestRateStorage(owner, 10)

	pending := store.Prepare(asset, AccountSupply, 3, big.NewInt(7))
	if got := pending.Snapshot().ScaledRatePerUnit; got.Cmp(big.NewInt(70)) != 0 {
		t.Fatalf("per-unit rate = %s, want 70", got)
	}
}

func TestRateCommitRequiresAllowedCaller(t *testing.T) {
	owner := marketAddr(crypto.AccountPrefix, 0x01)
	stranger := marketAddr(crypto.AccountPrefix, 0x02)
	asset := marketAddr(crypto.AssetPrefix, 0xa0)
	store := NewInterestRateStorage(owner, 1)

	pending := store.Prepare(asset, AccountSupply, 1, big.NewInt(5))
	if err := store.Commit(stranger, pending); err == nil {
		t.Fatalf("expected error for caller off the allow-list")
	}
	if store.Stored(asset, AccountSupply, 1) != nil {
		t.Fatalf("snapshot written despite rejected commit")
	}
}

func TestRateOutOfOrderUnitsOverwriteSilently(t *testing.T) {
	owner := marketAddr(crypto.AccountPrefix, 0x01)
	asset := marketAddr(crypto.AssetPrefix, 0xa0)
	store := NewInterestRateStorage(owner, 1)
	if err := store.Allow(owner, owner); err != nil {
		t.Fatalf("allow: %v", err)
	}

	if err := store.Commit(owner, store.Prepare(asset, AccountBorrow, 20, big.NewInt(100))); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := store.Commit(owner, store.Prepare(asset, AccountBorrow, 10, big.NewInt(40))); err != nil {
		t.Fatalf("commit: %v", err)
	}
	// The late unit is written without extending the total; the latest unit
	// pointer stays at 20.
	early := store.Stored(asset, AccountBorrow, 10)
	if early == nil || early.TotalAccruedInterest.Sign() != 0 {
		t.Fatalf("unexpected early snapshot %+v", early)
	}
	if latest := store.Latest(asset, AccountBorrow); latest.BlockUnit != 20 {
		t.Fatalf("latest unit = %d, want 20", latest.BlockUnit)
	}
}
