package market

import (
	"math/big"
	"testing"

	"moneymarket/core/events"
	"moneymarket/crypto"
)

// fixedBalances is a BalanceSource with static positions.
type fixedBalances struct {
	supply map[string]*big.Int
	borrow map[string]*big.Int
	assets []crypto.Address
}

func (f *fixedBalances) AccruedBalance(_, asset crypto.Address, account LedgerAccount) (*big.Int, error) {
	table := f.supply
	if account == AccountBorrow {
		table = f.borrow
	}
	return clone(table[asset.Key()]), nil
}

func (f *fixedBalances) AssetsOf(crypto.Address, LedgerAccount) []crypto.Address {
	return f.assets
}

func newTestCalculator(t *testing.T) (*CollateralCalculator, *OracleStore, *fixedBalances, crypto.Address) {
	t.Helper()
	owner := marketAddr(crypto.AccountPrefix, 0x01)
	calc := NewCollateralCalculator(owner)
	oracle := NewOracleStore(owner)
	balances := &fixedBalances{
		supply: make(map[string]*big.Int),
		borrow: make(map[string]*big.Int),
	}
	calc.SetOracle(oracle)
	calc.SetBalanceSource(balances)
	return calc, oracle, balances, owner
}

func TestShortfallAndMaxBorrow(t *testing.T) {
	calc, oracle, balances, owner := newTestCalculator(t)
	customer := marketAddr(crypto.AccountPrefix, 0x10)
	asset := marketAddr(crypto.AssetPrefix, 0xa0)
	if err := oracle.SetScaledPrice(owner, asset, big.NewInt(1_000_000_000)); err != nil {
		t.Fatalf("set price: %v", err)
	}
	balances.assets = []crypto.Address{asset}
	balances.supply[asset.Key()] = big.NewInt(100)

	shortfall, err := calc.Shortfall(customer)
	if err != nil {
		t.Fatalf("shortfall: %v", err)
	}
	if shortfall.Sign() != 0 {
		t.Fatalf("shortfall = %s, want 0", shortfall)
	}
	maxBorrow, err := calc.MaxBorrowValue(customer)
	if err != nil {
		t.Fatalf("max borrow: %v", err)
	}
	if maxBorrow.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("max borrow = %s, want 50", maxBorrow)
	}

	// A borrow of 60 against 100 supplied requires 120.
	balances.borrow[asset.Key()] = big.NewInt(60)
	shortfall, err = calc.Shortfall(customer)
	if err != nil {
		t.Fatalf("shortfall: %v", err)
	}
	if shortfall.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("shortfall = %s, want 20", shortfall)
	}
	maxBorrow, err = calc.MaxBorrowValue(customer)
	if err != nil {
		t.Fatalf("max borrow: %v", err)
	}
	if maxBorrow.Sign() != 0 {
		t.Fatalf("max borrow = %s, want 0", maxBorrow)
	}
}

func TestMaxBorrowAvailableConvertsToAssetUnits(t *testing.T) {
	calc, oracle, balances, owner := newTestCalculator(t)
	customer := marketAddr(crypto.AccountPrefix, 0x10)
	collateral := marketAddr(crypto.AssetPrefix, 0xa0)
	borrowAsset := marketAddr(crypto.AssetPrefix, 0xa1)
	if err := oracle.SetScaledPrice(owner, collateral, big.NewInt(3_000_000_000)); err != nil {
		t.Fatalf("set price: %v", err)
	}
	if err := oracle.SetScaledPrice(owner, borrowAsset, big.NewInt(1_000_000_000)); err != nil {
		t.Fatalf("set price: %v", err)
	}
	balances.assets = []crypto.Address{collateral}
	balances.supply[collateral.Key()] = big.NewInt(20)

	// Supply value 60 frees borrow value 30.
	units, err := calc.MaxBorrowAvailable(customer, borrowAsset)
	if err != nil {
		t.Fatalf("max borrow available: %v", err)
	}
	if units.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("available = %s, want 30", units)
	}
}

func TestMaxBorrowValueFloorsAtRatioDivision(t *testing.T) {
	calc, oracle, balances, owner := newTestCalculator(t)
	customer := marketAddr(crypto.AccountPrefix, 0x10)
	asset := marketAddr(crypto.AssetPrefix, 0xa0)
	if err := oracle.SetScaledPrice(owner, asset, big.NewInt(1_000_000_000)); err != nil {
		t.Fatalf("set price: %v", err)
	}
	if fail, err := calc.SetScaledMinimumRatio(owner, 15_000); err != nil || fail != nil {
		t.Fatalf("set ratio: %v %s", err, fail)
	}
	balances.assets = []crypto.Address{asset}
	balances.supply[asset.Key()] = big.NewInt(100)
	balances.borrow[asset.Key()] = big.NewInt(20)

	// Free value 70 carries floor(70/1.5) = 46 of additional borrow.
	maxBorrow, err := calc.MaxBorrowValue(customer)
	if err != nil {
		t.Fatalf("max borrow: %v", err)
	}
	if maxBorrow.Cmp(big.NewInt(46)) != 0 {
		t.Fatalf("max borrow = %s, want 46", maxBorrow)
	}
}

func TestValuesSumAcrossAssets(t *testing.T) {
	calc, oracle, balances, owner := newTestCalculator(t)
	customer := marketAddr(crypto.AccountPrefix, 0x10)
	assetA := marketAddr(crypto.AssetPrefix, 0xa0)
	assetB := marketAddr(crypto.AssetPrefix, 0xa1)
	if err := oracle.SetScaledPrice(owner, assetA, big.NewInt(2_000_000_000)); err != nil {
		t.Fatalf("set price: %v", err)
	}
	if err := oracle.SetScaledPrice(owner, assetB, big.NewInt(500_000_000)); err != nil {
		t.Fatalf("set price: %v", err)
	}
	balances.assets = []crypto.Address{assetA, assetB}
	balances.supply[assetA.Key()] = big.NewInt(10)
	balances.supply[assetB.Key()] = big.NewInt(40)

	value, err := calc.SupplyValue(customer)
	if err != nil {
		t.Fatalf("supply value: %v", err)
	}
	if value.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("supply value = %s, want 40", value)
	}
}

func TestSetScaledMinimumRatio(t *testing.T) {
	calc, _, _, owner := newTestCalculator(t)
	recorder := &events.Recorder{}
	calc.SetEmitter(recorder)

	fail, err := calc.SetScaledMinimumRatio(owner, 10_000)
	if err != nil {
		t.Fatalf("set ratio: %v", err)
	}
	if fail == nil || fail.Code != CodeCollateralRatioTooLow {
		t.Fatalf("expected %s, got %s", CodeCollateralRatioTooLow, fail)
	}
	if calc.ScaledMinimumRatio() != DefaultScaledMinCollateralRatio {
		t.Fatalf("rejected ratio replaced the prior value")
	}

	fail, err = calc.SetScaledMinimumRatio(owner, 25_000)
	if err != nil || fail != nil {
		t.Fatalf("set ratio: %v %s", err, fail)
	}
	if calc.ScaledMinimumRatio() != 25_000 {
		t.Fatalf("ratio = %d, want 25000", calc.ScaledMinimumRatio())
	}
	changes := recorder.ByType(events.TypeMinimumCollateralRatioChanged)
	if len(changes) != 1 {
		t.Fatalf("expected one ratio change event, got %d", len(changes))
	}
	if event := changes[0].(events.MinimumCollateralRatioChanged); event.NewScaledRatio != 25_000 {
		t.Fatalf("event ratio = %d, want 25000", event.NewScaledRatio)
	}

	stranger := marketAddr(crypto.AccountPrefix, 0x99)
	if _, err := calc.SetScaledMinimumRatio(stranger, 30_000); err == nil {
		t.Fatalf("expected error for non-owner caller")
	}
}
