package market

import (
	"math/big"
	"sync"

	"moneymarket/core/events"
	"moneymarket/crypto"
	"moneymarket/native/common"
)

const moduleName = "market"

// DefaultLiquidationDiscountBPS is the collateral discount granted to
// liquidators.
const DefaultLiquidationDiscountBPS = 200

// MoneyMarket composes the market stores behind a single serialized public
// surface. Operations take the acting customer address explicitly; the market
// itself acts on its stores under its own module address, which is the only
// address on their allow-lists. All public operations are atomic: every
// graceful check runs against staged accruals before the first write.
type MoneyMarket struct {
	common.Owned

	mu          sync.Mutex
	self        crypto.Address
	blockNumber uint64

	model      *InterestRateModel
	rates      *InterestRateStorage
	sheet      *BalanceSheet
	ledger     *LedgerStorage
	collateral *CollateralCalculator
	custody    TokenCustody
	oracle     PriceOracle
	emitter    events.Emitter
	pauses     common.PauseView

	borrowable             map[string]crypto.Address
	liquidationDiscountBPS uint64
}

// NewMoneyMarket constructs a market administered by owner and acting under
// the module address self. The stores are created owned by the module address
// with the module itself as the only allowed writer; the collaborators
// (custody, oracle, emitter) are wired afterwards.
func NewMoneyMarket(owner, self crypto.Address, blockScale uint64) *MoneyMarket {
	m := &MoneyMarket{
		Owned:                  common.NewOwned(owner),
		self:                   self,
		model:                  DefaultInterestRateModel.Clone(),
		rates:                  NewInterestRateStorage(self, blockScale),
		sheet:                  NewBalanceSheet(self),
		ledger:                 NewLedgerStorage(self),
		collateral:             NewCollateralCalculator(self),
		emitter:                events.NoopEmitter{},
		borrowable:             make(map[string]crypto.Address),
		liquidationDiscountBPS: DefaultLiquidationDiscountBPS,
	}
	m.rates.Allow(self, self)
	m.sheet.Allow(self, self)
	m.ledger.Allow(self, self)
	m.collateral.SetBalanceSource(m)
	return m
}

// ModuleAddress returns the address the market presents to its stores.
func (m *MoneyMarket) ModuleAddress() crypto.Address {
	return m.self
}

// SetInterestRateModel replaces the rate curve. Owner only.
func (m *MoneyMarket) SetInterestRateModel(caller crypto.Address, model *InterestRateModel) error {
	if m == nil {
		return errNilEngine
	}
	if err := m.RequireOwner(caller); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if model == nil {
		model = DefaultInterestRateModel
	}
	m.model = model.Clone()
	return nil
}

// SetCustody wires the token custody collaborator. Owner only.
func (m *MoneyMarket) SetCustody(caller crypto.Address, custody TokenCustody) error {
	if m == nil {
		return errNilEngine
	}
	if err := m.RequireOwner(caller); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.custody = custody
	return nil
}

// SetOracle wires the price oracle. Owner only.
func (m *MoneyMarket) SetOracle(caller crypto.Address, oracle PriceOracle) error {
	if m == nil {
		return errNilEngine
	}
	if err := m.RequireOwner(caller); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oracle = oracle
	m.collateral.SetOracle(oracle)
	return nil
}

// SetEmitter wires the event sink. Owner only.
func (m *MoneyMarket) SetEmitter(caller crypto.Address, emitter events.Emitter) error {
	if m == nil {
		return errNilEngine
	}
	if err := m.RequireOwner(caller); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	m.emitter = emitter
	m.collateral.SetEmitter(emitter)
	return nil
}

// SetPauses wires the module pause switches.
func (m *MoneyMarket) SetPauses(pauses common.PauseView) {
	if m == nil {
		return
	}
	m.pauses = pauses
}

// SetBlockNumber advances the execution clock. Owner only. The clock never
// runs backwards; a lower block number is ignored.
func (m *MoneyMarket) SetBlockNumber(caller crypto.Address, blockNumber uint64) error {
	if m == nil {
		return errNilEngine
	}
	if err := m.RequireOwner(caller); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if blockNumber > m.blockNumber {
		m.blockNumber = blockNumber
	}
	return nil
}

// BlockNumber returns the current execution clock.
func (m *MoneyMarket) BlockNumber() uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blockNumber
}

// SetLiquidationDiscountBPS configures the liquidation discount. Owner only.
// The discount must leave a positive discounted price.
func (m *MoneyMarket) SetLiquidationDiscountBPS(caller crypto.Address, bps uint64) error {
	if m == nil {
		return errNilEngine
	}
	if err := m.RequireOwner(caller); err != nil {
		return err
	}
	if bps >= basisPoints.Uint64() {
		return errInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liquidationDiscountBPS = bps
	return nil
}

// SetScaledMinimumCollateralRatio replaces the minimum collateral ratio.
// Owner only; a ratio at or below basisPoints is declined gracefully.
func (m *MoneyMarket) SetScaledMinimumCollateralRatio(caller crypto.Address, ratio uint64) (*Failure, error) {
	if m == nil {
		return nil, errNilEngine
	}
	if err := m.RequireOwner(caller); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collateral.SetScaledMinimumRatio(m.self, ratio)
}

// ScaledMinimumCollateralRatio returns the active minimum collateral ratio.
func (m *MoneyMarket) ScaledMinimumCollateralRatio() uint64 {
	if m == nil {
		return DefaultScaledMinCollateralRatio
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collateral.ScaledMinimumRatio()
}

// AddBorrowableAsset admits an asset for borrowing. Owner only, idempotent.
// The asset must be registered with custody first.
func (m *MoneyMarket) AddBorrowableAsset(caller, asset crypto.Address) error {
	if m == nil {
		return errNilEngine
	}
	if err := m.RequireOwner(caller); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.custody == nil || !m.custody.Registered(asset) {
		return errUnknownAsset
	}
	if _, ok := m.borrowable[asset.Key()]; ok {
		return nil
	}
	m.borrowable[asset.Key()] = asset
	m.emitter.Emit(events.NewBorrowableAsset{Asset: asset})
	return nil
}

// Borrowable reports whether the asset is in the borrowable set.
func (m *MoneyMarket) Borrowable(asset crypto.Address) bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.borrowable[asset.Key()]
	return ok
}

// SupplyBalance returns the customer's interest-adjusted supply balance.
func (m *MoneyMarket) SupplyBalance(customer, asset crypto.Address) (*big.Int, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AccruedBalance(customer, asset, AccountSupply)
}

// BorrowBalance returns the customer's interest-adjusted borrow balance.
func (m *MoneyMarket) BorrowBalance(customer, asset crypto.Address) (*big.Int, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AccruedBalance(customer, asset, AccountBorrow)
}

// CashBalance returns the protocol cash total for the asset.
func (m *MoneyMarket) CashBalance(asset crypto.Address) *big.Int {
	if m == nil {
		return big.NewInt(0)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sheet.Balance(asset, AccountCash)
}

// SheetBalance returns the protocol total for the asset account.
func (m *MoneyMarket) SheetBalance(asset crypto.Address, account LedgerAccount) *big.Int {
	if m == nil {
		return big.NewInt(0)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sheet.Balance(asset, account)
}

// CollateralShortfall returns how far the customer's collateral falls below
// the required minimum.
func (m *MoneyMarket) CollateralShortfall(customer crypto.Address) (*big.Int, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collateral.Shortfall(customer)
}

// MaxBorrowAvailable returns how many units of the asset the customer's free
// collateral can carry.
func (m *MoneyMarket) MaxBorrowAvailable(customer, asset crypto.Address) (*big.Int, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collateral.MaxBorrowAvailable(customer, asset)
}

// scaledDiscountPrice applies the liquidation discount to a scaled price.
// priceScale/basisPoints divides exactly, so the discounted price carries no
// rounding of its own.
func scaledDiscountPrice(scaledPrice *big.Int, discountBPS uint64) *big.Int {
	discounted := new(big.Int).Mul(scaledPrice, new(big.Int).SetUint64(basisPoints.Uint64()-discountBPS))
	exact := new(big.Int).Quo(priceScale, basisPoints)
	return discounted.Mul(discounted, exact)
}

// ConvertedAssetValueWithDiscount converts amount units of fromAsset into
// units of toAsset at the oracle prices with the given discount applied to the
// target price. The single floor lands at the final division.
func (m *MoneyMarket) ConvertedAssetValueWithDiscount(fromAsset, toAsset crypto.Address, amount *big.Int, discountBPS uint64) (*big.Int, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if discountBPS >= basisPoints.Uint64() {
		return nil, errInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.convertWithDiscount(fromAsset, toAsset, amount, discountBPS)
}

func (m *MoneyMarket) convertWithDiscount(fromAsset, toAsset crypto.Address, amount *big.Int, discountBPS uint64) (*big.Int, error) {
	priceFrom, err := m.oracle.ScaledPrice(fromAsset)
	if err != nil {
		return nil, err
	}
	priceTo, err := m.oracle.ScaledPrice(toAsset)
	if err != nil {
		return nil, err
	}
	discounted := scaledDiscountPrice(priceTo, discountBPS)
	numerator := new(big.Int).Mul(amount, priceFrom)
	numerator.Mul(numerator, priceScale)
	return numerator.Quo(numerator, discounted), nil
}

func (m *MoneyMarket) ready() error {
	if m == nil {
		return errNilEngine
	}
	if m.custody == nil || m.oracle == nil {
		return errNoState
	}
	return nil
}

func (m *MoneyMarket) guardOperation(amount *big.Int) error {
	if err := m.ready(); err != nil {
		return err
	}
	if err := common.Guard(m.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	return nil
}

// fail records a graceful business decline: it emits the failure event and
// returns the typed failure with a nil error.
func (m *MoneyMarket) fail(code string, args ...*big.Int) (*Failure, error) {
	f := failure(code, args...)
	m.emitter.Emit(events.GracefulFailure{Code: f.Code, Args: f.Args})
	return f, nil
}
