package market

import (
	"math/big"

	"moneymarket/crypto"
	"moneymarket/native/common"
)

// RateSnapshot is the cumulative interest index for one asset account at one
// block unit. TotalAccruedInterest is the running sum of rate times elapsed
// units since the asset was first touched; the interest owed to a balance over
// an interval is balance times the index delta over interestRateScale.
type RateSnapshot struct {
	BlockUnit            uint64
	ScaledRatePerUnit    *big.Int
	TotalAccruedInterest *big.Int
}

func (s *RateSnapshot) clone() *RateSnapshot {
	if s == nil {
		return nil
	}
	return &RateSnapshot{
		BlockUnit:            s.BlockUnit,
		ScaledRatePerUnit:    clone(s.ScaledRatePerUnit),
		TotalAccruedInterest: clone(s.TotalAccruedInterest),
	}
}

// PendingSnapshot is a computed but unwritten snapshot. Operations prepare
// snapshots during validation and commit them only once every graceful check
// has passed, so a declined operation leaves the rate history untouched.
type PendingSnapshot struct {
	asset    crypto.Address
	account  LedgerAccount
	snapshot *RateSnapshot
	cached   bool
}

// Snapshot returns the prepared snapshot value.
func (p *PendingSnapshot) Snapshot() *RateSnapshot {
	if p == nil {
		return nil
	}
	return p.snapshot
}

// InterestRateStorage keeps the per asset, per account history of cumulative
// rate snapshots. The unit history is memoized: once a block unit is written
// its snapshot never changes, so repeated accruals inside one unit are
// idempotent. Units arriving below the latest written unit overwrite their
// slot silently.
type InterestRateStorage struct {
	common.Allowed

	blockScale uint64
	history    map[rateKey]map[uint64]*RateSnapshot
	latest     map[rateKey]uint64
	assets     map[string]crypto.Address
}

// NewInterestRateStorage constructs the rate history with the given owner and
// block scale. A zero block scale is treated as one.
func NewInterestRateStorage(owner crypto.Address, blockScale uint64) *InterestRateStorage {
	if blockScale == 0 {
		blockScale = 1
	}
	return &InterestRateStorage{
		Allowed:    common.NewAllowed(owner),
		blockScale: blockScale,
		history:    make(map[rateKey]map[uint64]*RateSnapshot),
		latest:     make(map[rateKey]uint64),
		assets:     make(map[string]crypto.Address),
	}
}

// BlockScale returns the configured block to unit divisor.
func (s *InterestRateStorage) BlockScale() uint64 {
	if s == nil {
		return 1
	}
	return s.blockScale
}

type rateKey struct {
	asset   string
	account LedgerAccount
}

func keyFor(asset crypto.Address, account LedgerAccount) rateKey {
	return rateKey{asset: asset.Key(), account: account}
}

// Stored returns the committed snapshot for the asset account at the given
// unit, or nil when the unit was never written.
func (s *InterestRateStorage) Stored(asset crypto.Address, account LedgerAccount, blockUnit uint64) *RateSnapshot {
	if s == nil {
		return nil
	}
	units, ok := s.history[keyFor(asset, account)]
	if !ok {
		return nil
	}
	return units[blockUnit].clone()
}

// Latest returns the snapshot at the highest committed unit for the asset
// account, or nil when the history is empty.
func (s *InterestRateStorage) Latest(asset crypto.Address, account LedgerAccount) *RateSnapshot {
	if s == nil {
		return nil
	}
	key := keyFor(asset, account)
	units, ok := s.history[key]
	if !ok {
		return nil
	}
	return units[s.latest[key]].clone()
}

// Prepare computes the snapshot for the asset account at blockUnit without
// writing it. scaledRatePerBlock is the model rate for the account side at the
// current balance sheet volumes; the per-unit rate multiplies in the block
// scale. A unit that is already committed returns the cached snapshot.
func (s *InterestRateStorage) Prepare(asset crypto.Address, account LedgerAccount, blockUnit uint64, scaledRatePerBlock *big.Int) *PendingSnapshot {
	key := keyFor(asset, account)
	if units, ok := s.history[key]; ok {
		if cached, ok := units[blockUnit]; ok {
			return &PendingSnapshot{asset: asset, account: account, snapshot: cached.clone(), cached: true}
		}
	}

	perUnit := new(big.Int).Mul(scaledRatePerBlock, new(big.Int).SetUint64(s.blockScale))
	next := &RateSnapshot{
		BlockUnit:            blockUnit,
		ScaledRatePerUnit:    perUnit,
		TotalAccruedInterest: big.NewInt(0),
	}
	if prior := s.Latest(asset, account); prior != nil {
		next.TotalAccruedInterest = clone(prior.TotalAccruedInterest)
		if blockUnit > prior.BlockUnit {
			elapsed := new(big.Int).SetUint64(blockUnit - prior.BlockUnit)
			next.TotalAccruedInterest.Add(next.TotalAccruedInterest, elapsed.Mul(elapsed, prior.ScaledRatePerUnit))
		}
	}
	return &PendingSnapshot{asset: asset, account: account, snapshot: next}
}

// Commit writes a prepared snapshot into the history. Cached snapshots commit
// as a no-op. Callers must be on the allow-list.
func (s *InterestRateStorage) Commit(caller crypto.Address, pending *PendingSnapshot) error {
	if s == nil {
		return errNilEngine
	}
	if err := s.RequireAllowed(caller); err != nil {
		return err
	}
	if pending == nil || pending.snapshot == nil || pending.cached {
		return nil
	}
	key := keyFor(pending.asset, pending.account)
	units, ok := s.history[key]
	if !ok {
		units = make(map[uint64]*RateSnapshot)
		s.history[key] = units
		s.assets[key.asset] = pending.asset
	}
	units[pending.snapshot.BlockUnit] = pending.snapshot.clone()
	if pending.snapshot.BlockUnit >= s.latest[key] {
		s.latest[key] = pending.snapshot.BlockUnit
	}
	return nil
}
