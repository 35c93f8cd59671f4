package market

import (
	"math/big"

	"moneymarket/core/events"
	"moneymarket/crypto"
	"moneymarket/native/common"
)

// TokenCustody moves asset units between customer wallets and the protocol
// vault. Transfers report ok=false for ordinary shortfalls (insufficient
// wallet or vault balance) and reserve the error return for fatal faults such
// as an unregistered asset or an unauthorized caller.
type TokenCustody interface {
	Registered(asset crypto.Address) bool
	TransferIn(caller, asset, from crypto.Address, amount *big.Int) (bool, error)
	TransferOut(caller, asset, to crypto.Address, amount *big.Int) (bool, error)
	WalletBalance(asset, customer crypto.Address) *big.Int
	VaultBalance(asset crypto.Address) *big.Int
}

// TokenStore is the reference TokenCustody: an in-process wallet table plus
// the protocol vault, with an owner-maintained asset register. Movers must be
// on the allow-list.
type TokenStore struct {
	common.Allowed

	registered map[string]struct{}
	wallets    map[string]map[string]*big.Int
	vault      map[string]*big.Int
	emitter    events.Emitter
}

// NewTokenStore constructs an empty custody owned by owner.
func NewTokenStore(owner crypto.Address) *TokenStore {
	return &TokenStore{
		Allowed:    common.NewAllowed(owner),
		registered: make(map[string]struct{}),
		wallets:    make(map[string]map[string]*big.Int),
		vault:      make(map[string]*big.Int),
		emitter:    events.NoopEmitter{},
	}
}

// SetEmitter wires the event sink used for transfer out notifications.
func (t *TokenStore) SetEmitter(emitter events.Emitter) {
	if t == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	t.emitter = emitter
}

// Register admits an asset into custody. Owner only, idempotent.
func (t *TokenStore) Register(caller, asset crypto.Address) error {
	if t == nil {
		return errNilEngine
	}
	if err := t.RequireOwner(caller); err != nil {
		return err
	}
	t.registered[asset.Key()] = struct{}{}
	return nil
}

// Registered implements the TokenCustody interface.
func (t *TokenStore) Registered(asset crypto.Address) bool {
	if t == nil {
		return false
	}
	_, ok := t.registered[asset.Key()]
	return ok
}

// Mint credits a customer wallet. Owner only; used for genesis funding and
// tests.
func (t *TokenStore) Mint(caller, asset, customer crypto.Address, amount *big.Int) error {
	if t == nil {
		return errNilEngine
	}
	if err := t.RequireOwner(caller); err != nil {
		return err
	}
	if !t.Registered(asset) {
		return errUnknownAsset
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	t.creditWallet(asset, customer, amount)
	return nil
}

// WalletBalance implements the TokenCustody interface.
func (t *TokenStore) WalletBalance(asset, customer crypto.Address) *big.Int {
	if t == nil {
		return big.NewInt(0)
	}
	byCustomer, ok := t.wallets[asset.Key()]
	if !ok {
		return big.NewInt(0)
	}
	return clone(byCustomer[customer.Key()])
}

// VaultBalance implements the TokenCustody interface.
func (t *TokenStore) VaultBalance(asset crypto.Address) *big.Int {
	if t == nil {
		return big.NewInt(0)
	}
	return clone(t.vault[asset.Key()])
}

// TransferIn implements the TokenCustody interface: it moves amount from the
// customer wallet into the vault.
func (t *TokenStore) TransferIn(caller, asset, from crypto.Address, amount *big.Int) (bool, error) {
	if t == nil {
		return false, errNilEngine
	}
	if err := t.RequireAllowed(caller); err != nil {
		return false, err
	}
	if !t.Registered(asset) {
		return false, errUnknownAsset
	}
	if amount == nil || amount.Sign() <= 0 {
		return false, errInvalidAmount
	}
	balance := t.WalletBalance(asset, from)
	if balance.Cmp(amount) < 0 {
		return false, nil
	}
	t.debitWallet(asset, from, amount)
	vault := t.vault[asset.Key()]
	if vault == nil {
		vault = big.NewInt(0)
	}
	t.vault[asset.Key()] = new(big.Int).Add(vault, amount)
	return true, nil
}

// TransferOut implements the TokenCustody interface: it moves amount from the
// vault into the recipient wallet and emits a transfer out event.
func (t *TokenStore) TransferOut(caller, asset, to crypto.Address, amount *big.Int) (bool, error) {
	if t == nil {
		return false, errNilEngine
	}
	if err := t.RequireAllowed(caller); err != nil {
		return false, err
	}
	if !t.Registered(asset) {
		return false, errUnknownAsset
	}
	if amount == nil || amount.Sign() <= 0 {
		return false, errInvalidAmount
	}
	vault := t.vault[asset.Key()]
	if vault == nil || vault.Cmp(amount) < 0 {
		return false, nil
	}
	t.vault[asset.Key()] = new(big.Int).Sub(vault, amount)
	t.creditWallet(asset, to, amount)
	t.emitter.Emit(events.TransferOut{Asset: asset, Recipient: to, Amount: clone(amount)})
	return true, nil
}

func (t *TokenStore) creditWallet(asset, customer crypto.Address, amount *big.Int) {
	byCustomer, ok := t.wallets[asset.Key()]
	if !ok {
		byCustomer = make(map[string]*big.Int)
		t.wallets[asset.Key()] = byCustomer
	}
	current := byCustomer[customer.Key()]
	if current == nil {
		current = big.NewInt(0)
	}
	byCustomer[customer.Key()] = new(big.Int).Add(current, amount)
}

func (t *TokenStore) debitWallet(asset, customer crypto.Address, amount *big.Int) {
	byCustomer := t.wallets[asset.Key()]
	current := byCustomer[customer.Key()]
	byCustomer[customer.Key()] = new(big.Int).Sub(current, amount)
}
