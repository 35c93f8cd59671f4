package common

import (
	"errors"

	"moneymarket/crypto"
)

var (
	// ErrNotOwner is a fatal failure: only the configured owner may perform
	// administrative operations.
	ErrNotOwner = errors.New("access: caller is not the owner")
	// ErrNotAllowed is a fatal failure: the caller is not on the store's
	// allow-list. It signals an integration error, not a business condition.
	ErrNotAllowed = errors.New("access: caller is not allowed")
)

// Owned gates administrative operations behind a single owner identity.
type Owned struct {
	owner crypto.Address
}

func NewOwned(owner crypto.Address) Owned {
	return Owned{owner: owner}
}

func (o *Owned) Owner() crypto.Address {
	return o.owner
}

// SetOwner transfers ownership. Owner-only.
func (o *Owned) SetOwner(caller, next crypto.Address) error {
	if err := o.RequireOwner(caller); err != nil {
		return err
	}
	o.owner = next
	return nil
}

func (o *Owned) RequireOwner(caller crypto.Address) error {
	if !caller.Equal(o.owner) {
		return ErrNotOwner
	}
	return nil
}

// Allowed extends Owned with an allow-list of caller identities. Every
// mutating entry point of a shared store checks the list; this is the sole
// access-control mechanism protecting aggregate state.
type Allowed struct {
	Owned
	allowed map[string]struct{}
}

func NewAllowed(owner crypto.Address) Allowed {
	return Allowed{Owned: NewOwned(owner), allowed: make(map[string]struct{})}
}

// Allow admits a caller identity. Owner-only.
func (a *Allowed) Allow(caller, id crypto.Address) error {
	if err := a.RequireOwner(caller); err != nil {
		return err
	}
	if a.allowed == nil {
		a.allowed = make(map[string]struct{})
	}
	a.allowed[id.Key()] = struct{}{}
	return nil
}

// Disallow removes a caller identity. Owner-only.
func (a *Allowed) Disallow(caller, id crypto.Address) error {
	if err := a.RequireOwner(caller); err != nil {
		return err
	}
	delete(a.allowed, id.Key())
	return nil
}

func (a *Allowed) IsAllowed(id crypto.Address) bool {
	_, ok := a.allowed[id.Key()]
	return ok
}

func (a *Allowed) RequireAllowed(caller crypto.Address) error {
	if !a.IsAllowed(caller) {
		return ErrNotAllowed
	}
	return nil
}
