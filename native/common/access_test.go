package common

import (
	"errors"
	"testing"

	"moneymarket/crypto"
)

func addr(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(crypto.AccountPrefix, raw)
}

func TestOwnedSetOwner(t *testing.T) {
	owner := addr(0x01)
	next := addr(0x02)
	stranger := addr(0x03)

	owned := NewOwned(owner)
	if err := owned.SetOwner(stranger, next); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := owned.SetOwner(owner, next); err != nil {
		t.Fatalf("set owner: %v", err)
	}
	if !owned.Owner().Equal(next) {
		t.Fatalf("owner not transferred")
	}
}

func TestAllowedGatesCallers(t *testing.T) {
	owner := addr(0x01)
	component := addr(0x10)
	stranger := addr(0x20)

	allowed := NewAllowed(owner)
	if err := allowed.Allow(stranger, component); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := allowed.Allow(owner, component); err != nil {
		t.Fatalf("allow: %v", err)
	}
	if err := allowed.RequireAllowed(component); err != nil {
		t.Fatalf("component should be allowed: %v", err)
	}
	if err := allowed.RequireAllowed(stranger); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed, got %v", err)
	}
	if err := allowed.Disallow(owner, component); err != nil {
		t.Fatalf("disallow: %v", err)
	}
	if allowed.IsAllowed(component) {
		t.Fatalf("component should have been removed")
	}
}

func TestGuard(t *testing.T) {
	pauses := NewPauseSet()
	if err := Guard(pauses, "market"); err != nil {
		t.Fatalf("unpaused guard: %v", err)
	}
	pauses.SetPaused("market", true)
	if err := Guard(pauses, "market"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
}
