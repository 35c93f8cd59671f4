package events

import (
	"math/big"

	"moneymarket/crypto"
)

const (
	// TypeLedgerEntryPosted is emitted once per debit or credit leg of a
	// market operation. Legs always arrive in balanced pairs.
	TypeLedgerEntryPosted = "market.ledger_entry_posted"
	// TypeNewBorrowableAsset is emitted when the owner admits an asset for
	// borrowing.
	TypeNewBorrowableAsset = "market.new_borrowable_asset"
	// TypeMinimumCollateralRatioChanged is emitted when the owner replaces
	// the scaled minimum collateral ratio.
	TypeMinimumCollateralRatioChanged = "market.minimum_collateral_ratio_changed"
	// TypeTransferOut is emitted by the token custody when assets leave the
	// protocol.
	TypeTransferOut = "market.transfer_out"
	// TypeGracefulFailure is the uniform non-fatal error reporting channel:
	// an error code plus up to three numeric context arguments.
	TypeGracefulFailure = "market.graceful_failure"
)

// LedgerEntryPosted mirrors a ledger entry for off-core consumers.
type LedgerEntryPosted struct {
	Reason          string
	EntryType       string
	Account         string
	Customer        crypto.Address
	Asset           crypto.Address
	Amount          *big.Int
	Balance         *big.Int
	InterestRateBPS uint64
	NextPaymentDate uint64
}

// EventType implements the Event interface.
func (LedgerEntryPosted) EventType() string { return TypeLedgerEntryPosted }

// NewBorrowableAsset announces an asset admitted to the borrowable set.
type NewBorrowableAsset struct {
	Asset crypto.Address
}

// EventType implements the Event interface.
func (NewBorrowableAsset) EventType() string { return TypeNewBorrowableAsset }

// MinimumCollateralRatioChanged carries the newly configured scaled ratio.
type MinimumCollateralRatioChanged struct {
	NewScaledRatio uint64
}

// EventType implements the Event interface.
func (MinimumCollateralRatioChanged) EventType() string {
	return TypeMinimumCollateralRatioChanged
}

// TransferOut reports custody leaving the protocol.
type TransferOut struct {
	Asset     crypto.Address
	Recipient crypto.Address
	Amount    *big.Int
}

// EventType implements the Event interface.
func (TransferOut) EventType() string { return TypeTransferOut }

// GracefulFailure reports a non-fatal business failure. Args carries up to
// three numeric context values (for example requested and available amounts).
type GracefulFailure struct {
	Code string
	Args []*big.Int
}

// EventType implements the Event interface.
func (GracefulFailure) EventType() string { return TypeGracefulFailure }
