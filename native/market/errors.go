package market

import (
	"errors"
	"fmt"
	"math/big"
)

// Fatal errors abort the operation outright. They signal caller bugs or
// misconfiguration rather than ordinary business outcomes.
var (
	errNilEngine           = errors.New("money market: engine not initialised")
	errNoState             = errors.New("money market: state not configured")
	errInvalidAmount       = errors.New("money market: amount must be positive")
	errUnknownAsset        = errors.New("money market: asset not registered")
	errCustodyInconsistent = errors.New("money market: custody balance diverged from ledger")
)

// Failure codes for recoverable business outcomes. The operation reports the
// code with numeric context and leaves every balance untouched.
const (
	CodeSupplierTransferFromFail    = "Supplier::TokenTransferFromFail"
	CodeSupplierInsufficientBalance = "Supplier::InsufficientBalance"
	CodeBorrowerAssetNotBorrowable  = "Borrower::AssetNotBorrowable"
	CodeBorrowerInsufficientCash    = "Borrower::InsufficientAssetCash"
	CodeBorrowerInvalidRatio        = "Borrower::InvalidCollateralRatio"
	CodeTokenTransferToFail         = "TokenStore::TokenTransferToFail"
	CodeNotEligibleForLiquidation   = "Borrower::NotEligibleForLiquidation"
	CodeLiquidateInsufficientFunds  = "Liquidator::InsufficientBalance"
	CodeLiquidateInsufficientSeize  = "Liquidator::InsufficientCollateral"
	CodeCollateralRatioTooLow       = "CollateralCalculator::MinimumCollateralRatioTooLow"
)

// Failure is a graceful, non-fatal outcome of a market operation. It is not a
// Go error: operations return it alongside a nil error so callers can tell
// business declines apart from protocol faults.
type Failure struct {
	Code string
	Args []*big.Int
}

func failure(code string, args ...*big.Int) *Failure {
	out := &Failure{Code: code}
	for _, a := range args {
		out.Args = append(out.Args, clone(a))
	}
	return out
}

func (f *Failure) String() string {
	if f == nil {
		return "<ok>"
	}
	return fmt.Sprintf("%s%v", f.Code, f.Args)
}
