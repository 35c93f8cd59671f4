package market

import (
	"math/big"

	"moneymarket/crypto"
)

// LedgerAccount identifies one of the double-entry accounts tracked per asset.
type LedgerAccount uint8

const (
	AccountCash LedgerAccount = iota
	AccountBorrow
	AccountSupply
	AccountInterestExpense
	AccountInterestIncome
	AccountTrading
)

func (a LedgerAccount) String() string {
	switch a {
	case AccountCash:
		return "Cash"
	case AccountBorrow:
		return "Borrow"
	case AccountSupply:
		return "Supply"
	case AccountInterestExpense:
		return "InterestExpense"
	case AccountInterestIncome:
		return "InterestIncome"
	case AccountTrading:
		return "Trading"
	default:
		return "Unknown"
	}
}

// LedgerReason explains why a ledger entry was posted. Every market operation
// posts its entries under exactly one reason.
type LedgerReason uint8

const (
	ReasonCustomerSupply LedgerReason = iota
	ReasonCustomerWithdrawal
	ReasonInterest
	ReasonCustomerBorrow
	ReasonCustomerPayBorrow
	ReasonCollateralPayBorrow
)

func (r LedgerReason) String() string {
	switch r {
	case ReasonCustomerSupply:
		return "CustomerSupply"
	case ReasonCustomerWithdrawal:
		return "CustomerWithdrawal"
	case ReasonInterest:
		return "Interest"
	case ReasonCustomerBorrow:
		return "CustomerBorrow"
	case ReasonCustomerPayBorrow:
		return "CustomerPayBorrow"
	case ReasonCollateralPayBorrow:
		return "CollateralPayBorrow"
	default:
		return "Unknown"
	}
}

// LedgerType distinguishes the two legs of an entry pair.
type LedgerType uint8

const (
	TypeDebit LedgerType = iota
	TypeCredit
)

func (t LedgerType) String() string {
	switch t {
	case TypeDebit:
		return "Debit"
	case TypeCredit:
		return "Credit"
	default:
		return "Unknown"
	}
}

// LedgerEntry is one leg of a balanced debit/credit pair. ResultingBalance
// reports the customer balance in the touched account after the entry; the
// protocol-wide Cash account carries no per-customer balance and reports zero.
type LedgerEntry struct {
	Reason           LedgerReason
	Type             LedgerType
	Account          LedgerAccount
	Customer         crypto.Address
	Asset            crypto.Address
	Amount           *big.Int
	ResultingBalance *big.Int
	InterestRateBPS  uint64
	NextPaymentDate  uint64
}
