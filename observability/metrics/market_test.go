package metrics

import (
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"moneymarket/core/events"
	"moneymarket/crypto"
)

func TestObserverCountsMarketEvents(t *testing.T) {
	observer := NewObserver()
	registry := Market()

	entriesBefore := testutil.ToFloat64(registry.ledgerEntries.WithLabelValues("CustomerSupply", "Supply"))
	failuresBefore := testutil.ToFloat64(registry.gracefulFailures.WithLabelValues("Supplier::InsufficientBalance"))
	outsBefore := testutil.ToFloat64(registry.transferOuts)

	observer.Emit(events.LedgerEntryPosted{
		Reason:    "CustomerSupply",
		EntryType: "Credit",
		Account:   "Supply",
		Amount:    big.NewInt(100),
		Balance:   big.NewInt(100),
	})
	observer.Emit(events.GracefulFailure{
		Code: "Supplier::InsufficientBalance",
		Args: []*big.Int{big.NewInt(5), big.NewInt(1)},
	})
	observer.Emit(events.TransferOut{Amount: big.NewInt(25)})
	observer.Emit(events.NewBorrowableAsset{Asset: crypto.Address{}})

	if got := testutil.ToFloat64(registry.ledgerEntries.WithLabelValues("CustomerSupply", "Supply")); got != entriesBefore+1 {
		t.Fatalf("ledger entries = %v, want %v", got, entriesBefore+1)
	}
	if got := testutil.ToFloat64(registry.gracefulFailures.WithLabelValues("Supplier::InsufficientBalance")); got != failuresBefore+1 {
		t.Fatalf("graceful failures = %v, want %v", got, failuresBefore+1)
	}
	if got := testutil.ToFloat64(registry.transferOuts); got != outsBefore+1 {
		t.Fatalf("transfer outs = %v, want %v", got, outsBefore+1)
	}
}
