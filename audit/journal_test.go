package audit

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"moneymarket/core/events"
	"moneymarket/crypto"
)

func TestJournalAppendsAndReadsBack(t *testing.T) {
	journal, err := NewJournal(":memory:", nil)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer journal.Close()

	raw := make([]byte, 20)
	raw[19] = 0x7f
	customer := crypto.NewAddress(crypto.AccountPrefix, raw)

	journal.Emit(events.GracefulFailure{
		Code: "Supplier::InsufficientBalance",
		Args: []*big.Int{big.NewInt(100), big.NewInt(40)},
	})
	journal.Emit(events.TransferOut{
		Asset:     crypto.NewAddress(crypto.AssetPrefix, make([]byte, 20)),
		Recipient: customer,
		Amount:    big.NewInt(25),
	})

	records, err := journal.Events(context.Background(), 10)
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	for _, record := range records {
		if record.ID == "" {
			t.Fatalf("record missing id")
		}
	}

	var failure events.GracefulFailure
	found := false
	for _, record := range records {
		if record.Type != events.TypeGracefulFailure {
			continue
		}
		found = true
		if err := json.Unmarshal(record.Payload, &failure); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
	}
	if !found {
		t.Fatalf("graceful failure record missing")
	}
	if failure.Code != "Supplier::InsufficientBalance" || len(failure.Args) != 2 {
		t.Fatalf("unexpected payload %+v", failure)
	}
	if failure.Args[1].Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("arg = %s, want 40", failure.Args[1])
	}
}
