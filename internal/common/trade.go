package common

import (
	"fmt"
	"time"
)

// Trade records one execution between a bid and an ask. Trades are
// append-only: once written to the ledger they are never edited or removed.
type Trade struct {
	ID          int       // Monotonically assigned by the book
	BuyOrderID  int       //
	SellOrderID int       //
	MIC         string    //
	Currency    string    //
	Price       float64   // Always the ask order's limit price
	Quantity    int64     //
	Timestamp   time.Time //
}

// Notional is the traded value, price times quantity.
func (t Trade) Notional() float64 {
	return t.Price * float64(t.Quantity)
}

func (t Trade) String() string {
	return fmt.Sprintf(
		`Trade ID:      %d
Buy Order ID:  %d
Sell Order ID: %d
MIC:           %s
Currency:      %s
Price:         %.2f
Quantity:      %d
Timestamp:     %v`,
		t.ID,
		t.BuyOrderID,
		t.SellOrderID,
		t.MIC,
		t.Currency,
		t.Price,
		t.Quantity,
		t.Timestamp.Format(time.RFC3339),
	)
}
