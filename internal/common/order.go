package common

import (
	"fmt"
	"time"
)

// Order is a limit order submitted against a cataloged instrument. Only the
// matching algorithm decrements Quantity and only the expiry sweep removes
// resting orders; everything else treats an order as immutable after
// construction.
type Order struct {
	ID           int         // Unique per submission
	MIC          string      // Market Identification Code
	Currency     string      // Trading currency
	Priority     time.Time   // Submission time, nanosecond resolution
	Price        float64     // Limit price
	Quantity     int64       // Remaining quantity
	OriginalQty  int64       // Quantity at submission
	TimeInForce  TimeInForce //
	Side         Side        //
	LimitType    LimitType   //
	InstrumentID int         //
	FirmID       int         // Submitting firm
	Expiration   time.Time   // GTD only; zero value for DAY orders
}

// NewDayOrder builds an order valid for the current session.
func NewDayOrder(id int, mic, currency string, priority time.Time, price float64,
	quantity int64, side Side, limitType LimitType, instrumentID int, originalQty int64,
	firmID int) Order {
	return Order{
		ID:           id,
		MIC:          mic,
		Currency:     currency,
		Priority:     priority,
		Price:        price,
		Quantity:     quantity,
		OriginalQty:  originalQty,
		TimeInForce:  Day,
		Side:         side,
		LimitType:    limitType,
		InstrumentID: instrumentID,
		FirmID:       firmID,
	}
}

// NewGTDOrder builds an order that rests until expiration.
func NewGTDOrder(id int, mic, currency string, priority time.Time, price float64,
	quantity int64, side Side, limitType LimitType, instrumentID int, originalQty int64,
	firmID int, expiration time.Time) Order {
	o := NewDayOrder(id, mic, currency, priority, price, quantity, side, limitType,
		instrumentID, originalQty, firmID)
	o.TimeInForce = GTD
	o.Expiration = expiration
	return o
}

// Expired reports whether a GTD order's expiration is at or before now.
// DAY orders never expire.
func (o Order) Expired(now time.Time) bool {
	return o.TimeInForce == GTD && !o.Expiration.After(now)
}

func (o Order) String() string {
	expiration := "N/A (DAY order)"
	if o.TimeInForce == GTD {
		expiration = o.Expiration.Format(time.RFC3339)
	}
	return fmt.Sprintf(
		`Order ID:      %d
MIC:           %s
Currency:      %s
Priority:      %v (ns: %d)
Price:         %.2f
Quantity:      %d (Original: %d)
Time In Force: %v
Side:          %v
Instrument ID: %d
Firm ID:       %d
Expiration:    %s`,
		o.ID,
		o.MIC,
		o.Currency,
		o.Priority.Format(time.RFC3339),
		o.Priority.Nanosecond(),
		o.Price,
		o.Quantity,
		o.OriginalQty,
		o.TimeInForce,
		o.Side,
		o.InstrumentID,
		o.FirmID,
		expiration,
	)
}
