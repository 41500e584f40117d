package common

import (
	"fmt"
)

const maxInstrumentNameLen = 50

// InstrumentKey is the catalog-wide identity of an instrument. Two
// instruments are the same iff all three fields are equal.
type InstrumentKey struct {
	ID       int
	MIC      string
	Currency string
}

// Instrument is the static definition every order is validated against.
// Immutable once admitted to the catalog.
type Instrument struct {
	ID             int             // Unique identifier (ISIN code)
	MIC            string          // Market Identification Code
	Currency       string          // Trading currency
	Name           string          // Display name, bounded length
	Issue          int             // Issue number or date
	State          InstrumentState // Informational only in this core
	RefPrice       float64         // Reference price
	TradingGroupID int             //
	LotSize        int64           // Quantities must be exact multiples
	PriceDecimals  int             // Fractional digits of the minimum tick
	CurrentOrderID int             // Carried, not enforced
	CurrentTradeID int             // Carried, not enforced
	APFID          int             // Carried, not enforced
}

func NewInstrument(id int, mic, currency, name string, issue int, state InstrumentState,
	refPrice float64, tradingGroupID int, lotSize int64, priceDecimals int,
	currentOrderID, currentTradeID, apfID int) Instrument {
	if len(name) > maxInstrumentNameLen {
		name = name[:maxInstrumentNameLen]
	}
	return Instrument{
		ID:             id,
		MIC:            mic,
		Currency:       currency,
		Name:           name,
		Issue:          issue,
		State:          state,
		RefPrice:       refPrice,
		TradingGroupID: tradingGroupID,
		LotSize:        lotSize,
		PriceDecimals:  priceDecimals,
		CurrentOrderID: currentOrderID,
		CurrentTradeID: currentTradeID,
		APFID:          apfID,
	}
}

func (i Instrument) Key() InstrumentKey {
	return InstrumentKey{ID: i.ID, MIC: i.MIC, Currency: i.Currency}
}

func (i Instrument) String() string {
	return fmt.Sprintf(
		`Instrument ID:  %d
MIC:            %s
Currency:       %s
Name:           %s
Issue:          %d
State:          %v
Ref Price:      %.2f
Trading Group:  %d
Lot Size:       %d
Price Decimals: %d`,
		i.ID,
		i.MIC,
		i.Currency,
		i.Name,
		i.Issue,
		i.State,
		i.RefPrice,
		i.TradingGroupID,
		i.LotSize,
		i.PriceDecimals,
	)
}
