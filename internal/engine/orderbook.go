package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/btree"

	"tyr/internal/common"
)

// priceLevel is one price key and the FIFO queue of orders resting at it.
// Orders are appended at submission, so queue order is time priority.
type priceLevel struct {
	price  float64
	orders []*common.Order
}

type priceLevels = btree.BTreeG[*priceLevel]

// OrderBook keeps the two sorted sides, the append-only trade ledger and the
// trade notification hook. One mutex guards insertion, matching, the expiry
// sweep and read snapshots, so no caller can observe a half-applied match.
type OrderBook struct {
	mu sync.Mutex

	bids *priceLevels // best bid first (highest price)
	asks *priceLevels // best ask first (lowest price)

	trades      []common.Trade
	nextTradeID int

	// onTrade is invoked for every execution, while the book lock is held.
	// The engine registers its stats update here; the book never needs to
	// know the engine's type.
	onTrade func(common.Trade)
}

func NewOrderBook() *OrderBook {
	// Sorted greatest first.
	bids := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price > b.price
	})
	// Sorted least first.
	asks := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price < b.price
	})
	return &OrderBook{
		bids:        bids,
		asks:        asks,
		nextTradeID: 1,
	}
}

// OnTrade registers the handler notified of every executed trade. Must be
// set before orders flow; the handler runs under the book lock and must not
// call back into the book.
func (book *OrderBook) OnTrade(handler func(common.Trade)) {
	book.mu.Lock()
	defer book.mu.Unlock()
	book.onTrade = handler
}

// AddOrder appends the order at the tail of its price level, creating the
// level if absent. No matching is attempted here.
func (book *OrderBook) AddOrder(order common.Order) {
	book.mu.Lock()
	defer book.mu.Unlock()

	levels := book.sideLevels(order.Side)
	level, ok := levels.GetMut(&priceLevel{price: order.Price})
	if ok {
		level.orders = append(level.orders, &order)
		return
	}
	levels.Set(&priceLevel{
		price:  order.Price,
		orders: []*common.Order{&order},
	})
}

// Match runs matching passes until the book is no longer crossed or the top
// levels hold no compatible pair. Each pass scans the best bid level's queue
// against the best ask level's queue for the first pair agreeing on
// (instrument, MIC, currency), executes min(bid, ask) remaining quantity at
// the ask order's limit price, and cleans up dead orders and empty levels.
// One execution per pass; matching never descends past the top levels.
// Returns the number of trades executed in this invocation.
func (book *OrderBook) Match() int {
	book.mu.Lock()
	defer book.mu.Unlock()

	executed := 0
	for {
		bestBid, bidOK := book.bids.MinMut()
		bestAsk, askOK := book.asks.MinMut()

		// If either side is empty, or prices don't cross, we are done.
		if !bidOK || !askOK || bestBid.price < bestAsk.price {
			break
		}

		matched := false
	scan:
		for _, bidOrder := range bestBid.orders {
			for _, askOrder := range bestAsk.orders {
				if bidOrder.InstrumentID != askOrder.InstrumentID ||
					bidOrder.MIC != askOrder.MIC ||
					bidOrder.Currency != askOrder.Currency {
					continue
				}

				quantity := min(bidOrder.Quantity, askOrder.Quantity)
				trade := common.Trade{
					ID:          book.nextTradeID,
					BuyOrderID:  bidOrder.ID,
					SellOrderID: askOrder.ID,
					MIC:         bidOrder.MIC,
					Currency:    bidOrder.Currency,
					// The ask side sets the print.
					Price:     askOrder.Price,
					Quantity:  quantity,
					Timestamp: time.Now(),
				}
				book.nextTradeID++
				book.trades = append(book.trades, trade)
				if book.onTrade != nil {
					book.onTrade(trade)
				}

				bidOrder.Quantity -= quantity
				askOrder.Quantity -= quantity
				executed++
				matched = true

				log.Info().
					Int("trade", trade.ID).
					Int("bid", bidOrder.ID).
					Int("ask", askOrder.ID).
					Float64("price", trade.Price).
					Int64("quantity", quantity).
					Msg("trade executed")

				break scan
			}
		}

		book.cleanupLocked()
		if !matched {
			break
		}
	}
	return executed
}

// cleanupLocked removes fully executed orders and empty price levels from
// both sides. Caller holds the book lock.
func (book *OrderBook) cleanupLocked() {
	for _, levels := range []*priceLevels{book.bids, book.asks} {
		var empty []*priceLevel
		for _, level := range levels.Items() {
			live := level.orders[:0]
			for _, order := range level.orders {
				if order.Quantity > 0 {
					live = append(live, order)
				}
			}
			level.orders = live
			if len(live) == 0 {
				empty = append(empty, level)
			}
		}
		for _, level := range empty {
			levels.Delete(level)
		}
	}
}

// RemoveExpired drops every GTD order whose expiration is at or before now,
// on both sides, along with any level that empties. DAY orders are never
// touched. Returns the number of orders removed.
func (book *OrderBook) RemoveExpired(now time.Time) int {
	book.mu.Lock()
	defer book.mu.Unlock()

	removed := 0
	for _, levels := range []*priceLevels{book.bids, book.asks} {
		var empty []*priceLevel
		for _, level := range levels.Items() {
			live := level.orders[:0]
			for _, order := range level.orders {
				if order.Expired(now) {
					log.Info().
						Int("order", order.ID).
						Float64("price", order.Price).
						Msg("removing expired GTD order")
					removed++
					continue
				}
				live = append(live, order)
			}
			level.orders = live
			if len(live) == 0 {
				empty = append(empty, level)
			}
		}
		for _, level := range empty {
			levels.Delete(level)
		}
	}
	return removed
}

// LastTrade returns the most recent trade, if any.
func (book *OrderBook) LastTrade() (common.Trade, bool) {
	book.mu.Lock()
	defer book.mu.Unlock()

	if len(book.trades) == 0 {
		return common.Trade{}, false
	}
	return book.trades[len(book.trades)-1], true
}

// Trades returns a copy of the full ledger in execution order.
func (book *OrderBook) Trades() []common.Trade {
	book.mu.Lock()
	defer book.mu.Unlock()

	out := make([]common.Trade, len(book.trades))
	copy(out, book.trades)
	return out
}

// FlatLevel is a point-in-time copy of one price level, best used for
// display and tests.
type FlatLevel struct {
	Price  float64
	Orders []common.Order
}

// Levels snapshots one side of the book in priority order (best level
// first, FIFO within each level).
func (book *OrderBook) Levels(side common.Side) []FlatLevel {
	book.mu.Lock()
	defer book.mu.Unlock()

	levels := book.sideLevels(side)
	out := make([]FlatLevel, 0, levels.Len())
	for _, level := range levels.Items() {
		flat := FlatLevel{Price: level.price, Orders: make([]common.Order, len(level.orders))}
		for i, order := range level.orders {
			flat.Orders[i] = *order
		}
		out = append(out, flat)
	}
	return out
}

// GTDStatus describes one resting GTD order for reporting.
type GTDStatus struct {
	Side       common.Side
	OrderID    int
	Price      float64
	Quantity   int64
	Expiration time.Time
	ExpiresIn  time.Duration
}

// GTDOrders snapshots the resting GTD orders on both sides.
func (book *OrderBook) GTDOrders(now time.Time) []GTDStatus {
	book.mu.Lock()
	defer book.mu.Unlock()

	var out []GTDStatus
	for _, levels := range []*priceLevels{book.bids, book.asks} {
		for _, level := range levels.Items() {
			for _, order := range level.orders {
				if order.TimeInForce != common.GTD {
					continue
				}
				out = append(out, GTDStatus{
					Side:       order.Side,
					OrderID:    order.ID,
					Price:      order.Price,
					Quantity:   order.Quantity,
					Expiration: order.Expiration,
					ExpiresIn:  order.Expiration.Sub(now),
				})
			}
		}
	}
	return out
}

// OrderCount is the number of orders resting on both sides.
func (book *OrderBook) OrderCount() int {
	book.mu.Lock()
	defer book.mu.Unlock()

	count := 0
	for _, levels := range []*priceLevels{book.bids, book.asks} {
		for _, level := range levels.Items() {
			count += len(level.orders)
		}
	}
	return count
}

// LevelCounts is the number of populated bid and ask price levels.
func (book *OrderBook) LevelCounts() (bids, asks int) {
	book.mu.Lock()
	defer book.mu.Unlock()
	return book.bids.Len(), book.asks.Len()
}

func (book *OrderBook) sideLevels(side common.Side) *priceLevels {
	if side == common.Ask {
		return book.asks
	}
	return book.bids
}
