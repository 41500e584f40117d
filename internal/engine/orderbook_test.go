package engine_test

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tyr/internal/common"
	"tyr/internal/engine"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

// --- Setup & Helpers --------------------------------------------------------

const (
	testInstrument = 1
	testMIC        = "XPAR"
	testCurrency   = "EUR"
)

func bid(id int, price float64, qty int64, at time.Time) common.Order {
	return common.NewDayOrder(id, testMIC, testCurrency, at, price, qty,
		common.Bid, common.Limit, testInstrument, qty, 2001)
}

func ask(id int, price float64, qty int64, at time.Time) common.Order {
	return common.NewDayOrder(id, testMIC, testCurrency, at, price, qty,
		common.Ask, common.Limit, testInstrument, qty, 3001)
}

func gtdAsk(id int, price float64, qty int64, at, expiration time.Time) common.Order {
	return common.NewGTDOrder(id, testMIC, testCurrency, at, price, qty,
		common.Ask, common.Limit, testInstrument, qty, 3001, expiration)
}

// level builds the expected flattened price level from order values, with
// quantities overridden where a partial fill is expected.
func level(price float64, orders ...common.Order) engine.FlatLevel {
	return engine.FlatLevel{Price: price, Orders: orders}
}

func remaining(o common.Order, qty int64) common.Order {
	o.Quantity = qty
	return o
}

// --- Tests ------------------------------------------------------------------

func TestAddOrder_NoMatching(t *testing.T) {
	book := engine.NewOrderBook()
	t0 := time.Now()

	b := bid(1, 155.00, 300, t0)
	a := ask(2, 148.00, 200, t0.Add(100*time.Millisecond))
	book.AddOrder(b)
	book.AddOrder(a)

	// Insertion alone must not execute anything, even on a crossed book.
	_, traded := book.LastTrade()
	assert.False(t, traded)
	assert.Equal(t, []engine.FlatLevel{level(155.00, b)}, book.Levels(common.Bid))
	assert.Equal(t, []engine.FlatLevel{level(148.00, a)}, book.Levels(common.Ask))
}

func TestMatch_FullFillCrossing(t *testing.T) {
	book := engine.NewOrderBook()
	t0 := time.Now()

	b := bid(1, 155.00, 300, t0)
	a := ask(2, 148.00, 200, t0.Add(100*time.Millisecond))
	book.AddOrder(b)
	book.AddOrder(a)

	assert.Equal(t, 1, book.Match())

	trade, ok := book.LastTrade()
	require.True(t, ok)
	assert.Equal(t, 1, trade.ID)
	assert.Equal(t, 1, trade.BuyOrderID)
	assert.Equal(t, 2, trade.SellOrderID)
	assert.Equal(t, 148.00, trade.Price, "the ask side sets the print")
	assert.Equal(t, int64(200), trade.Quantity)
	assert.Equal(t, testMIC, trade.MIC)
	assert.Equal(t, testCurrency, trade.Currency)

	// The bid rests partially filled, the ask is gone along with its level.
	assert.Equal(t, []engine.FlatLevel{level(155.00, remaining(b, 100))}, book.Levels(common.Bid))
	assert.Empty(t, book.Levels(common.Ask))
}

func TestMatch_TimePriorityAtSamePrice(t *testing.T) {
	book := engine.NewOrderBook()
	t0 := time.Now()

	first := bid(1002, 155.00, 200, t0.Add(200*time.Millisecond))
	second := bid(1003, 155.00, 200, t0.Add(300*time.Millisecond))
	book.AddOrder(first)
	book.AddOrder(second)
	book.AddOrder(ask(2001, 150.00, 200, t0.Add(400*time.Millisecond)))

	assert.Equal(t, 1, book.Match())

	trade, ok := book.LastTrade()
	require.True(t, ok)
	assert.Equal(t, 1002, trade.BuyOrderID, "earlier priority matches first")
	assert.Equal(t, 150.00, trade.Price)

	// The later bid is untouched.
	assert.Equal(t, []engine.FlatLevel{level(155.00, second)}, book.Levels(common.Bid))
	assert.Empty(t, book.Levels(common.Ask))
}

func TestMatch_RepeatsUntilUncrossed(t *testing.T) {
	book := engine.NewOrderBook()
	t0 := time.Now()

	book.AddOrder(bid(1, 100.00, 300, t0))
	book.AddOrder(ask(2, 100.00, 100, t0.Add(time.Millisecond)))
	book.AddOrder(ask(3, 100.00, 100, t0.Add(2*time.Millisecond)))
	book.AddOrder(ask(4, 100.00, 100, t0.Add(3*time.Millisecond)))

	// One execution per pass, so the resting bid is consumed over three.
	assert.Equal(t, 3, book.Match())
	assert.Empty(t, book.Levels(common.Bid))
	assert.Empty(t, book.Levels(common.Ask))
	assert.Equal(t, 0, book.OrderCount())

	trades := book.Trades()
	require.Len(t, trades, 3)
	for i, trade := range trades {
		assert.Equal(t, i+1, trade.ID, "trade ids are assigned monotonically")
		assert.Equal(t, int64(100), trade.Quantity)
	}
}

func TestMatch_StopsWhenNotCrossed(t *testing.T) {
	book := engine.NewOrderBook()
	t0 := time.Now()

	b := bid(1, 99.00, 100, t0)
	a := ask(2, 100.00, 100, t0)
	book.AddOrder(b)
	book.AddOrder(a)

	assert.Equal(t, 0, book.Match())
	assert.Equal(t, 0, book.Match(), "nothing new to match on a stable book")
	assert.Equal(t, []engine.FlatLevel{level(99.00, b)}, book.Levels(common.Bid))
	assert.Equal(t, []engine.FlatLevel{level(100.00, a)}, book.Levels(common.Ask))
}

func TestMatch_StopsOnIncompatibleTopOfBook(t *testing.T) {
	book := engine.NewOrderBook()
	t0 := time.Now()

	// Top bid is for another instrument, so the top-of-book pair never
	// agrees, and matching does not descend to the crossed level below.
	other := common.NewDayOrder(10, testMIC, testCurrency, t0, 101.00, 100,
		common.Bid, common.Limit, 99, 100, 2001)
	book.AddOrder(other)
	book.AddOrder(bid(11, 100.00, 100, t0))
	book.AddOrder(ask(12, 99.00, 100, t0))

	assert.Equal(t, 0, book.Match())
	assert.Equal(t, 3, book.OrderCount())
}

func TestMatch_CurrencyMismatchSkipped(t *testing.T) {
	book := engine.NewOrderBook()
	t0 := time.Now()

	usd := common.NewDayOrder(1, testMIC, "USD", t0, 100.00, 100,
		common.Bid, common.Limit, testInstrument, 100, 2001)
	matching := bid(2, 100.00, 100, t0.Add(time.Millisecond))
	book.AddOrder(usd)
	book.AddOrder(matching)
	book.AddOrder(ask(3, 100.00, 100, t0.Add(2*time.Millisecond)))

	// The scan walks past the incompatible bid and executes against the
	// compatible one deeper in the same level.
	assert.Equal(t, 1, book.Match())
	trade, ok := book.LastTrade()
	require.True(t, ok)
	assert.Equal(t, 2, trade.BuyOrderID)
	assert.Equal(t, []engine.FlatLevel{level(100.00, usd)}, book.Levels(common.Bid))
}

func TestMatch_NotifiesObserverPerTrade(t *testing.T) {
	book := engine.NewOrderBook()
	t0 := time.Now()

	var seen []common.Trade
	book.OnTrade(func(trade common.Trade) {
		seen = append(seen, trade)
	})

	book.AddOrder(bid(1, 100.00, 200, t0))
	book.AddOrder(ask(2, 100.00, 100, t0.Add(time.Millisecond)))
	book.AddOrder(ask(3, 100.00, 100, t0.Add(2*time.Millisecond)))

	assert.Equal(t, 2, book.Match())
	require.Len(t, seen, 2)
	assert.Equal(t, book.Trades(), seen)
}

func TestRemoveExpired_GTDOnly(t *testing.T) {
	book := engine.NewOrderBook()
	now := time.Now()

	expired := gtdAsk(1, 152.00, 100, now.Add(-time.Hour), now.Add(-time.Second))
	alive := gtdAsk(2, 153.00, 100, now, now.Add(24*time.Hour))
	day := ask(3, 154.00, 100, now.Add(-48*time.Hour))
	book.AddOrder(expired)
	book.AddOrder(alive)
	book.AddOrder(day)

	assert.Equal(t, 1, book.RemoveExpired(now))
	assert.Equal(t, 2, book.OrderCount(), "DAY orders are never swept regardless of age")
	assert.Equal(t, []engine.FlatLevel{
		level(153.00, alive),
		level(154.00, day),
	}, book.Levels(common.Ask))

	// Expiration exactly at the sweep time also removes.
	boundary := gtdAsk(4, 155.00, 100, now, now)
	book.AddOrder(boundary)
	assert.Equal(t, 1, book.RemoveExpired(now))
}

func TestRemoveExpired_DropsEmptyLevels(t *testing.T) {
	book := engine.NewOrderBook()
	now := time.Now()

	book.AddOrder(gtdAsk(1, 152.00, 100, now, now.Add(-time.Minute)))
	assert.Equal(t, 1, book.RemoveExpired(now))

	bids, asks := book.LevelCounts()
	assert.Zero(t, bids)
	assert.Zero(t, asks)
}

func TestGTDOrders_Snapshot(t *testing.T) {
	book := engine.NewOrderBook()
	now := time.Now()
	expiration := now.Add(24 * time.Hour)

	book.AddOrder(gtdAsk(3001, 152.00, 100, now, expiration))
	book.AddOrder(ask(3002, 152.00, 100, now))

	gtd := book.GTDOrders(now)
	require.Len(t, gtd, 1)
	assert.Equal(t, 3001, gtd[0].OrderID)
	assert.Equal(t, common.Ask, gtd[0].Side)
	assert.Equal(t, 24*time.Hour, gtd[0].ExpiresIn)
}

func TestLevels_SortedByPriority(t *testing.T) {
	book := engine.NewOrderBook()
	t0 := time.Now()

	book.AddOrder(bid(1, 98.00, 100, t0))
	book.AddOrder(bid(2, 99.00, 100, t0))
	book.AddOrder(ask(3, 101.00, 100, t0))
	book.AddOrder(ask(4, 100.00, 100, t0))

	bids := book.Levels(common.Bid)
	require.Len(t, bids, 2)
	assert.Equal(t, 99.00, bids[0].Price, "best bid is the highest price")

	asks := book.Levels(common.Ask)
	require.Len(t, asks, 2)
	assert.Equal(t, 100.00, asks[0].Price, "best ask is the lowest price")
}
