// Package engine implements the continuous double-auction core: the order
// book with its price-time priority matching algorithm, and the controller
// that validates intake, runs the periodic matching loop and tracks trading
// statistics.
package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"tyr/internal/catalog"
	"tyr/internal/common"
)

var ErrUnknownInstrument = errors.New("no matching instrument for order")

// Config sets the cadence of the background loop. Zero fields get the
// defaults; tests shrink them to avoid sleeping for hours.
type Config struct {
	Tick            time.Duration // one loop iteration per tick
	DailyResetEvery time.Duration // daily-scoped counter reset
	SweepEvery      time.Duration // GTD expiry sweep
	StatusEvery     time.Duration // periodic status report
}

func DefaultConfig() Config {
	return Config{
		Tick:            time.Second,
		DailyResetEvery: 24 * time.Hour,
		SweepEvery:      time.Hour,
		StatusEvery:     30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Tick <= 0 {
		c.Tick = d.Tick
	}
	if c.DailyResetEvery <= 0 {
		c.DailyResetEvery = d.DailyResetEvery
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = d.SweepEvery
	}
	if c.StatusEvery <= 0 {
		c.StatusEvery = d.StatusEvery
	}
	return c
}

// Engine owns the synchronous intake path and the background loop that
// retries matching, sweeps expired GTD orders, resets daily statistics and
// emits status reports.
type Engine struct {
	book    *OrderBook
	catalog *catalog.Catalog
	cfg     Config
	stats   stats

	mu      sync.Mutex // serializes Start/Stop transitions
	running atomic.Bool
	t       *tomb.Tomb
}

// New wires an engine to its book and catalog and registers the trade
// observer that keeps statistics current.
func New(book *OrderBook, cat *catalog.Catalog, cfg Config) *Engine {
	e := &Engine{
		book:    book,
		catalog: cat,
		cfg:     cfg.withDefaults(),
	}
	book.OnTrade(func(trade common.Trade) {
		e.stats.record(trade.Notional())
	})
	return e
}

// Start transitions Stopped -> Running: resets all statistics and spawns
// the background loop. Calling Start while running is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running.Load() {
		return
	}
	e.stats.resetAll(time.Now())

	t := new(tomb.Tomb)
	e.t = t
	t.Go(func() error {
		return e.run(t)
	})
	e.running.Store(true)
	log.Info().Msg("trading engine started in continuous mode")
}

// Stop signals the loop to exit and waits for it to finish. The loop
// observes the signal within one tick. Calling Stop while stopped is a
// no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running.Load() {
		return
	}
	e.t.Kill(nil)
	if err := e.t.Wait(); err != nil {
		log.Error().Err(err).Msg("engine loop exited with error")
	}
	e.running.Store(false)
	log.Info().Msg("trading engine stopped")
}

func (e *Engine) Running() bool {
	return e.running.Load()
}

func (e *Engine) run(t *tomb.Tomb) error {
	ticker := time.NewTicker(e.cfg.Tick)
	defer ticker.Stop()

	now := time.Now()
	lastDailyReset := now
	lastSweep := now
	lastStatus := now

	for {
		select {
		case <-t.Dying():
			return nil
		case <-ticker.C:
			e.tick(&lastDailyReset, &lastSweep, &lastStatus)
		}
	}
}

// tick is one iteration of the background loop. A panic inside it is
// recovered and logged; the loop carries on next tick.
func (e *Engine) tick(lastDailyReset, lastSweep, lastStatus *time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("error in trading engine tick")
		}
	}()

	now := time.Now()

	if now.Sub(*lastDailyReset) > e.cfg.DailyResetEvery {
		e.stats.resetDaily(now)
		*lastDailyReset = now
		log.Info().Time("at", now).Msg("daily statistics reset")
	}

	e.stats.matchingAttempts.Add(1)
	if matches := e.book.Match(); matches > 0 {
		e.stats.successfulMatches.Add(int64(matches))
		log.Info().Int("matches", matches).Msg("matched orders")
	}

	if now.Sub(*lastSweep) > e.cfg.SweepEvery {
		log.Debug().Time("at", now).Msg("checking GTD orders")
		if removed := e.book.RemoveExpired(now); removed > 0 {
			log.Info().Int("removed", removed).Msg("removed expired GTD orders")
		}
		*lastSweep = now
	}

	if now.Sub(*lastStatus) > e.cfg.StatusEvery {
		status := e.Status()
		log.Info().
			Int("instruments", status.Instruments).
			Int("bid_levels", status.BidLevels).
			Int("ask_levels", status.AskLevels).
			Int64("daily_trades", status.DailyTrades).
			Int64("total_trades", status.TotalTrades).
			Msg("periodic status update")
		*lastStatus = now
	}
}

// Submit validates an order against its instrument and, on success, inserts
// it and immediately attempts matching. A rejected order never touches the
// book. Returns nil on acceptance.
func (e *Engine) Submit(order common.Order) error {
	submission := uuid.New().String()

	instrument, ok := e.catalog.Find(order.InstrumentID, order.MIC, order.Currency)
	if !ok {
		log.Warn().
			Str("submission", submission).
			Int("order", order.ID).
			Int("instrument", order.InstrumentID).
			Msg("no matching instrument for order")
		return ErrUnknownInstrument
	}

	if err := common.ValidatePrice(order, instrument); err != nil {
		log.Warn().Str("submission", submission).Int("order", order.ID).Err(err).
			Msg("order rejected")
		return fmt.Errorf("order %d rejected: %w", order.ID, err)
	}
	if err := common.ValidateQuantity(order, instrument); err != nil {
		log.Warn().Str("submission", submission).Int("order", order.ID).Err(err).
			Msg("order rejected")
		return fmt.Errorf("order %d rejected: %w", order.ID, err)
	}

	e.book.AddOrder(order)
	log.Info().
		Str("submission", submission).
		Int("order", order.ID).
		Stringer("side", order.Side).
		Float64("price", order.Price).
		Int64("quantity", order.Quantity).
		Msg("order added")

	if matches := e.book.Match(); matches > 0 {
		if last, ok := e.book.LastTrade(); ok {
			e.stats.record(last.Notional())
		}
	}
	return nil
}

// EngineStatus is the snapshot behind the periodic status report.
type EngineStatus struct {
	Time        time.Time
	Running     bool
	DailyTrades int64
	DailyVolume float64
	TotalTrades int64
	Instruments int
	BidLevels   int
	AskLevels   int
}

// Status reads the current engine state. The fields come from independent
// counters, so a snapshot taken while trades execute can be internally
// inconsistent by one update.
func (e *Engine) Status() EngineStatus {
	bids, asks := e.book.LevelCounts()
	return EngineStatus{
		Time:        time.Now(),
		Running:     e.running.Load(),
		DailyTrades: e.stats.dailyTradeCount.Load(),
		DailyVolume: e.stats.dailyVolume.Load(),
		TotalTrades: e.stats.totalTradeCount.Load(),
		Instruments: e.catalog.Len(),
		BidLevels:   bids,
		AskLevels:   asks,
	}
}

// DetailedStats is the full statistics snapshot.
type DetailedStats struct {
	Time              time.Time
	DailyTrades       int64
	DailyVolume       float64
	TotalTrades       int64
	TotalVolume       float64
	MatchingAttempts  int64
	SuccessfulMatches int64
	SuccessRate       float64 // percent
	LastReset         time.Time
}

func (e *Engine) DetailedStats() DetailedStats {
	attempts := e.stats.matchingAttempts.Load()
	successes := e.stats.successfulMatches.Load()
	rate := 0.0
	if attempts > 0 {
		rate = 100 * float64(successes) / float64(attempts)
	}
	return DetailedStats{
		Time:              time.Now(),
		DailyTrades:       e.stats.dailyTradeCount.Load(),
		DailyVolume:       e.stats.dailyVolume.Load(),
		TotalTrades:       e.stats.totalTradeCount.Load(),
		TotalVolume:       e.stats.totalVolume.Load(),
		MatchingAttempts:  attempts,
		SuccessfulMatches: successes,
		SuccessRate:       rate,
		LastReset:         e.stats.lastResetTime(),
	}
}

// GTDOrders snapshots the resting GTD orders with time to expiry.
func (e *Engine) GTDOrders() []GTDStatus {
	return e.book.GTDOrders(time.Now())
}

// Help lists the interactive commands a hosting shell accepts.
func (e *Engine) Help() string {
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	sb.WriteString("  status   - Display current engine status\n")
	sb.WriteString("  stats    - Display detailed trading statistics\n")
	sb.WriteString("  gtd      - Display GTD orders and their expiry\n")
	sb.WriteString("  order    - Add a new test order\n")
	sb.WriteString("  display  - Show complete order book\n")
	sb.WriteString("  trades   - Show trade history\n")
	sb.WriteString("  help     - Display this help message\n")
	sb.WriteString("  quit     - Stop the engine and exit\n")
	return sb.String()
}
