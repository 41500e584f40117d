package engine

import (
	"math"
	"sync/atomic"
	"time"
)

// atomicFloat64 is a float64 updated with compare-and-swap adds. Used for
// the volume counters, which accumulate notional values.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (f *atomicFloat64) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *atomicFloat64) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

func (f *atomicFloat64) Add(delta float64) {
	for {
		old := f.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if f.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

// stats is the engine's trading statistics aggregate. Every field is an
// independent counter: a concurrent reader can observe an incremented trade
// count next to a not-yet-updated volume. Good enough for status display,
// not for settlement-grade accounting.
type stats struct {
	dailyTradeCount   atomic.Int64
	dailyVolume       atomicFloat64
	totalTradeCount   atomic.Int64
	totalVolume       atomicFloat64
	matchingAttempts  atomic.Int64
	successfulMatches atomic.Int64
	lastReset         atomic.Int64 // unix nanoseconds
}

// resetAll zeroes every counter and records a new reset time. Called on
// engine start.
func (s *stats) resetAll(now time.Time) {
	s.dailyTradeCount.Store(0)
	s.dailyVolume.Store(0)
	s.totalTradeCount.Store(0)
	s.totalVolume.Store(0)
	s.matchingAttempts.Store(0)
	s.successfulMatches.Store(0)
	s.lastReset.Store(now.UnixNano())
}

// resetDaily zeroes the daily-scoped counters only.
func (s *stats) resetDaily(now time.Time) {
	s.dailyTradeCount.Store(0)
	s.dailyVolume.Store(0)
	s.matchingAttempts.Store(0)
	s.successfulMatches.Store(0)
	s.lastReset.Store(now.UnixNano())
}

// record applies one executed trade to the daily and cumulative counters.
func (s *stats) record(notional float64) {
	s.dailyTradeCount.Add(1)
	s.dailyVolume.Add(notional)
	s.totalTradeCount.Add(1)
	s.totalVolume.Add(notional)
	s.successfulMatches.Add(1)
}

func (s *stats) lastResetTime() time.Time {
	return time.Unix(0, s.lastReset.Load())
}
