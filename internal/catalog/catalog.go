// Package catalog holds the static instrument definitions the rest of the
// engine validates against. The catalog is append-only: instruments are
// admitted once, kept in insertion order, and never mutated or removed.
package catalog

import (
	"sync"

	"github.com/rs/zerolog/log"

	"tyr/internal/common"
)

type Catalog struct {
	mu          sync.Mutex
	keys        map[common.InstrumentKey]struct{}
	instruments []common.Instrument
}

func New() *Catalog {
	return &Catalog{
		keys: make(map[common.InstrumentKey]struct{}),
	}
}

// Add admits an instrument unless one with the same (id, MIC, currency)
// triple already exists. The uniqueness check and insertion happen under one
// lock, so concurrent adds of the same triple admit exactly one.
func (c *Catalog) Add(instrument common.Instrument) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := instrument.Key()
	if _, exists := c.keys[key]; exists {
		log.Warn().
			Int("instrument", key.ID).
			Str("mic", key.MIC).
			Str("currency", key.Currency).
			Msg("instrument already exists")
		return false
	}

	c.keys[key] = struct{}{}
	c.instruments = append(c.instruments, instrument)
	log.Info().
		Int("instrument", key.ID).
		Str("mic", key.MIC).
		Str("currency", key.Currency).
		Str("name", instrument.Name).
		Msg("instrument added")
	return true
}

// Instruments returns a copy of the catalog in insertion order.
func (c *Catalog) Instruments() []common.Instrument {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]common.Instrument, len(c.instruments))
	copy(out, c.instruments)
	return out
}

// Find scans the catalog for the instrument matching the identity triple.
func (c *Catalog) Find(id int, mic, currency string) (common.Instrument, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, instrument := range c.instruments {
		if instrument.ID == id && instrument.MIC == mic && instrument.Currency == currency {
			return instrument, true
		}
	}
	return common.Instrument{}, false
}

func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.instruments)
}
