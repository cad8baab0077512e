// Package candles provides bounded per-symbol candle buffers.
package candles

import (
	"github.com/umair24171/scalp-agent/internal/models"
)

// DefaultCapacities returns the buffer size kept for each resolution.
func DefaultCapacities() map[models.Resolution]int {
	return map[models.Resolution]int{
		models.Resolution1Min:  100,
		models.Resolution5Min:  80,
		models.Resolution1Hour: 100,
	}
}

// Ring is a fixed-capacity FIFO of candles. Once full, each push evicts the
// oldest candle.
type Ring struct {
	buf   []models.Candle
	start int
	size  int
}

// NewRing creates a ring holding at most capacity candles.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]models.Candle, capacity)}
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Len returns the number of stored candles.
func (r *Ring) Len() int {
	return r.size
}

// Push appends a candle, evicting the oldest one when full.
func (r *Ring) Push(c models.Candle) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = c
		r.size++
		return
	}
	r.buf[r.start] = c
	r.start = (r.start + 1) % len(r.buf)
}

// Reset replaces the contents with the most recent Cap() candles of cs.
func (r *Ring) Reset(cs []models.Candle) {
	if len(cs) > len(r.buf) {
		cs = cs[len(cs)-len(r.buf):]
	}
	r.start = 0
	r.size = copy(r.buf, cs)
}

// Slice returns the stored candles oldest first. The result is a copy.
func (r *Ring) Slice() []models.Candle {
	out := make([]models.Candle, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Last returns the newest candle.
func (r *Ring) Last() (models.Candle, bool) {
	if r.size == 0 {
		return models.Candle{}, false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}

// Store keeps one ring per (symbol, resolution). Ordering of pushed candles
// is the caller's responsibility. Store is not safe for concurrent use.
type Store struct {
	capacities map[models.Resolution]int
	series     map[string]map[models.Resolution]*Ring
}

// NewStore creates a store with the given capacities. Resolutions missing
// from capacities fall back to DefaultCapacities.
func NewStore(capacities map[models.Resolution]int) *Store {
	caps := DefaultCapacities()
	for res, n := range capacities {
		if n > 0 {
			caps[res] = n
		}
	}
	return &Store{
		capacities: caps,
		series:     make(map[string]map[models.Resolution]*Ring),
	}
}

func (s *Store) ring(symbol string, res models.Resolution) *Ring {
	bySymbol, ok := s.series[symbol]
	if !ok {
		bySymbol = make(map[models.Resolution]*Ring)
		s.series[symbol] = bySymbol
	}
	r, ok := bySymbol[res]
	if !ok {
		r = NewRing(s.capacities[res])
		bySymbol[res] = r
	}
	return r
}

// Push appends a candle to the symbol's series for res.
func (s *Store) Push(symbol string, res models.Resolution, c models.Candle) {
	s.ring(symbol, res).Push(c)
}

// Load replaces the symbol's series for res with the most recent candles.
func (s *Store) Load(symbol string, res models.Resolution, cs []models.Candle) {
	s.ring(symbol, res).Reset(cs)
}

// Candles returns a chronological copy of the symbol's series for res.
func (s *Store) Candles(symbol string, res models.Resolution) []models.Candle {
	if bySymbol, ok := s.series[symbol]; ok {
		if r, ok := bySymbol[res]; ok {
			return r.Slice()
		}
	}
	return nil
}

// Last returns the newest candle of the symbol's series for res.
func (s *Store) Last(symbol string, res models.Resolution) (models.Candle, bool) {
	if bySymbol, ok := s.series[symbol]; ok {
		if r, ok := bySymbol[res]; ok {
			return r.Last()
		}
	}
	return models.Candle{}, false
}

// Len returns the number of candles held for the symbol at res.
func (s *Store) Len(symbol string, res models.Resolution) int {
	if bySymbol, ok := s.series[symbol]; ok {
		if r, ok := bySymbol[res]; ok {
			return r.Len()
		}
	}
	return 0
}

// Capacity returns the configured capacity for res.
func (s *Store) Capacity(res models.Resolution) int {
	return s.capacities[res]
}
