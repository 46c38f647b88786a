package search

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/castlebay/flipside/move"
	"github.com/castlebay/flipside/zobrist"
)

const (
	TTExact = 0x01
	TTLower = 0x02
	TTUpper = 0x03
)

const entrySize = 16

const depthMask = (1 << 6) - 1

// 16 bytes (entrySize)
type TableEntry struct {
	fullHash     uint64
	score        int16
	flagAndDepth uint8
	play         move.TinyMove
}

func (t TableEntry) flag() uint8 {
	return t.flagAndDepth >> 6
}

func (t TableEntry) depth() uint8 {
	return t.flagAndDepth & depthMask
}

func (t TableEntry) valid() bool {
	// a table flag is 1, 2, or 3.
	return t.flag() != 0
}

func (t TableEntry) move() move.TinyMove {
	return t.play
}

type TableLock interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

type FakeLock struct{}

func (f FakeLock) Lock()    {}
func (f FakeLock) Unlock()  {}
func (f FakeLock) RLock()   {}
func (f FakeLock) RUnlock() {}

// A TranspositionTable caches (depth, score, best move) per canonical
// position key. It is owned by one Solver; concurrent searches must not
// share one unless the multi-threaded lock mode is on. Keys come from
// the embedded zobrist hasher, which is rebuilt whenever the board
// dimension changes, so stale entries from a differently-sized board can
// never be queried.
type TranspositionTable struct {
	TableLock
	table        []TableEntry
	created      atomic.Uint64
	lookups      atomic.Uint64
	hits         atomic.Uint64
	sizePowerOf2 int
	sizeMask     uint64
	// "type 2" collisions: two positions landing in the same bucket with
	// different full hashes. Full-hash (type 1) collisions are possible
	// but vanishingly rare.
	t2collisions atomic.Uint64

	zobrist *zobrist.Zobrist
}

func (t *TranspositionTable) SetSingleThreadedMode() {
	t.TableLock = &FakeLock{}
}

func (t *TranspositionTable) SetMultiThreadedMode() {
	t.TableLock = new(sync.RWMutex)
}

func (t *TranspositionTable) lookup(zval uint64) TableEntry {
	t.RLock()
	defer t.RUnlock()
	t.lookups.Add(1)
	idx := zval & t.sizeMask
	entry := t.table[idx]
	if entry.fullHash != zval {
		if entry.valid() {
			// There is another unrelated node at this position.
			t.t2collisions.Add(1)
		}
		return TableEntry{}
	}
	t.hits.Add(1)
	return entry
}

func (t *TranspositionTable) store(zval uint64, tentry TableEntry) {
	idx := zval & t.sizeMask
	tentry.fullHash = zval
	t.Lock()
	defer t.Unlock()
	// Keep a deeper result for the same position; unrelated positions
	// just evict each other.
	if prev := t.table[idx]; prev.valid() && prev.fullHash == zval &&
		prev.depth() > tentry.depth() {
		return
	}
	t.table[idx] = tentry
	t.created.Add(1)
}

// Reset sizes the table to the given fraction of system memory and
// clears it. The zobrist hasher is recreated if the board dimension
// changed since the last reset.
func (t *TranspositionTable) Reset(fractionOfMemory float64, boardDim int) {
	totalMem := memory.TotalMemory()
	desiredNElems := fractionOfMemory * (float64(totalMem) / float64(entrySize))
	// find biggest power of 2 lower than desired.
	sizePowerOf2 := int(math.Log2(desiredNElems))
	t.ResetTo(sizePowerOf2, boardDim)
	log.Info().
		Float64("desired-num-elems", desiredNElems).
		Uint64("total-system-memory-bytes", totalMem).
		Msg("transposition-table-reset")
}

// ResetTo sizes the table to 2^sizePowerOf2 entries; tests and
// memory-constrained callers use it directly.
func (t *TranspositionTable) ResetTo(sizePowerOf2 int, boardDim int) {
	if t.TableLock == nil {
		t.TableLock = &FakeLock{}
	}
	t.Lock()
	defer t.Unlock()
	if sizePowerOf2 < 10 {
		sizePowerOf2 = 10
	}
	t.sizePowerOf2 = sizePowerOf2

	numElems := 1 << t.sizePowerOf2
	t.sizeMask = uint64(numElems - 1)
	reset := false
	if t.table != nil && len(t.table) == numElems {
		reset = true
		clear(t.table)
	} else {
		t.table = make([]TableEntry, numElems)
	}

	if t.zobrist == nil || t.zobrist.BoardDim() != boardDim {
		log.Debug().Int("dim", boardDim).Msg("creating zobrist hash")
		t.zobrist = &zobrist.Zobrist{}
		t.zobrist.Initialize(boardDim)
	}

	log.Debug().Int("num-elems", numElems).
		Int("estimated-total-memory-bytes", numElems*entrySize).
		Bool("reset", reset).
		Msg("transposition-table-size")

	t.created.Store(0)
	t.lookups.Store(0)
	t.hits.Store(0)
	t.t2collisions.Store(0)
}

func (t *TranspositionTable) Zobrist() *zobrist.Zobrist {
	return t.zobrist
}

// sized reports whether the entry slice has been allocated; lookups on
// an unsized table are never safe.
func (t *TranspositionTable) sized() bool {
	return len(t.table) > 0
}
