package clpool

import (
	"github.com/johnayoung/go-crypto-quant-toolkit/pkg/primitives"
	"github.com/tidwall/btree"
)

// Tick is a record keyed by tick index holding net/gross liquidity and
// per-token fee-growth-outside accumulators.
type Tick struct {
	// Idx is an integer multiple of the pool's tick_spacing.
	Idx int

	// LiquidityNet is signed: added when crossed left-to-right, subtracted
	// right-to-left.
	LiquidityNet primitives.Decimal

	// LiquidityGross is non-negative: the count of referencing position
	// edges, in liquidity units. Invariant: LiquidityGross >= |LiquidityNet|.
	LiquidityGross primitives.Decimal

	FeeGrowthOutsideX primitives.Decimal
	FeeGrowthOutsideY primitives.Decimal
}

func (t *Tick) clone() *Tick {
	cp := *t
	return &cp
}

// direction selects which neighbour find_next looks for.
type direction bool

const (
	directionUp   direction = true
	directionDown direction = false
)

// tickIndex is the ordered mapping from tick index to *Tick. It is backed
// by github.com/tidwall/btree, giving find_next
// O(log n) neighbour lookup in either direction without relying on
// insertion order or re-sorting on every mutation.
//
// allTicks is the companion append-only map: it retains every tick ever initialized, even after it is
// dropped from the active index, because a position's boundary fee-growth
// lookup must remain correct after that boundary tick's liquidity_gross
// falls to zero.
type tickIndex struct {
	active   *btree.Map[int, *Tick]
	allTicks map[int]*Tick
}

func newTickIndex() *tickIndex {
	return &tickIndex{
		active:   btree.NewMap[int, *Tick](32),
		allTicks: make(map[int]*Tick),
	}
}

// get returns the active tick at idx, if any.
func (ti *tickIndex) get(idx int) (*Tick, bool) {
	return ti.active.Get(idx)
}

// getHistorical returns the tick at idx from the append-only record, which
// survives removal from the active index.
func (ti *tickIndex) getHistorical(idx int) (*Tick, bool) {
	t, ok := ti.allTicks[idx]
	return t, ok
}

// insert adds or replaces a tick in both the active index and the
// append-only record.
func (ti *tickIndex) insert(t *Tick) {
	ti.active.Set(t.Idx, t)
	ti.allTicks[t.Idx] = t
}

// remove drops idx from the active index only; allTicks retains it.
func (ti *tickIndex) remove(idx int) {
	ti.active.Delete(idx)
}

// findNext returns the strictly-greater (directionUp) or strictly-less
// (directionDown) active tick relative to idx, or ok=false if none exists.
// idx itself need not be present in the index.
func (ti *tickIndex) findNext(idx int, dir direction) (next *Tick, ok bool) {
	if dir == directionUp {
		ti.active.Ascend(idx+1, func(_ int, t *Tick) bool {
			next, ok = t, true
			return false
		})
		return next, ok
	}
	ti.active.Descend(idx-1, func(_ int, t *Tick) bool {
		next, ok = t, true
		return false
	})
	return next, ok
}

// len returns the number of active ticks.
func (ti *tickIndex) len() int {
	return ti.active.Len()
}

// ascend calls fn for every active tick in ascending order until fn
// returns false.
func (ti *tickIndex) ascend(fn func(*Tick) bool) {
	ti.active.Scan(func(_ int, t *Tick) bool {
		return fn(t)
	})
}

// snapshot deep-copies every active and historical tick, for Pool's
// swap rollback mechanism.
func (ti *tickIndex) snapshot() *tickIndex {
	cp := newTickIndex()
	ti.active.Scan(func(idx int, t *Tick) bool {
		cp.active.Set(idx, t.clone())
		return true
	})
	for idx, t := range ti.allTicks {
		if _, alreadyCloned := cp.active.Get(idx); alreadyCloned {
			cloned, _ := cp.active.Get(idx)
			cp.allTicks[idx] = cloned
			continue
		}
		cp.allTicks[idx] = t.clone()
	}
	return cp
}
