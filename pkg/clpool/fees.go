package clpool

import "github.com/johnayoung/go-crypto-quant-toolkit/pkg/primitives"

// initialFeeGrowthOutside returns the fee_growth_outside value a new tick
// is initialized with: the current global value if curr_tick_idx >= t,
// zero otherwise.
func (p *Pool) initialFeeGrowthOutside(tickIdx int) (x, y primitives.Decimal) {
	if p.currTickIdx >= tickIdx {
		return p.feeGrowthGlobalX, p.feeGrowthGlobalY
	}
	return primitives.Zero(), primitives.Zero()
}

// feeBelow computes fee_below(t).
func (p *Pool) feeBelow(t *Tick) (x, y primitives.Decimal) {
	if p.currTickIdx >= t.Idx {
		return t.FeeGrowthOutsideX, t.FeeGrowthOutsideY
	}
	return p.feeGrowthGlobalX.Sub(t.FeeGrowthOutsideX), p.feeGrowthGlobalY.Sub(t.FeeGrowthOutsideY)
}

// feeAbove computes fee_above(t).
func (p *Pool) feeAbove(t *Tick) (x, y primitives.Decimal) {
	if p.currTickIdx >= t.Idx {
		return p.feeGrowthGlobalX.Sub(t.FeeGrowthOutsideX), p.feeGrowthGlobalY.Sub(t.FeeGrowthOutsideY)
	}
	return t.FeeGrowthOutsideX, t.FeeGrowthOutsideY
}

// feeInside computes fee_inside([l,u)) = global - fee_below(l) -
// fee_above(u), using the supplied lower/upper tick records.
// Callers pass the historical (all_ticks) records so that the computation
// stays correct even after a boundary tick has been dropped from the
// active index.
func (p *Pool) feeInside(lower, upper *Tick) (x, y primitives.Decimal) {
	belowX, belowY := p.feeBelow(lower)
	aboveX, aboveY := p.feeAbove(upper)
	x = p.feeGrowthGlobalX.Sub(belowX).Sub(aboveX)
	y = p.feeGrowthGlobalY.Sub(belowY).Sub(aboveY)
	return x, y
}

// feeInsideForPosition computes fee_inside for a position's range using
// the append-only historical tick records.
func (p *Pool) feeInsideForPosition(pos *Position) (x, y primitives.Decimal) {
	lower, ok := p.ticks.getHistorical(pos.LowerTick)
	if !ok {
		invariantViolation("missing historical lower tick for position")
	}
	upper, ok := p.ticks.getHistorical(pos.UpperTick)
	if !ok {
		invariantViolation("missing historical upper tick for position")
	}
	return p.feeInside(lower, upper)
}

// settlePosition materializes any fees a position has accrued since its
// last settlement into its Fees{X,Y} fields, and resets its
// FeeGrowthInside{X,Y} baseline to the current inside-range value.
// Settlement must occur before any mutation that changes the position's
// liquidity.
func (p *Pool) settlePosition(pos *Position) {
	insideX, insideY := p.feeInsideForPosition(pos)

	deltaX := insideX.Sub(pos.FeeGrowthInsideX).Mul(pos.Liquidity)
	deltaY := insideY.Sub(pos.FeeGrowthInsideY).Mul(pos.Liquidity)

	pos.FeesX = pos.FeesX.Add(deltaX)
	pos.FeesY = pos.FeesY.Add(deltaY)
	pos.FeeGrowthInsideX = insideX
	pos.FeeGrowthInsideY = insideY
}
