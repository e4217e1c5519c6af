package clpool

import (
	"fmt"

	"github.com/johnayoung/go-crypto-quant-toolkit/pkg/primitives"
)

// AddLiquidity adds L units of liquidity to the pool over the tick range
// [lower, upper), creating the position if it doesn't already exist or
// topping it up otherwise.
func (p *Pool) AddLiquidity(owner string, liquidity primitives.Decimal, lower, upper int) (Position, error) {
	if err := p.validateRange(liquidity, lower, upper); err != nil {
		return Position{}, err
	}

	if p.currTickIdx >= lower && p.currTickIdx < upper {
		p.liquidity = p.liquidity.Add(liquidity)
	}

	p.touchBoundaryTick(lower, liquidity, true)
	p.touchBoundaryTick(upper, liquidity, false)

	key := positionKey{owner: owner, lower: lower, upper: upper}
	pos, existed := p.positions[key]
	if existed {
		p.settlePosition(pos)
		pos.Liquidity = pos.Liquidity.Add(liquidity)
	} else {
		insideX, insideY := p.feeInsideForPosition(&Position{LowerTick: lower, UpperTick: upper})
		pos = &Position{
			Owner:            owner,
			LowerTick:        lower,
			UpperTick:        upper,
			Liquidity:        liquidity,
			FeeGrowthInsideX: insideX,
			FeeGrowthInsideY: insideY,
			FeesX:            primitives.Zero(),
			FeesY:            primitives.Zero(),
		}
		p.positions[key] = pos
	}

	deltaX, deltaY := p.liquidityToTokens(liquidity, lower, upper, p.currSqrtPrice)
	p.tokenXBalance = p.tokenXBalance.Add(deltaX)
	p.tokenYBalance = p.tokenYBalance.Add(deltaY)

	return *pos, nil
}

// RemoveLiquidity removes L units of liquidity from position, settling its
// fees first and deleting the position if both its liquidity and pending
// fees reach zero.
func (p *Pool) RemoveLiquidity(owner string, lower, upper int, liquidity primitives.Decimal) error {
	key := positionKey{owner: owner, lower: lower, upper: upper}
	pos, ok := p.positions[key]
	if !ok {
		return fmt.Errorf("%w: no position for (%s, %d, %d)", ErrPositionNotFound, owner, lower, upper)
	}
	if !liquidity.IsPositive() || liquidity.GreaterThan(pos.Liquidity) {
		return fmt.Errorf("%w: remove liquidity must be in (0, position.liquidity]", ErrInvalidArgument)
	}

	if p.currTickIdx >= pos.LowerTick && p.currTickIdx < pos.UpperTick {
		p.liquidity = p.liquidity.Sub(liquidity)
	}

	p.settlePosition(pos)
	pos.Liquidity = pos.Liquidity.Sub(liquidity)

	p.untouchBoundaryTick(pos.LowerTick, liquidity, true)
	p.untouchBoundaryTick(pos.UpperTick, liquidity, false)

	if pos.isEmpty() {
		delete(p.positions, key)
	}

	deltaX, deltaY := p.liquidityToTokens(liquidity, pos.LowerTick, pos.UpperTick, p.currSqrtPrice)
	p.tokenXBalance = p.tokenXBalance.Sub(deltaX)
	p.tokenYBalance = p.tokenYBalance.Sub(deltaY)

	return nil
}

// WithdrawFees settles and returns position's owed fees, zeroing them, and
// deletes the position if it carries no remaining liquidity.
func (p *Pool) WithdrawFees(owner string, lower, upper int) (feesX, feesY primitives.Decimal, err error) {
	key := positionKey{owner: owner, lower: lower, upper: upper}
	pos, ok := p.positions[key]
	if !ok {
		return primitives.Decimal{}, primitives.Decimal{}, fmt.Errorf("%w: no position for (%s, %d, %d)", ErrPositionNotFound, owner, lower, upper)
	}

	p.settlePosition(pos)
	feesX, feesY = pos.FeesX, pos.FeesY
	pos.FeesX = primitives.Zero()
	pos.FeesY = primitives.Zero()

	if pos.Liquidity.IsZero() {
		delete(p.positions, key)
	}

	p.tokenXBalance = p.tokenXBalance.Sub(feesX)
	p.tokenYBalance = p.tokenYBalance.Sub(feesY)

	return feesX, feesY, nil
}

// validateRange checks the preconditions common to AddLiquidity: positive
// liquidity, both boundaries aligned to tick_spacing, lower < upper.
func (p *Pool) validateRange(liquidity primitives.Decimal, lower, upper int) error {
	if !liquidity.IsPositive() {
		return fmt.Errorf("%w: liquidity must be positive", ErrInvalidArgument)
	}
	if lower >= upper {
		return fmt.Errorf("%w: lower must be less than upper", ErrInvalidArgument)
	}
	if lower%p.TickSpacing != 0 || upper%p.TickSpacing != 0 {
		return fmt.Errorf("%w: tick boundaries must be multiples of tick_spacing", ErrInvalidArgument)
	}
	return nil
}

// touchBoundaryTick creates or updates the tick record at idx when
// liquidity is added. isLower selects the sign applied to liquidity_net:
// positive for a lower boundary, negative for an upper one.
func (p *Pool) touchBoundaryTick(idx int, liquidity primitives.Decimal, isLower bool) {
	t, ok := p.ticks.get(idx)
	if !ok {
		outsideX, outsideY := p.initialFeeGrowthOutside(idx)
		netSign := liquidity
		if !isLower {
			netSign = liquidity.Neg()
		}
		t = &Tick{
			Idx:               idx,
			LiquidityNet:      netSign,
			LiquidityGross:    liquidity,
			FeeGrowthOutsideX: outsideX,
			FeeGrowthOutsideY: outsideY,
		}
		p.ticks.insert(t)
		return
	}
	if isLower {
		t.LiquidityNet = t.LiquidityNet.Add(liquidity)
	} else {
		t.LiquidityNet = t.LiquidityNet.Sub(liquidity)
	}
	t.LiquidityGross = t.LiquidityGross.Add(liquidity)
	p.checkTickInvariant(t)
}

// untouchBoundaryTick reverses touchBoundaryTick's effect when liquidity is
// removed, dropping the tick from the active index (but not all_ticks) once
// its liquidity_gross reaches zero.
func (p *Pool) untouchBoundaryTick(idx int, liquidity primitives.Decimal, isLower bool) {
	t, ok := p.ticks.get(idx)
	if !ok {
		invariantViolation("removing liquidity from a tick absent from the active index")
	}
	if isLower {
		t.LiquidityNet = t.LiquidityNet.Sub(liquidity)
	} else {
		t.LiquidityNet = t.LiquidityNet.Add(liquidity)
	}
	t.LiquidityGross = t.LiquidityGross.Sub(liquidity)
	p.checkTickInvariant(t)

	if t.LiquidityGross.IsZero() {
		p.ticks.remove(idx)
	}
}

func (p *Pool) checkTickInvariant(t *Tick) {
	if t.LiquidityGross.IsNegative() {
		invariantViolation("liquidity_gross went negative")
	}
	if t.LiquidityGross.LessThan(t.LiquidityNet.Abs()) {
		invariantViolation("liquidity_gross fell below |liquidity_net|")
	}
}

// liquidityToTokens computes the token X/Y amounts equivalent to liquidity
// over [lower, upper) at the given sqrt price. Shared by AddLiquidity and
// RemoveLiquidity so both paths stay in sync.
func (p *Pool) liquidityToTokens(liquidity primitives.Decimal, lower, upper int, sqrtPrice primitives.Decimal) (deltaX, deltaY primitives.Decimal) {
	pa, _ := tickToSqrtPrice(lower)
	pb, _ := tickToSqrtPrice(upper)
	pc := clampDecimal(sqrtPrice, pa, pb)

	deltaX = mustDiv(liquidity.Mul(pb.Sub(pc)), pb.Mul(pc))
	deltaY = liquidity.Mul(pc.Sub(pa))

	if deltaX.IsNegative() {
		deltaX = primitives.Zero()
	}
	if deltaY.IsNegative() {
		deltaY = primitives.Zero()
	}
	return deltaX, deltaY
}

func clampDecimal(v, lo, hi primitives.Decimal) primitives.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
