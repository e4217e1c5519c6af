package clpool

import (
	"fmt"

	"github.com/johnayoung/go-crypto-quant-toolkit/pkg/primitives"
	"github.com/sirupsen/logrus"
)

// Swap executes a directional swap: tokenInAddr identifies which token is
// being sold into the pool. It is atomic — on any failure the pool is
// restored to its pre-call state — and, when simulate is true, the pool is
// restored to its pre-call state even on success, so the caller can
// cost-estimate without committing.
func (p *Pool) Swap(tokenInAddr string, amountIn primitives.Decimal, sqrtPriceLimit primitives.Decimal, simulate bool) (primitives.Decimal, error) {
	if tokenInAddr != p.TokenX && tokenInAddr != p.TokenY {
		return primitives.Decimal{}, fmt.Errorf("%w: unknown token_in_addr %q", ErrInvalidArgument, tokenInAddr)
	}
	if amountIn.IsZero() {
		return primitives.Zero(), nil
	}
	if amountIn.IsNegative() {
		return primitives.Decimal{}, fmt.Errorf("%w: amount_in must be non-negative", ErrInvalidArgument)
	}

	if logrus.GetLevel() >= logrus.DebugLevel {
		logrus.Debugf("clpool: swap initiated token_in=%s amount_in=%s sqrt_price_limit=%s simulate=%t",
			tokenInAddr, amountIn.String(), sqrtPriceLimit.String(), simulate)
	}

	snap := p.snapshot()

	var (
		amountOut primitives.Decimal
		err       error
	)
	if tokenInAddr == p.TokenX {
		amountOut, err = p.swapXForY(amountIn, sqrtPriceLimit)
	} else {
		amountOut, err = p.swapYForX(amountIn, sqrtPriceLimit)
	}

	if err != nil {
		logrus.Debugf("clpool: swap failed, restoring pre-swap state: %v", err)
		p.restore(snap)
		return primitives.Decimal{}, err
	}

	if !simulate {
		if tokenInAddr == p.TokenX {
			p.tokenXBalance = p.tokenXBalance.Add(amountIn)
			p.tokenYBalance = p.tokenYBalance.Sub(amountOut)
		} else {
			p.tokenYBalance = p.tokenYBalance.Add(amountIn)
			p.tokenXBalance = p.tokenXBalance.Sub(amountOut)
		}
		if logrus.GetLevel() >= logrus.DebugLevel {
			logrus.Debugf("clpool: swap complete amount_out=%s curr_sqrt_price=%s curr_tick=%d",
				amountOut.String(), p.currSqrtPrice.String(), p.currTickIdx)
		}
		return amountOut, nil
	}

	p.restore(snap)
	return amountOut, nil
}

// deductFees splits amountRemaining into the net amount available to swap
// and the fee taken on the way in. Fees are truncated toward zero, per the
// single rounding regime adopted for this engine.
func (p *Pool) deductFees(amountRemaining primitives.Decimal) (netIn, feeIn primitives.Decimal) {
	feeIn = amountRemaining.Mul(p.FeeTier).Truncate(0)
	netIn = amountRemaining.Sub(feeIn)
	return netIn, feeIn
}

// addFees inverts deductFees when the amount actually consumed (before fee)
// is known and the gross amount (including fee) must be recovered.
func (p *Pool) addFees(amountUsedForSwap primitives.Decimal) (amountUsed, feeIn primitives.Decimal) {
	amountUsed = mustDiv(amountUsedForSwap, decOne.Sub(p.FeeTier))
	feeIn = amountUsed.Sub(amountUsedForSwap)
	return amountUsed, feeIn
}

// truncateNonNegToZero truncates d toward zero, clamping away any
// negative result that could only arise from rounding noise.
func truncateNonNegToZero(d primitives.Decimal) primitives.Decimal {
	t := d.Truncate(0)
	if t.IsNegative() {
		return primitives.Zero()
	}
	return t
}

// swapXForY implements the x→y direction: input is token X, price
// decreases, crossing proceeds downward through the tick index.
func (p *Pool) swapXForY(amountIn, sqrtPriceLimit primitives.Decimal) (primitives.Decimal, error) {
	if p.liquidity.IsZero() {
		return primitives.Decimal{}, ErrInsufficientLiquidity
	}

	amountOut := primitives.Zero()
	amountRemaining := amountIn

	nextTick, ok := p.ticks.findNext(p.currTickIdx, directionDown)
	if !ok {
		return primitives.Decimal{}, ErrInsufficientLiquidity
	}
	targetSqrtPrice, _ := tickToSqrtPrice(nextTick.Idx)

	for amountRemaining.IsPositive() {
		netIn, feeIn := p.deductFees(amountRemaining)

		invCurr := mustDiv(decOne, p.currSqrtPrice)
		updatedInv := invCurr.Add(mustDiv(netIn, p.liquidity))
		updatedSqrtPrice := mustDiv(decOne, updatedInv)

		if updatedSqrtPrice.GreaterThanOrEqual(targetSqrtPrice) {
			deltaSqrtPrice := p.currSqrtPrice.Sub(updatedSqrtPrice)
			amountOut = amountOut.Add(truncateNonNegToZero(deltaSqrtPrice.Mul(p.liquidity)))
			p.feeGrowthGlobalX = p.feeGrowthGlobalX.Add(mustDiv(feeIn, p.liquidity))
			p.currSqrtPrice = updatedSqrtPrice
			p.currTickIdx = sqrtPriceToTick(updatedSqrtPrice)
			amountRemaining = primitives.Zero()
		} else {
			amountUsedForSwap := mustDiv(decOne, targetSqrtPrice).Sub(mustDiv(decOne, p.currSqrtPrice)).Mul(p.liquidity)
			amountUsed, feeIn2 := p.addFees(amountUsedForSwap)

			deltaSqrtPrice := p.currSqrtPrice.Sub(targetSqrtPrice)
			amountOut = amountOut.Add(truncateNonNegToZero(deltaSqrtPrice.Mul(p.liquidity)))
			amountRemaining = amountRemaining.Sub(amountUsed)
			p.feeGrowthGlobalX = p.feeGrowthGlobalX.Add(mustDiv(feeIn2, p.liquidity))

			p.currTickIdx = nextTick.Idx
			newNext, ok2 := p.ticks.findNext(p.currTickIdx, directionDown)
			if !ok2 {
				return primitives.Decimal{}, ErrInsufficientLiquidity
			}
			p.currSqrtPrice = targetSqrtPrice

			crossed, _ := p.ticks.get(p.currTickIdx)
			p.liquidity = p.liquidity.Sub(crossed.LiquidityNet)
			if p.liquidity.IsZero() {
				return primitives.Decimal{}, ErrInsufficientLiquidity
			}

			targetSqrtPrice, _ = tickToSqrtPrice(newNext.Idx)
			p.flipFeeGrowthOutside(crossed)

			if logrus.GetLevel() >= logrus.TraceLevel {
				logrus.Tracef("clpool: crossed tick idx=%d liquidity_net=%s liquidity=%s",
					crossed.Idx, crossed.LiquidityNet.String(), p.liquidity.String())
			}
			nextTick = newNext
		}

		if p.currSqrtPrice.LessThanOrEqual(sqrtPriceLimit) {
			return primitives.Decimal{}, ErrSlippageTooHigh
		}
	}

	return amountOut, nil
}

// swapYForX implements the y→x direction: input is token Y, price
// increases, crossing proceeds upward through the tick index.
func (p *Pool) swapYForX(amountIn, sqrtPriceLimit primitives.Decimal) (primitives.Decimal, error) {
	if p.liquidity.IsZero() {
		return primitives.Decimal{}, ErrInsufficientLiquidity
	}

	amountOut := primitives.Zero()
	amountRemaining := amountIn

	nextTick, ok := p.ticks.findNext(p.currTickIdx, directionUp)
	if !ok {
		return primitives.Decimal{}, ErrInsufficientLiquidity
	}
	targetSqrtPrice, _ := tickToSqrtPrice(nextTick.Idx)

	for amountRemaining.IsPositive() {
		netIn, feeIn := p.deductFees(amountRemaining)

		deltaSqrtPrice := mustDiv(netIn, p.liquidity)
		updatedSqrtPrice := p.currSqrtPrice.Add(deltaSqrtPrice)

		if updatedSqrtPrice.LessThanOrEqual(targetSqrtPrice) {
			deltaInv := mustDiv(decOne, p.currSqrtPrice).Sub(mustDiv(decOne, updatedSqrtPrice))
			amountOut = amountOut.Add(truncateNonNegToZero(deltaInv.Mul(p.liquidity)))
			p.feeGrowthGlobalY = p.feeGrowthGlobalY.Add(mustDiv(feeIn, p.liquidity))
			p.currSqrtPrice = updatedSqrtPrice
			p.currTickIdx = sqrtPriceToTick(updatedSqrtPrice)
			amountRemaining = primitives.Zero()
		} else {
			amountUsedForSwap := targetSqrtPrice.Sub(p.currSqrtPrice).Mul(p.liquidity)
			amountUsed, feeIn2 := p.addFees(amountUsedForSwap)

			deltaInv := mustDiv(decOne, p.currSqrtPrice).Sub(mustDiv(decOne, targetSqrtPrice))
			amountOut = amountOut.Add(truncateNonNegToZero(deltaInv.Mul(p.liquidity)))
			amountRemaining = amountRemaining.Sub(amountUsed)
			p.feeGrowthGlobalY = p.feeGrowthGlobalY.Add(mustDiv(feeIn2, p.liquidity))

			p.currTickIdx = nextTick.Idx
			newNext, ok2 := p.ticks.findNext(p.currTickIdx, directionUp)
			if !ok2 {
				return primitives.Decimal{}, ErrInsufficientLiquidity
			}
			p.currSqrtPrice = targetSqrtPrice

			crossed, _ := p.ticks.get(p.currTickIdx)
			// Liquidity is added, not subtracted, when crossing upward
			// through a tick's boundary: liquidity_net is signed relative
			// to crossing in the upward direction.
			p.liquidity = p.liquidity.Add(crossed.LiquidityNet)
			if p.liquidity.IsZero() {
				return primitives.Decimal{}, ErrInsufficientLiquidity
			}

			targetSqrtPrice, _ = tickToSqrtPrice(newNext.Idx)
			p.flipFeeGrowthOutside(crossed)

			if logrus.GetLevel() >= logrus.TraceLevel {
				logrus.Tracef("clpool: crossed tick idx=%d liquidity_net=%s liquidity=%s",
					crossed.Idx, crossed.LiquidityNet.String(), p.liquidity.String())
			}
			nextTick = newNext
		}

		if p.currSqrtPrice.GreaterThanOrEqual(sqrtPriceLimit) {
			return primitives.Decimal{}, ErrSlippageTooHigh
		}
	}

	return amountOut, nil
}

// flipFeeGrowthOutside updates the fee_growth_outside of the tick just
// crossed during a swap: t.outside <- global - t.outside (componentwise).
// This flips which side of the tick is considered "outside" now that the
// current price has moved past it. Always call this with the tick that
// was actually crossed, never a neighbouring tick.
func (p *Pool) flipFeeGrowthOutside(t *Tick) {
	t.FeeGrowthOutsideX = p.feeGrowthGlobalX.Sub(t.FeeGrowthOutsideX)
	t.FeeGrowthOutsideY = p.feeGrowthGlobalY.Sub(t.FeeGrowthOutsideY)
}
