package clpool

import "github.com/johnayoung/go-crypto-quant-toolkit/pkg/primitives"

// QuoteLiquidity computes the maximum liquidity that amountX of token X and
// amountY of token Y can fund over [lower, upper) at the pool's current
// price. It is the algebraic inverse of liquidityToTokens, following the
// same three-region case split as the well-known Uniswap v3
// "liquidity for amounts" formula: below range only X is spent, above range
// only Y is spent, inside range the tighter of the two budgets binds.
func (p *Pool) QuoteLiquidity(lower, upper int, amountX, amountY primitives.Decimal) primitives.Decimal {
	if lower >= upper {
		return primitives.Zero()
	}
	pa, _ := tickToSqrtPrice(lower)
	pb, _ := tickToSqrtPrice(upper)
	pc := clampDecimal(p.currSqrtPrice, pa, pb)

	if pc.LessThanOrEqual(pa) {
		// Entirely below range: only X is ever consumed.
		return mustDiv(amountX.Mul(pa).Mul(pb), pb.Sub(pa))
	}
	if pc.GreaterThanOrEqual(pb) {
		// Entirely above range: only Y is ever consumed.
		return mustDiv(amountY, pb.Sub(pa))
	}

	lx := mustDiv(amountX.Mul(pb).Mul(pc), pb.Sub(pc))
	ly := mustDiv(amountY, pc.Sub(pa))
	if lx.LessThan(ly) {
		return lx
	}
	return ly
}

// QuoteWithdrawAmounts reports the token X/Y amounts that withdrawing
// liquidity over [lower, upper) would currently return, without mutating
// the pool. It shares liquidityToTokens with the real AddLiquidity and
// RemoveLiquidity paths, so the quote matches what a real withdrawal pays
// out at the current price.
func (p *Pool) QuoteWithdrawAmounts(liquidity primitives.Decimal, lower, upper int) (amountX, amountY primitives.Decimal) {
	return p.liquidityToTokens(liquidity, lower, upper, p.currSqrtPrice)
}
