package clpool

import "github.com/johnayoung/go-crypto-quant-toolkit/pkg/primitives"

// positionKey identifies a Position by (owner, lower, upper).
type positionKey struct {
	owner string
	lower int
	upper int
}

// Position is an LP's claim to a fraction of liquidity over a fixed tick
// range. It is inert: all mutation is performed by the pool's liquidity
// manager and fee accounting.
type Position struct {
	Owner     string
	LowerTick int
	UpperTick int
	Liquidity primitives.Decimal

	// FeeGrowthInsideX/Y snapshot the inside-range fee growth as of the
	// last settlement (add/remove/withdraw).
	FeeGrowthInsideX primitives.Decimal
	FeeGrowthInsideY primitives.Decimal

	// FeesX/Y are materialized, not-yet-withdrawn fees.
	FeesX primitives.Decimal
	FeesY primitives.Decimal
}

func (p *Position) key() positionKey {
	return positionKey{owner: p.Owner, lower: p.LowerTick, upper: p.UpperTick}
}

func (p *Position) clone() *Position {
	cp := *p
	return &cp
}

// isEmpty reports whether the position carries no liquidity and no
// uncollected fees, the condition under which it is deleted.
func (p *Position) isEmpty() bool {
	return p.Liquidity.IsZero() && p.FeesX.IsZero() && p.FeesY.IsZero()
}
