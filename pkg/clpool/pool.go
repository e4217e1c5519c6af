package clpool

import (
	"fmt"

	"github.com/johnayoung/go-crypto-quant-toolkit/pkg/primitives"
)

// Pool is a single concentrated-liquidity pool between two tokens. It is
// not safe for concurrent use; callers that need concurrency should shard
// by pool.
type Pool struct {
	// Configuration, fixed for the lifetime of the pool.
	TokenX      string
	TokenY      string
	FeeTier     primitives.Decimal // fraction in [0,1)
	TickSpacing int

	// stdIncrementDistance and expAtPriceOne are per-pool fields, though
	// every pool in this implementation is constructed with the
	// Osmosis-standard values (9e6 and -6 respectively).
	stdIncrementDistance int
	expAtPriceOne        int

	// Mutable state.
	currSqrtPrice    primitives.Decimal
	currTickIdx      int
	liquidity        primitives.Decimal
	feeGrowthGlobalX primitives.Decimal
	feeGrowthGlobalY primitives.Decimal
	tokenXBalance    primitives.Decimal
	tokenYBalance    primitives.Decimal

	ticks     *tickIndex
	positions map[positionKey]*Position
}

// NewPool constructs a Pool initialized at initSqrtPrice, with no liquidity
// and no positions.
func NewPool(
	tokenX, tokenY string,
	initSqrtPrice primitives.Decimal,
	feeTier primitives.Decimal,
	tickSpacing int,
) (*Pool, error) {
	if tokenX == "" || tokenY == "" {
		return nil, fmt.Errorf("%w: token identifiers cannot be empty", ErrInvalidArgument)
	}
	if tokenX == tokenY {
		return nil, fmt.Errorf("%w: token_x and token_y must differ", ErrInvalidArgument)
	}
	if !initSqrtPrice.IsPositive() {
		return nil, fmt.Errorf("%w: init_sqrt_price must be positive", ErrInvalidArgument)
	}
	if feeTier.IsNegative() || feeTier.GreaterThanOrEqual(decOne) {
		return nil, fmt.Errorf("%w: fee_tier must be in [0,1)", ErrInvalidArgument)
	}
	if tickSpacing <= 0 {
		return nil, fmt.Errorf("%w: tick_spacing must be positive", ErrInvalidArgument)
	}

	p := &Pool{
		TokenX:               tokenX,
		TokenY:               tokenY,
		FeeTier:              feeTier,
		TickSpacing:          tickSpacing,
		stdIncrementDistance: stdIncrementDistance,
		expAtPriceOne:        expAtPriceOne,
		currSqrtPrice:        initSqrtPrice,
		liquidity:            primitives.Zero(),
		feeGrowthGlobalX:     primitives.Zero(),
		feeGrowthGlobalY:     primitives.Zero(),
		tokenXBalance:        primitives.Zero(),
		tokenYBalance:        primitives.Zero(),
		ticks:                newTickIndex(),
		positions:            make(map[positionKey]*Position),
	}
	p.currTickIdx = sqrtPriceToTick(initSqrtPrice)
	return p, nil
}

// CurrSqrtPrice returns the pool's current marginal sqrt-price.
func (p *Pool) CurrSqrtPrice() primitives.Decimal { return p.currSqrtPrice }

// CurrTickIdx returns the tick index corresponding to CurrSqrtPrice.
func (p *Pool) CurrTickIdx() int { return p.currTickIdx }

// Liquidity returns the pool's current active liquidity: the sum of
// position liquidities whose range strictly contains the current tick
// (invariant I1).
func (p *Pool) Liquidity() primitives.Decimal { return p.liquidity }

// TokenXBalance returns the running accounting of token X owed to the pool.
func (p *Pool) TokenXBalance() primitives.Decimal { return p.tokenXBalance }

// TokenYBalance returns the running accounting of token Y owed to the pool.
func (p *Pool) TokenYBalance() primitives.Decimal { return p.tokenYBalance }

// FeeGrowthGlobalX returns the monotonically non-decreasing global fee
// growth counter for token X.
func (p *Pool) FeeGrowthGlobalX() primitives.Decimal { return p.feeGrowthGlobalX }

// FeeGrowthGlobalY returns the monotonically non-decreasing global fee
// growth counter for token Y.
func (p *Pool) FeeGrowthGlobalY() primitives.Decimal { return p.feeGrowthGlobalY }

// ActiveTickCount returns the number of ticks currently in the active
// index (i.e. with non-zero liquidity_gross).
func (p *Pool) ActiveTickCount() int { return p.ticks.len() }

// Ticks invokes fn for every active tick in ascending order of index,
// stopping early if fn returns false. Tick values are copies; mutating
// them has no effect on pool state.
func (p *Pool) Ticks(fn func(Tick) bool) {
	p.ticks.ascend(func(t *Tick) bool {
		return fn(*t)
	})
}

// Position looks up a position by its identity. The returned value is a
// snapshot; use AddLiquidity/RemoveLiquidity/WithdrawFees to mutate it.
func (p *Pool) Position(owner string, lower, upper int) (Position, bool) {
	pos, ok := p.positions[positionKey{owner: owner, lower: lower, upper: upper}]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions invokes fn for every position currently tracked by the pool.
// Iteration order is unspecified.
func (p *Pool) Positions(fn func(Position) bool) {
	for _, pos := range p.positions {
		if !fn(*pos) {
			return
		}
	}
}

// poolSnapshot is a deep copy of every piece of Pool state a swap can
// touch, used to implement the rollback contract: a committed swap is
// atomic, and a failed or simulated swap leaves the pool byte-identical
// to its pre-call state.
type poolSnapshot struct {
	currSqrtPrice    primitives.Decimal
	currTickIdx      int
	liquidity        primitives.Decimal
	feeGrowthGlobalX primitives.Decimal
	feeGrowthGlobalY primitives.Decimal
	tokenXBalance    primitives.Decimal
	tokenYBalance    primitives.Decimal
	ticks            *tickIndex
	positions        map[positionKey]*Position
}

func (p *Pool) snapshot() *poolSnapshot {
	positions := make(map[positionKey]*Position, len(p.positions))
	for k, v := range p.positions {
		positions[k] = v.clone()
	}
	return &poolSnapshot{
		currSqrtPrice:    p.currSqrtPrice,
		currTickIdx:      p.currTickIdx,
		liquidity:        p.liquidity,
		feeGrowthGlobalX: p.feeGrowthGlobalX,
		feeGrowthGlobalY: p.feeGrowthGlobalY,
		tokenXBalance:    p.tokenXBalance,
		tokenYBalance:    p.tokenYBalance,
		ticks:            p.ticks.snapshot(),
		positions:        positions,
	}
}

func (p *Pool) restore(snap *poolSnapshot) {
	p.currSqrtPrice = snap.currSqrtPrice
	p.currTickIdx = snap.currTickIdx
	p.liquidity = snap.liquidity
	p.feeGrowthGlobalX = snap.feeGrowthGlobalX
	p.feeGrowthGlobalY = snap.feeGrowthGlobalY
	p.tokenXBalance = snap.tokenXBalance
	p.tokenYBalance = snap.tokenYBalance
	p.ticks = snap.ticks
	p.positions = snap.positions
}
