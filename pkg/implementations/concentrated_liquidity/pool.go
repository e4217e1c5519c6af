package concentrated_liquidity

import (
	"context"
	"errors"
	"fmt"

	core "github.com/daoleno/uniswap-sdk-core/entities"
	"github.com/daoleno/uniswapv3-sdk/constants"
	"github.com/ethereum/go-ethereum/common"
	"github.com/johnayoung/go-crypto-quant-toolkit/pkg/clpool"
	"github.com/johnayoung/go-crypto-quant-toolkit/pkg/mechanisms"
	"github.com/johnayoung/go-crypto-quant-toolkit/pkg/primitives"
)

var (
	// ErrInvalidPoolParams is returned when pool parameters are invalid.
	ErrInvalidPoolParams = errors.New("invalid pool parameters")

	// ErrInvalidTickRange is returned when tick range is invalid.
	ErrInvalidTickRange = errors.New("invalid tick range: tickLower must be less than tickUpper")

	// ErrInsufficientLiquidity is returned when there's insufficient liquidity.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)

// defaultRangeSpacings is how many multiples of tick_spacing on either side
// of the pool's initial tick the interface-mandated AddLiquidity uses when
// the caller doesn't have a tick range of their own to specify. Callers
// that need an explicit range should use AddLiquidityInRange instead.
const defaultRangeSpacings = 1000

// Pool implements mechanisms.LiquidityPool over pkg/clpool's concentrated
// liquidity engine. It is the adapter boundary between the framework's
// token/fee-tier conventions (borrowed from the Uniswap V3 SDK) and the
// engine's own token-scheme-agnostic, Osmosis-style tick math.
//
// tokenA/tokenB and fee are retained here, and nowhere else, precisely
// because the engine itself has no notion of on-chain addresses, decimals,
// or Uniswap fee tiers — those only matter at this boundary.
type Pool struct {
	poolID      string
	tokenA      *core.Token
	tokenB      *core.Token
	fee         constants.FeeAmount
	tickSpacing int

	engine *clpool.Pool

	defaultLower, defaultUpper int
	nextPositionID             int
}

// NewPool creates a new concentrated liquidity pool, wrapping a pkg/clpool
// engine initialized at initSqrtPrice.
//
// Parameters:
//   - poolID: Unique identifier for this pool
//   - tokenAAddress/tokenBAddress: on-chain addresses, used only as stable
//     token identifiers for the engine (converted to hex strings)
//   - tokenADecimals/tokenBDecimals: decimals, retained for SDK token
//     bookkeeping; the engine itself operates on raw decimal amounts
//   - fee: fee tier (500 for 0.05%, 3000 for 0.3%, 10000 for 1%), which also
//     determines tick_spacing via the SDK's fee/tick-spacing table
//   - initSqrtPrice: the pool's starting sqrt price
func NewPool(
	poolID string,
	tokenAAddress common.Address,
	tokenADecimals uint,
	tokenBAddress common.Address,
	tokenBDecimals uint,
	fee constants.FeeAmount,
	initSqrtPrice primitives.Decimal,
) (*Pool, error) {
	if poolID == "" {
		return nil, fmt.Errorf("%w: poolID cannot be empty", ErrInvalidPoolParams)
	}

	tokenA := core.NewToken(1, tokenAAddress, tokenADecimals, "", "")
	tokenB := core.NewToken(1, tokenBAddress, tokenBDecimals, "", "")

	tickSpacing, ok := constants.TickSpacings[fee]
	if !ok {
		return nil, fmt.Errorf("%w: invalid fee amount %d", ErrInvalidPoolParams, fee)
	}

	feeTier, err := primitives.NewDecimalFromString(fmt.Sprintf("%d", fee))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid fee decimal: %v", ErrInvalidPoolParams, err)
	}
	million, _ := primitives.NewDecimalFromString("1000000")
	feeTier, err = feeTier.Div(million)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoolParams, err)
	}

	engine, err := clpool.NewPool(tokenAAddress.Hex(), tokenBAddress.Hex(), initSqrtPrice, feeTier, tickSpacing)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoolParams, err)
	}

	return &Pool{
		poolID:       poolID,
		tokenA:       tokenA,
		tokenB:       tokenB,
		fee:          fee,
		tickSpacing:  tickSpacing,
		engine:       engine,
		defaultLower: -defaultRangeSpacings * tickSpacing,
		defaultUpper: defaultRangeSpacings * tickSpacing,
	}, nil
}

// Mechanism returns the mechanism type identifier.
func (p *Pool) Mechanism() mechanisms.MechanismType {
	return mechanisms.MechanismTypeLiquidityPool
}

// Venue returns the venue identifier.
func (p *Pool) Venue() string {
	return "concentrated-liquidity"
}

// Calculate returns the pool's current computed state. Unlike a stateless
// calculator, this adapter wraps a stateful engine, so Calculate reflects
// the engine's live state rather than values threaded through params — it
// still does not mutate anything. AccumulatedFeesA/B carry the engine's
// global fee growth counters (FeeGrowthGlobalX/Y, fees per unit of
// liquidity), not the total fee amounts the pool has collected.
func (p *Pool) Calculate(ctx context.Context, params mechanisms.PoolParams) (mechanisms.PoolState, error) {
	if err := ctx.Err(); err != nil {
		return mechanisms.PoolState{}, err
	}

	sqrtPrice := p.engine.CurrSqrtPrice()
	priceDec := sqrtPrice.Mul(sqrtPrice)
	spotPrice, err := primitives.NewPrice(priceDec)
	if err != nil {
		return mechanisms.PoolState{}, fmt.Errorf("invalid spot price: %w", err)
	}

	liquidityAmount, err := primitives.NewAmount(p.engine.Liquidity())
	if err != nil {
		return mechanisms.PoolState{}, fmt.Errorf("invalid liquidity: %w", err)
	}

	feesA, err := primitives.NewAmount(p.engine.FeeGrowthGlobalX())
	if err != nil {
		return mechanisms.PoolState{}, fmt.Errorf("invalid accumulated fees: %w", err)
	}
	feesB, err := primitives.NewAmount(p.engine.FeeGrowthGlobalY())
	if err != nil {
		return mechanisms.PoolState{}, fmt.Errorf("invalid accumulated fees: %w", err)
	}

	return mechanisms.PoolState{
		SpotPrice:          spotPrice,
		Liquidity:          liquidityAmount,
		EffectiveLiquidity: liquidityAmount,
		AccumulatedFeesA:   feesA,
		AccumulatedFeesB:   feesB,
		Metadata: map[string]interface{}{
			"current_tick": p.engine.CurrTickIdx(),
			"tick_spacing": p.tickSpacing,
			"active_ticks": p.engine.ActiveTickCount(),
		},
	}, nil
}

// AddLiquidity adds liquidity sized from amounts over the adapter's default
// wide tick range, recording enough in the returned position's Metadata for
// RemoveLiquidity to reverse it. Use AddLiquidityInRange for callers that
// need to choose the range themselves.
func (p *Pool) AddLiquidity(ctx context.Context, amounts mechanisms.TokenAmounts) (mechanisms.PoolPosition, error) {
	return p.AddLiquidityInRange(ctx, amounts, p.defaultLower, p.defaultUpper)
}

// AddLiquidityInRange adds liquidity sized from amounts over [tickLower,
// tickUpper), choosing the liquidity that the tighter of the two token
// budgets supports, via clpool.Pool.QuoteLiquidity.
func (p *Pool) AddLiquidityInRange(ctx context.Context, amounts mechanisms.TokenAmounts, tickLower, tickUpper int) (mechanisms.PoolPosition, error) {
	if err := ctx.Err(); err != nil {
		return mechanisms.PoolPosition{}, err
	}
	if tickLower >= tickUpper {
		return mechanisms.PoolPosition{}, ErrInvalidTickRange
	}

	liquidity := p.engine.QuoteLiquidity(tickLower, tickUpper, amounts.AmountA.Decimal(), amounts.AmountB.Decimal())
	if !liquidity.IsPositive() {
		return mechanisms.PoolPosition{}, fmt.Errorf("%w: amounts do not fund any liquidity over this range", ErrInvalidPoolParams)
	}

	owner := fmt.Sprintf("%s-pos-%d", p.poolID, p.nextPositionID)
	p.nextPositionID++

	pos, err := p.engine.AddLiquidity(owner, liquidity, tickLower, tickUpper)
	if err != nil {
		return mechanisms.PoolPosition{}, err
	}

	liquidityAmount, err := primitives.NewAmount(pos.Liquidity)
	if err != nil {
		return mechanisms.PoolPosition{}, fmt.Errorf("invalid liquidity: %w", err)
	}

	return mechanisms.PoolPosition{
		PoolID:          p.poolID,
		Liquidity:       liquidityAmount,
		TokensDeposited: amounts,
		Metadata: map[string]interface{}{
			"owner":      owner,
			"tick_lower": tickLower,
			"tick_upper": tickUpper,
		},
	}, nil
}

// RemoveLiquidity removes all of position's liquidity from the pool and
// returns the token amounts withdrawn.
func (p *Pool) RemoveLiquidity(ctx context.Context, position mechanisms.PoolPosition) (mechanisms.TokenAmounts, error) {
	if err := ctx.Err(); err != nil {
		return mechanisms.TokenAmounts{}, err
	}

	owner, tickLower, tickUpper, err := positionKeyFromMetadata(position.Metadata)
	if err != nil {
		return mechanisms.TokenAmounts{}, err
	}

	before := p.engine.TokenXBalance()
	beforeY := p.engine.TokenYBalance()

	if err := p.engine.RemoveLiquidity(owner, tickLower, tickUpper, position.Liquidity.Decimal()); err != nil {
		return mechanisms.TokenAmounts{}, err
	}

	// RemoveLiquidity debits the pool's running balances by the tokens
	// returned to the caller, so the withdrawn amounts are the negated delta.
	deltaX := before.Sub(p.engine.TokenXBalance())
	deltaY := beforeY.Sub(p.engine.TokenYBalance())

	amountA, err := primitives.NewAmount(deltaX)
	if err != nil {
		return mechanisms.TokenAmounts{}, fmt.Errorf("invalid amountA: %w", err)
	}
	amountB, err := primitives.NewAmount(deltaY)
	if err != nil {
		return mechanisms.TokenAmounts{}, fmt.Errorf("invalid amountB: %w", err)
	}

	return mechanisms.TokenAmounts{AmountA: amountA, AmountB: amountB}, nil
}

// positionKeyFromMetadata extracts the (owner, lower, upper) key stashed by
// AddLiquidity/AddLiquidityInRange into a PoolPosition's Metadata.
func positionKeyFromMetadata(metadata map[string]interface{}) (owner string, lower, upper int, err error) {
	owner, ok := metadata["owner"].(string)
	if !ok {
		return "", 0, 0, errors.New("owner required in position metadata")
	}
	lower, ok = metadata["tick_lower"].(int)
	if !ok {
		return "", 0, 0, errors.New("tick_lower required in position metadata")
	}
	upper, ok = metadata["tick_upper"].(int)
	if !ok {
		return "", 0, 0, errors.New("tick_upper required in position metadata")
	}
	return owner, lower, upper, nil
}

// Swap executes a directional swap against the wrapped engine. This is not
// part of the mechanisms.LiquidityPool interface (which has no swap
// operation), but it is the adapter's primary reason for existing: exposing
// the pool's swap engine to the rest of the framework.
func (p *Pool) Swap(ctx context.Context, tokenIn common.Address, amountIn primitives.Decimal, sqrtPriceLimit primitives.Decimal, simulate bool) (primitives.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return primitives.Decimal{}, err
	}
	return p.engine.Swap(tokenIn.Hex(), amountIn, sqrtPriceLimit, simulate)
}

// CalculatePositionValue calculates the current value of a concentrated
// liquidity position in terms of currentPriceA/currentPriceB, by quoting
// (not executing) the tokens the position would return if fully withdrawn.
func (p *Pool) CalculatePositionValue(
	position mechanisms.PoolPosition,
	currentPriceA primitives.Price,
	currentPriceB primitives.Price,
) (primitives.Amount, error) {
	owner, tickLower, tickUpper, err := positionKeyFromMetadata(position.Metadata)
	if err != nil {
		return primitives.ZeroAmount(), err
	}

	pos, found := p.engine.Position(owner, tickLower, tickUpper)
	if !found {
		return primitives.ZeroAmount(), ErrInsufficientLiquidity
	}

	deltaX, deltaY := p.engine.QuoteWithdrawAmounts(pos.Liquidity, tickLower, tickUpper)

	amountA, err := primitives.NewAmount(deltaX)
	if err != nil {
		return primitives.ZeroAmount(), fmt.Errorf("invalid amountA: %w", err)
	}
	amountB, err := primitives.NewAmount(deltaY)
	if err != nil {
		return primitives.ZeroAmount(), fmt.Errorf("invalid amountB: %w", err)
	}

	valueA := amountA.MulPrice(currentPriceA)
	valueB := amountB.MulPrice(currentPriceB)

	return valueA.Add(valueB), nil
}
