package clpool

import (
	"testing"

	"github.com/johnayoung/go-crypto-quant-toolkit/pkg/primitives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLiquidityInRangeUpdatesActiveLiquidity(t *testing.T) {
	p := newTestPool(t, primitives.Zero(), 60)

	pos, err := p.AddLiquidity("lp1", primitives.NewDecimal(1_000), -600, 600)
	require.NoError(t, err)

	assert.True(t, p.Liquidity().Equal(primitives.NewDecimal(1_000)), "current tick 0 is inside [-600,600), so active liquidity should include it")
	assert.Equal(t, "lp1", pos.Owner)
	assert.Equal(t, 2, p.ActiveTickCount())
}

func TestAddLiquidityOutOfRangeDoesNotAffectActiveLiquidity(t *testing.T) {
	p := newTestPool(t, primitives.Zero(), 60)

	_, err := p.AddLiquidity("lp1", primitives.NewDecimal(1_000), 600, 1200)
	require.NoError(t, err)

	assert.True(t, p.Liquidity().IsZero(), "range [600,1200) does not contain current tick 0")
}

func TestAddLiquidityRejectsMisalignedBoundaries(t *testing.T) {
	p := newTestPool(t, primitives.Zero(), 60)

	_, err := p.AddLiquidity("lp1", primitives.NewDecimal(1_000), -50, 600)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAddLiquidityRejectsInvertedRange(t *testing.T) {
	p := newTestPool(t, primitives.Zero(), 60)

	_, err := p.AddLiquidity("lp1", primitives.NewDecimal(1_000), 600, -600)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAddLiquidityTopsUpExistingPosition(t *testing.T) {
	p := newTestPool(t, primitives.Zero(), 60)

	_, err := p.AddLiquidity("lp1", primitives.NewDecimal(1_000), -600, 600)
	require.NoError(t, err)
	pos, err := p.AddLiquidity("lp1", primitives.NewDecimal(500), -600, 600)
	require.NoError(t, err)

	assert.True(t, pos.Liquidity.Equal(primitives.NewDecimal(1_500)))
	assert.True(t, p.Liquidity().Equal(primitives.NewDecimal(1_500)))
}

func TestRemoveLiquidityDeletesEmptyPosition(t *testing.T) {
	p := newTestPool(t, primitives.Zero(), 60)

	_, err := p.AddLiquidity("lp1", primitives.NewDecimal(1_000), -600, 600)
	require.NoError(t, err)

	err = p.RemoveLiquidity("lp1", -600, 600, primitives.NewDecimal(1_000))
	require.NoError(t, err)

	assert.True(t, p.Liquidity().IsZero())
	_, found := p.Position("lp1", -600, 600)
	assert.False(t, found, "position with zero liquidity and zero fees must be deleted")
	assert.Equal(t, 0, p.ActiveTickCount(), "both boundary ticks should drop once liquidity_gross reaches zero")
}

func TestRemoveLiquidityUnknownPosition(t *testing.T) {
	p := newTestPool(t, primitives.Zero(), 60)

	err := p.RemoveLiquidity("nobody", -600, 600, primitives.NewDecimal(1))
	assert.ErrorIs(t, err, ErrPositionNotFound)
}

func TestRemoveLiquidityRejectsExcessAmount(t *testing.T) {
	p := newTestPool(t, primitives.Zero(), 60)
	_, err := p.AddLiquidity("lp1", primitives.NewDecimal(1_000), -600, 600)
	require.NoError(t, err)

	err = p.RemoveLiquidity("lp1", -600, 600, primitives.NewDecimal(1_001))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTwoOverlappingPositionsShareBoundaryTick(t *testing.T) {
	p := newTestPool(t, primitives.Zero(), 60)

	_, err := p.AddLiquidity("lp1", primitives.NewDecimal(1_000), -600, 600)
	require.NoError(t, err)
	_, err = p.AddLiquidity("lp2", primitives.NewDecimal(500), -600, 1200)
	require.NoError(t, err)

	// Three boundary ticks total: -600 (shared), 600, 1200.
	assert.Equal(t, 3, p.ActiveTickCount())
	assert.True(t, p.Liquidity().Equal(primitives.NewDecimal(1_500)))

	require.NoError(t, p.RemoveLiquidity("lp1", -600, 600, primitives.NewDecimal(1_000)))

	// -600 remains active (still referenced by lp2); 600 should have dropped.
	assert.Equal(t, 2, p.ActiveTickCount())
	assert.True(t, p.Liquidity().Equal(primitives.NewDecimal(500)))
}

func TestWithdrawFeesZeroesPendingFees(t *testing.T) {
	p := newTestPool(t, primitives.Zero(), 60)
	_, err := p.AddLiquidity("lp1", primitives.NewDecimal(1_000), -600, 600)
	require.NoError(t, err)

	feesX, feesY, err := p.WithdrawFees("lp1", -600, 600)
	require.NoError(t, err)
	assert.True(t, feesX.IsZero())
	assert.True(t, feesY.IsZero())

	pos, found := p.Position("lp1", -600, 600)
	require.True(t, found, "position still carries liquidity, so it must survive withdrawal")
	assert.True(t, pos.FeesX.IsZero())
}

func TestWithdrawFeesUnknownPosition(t *testing.T) {
	p := newTestPool(t, primitives.Zero(), 60)
	_, _, err := p.WithdrawFees("nobody", -600, 600)
	assert.ErrorIs(t, err, ErrPositionNotFound)
}
