package clpool

import (
	"testing"

	"github.com/johnayoung/go-crypto-quant-toolkit/pkg/primitives"
	"github.com/stretchr/testify/require"
)

// newTestPool builds a pool initialized at tick 0 (sqrt price 1), with the
// given fee tier and tick_spacing, failing the test on construction error.
func newTestPool(t *testing.T, feeTier primitives.Decimal, tickSpacing int) *Pool {
	t.Helper()
	p, err := NewPool("X", "Y", primitives.One(), feeTier, tickSpacing)
	require.NoError(t, err)
	return p
}
