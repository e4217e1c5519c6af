// Package clpool implements an in-memory concentrated-liquidity AMM pool
// engine between two fungible tokens, in the style of Uniswap v3 / Osmosis
// supercharged pools.
//
// A Pool tracks the current marginal price, the active liquidity, an
// indexed "tick" grid, per-position fee accounting, and a swap traversal
// algorithm that crosses ticks while preserving the pool's invariants.
// Token custody, on-chain authentication, persistence, event emission,
// multi-pool routing, oracle/TWAP accumulation, and protocol-level fees
// are all out of scope: the engine reports token deltas and leaves moving
// the tokens to the caller.
//
// # Glossary
//
//   - Tick: a discrete index over a geometric-then-additive partition of
//     price space; cell edges are sqrt-prices.
//   - Tick spacing: minimum allowed gap between initializable tick indices.
//   - Active liquidity: the sum of position liquidities whose range
//     [lower, upper) contains the current tick.
//   - liquidity_net / liquidity_gross: signed crossing-delta / unsigned
//     reference count at a tick.
//   - fee_growth_outside: per-token fees-per-unit-active-liquidity
//     attributed to the side of a tick opposite the current tick at the
//     last time that tick was crossed.
//   - fee_growth_inside: per-token fees accrued within a range, derived
//     from the globals and the two boundaries' outsides.
//   - Position: an LP's claim to a fraction of liquidity over a fixed
//     tick range, identified by (owner, lower, upper).
//   - Slippage limit: a sqrt-price past which a swap refuses to push the
//     pool.
//
// # Invariants
//
//   - I1: pool liquidity equals the sum of position liquidity for every
//     position whose range contains the current tick.
//   - I2: for every active tick, liquidity_net equals the sum of
//     liquidity of positions with that lower tick minus the sum of
//     liquidity of positions with that upper tick.
//   - I3: fee growth inside a range equals global minus fee_below(lower)
//     minus fee_above(upper).
//   - I4: fee_growth_global_x/y never decrease.
//   - I5: every initialized tick index is a multiple of tick_spacing.
//
// Thread Safety: a Pool is single-threaded. Concurrent mutation of the
// same Pool from multiple goroutines is not supported; callers that need
// concurrency should shard by pool.
package clpool
