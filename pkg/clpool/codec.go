package clpool

import (
	"math/big"

	"github.com/johnayoung/go-crypto-quant-toolkit/pkg/primitives"
)

// stdIncrementDistance and expAtPriceOne are Osmosis' fixed constants for the
// geometric-then-additive tick encoding (see "Osmosis docs": each order of
// magnitude of price is divided into stdIncrementDistance additive ticks).
const (
	stdIncrementDistance = 9_000_000
	expAtPriceOne        = -6

	// maxIncrementLevel bounds the search for the order-of-magnitude bucket
	// a price falls into. Ticks realistic for any pool stay well inside it.
	maxIncrementLevel = 60
)

var (
	decTen = primitives.NewDecimal(10)
	decOne = primitives.One()
)

// pow10 returns 10^exp as a Decimal for any integer exponent, positive or
// negative.
func pow10(exp int) primitives.Decimal {
	if exp >= 0 {
		return decTen.Pow(primitives.NewDecimal(int64(exp)))
	}
	d := decTen.Pow(primitives.NewDecimal(int64(-exp)))
	quotient, err := decOne.Div(d)
	if err != nil {
		invariantViolation("pow10: division by zero")
	}
	return quotient
}

// sqrtDecimal computes the square root of a non-negative Decimal. Bit-exact
// compatibility with any on-chain fixed-point sqrt is not a goal, so this
// goes through math/big.Float the same way sqrt-price math is converted
// elsewhere between Decimal and big.Float.
func sqrtDecimal(d primitives.Decimal) primitives.Decimal {
	if d.IsNegative() {
		invariantViolation("sqrtDecimal: negative operand")
	}
	f, _, err := big.ParseFloat(d.String(), 10, 256, big.ToNearestEven)
	if err != nil {
		invariantViolation("sqrtDecimal: " + err.Error())
	}
	root := new(big.Float).SetPrec(256).Sqrt(f)
	result, err := primitives.NewDecimalFromString(root.Text('f', 40))
	if err != nil {
		invariantViolation("sqrtDecimal: " + err.Error())
	}
	return result
}

// priceAtTick returns the price P(t) and the tick's additive step s.
func priceAtTick(tick int) (price, step primitives.Decimal) {
	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}
	k := absTick / stdIncrementDistance

	if tick >= 0 {
		e := expAtPriceOne + k
		s := pow10(e)
		r := primitives.NewDecimal(int64(tick - k*stdIncrementDistance))
		price = pow10(k).Add(r.Mul(s))
		return price, s
	}

	e := expAtPriceOne - (k + 1)
	s := pow10(e)
	r := primitives.NewDecimal(int64(-tick - k*stdIncrementDistance))
	price = pow10(-k).Sub(r.Mul(s))
	return price, s
}

// tickToSqrtPrice returns the lower and upper sqrt-price edges of tick's
// cell: (sqrt(P(t)), sqrt(P(t)+s)).
func tickToSqrtPrice(tick int) (lower, upper primitives.Decimal) {
	price, step := priceAtTick(tick)
	lower = sqrtDecimal(price)
	upper = sqrtDecimal(price.Add(step))
	return lower, upper
}

// sqrtPriceToTick inverts tickToSqrtPrice. It always returns a single tick
// index; when a price falls between two tick boundaries, the additive part
// is rounded to the nearest tick (half away from zero).
func sqrtPriceToTick(sqrtPrice primitives.Decimal) int {
	price := sqrtPrice.Mul(sqrtPrice)

	if price.Equal(decOne) {
		return 0
	}

	if price.GreaterThan(decOne) {
		for k := 0; k < maxIncrementLevel; k++ {
			levelLow := pow10(k)
			levelHigh := pow10(k + 1)
			if price.GreaterThan(levelLow) && price.LessThanOrEqual(levelHigh) {
				e := expAtPriceOne + k
				s := pow10(e)
				diff := price.Sub(levelLow)
				additive := roundDecimal(mustDiv(diff, s))
				return k*stdIncrementDistance + additive
			}
		}
		invariantViolation("sqrtPriceToTick: price out of supported range")
	}

	for k := 0; k < maxIncrementLevel; k++ {
		levelHigh := pow10(-k)
		levelLow := pow10(-(k + 1))
		if price.LessThan(levelHigh) && price.GreaterThanOrEqual(levelLow) {
			e := expAtPriceOne - (k + 1)
			s := pow10(e)
			diff := levelHigh.Sub(price)
			additive := roundDecimal(mustDiv(diff, s))
			return -k*stdIncrementDistance - additive
		}
	}
	invariantViolation("sqrtPriceToTick: price out of supported range")
	return 0
}

// tickByTickSpacing rounds a real tick value toward negative infinity to the
// nearest multiple of spacing.
func tickByTickSpacing(preciseTick primitives.Decimal, spacing int) int {
	spacingDec := primitives.NewDecimal(int64(spacing))
	quotient := mustDiv(preciseTick, spacingDec)
	return int(quotient.Floor().IntPart()) * spacing
}

func mustDiv(a, b primitives.Decimal) primitives.Decimal {
	q, err := a.Div(b)
	if err != nil {
		invariantViolation("division by zero in tick codec")
	}
	return q
}

// roundDecimal rounds d to the nearest integer (half away from zero) and
// returns it as an int.
func roundDecimal(d primitives.Decimal) int {
	half := primitives.MustDecimalFromString("0.5")
	if d.IsNegative() {
		return -roundDecimal(d.Neg())
	}
	return int(d.Add(half).Truncate(0).IntPart())
}
