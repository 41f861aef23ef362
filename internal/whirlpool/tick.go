// internal/whirlpool/tick.go
package whirlpool

import (
	"errors"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"lukechampine.com/uint128"
)

// ErrInvalidPrice возвращается для неположительной цены
var ErrInvalidPrice = errors.New("price must be positive")

// tickBase – log(1.0001), шаг ценовой сетки
var tickBase = math.Log(1.0001)

// snapTolerance гасит ошибку float для цен, лежащих ровно на тике
const snapTolerance = 1e-9

// TickArrayStartIndex returns the start index of the tick array containing tick.
// Division floors toward negative infinity.
func TickArrayStartIndex(tick int32, tickSpacing uint16) int32 {
	return TickArrayStartIndexWithOffset(tick, tickSpacing, 0)
}

// TickArrayStartIndexWithOffset returns the start index shifted by offset whole arrays.
func TickArrayStartIndexWithOffset(tick int32, tickSpacing uint16, offset int32) int32 {
	ticksInArray := int64(tickSpacing) * TickArraySize
	t := int64(tick)
	idx := t / ticksInArray
	if t < 0 && t%ticksInArray != 0 {
		idx--
	}
	return int32((idx + int64(offset)) * ticksInArray)
}

// TickArrayAddressesForSwap returns the three tick arrays a swap traverses from the
// current tick. Arrays past the tick range repeat the last valid one.
func TickArrayAddressesForSwap(pool solana.PublicKey, currentTick int32, tickSpacing uint16, aToB bool) ([3]solana.PublicKey, error) {
	var out [3]solana.PublicKey
	if tickSpacing == 0 {
		return out, fmt.Errorf("tick spacing is zero")
	}

	shift, step := int32(0), int32(-1)
	if !aToB {
		shift, step = int32(tickSpacing), 1
	}

	minStart := TickArrayStartIndex(MinTickIndex, tickSpacing)
	maxStart := TickArrayStartIndex(MaxTickIndex, tickSpacing)

	for i := 0; i < len(out); i++ {
		start := TickArrayStartIndexWithOffset(currentTick+shift, tickSpacing, step*int32(i))
		if i > 0 && (start < minStart || start > maxStart) {
			out[i] = out[i-1]
			continue
		}
		addr, err := TickArrayAddress(pool, start)
		if err != nil {
			return out, err
		}
		out[i] = addr
	}
	return out, nil
}

// PriceToTick converts a human price (token B per token A) into fractional tick space.
func PriceToTick(price decimal.Decimal, decimalsA, decimalsB uint8) (float64, error) {
	if !price.IsPositive() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	raw := price.Shift(int32(decimalsB) - int32(decimalsA)).InexactFloat64()
	tick := math.Log(raw) / tickBase
	return math.Round(tick/snapTolerance) * snapTolerance, nil
}

// TickToPrice converts a tick index back to a human price.
func TickToPrice(tick int32, decimalsA, decimalsB uint8) decimal.Decimal {
	return decimal.NewFromFloat(math.Pow(1.0001, float64(tick))).
		Shift(int32(decimalsA) - int32(decimalsB))
}

// SqrtPriceToPrice converts a Q64.64 sqrt price into a human price.
func SqrtPriceToPrice(sqrtPrice uint128.Uint128, decimalsA, decimalsB uint8) decimal.Decimal {
	q64 := decimal.NewFromBigInt(uint128.New(0, 1).Big(), 0)
	sqrt := decimal.NewFromBigInt(sqrtPrice.Big(), 0).DivRound(q64, 24)
	return sqrt.Mul(sqrt).Shift(int32(decimalsA) - int32(decimalsB))
}

// InitializableTickAtOrAbove rounds a fractional tick up to the tick spacing grid.
func InitializableTickAtOrAbove(tick float64, tickSpacing uint16) int32 {
	s := float64(tickSpacing)
	snapped := int32(math.Ceil(tick/s)) * int32(tickSpacing)
	if lo := minInitializableTick(tickSpacing); snapped < lo {
		return lo
	}
	return snapped
}

// InitializableTickAtOrBelow rounds a fractional tick down to the tick spacing grid.
func InitializableTickAtOrBelow(tick float64, tickSpacing uint16) int32 {
	s := float64(tickSpacing)
	snapped := int32(math.Floor(tick/s)) * int32(tickSpacing)
	if hi := maxInitializableTick(tickSpacing); snapped > hi {
		return hi
	}
	return snapped
}

func minInitializableTick(tickSpacing uint16) int32 {
	return -(MaxTickIndex / int32(tickSpacing)) * int32(tickSpacing)
}

func maxInitializableTick(tickSpacing uint16) int32 {
	return (MaxTickIndex / int32(tickSpacing)) * int32(tickSpacing)
}
