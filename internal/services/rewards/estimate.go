package rewards

import (
	"github.com/shopspring/decimal"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
)

var (
	one         = decimal.NewFromInt(1)
	daysPerYear = decimal.NewFromInt(365)
	hundred     = decimal.NewFromInt(100)
)

// HorizonDays are the display horizons in epochs (one epoch per day).
var HorizonDays = []int64{1, 15, 180, 365}

// EstimatedShares is the LP amount minted for amountA+amountB, pro rata to
// the pool's current reserves.
func EstimatedShares(pool models.PoolInfo, amountA, amountB decimal.Decimal) decimal.Decimal {
	total := pool.LiquidityA.Add(pool.LiquidityB)
	if !total.IsPositive() {
		return decimal.Zero
	}

	return amountA.Add(amountB).Div(total).Mul(pool.TotalShares)
}

// EstimateRewards returns per-token next-epoch fees earned by the
// position an add of amountA and amountB would create.
func EstimateRewards(pool models.PoolInfo, amountA, amountB decimal.Decimal) map[string]decimal.Decimal {
	shares := EstimatedShares(pool, amountA, amountB)

	sharesAfter := pool.TotalShares.Add(shares)
	fraction := decimal.Zero
	if sharesAfter.IsPositive() {
		fraction = shares.Div(sharesAfter)
	}

	return splitFees(pool, fraction)
}

// EstimateRemoveRewards returns per-token next-epoch fees left to the pool's
// remaining liquidity after withdrawing shares.
func EstimateRemoveRewards(pool models.PoolInfo, shares decimal.Decimal) map[string]decimal.Decimal {
	fraction := decimal.Zero
	if pool.TotalShares.IsPositive() {
		fraction = shares.Div(pool.TotalShares)
	}

	return splitFees(pool, one.Sub(fraction))
}

// ProjectedAPR is the simple annualised fee rate, in percent, once shares
// have been withdrawn.
func ProjectedAPR(pool models.PoolInfo, shares decimal.Decimal) decimal.Decimal {
	remaining := one
	if pool.TotalShares.IsPositive() {
		remaining = one.Sub(shares.Div(pool.TotalShares))
	}

	liquidity := pool.LiquidityA.Add(pool.LiquidityB).Mul(remaining)
	if !liquidity.IsPositive() {
		return decimal.Zero
	}

	return pool.SwapFeesNextEpoch.Div(liquidity).Mul(daysPerYear).Mul(hundred)
}

// Horizons scales a per-epoch figure to every entry of HorizonDays.
func Horizons(perEpoch decimal.Decimal) map[int64]decimal.Decimal {
	out := make(map[int64]decimal.Decimal, len(HorizonDays))
	for _, days := range HorizonDays {
		out[days] = perEpoch.Mul(decimal.NewFromInt(days))
	}

	return out
}

func splitFees(pool models.PoolInfo, fraction decimal.Decimal) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{
		pool.TokenA: decimal.Zero,
		pool.TokenB: decimal.Zero,
	}

	total := pool.LiquidityA.Add(pool.LiquidityB)
	if !total.IsPositive() {
		return out
	}

	fees := pool.SwapFeesNextEpoch.Mul(fraction)
	out[pool.TokenA] = fees.Mul(pool.LiquidityA).Div(total)
	out[pool.TokenB] = fees.Mul(pool.LiquidityB).Div(total)

	return out
}
