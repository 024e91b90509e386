package rewards

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

var testPool = models.PoolInfo{
	ID:                1,
	TokenA:            "uosmo",
	TokenB:            "uatom",
	LiquidityA:        d("600"),
	LiquidityB:        d("400"),
	TotalShares:       d("100"),
	SwapFeesNextEpoch: d("10"),
}

func TestProjector_Apply(t *testing.T) {
	tests := []struct {
		name     string
		delta    *decimal.Decimal
		base     string
		expected string
	}{
		{name: "без проекции", base: "5", expected: "5"},
		{name: "положительная дельта", delta: ptr(d("3")), base: "5", expected: "8"},
		{name: "отрицательная дельта", delta: ptr(d("-2")), base: "5", expected: "3"},
		{name: "ограничение нулём", delta: ptr(d("-100")), base: "5", expected: "0"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			projector := NewProjector()
			if test.delta != nil {
				projector.SetProjection(1, "uosmo", *test.delta)
			}

			result := projector.Apply(1, "uosmo", d(test.base))
			assert.True(t, d(test.expected).Equal(result), "got %s", result)
		})
	}
}

func ptr(value decimal.Decimal) *decimal.Decimal {
	return &value
}

func TestProjector_UpsertAndClear(t *testing.T) {
	projector := NewProjector()

	projector.SetProjection(1, "uosmo", d("10"))
	projector.SetProjection(1, "uosmo", d("-4"))
	projector.SetProjection(2, "uatom", d("1"))

	projections := projector.Projections()
	require.Len(t, projections, 2)
	assert.Equal(t, uint64(1), projections[0].PoolID)
	assert.True(t, d("-4").Equal(projections[0].Delta), "last write wins")

	assert.True(t, d("6").Equal(projector.Apply(1, "uosmo", d("10"))))
	assert.True(t, d("10").Equal(projector.Apply(1, "uatom", d("10"))), "other token of the pool is untouched")

	projector.ClearProjections()
	assert.Empty(t, projector.Projections())
	_, ok := projector.Delta(1, "uosmo")
	assert.False(t, ok)
}

func TestProjector_ApplyPool(t *testing.T) {
	projector := NewProjector()
	projector.ProjectRemove(testPool, d("50"))

	pool := projector.ApplyPool(testPool)

	assert.True(t, d("300").Equal(pool.LiquidityA))
	assert.True(t, d("200").Equal(pool.LiquidityB))
}

func TestProjector_ProjectAdd(t *testing.T) {
	projector := NewProjector()
	projector.SetProjection(9, "stale", d("1"))

	shares := projector.ProjectAdd(testPool, d("60"), d("40"))

	assert.True(t, d("10").Equal(shares))
	require.Len(t, projector.Projections(), 2)
	_, ok := projector.Delta(9, "stale")
	assert.False(t, ok, "a new flow starts from a clean set")
}

func TestProjector_Concurrent(t *testing.T) {
	projector := NewProjector()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				projector.SetProjection(uint64(i), "uosmo", decimal.NewFromInt(int64(j)))
				projector.Apply(uint64(i), "uosmo", decimal.NewFromInt(1))
				_ = projector.Projections()
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, projector.Projections(), 8)
}
