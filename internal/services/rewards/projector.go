package rewards

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
)

// Projector overlays speculative liquidity deltas on last-known figures.
// At most one delta is kept per (pool, token); the last write wins.
type Projector struct {
	mu          sync.RWMutex
	projections map[models.ProjectionKey]decimal.Decimal
}

func NewProjector() *Projector {
	return &Projector{
		projections: make(map[models.ProjectionKey]decimal.Decimal),
	}
}

func (p *Projector) SetProjection(poolID uint64, token string, delta decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.projections[models.ProjectionKey{PoolID: poolID, Token: token}] = delta
}

func (p *Projector) ClearProjections() {
	p.mu.Lock()
	defer p.mu.Unlock()

	clear(p.projections)
}

func (p *Projector) Delta(poolID uint64, token string) (decimal.Decimal, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	delta, ok := p.projections[models.ProjectionKey{PoolID: poolID, Token: token}]
	return delta, ok
}

// Apply returns base adjusted by the projection for (poolID, token),
// clamped at zero, or base unchanged when there is none.
func (p *Projector) Apply(poolID uint64, token string, base decimal.Decimal) decimal.Decimal {
	delta, ok := p.Delta(poolID, token)
	if !ok {
		return base
	}

	return decimal.Max(base.Add(delta), decimal.Zero)
}

// ApplyPool returns pool with both reserves adjusted.
func (p *Projector) ApplyPool(pool models.PoolInfo) models.PoolInfo {
	pool.LiquidityA = p.Apply(pool.ID, pool.TokenA, pool.LiquidityA)
	pool.LiquidityB = p.Apply(pool.ID, pool.TokenB, pool.LiquidityB)

	return pool
}

// Projections returns a snapshot ordered by pool then token.
func (p *Projector) Projections() []models.Projection {
	p.mu.RLock()
	out := make([]models.Projection, 0, len(p.projections))
	for key, delta := range p.projections {
		out = append(out, models.Projection{PoolID: key.PoolID, Token: key.Token, Delta: delta})
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].PoolID != out[j].PoolID {
			return out[i].PoolID < out[j].PoolID
		}
		return out[i].Token < out[j].Token
	})

	return out
}

// ProjectAdd replaces the projections with an add-liquidity of amountA and
// amountB into pool and returns the LP shares it would mint.
func (p *Projector) ProjectAdd(pool models.PoolInfo, amountA, amountB decimal.Decimal) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()

	clear(p.projections)
	p.projections[models.ProjectionKey{PoolID: pool.ID, Token: pool.TokenA}] = amountA
	p.projections[models.ProjectionKey{PoolID: pool.ID, Token: pool.TokenB}] = amountB

	return EstimatedShares(pool, amountA, amountB)
}

// ProjectRemove replaces the projections with a withdrawal of shares LP
// tokens from pool.
func (p *Projector) ProjectRemove(pool models.PoolInfo, shares decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()

	clear(p.projections)
	if !shares.IsPositive() || !pool.TotalShares.IsPositive() {
		return
	}

	fraction := shares.Div(pool.TotalShares)
	p.projections[models.ProjectionKey{PoolID: pool.ID, Token: pool.TokenA}] = pool.LiquidityA.Mul(fraction).Neg()
	p.projections[models.ProjectionKey{PoolID: pool.ID, Token: pool.TokenB}] = pool.LiquidityB.Mul(fraction).Neg()
}
