package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	"github.com/nastyazhadan/limit-order-executor/internal/services/rewards"
)

func (s *Server) handleListProjections(w http.ResponseWriter, _ *http.Request) {
	projections := s.deps.Projections.Projections()

	response := make([]projectionDTO, 0, len(projections))
	for _, projection := range projections {
		response = append(response, projectionDTO{
			PoolID: projection.PoolID,
			Token:  projection.Token,
			Delta:  projection.Delta,
		})
	}

	respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleSetProjection(w http.ResponseWriter, r *http.Request) {
	var request projectionDTO
	if err := decodeJSON(w, r, &request); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	request.Token = strings.TrimSpace(request.Token)
	if request.Token == "" {
		respondError(w, http.StatusBadRequest, "token is required")
		return
	}

	s.deps.Projections.SetProjection(request.PoolID, request.Token, request.Delta)

	respondJSON(w, http.StatusOK, request)
}

func (s *Server) handleClearProjections(w http.ResponseWriter, _ *http.Request) {
	s.deps.Projections.ClearProjections()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApplyProjection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	poolID, err := strconv.ParseUint(vars["poolId"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "pool id must be an unsigned integer")
		return
	}

	base, err := decimal.NewFromString(r.URL.Query().Get("base"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "base must be a decimal number")
		return
	}

	respondJSON(w, http.StatusOK, projectedValueResponse{
		PoolID: poolID,
		Token:  vars["token"],
		Base:   base,
		Value:  s.deps.Projections.Apply(poolID, vars["token"], base),
	})
}

// handleProjectAdd replaces the projections with an add-liquidity into the
// given pool and reports the minted shares and the fees they would earn.
func (s *Server) handleProjectAdd(w http.ResponseWriter, r *http.Request) {
	var request projectAddRequest
	if err := decodeJSON(w, r, &request); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	pool := request.Pool.toDomain()
	if err := validatePool(pool); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if request.AmountA.IsNegative() || request.AmountB.IsNegative() {
		respondError(w, http.StatusBadRequest, "amounts must not be negative")
		return
	}

	shares := s.deps.Projections.ProjectAdd(pool, request.AmountA, request.AmountB)

	respondJSON(w, http.StatusOK, liquidityEstimateResponse{
		Shares:        shares,
		Rewards:       byHorizon(rewards.EstimateRewards(pool, request.AmountA, request.AmountB)),
		ProjectedPool: toPoolDTO(s.deps.Projections.ApplyPool(pool)),
	})
}

// handleProjectRemove replaces the projections with a withdrawal of shares
// and reports the fees and APR left to the pool.
func (s *Server) handleProjectRemove(w http.ResponseWriter, r *http.Request) {
	var request projectRemoveRequest
	if err := decodeJSON(w, r, &request); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	pool := request.Pool.toDomain()
	if err := validatePool(pool); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if request.Shares.IsNegative() || request.Shares.GreaterThan(pool.TotalShares) {
		respondError(w, http.StatusBadRequest, "shares must be between zero and the pool total")
		return
	}

	s.deps.Projections.ProjectRemove(pool, request.Shares)
	apr := rewards.ProjectedAPR(pool, request.Shares)

	respondJSON(w, http.StatusOK, liquidityEstimateResponse{
		Shares:        request.Shares,
		Rewards:       byHorizon(rewards.EstimateRemoveRewards(pool, request.Shares)),
		APR:           &apr,
		ProjectedPool: toPoolDTO(s.deps.Projections.ApplyPool(pool)),
	})
}

func validatePool(pool models.PoolInfo) error {
	switch {
	case pool.TokenA == "" || pool.TokenB == "":
		return errors.New("pool tokens are required")
	case pool.TokenA == pool.TokenB:
		return errors.New("pool tokens must differ")
	case pool.LiquidityA.IsNegative() || pool.LiquidityB.IsNegative():
		return errors.New("pool liquidity must not be negative")
	case pool.TotalShares.IsNegative() || pool.SwapFeesNextEpoch.IsNegative():
		return errors.New("pool shares and fees must not be negative")
	}

	return nil
}

func byHorizon(perEpoch map[string]decimal.Decimal) rewardsByToken {
	out := make(rewardsByToken, len(perEpoch))
	for token, fees := range perEpoch {
		out[token] = rewards.Horizons(fees)
	}

	return out
}
