package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	"github.com/nastyazhadan/limit-order-executor/internal/http/middleware"
	"github.com/nastyazhadan/limit-order-executor/internal/services/order"
	serviceErrors "github.com/nastyazhadan/limit-order-executor/shared/errors/service"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	return nil
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var request placeOrderRequest
	if err := decodeJSON(w, r, &request); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	side, err := models.ParseSide(request.Side)
	if err != nil {
		respondServiceError(ctx, w, err)
		return
	}

	if subject, ok := middleware.SubjectFromContext(ctx); ok && subject != request.Sender {
		respondServiceError(ctx, w, errForbiddenSender)
		return
	}

	placed, err := s.deps.Orders.PlaceOrder(ctx, order.PlaceOrderParams{
		ID:            request.ID,
		Sender:        request.Sender,
		PoolID:        request.PoolID,
		TokenIn:       models.Coin{Denom: request.TokenIn.Denom, Amount: request.TokenIn.Amount},
		TokenOutDenom: request.TokenOutDenom,
		Side:          side,
		TargetPrice:   request.TargetPrice,
	})
	if err != nil {
		respondServiceError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toOrderResponse(placed))
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.deps.Orders.ListOrders(r.Context(), r.URL.Query().Get("sender"))

	response := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		response = append(response, toOrderResponse(o))
	}

	respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	found, err := s.deps.Orders.GetOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(found))
}

// handleCancelOrder succeeds for unknown ids. With auth enabled only the
// owner may cancel an existing order.
func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if subject, ok := middleware.SubjectFromContext(ctx); ok {
		existing, err := s.deps.Orders.GetOrder(ctx, id)
		switch {
		case err == nil && existing.Sender != subject:
			respondServiceError(ctx, w, errForbiddenSender)
			return
		case err != nil && !errors.Is(err, serviceErrors.ErrOrderNotFound):
			respondServiceError(ctx, w, err)
			return
		}
	}

	if err := s.deps.Orders.CancelOrder(ctx, id); err != nil {
		respondServiceError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
