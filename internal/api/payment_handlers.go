package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/SpideeCode/uberPharmaV2/internal/service"
)

// processPaymentHandler charges an order through the payment gateway
func (s *Server) processPaymentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	var input service.ProcessPaymentInput
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&input); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	payment, err := s.paymentService.ProcessPayment(r.Context(), actor, mux.Vars(r)["id"], input)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: payment})
}

// getPaymentHandler returns the most recent payment for an order
func (s *Server) getPaymentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	payment, err := s.paymentService.GetPayment(r.Context(), actor, mux.Vars(r)["id"])

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: payment})
}
