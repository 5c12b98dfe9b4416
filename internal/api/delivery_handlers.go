package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/SpideeCode/uberPharmaV2/internal/service"
)

// listAvailableDeliveriesHandler returns the pool of unclaimed deliveries
func (s *Server) listAvailableDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	limit, offset := parsePagination(r)
	deliveries, err := s.deliveryService.ListAvailable(r.Context(), actor, limit, offset)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: deliveries})
}

// listDeliveriesHandler returns the deliveries visible to the caller
func (s *Server) listDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	limit, offset := parsePagination(r)
	deliveries, err := s.deliveryService.ListDeliveries(r.Context(), actor, limit, offset)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: deliveries})
}

// claimDeliveryHandler assigns an unclaimed delivery to the calling courier
func (s *Server) claimDeliveryHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	delivery, err := s.deliveryService.Claim(r.Context(), actor, mux.Vars(r)["id"])

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: delivery})
}

// advanceDeliveryHandler moves a delivery one step along its chain
func (s *Server) advanceDeliveryHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	var input service.AdvanceDeliveryInput
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&input); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	delivery, err := s.deliveryService.Advance(r.Context(), actor, mux.Vars(r)["id"], input)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: delivery})
}

// trackDeliveryHandler returns the tracking projection for a delivery
func (s *Server) trackDeliveryHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	tracking, err := s.deliveryService.Track(r.Context(), actor, mux.Vars(r)["id"])

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: tracking})
}
