package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/SpideeCode/uberPharmaV2/internal/service"
)

// listAddressesHandler returns the caller's address book, default first
func (s *Server) listAddressesHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	addresses, err := s.addressService.List(r.Context(), actor)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: addresses})
}

// getAddressHandler returns one of the caller's addresses
func (s *Server) getAddressHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	address, err := s.addressService.Get(r.Context(), actor, mux.Vars(r)["id"])

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: address})
}

// getDefaultAddressHandler returns the caller's default address
func (s *Server) getDefaultAddressHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	address, err := s.addressService.GetDefault(r.Context(), actor)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: address})
}

// createAddressHandler adds an address to the caller's book
func (s *Server) createAddressHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	var input service.AddressInput
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&input); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	address, err := s.addressService.Create(r.Context(), actor, input)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: address})
}

// updateAddressHandler rewrites one of the caller's addresses
func (s *Server) updateAddressHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	var input service.AddressInput
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&input); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	address, err := s.addressService.Update(r.Context(), actor, mux.Vars(r)["id"], input)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: address})
}

// setDefaultAddressHandler makes an address the caller's default
func (s *Server) setDefaultAddressHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	address, err := s.addressService.SetDefault(r.Context(), actor, mux.Vars(r)["id"])

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: address})
}

// deleteAddressHandler removes an address, promoting a replacement default
// when needed
func (s *Server) deleteAddressHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	if err := s.addressService.Delete(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true})
}

// nearbyPharmaciesHandler lists active pharmacies in the address's city
func (s *Server) nearbyPharmaciesHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	pharmacies, err := s.addressService.NearbyPharmacies(r.Context(), actor, mux.Vars(r)["id"])

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: pharmacies})
}
