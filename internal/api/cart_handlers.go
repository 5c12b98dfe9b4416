package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/SpideeCode/uberPharmaV2/internal/models"
)

// getCartHandler returns the caller's active cart for a pharmacy
func (s *Server) getCartHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	cart, err := s.cartService.GetCart(r.Context(), actor, mux.Vars(r)["pharmacyId"])

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: cart})
}

// addCartItemHandler adds a product to the cart, merging existing lines
func (s *Server) addCartItemHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	cart, err := s.cartService.AddItem(r.Context(), actor, req.ProductID, req.Quantity)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: cart})
}

// updateCartItemHandler changes the quantity of a cart line
func (s *Server) updateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	vars := mux.Vars(r)
	cart, err := s.cartService.UpdateItemQuantity(r.Context(), actor, vars["pharmacyId"], vars["itemId"], req.Quantity)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: cart})
}

// removeCartItemHandler drops a line from the cart
func (s *Server) removeCartItemHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	vars := mux.Vars(r)
	cart, err := s.cartService.RemoveItem(r.Context(), actor, vars["pharmacyId"], vars["itemId"])

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: cart})
}

// clearCartHandler empties the cart
func (s *Server) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	if err := s.cartService.Clear(r.Context(), actor, mux.Vars(r)["pharmacyId"]); err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true})
}

// checkoutCartHandler turns the cart into an order
func (s *Server) checkoutCartHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	var shipping models.ShippingInfo
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&shipping); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	order, err := s.cartService.Checkout(r.Context(), actor, mux.Vars(r)["pharmacyId"], shipping)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: order})
}
