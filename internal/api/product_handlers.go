package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/SpideeCode/uberPharmaV2/internal/repository"
)

// listProductsHandler returns a pharmacy's catalog. Read-only, so it goes
// straight to the repository.
func (s *Server) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.actorFromRequest(w, r); !ok {
		return
	}

	limit, offset := parsePagination(r)

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.productRepo.ListByPharmacy(r.Context(), mux.Vars(r)["pharmacyId"], limit, offset)

	if err != nil {
		s.logger.Error("Failed to list products", "error", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: products})
}

// getProductHandler returns a single product
func (s *Server) getProductHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.actorFromRequest(w, r); !ok {
		return
	}

	product, err := s.productRepo.GetByID(r.Context(), mux.Vars(r)["id"])

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		s.logger.Error("Failed to fetch product", "error", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch product")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: product})
}
