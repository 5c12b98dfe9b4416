package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/SpideeCode/uberPharmaV2/internal/models"
)

// listFavoritesHandler returns the caller's favorites
func (s *Server) listFavoritesHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	limit, offset := parsePagination(r)
	favorites, err := s.favoriteService.List(r.Context(), actor, limit, offset)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: favorites})
}

// addFavoriteHandler bookmarks a product or pharmacy
func (s *Server) addFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	var subject models.SubjectRef
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&subject); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	favorite, err := s.favoriteService.Add(r.Context(), actor, subject)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: favorite})
}

// removeFavoriteHandler deletes one of the caller's favorites
func (s *Server) removeFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	if err := s.favoriteService.Remove(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true})
}

// checkFavoriteHandler reports whether the caller favorited a subject
func (s *Server) checkFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	subject := models.SubjectRef{
		Kind: models.SubjectKind(r.URL.Query().Get("subject_kind")),
		ID:   r.URL.Query().Get("subject_id"),
	}

	exists, err := s.favoriteService.Check(r.Context(), actor, subject)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    map[string]bool{"favorited": exists},
	})
}
