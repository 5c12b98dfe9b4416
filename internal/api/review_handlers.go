package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/SpideeCode/uberPharmaV2/internal/models"
	"github.com/SpideeCode/uberPharmaV2/internal/service"
)

// listReviewsHandler returns the approved reviews of a subject with the
// rating summary
func (s *Server) listReviewsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	vars := mux.Vars(r)
	subject := models.SubjectRef{
		Kind: models.SubjectKind(vars["subjectKind"]),
		ID:   vars["subjectId"],
	}

	limit, offset := parsePagination(r)
	reviews, summary, err := s.reviewService.ListForSubject(r.Context(), actor, subject, limit, offset)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: map[string]interface{}{
			"reviews": reviews,
			"summary": summary,
		},
	})
}

// createReviewHandler submits a review of a subject
func (s *Server) createReviewHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	vars := mux.Vars(r)
	subject := models.SubjectRef{
		Kind: models.SubjectKind(vars["subjectKind"]),
		ID:   vars["subjectId"],
	}

	var input service.ReviewInput
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&input); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	review, err := s.reviewService.Create(r.Context(), actor, subject, input)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: review})
}

// updateReviewHandler rewrites the caller's review
func (s *Server) updateReviewHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	var input service.ReviewInput
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&input); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	review, err := s.reviewService.Update(r.Context(), actor, mux.Vars(r)["id"], input)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: review})
}

// deleteReviewHandler removes the caller's review
func (s *Server) deleteReviewHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	if err := s.reviewService.Delete(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true})
}

// moderateReviewHandler approves or rejects a pending review
func (s *Server) moderateReviewHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	var req struct {
		Status models.ReviewStatus `json:"status"`
	}
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	review, err := s.reviewService.Moderate(r.Context(), actor, mux.Vars(r)["id"], req.Status)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: review})
}
