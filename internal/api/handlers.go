package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/SpideeCode/uberPharmaV2/internal/models"
	"github.com/SpideeCode/uberPharmaV2/internal/service"
	apperrors "github.com/SpideeCode/uberPharmaV2/pkg/errors"
)

type ApiResponse struct {
	Success bool                   `json:"success"`
	Data    interface{}            `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Health represents the health check response
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// healthCheckHandler handles the health check endpoint
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	health := Health{
		Status:    "ok",
		Version:   "0.1.0",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if err := s.db.Ping(r.Context()); err != nil {
		health.Status = "degraded"
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    health,
	})
}

// actorFromRequest resolves the calling identity from the gateway headers.
// The API gateway terminates authentication; this service only needs the
// verified identity it forwards.
func (s *Server) actorFromRequest(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	userID := r.Header.Get("X-User-ID")
	role := models.Role(r.Header.Get("X-User-Role"))

	if userID == "" || !models.ValidRole(role) {
		s.respondWithError(w, http.StatusUnauthorized, "Missing or invalid identity headers")
		return models.Actor{}, false
	}

	actor := models.Actor{
		UserID:     userID,
		Role:       role,
		PharmacyID: r.Header.Get("X-Pharmacy-ID"),
	}

	if actor.Role == models.RolePharmacy && actor.PharmacyID == "" {
		s.respondWithError(w, http.StatusUnauthorized, "Pharmacy identity requires X-Pharmacy-ID")
		return models.Actor{}, false
	}

	return actor, true
}

// createOrderHandler places a new order
func (s *Server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	var input service.CreateOrderInput
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&input); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	order, err := s.orderService.CreateOrder(r.Context(), actor, input)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: order})
}

// listOrdersHandler returns the orders visible to the caller
func (s *Server) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	limit, offset := parsePagination(r)
	orders, err := s.orderService.ListOrders(r.Context(), actor, limit, offset)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: orders})
}

// getOrderHandler returns a single order with its items
func (s *Server) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	order, err := s.orderService.GetOrder(r.Context(), actor, mux.Vars(r)["id"])

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: order})
}

// updateOrderStatusHandler moves an order through its lifecycle
func (s *Server) updateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	order, err := s.orderService.UpdateStatus(r.Context(), actor, mux.Vars(r)["id"], req.Status)

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: order})
}

// acceptOrderHandler lets a courier take a ready order
func (s *Server) acceptOrderHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	order, err := s.orderService.AcceptOrder(r.Context(), actor, mux.Vars(r)["id"])

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: order})
}

// pickUpOrderHandler records the courier collecting the order
func (s *Server) pickUpOrderHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	order, err := s.orderService.PickUpOrder(r.Context(), actor, mux.Vars(r)["id"])

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: order})
}

// completeOrderHandler records the hand-off to the client
func (s *Server) completeOrderHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFromRequest(w, r)

	if !ok {
		return
	}

	order, err := s.orderService.CompleteOrder(r.Context(), actor, mux.Vars(r)["id"])

	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: order})
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

// respondServiceError maps a service error onto the HTTP response. AppErrors
// carry their own status code and context; anything else is a 500.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError

	if errors.As(err, &appErr) {
		s.respondWithJSON(w, appErr.StatusCode, ApiResponse{
			Success: false,
			Error:   appErr.Message,
			Details: appErr.Context,
		})
		return
	}

	s.logger.Error("Unhandled service error", "error", err)
	s.respondWithError(w, http.StatusInternalServerError, "Internal server error")
}

// respondWithError sends a JSON response with an error message
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, ApiResponse{
		Success: false,
		Error:   message,
	})
}

// respondWithJSON sends a JSON response
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)

	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
