package api

import (
	"net/http"
)

// getCircuitBreakersHandler exposes the state of the outbound circuit
// breakers for operators
func (s *Server) getCircuitBreakersHandler(w http.ResponseWriter, r *http.Request) {
	breakers := map[string]interface{}{
		"payment_gateway": s.paymentClient.Breaker().GetMetrics(),
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: breakers})
}
