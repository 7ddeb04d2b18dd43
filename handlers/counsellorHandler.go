package handlers

import (
	"log"
	"net/http"

	"counsellor/models"
	"counsellor/services/agent"

	"github.com/gorilla/mux"
)

type CounsellorHandler struct {
	service *agent.Service
}

func NewCounsellorHandler(service *agent.Service) *CounsellorHandler {
	return &CounsellorHandler{service: service}
}

func (h *CounsellorHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/counsellor/chat", h.Chat).Methods("POST")
}

func (h *CounsellorHandler) Chat(w http.ResponseWriter, r *http.Request) {
	log.Printf("[INFO] Received counsellor chat request")

	var req models.AgentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if len(req.Messages) == 0 {
		log.Printf("[ERROR] No messages provided in counsellor request")
		writeErrorResponse(w, http.StatusBadRequest, "At least one message is required")
		return
	}

	result, err := h.service.ProcessMessage(r.Context(), userIDFromContext(r.Context()), req.Messages)
	if err != nil {
		log.Printf("[ERROR] Counsellor message processing failed: %v", err)
		writeServiceError(w, err)
		return
	}

	log.Printf("[INFO] Counsellor message processing completed successfully")
	writeJSONResponse(w, http.StatusOK, result)
}
