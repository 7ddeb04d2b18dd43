package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"counsellor/models"
	"counsellor/services"
	"counsellor/services/onboarding"

	"github.com/gorilla/mux"
)

type ProfileHandler struct {
	profiles   *services.ProfileService
	onboarding *onboarding.Service
}

func NewProfileHandler(profiles *services.ProfileService, onboarding *onboarding.Service) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, onboarding: onboarding}
}

func (h *ProfileHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/profile", h.GetProfile).Methods("GET")
	router.HandleFunc("/profile/{section}", h.UpdateSection).Methods("PUT")
	router.HandleFunc("/onboarding/turn", h.OnboardingTurn).Methods("POST")
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetProfile(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, profile)
}

func (h *ProfileHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	section := mux.Vars(r)["section"]

	var payload json.RawMessage
	if !decodeJSON(w, r, &payload) {
		return
	}

	profile, err := h.profiles.UpdateSection(r.Context(), userIDFromContext(r.Context()), section, payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, profile)
}

func (h *ProfileHandler) OnboardingTurn(w http.ResponseWriter, r *http.Request) {
	log.Printf("[INFO] Received onboarding turn request")

	var req models.OnboardingTurnRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.onboarding.ProcessTurn(r.Context(), userIDFromContext(r.Context()), req)
	if err != nil {
		log.Printf("[ERROR] Onboarding turn failed: %v", err)
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, resp)
}
