package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"counsellor/models"
	"counsellor/services"

	"github.com/gorilla/mux"
)

// UniversityRecommender ranks universities for a profile.
type UniversityRecommender interface {
	Recommend(ctx context.Context, profile *models.Profile, limit int) ([]models.RankedUniversity, error)
	FitFor(ctx context.Context, profile *models.Profile, universityIDs []string) (map[string]models.UniversityFit, error)
}

type UniversityHandler struct {
	profiles     *services.ProfileService
	locks        *services.LockService
	recommender  UniversityRecommender
	defaultLimit int
}

func NewUniversityHandler(profiles *services.ProfileService, locks *services.LockService, recommender UniversityRecommender, defaultLimit int) *UniversityHandler {
	return &UniversityHandler{
		profiles:     profiles,
		locks:        locks,
		recommender:  recommender,
		defaultLimit: defaultLimit,
	}
}

func (h *UniversityHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/universities/recommend", h.Recommend).Methods("POST")
	router.HandleFunc("/universities/fit", h.Fit).Methods("POST")
	router.HandleFunc("/universities/shortlist", h.ShortlistRecommended).Methods("POST")
	router.HandleFunc("/universities/locks", h.ListLocks).Methods("GET")
	router.HandleFunc("/universities/lock", h.ApplyLockAction).Methods("POST")
}

func (h *UniversityHandler) limit(requested int) int {
	if requested > 0 {
		return requested
	}
	return h.defaultLimit
}

func (h *UniversityHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	ranked, err := h.recommender.Recommend(r.Context(), profile, h.limit(req.Limit))
	if err != nil {
		log.Printf("[ERROR] Recommendation failed for user %s: %v", profile.ID, err)
		writeJSONResponse(w, http.StatusBadGateway, models.RecommendResponse{
			Universities: []models.RankedUniversity{},
			Error:        "Failed to fetch recommendations. Please try again.",
		})
		return
	}

	writeJSONResponse(w, http.StatusOK, models.RecommendResponse{Universities: ranked})
}

func (h *UniversityHandler) Fit(w http.ResponseWriter, r *http.Request) {
	var req models.FitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.UniversityIDs) == 0 {
		writeJSONResponse(w, http.StatusOK, models.FitResponse{FitData: map[string]models.UniversityFit{}})
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	fit, err := h.recommender.FitFor(r.Context(), profile, req.UniversityIDs)
	if err != nil {
		log.Printf("[ERROR] Fit scoring failed for user %s: %v", profile.ID, err)
		writeErrorResponse(w, http.StatusBadGateway, "Failed to score universities. Please try again.")
		return
	}

	writeJSONResponse(w, http.StatusOK, models.FitResponse{FitData: fit})
}

func (h *UniversityHandler) ShortlistRecommended(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.locks.ShortlistRecommended(r.Context(), userIDFromContext(r.Context()), h.limit(req.Limit))
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			writeServiceError(w, err)
			return
		}
		writeErrorResponse(w, http.StatusBadGateway, "Failed to shortlist recommendations. Please try again.")
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}

func (h *UniversityHandler) ListLocks(w http.ResponseWriter, r *http.Request) {
	universities, err := h.locks.ListLocks(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"universities": universities})
}

func (h *UniversityHandler) ApplyLockAction(w http.ResponseWriter, r *http.Request) {
	var req models.LockRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.locks.ApplyAction(r.Context(), userIDFromContext(r.Context()), &req)
	if err != nil {
		log.Printf("[ERROR] Lock action %q on %s failed: %v", req.Action, req.UniversityID, err)
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}
