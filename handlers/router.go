package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouteRegistrar is implemented by every handler in this package.
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// NewRouter mounts the handlers behind RequireUser. Only /health and CORS
// preflight requests are served without a caller identity.
func NewRouter(registrars ...RouteRegistrar) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("OPTIONS")
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := router.NewRoute().Subrouter()
	api.Use(RequireUser)
	for _, registrar := range registrars {
		registrar.RegisterRoutes(api)
	}

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+UserHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}
