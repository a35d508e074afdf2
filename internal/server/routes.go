package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

var defaultOrigins = []string{
	"http://localhost:5173",
	"http://localhost:4173",
	"http://localhost:3000",
}

func (s *Server) routes(origins []string) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/blob/{id}", s.handleBlob).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/document", s.handleDocument).Methods(http.MethodGet)
	api.HandleFunc("/user", s.handleUser).Methods(http.MethodGet)
	api.HandleFunc("/open", s.handleOpen).Methods(http.MethodPost)
	api.HandleFunc("/new", s.handleNew).Methods(http.MethodPost)
	api.HandleFunc("/open-path", s.requireJSON(s.handleOpenPath)).Methods(http.MethodPost)
	api.HandleFunc("/open-url", s.requireJSON(s.handleOpenURL)).Methods(http.MethodPost)
	api.HandleFunc("/recent", s.handleRecentList).Methods(http.MethodGet)
	api.HandleFunc("/recent/{id:[0-9]+}", s.handleRecentRemove).Methods(http.MethodDelete)
	api.HandleFunc("/recent/{id:[0-9]+}/open", s.handleRecentOpen).Methods(http.MethodPost)

	// Editor requests (download-as, upload) arrive under paths the editor
	// builds itself, so they go through the interception chain.
	router.PathPrefix("/").HandlerFunc(s.handleIntercepted)

	if len(origins) == 0 {
		origins = defaultOrigins
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Requested-With",
		},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler(router)
}
