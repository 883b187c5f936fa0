package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/spinhall/tournament-engine/handlers"
	"github.com/spinhall/tournament-engine/middleware"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)
		r.Get("/{tournamentID}/standings", tournamentHandler.StandingsHandler)
		r.Get("/{tournamentID}/matches", matchHandler.ListByTournamentHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", tournamentHandler.CreateHandler)
			r.Post("/{tournamentID}/register", tournamentHandler.RegisterHandler)
			r.Post("/{tournamentID}/open", tournamentHandler.OpenRegistrationHandler)
			r.Post("/{tournamentID}/start", tournamentHandler.StartHandler)
			r.Post("/{tournamentID}/cancel", tournamentHandler.CancelHandler)
			r.Put("/{tournamentID}/banner", tournamentHandler.UploadBannerHandler)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetByIDHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{matchID}/result", matchHandler.RecordResultHandler)
		})
	})

	router.Get("/users/{userID}/tournaments", tournamentHandler.HistoryHandler)

	router.Get("/ws", webSocketHandler.ServeWs)
}
