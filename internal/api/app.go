package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/acormier/matchlink/internal/config"
	"github.com/acormier/matchlink/internal/database"
	"github.com/acormier/matchlink/internal/server"
	"github.com/acormier/matchlink/internal/stats"
	"github.com/gorilla/handlers"
)

type MatchLinkApp struct {
	log            *log.Logger
	db             database.MatchLinkRepository
	mux            *http.Server
	cs             *server.ChatServer
	stats          stats.StatsProvider
	signingKey     []byte
	allowedOrigins []string
}

func NewMatchLinkApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, db database.MatchLinkRepository, sp stats.StatsProvider, cfg *config.Config) *MatchLinkApp {
	s := &MatchLinkApp{
		log:            logger,
		db:             db,
		cs:             cs,
		stats:          sp,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.Handle("DELETE /api/messages", s.authMiddleware(s.deleteMessage))
	mux.Handle("GET /ws/presence", s.authMiddleware(s.serveWsPresence))
	mux.Handle("GET /ws/conversations", s.authMiddleware(s.serveWsConversation))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *MatchLinkApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *MatchLinkApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
