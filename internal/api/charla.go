package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/charlachat/charla/internal/blob"
	"github.com/charlachat/charla/internal/config"
	"github.com/charlachat/charla/internal/database"
	"github.com/charlachat/charla/internal/server"
	"github.com/charlachat/charla/internal/stats"
	"github.com/gorilla/handlers"
)

type CharlaApp struct {
	log            *log.Logger
	db             database.CharlaRepository
	uploader       blob.Uploader
	mux            *http.Server
	cs             *server.ChatServer
	stats          stats.StatsProvider
	signingKey     []byte
	allowedOrigins []string
}

func NewCharlaApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, db database.CharlaRepository,
	uploader blob.Uploader, sp stats.StatsProvider, cfg *config.Config) *CharlaApp {
	s := &CharlaApp{
		log:            logger,
		db:             db,
		uploader:       uploader,
		cs:             cs,
		stats:          sp,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("POST /api/register", s.createAccount)
	mux.HandleFunc("POST /api/login", s.login)
	mux.HandleFunc("POST /api/upload", s.upload)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("GET /ws/{room}", s.serveWs)
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
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

func (s *CharlaApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *CharlaApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
