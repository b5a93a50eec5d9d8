package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "chatpoll/docs"
	"chatpoll/internal/config"
	"chatpoll/internal/domain"
	"chatpoll/internal/service"
)

// Services are the application services the router exposes.
type Services struct {
	Auth          *service.AuthService
	Users         *service.UserService
	Conversations *service.ConversationService
	Messages      *service.MessageService

	// Health is pinged by GET /health. Optional.
	Health domain.Pinger
}

// Server holds what the handlers share.
type Server struct {
	cfg      *config.Config
	svc      Services
	log      *log.Logger
	validate *validator.Validate
}

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(cfg *config.Config, svc Services, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		log:      logger.WithPrefix("http"),
		validate: newValidator(),
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  s.log.StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel}),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot())
	r.Get("/health", s.handleHealth())

	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister())
			r.Post("/login", s.handleLogin())
		})

		r.Group(func(r chi.Router) {
			r.Use(s.AuthMiddleware(svc.Auth))

			r.Post("/auth/logout", s.handleLogout())
			r.Get("/auth/me", s.handleMe())

			r.Route("/users", func(r chi.Router) {
				r.Get("/", s.handleListUsers())
				r.Get("/{userID}", s.handleGetUser())
			})

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", s.handleListConversations())
				r.Post("/start/{userID}", s.handleStartConversation())
				r.Get("/{conversationID}/messages", s.handleListMessages())
				r.Post("/{conversationID}/messages", s.handleSendMessage())
				r.Put("/{conversationID}/read", s.handleMarkRead())
			})

			r.Get("/messages/poll", s.handlePoll())
		})
	})

	return r
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", domain.ErrInvalidInput)
	}
	return s.validate.Struct(dst)
}

type rootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Docs    string `json:"docs"`
}

func (s *Server) handleRoot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rootResponse{Message: s.cfg.AppName, Version: "1.0.0", Docs: "/docs"})
	}
}

// @Summary      Health check
// @Description  Reports whether the datastore is reachable
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /health [get]
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.svc.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := s.svc.Health.Ping(ctx); err != nil {
				s.log.Warn("health check failed", "err", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
