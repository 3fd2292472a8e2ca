package http

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/model/config"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
	"github.com/secmon-lab/switchboard/pkg/usecase"
	"github.com/secmon-lab/switchboard/pkg/utils/logging"
	"github.com/secmon-lab/switchboard/pkg/utils/safe"
)

// DefaultMaxBodyBytes bounds inbound webhook payloads
const DefaultMaxBodyBytes = 1 << 20

// Endpoint paths
const (
	PathTropoWebhook        = "/tropo-webhook"
	PathSparkWebhook        = "/spark-webhook"
	PathCustomerRoomMessage = "/customer_room_message_post"
)

//go:embed pages/*.html
var pageFiles embed.FS

// CustomerUseCase posts messages into customer rooms
type CustomerUseCase interface {
	PostMessage(ctx context.Context, customerID types.CustomerID, msg *model.OutboundMessage) (*usecase.PostResult, error)
}

// RelayUseCase relays chat messages to customers
type RelayUseCase interface {
	SecretFor(ctx context.Context, roomID string) string
	HandleChatMessage(ctx context.Context, msg *model.ChatMessage) (*usecase.RelayResult, error)
}

type Server struct {
	router       *chi.Mux
	customerUC   CustomerUseCase
	relayUC      RelayUseCase
	messages     *config.Messages
	maxBodyBytes int64
}

type Options func(*Server)

func WithCustomerUseCase(uc CustomerUseCase) Options {
	return func(s *Server) {
		s.customerUC = uc
	}
}

func WithRelayUseCase(uc RelayUseCase) Options {
	return func(s *Server) {
		s.relayUC = uc
	}
}

// WithMessages sets the phrases used to acknowledge inbound SMS
func WithMessages(messages *config.Messages) Options {
	return func(s *Server) {
		s.messages = messages
	}
}

func WithMaxBodyBytes(n int64) Options {
	return func(s *Server) {
		s.maxBodyBytes = n
	}
}

func New(opts ...Options) (*Server, error) {
	r := chi.NewRouter()

	s := &Server{
		router:       r,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.messages = s.messages.WithDefaults()

	pages, err := fs.Sub(pageFiles, "pages")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to bind pages dir")
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", pageHandler(pages, "index.html"))
	r.Get("/health", healthHandler)

	r.Route(PathTropoWebhook, func(r chi.Router) {
		r.Get("/", pageHandler(pages, "tropo-webhook.html"))
		if s.customerUC != nil {
			r.Post("/", s.tropoWebhookHandler)
		}
	})

	r.Route(PathSparkWebhook, func(r chi.Router) {
		r.Get("/", pageHandler(pages, "spark-webhook.html"))
		if s.relayUC != nil {
			r.Post("/", s.sparkWebhookHandler)
		}
	})

	r.Route(PathCustomerRoomMessage, func(r chi.Router) {
		r.Get("/", pageHandler(pages, "customer-room-message-post.html"))
		if s.customerUC != nil {
			r.Post("/", s.customerRoomMessagePostHandler)
		}
	})

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := logging.Default().With("request_id", middleware.GetReqID(r.Context()))
		ctx := logging.With(r.Context(), logger)

		defer func() {
			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeOK(w, r)
}

// pageHandler serves an embedded explanatory page
func pageHandler(pages fs.FS, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(pages, name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		safe.Write(r.Context(), w, data)
	}
}

func writeOK(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	safe.Write(r.Context(), w, []byte("OK"))
}
