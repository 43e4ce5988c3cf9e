package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/user/news-push-bot/internal/bot"
	"github.com/user/news-push-bot/internal/metrics"
	"github.com/user/news-push-bot/internal/store"
)

// Submitter accepts decoded webhook events for asynchronous handling
type Submitter interface {
	Submit(events ...bot.Event)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}

// Server receives LINE webhooks and exposes health checks and metrics
type Server struct {
	store         store.Store
	events        Submitter
	channelSecret string
	router        *mux.Router
	server        *http.Server
	startTime     time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(store store.Store, events Submitter, channelSecret string) *Server {
	s := &Server{
		store:         store,
		events:        events,
		channelSecret: channelSecret,
		router:        mux.NewRouter(),
		startTime:     time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/callback", s.handleCallbackProbe).Methods(http.MethodGet)
	s.router.HandleFunc("/callback", s.handleCallback).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Handler returns the router wrapped with panic recovery and access logging
func (s *Server) Handler() http.Handler {
	return handlers.LoggingHandler(os.Stdout,
		handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(s.router))
}

// Start begins listening on the specified port
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Int("port", port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Info().Msg("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleCallbackProbe(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// handleCallback verifies the signature, hands events to the dispatcher and
// acknowledges immediately so LINE does not redeliver
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	cb, err := webhook.ParseRequest(s.channelSecret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			metrics.RecordError("signature")
			log.Warn().Msg("Rejected webhook with invalid signature")
			http.Error(w, "Invalid signature", http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Msg("Failed to parse webhook")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	events := make([]bot.Event, 0, len(cb.Events))
	for _, raw := range cb.Events {
		if ev, ok := convertEvent(raw); ok {
			events = append(events, ev)
		}
	}
	if len(events) > 0 {
		s.events.Submit(events...)
	}

	log.Debug().Int("received", len(cb.Events)).Int("accepted", len(events)).Msg("Webhook accepted")
	w.Write([]byte("OK"))
}

// convertEvent maps text messages and postbacks to bot events.
// Anything else, or an event without a user id, is dropped.
func convertEvent(raw webhook.EventInterface) (bot.Event, bool) {
	switch e := raw.(type) {
	case webhook.MessageEvent:
		msg, ok := e.Message.(webhook.TextMessageContent)
		if !ok {
			return nil, false
		}
		userID := sourceUserID(e.Source)
		if userID == "" {
			return nil, false
		}
		return bot.TextEvent{UserID: userID, ReplyToken: e.ReplyToken, Text: msg.Text}, true

	case webhook.PostbackEvent:
		userID := sourceUserID(e.Source)
		if userID == "" || e.Postback == nil {
			return nil, false
		}
		return bot.PostbackEvent{
			UserID:     userID,
			ReplyToken: e.ReplyToken,
			Data:       e.Postback.Data,
			Params:     e.Postback.Params,
		}, true
	}
	return nil, false
}

func sourceUserID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}

// handleHealth returns JSON with status, database connectivity, and uptime
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbStatus := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		dbStatus = fmt.Sprintf("unhealthy: %v", err)
	}

	uptime := time.Since(s.startTime).Round(time.Second).String()

	status := "healthy"
	if dbStatus != "healthy" {
		status = "unhealthy"
	}

	response := HealthResponse{
		Status:   status,
		Database: dbStatus,
		Uptime:   uptime,
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode health response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
