// Package server exposes the provider webhook over HTTP.
package server

import (
	"log/slog"
	"net/http"
	"strings"

	"homeline/internal/pipeline"
	"homeline/internal/ratelimit"
	"homeline/internal/util"
	"homeline/pkg/sms"
)

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// Config wires required dependencies for the HTTP server.
type Config struct {
	Pipeline *pipeline.Pipeline
	// AuthToken enables webhook signature verification when set.
	AuthToken string
	// PublicBaseURL is the externally visible base URL the provider signs
	// requests against, e.g. "https://sms.example.com".
	PublicBaseURL string
	Limiter       *ratelimit.FixedWindowLimiter
}

// Server handles inbound webhook calls.
type Server struct {
	pipeline      *pipeline.Pipeline
	authToken     string
	publicBaseURL string
	limiter       *ratelimit.FixedWindowLimiter
	mux           *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		pipeline:      cfg.Pipeline,
		authToken:     strings.TrimSpace(cfg.AuthToken),
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
		limiter:       cfg.Limiter,
		mux:           http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestLog(s.mux)
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /webhook/sms", s.handleInbound)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if s.authToken != "" {
		requestURL := s.publicBaseURL + r.URL.RequestURI()
		signature := r.Header.Get("X-Twilio-Signature")
		if !sms.ValidateSignature(s.authToken, requestURL, r.PostForm, signature) {
			slog.Warn("webhook signature rejected", "path", r.URL.Path)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	from := strings.TrimSpace(r.PostFormValue("From"))
	to := strings.TrimSpace(r.PostFormValue("To"))
	body := r.PostFormValue("Body")
	messageSID := strings.TrimSpace(r.PostFormValue("MessageSid"))
	if from == "" || body == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if s.limiter != nil && !s.limiter.Allow(from) {
		slog.Warn("inbound message rate limited", "from", from)
		writeTwiML(w)
		return
	}

	// The reply goes out through the REST API inside the pipeline, so the
	// webhook response itself stays empty.
	s.pipeline.Handle(r.Context(), from, to, body, messageSID)
	writeTwiML(w)
}

func writeTwiML(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(emptyTwiML))
}
