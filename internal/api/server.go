package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pulsemeet/meetingtracker/internal/config"
	"github.com/pulsemeet/meetingtracker/internal/database"
)

// Server owns the HTTP listener and the chi mux it wraps.
type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// ServerOptions wires every handler the composition root builds into one
// chi mux. Fields mirror the teacher's ServerOptions shape, trimmed to this
// domain's surface.
type ServerOptions struct {
	Config      *config.Config
	DB          *database.DB
	Broadcaster BroadcasterLiveness
	Visit       *VisitHandler
	Meetings    *MeetingsHandler
	WS          *WSHandler
	Version     string
	StartTime   time.Time
	Log         zerolog.Logger
}

func NewServer(opts ServerOptions) *Server {
	r := chi.NewRouter()

	var corsOrigins []string
	if opts.Config.CORSOrigins != "" {
		for _, o := range strings.Split(opts.Config.CORSOrigins, ",") {
			if s := strings.TrimSpace(o); s != "" {
				corsOrigins = append(corsOrigins, s)
			}
		}
	}

	r.Use(RequestID)
	r.Use(CORSWithOrigins(corsOrigins))
	r.Use(Recoverer)
	r.Use(Logger(opts.Log))

	health := NewHealthHandler(opts.DB, opts.Broadcaster, opts.Version, opts.StartTime)
	r.Get("/health", health.ServeHTTP)

	if opts.Config.MetricsEnabled {
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
	}

	// The WebSocket route hijacks the connection on upgrade; it must never
	// sit behind InstrumentHandler (which wraps the response writer) or
	// MaxBodySize (which wraps the body reader) — both would interfere
	// with the hijack.
	r.Get("/ws/meetings/{meeting_id}", opts.WS.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(MaxBodySize(1 << 20)) // 1 MB is ample for /visit's small JSON body
		if opts.Config.MetricsEnabled {
			r.Use(InstrumentHandler)
		}
		r.Use(RateLimiter(opts.Config.RateLimitRPS, opts.Config.RateLimitBurst))
		r.Use(ResponseTimeout(opts.Config.WriteTimeout))

		r.Post("/visit", opts.Visit.Visit)
		r.Get("/meetings", opts.Meetings.List)
		r.Get("/meetings/{id}", opts.Meetings.Get)
	})

	srv := &http.Server{
		Addr:        opts.Config.HTTPAddr,
		Handler:     r,
		ReadTimeout: opts.Config.ReadTimeout,
		IdleTimeout: opts.Config.IdleTimeout,
		// WriteTimeout left at 0: /ws/meetings/{id} connections are
		// long-lived and must not be cut off by a fixed write deadline.
		WriteTimeout: 0,
	}

	return &Server{http: srv, log: opts.Log}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
