package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/amigadave/libportal/config"
	"github.com/amigadave/libportal/events"
	"github.com/amigadave/libportal/logger"
	"github.com/amigadave/libportal/portal"
)

// InputSession is the slice of a portal session the HTTP surface needs.
// *portal.Session satisfies it; tests substitute a fake.
type InputSession interface {
	Kind() portal.SessionKind
	State() portal.SessionState
	Devices() portal.DeviceType
	Streams() []portal.Stream
	Close()

	NotifyPointerMotion(dx, dy float64) error
	NotifyPointerMotionAbsolute(stream uint32, x, y float64) error
	NotifyPointerButton(button int32, state portal.ButtonState) error
	NotifyPointerAxis(dx, dy float64, finish bool) error
	NotifyPointerAxisDiscrete(axis portal.DiscreteAxis, steps int32) error
	NotifyKeyboardKeysym(keysym int32, state portal.KeyState) error
	NotifyKeyboardKeycode(keycode int32, state portal.KeyState) error
	NotifyTouchDown(stream, slot uint32, x, y float64) error
	NotifyTouchMotion(stream, slot uint32, x, y float64) error
	NotifyTouchUp(slot uint32) error
}

type Server struct {
	mux         *http.ServeMux
	config      *config.ApiConfig
	broadcaster *events.Broadcaster
}

func NewServer(cfg *config.ApiConfig, session InputSession, broadcaster *events.Broadcaster) *Server {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	server := &Server{
		mux:         http.NewServeMux(),
		config:      cfg,
		broadcaster: broadcaster,
	}
	server.register(session)
	return server
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.Bind, s.config.Port),
		Handler: s.mux,
		// Derive request contexts from ctx so that long-lived handlers
		// (e.g. SSE) exit cleanly when the application shuts down,
		// without waiting for the graceful-shutdown timeout.
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Info("[api] server shutdown error: %v", err)
		}
	}()

	logger.Info("[api] http server running on %s", srv.Addr)
	return srv.ListenAndServe()
}
