package api

import (
	"net/http"

	"github.com/amigadave/libportal/logger"
)

func (s *Server) register(session InputSession) {
	if session == nil {
		return
	}

	// 404 on root for security
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	s.registerSessionRoutes(session)
	s.registerInputRoutes(session)

	if s.broadcaster != nil {
		s.mux.HandleFunc("GET /events", sseHandler(s.broadcaster))
		logger.Info("[api] SSE route registered at /events")
	}
}

func (s *Server) registerSessionRoutes(session InputSession) {
	s.mux.HandleFunc(
		"GET /session",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			return sessionStatus(session), nil
		}),
	)
	s.mux.HandleFunc(
		"POST /session/close",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			session.Close()
			return sessionStatus(session), nil
		}),
	)
}

func (s *Server) registerInputRoutes(session InputSession) {
	s.mux.HandleFunc(
		"POST /input/pointer/motion",
		PointerMotionHandler(session),
	)
	s.mux.HandleFunc(
		"POST /input/pointer/position",
		PointerPositionHandler(session),
	)
	s.mux.HandleFunc(
		"POST /input/pointer/button",
		PointerButtonHandler(session),
	)
	s.mux.HandleFunc(
		"POST /input/pointer/axis",
		PointerAxisHandler(session),
	)
	s.mux.HandleFunc(
		"POST /input/pointer/axis_discrete",
		PointerAxisDiscreteHandler(session),
	)
	s.mux.HandleFunc(
		"POST /input/keyboard/keysym",
		KeyboardKeysymHandler(session),
	)
	s.mux.HandleFunc(
		"POST /input/keyboard/keycode",
		KeyboardKeycodeHandler(session),
	)
	s.mux.HandleFunc(
		"POST /input/touch/down",
		TouchDownHandler(session),
	)
	s.mux.HandleFunc(
		"POST /input/touch/motion",
		TouchMotionHandler(session),
	)
	s.mux.HandleFunc(
		"POST /input/touch/up",
		TouchUpHandler(session),
	)
}
