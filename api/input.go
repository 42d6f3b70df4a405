package api

import (
	"net/http"

	"github.com/amigadave/libportal/portal"
)

type pointerMotionRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type pointerPositionRequest struct {
	Stream uint32  `json:"stream"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type pointerButtonRequest struct {
	Button  int32 `json:"button"`
	Pressed bool  `json:"pressed"`
}

type pointerAxisRequest struct {
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Finish bool    `json:"finish"`
}

type pointerAxisDiscreteRequest struct {
	Axis  string `json:"axis"`
	Steps int32  `json:"steps"`
}

type keyboardKeyRequest struct {
	Key     int32 `json:"key"`
	Pressed bool  `json:"pressed"`
}

type touchRequest struct {
	Stream uint32  `json:"stream"`
	Slot   uint32  `json:"slot"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type touchUpRequest struct {
	Slot uint32 `json:"slot"`
}

// withInput decodes the request body into req and runs the injection.
func withInput[T any](inject func(req T) error) http.HandlerFunc {
	return JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
		var req T
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		if err := inject(req); err != nil {
			return nil, err
		}
		return map[string]string{"status": "ok"}, nil
	})
}

func buttonState(pressed bool) portal.ButtonState {
	if pressed {
		return portal.ButtonPressed
	}
	return portal.ButtonReleased
}

func keyState(pressed bool) portal.KeyState {
	if pressed {
		return portal.KeyPressed
	}
	return portal.KeyReleased
}

func PointerMotionHandler(session InputSession) http.HandlerFunc {
	return withInput(func(req pointerMotionRequest) error {
		return session.NotifyPointerMotion(req.DX, req.DY)
	})
}

func PointerPositionHandler(session InputSession) http.HandlerFunc {
	return withInput(func(req pointerPositionRequest) error {
		return session.NotifyPointerMotionAbsolute(req.Stream, req.X, req.Y)
	})
}

func PointerButtonHandler(session InputSession) http.HandlerFunc {
	return withInput(func(req pointerButtonRequest) error {
		return session.NotifyPointerButton(req.Button, buttonState(req.Pressed))
	})
}

func PointerAxisHandler(session InputSession) http.HandlerFunc {
	return withInput(func(req pointerAxisRequest) error {
		return session.NotifyPointerAxis(req.DX, req.DY, req.Finish)
	})
}

func PointerAxisDiscreteHandler(session InputSession) http.HandlerFunc {
	return withInput(func(req pointerAxisDiscreteRequest) error {
		axis := portal.AxisVertical
		if req.Axis == "horizontal" {
			axis = portal.AxisHorizontal
		}
		return session.NotifyPointerAxisDiscrete(axis, req.Steps)
	})
}

func KeyboardKeysymHandler(session InputSession) http.HandlerFunc {
	return withInput(func(req keyboardKeyRequest) error {
		return session.NotifyKeyboardKeysym(req.Key, keyState(req.Pressed))
	})
}

func KeyboardKeycodeHandler(session InputSession) http.HandlerFunc {
	return withInput(func(req keyboardKeyRequest) error {
		return session.NotifyKeyboardKeycode(req.Key, keyState(req.Pressed))
	})
}

func TouchDownHandler(session InputSession) http.HandlerFunc {
	return withInput(func(req touchRequest) error {
		return session.NotifyTouchDown(req.Stream, req.Slot, req.X, req.Y)
	})
}

func TouchMotionHandler(session InputSession) http.HandlerFunc {
	return withInput(func(req touchRequest) error {
		return session.NotifyTouchMotion(req.Stream, req.Slot, req.X, req.Y)
	})
}

func TouchUpHandler(session InputSession) http.HandlerFunc {
	return withInput(func(req touchUpRequest) error {
		return session.NotifyTouchUp(req.Slot)
	})
}
