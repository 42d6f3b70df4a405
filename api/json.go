package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amigadave/libportal/portal"
)

func JSONHandler(h func(http.ResponseWriter, *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := h(w, r)
		if err != nil {
			http.Error(w, err.Error(), errorStatus(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// errorStatus maps portal errors to HTTP statuses: a precondition
// failure is the client's fault (session kind, state or capability),
// everything else is a server-side failure.
func errorStatus(err error) int {
	var precond *portal.PreconditionError
	if errors.As(err, &precond) {
		return http.StatusConflict
	}
	var badReq *badRequestError
	if errors.As(err, &badReq) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// badRequestError marks a request body that could not be decoded.
type badRequestError struct {
	reason string
}

func (e *badRequestError) Error() string {
	return e.reason
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &badRequestError{reason: "invalid request body: " + err.Error()}
	}
	return nil
}

// sessionStatus is the JSON shape of GET /session.
func sessionStatus(session InputSession) map[string]any {
	streams := session.Streams()
	streamInfo := make([]map[string]any, 0, len(streams))
	for _, stream := range streams {
		info := map[string]any{"node_id": stream.NodeID}
		if w, h, present := stream.Size(); present {
			info["width"] = w
			info["height"] = h
		}
		if x, y, present := stream.Position(); present {
			info["x"] = x
			info["y"] = y
		}
		streamInfo = append(streamInfo, info)
	}

	devices := session.Devices()
	return map[string]any{
		"kind":  session.Kind().String(),
		"state": session.State().String(),
		"devices": map[string]bool{
			"pointer":     devices&portal.DevicePointer != 0,
			"keyboard":    devices&portal.DeviceKeyboard != 0,
			"touchscreen": devices&portal.DeviceTouchscreen != 0,
		},
		"streams": streamInfo,
	}
}
