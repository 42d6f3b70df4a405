package portal

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/amigadave/libportal/logger"
)

// Stream describes one pipewire stream granted by Start.
type Stream struct {
	NodeID     uint32
	Properties map[string]dbus.Variant
}

// Position returns the stream's (x, y) position in the compositor
// coordinate space, if the compositor provided one.
func (s Stream) Position() (int32, int32, bool) {
	v, ok := s.Properties["position"]
	if !ok {
		return 0, 0, false
	}
	pair, ok := v.Value().([]interface{})
	if !ok || len(pair) != 2 {
		return 0, 0, false
	}
	x, xok := pair[0].(int32)
	y, yok := pair[1].(int32)
	return x, y, xok && yok
}

// Size returns the stream's (width, height), if provided.
func (s Stream) Size() (int32, int32, bool) {
	v, ok := s.Properties["size"]
	if !ok {
		return 0, 0, false
	}
	pair, ok := v.Value().([]interface{})
	if !ok || len(pair) != 2 {
		return 0, 0, false
	}
	w, wok := pair[0].(int32)
	h, hok := pair[1].(int32)
	return w, h, wok && hok
}

// Session is a negotiated capability grant. Device mask, streams and
// restore token stay empty until Start succeeds; after Close (or a
// failed Start) the session is terminally closed.
type Session struct {
	portal *Portal
	id     dbus.ObjectPath
	kind   SessionKind

	mu           sync.Mutex
	state        SessionState
	devices      DeviceType
	streams      []Stream
	restoreToken string

	closeOnce sync.Once
	closed    chan struct{}
}

func newSession(p *Portal, id dbus.ObjectPath, kind SessionKind) *Session {
	return &Session{
		portal: p,
		id:     id,
		kind:   kind,
		state:  StateInit,
		closed: make(chan struct{}),
	}
}

// ID returns the session's bus object path.
func (s *Session) ID() dbus.ObjectPath {
	return s.id
}

// Kind returns the session kind negotiated at creation.
func (s *Session) Kind() SessionKind {
	return s.kind
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Devices returns the device capabilities granted by Start. Empty before
// the session is active.
func (s *Session) Devices() DeviceType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.devices
}

// Streams returns the streams granted by Start. Empty before the session
// is active.
func (s *Session) Streams() []Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Stream, len(s.streams))
	copy(out, s.streams)
	return out
}

// RestoreToken returns the restore token granted by Start, if the
// compositor issued one. Persist it and pass it on the next session
// creation to skip the interactive dialog.
func (s *Session) RestoreToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreToken
}

// Done returns a channel closed when the session reaches the Closed
// state, whether through Close or a failed Start.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}

// Close tells the portal to tear down the session, then marks it closed.
// The bus exchange targets an object the service may already have
// dropped, so its result is deliberately ignored.
func (s *Session) Close() {
	obj := s.portal.conn.Object(portalBusName, s.id)
	if err := obj.Call(sessionIface+".Close", 0).Err; err != nil {
		logger.Debug("[portal] session close call failed (ignored): %v", err)
	}
	s.setClosed()
}

func (s *Session) setClosed() {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.closed) })
}

// OpenPipeWireRemote opens a file descriptor to the pipewire remote where
// the capture streams are available. This is a synchronous round trip,
// not part of the request/response negotiation.
func (s *Session) OpenPipeWireRemote() (int, error) {
	var fd dbus.UnixFD
	call := s.portal.desktop().Call(
		screencastIface+".OpenPipeWireRemote", 0,
		s.id,
		map[string]dbus.Variant{},
	)
	if call.Err != nil {
		return -1, fmt.Errorf("OpenPipeWireRemote: %w", call.Err)
	}
	if err := call.Store(&fd); err != nil {
		return -1, fmt.Errorf("OpenPipeWireRemote: %w", err)
	}
	return int(fd), nil
}
