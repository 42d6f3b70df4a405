package portal

import (
	"context"

	"github.com/godbus/dbus/v5"

	"github.com/amigadave/libportal/logger"
)

// Parent exports a host window handle so the portal dialog can be made
// transient for it. Export reports the handle through done exactly once;
// Unexport releases it. Implementations are supplied by the host toolkit
// (wayland xdg-foreign, X11 window ids).
type Parent interface {
	Export(done func(handle string)) error
	Unexport()
}

// Start activates a negotiated session: this is where the portal shows
// its consent dialog and the user picks what to share. On success the
// granted devices and streams are applied and the session becomes
// Active. Any failed or cancelled Start closes the session, because the
// remote side is unusable either way.
//
// parent may be nil, in which case the dialog is parentless.
func (s *Session) Start(ctx context.Context, parent Parent) error {
	s.mu.Lock()
	if s.state != StateInit {
		state := s.state
		s.mu.Unlock()
		return &PreconditionError{Reason: "session is " + state.String() + ", not init"}
	}
	s.mu.Unlock()

	handle := ""
	if parent != nil {
		exported := make(chan string, 1)
		if err := parent.Export(func(h string) { exported <- h }); err != nil {
			s.setClosed()
			return err
		}
		defer parent.Unexport()

		// The export itself cannot be cancelled; a caller that gives
		// up here abandons the session.
		select {
		case handle = <-exported:
		case <-ctx.Done():
			s.setClosed()
			return &CancelledError{Op: "Start"}
		}
	}

	req, err := s.portal.newRequest()
	if err != nil {
		s.setClosed()
		return err
	}

	opts := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(req.token),
	}
	if err := req.call(ctx, s.kind.iface(), "Start", s.id, handle, opts); err != nil {
		s.setClosed()
		return err
	}

	results, err := req.wait(ctx, "Start")
	if err != nil {
		s.setClosed()
		return err
	}

	s.applyStartResults(results)
	s.mu.Lock()
	s.state = StateActive
	s.mu.Unlock()
	logger.Debug("[portal] session %s active, devices=%d streams=%d", s.id, s.Devices(), len(s.Streams()))
	return nil
}

// applyStartResults copies the granted device mask, stream list and
// restore token out of the Start response. A field absent from the
// response leaves the corresponding attribute untouched.
func (s *Session) applyStartResults(results map[string]dbus.Variant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := results["devices"]; ok {
		if devices, ok := v.Value().(uint32); ok {
			s.devices = DeviceType(devices)
		}
	}
	if v, ok := results["streams"]; ok {
		if streams := parseStreams(v); streams != nil {
			s.streams = streams
		}
	}
	if v, ok := results["restore_token"]; ok {
		if token, ok := v.Value().(string); ok {
			s.restoreToken = token
		}
	}
}

// parseStreams decodes the a(ua{sv}) stream list from the Start
// response. Malformed entries are dropped.
func parseStreams(v dbus.Variant) []Stream {
	raw, ok := v.Value().([][]interface{})
	if !ok {
		return nil
	}
	streams := make([]Stream, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 2 {
			continue
		}
		nodeID, ok := entry[0].(uint32)
		if !ok {
			continue
		}
		props, ok := entry[1].(map[string]dbus.Variant)
		if !ok {
			continue
		}
		streams = append(streams, Stream{NodeID: nodeID, Properties: props})
	}
	return streams
}
