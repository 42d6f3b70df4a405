package portal

import (
	"github.com/godbus/dbus/v5"
)

// The notify family injects input events into an active remote desktop
// session. Every call is gated synchronously on the session kind, the
// lifecycle state and the granted device bit; if the gate passes, a
// one-way call is fired and never acknowledged. Input events are
// latency-sensitive, so delivery is at-most-once by design: a failure
// past this client is not reported.

// requireDevice is the synchronous precondition gate shared by all input
// calls. It never touches the bus.
func (s *Session) requireDevice(device DeviceType) error {
	if s.kind != SessionRemoteDesktop {
		return &PreconditionError{Reason: "not a remote desktop session"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return &PreconditionError{Reason: "session is " + s.state.String() + ", not active"}
	}
	if s.devices&device == 0 {
		return &PreconditionError{Reason: "device not granted"}
	}
	return nil
}

// notify fires a one-way RemoteDesktop call carrying the session id, an
// empty options vardict and the event arguments.
func (s *Session) notify(member string, args ...interface{}) {
	callArgs := append([]interface{}{s.id, map[string]dbus.Variant{}}, args...)
	s.portal.desktop().Go(remoteDesktopIface+"."+member, dbus.FlagNoReplyExpected, nil, callArgs...)
}

// NotifyPointerMotion moves the pointer relative to its current
// position. Requires pointer access.
func (s *Session) NotifyPointerMotion(dx, dy float64) error {
	if err := s.requireDevice(DevicePointer); err != nil {
		return err
	}
	s.notify("NotifyPointerMotion", dx, dy)
	return nil
}

// NotifyPointerMotionAbsolute moves the pointer to a position in the
// given stream's logical coordinate space. Requires pointer access.
func (s *Session) NotifyPointerMotionAbsolute(stream uint32, x, y float64) error {
	if err := s.requireDevice(DevicePointer); err != nil {
		return err
	}
	s.notify("NotifyPointerMotionAbsolute", stream, x, y)
	return nil
}

// NotifyPointerButton changes the state of a pointer button. The button
// code uses linux input event semantics. Requires pointer access.
func (s *Session) NotifyPointerButton(button int32, state ButtonState) error {
	if err := s.requireDevice(DevicePointer); err != nil {
		return err
	}
	s.notify("NotifyPointerButton", button, uint32(state))
	return nil
}

// NotifyPointerAxis injects smooth-scroll axis movement, as from a
// touchpad. finish marks the last event of a scroll sequence. Requires
// pointer access.
func (s *Session) NotifyPointerAxis(dx, dy float64, finish bool) error {
	if err := s.requireDevice(DevicePointer); err != nil {
		return err
	}
	s.portal.desktop().Go(
		remoteDesktopIface+".NotifyPointerAxis",
		dbus.FlagNoReplyExpected, nil,
		s.id,
		map[string]dbus.Variant{"finish": dbus.MakeVariant(finish)},
		dx, dy,
	)
	return nil
}

// NotifyPointerAxisDiscrete injects discrete scroll steps, as from a
// scroll wheel. Requires pointer access.
func (s *Session) NotifyPointerAxisDiscrete(axis DiscreteAxis, steps int32) error {
	if err := s.requireDevice(DevicePointer); err != nil {
		return err
	}
	s.notify("NotifyPointerAxisDiscrete", uint32(axis), steps)
	return nil
}

// NotifyKeyboardKeysym changes the state of a key identified by its
// keysym. Requires keyboard access.
func (s *Session) NotifyKeyboardKeysym(keysym int32, state KeyState) error {
	if err := s.requireDevice(DeviceKeyboard); err != nil {
		return err
	}
	s.notify("NotifyKeyboardKeysym", keysym, uint32(state))
	return nil
}

// NotifyKeyboardKeycode changes the state of a key identified by its
// hardware keycode. Requires keyboard access.
func (s *Session) NotifyKeyboardKeycode(keycode int32, state KeyState) error {
	if err := s.requireDevice(DeviceKeyboard); err != nil {
		return err
	}
	s.notify("NotifyKeyboardKeycode", keycode, uint32(state))
	return nil
}

// NotifyTouchDown injects a touch-down at a position in the given
// stream's logical coordinate space. Requires touchscreen access.
func (s *Session) NotifyTouchDown(stream, slot uint32, x, y float64) error {
	if err := s.requireDevice(DeviceTouchscreen); err != nil {
		return err
	}
	s.notify("NotifyTouchDown", stream, slot, x, y)
	return nil
}

// NotifyTouchMotion moves a touch point within the given stream's
// logical coordinate space. Requires touchscreen access.
func (s *Session) NotifyTouchMotion(stream, slot uint32, x, y float64) error {
	if err := s.requireDevice(DeviceTouchscreen); err != nil {
		return err
	}
	s.notify("NotifyTouchMotion", stream, slot, x, y)
	return nil
}

// NotifyTouchUp lifts a touch point. Only the slot is carried.
//
// TODO: the portal defines a separate NotifyTouchUp member; this sends
// the slot-only payload to NotifyTouchMotion, matching long-standing
// client behavior. Switch the member name once compositor handling of
// NotifyTouchUp is confirmed.
func (s *Session) NotifyTouchUp(slot uint32) error {
	if err := s.requireDevice(DeviceTouchscreen); err != nil {
		return err
	}
	s.notify("NotifyTouchMotion", slot)
	return nil
}
