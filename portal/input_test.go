package portal

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
)

// activeRemoteSession negotiates and starts a remote desktop session
// with the given granted device mask.
func activeRemoteSession(t *testing.T, devices DeviceType) (*Session, *fakeConn) {
	t.Helper()
	p, conn := newTestPortal()
	session := establish(t, p, conn, SessionRemoteDesktop, devices)

	scriptPortal(conn, p.sender, map[string]scriptedResponse{
		"Start": ok(map[string]dbus.Variant{
			"devices": dbus.MakeVariant(uint32(devices)),
		}),
	})
	if err := session.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return session, conn
}

// notifyCalls counts recorded calls whose member starts with "Notify".
func notifyCalls(conn *fakeConn) int {
	n := 0
	for _, member := range conn.callMembers() {
		if len(member) > 6 && member[:6] == "Notify" {
			n++
		}
	}
	return n
}

func TestInputPreconditions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) (*Session, *fakeConn)
	}{
		{
			"screencast session",
			func(t *testing.T) (*Session, *fakeConn) {
				p, conn := newTestPortal()
				s := establish(t, p, conn, SessionScreencast, DeviceNone)
				return s, conn
			},
		},
		{
			"remote session not yet started",
			func(t *testing.T) (*Session, *fakeConn) {
				p, conn := newTestPortal()
				s := establish(t, p, conn, SessionRemoteDesktop, DevicePointer)
				return s, conn
			},
		},
		{
			"device bit not granted",
			func(t *testing.T) (*Session, *fakeConn) {
				return activeRemoteSession(t, DeviceKeyboard)
			},
		},
		{
			"closed session",
			func(t *testing.T) (*Session, *fakeConn) {
				s, conn := activeRemoteSession(t, DevicePointer)
				s.Close()
				return s, conn
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, conn := tt.setup(t)
			before := notifyCalls(conn)

			err := session.NotifyPointerMotion(1, 1)
			var precond *PreconditionError
			if !errors.As(err, &precond) {
				t.Fatalf("error = %v, want PreconditionError", err)
			}
			if after := notifyCalls(conn); after != before {
				t.Errorf("a rejected input call reached the bus (%d notify calls)", after-before)
			}
		})
	}
}

func TestInputNotifies(t *testing.T) {
	session, conn := activeRemoteSession(t, DevicePointer|DeviceKeyboard|DeviceTouchscreen)

	calls := []struct {
		name   string
		invoke func() error
		member string
		args   []interface{}
	}{
		{
			"pointer motion",
			func() error { return session.NotifyPointerMotion(3.5, -2.0) },
			"NotifyPointerMotion",
			[]interface{}{3.5, -2.0},
		},
		{
			"pointer motion absolute",
			func() error { return session.NotifyPointerMotionAbsolute(42, 10, 20) },
			"NotifyPointerMotionAbsolute",
			[]interface{}{uint32(42), float64(10), float64(20)},
		},
		{
			"pointer button",
			func() error { return session.NotifyPointerButton(0x110, ButtonPressed) },
			"NotifyPointerButton",
			[]interface{}{int32(0x110), uint32(ButtonPressed)},
		},
		{
			"pointer axis discrete",
			func() error { return session.NotifyPointerAxisDiscrete(AxisVertical, -1) },
			"NotifyPointerAxisDiscrete",
			[]interface{}{uint32(AxisVertical), int32(-1)},
		},
		{
			"keyboard keysym",
			func() error { return session.NotifyKeyboardKeysym(0xff0d, KeyPressed) },
			"NotifyKeyboardKeysym",
			[]interface{}{int32(0xff0d), uint32(KeyPressed)},
		},
		{
			"keyboard keycode",
			func() error { return session.NotifyKeyboardKeycode(28, KeyReleased) },
			"NotifyKeyboardKeycode",
			[]interface{}{int32(28), uint32(KeyReleased)},
		},
		{
			"touch down",
			func() error { return session.NotifyTouchDown(42, 0, 1.0, 2.0) },
			"NotifyTouchDown",
			[]interface{}{uint32(42), uint32(0), 1.0, 2.0},
		},
		{
			"touch motion",
			func() error { return session.NotifyTouchMotion(42, 0, 3.0, 4.0) },
			"NotifyTouchMotion",
			[]interface{}{uint32(42), uint32(0), 3.0, 4.0},
		},
	}

	for _, tc := range calls {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.invoke(); err != nil {
				t.Fatalf("%s failed: %v", tc.name, err)
			}
			recorded := conn.methodCalls(tc.member)
			last := recorded[len(recorded)-1]

			if last.method != remoteDesktopIface+"."+tc.member {
				t.Errorf("method = %s, want %s.%s", last.method, remoteDesktopIface, tc.member)
			}
			if last.flags&dbus.FlagNoReplyExpected == 0 {
				t.Error("input notify sent without FlagNoReplyExpected")
			}
			if last.args[0] != session.ID() {
				t.Errorf("session arg = %v, want %v", last.args[0], session.ID())
			}
			if _, isVardict := last.args[1].(map[string]dbus.Variant); !isVardict {
				t.Errorf("options arg = %T, want vardict", last.args[1])
			}

			got := last.args[2:]
			if len(got) != len(tc.args) {
				t.Fatalf("args = %v, want %v", got, tc.args)
			}
			for i := range tc.args {
				if got[i] != tc.args[i] {
					t.Errorf("arg[%d] = %v (%T), want %v (%T)", i, got[i], got[i], tc.args[i], tc.args[i])
				}
			}
		})
	}
}

func TestPointerAxisCarriesFinishOption(t *testing.T) {
	session, conn := activeRemoteSession(t, DevicePointer)

	if err := session.NotifyPointerAxis(0, -12.5, true); err != nil {
		t.Fatalf("NotifyPointerAxis failed: %v", err)
	}

	call := conn.methodCalls("NotifyPointerAxis")[0]
	opts, _ := call.args[1].(map[string]dbus.Variant)
	if finish, _ := opts["finish"].Value().(bool); !finish {
		t.Errorf("finish option = %v, want true", opts["finish"])
	}
	if dx, _ := call.args[2].(float64); dx != 0 {
		t.Errorf("dx = %v, want 0", call.args[2])
	}
	if dy, _ := call.args[3].(float64); dy != -12.5 {
		t.Errorf("dy = %v, want -12.5", call.args[3])
	}
}

// Touch-up historically reuses the touch-motion member with a slot-only
// payload. This pins the current wire behavior so that switching to a
// dedicated NotifyTouchUp member shows up as a deliberate change.
func TestTouchUpUsesMotionMember(t *testing.T) {
	session, conn := activeRemoteSession(t, DeviceTouchscreen)

	if err := session.NotifyTouchUp(3); err != nil {
		t.Fatalf("NotifyTouchUp failed: %v", err)
	}

	if up := conn.methodCalls("NotifyTouchUp"); len(up) != 0 {
		t.Fatalf("NotifyTouchUp member used directly %d times", len(up))
	}
	motions := conn.methodCalls("NotifyTouchMotion")
	if len(motions) != 1 {
		t.Fatalf("NotifyTouchMotion calls = %d, want 1", len(motions))
	}
	call := motions[0]
	if len(call.args) != 3 {
		t.Fatalf("args = %v, want session, options, slot", call.args)
	}
	if slot, _ := call.args[2].(uint32); slot != 3 {
		t.Errorf("slot = %v, want 3", call.args[2])
	}
}
