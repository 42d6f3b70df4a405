package portal

const (
	portalBusName    = "org.freedesktop.portal.Desktop"
	portalObjectPath = "/org/freedesktop/portal/desktop"

	screencastIface    = "org.freedesktop.portal.ScreenCast"
	remoteDesktopIface = "org.freedesktop.portal.RemoteDesktop"
	requestIface       = "org.freedesktop.portal.Request"
	sessionIface       = "org.freedesktop.portal.Session"

	responseMember = "Response"
	responseSignal = requestIface + "." + responseMember

	requestPathPrefix = portalObjectPath + "/request/"
	sessionPathPrefix = portalObjectPath + "/session/"
)

// SessionKind distinguishes pure screencast sessions from remote desktop
// sessions, which additionally allow injecting input events.
type SessionKind int

const (
	SessionScreencast SessionKind = iota
	SessionRemoteDesktop
)

// iface returns the portal interface that owns CreateSession and Start
// for this kind of session.
func (k SessionKind) iface() string {
	if k == SessionRemoteDesktop {
		return remoteDesktopIface
	}
	return screencastIface
}

func (k SessionKind) String() string {
	if k == SessionRemoteDesktop {
		return "remote-desktop"
	}
	return "screencast"
}

// SessionState is the lifecycle state of a Session. A closed session is
// terminal: no Start or input call is valid afterwards.
type SessionState int

const (
	StateInit SessionState = iota
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// DeviceType is a bitmask of input devices a remote desktop session may
// be granted access to.
type DeviceType uint32

const (
	DeviceNone        DeviceType = 0
	DeviceKeyboard    DeviceType = 1
	DevicePointer     DeviceType = 2
	DeviceTouchscreen DeviceType = 4
)

// OutputType is a bitmask of capture source kinds offered in the portal
// dialog.
type OutputType uint32

const (
	OutputNone    OutputType = 0
	OutputMonitor OutputType = 1
	OutputWindow  OutputType = 2
	OutputVirtual OutputType = 4
)

// PersistMode controls whether the compositor may remember the grant and
// issue a restore token from Start.
type PersistMode uint32

const (
	PersistNone      PersistMode = 0
	PersistTransient PersistMode = 1
	PersistPermanent PersistMode = 2
)

// ButtonState is the state of a pointer button, with linux input event
// semantics for the button code.
type ButtonState uint32

const (
	ButtonReleased ButtonState = 0
	ButtonPressed  ButtonState = 1
)

// KeyState is the state of a keyboard key.
type KeyState uint32

const (
	KeyReleased KeyState = 0
	KeyPressed  KeyState = 1
)

// DiscreteAxis identifies the scroll axis of a discrete scroll event.
type DiscreteAxis uint32

const (
	AxisVertical   DiscreteAxis = 0
	AxisHorizontal DiscreteAxis = 1
)

// Portal response codes carried in Request.Response signals.
const (
	responseSuccess   uint32 = 0
	responseCancelled uint32 = 1
	responseFailed    uint32 = 2
)
