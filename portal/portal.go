package portal

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/amigadave/libportal/logger"
)

// busConn is the slice of *dbus.Conn the portal client needs. Narrowed to
// an interface so tests can drive the negotiation against a fake bus.
type busConn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Names() []string
	Close() error
}

// Portal is the long-lived client handle shared by all requests: one
// session-bus connection, the munged sender identity used to build unique
// request and session object paths, and the token generator. Safe for
// concurrent use; nothing in it is mutated after New.
type Portal struct {
	conn   busConn
	sender string
}

// New connects to the session bus and returns a portal client handle.
func New() (*Portal, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return newWithConn(conn), nil
}

func newWithConn(conn busConn) *Portal {
	// ":1.42" -> "1_42", the form the portal uses in request/session
	// object paths.
	name := conn.Names()[0]
	sender := strings.ReplaceAll(strings.TrimPrefix(name, ":"), ".", "_")

	return &Portal{
		conn:   conn,
		sender: sender,
	}
}

// Close closes the underlying bus connection. Sessions created from this
// handle are unusable afterwards.
func (p *Portal) Close() {
	if err := p.conn.Close(); err != nil {
		logger.Error("[portal] failed to close D-Bus connection: %v", err)
	}
}

// desktop returns the portal frontend object all requests go through.
func (p *Portal) desktop() dbus.BusObject {
	return p.conn.Object(portalBusName, portalObjectPath)
}

// token returns a fresh handle token. Collision only needs to be
// practically negligible within this process: the path namespace is
// already scoped to our unique sender name.
func (p *Portal) token() string {
	return fmt.Sprintf("portal%d", rand.Uint64())
}
