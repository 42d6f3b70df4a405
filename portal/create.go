package portal

import (
	"context"

	"github.com/godbus/dbus/v5"

	"github.com/amigadave/libportal/logger"
)

// ScreencastOptions configures a screencast session request.
type ScreencastOptions struct {
	// Outputs is the set of source kinds offered in the portal dialog.
	Outputs OutputType
	// Multiple allows the user to select more than one source.
	Multiple bool
	// PersistMode asks the compositor to remember the grant.
	PersistMode PersistMode
	// RestoreToken restores a previously persisted grant, skipping the
	// interactive dialog when the compositor still honors it.
	RestoreToken string
}

// RemoteDesktopOptions configures a remote desktop session request.
type RemoteDesktopOptions struct {
	// Devices is the set of input devices to request access to.
	Devices DeviceType
	// Outputs optionally also requests capture sources. Zero means the
	// session is input-only and source selection is skipped entirely.
	Outputs      OutputType
	Multiple     bool
	PersistMode  PersistMode
	RestoreToken string
}

// createCall is the state carried through the establishment stages. One
// value per operation, owned by the goroutine running it; each stage
// tears down its own pending request before the next one is issued.
type createCall struct {
	portal       *Portal
	kind         SessionKind
	devices      DeviceType
	outputs      OutputType
	multiple     bool
	persist      PersistMode
	restoreToken string

	sessionPath dbus.ObjectPath
}

// CreateScreencastSession negotiates a new screencast session: a
// CreateSession round trip followed by SelectSources. The returned
// session is in the Init state; call Start to activate it.
func (p *Portal) CreateScreencastSession(ctx context.Context, opts ScreencastOptions) (*Session, error) {
	call := &createCall{
		portal:       p,
		kind:         SessionScreencast,
		outputs:      opts.Outputs,
		multiple:     opts.Multiple,
		persist:      opts.PersistMode,
		restoreToken: opts.RestoreToken,
	}
	return call.run(ctx)
}

// CreateRemoteDesktopSession negotiates a new remote desktop session:
// CreateSession, then SelectDevices, then SelectSources if capture
// sources were also requested.
func (p *Portal) CreateRemoteDesktopSession(ctx context.Context, opts RemoteDesktopOptions) (*Session, error) {
	call := &createCall{
		portal:       p,
		kind:         SessionRemoteDesktop,
		devices:      opts.Devices,
		outputs:      opts.Outputs,
		multiple:     opts.Multiple,
		persist:      opts.PersistMode,
		restoreToken: opts.RestoreToken,
	}
	return call.run(ctx)
}

func (c *createCall) run(ctx context.Context) (*Session, error) {
	if err := c.createSession(ctx); err != nil {
		return nil, err
	}

	if c.kind == SessionRemoteDesktop {
		if err := c.selectDevices(ctx); err != nil {
			return nil, err
		}
	}

	// A screencast session always selects sources; a remote desktop
	// session only when capture was requested alongside input.
	if c.kind == SessionScreencast || c.outputs != OutputNone {
		if err := c.selectSources(ctx); err != nil {
			return nil, err
		}
	}

	logger.Debug("[portal] %s session %s established", c.kind, c.sessionPath)
	return newSession(c.portal, c.sessionPath, c.kind), nil
}

func (c *createCall) createSession(ctx context.Context) error {
	req, err := c.portal.newRequest()
	if err != nil {
		return err
	}

	// The session object identity is picked client-side, the same way
	// the request path is: prefix, sender, fresh token.
	sessionToken := c.portal.token()
	c.sessionPath = dbus.ObjectPath(sessionPathPrefix + c.portal.sender + "/" + sessionToken)

	opts := map[string]dbus.Variant{
		"handle_token":         dbus.MakeVariant(req.token),
		"session_handle_token": dbus.MakeVariant(sessionToken),
	}
	if err := req.call(ctx, c.kind.iface(), "CreateSession", opts); err != nil {
		return err
	}

	_, err = req.wait(ctx, "CreateSession")
	return err
}

func (c *createCall) selectDevices(ctx context.Context) error {
	req, err := c.portal.newRequest()
	if err != nil {
		return err
	}

	opts := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(req.token),
		"types":        dbus.MakeVariant(uint32(c.devices)),
	}
	c.addRestoreOptions(opts)
	if err := req.call(ctx, remoteDesktopIface, "SelectDevices", c.sessionPath, opts); err != nil {
		return err
	}

	_, err = req.wait(ctx, "SelectDevices")
	return err
}

func (c *createCall) selectSources(ctx context.Context) error {
	req, err := c.portal.newRequest()
	if err != nil {
		return err
	}

	opts := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(req.token),
		"types":        dbus.MakeVariant(uint32(c.outputs)),
		"multiple":     dbus.MakeVariant(c.multiple),
	}
	if c.kind == SessionScreencast {
		// For remote desktop sessions the restore options already went
		// out with SelectDevices.
		c.addRestoreOptions(opts)
	}
	if err := req.call(ctx, screencastIface, "SelectSources", c.sessionPath, opts); err != nil {
		return err
	}

	_, err = req.wait(ctx, "SelectSources")
	return err
}

func (c *createCall) addRestoreOptions(opts map[string]dbus.Variant) {
	if c.persist != PersistNone {
		opts["persist_mode"] = dbus.MakeVariant(uint32(c.persist))
	}
	if c.restoreToken != "" {
		opts["restore_token"] = dbus.MakeVariant(c.restoreToken)
	}
}
