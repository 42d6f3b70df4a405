package portal

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/amigadave/libportal/logger"
)

// pendingRequest correlates one portal method call with its eventual
// Request.Response signal. The signal subscription is created before the
// method call is issued, so a response can never race the listener, and
// it is removed exactly once, either after the response is delivered or
// on cancellation teardown.
type pendingRequest struct {
	portal  *Portal
	token   string
	path    dbus.ObjectPath
	signals chan *dbus.Signal
	match   []dbus.MatchOption
	done    bool
}

// newRequest picks a fresh token, derives the response object path the
// portal will emit Response on, and subscribes to that exact path.
func (p *Portal) newRequest() (*pendingRequest, error) {
	token := p.token()
	req := &pendingRequest{
		portal:  p,
		token:   token,
		path:    dbus.ObjectPath(requestPathPrefix + p.sender + "/" + token),
		signals: make(chan *dbus.Signal, 8),
	}
	req.match = []dbus.MatchOption{
		dbus.WithMatchObjectPath(req.path),
		dbus.WithMatchInterface(requestIface),
		dbus.WithMatchMember(responseMember),
	}

	p.conn.Signal(req.signals)
	if err := p.conn.AddMatchSignal(req.match...); err != nil {
		p.conn.RemoveSignal(req.signals)
		return nil, fmt.Errorf("subscribe to portal response: %w", err)
	}
	return req, nil
}

// teardown removes the match rule and the signal channel. Idempotent, so
// every exit path of a stage can call it without double-removing.
func (r *pendingRequest) teardown() {
	if r.done {
		return
	}
	r.done = true
	if err := r.portal.conn.RemoveMatchSignal(r.match...); err != nil {
		logger.Warn("[portal] failed to remove response match for %s: %v", r.path, err)
	}
	r.portal.conn.RemoveSignal(r.signals)
}

// call issues the portal method that this request correlates with. The
// caller context cancels the bus call itself if it is still in flight.
func (r *pendingRequest) call(ctx context.Context, iface, method string, args ...interface{}) error {
	c := r.portal.desktop().CallWithContext(ctx, iface+"."+method, 0, args...)
	if c.Err != nil {
		r.teardown()
		return fmt.Errorf("%s: %w", method, c.Err)
	}
	// The portal also returns the request object path from the method
	// call. Correlation uses the path predicted from our sender and
	// token, so the return value only matters for transport errors.
	return nil
}

// wait blocks until the Response signal for this request arrives or ctx
// is cancelled. Cancellation sends a best-effort Close to the request
// object; if the service has already answered, that answer wins and the
// cancellation has no further effect.
func (r *pendingRequest) wait(ctx context.Context, op string) (map[string]dbus.Variant, error) {
	defer r.teardown()

	for {
		select {
		case sig := <-r.signals:
			if !r.matches(sig) {
				continue
			}
			return parseResponse(sig, op)
		case <-ctx.Done():
			r.closeRequest()
			// Drain once: a response that arrived before the
			// cancellation fired still wins.
			select {
			case sig := <-r.signals:
				if r.matches(sig) {
					return parseResponse(sig, op)
				}
			default:
			}
			return nil, &CancelledError{Op: op}
		}
	}
}

// matches reports whether sig is the Response signal for this request.
// The signal channel is shared with any other in-flight request on the
// same connection, so each request filters on its own path.
func (r *pendingRequest) matches(sig *dbus.Signal) bool {
	return sig != nil && sig.Path == r.path && sig.Name == responseSignal
}

// closeRequest asks the portal to close the pending request. Advisory
// only: errors are ignored and no reply is expected.
func (r *pendingRequest) closeRequest() {
	obj := r.portal.conn.Object(portalBusName, r.path)
	obj.Go(requestIface+".Close", dbus.FlagNoReplyExpected, nil)
}

// parseResponse maps a Response signal body (u, a{sv}) to its result
// vardict, or to the error its response code stands for.
func parseResponse(sig *dbus.Signal, op string) (map[string]dbus.Variant, error) {
	if len(sig.Body) < 2 {
		return nil, &ResponseError{Reason: "body too short"}
	}
	code, ok := sig.Body[0].(uint32)
	if !ok {
		return nil, &ResponseError{Reason: "response code is not uint32"}
	}
	results, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return nil, &ResponseError{Reason: "results are not a vardict"}
	}

	switch code {
	case responseSuccess:
		return results, nil
	case responseCancelled:
		return nil, &CancelledError{Op: op}
	default:
		return nil, &DeniedError{Op: op}
	}
}
