package portal

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
)

// recordedCall is one method call observed by the fake bus.
type recordedCall struct {
	dest   string
	path   dbus.ObjectPath
	method string
	flags  dbus.Flags
	args   []interface{}
}

// member returns the bare member name of the called method.
func (c recordedCall) member() string {
	idx := strings.LastIndex(c.method, ".")
	return c.method[idx+1:]
}

// fakeConn implements busConn for tests. It records every method call,
// tracks the signal subscription balance and lets a respond hook emit
// Response signals or inject call results.
type fakeConn struct {
	mu       sync.Mutex
	channels []chan<- *dbus.Signal
	matches  int
	calls    []recordedCall
	respond  func(c recordedCall) *dbus.Call
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{}
}

func (f *fakeConn) Object(dest string, path dbus.ObjectPath) dbus.BusObject {
	return &fakeObject{conn: f, dest: dest, path: path}
}

func (f *fakeConn) Signal(ch chan<- *dbus.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, ch)
}

func (f *fakeConn) RemoveSignal(ch chan<- *dbus.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.channels {
		if c == ch {
			f.channels = append(f.channels[:i], f.channels[i+1:]...)
			return
		}
	}
}

func (f *fakeConn) AddMatchSignal(options ...dbus.MatchOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches++
	return nil
}

func (f *fakeConn) RemoveMatchSignal(options ...dbus.MatchOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches--
	return nil
}

func (f *fakeConn) Names() []string {
	return []string{":1.42"}
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// emit delivers a signal to every registered channel, like the real
// connection does once a match rule is in place.
func (f *fakeConn) emit(sig *dbus.Signal) {
	f.mu.Lock()
	channels := append([]chan<- *dbus.Signal(nil), f.channels...)
	f.mu.Unlock()
	for _, ch := range channels {
		ch <- sig
	}
}

func (f *fakeConn) record(c recordedCall) *dbus.Call {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	respond := f.respond
	f.mu.Unlock()

	if respond != nil {
		if call := respond(c); call != nil {
			return call
		}
	}
	return &dbus.Call{}
}

// methodCalls returns all recorded calls whose member name matches.
func (f *fakeConn) methodCalls(member string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.member() == member {
			out = append(out, c)
		}
	}
	return out
}

// callMembers returns the member names of all recorded calls, in order.
func (f *fakeConn) callMembers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.member()
	}
	return out
}

func (f *fakeConn) matchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.matches
}

func (f *fakeConn) channelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels)
}

// fakeObject implements dbus.BusObject on top of fakeConn.
type fakeObject struct {
	conn *fakeConn
	dest string
	path dbus.ObjectPath
}

func (o *fakeObject) Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	return o.conn.record(recordedCall{dest: o.dest, path: o.path, method: method, flags: flags, args: args})
}

func (o *fakeObject) CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	if err := ctx.Err(); err != nil {
		return &dbus.Call{Err: err}
	}
	return o.Call(method, flags, args...)
}

func (o *fakeObject) Go(method string, flags dbus.Flags, ch chan *dbus.Call, args ...interface{}) *dbus.Call {
	return o.Call(method, flags, args...)
}

func (o *fakeObject) GoWithContext(ctx context.Context, method string, flags dbus.Flags, ch chan *dbus.Call, args ...interface{}) *dbus.Call {
	return o.CallWithContext(ctx, method, flags, args...)
}

func (o *fakeObject) AddMatchSignal(iface, member string, options ...dbus.MatchOption) *dbus.Call {
	return &dbus.Call{}
}

func (o *fakeObject) RemoveMatchSignal(iface, member string, options ...dbus.MatchOption) *dbus.Call {
	return &dbus.Call{}
}

func (o *fakeObject) GetProperty(p string) (dbus.Variant, error) {
	return dbus.Variant{}, nil
}

func (o *fakeObject) StoreProperty(p string, value interface{}) error {
	return nil
}

func (o *fakeObject) SetProperty(p string, v interface{}) error {
	return nil
}

func (o *fakeObject) Destination() string {
	return o.dest
}

func (o *fakeObject) Path() dbus.ObjectPath {
	return o.path
}

// scriptedResponse is what the fake portal answers to one request method.
type scriptedResponse struct {
	code    uint32
	results map[string]dbus.Variant
	// silent suppresses the Response signal, leaving the request
	// pending forever.
	silent bool
}

// scriptPortal installs a respond hook that answers the four request
// methods with the scripted response for their member name, emitting the
// Response signal on the request path derived from the handle_token,
// exactly like the portal service would.
func scriptPortal(f *fakeConn, sender string, responses map[string]scriptedResponse) {
	f.respond = func(c recordedCall) *dbus.Call {
		resp, ok := responses[c.member()]
		if !ok {
			return nil
		}
		if resp.silent {
			return &dbus.Call{}
		}
		opts := optionsOf(c)
		token, _ := opts["handle_token"].Value().(string)
		path := dbus.ObjectPath(requestPathPrefix + sender + "/" + token)
		results := resp.results
		if results == nil {
			results = map[string]dbus.Variant{}
		}
		f.emit(&dbus.Signal{
			Path: path,
			Name: responseSignal,
			Body: []interface{}{resp.code, results},
		})
		return &dbus.Call{Body: []interface{}{path}}
	}
}

// optionsOf extracts the options vardict from a recorded request call.
func optionsOf(c recordedCall) map[string]dbus.Variant {
	for _, arg := range c.args {
		if opts, ok := arg.(map[string]dbus.Variant); ok {
			return opts
		}
	}
	return nil
}

// newTestPortal returns a portal handle bound to a fresh fake bus.
func newTestPortal() (*Portal, *fakeConn) {
	conn := newFakeConn()
	return newWithConn(conn), conn
}

// ok maps a success response with the given results.
func ok(results map[string]dbus.Variant) scriptedResponse {
	return scriptedResponse{code: responseSuccess, results: results}
}

// waitFor polls cond until it holds or the test deadline budget runs out.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
