package discovery

import (
	"testing"

	"github.com/amigadave/libportal/config"
)

func TestNewDisabled(t *testing.T) {
	if s := New(&config.ZeroConfig{Enabled: false}); s != nil {
		t.Errorf("New() with discovery disabled = %v, want nil", s)
	}
	if s := New(nil); s != nil {
		t.Errorf("New(nil) = %v, want nil", s)
	}
}

func TestNewEnabled(t *testing.T) {
	s := New(&config.ZeroConfig{Enabled: true, InstanceName: "test"})
	if s == nil {
		t.Fatal("New() with discovery enabled = nil")
	}
	// Shutdown before Start is a no-op.
	s.Shutdown()
}
