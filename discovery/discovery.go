// Package discovery announces the HTTP API on the local network over
// mDNS so remote control clients can find it without configuration.
package discovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/grandcat/zeroconf"

	"github.com/amigadave/libportal/config"
	"github.com/amigadave/libportal/logger"
)

type Service struct {
	config *config.ZeroConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// New returns an unpublished service, or nil when discovery is disabled.
func New(cfg *config.ZeroConfig) *Service {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return &Service{config: cfg}
}

// Start registers the mDNS service and keeps it published until ctx is
// cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("discovery service already published")
	}

	server, err := zeroconf.Register(
		s.config.InstanceName,
		s.config.ServiceType,
		s.config.Domain,
		s.config.Port,
		s.config.TxtRecords,
		nil,
	)
	if err != nil {
		return err
	}

	s.server = server
	logger.Info("[discovery] service %q published (type: %s, port: %d)",
		s.config.InstanceName, s.config.ServiceType, s.config.Port)

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return nil
}

// Shutdown withdraws the mDNS announcement.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
		logger.Debug("[discovery] service %q withdrawn", s.config.InstanceName)
	}
}
