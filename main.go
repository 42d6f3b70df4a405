package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/amigadave/libportal/api"
	"github.com/amigadave/libportal/config"
	"github.com/amigadave/libportal/discovery"
	"github.com/amigadave/libportal/events"
	"github.com/amigadave/libportal/logger"
	"github.com/amigadave/libportal/portal"
	"github.com/amigadave/libportal/tokenstore"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		logger.Fatal("[%s] Failed to load config: %v", config.AppName, err)
	}

	// Set log level from config
	logger.SetLevel(cfg.LogLevel)

	// Global context for the entire application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := portal.New()
	if err != nil {
		logger.Fatal("[%s] Failed to connect to the session bus: %v", config.AppName, err)
	}

	tokens := tokenstore.New(cfg.Portal.TokenFile)
	if err := tokens.Watch(ctx); err != nil {
		logger.Warn("[%s] Restore token watch unavailable: %v", config.AppName, err)
	}

	eventCh := make(chan events.Event, 16)
	broadcaster := events.NewBroadcaster(ctx, eventCh)

	session, err := establish(ctx, p, cfg.Portal, tokens, eventCh)
	if err != nil {
		logger.Fatal("[%s] Failed to establish portal session: %v", config.AppName, err)
	}

	// New api server
	server := api.NewServer(cfg.Api, session, broadcaster)

	if disco := discovery.New(cfg.Zeroconf); disco != nil {
		if err := disco.Start(ctx); err != nil {
			logger.Warn("[%s] Discovery announcement failed: %v", config.AppName, err)
		}
	}

	// Channel to synchronize shutdown
	shutdownDone := make(chan struct{})
	// Goroutine for signal handling; the compositor can also end the
	// session on its own, which shuts the daemon down the same way.
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigChan:
			logger.Info("[%s] Shutdown signal received, stopping server...", config.AppName)
		case <-session.Done():
			logger.Info("[%s] Portal session ended, stopping server...", config.AppName)
		}
		notify(daemon.SdNotifyStopping)
		eventCh <- events.Event{Type: events.TypeSessionClosed, Data: session.ID()}

		// Cancel the global context - stops all listeners
		cancel()

		session.Close()
		p.Close()

		// Signal that cleanup is complete
		close(shutdownDone)
	}()

	notify(daemon.SdNotifyReady)
	logger.Info("[%s] started", config.AppName)
	if server != nil {
		if err := server.Run(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("[%s] http server error: %v", config.AppName, err)
		}
	}

	<-shutdownDone
	logger.Info("[%s] stopped", config.AppName)
}

// establish negotiates and starts a portal session according to the
// configuration: remote desktop when input devices are requested, plain
// screencast otherwise. A stored restore token skips the consent dialog
// when the compositor still honors it.
func establish(ctx context.Context, p *portal.Portal, cfg *config.PortalConfig, tokens *tokenstore.Store, eventCh chan<- events.Event) (*portal.Session, error) {
	var session *portal.Session
	var err error

	if cfg.Devices != portal.DeviceNone {
		session, err = p.CreateRemoteDesktopSession(ctx, portal.RemoteDesktopOptions{
			Devices:      cfg.Devices,
			Outputs:      cfg.Outputs,
			Multiple:     cfg.Multiple,
			PersistMode:  cfg.PersistMode,
			RestoreToken: tokens.Token(),
		})
	} else {
		session, err = p.CreateScreencastSession(ctx, portal.ScreencastOptions{
			Outputs:      cfg.Outputs,
			Multiple:     cfg.Multiple,
			PersistMode:  cfg.PersistMode,
			RestoreToken: tokens.Token(),
		})
	}
	if err != nil {
		return nil, err
	}
	eventCh <- events.Event{Type: events.TypeSessionCreated, Data: session.ID()}

	if err := session.Start(ctx, nil); err != nil {
		return nil, err
	}
	eventCh <- events.Event{Type: events.TypeSessionStarted, Data: session.ID()}
	for _, stream := range session.Streams() {
		eventCh <- events.Event{Type: events.TypeStreamAdded, Data: stream.NodeID}
	}

	if token := session.RestoreToken(); token != "" {
		if err := tokens.Save(token); err != nil {
			logger.Warn("[%s] Failed to persist restore token: %v", config.AppName, err)
		}
	}
	return session, nil
}

// notify reports daemon state to systemd when running under it. Outside
// of systemd the call is a no-op.
func notify(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		logger.Warn("[%s] sd_notify failed: %v", config.AppName, err)
	}
}
