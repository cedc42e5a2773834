package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/oresand/toolbridge/internal/bridge"
	"github.com/oresand/toolbridge/internal/config"
	"github.com/oresand/toolbridge/internal/tool"
)

// startBridge launches the host boundary server in the background and
// waits for a host application to connect. The server stops when ctx
// is cancelled.
func startBridge(ctx context.Context, cfg config.Config, wait time.Duration) (*bridge.Server, error) {
	srv := bridge.New(bridge.Config{
		Addr:  cfg.Bridge.Addr,
		Token: cfg.Bridge.Token,
	}, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	deadline := time.Now().Add(wait)
	for {
		select {
		case err := <-errCh:
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("bridge server stopped before a host connected")
		default:
		}
		if srv.Connected() {
			return srv, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("no host connected to %s within %s", cfg.Bridge.Addr, wait)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// currentTools fetches the host's tool listing, treating an absent
// host as an empty set.
func currentTools(ctx context.Context, srv *bridge.Server) tool.Set {
	set, err := srv.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("tool listing failed, continuing without tools")
		return nil
	}
	return set
}
