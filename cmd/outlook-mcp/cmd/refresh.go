package cmd

import (
	"context"
	"time"

	"github.com/wesm/outlook-mcp/internal/oauth"
	"github.com/wesm/outlook-mcp/internal/scheduler"
)

const tokenRefreshJob = "token-refresh"

// tokenRefresher is the part of the token manager the keep-alive job needs.
type tokenRefresher interface {
	Status() oauth.Status
	Refresh(ctx context.Context) error
}

// startTokenRefresh schedules the background token renewal configured by
// oauth.refresh_schedule. The returned func stops it.
func startTokenRefresh(auth tokenRefresher) (stop func(), err error) {
	expr := cfg.OAuth.RefreshSchedule
	if expr == "" || cfg.Server.TestMode {
		return func() {}, nil
	}

	sched := scheduler.New().WithLogger(logger)
	err = sched.Add(tokenRefreshJob, expr, func(ctx context.Context) error {
		if !auth.Status().HasToken {
			return nil
		}
		return auth.Refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	sched.Start()

	return func() {
		select {
		case <-sched.Stop().Done():
		case <-time.After(5 * time.Second):
			logger.Warn("token refresh did not stop in time")
		}
	}, nil
}
