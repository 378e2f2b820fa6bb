package handler

import (
	"resc/internal/app/chat"
	"resc/internal/app/tracker"
	"resc/internal/configs"
	"resc/internal/pkg/limiter"
)

// AppDeps carries the services the admin router exposes. Exactly one of Chat and Tracker
// is set, depending on the process role.
type AppDeps struct {
	Config  *configs.AppConfig
	Chat    *chat.Server
	Tracker *tracker.Tracker

	// WSLimiter throttles WebSocket upgrades per client IP. The owner runs its cleanup loop.
	WSLimiter *limiter.IPRateLimiter
}
