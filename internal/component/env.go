// internal/component/env.go
//
// Shared services handed to every component at start-up.

package component

import (
	"time"

	"go.uber.org/zap"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/auth"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/config"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/middleware"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/notify"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/resource"
)

// Env is built once in cmd/web.  Store and Auth are never nil; without a
// database they answer resource.ErrNoDatabase.
type Env struct {
	Config    *config.Config
	Resources *resource.Registry
	Store     *resource.Store
	Public    *resource.PublicReader
	Binder    resource.Binder
	Auth      *auth.Service
	Notifier  notify.Notifier
	Limits    Limits
	Logger    *zap.SugaredLogger
}

// Limits holds the shared per-IP limiters.  Sharing them keeps one budget
// per scope no matter how many routes use it.
type Limits struct {
	Login  *middleware.Limiter
	Submit *middleware.Limiter
}

// MaxBody returns the request body cap, defaulting to 12 MiB.
func (e Env) MaxBody() int64 {
	if e.Config != nil && e.Config.HTTP.MaxBodyBytes > 0 {
		return e.Config.HTTP.MaxBodyBytes
	}
	return 12 << 20
}

// NotifyTimeout returns the staff-notification deadline.
func (e Env) NotifyTimeout() time.Duration {
	if e.Config != nil && e.Config.Notify.Timeout > 0 {
		return e.Config.Notify.Timeout
	}
	return 10 * time.Second
}
