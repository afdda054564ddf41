package httpapi

import (
	"sync/atomic"

	"trackra-engine/internal/appstate"
	"trackra-engine/internal/config"
	"trackra-engine/internal/events"
	"trackra-engine/internal/notify"
	"trackra-engine/internal/posting"
	"trackra-engine/internal/session"
)

type Deps struct {
	Engine    *appstate.Engine
	Session   *session.Manager
	Notify    *notify.Scheduler
	Previewer *posting.Previewer

	Hub *events.Hub

	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
	// OnConfigChange applies a saved config to running components.
	OnConfigChange func(config.Config)
}
