package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still attach extra routes.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: HealthHandler{}.Health,
	}))

	// Sync engine
	st := StateHandler{Engine: d.Engine}
	mux.HandleFunc("/state", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: st.Get,
	}))
	mux.HandleFunc("/refresh", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: st.Refresh,
	}))
	mux.HandleFunc("/stats", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: st.Stats,
	}))
	mux.HandleFunc("/select", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: st.Select,
	}))
	mux.HandleFunc("/applications", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: st.CreateApplication,
	}))
	mux.HandleFunc("/applications/", st.Application)

	// Session
	ah := AuthHandler{Session: d.Session, Engine: d.Engine}
	mux.HandleFunc("/auth/session", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ah.Status,
	}))
	mux.HandleFunc("/auth/health", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ah.Health,
	}))
	mux.HandleFunc("/auth/login", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ah.Login,
	}))
	mux.HandleFunc("/auth/logout", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ah.Logout,
	}))

	// Notifications
	nh := NotificationsHandler{Notify: d.Notify}
	mux.HandleFunc("/notifications", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:    nh.List,
		http.MethodDelete: nh.Clear,
	}))
	mux.HandleFunc("/notifications/poll", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: nh.Poll,
	}))
	mux.HandleFunc("/notifications/read-all", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: nh.ReadAll,
	}))
	mux.HandleFunc("/notifications/", nh.Item)
	mux.HandleFunc("/reminders", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: nh.Reminders,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
		OnChange:    d.OnConfigChange,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// Posting preview
	ph := PostingHandler{Previewer: d.Previewer}
	mux.HandleFunc("/posting/preview", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ph.Preview,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	return mux
}

// NewHandler is the mux wrapped in the standard middleware chain.
func NewHandler(d Deps) http.Handler {
	return Chain(NewMux(d), RequestID, Recover, AccessLog, Cors)
}
