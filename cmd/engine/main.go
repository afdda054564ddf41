package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"trackra-engine/internal/appstate"
	"trackra-engine/internal/config"
	"trackra-engine/internal/events"
	"trackra-engine/internal/gateway"
	"trackra-engine/internal/httpapi"
	"trackra-engine/internal/notify"
	"trackra-engine/internal/posting"
	"trackra-engine/internal/secrets"
	"trackra-engine/internal/session"
	"trackra-engine/internal/store"
)

func main() {
	// .env is optional; the desktop shell passes real env vars.
	_ = godotenv.Load()

	dataDir, err := config.DataDir()
	if err != nil {
		log.Fatalf("resolve data dir: %v", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	lock := flock.New(filepath.Join(dataDir, "trackra.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("lock data dir: %v", err)
	}
	if !locked {
		log.Fatalf("another engine is already running on %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	defaultCfgPath := filepath.Join("config", config.FileName)
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		return config.Load(userCfgPath)
	}
	raw, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfg, vr := config.NormalizeAndValidate(raw)
	for _, w := range vr.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if !vr.OK() {
		log.Fatalf("config invalid (%s): %v", userCfgPath, vr.Errors)
	}
	cfgVal.Store(cfg)

	dbPath := filepath.Join(dataDir, "trackra.db")
	db, err := store.OpenMigrated(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	hub := events.NewHub()
	defer hub.Close()

	creds := secrets.NewKeyringStore(cfg.Keychain.Service)
	gw := gateway.NewHTTPClient(cfg.API.BaseURL, gateway.Options{
		RequestTimeout:  cfg.RequestTimeout(),
		ResourceTimeout: cfg.ResourceTimeout(),
	})

	notifier := notify.New(notify.Options{
		Gateway:     gw,
		Credentials: creds,
		DB:          db.Pool,
		Deliverer: notify.Multi{
			notify.HubDeliverer{Hub: hub},
			notify.LogDeliverer{Logger: log.Default()},
		},
		Reminders: notify.ReminderSettings{Enabled: cfg.Reminders.Enabled, Lead: cfg.ReminderLead()},
	})
	engine := appstate.New(appstate.Options{
		Gateway:     gw,
		Credentials: creds,
		Listener:    notifier,
		Hub:         hub,
	})
	sess := session.New(session.Options{Gateway: gw, Credentials: creds, Hub: hub})
	previewer := posting.New(posting.Options{
		RequestsPerSecond: cfg.Posting.RequestsPerSecond,
		Burst:             cfg.Posting.Burst,
		Timeout:           cfg.PostingTimeout(),
	})

	applyCfg := func(next config.Config) {
		notifier.SetReminders(notify.ReminderSettings{Enabled: next.Reminders.Enabled, Lead: next.ReminderLead()})
		hub.Publish(events.MakeEvent("", events.TypeConfigReloaded, 1, nil))
		log.Printf("[config] applied (api and port changes take effect on restart)")
	}

	handler := httpapi.NewHandler(httpapi.Deps{
		Engine:         engine,
		Session:        sess,
		Notify:         notifier,
		Previewer:      previewer,
		Hub:            hub,
		CfgVal:         &cfgVal,
		UserCfgPath:    userCfgPath,
		LoadCfg:        loadCfg,
		OnConfigChange: applyCfg,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("engine listening on http://%s (db=%s)", addr, dbPath)

	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// SSE streams end when the engine shuts down
		BaseContext: func(net.Listener) context.Context { return gctx },
	}
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return notifier.Start(gctx, cfg.PollInterval())
	})
	g.Go(func() error {
		return config.Watch(gctx, userCfgPath, func(next config.Config, vr config.Validation) {
			if !vr.OK() {
				log.Printf("[config] reload rejected: %v", vr.Errors)
				return
			}
			cfgVal.Store(next)
			applyCfg(next)
		})
	})
	g.Go(func() error {
		// restored sessions start with a fresh copy of the collection
		if err := engine.Load(gctx); err != nil {
			log.Printf("[sync] initial load failed: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("engine stopped: %v", err)
		os.Exit(1)
	}
	log.Printf("engine stopped")
}
