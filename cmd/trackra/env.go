package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/viper"

	"trackra-engine/internal/appstate"
	"trackra-engine/internal/config"
	"trackra-engine/internal/domain"
	"trackra-engine/internal/gateway"
	"trackra-engine/internal/notify"
	"trackra-engine/internal/rank"
	"trackra-engine/internal/secrets"
	"trackra-engine/internal/session"
	"trackra-engine/internal/store"
)

// cliEnv is the same component graph the engine daemon builds, minus the
// HTTP server and background loops.
type cliEnv struct {
	cfg      config.Config
	session  *session.Manager
	engine   *appstate.Engine
	notifier *notify.Scheduler
}

func withRuntime(ctx context.Context, load bool, fn func(*cliEnv) error) error {
	dataDir := strings.TrimSpace(viper.GetString("data-dir"))
	if dataDir == "" {
		d, err := config.DataDir()
		if err != nil {
			return err
		}
		dataDir = d
	}
	cfgPath, err := config.EnsureUserConfig(dataDir, "")
	if err != nil {
		return err
	}
	raw, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load %s: %w", cfgPath, err)
	}
	cfg, vr := config.NormalizeAndValidate(raw)
	if !vr.OK() {
		return fmt.Errorf("config %s: %s", cfgPath, strings.Join(vr.Errors, "; "))
	}

	db, err := store.OpenMigrated(filepath.Join(dataDir, "trackra.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	// Component logs go to stderr only with TRACKRA_VERBOSE set.
	logger := log.New(io.Discard, "", 0)
	if viper.GetBool("verbose") {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	creds := secrets.NewKeyringStore(cfg.Keychain.Service)
	gw := gateway.NewHTTPClient(cfg.API.BaseURL, gateway.Options{
		RequestTimeout:  cfg.RequestTimeout(),
		ResourceTimeout: cfg.ResourceTimeout(),
	})
	rt := &cliEnv{
		cfg:     cfg,
		session: session.New(session.Options{Gateway: gw, Credentials: creds, Logger: logger}),
		engine:  appstate.New(appstate.Options{Gateway: gw, Credentials: creds, Logger: logger}),
		notifier: notify.New(notify.Options{
			Gateway:     gw,
			Credentials: creds,
			DB:          db.Pool,
			Deliverer:   notify.LogDeliverer{Logger: logger},
			Reminders:   notify.ReminderSettings{Enabled: cfg.Reminders.Enabled, Lead: cfg.ReminderLead()},
			Logger:      logger,
		}),
	}

	if load {
		if rt.session.State() != session.StateAuthenticated {
			return gateway.Unauthenticated("trackra")
		}
		if err := rt.engine.Load(ctx); err != nil {
			return err
		}
	}
	return fn(rt)
}

func describe(err error) string {
	return gateway.Describe(err)
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJSONOrText(v any, text string) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	fmt.Println(text)
	return nil
}

func renderApplications(apps []domain.Application) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Company", "Role", "Status", "Applied", "Last activity"})
	for _, a := range apps {
		tw.AppendRow(table.Row{
			a.ID, a.Company, a.Role, a.Status.DisplayName(),
			domain.FormatDate(a.AppliedAt), domain.FormatDate(rank.LastActivityAt(a)),
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "Total", len(apps)})
	tw.Render()
}

func renderApplication(a domain.Application) {
	fmt.Printf("%s at %s\n", a.Role, a.Company)
	fmt.Printf("Status:   %s\n", a.Status.DisplayName())
	fmt.Printf("Applied:  %s\n", domain.FormatDate(a.AppliedAt))
	for _, kv := range [][2]string{
		{"Source", a.Source}, {"Salary", a.SalaryRange}, {"Location", a.Location}, {"URL", a.URL},
	} {
		if kv[1] != "" {
			fmt.Printf("%-9s %s\n", kv[0]+":", kv[1])
		}
	}
	if len(a.Activities) == 0 {
		return
	}
	fmt.Println()
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Date", "Activity", "Note"})
	for _, act := range a.Activities {
		tw.AppendRow(table.Row{domain.FormatDate(act.OccurredAt), act.Type.DisplayName(), act.Note})
	}
	tw.Render()
}

func renderStats(st appstate.Stats) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendRows([]table.Row{
		{"Total", st.Total},
		{"In progress", st.InProgress},
		{"Offers", st.Offers},
		{"Follow-ups", st.FollowUps},
		{"Success rate", fmt.Sprintf("%.1f%%", st.SuccessRate)},
	})
	tw.Render()

	if len(st.ByStatus) == 0 {
		return
	}
	by := table.NewWriter()
	by.SetOutputMirror(os.Stdout)
	by.AppendHeader(table.Row{"Status", "Count"})
	for _, c := range st.ByStatus {
		by.AppendRow(table.Row{c.Label, c.Count})
	}
	by.Render()
}

func renderNotifications(list []domain.AppNotification) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"", "Date", "Title", "Application", "Note"})
	for _, n := range list {
		mark := "*"
		if n.IsRead {
			mark = ""
		}
		tw.AppendRow(table.Row{mark, domain.FormatDate(n.OccurredAt), n.Type.Title(), n.ApplicationID, n.Note})
	}
	tw.Render()
}
