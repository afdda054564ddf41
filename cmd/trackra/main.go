package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"trackra-engine/internal/domain"
	"trackra-engine/internal/posting"
	"trackra-engine/internal/session"
)

var rootCmd = &cobra.Command{
	Use:           "trackra",
	Short:         "Trackra job application tracker",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	_ = godotenv.Load()
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TRACKRA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("data-dir", "", "data directory (default: user config dir)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().Bool("verbose", false, "log component activity to stderr")
	_ = viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(notificationsCmd())
}

func loginCmd() *cobra.Command {
	var remember bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the api key in the keychain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), false, func(rt *cliEnv) error {
				email := viper.GetString("email")
				password := viper.GetString("password")
				if err := rt.session.Login(cmd.Context(), email, password, remember); err != nil {
					return err
				}
				return printJSONOrText(rt.session.Status(), "Signed in as "+email)
			})
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password (or TRACKRA_PASSWORD)")
	cmd.Flags().BoolVar(&remember, "remember", true, "remember the email for next time")
	_ = viper.BindPFlag("email", cmd.Flags().Lookup("email"))
	_ = viper.BindPFlag("password", cmd.Flags().Lookup("password"))
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored api key and email",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), false, func(rt *cliEnv) error {
				if err := rt.session.Logout(); err != nil {
					return err
				}
				return printJSONOrText(rt.session.Status(), "Signed out")
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), false, func(rt *cliEnv) error {
				st := rt.session.Status()
				text := "Not signed in"
				if st.State == session.StateAuthenticated {
					text = "Signed in"
					if st.Email != "" {
						text += " as " + st.Email
					}
				}
				return printJSONOrText(st, text)
			})
		},
	}
}

func listCmd() *cobra.Command {
	var statusFilter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applications, most recent activity first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter domain.ApplicationStatus
			if statusFilter != "" {
				s, err := domain.ParseApplicationStatus(statusFilter)
				if err != nil {
					return err
				}
				filter = s
			}
			return withRuntime(cmd.Context(), true, func(rt *cliEnv) error {
				apps := rt.engine.SortedApplications()
				if filter != "" {
					kept := apps[:0]
					for _, a := range apps {
						if a.Status == filter {
							kept = append(kept, a)
						}
					}
					apps = kept
				}
				if viper.GetBool("json") {
					return printJSON(apps)
				}
				renderApplications(apps)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&statusFilter, "status", "", "only show this status")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one application with its timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), true, func(rt *cliEnv) error {
				app, ok := rt.engine.Application(args[0])
				if !ok {
					return fmt.Errorf("no application %q", args[0])
				}
				if viper.GetBool("json") {
					return printJSON(app)
				}
				renderApplication(app)
				return nil
			})
		},
	}
}

func addCmd() *cobra.Command {
	var f struct {
		role, company, applied, source, salary, location, url, fromURL string
	}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an application",
		RunE: func(cmd *cobra.Command, args []string) error {
			applied := time.Now()
			if f.applied != "" {
				d, err := domain.ParseDate(f.applied)
				if err != nil {
					return fmt.Errorf("--applied must be YYYY-MM-DD")
				}
				applied = d
			}
			return withRuntime(cmd.Context(), true, func(rt *cliEnv) error {
				fields := domain.ApplicationFields{AppliedAt: applied}
				if f.fromURL != "" {
					p := posting.New(posting.Options{
						RequestsPerSecond: rt.cfg.Posting.RequestsPerSecond,
						Burst:             rt.cfg.Posting.Burst,
						Timeout:           rt.cfg.PostingTimeout(),
					})
					hint, err := p.Preview(cmd.Context(), f.fromURL)
					if err != nil {
						return fmt.Errorf("preview %s: %w", f.fromURL, err)
					}
					fields = hint.Fields(applied)
				}
				// explicit flags win over the preview
				override(&fields.Role, f.role)
				override(&fields.Company, f.company)
				override(&fields.Source, f.source)
				override(&fields.SalaryRange, f.salary)
				override(&fields.Location, f.location)
				override(&fields.URL, f.url)

				id, err := rt.engine.CreateApplication(cmd.Context(), fields)
				if err != nil {
					return err
				}
				app, _ := rt.engine.Application(id)
				return printJSONOrText(app, rt.engine.SuccessMessage()+" ("+id+")")
			})
		},
	}
	cmd.Flags().StringVar(&f.role, "role", "", "role title")
	cmd.Flags().StringVar(&f.company, "company", "", "company name")
	cmd.Flags().StringVar(&f.applied, "applied", "", "applied date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.source, "source", "", "where the posting was found")
	cmd.Flags().StringVar(&f.salary, "salary", "", "salary range")
	cmd.Flags().StringVar(&f.location, "location", "", "location")
	cmd.Flags().StringVar(&f.url, "url", "", "posting url")
	cmd.Flags().StringVar(&f.fromURL, "from-url", "", "prefill fields from a posting page")
	return cmd
}

func logCmd() *cobra.Command {
	var typ, date, note string
	cmd := &cobra.Command{
		Use:   "log <id>",
		Short: "Log an activity on an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := domain.ParseActivityType(typ)
			if err != nil {
				return err
			}
			occurred := time.Now()
			if date != "" {
				if occurred, err = domain.ParseDate(date); err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD")
				}
			}
			return withRuntime(cmd.Context(), true, func(rt *cliEnv) error {
				before, ok := rt.engine.Application(args[0])
				if !ok {
					return fmt.Errorf("no application %q", args[0])
				}
				if err := rt.engine.CreateActivity(cmd.Context(), args[0], at, occurred, note); err != nil {
					return err
				}
				// the engine hands this off in the background; a one-shot
				// process would exit first
				if err := rt.notifier.ActivityLogged(cmd.Context(), domain.ActivityLogged{
					ApplicationID: before.ID,
					Type:          at,
					OccurredAt:    occurred,
					Company:       before.Company,
					Role:          before.Role,
				}); err != nil {
					warnf("reminder not scheduled: %v", err)
				}
				app, _ := rt.engine.Application(args[0])
				return printJSONOrText(app, rt.engine.SuccessMessage())
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "activity type (e.g. hr_screen, onsite_interview, note)")
	cmd.Flags().StringVar(&date, "date", "", "activity date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&note, "note", "", "free text note")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set an application's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := domain.ParseApplicationStatus(args[1])
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), true, func(rt *cliEnv) error {
				if _, ok := rt.engine.Application(args[0]); !ok {
					return fmt.Errorf("no application %q", args[0])
				}
				if err := rt.engine.UpdateStatus(cmd.Context(), args[0], status); err != nil {
					return err
				}
				app, _ := rt.engine.Application(args[0])
				return printJSONOrText(app, rt.engine.SuccessMessage())
			})
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), true, func(rt *cliEnv) error {
				if _, ok := rt.engine.Application(args[0]); !ok {
					return fmt.Errorf("no application %q", args[0])
				}
				if err := rt.engine.DeleteApplication(cmd.Context(), args[0]); err != nil {
					return err
				}
				return printJSONOrText(map[string]string{"deleted": args[0]}, "Deleted "+args[0])
			})
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Dashboard statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), true, func(rt *cliEnv) error {
				st := rt.engine.Stats()
				if viper.GetBool("json") {
					return printJSON(st)
				}
				renderStats(st)
				return nil
			})
		},
	}
}

func notificationsCmd() *cobra.Command {
	var readAll, poll bool
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), false, func(rt *cliEnv) error {
				ctx := cmd.Context()
				if poll {
					n, err := rt.notifier.Poll(ctx)
					if err != nil {
						return err
					}
					if !viper.GetBool("json") {
						fmt.Printf("%d new\n", n)
					}
				}
				if readAll {
					if err := rt.notifier.MarkAllRead(ctx); err != nil {
						return err
					}
				}
				list, err := rt.notifier.List(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(list)
				}
				renderNotifications(list)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&readAll, "read-all", false, "mark every notification read")
	cmd.Flags().BoolVar(&poll, "poll", false, "fetch new notifications first")
	return cmd
}

func override(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
