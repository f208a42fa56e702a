// appscope is a terminal viewer for directory application registrations:
// credentials, redirect URIs, permissions, roles and owners, presented as a
// lazily loaded tree kept in sync with the tenant.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/appscope/appscope/pkg/cache"
	"github.com/appscope/appscope/pkg/config"
	"github.com/appscope/appscope/pkg/directory"
	"github.com/appscope/appscope/pkg/tree"
	"github.com/appscope/appscope/pkg/ui"
)

var version = "dev"

func main() {
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	configDir := flag.String("config", "", "Settings directory (default: discovered .appscope)")
	tenant := flag.String("tenant", "", "Tenant id or domain (overrides settings)")
	signInCommand := flag.String("login-cmd", "az login --scope https://graph.microsoft.com/.default", "Command shown when sign-in is required")
	robotList := flag.Bool("robot-list", false, "Output the application listing as JSON and exit (no TUI)")
	logFile := flag.String("log-file", "", "Write debug logs to this file")
	flag.Parse()

	if *help {
		fmt.Println("appscope - terminal tree viewer for application registrations")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(0)
	}
	if *versionFlag {
		fmt.Printf("appscope %s\n", version)
		os.Exit(0)
	}

	logger := zerolog.Nop()
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger = zerolog.New(f).With().Timestamp().Logger()
	}

	dir := config.Discover(*configDir)
	store, err := config.Open(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		os.Exit(1)
	}
	settings := store.Get()

	tenantName := settings.Tenant
	if *tenant != "" {
		tenantName = *tenant
	}

	tokens := tokenSource(settings)
	client := directory.NewGraphClient(tokens, directory.WithLogger(logger))

	if *robotList {
		if err := printListing(client, settings); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "appscope is interactive; use --robot-list for machine-readable output.")
		os.Exit(1)
	}

	listing, err := cache.Open(dir)
	if err != nil {
		logger.Warn().Err(err).Msg("listing cache unavailable")
		listing = nil
	} else {
		defer listing.Close()
	}

	theme := ui.DefaultTheme(lipgloss.DefaultRenderer())

	// Two-phase wiring: the engine's callbacks need the program, the
	// program's model needs the engine. Options are filled in after the
	// program exists but before it runs.
	opts := tree.Options{
		Client:        client,
		Settings:      store,
		Tokens:        tokens,
		Logger:        logger,
		SignInCommand: *signInCommand,
	}
	if listing != nil {
		opts.Cache = listing
	}
	engine := tree.NewEngine(opts)

	model := ui.NewModel(engine, theme, tenantName)
	program := tea.NewProgram(model, tea.WithAltScreen())

	bridge := ui.NewBridge(program)
	engine.Bind(bridge, bridge, bridge.BusyIndicator(), bridge.OpenDocs())

	// Settings edited out-of-band (or by the login CLI) trigger a rebuild.
	if watcher, werr := config.NewWatcher(store); werr == nil {
		if werr = watcher.Start(); werr == nil {
			defer watcher.Stop()
			go func() {
				for range watcher.Changed() {
					engine.TriggerRebuild(context.Background(), nil)
				}
			}()
		} else {
			logger.Warn().Err(werr).Msg("settings watcher unavailable")
		}
	} else {
		logger.Warn().Err(werr).Msg("settings watcher unavailable")
	}

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func tokenSource(settings config.Settings) directory.TokenSource {
	if settings.TokenEnv != "" {
		if tok := os.Getenv(settings.TokenEnv); tok != "" || settings.TokenFile == "" {
			return directory.EnvTokenSource{Var: settings.TokenEnv}
		}
	}
	if settings.TokenFile != "" {
		return &directory.FileTokenSource{Path: settings.TokenFile}
	}
	return directory.EnvTokenSource{Var: "APPSCOPE_TOKEN"}
}

// printListing is the non-interactive escape hatch: the raw listing as JSON
// on stdout.
func printListing(client directory.Client, settings config.Settings) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	opts := directory.ListOptions{Eventual: settings.UseEventualConsistency}
	if settings.UseEventualConsistency && settings.MaximumQueryApps > 0 {
		opts.Top = settings.MaximumQueryApps
	}

	var (
		apps []directory.AppSummary
		err  error
	)
	if settings.ShowOwnedApplicationsOnly {
		apps, err = client.ListOwned(ctx, opts)
	} else {
		apps, err = client.ListAll(ctx, opts)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(apps)
}
